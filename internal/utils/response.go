package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/harentsoaR/clinic-reception-api/internal/constvars"
	"github.com/harentsoaR/clinic-reception-api/internal/exceptions"
	"go.uber.org/zap"
)

const mimeApplicationJSON = "application/json; charset=utf-8"

type errorResponse struct {
	StatusCode int                    `json:"status_code"`
	Success    bool                   `json:"success"`
	Error      string                 `json:"error"`
	DevMessage string                 `json:"dev_message,omitempty"`
	Location   map[string]interface{} `json:"location,omitempty"`
}

// BuildSuccessResponse writes body as JSON.
func BuildSuccessResponse(c *gin.Context, code int, body interface{}) {
	writeJSON(c, code, body)
}

// BuildErrorResponse logs err and writes the client-safe part of it. Dev
// details are only included when gin is not in release mode.
func BuildErrorResponse(log *zap.Logger, c *gin.Context, err error) {
	code := http.StatusInternalServerError
	clientMessage := exceptions.ErrClientSomethingWrongWithApplication
	requestID := constvars.RequestID(c.Request.Context())

	customErr, ok := exceptions.As(err)
	var location map[string]interface{}
	if ok {
		code = customErr.StatusCode
		clientMessage = customErr.ClientMessage
		location = map[string]interface{}{
			"file":          customErr.Location.File,
			"line":          customErr.Location.Line,
			"function_name": customErr.Location.FunctionName,
		}
		fields := []zap.Field{
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.Int("status", code),
			zap.Any("location", location),
		}
		if code >= http.StatusInternalServerError {
			log.Error(customErr.DevMessage, fields...)
		} else {
			log.Warn(customErr.DevMessage, fields...)
		}
	} else {
		log.Error(err.Error(), zap.String(constvars.LoggingRequestIDKey, requestID))
	}

	response := errorResponse{
		StatusCode: code,
		Success:    false,
		Error:      clientMessage,
	}
	if customErr != nil && gin.Mode() != gin.ReleaseMode {
		response.DevMessage = customErr.DevMessage
		response.Location = location
	}
	writeJSON(c, code, response)
	c.Abort()
}

func writeJSON(c *gin.Context, code int, body interface{}) {
	c.Header("Content-Type", mimeApplicationJSON)
	c.Status(code)
	_ = json.NewEncoder(c.Writer).Encode(body)
}
