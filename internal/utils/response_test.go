package utils

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/harentsoaR/clinic-reception-api/internal/exceptions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func errorBody(t *testing.T, err error) (int, map[string]interface{}) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	BuildErrorResponse(zap.NewNop(), c, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, c.IsAborted())
	return w.Code, body
}

func TestBuildErrorResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)

	code, body := errorBody(t, exceptions.ErrNotFound(errors.New("no documents"), "Appointment"))
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Appointment not found", body["error"])
	assert.Contains(t, body["dev_message"], "no documents")

	code, body = errorBody(t, errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, exceptions.ErrClientSomethingWrongWithApplication, body["error"])
	assert.NotContains(t, body, "dev_message")
}

func TestBuildErrorResponseHidesDevDetailsInRelease(t *testing.T) {
	gin.SetMode(gin.ReleaseMode)
	defer gin.SetMode(gin.TestMode)

	code, body := errorBody(t, exceptions.ErrStoreUnavailable(errors.New("server selection timeout")))
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.NotContains(t, body, "dev_message")
	assert.NotContains(t, body, "location")
}
