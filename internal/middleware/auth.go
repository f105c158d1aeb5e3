package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/clinic-reception-api/internal/constvars"
	"github.com/harentsoaR/clinic-reception-api/internal/exceptions"
	"github.com/harentsoaR/clinic-reception-api/internal/services"
	"github.com/harentsoaR/clinic-reception-api/internal/utils"
	"go.uber.org/zap"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*services.Session, error)
}

// BearerToken returns the token from an "Authorization: Bearer" header.
func BearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func AuthMiddleware(auth Authenticator, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			utils.BuildErrorResponse(log, c, exceptions.ErrTokenMissing())
			return
		}

		sess, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			utils.BuildErrorResponse(log, c, err)
			return
		}

		receptionistID := sess.ReceptionistID.Hex()
		c.Set(constvars.GinReceptionistIDKey, receptionistID)
		c.Set(constvars.GinTokenIDKey, sess.TokenID)
		c.Set(constvars.GinTokenExpiryKey, sess.ExpiresAt)

		ctx := context.WithValue(c.Request.Context(), constvars.ContextReceptionistIDKey, receptionistID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
