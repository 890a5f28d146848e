package ginserver

import (
	"errors"
	"log/slog"
	"strings"

	gin "github.com/gin-gonic/gin"

	"villabook/internal/app/services/auth"
	domainauth "villabook/internal/domain/auth"
)

const tokenContextKey = "villabook.token"

// AuthMiddleware resolves a Bearer token into an admin principal on the
// request context. Requests without a valid token pass through anonymous;
// the bus authorizer decides what they may do.
type AuthMiddleware struct {
	Service *auth.Service
	Logger  *slog.Logger
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || m.Service == nil {
		c.Next()
		return
	}
	session, err := m.Service.Resolve(c.Request.Context(), token)
	if err != nil {
		if !errors.Is(err, domainauth.ErrSessionNotFound) && !errors.Is(err, domainauth.ErrSessionExpired) && m.Logger != nil {
			m.Logger.Debug("token validation failed", "error", err)
		}
		c.Next()
		return
	}
	c.Set(tokenContextKey, token)
	c.Request = c.Request.WithContext(domainauth.WithPrincipal(c.Request.Context(), session))
	c.Next()
}

func currentToken(c *gin.Context) string {
	return c.GetString(tokenContextKey)
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
