package rest

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
	"ws-chat/contract"
	"ws-chat/domain"
	"ws-chat/errors"

	"github.com/gin-gonic/gin"
)

const (
	userKey      = "user"
	bearerPrefix = "Bearer "
)

// RequireUser resolves the bearer token of the Authorization header and stores the user in the context.
func RequireUser(authenticator contract.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			fail(c, errors.ErrUnauthenticated)
			return
		}
		user, err := authenticator.Authenticate(c.Request.Context(), strings.TrimPrefix(header, bearerPrefix))
		if err != nil {
			fail(c, err)
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

func currentUser(c *gin.Context) domain.User {
	return c.MustGet(userKey).(domain.User)
}

// CORS allows every origin. Bearer tokens are not cookies, so credentials are never allowed.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Origin") == "" {
			c.Next()
			return
		}
		c.Header("Access-Control-Allow-Origin", "*")
		if c.Request.Method == http.MethodOptions {
			c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
			c.Header("Access-Control-Max-Age", "43200")
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequestLogger logs one line per request, server errors at Error level.
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"duration", time.Since(start),
		}
		if status >= http.StatusInternalServerError {
			log.Error("Request failed", append(attrs, "errors", c.Errors.String())...)
			return
		}
		log.Debug("Request served", attrs...)
	}
}

// fail aborts with the status of err. Internal errors never leak their message.
func fail(c *gin.Context, err error) {
	status := errors.HTTPStatus(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		detail = http.StatusText(status)
	}
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}
