package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Lllllllleong/aethercare/internal/auth"
	"github.com/Lllllllleong/aethercare/internal/logger"
	"github.com/gin-gonic/gin"
)

const subjectKey = "subject"

// Auth verifies the bearer token and stores the subject id. The subject is
// never taken from the request body.
func Auth(v auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}

		subject, err := v.Verify(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, auth.ErrInvalidToken) {
				slog.Error("token verification failed", "error", err, "request_id", GetRequestID(c))
			} else {
				slog.Warn("token rejected", "error", err, "request_id", GetRequestID(c))
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
			return
		}

		c.Set(subjectKey, subject)
		c.Request = c.Request.WithContext(logger.WithSubject(c.Request.Context(), subject))
		c.Next()
	}
}

// GetSubject returns the authenticated subject id, if any.
func GetSubject(c *gin.Context) string {
	if subject, ok := c.Get(subjectKey); ok {
		return subject.(string)
	}
	return ""
}
