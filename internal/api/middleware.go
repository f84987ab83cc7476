package api

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"staytrack/pkg/domain"
)

const (
	sessionKey = "staytrack.session"
	tokenKey   = "staytrack.token"
)

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			fields = append(fields, zap.String("error", errs.String()))
			logger.Error("request failed", fields...)
			return
		}
		logger.Debug("request", fields...)
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

// authenticate resolves the bearer token to a session or aborts with 401.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			writeError(c, domain.ErrNotAuthenticated)
			return
		}
		sess, err := s.auth.Session(c.Request.Context(), token)
		if err != nil {
			writeError(c, err)
			return
		}
		c.Set(sessionKey, sess)
		c.Set(tokenKey, token)
		c.Next()
	}
}

// requireOwner rejects student accounts with 403.
func requireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := session(c).RequireOwner(); err != nil {
			writeError(c, err)
			return
		}
		c.Next()
	}
}

func session(c *gin.Context) domain.Session {
	if v, ok := c.Get(sessionKey); ok {
		if sess, ok := v.(domain.Session); ok {
			return sess
		}
	}
	return domain.Session{}
}
