package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrlokans/librarian/internal/database"
)

// RequestLogger stores log in the request context and writes one line per
// request.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Set(contextKeyLogger, log)
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch {
		case c.Writer.Status() >= 500:
			log.Error("request", fields...)
		case c.Writer.Status() >= 400:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}

// DatabaseSession opens one database session for the rest of the chain and
// releases it once the handlers return. A request that cannot get a session
// is answered with the mapped store error.
func DatabaseSession(db SessionRunner) gin.HandlerFunc {
	return func(c *gin.Context) {
		handled := false
		err := db.WithSession(c.Request.Context(), func(s database.Session) error {
			handled = true
			c.Set(contextKeySession, s)
			c.Next()
			return nil
		})
		if err != nil && !handled {
			respondServiceError(c, err, "open database session")
			c.Abort()
		}
	}
}
