package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hed1ad/theftguard/internal/logging"
)

const requestIDHeader = "X-Request-ID"

// requestLogger tags each request with an id and logs its outcome.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqID := c.GetHeader(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header(requestIDHeader, reqID)

		ctx := logging.WithLogger(c.Request.Context(), logger)
		ctx = logging.WithRequestID(ctx, reqID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		l := logging.L(ctx)
		if c.Writer.Status() >= 500 {
			l.Error("request failed", fields...)
		} else {
			l.Debug("request", fields...)
		}
	}
}
