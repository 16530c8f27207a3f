package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/parking-permit-api/pkg/middleware/requestid"
)

// Audit logs an operator action once a mutation route has succeeded. Failed requests are already
// covered by the request logger.
func Audit(logger *zap.Logger, action string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	audit := logger.Named("audit")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		if status >= 400 {
			return
		}

		fields := []zap.Field{
			zap.String("action", action),
			zap.String("route", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
			zap.String("user_agent", c.GetHeader("User-Agent")),
			zap.String("request_id", requestid.Value(c)),
		}
		for _, param := range c.Params {
			fields = append(fields, zap.String("param."+param.Key, param.Value))
		}
		audit.Info("operator action", fields...)
	}
}
