package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chama-ledger.backend/pkg/logger"
)

// LoggerMiddleware logs each request against its route template, so wallet
// and transaction ids stay out of the path field.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		var extra []zap.Field
		if key := c.GetHeader(IdempotencyHeader); key != "" {
			extra = append(extra, zap.String("idempotency_key", key))
		}
		if len(c.Errors) > 0 {
			extra = append(extra, zap.String("errors", c.Errors.String()))
		}

		// auth swaps c.Request, so the context read here carries the actor id
		logger.LogRequest(c.Request.Context(), c.Request.Method, path, c.Writer.Status(), time.Since(start), c.ClientIP(), extra...)
	}
}
