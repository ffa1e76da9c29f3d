// Package middleware provides the gin middleware shared by every route
package middleware

import (
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	"github.com/gravadigital/eventsoft-api/internal/logger"
)

// RequestLogger logs request details under the id assigned by requestid
func RequestLogger() gin.HandlerFunc {
	l := logger.HTTP()

	return func(c *gin.Context) {
		startTime := time.Now()
		id := requestid.Get(c)

		l.Debug("Request started",
			"request_id", id,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"remote_addr", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
		)

		c.Next()

		status := c.Writer.Status()
		logLevel := l.Info
		if status >= 500 {
			logLevel = l.Error
		} else if status >= 400 {
			logLevel = l.Warn
		}

		logLevel("Request completed",
			"request_id", id,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(startTime),
			"size", c.Writer.Size(),
		)
	}
}
