package middleware

import (
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Logger пишет access-лог через logrus вместо gin.Logger
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		entry := RequestLogger(c).WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})

		switch status := c.Writer.Status(); {
		case status >= 500:
			entry.Error("request failed")
		case status >= 400:
			entry.Warn("request rejected")
		default:
			entry.Info("request handled")
		}
	}
}

// RequestLogger — логгер с request_id и сессией текущего запроса
func RequestLogger(c *gin.Context) *logrus.Entry {
	fields := logrus.Fields{"request_id": requestid.Get(c)}
	if id := GetSessionID(c); id != "" {
		fields["session"] = id
	}
	return logrus.WithFields(fields)
}
