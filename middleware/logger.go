package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Logger writes one line per request. 5xx responses log at error level and
// 4xx at warn.
func Logger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		var e *zerolog.Event
		switch {
		case status >= 500:
			e = log.Error()
			if len(c.Errors) > 0 {
				e = e.Err(c.Errors.Last().Err)
			}
		case status >= 400:
			e = log.Warn()
		default:
			e = log.Info()
		}

		if id := GetRequestID(c); id != "" {
			e = e.Str("request_id", id)
		}
		if user := CurrentUser(c); user != nil {
			e = e.Uint("user_id", user.ID)
		}

		e.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("ip", c.ClientIP()).
			Msg("request")
	}
}
