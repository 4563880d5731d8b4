package api

import (
	"marketplace/server/internal/metrics"
	"marketplace/server/internal/requestid"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RequestID tags each request with an id taken from X-Request-ID or generated.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := requestid.Sanitize(c.GetHeader(requestid.Header))
		c.Request = c.Request.WithContext(requestid.WithID(c.Request.Context(), id))
		c.Set("request_id", id)
		c.Header(requestid.Header, id)
		c.Next()
	}
}

// Logger logs every request once finished and records its metrics.
func Logger(logger *logrus.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		duration := time.Since(start)
		m.ObserveHTTP(c.Request.Method, route, strconv.Itoa(status), duration.Seconds())

		entry := requestid.Entry(c.Request.Context(), logger).WithFields(logrus.Fields{
			"http_method":   c.Request.Method,
			"http_path":     c.Request.URL.Path,
			"remote_addr":   c.ClientIP(),
			"status_code":   status,
			"bytes_written": c.Writer.Size(),
			"duration_ms":   duration.Milliseconds(),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}
		switch {
		case status >= 500:
			entry.Error("Request finished")
		case status >= 400:
			entry.Warn("Request finished")
		default:
			entry.Info("Request finished")
		}
	}
}

// CORS allows the storefront origins, with credentials for the session cookie.
func CORS(origins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", requestid.Header},
		ExposeHeaders:    []string{requestid.Header, "Location"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}
