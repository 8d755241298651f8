package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// RequestLogger tags every request with an id and logs method, path, status
// and latency. An incoming X-Request-ID is honoured so ids survive proxies.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("requestId", requestID)
		c.Header(requestIDHeader, requestID)

		start := time.Now()
		c.Next()

		log.Printf("%s %s %d %s reqid=%s",
			c.Request.Method, c.Request.URL.Path,
			c.Writer.Status(), time.Since(start), requestID)
	}
}
