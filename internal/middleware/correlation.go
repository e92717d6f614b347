package middleware

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const CorrelationIDKey = "correlation_id"

// CorrelationHeader is the inbound/outbound correlation-ID header.
const CorrelationHeader = "X-Correlation-ID"

// CorrelationID propagates the caller's correlation ID, generating one when
// the header is absent, and echoes it on the response.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(CorrelationHeader)
		if id == "" {
			id = newCorrelationID()
		}
		c.Set(CorrelationIDKey, id)
		c.Header(CorrelationHeader, id)
		c.Next()
	}
}

// GetCorrelationID retrieves the correlation ID from the request context.
func GetCorrelationID(c *gin.Context) string {
	id, _ := c.Get(CorrelationIDKey)
	s, _ := id.(string)
	return s
}

// RequestLogger logs each request with its correlation ID after completion.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.WithFields(log.Fields{
			"correlation_id": GetCorrelationID(c),
			"method":         c.Request.Method,
			"path":           c.Request.URL.Path,
			"status":         c.Writer.Status(),
		}).Info("request completed")
	}
}

func newCorrelationID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(buf)
}
