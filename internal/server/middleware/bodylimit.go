package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/avagroups/internal/observability"
)

// ErrBodyTooLarge is the response message for oversize bodies.
const ErrBodyTooLarge = "request entity too large"

// BodyLimit rejects requests whose declared Content-Length exceeds maxSize
// and caps the body reader for the rest. A non-positive maxSize disables
// the limit.
func BodyLimit(maxSize int64, logger observability.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = observability.NopLogger()
	}

	return func(c *gin.Context) {
		if maxSize <= 0 {
			c.Next()
			return
		}

		if c.Request.ContentLength > maxSize {
			logger.WithContext(c.Request.Context()).Warn("request body too large",
				observability.Int64("contentLength", c.Request.ContentLength),
				observability.Int64("maxSize", maxSize),
				observability.String("path", c.Request.URL.Path),
			)
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": ErrBodyTooLarge})
			return
		}

		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		}
		c.Next()
	}
}

// IsBodyTooLarge reports whether err came from reading past the body limit.
func IsBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
