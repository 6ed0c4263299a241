// api/middleware/identity.go

package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bastionhq/bastion/api/auth"
)

const (
	UserIDContextKey  = "userID"
	TraceIDContextKey = "traceID"

	userIDHeader  = "X-User-Id"
	traceIDHeader = "X-Trace-Id"
)

// Identity extracts the calling subject and trace id from headers set by
// the gateway. Requests without a subject are rejected before reaching
// any handler; a missing trace id is minted here so downstream audit
// records always correlate.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(userIDHeader)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing " + userIDHeader + " header"})
			c.Abort()
			return
		}

		traceID := c.GetHeader(traceIDHeader)
		if traceID == "" {
			traceID = uuid.New().String()
		}

		c.Set(UserIDContextKey, userID)
		c.Set(TraceIDContextKey, traceID)
		c.Header(traceIDHeader, traceID)

		c.Request = c.Request.WithContext(auth.WithTraceID(c.Request.Context(), traceID))
		c.Next()
	}
}
