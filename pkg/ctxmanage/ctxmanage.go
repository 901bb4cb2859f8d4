package ctxmanage

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TraceIDKey is the gin context key under which the logger middleware stores
// the per-request trace id.
const TraceIDKey = "trace_id"

// GetTraceIdOfRequest returns the trace id set by the logger middleware,
// generating one on the spot if the middleware did not run.
func GetTraceIdOfRequest(c *gin.Context) string {
	traceId, ok := c.Get(TraceIDKey)
	if !ok {
		id := uuid.NewString()
		c.Set(TraceIDKey, id)
		return id
	}
	s, ok := traceId.(string)
	if !ok || s == "" {
		return uuid.NewString()
	}
	return s
}
