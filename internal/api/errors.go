package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nhle/taskboard/internal/store"
)

// statusFor maps a store error code to an HTTP status.
func statusFor(err error) int {
	switch store.CodeOf(err) {
	case store.CodeInvalidArgument:
		return http.StatusBadRequest
	case store.CodeUnauthenticated:
		return http.StatusUnauthorized
	case store.CodePermissionDenied:
		return http.StatusForbidden
	case store.CodeNotFound:
		return http.StatusNotFound
	case store.CodeAborted:
		return http.StatusConflict
	case store.CodeFailedPrecondition:
		return http.StatusPreconditionFailed
	case store.CodeUnavailable, store.CodeDeadlineExceeded:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// abort writes err as a JSON error response.
func abort(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[api] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error": err.Error(),
		"code":  store.CodeOf(err),
	})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error": err.Error(),
		"code":  store.CodeInvalidArgument,
	})
}
