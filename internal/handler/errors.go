package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs-lzh/eventpro/internal/service"
)

func statusOf(err error) int {
	switch service.Kind(err) {
	case service.ErrNotFound:
		return http.StatusNotFound
	case service.ErrBadRequest:
		return http.StatusBadRequest
	case service.ErrBusiness:
		return http.StatusUnprocessableEntity
	case service.ErrForbidden:
		return http.StatusForbidden
	case service.ErrConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError hides internal error details from the client; the logger
// middleware reports them through c.Errors.
func writeError(c *gin.Context, err error) {
	status := statusOf(err)
	_ = c.Error(err)
	if status == http.StatusInternalServerError {
		c.AbortWithStatusJSON(status, gin.H{"error": "internal server error"})
		return
	}
	var serviceErr *service.Error
	msg := err.Error()
	if errors.As(err, &serviceErr) {
		msg = serviceErr.Msg
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error": msg,
		"kind":  service.KindName(err),
	})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg, "kind": "bad_request"})
}

func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}
