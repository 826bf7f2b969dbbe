package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/gradebook-backend/internal/middleware"
	"github.com/stemsi/gradebook-backend/internal/response"
)

// paramID parses a positive integer path parameter, writing INVALID_ID on failure.
func paramID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}

// actor is the audit identity of the caller, recorded as changed_by / added_by.
func actor(c *gin.Context) *string {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		return nil
	}
	id := p.Identity()
	return &id
}
