package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/gradebook-backend/internal/model"
	"github.com/stemsi/gradebook-backend/internal/response"
)

// RequireRoles lets the request through when the caller holds at least one
// of roles. Must run after RequireAuth.
func RequireRoles(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		if !ok {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}
		if !p.Roles.Intersects(roles...) {
			code := response.ErrForbidden
			if len(roles) == 1 && roles[0] == model.RoleAdmin {
				code = response.ErrAdminAccessOnly
			}
			response.AbortFail(c, http.StatusForbidden, code)
			return
		}
		c.Next()
	}
}

// RequireSelfOrStaff restricts student-only callers to the student ID in
// the named path parameter. Staff pass unconditionally.
func RequireSelfOrStaff(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		if !ok {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}
		id, err := strconv.Atoi(c.Param(param))
		if err != nil || id <= 0 {
			response.AbortFail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		if !p.CanActAsStudent(id) {
			response.AbortFail(c, http.StatusForbidden, response.ErrSelfAccessOnly)
			return
		}
		c.Next()
	}
}
