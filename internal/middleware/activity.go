package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/gradebook-backend/internal/model"
)

// ActivityEnqueuer accepts audit records. Implemented by service.ActivityService.
type ActivityEnqueuer interface {
	Enqueue(ctx context.Context, entry *model.ActivityLog) error
}

const enqueueTimeout = 2 * time.Second

// ActivityLogger records one audit entry per authenticated request once the
// handler has finished. Enqueue failures are logged and never fail the request.
func ActivityLogger(q ActivityEnqueuer, log zerolog.Logger) gin.HandlerFunc {
	log = log.With().Str("component", "activity_logger").Logger()
	return func(c *gin.Context) {
		c.Next()

		p, ok := GetPrincipal(c)
		if !ok {
			return
		}
		entry := BuildActivity(c, p)

		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), enqueueTimeout)
		defer cancel()
		if err := q.Enqueue(ctx, entry); err != nil {
			log.Warn().Err(err).Str("route", c.FullPath()).Msg("Failed to enqueue activity")
		}
	}
}

// BuildActivity derives an audit record from a finished request.
func BuildActivity(c *gin.Context, p model.Principal) *model.ActivityLog {
	uid := p.UserID
	entry := &model.ActivityLog{
		UserID:       &uid,
		Timestamp:    time.Now().UTC(),
		Action:       actionFor(c.Request.Method),
		ResourceType: resourceType(c.FullPath()),
		IPAddress:    c.ClientIP(),
		UserAgent:    c.Request.UserAgent(),
		StatusCode:   c.Writer.Status(),
	}
	if p.Email != "" {
		email := p.Email
		entry.UserEmail = &email
	}
	for _, key := range []string{"id", "student_id"} {
		if v := c.Param(key); v != "" {
			entry.ResourceID = &v
			break
		}
	}
	return entry
}

func actionFor(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	}
	return "read"
}

// resourceType picks the first literal segment after the API prefix,
// skipping the admin namespace: /api/v1/admin/backups -> backups.
func resourceType(route string) string {
	route = strings.TrimPrefix(route, "/api/v1/")
	route = strings.TrimPrefix(route, "admin/")
	for _, seg := range strings.Split(route, "/") {
		if seg != "" && !strings.HasPrefix(seg, ":") {
			return seg
		}
	}
	return "unknown"
}
