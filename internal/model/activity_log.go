package model

import (
	"encoding/json"
	"time"
)

// ActivityLog is a generic request audit record, independent of grade history.
type ActivityLog struct {
	ID           int64           `json:"id"`
	UserID       *int            `json:"user_id"`
	UserEmail    *string         `json:"user_email"`
	Timestamp    time.Time       `json:"timestamp"`
	Action       string          `json:"action"`
	ResourceType string          `json:"resource_type"`
	ResourceID   *string         `json:"resource_id"`
	Details      json.RawMessage `json:"details,omitempty"`
	IPAddress    string          `json:"ip_address"`
	UserAgent    string          `json:"user_agent"`
	StatusCode   int             `json:"status_code"`
}

// ActivityQuery filters the admin activity listing.
type ActivityQuery struct {
	Page         int        `form:"page,default=1" binding:"min=1"`
	PerPage      int        `form:"per_page,default=50" binding:"min=1,max=200"`
	UserID       *int       `form:"user_id" binding:"omitempty,gt=0"`
	Action       string     `form:"action" binding:"omitempty,oneof=create read update delete"`
	ResourceType string     `form:"resource_type" binding:"omitempty,max=50"`
	StartDate    *time.Time `form:"start_date" time_format:"2006-01-02T15:04:05Z07:00"`
	EndDate      *time.Time `form:"end_date" time_format:"2006-01-02T15:04:05Z07:00"`
}
