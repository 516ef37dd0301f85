package notification

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeConnectionRequest  Type = "connection_request"
	TypeConnectionAccepted Type = "connection_accepted"
	TypeNewMessage         Type = "new_message"
	TypeSOSNearby          Type = "sos_nearby"
	TypeAssistComment      Type = "assist_comment"
)

type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
	StatusRead    Status = "read"
)

type Notification struct {
	ID        uuid.UUID      `json:"id" db:"id"`
	UserID    uuid.UUID      `json:"user_id" db:"user_id"`
	Type      Type           `json:"type" db:"type"`
	Priority  Priority       `json:"priority" db:"priority"`
	Status    Status         `json:"status" db:"status"`
	Title     string         `json:"title" db:"title"`
	Body      string         `json:"body" db:"body"`
	Data      map[string]any `json:"data" db:"data"`
	ActorID   *uuid.UUID     `json:"actor_id,omitempty" db:"actor_id"`
	SentAt    *time.Time     `json:"sent_at,omitempty" db:"sent_at"`
	ReadAt    *time.Time     `json:"read_at,omitempty" db:"read_at"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

type DeviceToken struct {
	Token    string `json:"token" db:"token"`
	Platform string `json:"platform" db:"platform"`
}

type Preferences struct {
	UserID       uuid.UUID       `json:"user_id" db:"user_id"`
	PushEnabled  bool            `json:"push_enabled" db:"push_enabled"`
	EnabledTypes map[string]bool `json:"enabled_types" db:"enabled_types"`
	DeviceTokens []DeviceToken   `json:"-"`
}

type CreateRequest struct {
	UserID   uuid.UUID      `json:"user_id"`
	Type     Type           `json:"type"`
	Priority Priority       `json:"priority"`
	Title    string         `json:"title"`
	Body     string         `json:"body"`
	Data     map[string]any `json:"data"`
	ActorID  *uuid.UUID     `json:"actor_id,omitempty"`
}

type UpdatePreferencesRequest struct {
	PushEnabled  *bool           `json:"push_enabled,omitempty"`
	EnabledTypes map[string]bool `json:"enabled_types,omitempty"`
}

type RegisterDeviceRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

type ListResponse struct {
	Notifications []*Notification `json:"notifications"`
	UnreadCount   int             `json:"unread_count"`
	TotalCount    int             `json:"total_count"`
	Page          int             `json:"page"`
	PageSize      int             `json:"page_size"`
}
