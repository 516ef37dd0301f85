package connection

import (
	"time"

	"github.com/google/uuid"
)

// Status is the stored state of a connection row.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// ViewStatus is the relationship as seen from one side. A pending row reads
// differently depending on which end of it you are.
type ViewStatus string

const (
	ViewNone            ViewStatus = "none"
	ViewPendingSent     ViewStatus = "pending_sent"
	ViewPendingReceived ViewStatus = "pending_received"
	ViewFriends         ViewStatus = "friends"
)

// Connection is a friend relationship between two nomads. It starts
// directed (requester → target) and becomes symmetric once accepted.
type Connection struct {
	ID          uuid.UUID `json:"id" db:"id"`
	RequesterID uuid.UUID `json:"requester_id" db:"requester_id"`
	TargetID    uuid.UUID `json:"target_id" db:"target_id"`
	Status      Status    `json:"status" db:"status"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Resolve maps a stored row to the viewer's perspective. A nil or rejected
// row reads as none for both sides.
func Resolve(c *Connection, viewerID uuid.UUID) ViewStatus {
	if c == nil || c.Status == StatusRejected {
		return ViewNone
	}
	if c.Status == StatusAccepted {
		return ViewFriends
	}
	if c.RequesterID == viewerID {
		return ViewPendingSent
	}
	return ViewPendingReceived
}

type SendRequestBody struct {
	TargetID string `json:"target_id"`
}

type StatusResponse struct {
	Status ViewStatus `json:"status"`
}
