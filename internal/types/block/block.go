package block

import (
	"time"

	"github.com/google/uuid"
)

// Block is a one-way relation: blocker never implies blocked-back.
type Block struct {
	BlockerID uuid.UUID `json:"blocker_id" db:"blocker_id"`
	BlockedID uuid.UUID `json:"blocked_id" db:"blocked_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Check reports both directions independently; both can be true at once.
type Check struct {
	IsBlocked       bool `json:"is_blocked"`
	IsBlockedByThem bool `json:"is_blocked_by_them"`
}
