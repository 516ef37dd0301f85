package message

import (
	"time"

	"github.com/google/uuid"
)

// Message is a direct message between two nomads. Rows are append-only;
// only the read flag ever changes.
type Message struct {
	ID          uuid.UUID `json:"id" db:"id"`
	SenderID    uuid.UUID `json:"sender_id" db:"sender_id"`
	RecipientID uuid.UUID `json:"recipient_id" db:"recipient_id"`
	Content     string    `json:"content" db:"content"`
	Read        bool      `json:"read" db:"read"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type SendBody struct {
	Content string `json:"content"`
}
