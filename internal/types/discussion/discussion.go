package discussion

import (
	"time"

	"github.com/google/uuid"
)

type Discussion struct {
	ID           uuid.UUID `json:"id" db:"id"`
	AuthorID     uuid.UUID `json:"author_id" db:"author_id"`
	Title        string    `json:"title" db:"title"`
	Body         string    `json:"body" db:"body"`
	CommentCount int       `json:"comment_count"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

type Comment struct {
	ID           uuid.UUID `json:"id" db:"id"`
	DiscussionID uuid.UUID `json:"discussion_id" db:"discussion_id"`
	AuthorID     uuid.UUID `json:"author_id" db:"author_id"`
	Content      string    `json:"content" db:"content"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type CreateBody struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type UpdateBody struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type CommentBody struct {
	Content string `json:"content"`
}
