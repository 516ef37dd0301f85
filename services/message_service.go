package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"nomadlinkAPI/internal/apperr"
	"nomadlinkAPI/internal/types/message"
	"nomadlinkAPI/internal/types/notification"
)

const messageColumns = `id, sender_id, recipient_id, content, read, created_at`

const maxMessageLength = 4000

type MessageService struct {
	db            *pgxpool.Pool
	notifications *NotificationService
}

func NewMessageService(db *pgxpool.Pool, notifications *NotificationService) *MessageService {
	return &MessageService{db: db, notifications: notifications}
}

func scanMessage(row pgx.Row) (*message.Message, error) {
	m := &message.Message{}
	err := row.Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.Content, &m.Read, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Send delivers a message from the caller to recipientID. The block check
// runs inside the insert transaction so a concurrent block either lands
// before the message (send refused) or after it (message stored).
func (s *MessageService) Send(ctx context.Context, senderClerkID string, recipientID uuid.UUID, content string) (*message.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("message content is required: %w", apperr.ErrInvalidArgument)
	}
	if len(content) > maxMessageLength {
		return nil, fmt.Errorf("message exceeds %d characters: %w", maxMessageLength, apperr.ErrInvalidArgument)
	}

	senderID, err := lookupUserID(ctx, s.db, senderClerkID)
	if err != nil {
		return nil, err
	}
	if senderID == recipientID {
		return nil, fmt.Errorf("cannot message yourself: %w", apperr.ErrInvalidArgument)
	}

	var recipientExists bool
	err = s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1 AND deleted = FALSE)`, recipientID).Scan(&recipientExists)
	if err != nil {
		return nil, fmt.Errorf("failed to check recipient: %w", err)
	}
	if !recipientExists {
		return nil, fmt.Errorf("user %s: %w", recipientID, apperr.ErrNotFound)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var blocked bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM blocks
			WHERE (blocker_id = $1 AND blocked_id = $2) OR (blocker_id = $2 AND blocked_id = $1)
		)`, senderID, recipientID).Scan(&blocked)
	if err != nil {
		return nil, fmt.Errorf("failed to check blocks: %w", err)
	}
	if blocked {
		return nil, fmt.Errorf("%w", apperr.ErrForbidden)
	}

	m, err := scanMessage(tx.QueryRow(ctx, `
		INSERT INTO messages (sender_id, recipient_id, content)
		VALUES ($1, $2, $3)
		RETURNING `+messageColumns, senderID, recipientID, content))
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit message: %w", err)
	}

	s.notifyNewMessage(ctx, m, senderID)
	return m, nil
}

// ListConversation returns the messages between the caller and otherID,
// newest first, paginated.
func (s *MessageService) ListConversation(ctx context.Context, viewerClerkID string, otherID uuid.UUID, limit, offset int) ([]*message.Message, error) {
	viewerID, err := lookupUserID(ctx, s.db, viewerClerkID)
	if err != nil {
		return nil, err
	}

	if limit < 1 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE (sender_id = $1 AND recipient_id = $2) OR (sender_id = $2 AND recipient_id = $1)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, viewerID, otherID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	msgs := []*message.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// MarkConversationRead marks every message from otherID to the caller read.
func (s *MessageService) MarkConversationRead(ctx context.Context, viewerClerkID string, otherID uuid.UUID) (int64, error) {
	viewerID, err := lookupUserID(ctx, s.db, viewerClerkID)
	if err != nil {
		return 0, err
	}

	result, err := s.db.Exec(ctx, `
		UPDATE messages SET read = TRUE
		WHERE recipient_id = $1 AND sender_id = $2 AND read = FALSE
	`, viewerID, otherID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}
	return result.RowsAffected(), nil
}

// UnreadCount returns how many unread messages the caller has in total.
func (s *MessageService) UnreadCount(ctx context.Context, viewerClerkID string) (int, error) {
	viewerID, err := lookupUserID(ctx, s.db, viewerClerkID)
	if err != nil {
		return 0, err
	}

	var count int
	err = s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE recipient_id = $1 AND read = FALSE`, viewerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}

func (s *MessageService) notifyNewMessage(ctx context.Context, m *message.Message, senderID uuid.UUID) {
	var senderName string
	if err := s.db.QueryRow(ctx, `SELECT username FROM users WHERE id = $1`, senderID).Scan(&senderName); err != nil {
		senderName = "A nomad"
	}

	preview := m.Content
	if len(preview) > 80 {
		preview = preview[:77] + "..."
	}

	_, err := s.notifications.Create(ctx, &notification.CreateRequest{
		UserID:   m.RecipientID,
		Type:     notification.TypeNewMessage,
		Priority: notification.PriorityNormal,
		Title:    fmt.Sprintf("Message from %s", senderName),
		Body:     preview,
		Data:     map[string]any{"sender_id": senderID.String(), "message_id": m.ID.String()},
		ActorID:  &senderID,
	})
	if err != nil {
		log.Printf("notifyNewMessage: %v", err)
	}
}
