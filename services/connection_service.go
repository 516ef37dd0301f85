package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"nomadlinkAPI/internal/apperr"
	"nomadlinkAPI/internal/types/connection"
	"nomadlinkAPI/internal/types/nomad"
	"nomadlinkAPI/internal/types/notification"
)

const uniqueViolation = "23505"

const connectionColumns = `id, requester_id, target_id, status, created_at, updated_at`

type ConnectionService struct {
	db            *pgxpool.Pool
	notifications *NotificationService
}

func NewConnectionService(db *pgxpool.Pool, notifications *NotificationService) *ConnectionService {
	return &ConnectionService{db: db, notifications: notifications}
}

func scanConnection(row pgx.Row) (*connection.Connection, error) {
	c := &connection.Connection{}
	err := row.Scan(&c.ID, &c.RequesterID, &c.TargetID, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// SendRequest creates a PENDING connection from the caller to targetID.
// Exactly one live connection can exist per pair: the partial unique index on
// the pair backstops concurrent sends from both sides, so the second writer
// gets a conflict and should re-read status (and likely accept instead).
func (s *ConnectionService) SendRequest(ctx context.Context, fromClerkID string, targetID uuid.UUID) (*connection.Connection, error) {
	fromID, err := lookupUserID(ctx, s.db, fromClerkID)
	if err != nil {
		return nil, err
	}

	if fromID == targetID {
		return nil, fmt.Errorf("cannot send a connection request to yourself: %w", apperr.ErrInvalidArgument)
	}

	var targetExists bool
	err = s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1 AND deleted = FALSE)`, targetID).Scan(&targetExists)
	if err != nil {
		return nil, fmt.Errorf("failed to check target user: %w", err)
	}
	if !targetExists {
		return nil, fmt.Errorf("user %s: %w", targetID, apperr.ErrNotFound)
	}

	var blocked bool
	err = s.db.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM blocks
			WHERE (blocker_id = $1 AND blocked_id = $2) OR (blocker_id = $2 AND blocked_id = $1)
		)`, fromID, targetID).Scan(&blocked)
	if err != nil {
		return nil, fmt.Errorf("failed to check blocks: %w", err)
	}
	if blocked {
		return nil, fmt.Errorf("a block exists between these users: %w", apperr.ErrConflict)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Rejected leftovers for the pair are cleared so a fresh request is
	// always possible after a rejection or removal.
	_, err = tx.Exec(ctx, `
		DELETE FROM connections
		WHERE ((requester_id = $1 AND target_id = $2) OR (requester_id = $2 AND target_id = $1))
		  AND status = 'rejected'
	`, fromID, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to clear rejected connections: %w", err)
	}

	conn, err := scanConnection(tx.QueryRow(ctx, `
		INSERT INTO connections (requester_id, target_id, status)
		VALUES ($1, $2, 'pending')
		RETURNING `+connectionColumns, fromID, targetID))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("a connection already exists between these users: %w", apperr.ErrConflict)
		}
		return nil, fmt.Errorf("failed to create connection: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit connection: %w", err)
	}

	s.notifyConnectionEvent(ctx, targetID, fromID, notification.TypeConnectionRequest,
		"New connection request", "wants to connect with you")

	return conn, nil
}

// Accept marks a pending connection accepted. Only the target may accept.
func (s *ConnectionService) Accept(ctx context.Context, connectionID uuid.UUID, actorClerkID string) error {
	return s.resolvePending(ctx, connectionID, actorClerkID, connection.StatusAccepted)
}

// Reject marks a pending connection rejected. The row is kept for audit;
// SendRequest clears it if the pair ever retries.
func (s *ConnectionService) Reject(ctx context.Context, connectionID uuid.UUID, actorClerkID string) error {
	return s.resolvePending(ctx, connectionID, actorClerkID, connection.StatusRejected)
}

func (s *ConnectionService) resolvePending(ctx context.Context, connectionID uuid.UUID, actorClerkID string, to connection.Status) error {
	actorID, err := lookupUserID(ctx, s.db, actorClerkID)
	if err != nil {
		return err
	}

	conn, err := scanConnection(s.db.QueryRow(ctx,
		`SELECT `+connectionColumns+` FROM connections WHERE id = $1`, connectionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("connection %s: %w", connectionID, apperr.ErrNotFound)
		}
		return fmt.Errorf("failed to load connection: %w", err)
	}

	if conn.TargetID != actorID {
		return fmt.Errorf("only the request target may resolve it: %w", apperr.ErrForbidden)
	}
	if conn.Status != connection.StatusPending {
		return fmt.Errorf("connection is %s, not pending: %w", conn.Status, apperr.ErrInvalidState)
	}

	_, err = s.db.Exec(ctx,
		`UPDATE connections SET status = $2, updated_at = NOW() WHERE id = $1 AND status = 'pending'`,
		connectionID, to)
	if err != nil {
		return fmt.Errorf("failed to update connection: %w", err)
	}

	if to == connection.StatusAccepted {
		s.notifyConnectionEvent(ctx, conn.RequesterID, actorID, notification.TypeConnectionAccepted,
			"Connection accepted", "accepted your connection request")
	}
	return nil
}

// Cancel lets the requester withdraw their own pending request.
func (s *ConnectionService) Cancel(ctx context.Context, connectionID uuid.UUID, actorClerkID string) error {
	actorID, err := lookupUserID(ctx, s.db, actorClerkID)
	if err != nil {
		return err
	}

	conn, err := scanConnection(s.db.QueryRow(ctx,
		`SELECT `+connectionColumns+` FROM connections WHERE id = $1`, connectionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("connection %s: %w", connectionID, apperr.ErrNotFound)
		}
		return fmt.Errorf("failed to load connection: %w", err)
	}

	if conn.RequesterID != actorID {
		return fmt.Errorf("only the requester may cancel: %w", apperr.ErrForbidden)
	}
	if conn.Status != connection.StatusPending {
		return fmt.Errorf("connection is %s, not pending: %w", conn.Status, apperr.ErrInvalidState)
	}

	_, err = s.db.Exec(ctx, `DELETE FROM connections WHERE id = $1 AND status = 'pending'`, connectionID)
	if err != nil {
		return fmt.Errorf("failed to cancel connection: %w", err)
	}
	return nil
}

// Remove deletes an accepted connection between the caller and otherID.
// Both sides see none immediately. Removing when no friendship exists is
// not found, matching a remove that raced with another remove.
func (s *ConnectionService) Remove(ctx context.Context, actorClerkID string, otherID uuid.UUID) error {
	actorID, err := lookupUserID(ctx, s.db, actorClerkID)
	if err != nil {
		return err
	}

	result, err := s.db.Exec(ctx, `
		DELETE FROM connections
		WHERE ((requester_id = $1 AND target_id = $2) OR (requester_id = $2 AND target_id = $1))
		  AND status = 'accepted'
	`, actorID, otherID)
	if err != nil {
		return fmt.Errorf("failed to remove connection: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("no accepted connection between the users: %w", apperr.ErrNotFound)
	}

	log.Printf("Remove: connection removed between %s and %s", actorID, otherID)
	return nil
}

// GetStatus resolves the relationship to one of none, pending_sent,
// pending_received or friends, from the viewer's side.
func (s *ConnectionService) GetStatus(ctx context.Context, viewerClerkID string, otherID uuid.UUID) (connection.ViewStatus, error) {
	viewerID, err := lookupUserID(ctx, s.db, viewerClerkID)
	if err != nil {
		return connection.ViewNone, err
	}

	conn, err := scanConnection(s.db.QueryRow(ctx, `
		SELECT `+connectionColumns+`
		FROM connections
		WHERE ((requester_id = $1 AND target_id = $2) OR (requester_id = $2 AND target_id = $1))
		  AND status <> 'rejected'
	`, viewerID, otherID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return connection.ViewNone, nil
		}
		return connection.ViewNone, fmt.Errorf("failed to load connection: %w", err)
	}

	return connection.Resolve(conn, viewerID), nil
}

// ListFriends returns the caller's accepted connections as profiles.
func (s *ConnectionService) ListFriends(ctx context.Context, clerkID string) ([]*nomad.Nomad, error) {
	userID, err := lookupUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + nomadColumns + `
	FROM users u
	INNER JOIN connections c
		ON (c.requester_id = u.id AND c.target_id = $1)
		OR (c.target_id = u.id AND c.requester_id = $1)
	WHERE c.status = 'accepted' AND u.deleted = FALSE
	ORDER BY u.username`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}
	defer rows.Close()

	friends := []*nomad.Nomad{}
	for rows.Next() {
		n, err := scanNomad(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan friend: %w", err)
		}
		n.Email = ""
		friends = append(friends, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating friends: %w", err)
	}
	return friends, nil
}

// ListPending returns connections awaiting action, incoming or outgoing.
func (s *ConnectionService) ListPending(ctx context.Context, clerkID string) ([]*connection.Connection, error) {
	userID, err := lookupUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT `+connectionColumns+`
		FROM connections
		WHERE (requester_id = $1 OR target_id = $1) AND status = 'pending'
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending connections: %w", err)
	}
	defer rows.Close()

	pending := []*connection.Connection{}
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		pending = append(pending, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating connections: %w", err)
	}
	return pending, nil
}

func (s *ConnectionService) notifyConnectionEvent(ctx context.Context, recipientID, actorID uuid.UUID, typ notification.Type, title, bodySuffix string) {
	var actorName string
	if err := s.db.QueryRow(ctx, `SELECT username FROM users WHERE id = $1`, actorID).Scan(&actorName); err != nil {
		actorName = "A nomad"
	}

	_, err := s.notifications.Create(ctx, &notification.CreateRequest{
		UserID:   recipientID,
		Type:     typ,
		Priority: notification.PriorityNormal,
		Title:    title,
		Body:     fmt.Sprintf("%s %s", actorName, bodySuffix),
		Data:     map[string]any{"actor_id": actorID.String()},
		ActorID:  &actorID,
	})
	if err != nil {
		log.Printf("notifyConnectionEvent: %v", err)
	}
}
