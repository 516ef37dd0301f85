package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"nomadlinkAPI/internal/apperr"
	"nomadlinkAPI/internal/types/block"
)

type BlockService struct {
	db *pgxpool.Pool
}

func NewBlockService(db *pgxpool.Pool) *BlockService {
	return &BlockService{db: db}
}

// Block records a block from the caller against blockedID. Blocking twice is
// a no-op. Existing connections are left untouched; the block gates
// messaging regardless of connection state.
func (s *BlockService) Block(ctx context.Context, blockerClerkID string, blockedID uuid.UUID) error {
	blockerID, err := lookupUserID(ctx, s.db, blockerClerkID)
	if err != nil {
		return err
	}

	if blockerID == blockedID {
		return fmt.Errorf("cannot block yourself: %w", apperr.ErrInvalidArgument)
	}

	var exists bool
	err = s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1 AND deleted = FALSE)`, blockedID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check user: %w", err)
	}
	if !exists {
		return fmt.Errorf("user %s: %w", blockedID, apperr.ErrNotFound)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO blocks (blocker_id, blocked_id)
		VALUES ($1, $2)
		ON CONFLICT (blocker_id, blocked_id) DO NOTHING
	`, blockerID, blockedID)
	if err != nil {
		return fmt.Errorf("failed to create block: %w", err)
	}
	return nil
}

// Unblock removes the caller's block. Unblocking someone who was never
// blocked is a no-op.
func (s *BlockService) Unblock(ctx context.Context, blockerClerkID string, blockedID uuid.UUID) error {
	blockerID, err := lookupUserID(ctx, s.db, blockerClerkID)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx,
		`DELETE FROM blocks WHERE blocker_id = $1 AND blocked_id = $2`, blockerID, blockedID)
	if err != nil {
		return fmt.Errorf("failed to remove block: %w", err)
	}
	return nil
}

// Check reports both directions of a block between the caller and otherID.
func (s *BlockService) Check(ctx context.Context, viewerClerkID string, otherID uuid.UUID) (*block.Check, error) {
	viewerID, err := lookupUserID(ctx, s.db, viewerClerkID)
	if err != nil {
		return nil, err
	}

	c := &block.Check{}
	err = s.db.QueryRow(ctx, `
		SELECT
			EXISTS(SELECT 1 FROM blocks WHERE blocker_id = $1 AND blocked_id = $2),
			EXISTS(SELECT 1 FROM blocks WHERE blocker_id = $2 AND blocked_id = $1)
	`, viewerID, otherID).Scan(&c.IsBlocked, &c.IsBlockedByThem)
	if err != nil {
		return nil, fmt.Errorf("failed to check blocks: %w", err)
	}
	return c, nil
}

// ListBlocked returns the ids of everyone the caller has blocked.
func (s *BlockService) ListBlocked(ctx context.Context, viewerClerkID string) ([]*block.Block, error) {
	viewerID, err := lookupUserID(ctx, s.db, viewerClerkID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT blocker_id, blocked_id, created_at
		FROM blocks
		WHERE blocker_id = $1
		ORDER BY created_at DESC
	`, viewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocks: %w", err)
	}
	defer rows.Close()

	blocked := []*block.Block{}
	for rows.Next() {
		b := &block.Block{}
		if err := rows.Scan(&b.BlockerID, &b.BlockedID, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan block: %w", err)
		}
		blocked = append(blocked, b)
	}
	return blocked, rows.Err()
}
