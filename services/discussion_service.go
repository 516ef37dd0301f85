package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"nomadlinkAPI/internal/apperr"
	"nomadlinkAPI/internal/types/discussion"
)

type DiscussionService struct {
	db *pgxpool.Pool
}

func NewDiscussionService(db *pgxpool.Pool) *DiscussionService {
	return &DiscussionService{db: db}
}

func (s *DiscussionService) Create(ctx context.Context, clerkID string, body *discussion.CreateBody) (*discussion.Discussion, error) {
	title := strings.TrimSpace(body.Title)
	if title == "" {
		return nil, fmt.Errorf("title is required: %w", apperr.ErrInvalidArgument)
	}

	authorID, err := lookupUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	d := &discussion.Discussion{}
	err = s.db.QueryRow(ctx, `
		INSERT INTO discussions (author_id, title, body)
		VALUES ($1, $2, $3)
		RETURNING id, author_id, title, body, created_at, updated_at
	`, authorID, title, body.Body).Scan(&d.ID, &d.AuthorID, &d.Title, &d.Body, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create discussion: %w", err)
	}
	return d, nil
}

func (s *DiscussionService) Get(ctx context.Context, discussionID uuid.UUID) (*discussion.Discussion, error) {
	d := &discussion.Discussion{}
	err := s.db.QueryRow(ctx, `
		SELECT d.id, d.author_id, d.title, d.body, d.created_at, d.updated_at,
			(SELECT COUNT(*) FROM discussion_comments WHERE discussion_id = d.id)
		FROM discussions d
		WHERE d.id = $1
	`, discussionID).Scan(&d.ID, &d.AuthorID, &d.Title, &d.Body, &d.CreatedAt, &d.UpdatedAt, &d.CommentCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("discussion %s: %w", discussionID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get discussion: %w", err)
	}
	return d, nil
}

// List returns discussions newest first with comment counts.
func (s *DiscussionService) List(ctx context.Context, limit, offset int) ([]*discussion.Discussion, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(ctx, `
		SELECT d.id, d.author_id, d.title, d.body, d.created_at, d.updated_at,
			(SELECT COUNT(*) FROM discussion_comments WHERE discussion_id = d.id)
		FROM discussions d
		ORDER BY d.created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list discussions: %w", err)
	}
	defer rows.Close()

	discussions := []*discussion.Discussion{}
	for rows.Next() {
		d := &discussion.Discussion{}
		err := rows.Scan(&d.ID, &d.AuthorID, &d.Title, &d.Body, &d.CreatedAt, &d.UpdatedAt, &d.CommentCount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan discussion: %w", err)
		}
		discussions = append(discussions, d)
	}
	return discussions, rows.Err()
}

// Update edits a discussion. Author only; empty fields keep current values.
func (s *DiscussionService) Update(ctx context.Context, clerkID string, discussionID uuid.UUID, body *discussion.UpdateBody) (*discussion.Discussion, error) {
	actorID, err := lookupUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	existing, err := s.Get(ctx, discussionID)
	if err != nil {
		return nil, err
	}
	if existing.AuthorID != actorID {
		return nil, fmt.Errorf("only the author may edit a discussion: %w", apperr.ErrForbidden)
	}

	d := &discussion.Discussion{}
	err = s.db.QueryRow(ctx, `
		UPDATE discussions
		SET title = COALESCE(NULLIF($2, ''), title),
		    body = COALESCE(NULLIF($3, ''), body),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING id, author_id, title, body, created_at, updated_at
	`, discussionID, body.Title, body.Body).Scan(&d.ID, &d.AuthorID, &d.Title, &d.Body, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update discussion: %w", err)
	}
	d.CommentCount = existing.CommentCount
	return d, nil
}

// Delete removes a discussion and its comments. Author only.
func (s *DiscussionService) Delete(ctx context.Context, clerkID string, discussionID uuid.UUID) error {
	actorID, err := lookupUserID(ctx, s.db, clerkID)
	if err != nil {
		return err
	}

	existing, err := s.Get(ctx, discussionID)
	if err != nil {
		return err
	}
	if existing.AuthorID != actorID {
		return fmt.Errorf("only the author may delete a discussion: %w", apperr.ErrForbidden)
	}

	_, err = s.db.Exec(ctx, `DELETE FROM discussions WHERE id = $1`, discussionID)
	if err != nil {
		return fmt.Errorf("failed to delete discussion: %w", err)
	}
	return nil
}

func (s *DiscussionService) AddComment(ctx context.Context, clerkID string, discussionID uuid.UUID, content string) (*discussion.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("comment content is required: %w", apperr.ErrInvalidArgument)
	}

	authorID, err := lookupUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	if _, err := s.Get(ctx, discussionID); err != nil {
		return nil, err
	}

	c := &discussion.Comment{}
	err = s.db.QueryRow(ctx, `
		INSERT INTO discussion_comments (discussion_id, author_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, discussion_id, author_id, content, created_at
	`, discussionID, authorID, content).Scan(&c.ID, &c.DiscussionID, &c.AuthorID, &c.Content, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	return c, nil
}

func (s *DiscussionService) ListComments(ctx context.Context, discussionID uuid.UUID) ([]*discussion.Comment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, discussion_id, author_id, content, created_at
		FROM discussion_comments
		WHERE discussion_id = $1
		ORDER BY created_at ASC
	`, discussionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	comments := []*discussion.Comment{}
	for rows.Next() {
		c := &discussion.Comment{}
		if err := rows.Scan(&c.ID, &c.DiscussionID, &c.AuthorID, &c.Content, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}
