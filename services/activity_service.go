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
	"nomadlinkAPI/internal/types/activity"
)

const activityColumns = `id, author_id, title, description, location, starts_at, status, created_at`

type ActivityService struct {
	db *pgxpool.Pool
}

func NewActivityService(db *pgxpool.Pool) *ActivityService {
	return &ActivityService{db: db}
}

func scanActivity(row pgx.Row) (*activity.Activity, error) {
	a := &activity.Activity{}
	err := row.Scan(&a.ID, &a.AuthorID, &a.Title, &a.Description, &a.Location,
		&a.StartsAt, &a.Status, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *ActivityService) Create(ctx context.Context, clerkID string, body *activity.CreateBody) (*activity.Activity, error) {
	title := strings.TrimSpace(body.Title)
	if title == "" {
		return nil, fmt.Errorf("title is required: %w", apperr.ErrInvalidArgument)
	}

	authorID, err := lookupUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	a, err := scanActivity(s.db.QueryRow(ctx, `
		INSERT INTO activities (author_id, title, description, location, starts_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+activityColumns,
		authorID, title, body.Description, body.Location, body.StartsAt))
	if err != nil {
		return nil, fmt.Errorf("failed to create activity: %w", err)
	}
	return a, nil
}

func (s *ActivityService) Get(ctx context.Context, activityID uuid.UUID) (*activity.Activity, error) {
	a, err := scanActivity(s.db.QueryRow(ctx,
		`SELECT `+activityColumns+` FROM activities WHERE id = $1`, activityID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("activity %s: %w", activityID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}
	return a, nil
}

// List returns activities, soonest upcoming first, cancelled ones excluded
// unless includeCancelled is set.
func (s *ActivityService) List(ctx context.Context, includeCancelled bool, limit, offset int) ([]*activity.Activity, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + activityColumns + ` FROM activities`
	if !includeCancelled {
		query += ` WHERE status = 'active'`
	}
	query += ` ORDER BY starts_at ASC NULLS LAST, created_at DESC LIMIT $1 OFFSET $2`

	rows, err := s.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	activities := []*activity.Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// Cancel flips an activity to cancelled. Author only, one-way.
func (s *ActivityService) Cancel(ctx context.Context, clerkID string, activityID uuid.UUID) error {
	actorID, err := lookupUserID(ctx, s.db, clerkID)
	if err != nil {
		return err
	}

	a, err := s.Get(ctx, activityID)
	if err != nil {
		return err
	}
	if a.AuthorID != actorID {
		return fmt.Errorf("only the author may cancel an activity: %w", apperr.ErrForbidden)
	}
	if a.Status != activity.StatusActive {
		return fmt.Errorf("activity is already %s: %w", a.Status, apperr.ErrInvalidState)
	}

	_, err = s.db.Exec(ctx,
		`UPDATE activities SET status = 'cancelled' WHERE id = $1 AND status = 'active'`, activityID)
	if err != nil {
		return fmt.Errorf("failed to cancel activity: %w", err)
	}
	return nil
}
