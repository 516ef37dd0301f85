package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"nomadlinkAPI/internal/apperr"
	"nomadlinkAPI/internal/geo"
	"nomadlinkAPI/internal/types/assist"
	"nomadlinkAPI/internal/types/notification"
)

const assistColumns = `id, author_id, title, description, category, status, created_at, resolved_at`

// SOSNotifyRadiusKm bounds how far away a friend can be and still get the
// sos_nearby push.
const SOSNotifyRadiusKm = 50.0

type AssistService struct {
	db            *pgxpool.Pool
	notifications *NotificationService
}

func NewAssistService(db *pgxpool.Pool, notifications *NotificationService) *AssistService {
	return &AssistService{db: db, notifications: notifications}
}

func scanAssistRequest(row pgx.Row) (*assist.Request, error) {
	r := &assist.Request{}
	err := row.Scan(&r.ID, &r.AuthorID, &r.Title, &r.Description, &r.Category,
		&r.Status, &r.CreatedAt, &r.ResolvedAt)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *AssistService) CreateRequest(ctx context.Context, clerkID string, body *assist.CreateRequestBody) (*assist.Request, error) {
	title := strings.TrimSpace(body.Title)
	if title == "" {
		return nil, fmt.Errorf("title is required: %w", apperr.ErrInvalidArgument)
	}

	authorID, err := lookupUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	category := body.Category
	if category == "" {
		category = "general"
	}

	r, err := scanAssistRequest(s.db.QueryRow(ctx, `
		INSERT INTO assist_requests (author_id, title, description, category)
		VALUES ($1, $2, $3, $4)
		RETURNING `+assistColumns, authorID, title, body.Description, category))
	if err != nil {
		return nil, fmt.Errorf("failed to create assist request: %w", err)
	}
	return r, nil
}

func (s *AssistService) GetRequest(ctx context.Context, requestID uuid.UUID) (*assist.Request, error) {
	r, err := scanAssistRequest(s.db.QueryRow(ctx,
		`SELECT `+assistColumns+` FROM assist_requests WHERE id = $1`, requestID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("assist request %s: %w", requestID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get assist request: %w", err)
	}
	return r, nil
}

// ListRequests returns assist posts, optionally filtered by status, newest
// first.
func (s *AssistService) ListRequests(ctx context.Context, status assist.Status, limit, offset int) ([]*assist.Request, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + assistColumns + ` FROM assist_requests`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list assist requests: %w", err)
	}
	defer rows.Close()

	requests := []*assist.Request{}
	for rows.Next() {
		r, err := scanAssistRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assist request: %w", err)
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

// Resolve closes an open request. Author only, and one-way: resolving an
// already resolved request is an invalid state.
func (s *AssistService) Resolve(ctx context.Context, clerkID string, requestID uuid.UUID) error {
	actorID, err := lookupUserID(ctx, s.db, clerkID)
	if err != nil {
		return err
	}

	r, err := s.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if r.AuthorID != actorID {
		return fmt.Errorf("only the author may resolve a request: %w", apperr.ErrForbidden)
	}
	if r.Status != assist.StatusOpen {
		return fmt.Errorf("request is already %s: %w", r.Status, apperr.ErrInvalidState)
	}

	_, err = s.db.Exec(ctx, `
		UPDATE assist_requests SET status = 'resolved', resolved_at = NOW()
		WHERE id = $1 AND status = 'open'
	`, requestID)
	if err != nil {
		return fmt.Errorf("failed to resolve request: %w", err)
	}
	return nil
}

// AddComment posts a comment on an assist request and notifies its author.
func (s *AssistService) AddComment(ctx context.Context, clerkID string, requestID uuid.UUID, content string) (*assist.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("comment content is required: %w", apperr.ErrInvalidArgument)
	}

	authorID, err := lookupUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	r, err := s.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	c := &assist.Comment{}
	err = s.db.QueryRow(ctx, `
		INSERT INTO assist_comments (request_id, author_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, request_id, author_id, content, created_at
	`, requestID, authorID, content).Scan(&c.ID, &c.RequestID, &c.AuthorID, &c.Content, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	if r.AuthorID != authorID {
		s.notifyAssistComment(ctx, r, authorID)
	}
	return c, nil
}

func (s *AssistService) ListComments(ctx context.Context, requestID uuid.UUID) ([]*assist.Comment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, request_id, author_id, content, created_at
		FROM assist_comments
		WHERE request_id = $1
		ORDER BY created_at ASC
	`, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	comments := []*assist.Comment{}
	for rows.Next() {
		c := &assist.Comment{}
		if err := rows.Scan(&c.ID, &c.RequestID, &c.AuthorID, &c.Content, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// ActivateSOS flips the caller's SOS flag and pushes an urgent alert to
// accepted connections within SOSNotifyRadiusKm. Activating while already
// active just updates the note.
func (s *AssistService) ActivateSOS(ctx context.Context, clerkID, note string) error {
	userID, err := lookupUserID(ctx, s.db, clerkID)
	if err != nil {
		return err
	}

	var lat, lng *float64
	var username string
	err = s.db.QueryRow(ctx, `
		UPDATE users SET sos_active = TRUE, sos_note = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING latitude, longitude, username
	`, userID, note).Scan(&lat, &lng, &username)
	if err != nil {
		return fmt.Errorf("failed to activate SOS: %w", err)
	}

	if lat == nil || lng == nil {
		// No position on file: the flag is set but nobody can be ranged.
		log.Printf("ActivateSOS: user %s has no location, skipping alerts", userID)
		return nil
	}

	go s.alertNearbyFriends(userID, username, note, *lat, *lng)
	return nil
}

func (s *AssistService) DeactivateSOS(ctx context.Context, clerkID string) error {
	userID, err := lookupUserID(ctx, s.db, clerkID)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx, `
		UPDATE users SET sos_active = FALSE, sos_note = '', updated_at = NOW()
		WHERE id = $1
	`, userID)
	if err != nil {
		return fmt.Errorf("failed to deactivate SOS: %w", err)
	}
	return nil
}

// ListActiveSOS returns active SOS flags within radiusKm of the given point,
// nearest first.
func (s *AssistService) ListActiveSOS(ctx context.Context, lat, lng, radiusKm float64) ([]*assist.SOSAlert, error) {
	if err := geo.ValidateCoordinates(lat, lng); err != nil {
		return nil, err
	}
	if radiusKm <= 0 {
		radiusKm = DefaultNearbyRadiusKm
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, username, sos_note, latitude, longitude
		FROM users
		WHERE sos_active = TRUE AND deleted = FALSE
		  AND latitude IS NOT NULL AND longitude IS NOT NULL
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query SOS flags: %w", err)
	}
	defer rows.Close()

	alerts := []*assist.SOSAlert{}
	for rows.Next() {
		a := &assist.SOSAlert{}
		if err := rows.Scan(&a.UserID, &a.Username, &a.Note, &a.Latitude, &a.Longitude); err != nil {
			return nil, fmt.Errorf("failed to scan SOS flag: %w", err)
		}
		a.DistanceKm = geo.DistanceKm(lat, lng, a.Latitude, a.Longitude)
		if a.DistanceKm > radiusKm {
			continue
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating SOS flags: %w", err)
	}

	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].DistanceKm < alerts[j].DistanceKm
	})
	return alerts, nil
}

// alertNearbyFriends fans out sos_nearby notifications. Runs detached from
// the activating request.
func (s *AssistService) alertNearbyFriends(userID uuid.UUID, username, note string, lat, lng float64) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rows, err := s.db.Query(ctx, `
		SELECT u.id, u.latitude, u.longitude
		FROM users u
		INNER JOIN connections c
			ON (c.requester_id = u.id AND c.target_id = $1)
			OR (c.target_id = u.id AND c.requester_id = $1)
		WHERE c.status = 'accepted' AND u.deleted = FALSE
		  AND u.latitude IS NOT NULL AND u.longitude IS NOT NULL
	`, userID)
	if err != nil {
		log.Printf("alertNearbyFriends: %v", err)
		return
	}
	defer rows.Close()

	type friend struct {
		id       uuid.UUID
		distance float64
	}
	nearby := []friend{}
	for rows.Next() {
		var id uuid.UUID
		var flat, flng float64
		if err := rows.Scan(&id, &flat, &flng); err != nil {
			log.Printf("alertNearbyFriends: %v", err)
			return
		}
		d := geo.DistanceKm(lat, lng, flat, flng)
		if d <= SOSNotifyRadiusKm {
			nearby = append(nearby, friend{id, d})
		}
	}
	if err := rows.Err(); err != nil {
		log.Printf("alertNearbyFriends: %v", err)
		return
	}

	body := fmt.Sprintf("%s needs help nearby", username)
	if note != "" {
		body = fmt.Sprintf("%s needs help: %s", username, note)
	}

	for _, f := range nearby {
		_, err := s.notifications.Create(ctx, &notification.CreateRequest{
			UserID:   f.id,
			Type:     notification.TypeSOSNearby,
			Priority: notification.PriorityUrgent,
			Title:    "SOS alert",
			Body:     body,
			Data: map[string]any{
				"user_id":     userID.String(),
				"distance_km": fmt.Sprintf("%.1f", f.distance),
			},
			ActorID: &userID,
		})
		if err != nil {
			log.Printf("alertNearbyFriends: notify %s: %v", f.id, err)
		}
	}
	log.Printf("alertNearbyFriends: alerted %d friends of %s", len(nearby), userID)
}

func (s *AssistService) notifyAssistComment(ctx context.Context, r *assist.Request, commenterID uuid.UUID) {
	var commenterName string
	if err := s.db.QueryRow(ctx, `SELECT username FROM users WHERE id = $1`, commenterID).Scan(&commenterName); err != nil {
		commenterName = "A nomad"
	}

	_, err := s.notifications.Create(ctx, &notification.CreateRequest{
		UserID:   r.AuthorID,
		Type:     notification.TypeAssistComment,
		Priority: notification.PriorityNormal,
		Title:    "New reply on your assist request",
		Body:     fmt.Sprintf("%s replied to \"%s\"", commenterName, r.Title),
		Data:     map[string]any{"request_id": r.ID.String()},
		ActorID:  &commenterID,
	})
	if err != nil {
		log.Printf("notifyAssistComment: %v", err)
	}
}
