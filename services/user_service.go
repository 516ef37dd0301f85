package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/skip2/go-qrcode"

	"nomadlinkAPI/internal/apperr"
	"nomadlinkAPI/internal/geo"
	"nomadlinkAPI/internal/types/connection"
	"nomadlinkAPI/internal/types/nomad"
)

const nomadColumns = `id, clerk_id, email, username, first_name, last_name, image_url, bio, rig,
	latitude, longitude, location_updated_at, sos_active, sos_note, last_active_at, created_at, updated_at`

type UserService struct {
	db *pgxpool.Pool
}

func NewUserService(db *pgxpool.Pool) *UserService {
	return &UserService{db: db}
}

// lookupUserID resolves a Clerk subject to the internal user id. Shared by
// every service in this package.
func lookupUserID(ctx context.Context, db *pgxpool.Pool, clerkID string) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1 AND deleted = FALSE`, clerkID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("user %s: %w", clerkID, apperr.ErrNotFound)
		}
		return uuid.Nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	return id, nil
}

func scanNomad(row pgx.Row) (*nomad.Nomad, error) {
	n := &nomad.Nomad{}
	err := row.Scan(
		&n.ID, &n.ClerkID, &n.Email, &n.Username, &n.FirstName, &n.LastName,
		&n.ImageURL, &n.Bio, &n.Rig, &n.Latitude, &n.Longitude,
		&n.LocationUpdatedAt, &n.SOSActive, &n.SOSNote, &n.LastActiveAt,
		&n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (s *UserService) CreateNomad(ctx context.Context, req *nomad.CreateNomadRequest) (*nomad.Nomad, error) {
	query := `
	INSERT INTO users (clerk_id, email, username, first_name, last_name, image_url)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING ` + nomadColumns

	n, err := scanNomad(s.db.QueryRow(ctx, query,
		req.ClerkID, req.Email, req.Username, req.FirstName, req.LastName, req.ImageURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return n, nil
}

func (s *UserService) GetByClerkID(ctx context.Context, clerkID string) (*nomad.Nomad, error) {
	query := `SELECT ` + nomadColumns + ` FROM users WHERE clerk_id = $1 AND deleted = FALSE`

	n, err := scanNomad(s.db.QueryRow(ctx, query, clerkID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", clerkID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return n, nil
}

// GetPublicProfile returns another nomad's profile together with the
// connection status from the viewer's side and whether the viewer has
// blocked them. Email is stripped.
func (s *UserService) GetPublicProfile(ctx context.Context, viewerClerkID string, targetID uuid.UUID) (*nomad.PublicProfile, error) {
	viewerID, err := lookupUserID(ctx, s.db, viewerClerkID)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + nomadColumns + ` FROM users WHERE id = $1 AND deleted = FALSE`
	n, err := scanNomad(s.db.QueryRow(ctx, query, targetID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", targetID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	n.Email = ""

	var conn connection.Connection
	connQuery := `
		SELECT id, requester_id, target_id, status, created_at, updated_at
		FROM connections
		WHERE ((requester_id = $1 AND target_id = $2) OR (requester_id = $2 AND target_id = $1))
		  AND status <> 'rejected'
	`
	status := connection.ViewNone
	err = s.db.QueryRow(ctx, connQuery, viewerID, targetID).Scan(
		&conn.ID, &conn.RequesterID, &conn.TargetID, &conn.Status, &conn.CreatedAt, &conn.UpdatedAt)
	if err == nil {
		status = connection.Resolve(&conn, viewerID)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to check connection: %w", err)
	}

	var blocked bool
	err = s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM blocks WHERE blocker_id = $1 AND blocked_id = $2)`,
		viewerID, targetID).Scan(&blocked)
	if err != nil {
		return nil, fmt.Errorf("failed to check block: %w", err)
	}

	return &nomad.PublicProfile{
		Nomad:            n,
		ConnectionStatus: string(status),
		IsBlocked:        blocked,
	}, nil
}

func (s *UserService) UpdateProfileByClerkID(ctx context.Context, clerkID string, req *nomad.UpdateProfileRequest) (*nomad.Nomad, error) {
	query := `
	UPDATE users
	SET
		username = COALESCE(NULLIF($2, ''), username),
		first_name = COALESCE(NULLIF($3, ''), first_name),
		last_name = COALESCE(NULLIF($4, ''), last_name),
		image_url = COALESCE(NULLIF($5, ''), image_url),
		bio = COALESCE(NULLIF($6, ''), bio),
		rig = COALESCE(NULLIF($7, ''), rig),
		updated_at = NOW()
	WHERE clerk_id = $1 AND deleted = FALSE
	RETURNING ` + nomadColumns

	n, err := scanNomad(s.db.QueryRow(ctx, query, clerkID,
		req.Username, req.FirstName, req.LastName, req.ImageURL, req.Bio, req.Rig))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", clerkID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return n, nil
}

// UpdateLocation upserts the caller's coordinates and bumps last_active_at.
// Calling it twice with the same coordinates is a no-op in effect.
func (s *UserService) UpdateLocation(ctx context.Context, clerkID string, lat, lng float64) error {
	if err := geo.ValidateCoordinates(lat, lng); err != nil {
		return err
	}

	query := `
	UPDATE users
	SET latitude = $2, longitude = $3, location_updated_at = NOW(), last_active_at = NOW()
	WHERE clerk_id = $1 AND deleted = FALSE
	`
	result, err := s.db.Exec(ctx, query, clerkID, lat, lng)
	if err != nil {
		return fmt.Errorf("failed to update location: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", clerkID, apperr.ErrNotFound)
	}
	return nil
}

// SearchNomads matches usernames case-insensitively, excluding the viewer.
func (s *UserService) SearchNomads(ctx context.Context, clerkID, q string, limit int) ([]*nomad.Nomad, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := `SELECT ` + nomadColumns + `
	FROM users
	WHERE deleted = FALSE
	  AND clerk_id <> $1
	  AND username ILIKE '%' || $2 || '%'
	ORDER BY username
	LIMIT $3`

	rows, err := s.db.Query(ctx, query, clerkID, q, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	defer rows.Close()

	nomads := []*nomad.Nomad{}
	for rows.Next() {
		n, err := scanNomad(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		n.Email = ""
		nomads = append(nomads, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return nomads, nil
}

// QRInvite builds the scan-to-connect QR code: a deep link that opens the
// inviter's profile in the app, encoded as a base64 PNG.
func (s *UserService) QRInvite(ctx context.Context, clerkID string) (*nomad.QRInviteResponse, error) {
	userID, err := lookupUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	inviteURL := fmt.Sprintf("nomadlink://connect/%s", userID)

	pngBytes, err := qrcode.Encode(inviteURL, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR png: %w", err)
	}

	return &nomad.QRInviteResponse{
		InviteURL:    inviteURL,
		QRCodeBase64: base64.StdEncoding.EncodeToString(pngBytes),
	}, nil
}

// DeleteByClerkID soft-retains the row: PII is cleared, the id stays so
// connections and messages keep valid references.
func (s *UserService) DeleteByClerkID(ctx context.Context, clerkID string) error {
	query := `
	UPDATE users
	SET email = '', username = 'deleted-' || LEFT(id::text, 8), first_name = '', last_name = '',
	    image_url = '', bio = '', rig = '', latitude = NULL, longitude = NULL,
	    sos_active = FALSE, sos_note = '', deleted = TRUE, updated_at = NOW()
	WHERE clerk_id = $1 AND deleted = FALSE
	`
	result, err := s.db.Exec(ctx, query, clerkID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", clerkID, apperr.ErrNotFound)
	}

	log.Printf("DeleteByClerkID: retired user with clerk_id %s", clerkID)
	return nil
}

// TouchLastActive bumps last_active_at; failures are logged, not surfaced.
func (s *UserService) TouchLastActive(ctx context.Context, clerkID string) {
	_, err := s.db.Exec(ctx,
		`UPDATE users SET last_active_at = NOW() WHERE clerk_id = $1 AND deleted = FALSE`, clerkID)
	if err != nil {
		log.Printf("TouchLastActive: %v", err)
	}
}
