package services

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"nomadlinkAPI/internal/apperr"
	"nomadlinkAPI/internal/types/notification"
)

const notificationColumns = `id, user_id, type, priority, status, title, body, data, actor_id, sent_at, read_at, created_at`

type NotificationService struct {
	db         *pgxpool.Pool
	dispatcher *NotificationDispatcher
}

func NewNotificationService(db *pgxpool.Pool) *NotificationService {
	return &NotificationService{db: db}
}

// SetDispatcher attaches the push dispatcher. Without one, notifications are
// persisted for in-app display but never pushed.
func (s *NotificationService) SetDispatcher(d *NotificationDispatcher) {
	s.dispatcher = d
}

func scanNotification(row pgx.Row) (*notification.Notification, error) {
	n := &notification.Notification{}
	err := row.Scan(&n.ID, &n.UserID, &n.Type, &n.Priority, &n.Status, &n.Title,
		&n.Body, &n.Data, &n.ActorID, &n.SentAt, &n.ReadAt, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// Create persists a notification and hands it to the dispatcher for push
// delivery. Delivery failures never bubble up to the triggering operation.
func (s *NotificationService) Create(ctx context.Context, req *notification.CreateRequest) (*notification.Notification, error) {
	if req.Priority == "" {
		req.Priority = notification.PriorityNormal
	}
	if req.Data == nil {
		req.Data = map[string]any{}
	}

	n, err := scanNotification(s.db.QueryRow(ctx, `
		INSERT INTO notifications (user_id, type, priority, title, body, data, actor_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+notificationColumns,
		req.UserID, req.Type, req.Priority, req.Title, req.Body, req.Data, req.ActorID))
	if err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	if s.dispatcher != nil {
		s.dispatcher.Enqueue(n)
	}
	return n, nil
}

// List returns a page of the user's notifications, newest first, together
// with unread and total counts.
func (s *NotificationService) List(ctx context.Context, clerkID string, page, pageSize int) (*notification.ListResponse, error) {
	userID, err := lookupUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	rows, err := s.db.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	items := []*notification.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	var unread, total int
	err = s.db.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE read_at IS NULL), COUNT(*)
		FROM notifications WHERE user_id = $1
	`, userID).Scan(&unread, &total)
	if err != nil {
		return nil, fmt.Errorf("failed to count notifications: %w", err)
	}

	return &notification.ListResponse{
		Notifications: items,
		UnreadCount:   unread,
		TotalCount:    total,
		Page:          page,
		PageSize:      pageSize,
	}, nil
}

// MarkRead marks one notification read. Only the recipient may mark it.
func (s *NotificationService) MarkRead(ctx context.Context, clerkID string, notificationID uuid.UUID) error {
	userID, err := lookupUserID(ctx, s.db, clerkID)
	if err != nil {
		return err
	}

	result, err := s.db.Exec(ctx, `
		UPDATE notifications SET status = 'read', read_at = NOW()
		WHERE id = $1 AND user_id = $2 AND read_at IS NULL
	`, notificationID, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("notification %s: %w", notificationID, apperr.ErrNotFound)
	}
	return nil
}

// Delete removes one of the caller's notifications.
func (s *NotificationService) Delete(ctx context.Context, clerkID string, notificationID uuid.UUID) error {
	userID, err := lookupUserID(ctx, s.db, clerkID)
	if err != nil {
		return err
	}

	result, err := s.db.Exec(ctx,
		`DELETE FROM notifications WHERE id = $1 AND user_id = $2`, notificationID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("notification %s: %w", notificationID, apperr.ErrNotFound)
	}
	return nil
}

// MarkAllRead marks every unread notification for the caller.
func (s *NotificationService) MarkAllRead(ctx context.Context, clerkID string) (int64, error) {
	userID, err := lookupUserID(ctx, s.db, clerkID)
	if err != nil {
		return 0, err
	}

	result, err := s.db.Exec(ctx, `
		UPDATE notifications SET status = 'read', read_at = NOW()
		WHERE user_id = $1 AND read_at IS NULL
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return result.RowsAffected(), nil
}

// GetPreferences returns the user's push settings plus registered device
// tokens, creating default preferences on first access.
func (s *NotificationService) GetPreferences(ctx context.Context, clerkID string) (*notification.Preferences, error) {
	userID, err := lookupUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}
	return s.preferencesFor(ctx, userID)
}

func (s *NotificationService) preferencesFor(ctx context.Context, userID uuid.UUID) (*notification.Preferences, error) {
	p := &notification.Preferences{UserID: userID}
	err := s.db.QueryRow(ctx, `
		INSERT INTO notification_preferences (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING push_enabled, enabled_types
	`, userID).Scan(&p.PushEnabled, &p.EnabledTypes)
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT token, platform FROM device_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load device tokens: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t notification.DeviceToken
		if err := rows.Scan(&t.Token, &t.Platform); err != nil {
			return nil, fmt.Errorf("failed to scan device token: %w", err)
		}
		p.DeviceTokens = append(p.DeviceTokens, t)
	}
	return p, rows.Err()
}

func (s *NotificationService) UpdatePreferences(ctx context.Context, clerkID string, req *notification.UpdatePreferencesRequest) (*notification.Preferences, error) {
	userID, err := lookupUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	if req.PushEnabled != nil {
		_, err = s.db.Exec(ctx, `
			INSERT INTO notification_preferences (user_id, push_enabled)
			VALUES ($1, $2)
			ON CONFLICT (user_id) DO UPDATE SET push_enabled = $2, updated_at = NOW()
		`, userID, *req.PushEnabled)
		if err != nil {
			return nil, fmt.Errorf("failed to update preferences: %w", err)
		}
	}
	if req.EnabledTypes != nil {
		_, err = s.db.Exec(ctx, `
			INSERT INTO notification_preferences (user_id, enabled_types)
			VALUES ($1, $2)
			ON CONFLICT (user_id) DO UPDATE SET enabled_types = $2, updated_at = NOW()
		`, userID, req.EnabledTypes)
		if err != nil {
			return nil, fmt.Errorf("failed to update preferences: %w", err)
		}
	}

	return s.preferencesFor(ctx, userID)
}

// RegisterDevice stores an FCM token for the caller. Re-registering the same
// token is a no-op.
func (s *NotificationService) RegisterDevice(ctx context.Context, clerkID string, req *notification.RegisterDeviceRequest) error {
	if req.Token == "" {
		return fmt.Errorf("device token is required: %w", apperr.ErrInvalidArgument)
	}

	userID, err := lookupUserID(ctx, s.db, clerkID)
	if err != nil {
		return err
	}

	platform := req.Platform
	if platform == "" {
		platform = "android"
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO device_tokens (user_id, token, platform)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, token) DO NOTHING
	`, userID, req.Token, platform)
	if err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}

func (s *NotificationService) UnregisterDevice(ctx context.Context, clerkID, token string) error {
	userID, err := lookupUserID(ctx, s.db, clerkID)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx,
		`DELETE FROM device_tokens WHERE user_id = $1 AND token = $2`, userID, token)
	if err != nil {
		return fmt.Errorf("failed to unregister device: %w", err)
	}
	return nil
}

// shouldPush checks the recipient's preferences for the notification type.
// Urgent notifications (SOS) bypass the per-type switches but still honor
// the master push_enabled flag.
func (s *NotificationService) shouldPush(ctx context.Context, n *notification.Notification) (bool, error) {
	p, err := s.preferencesFor(ctx, n.UserID)
	if err != nil {
		return false, err
	}
	if !p.PushEnabled || len(p.DeviceTokens) == 0 {
		return false, nil
	}
	if n.Priority == notification.PriorityUrgent {
		return true, nil
	}
	if enabled, ok := p.EnabledTypes[string(n.Type)]; ok && !enabled {
		return false, nil
	}
	return true, nil
}

func (s *NotificationService) markAsSent(ctx context.Context, id uuid.UUID) {
	_, err := s.db.Exec(ctx,
		`UPDATE notifications SET status = 'sent', sent_at = NOW() WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		log.Printf("markAsSent: %v", err)
	}
}

func (s *NotificationService) markAsFailed(ctx context.Context, id uuid.UUID) {
	_, err := s.db.Exec(ctx,
		`UPDATE notifications SET status = 'failed', failed_at = NOW() WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		log.Printf("markAsFailed: %v", err)
	}
}

// deviceTokensFor loads the recipient's registered tokens.
func (s *NotificationService) deviceTokensFor(ctx context.Context, userID uuid.UUID) ([]notification.DeviceToken, error) {
	rows, err := s.db.Query(ctx,
		`SELECT token, platform FROM device_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load device tokens: %w", err)
	}
	defer rows.Close()

	tokens := []notification.DeviceToken{}
	for rows.Next() {
		var t notification.DeviceToken
		if err := rows.Scan(&t.Token, &t.Platform); err != nil {
			return nil, fmt.Errorf("failed to scan device token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// CleanupOld deletes read notifications older than 30 days. Run by the
// dispatcher's daily ticker.
func (s *NotificationService) CleanupOld(ctx context.Context) (int64, error) {
	result, err := s.db.Exec(ctx, `
		DELETE FROM notifications
		WHERE status = 'read' AND created_at < NOW() - INTERVAL '30 days'
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up notifications: %w", err)
	}
	return result.RowsAffected(), nil
}
