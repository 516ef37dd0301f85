package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"nomadlinkAPI/internal/apperr"
	"nomadlinkAPI/internal/testutil"
	"nomadlinkAPI/internal/types/notification"
)

// recordingProvider captures pushes instead of hitting FCM.
type recordingProvider struct {
	mu     sync.Mutex
	pushes []string
}

func (p *recordingProvider) SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushes = append(p.pushes, title)
	return nil
}

func (p *recordingProvider) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pushes)
}

func TestNotificationListAndMarkRead(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, pool)

	ctx := context.Background()
	svc := NewNotificationService(pool)

	userID, clerkID := testutil.CreateTestUser(t, pool, "notified")

	n1, err := svc.Create(ctx, &notification.CreateRequest{
		UserID: userID,
		Type:   notification.TypeConnectionRequest,
		Title:  "New connection request",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Create(ctx, &notification.CreateRequest{
		UserID: userID,
		Type:   notification.TypeNewMessage,
		Title:  "Message from bob",
	}); err != nil {
		t.Fatalf("Create (second): %v", err)
	}

	resp, err := svc.List(ctx, clerkID, 1, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if resp.TotalCount != 2 || resp.UnreadCount != 2 {
		t.Errorf("counts = %d total / %d unread, want 2/2", resp.TotalCount, resp.UnreadCount)
	}

	if err := svc.MarkRead(ctx, clerkID, n1.ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	// Marking the same row twice finds nothing left to mark.
	if err := svc.MarkRead(ctx, clerkID, n1.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second MarkRead: err = %v, want ErrNotFound", err)
	}

	marked, err := svc.MarkAllRead(ctx, clerkID)
	if err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
	if marked != 1 {
		t.Errorf("MarkAllRead marked %d, want 1", marked)
	}
}

func TestNotificationPreferencesAndDevices(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, pool)

	ctx := context.Background()
	svc := NewNotificationService(pool)

	_, clerkID := testutil.CreateTestUser(t, pool, "prefs-nomad")

	// First access creates defaults.
	prefs, err := svc.GetPreferences(ctx, clerkID)
	if err != nil {
		t.Fatalf("GetPreferences: %v", err)
	}
	if !prefs.PushEnabled {
		t.Error("default push_enabled = false, want true")
	}

	off := false
	prefs, err = svc.UpdatePreferences(ctx, clerkID, &notification.UpdatePreferencesRequest{
		PushEnabled:  &off,
		EnabledTypes: map[string]bool{"new_message": false},
	})
	if err != nil {
		t.Fatalf("UpdatePreferences: %v", err)
	}
	if prefs.PushEnabled {
		t.Error("push_enabled not updated")
	}
	if enabled, ok := prefs.EnabledTypes["new_message"]; !ok || enabled {
		t.Errorf("enabled_types = %v", prefs.EnabledTypes)
	}

	if err := svc.RegisterDevice(ctx, clerkID, &notification.RegisterDeviceRequest{Token: "tok-1"}); err != nil {
		t.Fatalf("RegisterDevice: %v", err)
	}
	// Re-registering the same token is a no-op.
	if err := svc.RegisterDevice(ctx, clerkID, &notification.RegisterDeviceRequest{Token: "tok-1"}); err != nil {
		t.Fatalf("RegisterDevice (again): %v", err)
	}
	prefs, err = svc.GetPreferences(ctx, clerkID)
	if err != nil {
		t.Fatalf("GetPreferences: %v", err)
	}
	if len(prefs.DeviceTokens) != 1 {
		t.Errorf("device tokens = %d, want 1", len(prefs.DeviceTokens))
	}

	if err := svc.RegisterDevice(ctx, clerkID, &notification.RegisterDeviceRequest{}); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("empty token: err = %v, want ErrInvalidArgument", err)
	}
}

func TestDispatcherDeliversThroughProvider(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, pool)

	ctx := context.Background()
	svc := NewNotificationService(pool)
	provider := &recordingProvider{}
	dispatcher := NewNotificationDispatcher(svc, provider)
	svc.SetDispatcher(dispatcher)
	dispatcher.Start()
	defer dispatcher.Stop()

	userID, clerkID := testutil.CreateTestUser(t, pool, "pushed-nomad")
	if err := svc.RegisterDevice(ctx, clerkID, &notification.RegisterDeviceRequest{Token: "tok-push"}); err != nil {
		t.Fatalf("RegisterDevice: %v", err)
	}

	n, err := svc.Create(ctx, &notification.CreateRequest{
		UserID:   userID,
		Type:     notification.TypeSOSNearby,
		Priority: notification.PriorityUrgent,
		Title:    "SOS alert",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for provider.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if provider.count() != 1 {
		t.Fatalf("provider received %d pushes, want 1", provider.count())
	}

	// The row ends up marked sent.
	var status string
	deadline = time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if err := pool.QueryRow(ctx, `SELECT status FROM notifications WHERE id = $1`, n.ID).Scan(&status); err != nil {
			t.Fatalf("query status: %v", err)
		}
		if status == "sent" {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if status != "sent" {
		t.Errorf("notification status = %s, want sent", status)
	}
}
