package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"nomadlinkAPI/internal/apperr"
	"nomadlinkAPI/internal/testutil"
	"nomadlinkAPI/internal/types/connection"
)

func TestConnectionLifecycle(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, pool)

	ctx := context.Background()
	notifications := NewNotificationService(pool)
	svc := NewConnectionService(pool, notifications)

	aliceID, aliceClerk := testutil.CreateTestUser(t, pool, "alice")
	bobID, bobClerk := testutil.CreateTestUser(t, pool, "bob")

	conn, err := svc.SendRequest(ctx, aliceClerk, bobID)
	if err != nil {
		t.Fatalf("SendRequest: %v", err)
	}
	if conn.Status != connection.StatusPending {
		t.Fatalf("new connection status = %s, want pending", conn.Status)
	}

	// Both sides see the same pending row, from opposite perspectives.
	status, err := svc.GetStatus(ctx, aliceClerk, bobID)
	if err != nil {
		t.Fatalf("GetStatus (sender): %v", err)
	}
	if status != connection.ViewPendingSent {
		t.Errorf("sender status = %s, want pending_sent", status)
	}
	status, err = svc.GetStatus(ctx, bobClerk, aliceID)
	if err != nil {
		t.Fatalf("GetStatus (target): %v", err)
	}
	if status != connection.ViewPendingReceived {
		t.Errorf("target status = %s, want pending_received", status)
	}

	// Only the target may accept.
	if err := svc.Accept(ctx, conn.ID, aliceClerk); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("Accept by requester: err = %v, want ErrForbidden", err)
	}
	if err := svc.Accept(ctx, conn.ID, bobClerk); err != nil {
		t.Fatalf("Accept by target: %v", err)
	}

	status, err = svc.GetStatus(ctx, aliceClerk, bobID)
	if err != nil {
		t.Fatalf("GetStatus after accept (requester): %v", err)
	}
	if status != connection.ViewFriends {
		t.Errorf("requester status after accept = %s, want friends", status)
	}
	status, err = svc.GetStatus(ctx, bobClerk, aliceID)
	if err != nil {
		t.Fatalf("GetStatus after accept (target): %v", err)
	}
	if status != connection.ViewFriends {
		t.Errorf("target status after accept = %s, want friends", status)
	}

	// Accepting twice is an invalid state transition.
	if err := svc.Accept(ctx, conn.ID, bobClerk); !errors.Is(err, apperr.ErrInvalidState) {
		t.Errorf("double Accept: err = %v, want ErrInvalidState", err)
	}

	// Remove tears the friendship down for both sides at once.
	if err := svc.Remove(ctx, aliceClerk, bobID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	status, err = svc.GetStatus(ctx, bobClerk, aliceID)
	if err != nil {
		t.Fatalf("GetStatus after remove: %v", err)
	}
	if status != connection.ViewNone {
		t.Errorf("status after remove = %s, want none", status)
	}

	// Removing again finds nothing.
	if err := svc.Remove(ctx, aliceClerk, bobID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second Remove: err = %v, want ErrNotFound", err)
	}
}

func TestSendRequestDuplicateConflicts(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, pool)

	ctx := context.Background()
	svc := NewConnectionService(pool, NewNotificationService(pool))

	_, aliceClerk := testutil.CreateTestUser(t, pool, "alice")
	aliceID := mustLookup(t, pool, aliceClerk)
	bobID, bobClerk := testutil.CreateTestUser(t, pool, "bob")

	if _, err := svc.SendRequest(ctx, aliceClerk, bobID); err != nil {
		t.Fatalf("SendRequest: %v", err)
	}

	// Same direction.
	if _, err := svc.SendRequest(ctx, aliceClerk, bobID); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("duplicate SendRequest: err = %v, want ErrConflict", err)
	}
	// Opposite direction hits the same pair index.
	if _, err := svc.SendRequest(ctx, bobClerk, aliceID); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("reverse SendRequest: err = %v, want ErrConflict", err)
	}
}

func TestSendRequestValidation(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, pool)

	ctx := context.Background()
	svc := NewConnectionService(pool, NewNotificationService(pool))

	_, aliceClerk := testutil.CreateTestUser(t, pool, "alice")
	aliceID := mustLookup(t, pool, aliceClerk)

	if _, err := svc.SendRequest(ctx, aliceClerk, aliceID); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("self request: err = %v, want ErrInvalidArgument", err)
	}
}

func TestRejectThenRetry(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, pool)

	ctx := context.Background()
	svc := NewConnectionService(pool, NewNotificationService(pool))

	_, aliceClerk := testutil.CreateTestUser(t, pool, "alice")
	bobID, bobClerk := testutil.CreateTestUser(t, pool, "bob")
	aliceID := mustLookup(t, pool, aliceClerk)

	conn, err := svc.SendRequest(ctx, aliceClerk, bobID)
	if err != nil {
		t.Fatalf("SendRequest: %v", err)
	}
	if err := svc.Reject(ctx, conn.ID, bobClerk); err != nil {
		t.Fatalf("Reject: %v", err)
	}

	// Rejected reads as none and does not block a fresh request.
	status, err := svc.GetStatus(ctx, aliceClerk, bobID)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status != connection.ViewNone {
		t.Errorf("status after reject = %s, want none", status)
	}

	if _, err := svc.SendRequest(ctx, bobClerk, aliceID); err != nil {
		t.Fatalf("SendRequest after reject: %v", err)
	}
}

func TestCancelRequest(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, pool)

	ctx := context.Background()
	svc := NewConnectionService(pool, NewNotificationService(pool))

	_, aliceClerk := testutil.CreateTestUser(t, pool, "alice")
	bobID, bobClerk := testutil.CreateTestUser(t, pool, "bob")

	conn, err := svc.SendRequest(ctx, aliceClerk, bobID)
	if err != nil {
		t.Fatalf("SendRequest: %v", err)
	}

	// Only the requester may cancel.
	if err := svc.Cancel(ctx, conn.ID, bobClerk); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("Cancel by target: err = %v, want ErrForbidden", err)
	}
	if err := svc.Cancel(ctx, conn.ID, aliceClerk); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	status, err := svc.GetStatus(ctx, aliceClerk, bobID)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status != connection.ViewNone {
		t.Errorf("status after cancel = %s, want none", status)
	}
}

func mustLookup(t *testing.T, pool *pgxpool.Pool, clerkID string) uuid.UUID {
	t.Helper()
	id, err := lookupUserID(context.Background(), pool, clerkID)
	if err != nil {
		t.Fatalf("lookupUserID(%s): %v", clerkID, err)
	}
	return id
}
