package services

import (
	"context"
	"errors"
	"testing"

	"nomadlinkAPI/internal/apperr"
	"nomadlinkAPI/internal/testutil"
)

func TestBlockGatesMessagingBothDirections(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, pool)

	ctx := context.Background()
	blocks := NewBlockService(pool)
	messages := NewMessageService(pool, NewNotificationService(pool))

	aliceID, aliceClerk := testutil.CreateTestUser(t, pool, "alice")
	bobID, bobClerk := testutil.CreateTestUser(t, pool, "bob")

	if _, err := messages.Send(ctx, aliceClerk, bobID, "hello"); err != nil {
		t.Fatalf("Send before block: %v", err)
	}

	if err := blocks.Block(ctx, aliceClerk, bobID); err != nil {
		t.Fatalf("Block: %v", err)
	}

	// The block refuses sends in both directions, not just from the blocker.
	if _, err := messages.Send(ctx, aliceClerk, bobID, "still there?"); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("Send by blocker: err = %v, want ErrForbidden", err)
	}
	if _, err := messages.Send(ctx, bobClerk, aliceID, "what happened?"); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("Send by blocked: err = %v, want ErrForbidden", err)
	}

	// Unblocking restores messaging.
	if err := blocks.Unblock(ctx, aliceClerk, bobID); err != nil {
		t.Fatalf("Unblock: %v", err)
	}
	if _, err := messages.Send(ctx, bobClerk, aliceID, "back again"); err != nil {
		t.Errorf("Send after unblock: %v", err)
	}
}

func TestBlockIdempotentAndCheck(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, pool)

	ctx := context.Background()
	blocks := NewBlockService(pool)

	aliceID, aliceClerk := testutil.CreateTestUser(t, pool, "alice")
	bobID, bobClerk := testutil.CreateTestUser(t, pool, "bob")

	if err := blocks.Block(ctx, aliceClerk, bobID); err != nil {
		t.Fatalf("Block: %v", err)
	}
	// Blocking twice is a no-op, not an error.
	if err := blocks.Block(ctx, aliceClerk, bobID); err != nil {
		t.Fatalf("second Block: %v", err)
	}

	check, err := blocks.Check(ctx, aliceClerk, bobID)
	if err != nil {
		t.Fatalf("Check (blocker side): %v", err)
	}
	if !check.IsBlocked || check.IsBlockedByThem {
		t.Errorf("blocker check = %+v, want IsBlocked only", check)
	}

	check, err = blocks.Check(ctx, bobClerk, aliceID)
	if err != nil {
		t.Fatalf("Check (blocked side): %v", err)
	}
	if check.IsBlocked || !check.IsBlockedByThem {
		t.Errorf("blocked check = %+v, want IsBlockedByThem only", check)
	}

	// Unblocking someone never blocked is fine too.
	if err := blocks.Unblock(ctx, bobClerk, aliceID); err != nil {
		t.Errorf("Unblock without block: %v", err)
	}
}

func TestBlockSelf(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, pool)

	ctx := context.Background()
	blocks := NewBlockService(pool)

	aliceID, aliceClerk := testutil.CreateTestUser(t, pool, "alice")

	if err := blocks.Block(ctx, aliceClerk, aliceID); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("self block: err = %v, want ErrInvalidArgument", err)
	}
}

func TestBlockDoesNotTouchConnections(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, pool)

	ctx := context.Background()
	notifications := NewNotificationService(pool)
	connections := NewConnectionService(pool, notifications)
	blocks := NewBlockService(pool)

	_, aliceClerk := testutil.CreateTestUser(t, pool, "alice")
	bobID, bobClerk := testutil.CreateTestUser(t, pool, "bob")

	conn, err := connections.SendRequest(ctx, aliceClerk, bobID)
	if err != nil {
		t.Fatalf("SendRequest: %v", err)
	}
	if err := connections.Accept(ctx, conn.ID, bobClerk); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	if err := blocks.Block(ctx, aliceClerk, bobID); err != nil {
		t.Fatalf("Block: %v", err)
	}

	// The friendship row survives the block; the gate is enforced at the
	// messaging layer.
	status, err := connections.GetStatus(ctx, aliceClerk, bobID)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status != "friends" {
		t.Errorf("status after block = %s, want friends", status)
	}
}
