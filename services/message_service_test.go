package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"nomadlinkAPI/internal/apperr"
	"nomadlinkAPI/internal/testutil"
)

func TestMessageConversation(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, pool)

	ctx := context.Background()
	messages := NewMessageService(pool, NewNotificationService(pool))

	aliceID, aliceClerk := testutil.CreateTestUser(t, pool, "alice")
	bobID, bobClerk := testutil.CreateTestUser(t, pool, "bob")

	if _, err := messages.Send(ctx, aliceClerk, bobID, "campfire tonight?"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := messages.Send(ctx, bobClerk, aliceID, "on my way"); err != nil {
		t.Fatalf("Send (reply): %v", err)
	}

	// Both participants see the same conversation, newest first.
	msgs, err := messages.ListConversation(ctx, aliceClerk, bobID, 0, 0)
	if err != nil {
		t.Fatalf("ListConversation: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Content != "on my way" {
		t.Errorf("first message = %q, want newest first", msgs[0].Content)
	}

	msgsFromBob, err := messages.ListConversation(ctx, bobClerk, aliceID, 0, 0)
	if err != nil {
		t.Fatalf("ListConversation (other side): %v", err)
	}
	if len(msgsFromBob) != len(msgs) {
		t.Errorf("conversation length differs between sides: %d vs %d", len(msgsFromBob), len(msgs))
	}

	// Unread count and mark-read.
	count, err := messages.UnreadCount(ctx, bobClerk)
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if count != 1 {
		t.Errorf("bob unread = %d, want 1", count)
	}

	marked, err := messages.MarkConversationRead(ctx, bobClerk, aliceID)
	if err != nil {
		t.Fatalf("MarkConversationRead: %v", err)
	}
	if marked != 1 {
		t.Errorf("marked %d messages, want 1", marked)
	}

	count, err = messages.UnreadCount(ctx, bobClerk)
	if err != nil {
		t.Fatalf("UnreadCount after read: %v", err)
	}
	if count != 0 {
		t.Errorf("bob unread after read = %d, want 0", count)
	}
}

func TestMessageValidation(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, pool)

	ctx := context.Background()
	messages := NewMessageService(pool, NewNotificationService(pool))

	aliceID, aliceClerk := testutil.CreateTestUser(t, pool, "alice")
	bobID, _ := testutil.CreateTestUser(t, pool, "bob")

	if _, err := messages.Send(ctx, aliceClerk, bobID, "   "); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("blank content: err = %v, want ErrInvalidArgument", err)
	}
	if _, err := messages.Send(ctx, aliceClerk, aliceID, "hi me"); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("self message: err = %v, want ErrInvalidArgument", err)
	}
	if _, err := messages.Send(ctx, aliceClerk, bobID, strings.Repeat("x", maxMessageLength+1)); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("oversized content: err = %v, want ErrInvalidArgument", err)
	}
}
