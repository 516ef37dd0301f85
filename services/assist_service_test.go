package services

import (
	"context"
	"errors"
	"testing"

	"nomadlinkAPI/internal/apperr"
	"nomadlinkAPI/internal/testutil"
	"nomadlinkAPI/internal/types/assist"
)

func TestAssistRequestLifecycle(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, pool)

	ctx := context.Background()
	svc := NewAssistService(pool, NewNotificationService(pool))

	_, authorClerk := testutil.CreateTestUser(t, pool, "author")
	_, helperClerk := testutil.CreateTestUser(t, pool, "helper")

	req, err := svc.CreateRequest(ctx, authorClerk, &assist.CreateRequestBody{
		Title:       "Flat tire outside Moab",
		Description: "Need a jack that can lift a skoolie",
		Category:    "mechanical",
	})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if req.Status != assist.StatusOpen {
		t.Fatalf("new request status = %s, want open", req.Status)
	}

	if _, err := svc.AddComment(ctx, helperClerk, req.ID, "I have one, heading over"); err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	comments, err := svc.ListComments(ctx, req.ID)
	if err != nil {
		t.Fatalf("ListComments: %v", err)
	}
	if len(comments) != 1 {
		t.Errorf("got %d comments, want 1", len(comments))
	}

	// Only the author resolves, and only once.
	if err := svc.Resolve(ctx, helperClerk, req.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("Resolve by non-author: err = %v, want ErrForbidden", err)
	}
	if err := svc.Resolve(ctx, authorClerk, req.ID); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if err := svc.Resolve(ctx, authorClerk, req.ID); !errors.Is(err, apperr.ErrInvalidState) {
		t.Errorf("double Resolve: err = %v, want ErrInvalidState", err)
	}

	got, err := svc.GetRequest(ctx, req.ID)
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	if got.Status != assist.StatusResolved || got.ResolvedAt == nil {
		t.Errorf("resolved request = %+v, want resolved with timestamp", got)
	}
}

func TestAssistRequestValidation(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, pool)

	ctx := context.Background()
	svc := NewAssistService(pool, NewNotificationService(pool))

	_, authorClerk := testutil.CreateTestUser(t, pool, "author")

	if _, err := svc.CreateRequest(ctx, authorClerk, &assist.CreateRequestBody{Title: "  "}); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("blank title: err = %v, want ErrInvalidArgument", err)
	}
}

func TestSOSFlagAndNearbyList(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, pool)

	ctx := context.Background()
	users := NewUserService(pool)
	svc := NewAssistService(pool, NewNotificationService(pool))

	stuckID, stuckClerk := testutil.CreateTestUser(t, pool, "stuck-nomad")

	if err := users.UpdateLocation(ctx, stuckClerk, sedonaLat, sedonaLng); err != nil {
		t.Fatalf("UpdateLocation: %v", err)
	}
	if err := svc.ActivateSOS(ctx, stuckClerk, "stuck in sand"); err != nil {
		t.Fatalf("ActivateSOS: %v", err)
	}

	alerts, err := svc.ListActiveSOS(ctx, flagstaffLat, flagstaffLng, 50)
	if err != nil {
		t.Fatalf("ListActiveSOS: %v", err)
	}
	found := false
	for _, a := range alerts {
		if a.UserID == stuckID {
			found = true
			if a.Note != "stuck in sand" {
				t.Errorf("alert note = %q", a.Note)
			}
			if a.DistanceKm < 30 || a.DistanceKm > 45 {
				t.Errorf("alert distance = %.1f km, want ~38", a.DistanceKm)
			}
		}
	}
	if !found {
		t.Fatal("active SOS missing from nearby list")
	}

	// Deactivation clears the flag from the map.
	if err := svc.DeactivateSOS(ctx, stuckClerk); err != nil {
		t.Fatalf("DeactivateSOS: %v", err)
	}
	alerts, err = svc.ListActiveSOS(ctx, flagstaffLat, flagstaffLng, 50)
	if err != nil {
		t.Fatalf("ListActiveSOS after deactivate: %v", err)
	}
	for _, a := range alerts {
		if a.UserID == stuckID {
			t.Error("deactivated SOS still listed")
		}
	}
}
