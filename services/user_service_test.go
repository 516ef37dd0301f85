package services

import (
	"context"
	"errors"
	"testing"

	"nomadlinkAPI/internal/apperr"
	"nomadlinkAPI/internal/testutil"
	"nomadlinkAPI/internal/types/nomad"
)

func TestUpdateProfilePartial(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, pool)

	ctx := context.Background()
	users := NewUserService(pool)

	_, clerkID := testutil.CreateTestUser(t, pool, "dusty")

	n, err := users.UpdateProfileByClerkID(ctx, clerkID, &nomad.UpdateProfileRequest{
		Bio: "three years on the road",
		Rig: "sprinter 144",
	})
	if err != nil {
		t.Fatalf("UpdateProfileByClerkID: %v", err)
	}
	if n.Bio != "three years on the road" || n.Rig != "sprinter 144" {
		t.Errorf("profile = %+v", n)
	}
	// Empty fields in a later update keep the stored values.
	n, err = users.UpdateProfileByClerkID(ctx, clerkID, &nomad.UpdateProfileRequest{
		Bio: "four years on the road",
	})
	if err != nil {
		t.Fatalf("UpdateProfileByClerkID (second): %v", err)
	}
	if n.Rig != "sprinter 144" {
		t.Errorf("rig overwritten by empty field: %q", n.Rig)
	}
	if n.Bio != "four years on the road" {
		t.Errorf("bio = %q", n.Bio)
	}
}

func TestPublicProfileRelationship(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, pool)

	ctx := context.Background()
	users := NewUserService(pool)
	connections := NewConnectionService(pool, NewNotificationService(pool))

	_, aliceClerk := testutil.CreateTestUser(t, pool, "alice")
	bobID, bobClerk := testutil.CreateTestUser(t, pool, "bob")

	profile, err := users.GetPublicProfile(ctx, aliceClerk, bobID)
	if err != nil {
		t.Fatalf("GetPublicProfile: %v", err)
	}
	if profile.ConnectionStatus != "none" {
		t.Errorf("status = %s, want none", profile.ConnectionStatus)
	}
	if profile.Nomad.Email != "" {
		t.Error("email leaked in public profile")
	}

	conn, err := connections.SendRequest(ctx, aliceClerk, bobID)
	if err != nil {
		t.Fatalf("SendRequest: %v", err)
	}

	profile, err = users.GetPublicProfile(ctx, aliceClerk, bobID)
	if err != nil {
		t.Fatalf("GetPublicProfile (pending): %v", err)
	}
	if profile.ConnectionStatus != "pending_sent" {
		t.Errorf("status = %s, want pending_sent", profile.ConnectionStatus)
	}

	if err := connections.Accept(ctx, conn.ID, bobClerk); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	profile, err = users.GetPublicProfile(ctx, aliceClerk, bobID)
	if err != nil {
		t.Fatalf("GetPublicProfile (friends): %v", err)
	}
	if profile.ConnectionStatus != "friends" {
		t.Errorf("status = %s, want friends", profile.ConnectionStatus)
	}
}

func TestDeleteAccountSoftRetention(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, pool)

	ctx := context.Background()
	users := NewUserService(pool)
	proximity := NewProximityService(pool)

	deletedID, deletedClerk := testutil.CreateTestUser(t, pool, "leaving")
	_, viewerClerk := testutil.CreateTestUser(t, pool, "staying")

	if err := users.UpdateLocation(ctx, deletedClerk, sedonaLat, sedonaLng); err != nil {
		t.Fatalf("UpdateLocation: %v", err)
	}
	if err := users.DeleteByClerkID(ctx, deletedClerk); err != nil {
		t.Fatalf("DeleteByClerkID: %v", err)
	}

	// Gone from auth-facing lookups and from proximity results.
	if _, err := users.GetByClerkID(ctx, deletedClerk); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetByClerkID after delete: err = %v, want ErrNotFound", err)
	}
	results, err := proximity.FindNearby(ctx, viewerClerk, sedonaLat, sedonaLng, 50, 0)
	if err != nil {
		t.Fatalf("FindNearby: %v", err)
	}
	for _, r := range results {
		if r.Nomad.ID == deletedID {
			t.Error("deleted user still in proximity results")
		}
	}

	// Deleting twice finds nothing.
	if err := users.DeleteByClerkID(ctx, deletedClerk); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete: err = %v, want ErrNotFound", err)
	}
}

func TestSearchNomads(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, pool)

	ctx := context.Background()
	users := NewUserService(pool)

	_, viewerClerk := testutil.CreateTestUser(t, pool, "searcher")
	testutil.CreateTestUser(t, pool, "DesertDrifter")

	results, err := users.SearchNomads(ctx, viewerClerk, "desertdrift", 0)
	if err != nil {
		t.Fatalf("SearchNomads: %v", err)
	}
	found := false
	for _, n := range results {
		if n.Username == "DesertDrifter" {
			found = true
		}
		if n.Username == "searcher" {
			t.Error("viewer included in search results")
		}
	}
	if !found {
		t.Error("case-insensitive match missing from results")
	}
}

func TestQRInvite(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, pool)

	ctx := context.Background()
	users := NewUserService(pool)

	userID, clerkID := testutil.CreateTestUser(t, pool, "qr-nomad")

	invite, err := users.QRInvite(ctx, clerkID)
	if err != nil {
		t.Fatalf("QRInvite: %v", err)
	}
	want := "nomadlink://connect/" + userID.String()
	if invite.InviteURL != want {
		t.Errorf("invite URL = %q, want %q", invite.InviteURL, want)
	}
	if invite.QRCodeBase64 == "" {
		t.Error("QR code payload is empty")
	}
}
