// Package testutil holds shared helpers for DB-backed tests. Tests that need
// a database skip themselves when neither TEST_DATABASE_URL nor DATABASE_URL
// is set.
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SetupTestDB returns a pool against the test database, or skips the test.
func SetupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL or DATABASE_URL not set, skipping DB test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("Failed to ping test database: %v", err)
	}

	return pool
}

// CleanupTestDB removes rows created through CreateTestUser and closes the
// pool. Child rows go with the users via ON DELETE CASCADE.
func CleanupTestDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()
	_, err := pool.Exec(ctx, "DELETE FROM users WHERE email LIKE 'test%@example.com'")
	if err != nil {
		t.Logf("Warning: failed to cleanup test data: %v", err)
	}
	pool.Close()
}

// CreateTestUser inserts a user with a unique clerk id and returns its ids.
func CreateTestUser(t *testing.T, pool *pgxpool.Pool, username string) (uuid.UUID, string) {
	t.Helper()

	clerkID := "user_test_" + uuid.NewString()
	email := fmt.Sprintf("test+%s@example.com", uuid.NewString()[:8])

	var id uuid.UUID
	err := pool.QueryRow(context.Background(), `
		INSERT INTO users (clerk_id, email, username)
		VALUES ($1, $2, $3)
		RETURNING id
	`, clerkID, email, username).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return id, clerkID
}

// SetTestUserLocation writes coordinates directly, bypassing the service.
func SetTestUserLocation(t *testing.T, pool *pgxpool.Pool, userID uuid.UUID, lat, lng float64) {
	t.Helper()

	_, err := pool.Exec(context.Background(), `
		UPDATE users SET latitude = $2, longitude = $3, location_updated_at = NOW()
		WHERE id = $1
	`, userID, lat, lng)
	if err != nil {
		t.Fatalf("Failed to set test user location: %v", err)
	}
}

// GenerateMockClerkJWT signs a throwaway token carrying the given subject.
// It is not verifiable against Clerk; use it only where the middleware is
// bypassed or stubbed.
func GenerateMockClerkJWT(clerkID string) (string, error) {
	secretKey := []byte("test-secret-key-for-testing-only")

	claims := jwt.MapClaims{
		"sub": clerkID,
		"iss": "https://clerk.test",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour * 24).Unix(),
		"azp": "test-app-id",
		"sid": "sess_test123",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}
