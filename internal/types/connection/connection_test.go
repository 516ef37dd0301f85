package connection

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestResolve(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()

	row := func(status Status) *Connection {
		return &Connection{
			ID:          uuid.New(),
			RequesterID: alice,
			TargetID:    bob,
			Status:      status,
			CreatedAt:   time.Now(),
			UpdatedAt:   time.Now(),
		}
	}

	tests := []struct {
		name   string
		conn   *Connection
		viewer uuid.UUID
		want   ViewStatus
	}{
		{"nil row", nil, alice, ViewNone},
		{"rejected reads as none for requester", row(StatusRejected), alice, ViewNone},
		{"rejected reads as none for target", row(StatusRejected), bob, ViewNone},
		{"pending from requester side", row(StatusPending), alice, ViewPendingSent},
		{"pending from target side", row(StatusPending), bob, ViewPendingReceived},
		{"accepted from requester side", row(StatusAccepted), alice, ViewFriends},
		{"accepted from target side", row(StatusAccepted), bob, ViewFriends},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.conn, tt.viewer); got != tt.want {
				t.Errorf("Resolve() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolveAcceptedSymmetric(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	conn := &Connection{RequesterID: alice, TargetID: bob, Status: StatusAccepted}

	if Resolve(conn, alice) != Resolve(conn, bob) {
		t.Error("accepted connection must read the same from both sides")
	}
}
