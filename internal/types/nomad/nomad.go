package nomad

import (
	"time"

	"github.com/google/uuid"
)

// Nomad is a user of the app. Coordinates are nullable: a nomad who never
// shared a location simply does not appear in proximity results.
type Nomad struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	ClerkID           string     `json:"-" db:"clerk_id"`
	Email             string     `json:"email,omitempty" db:"email"`
	Username          string     `json:"username" db:"username"`
	FirstName         string     `json:"first_name" db:"first_name"`
	LastName          string     `json:"last_name" db:"last_name"`
	ImageURL          string     `json:"image_url" db:"image_url"`
	Bio               string     `json:"bio" db:"bio"`
	Rig               string     `json:"rig" db:"rig"`
	Latitude          *float64   `json:"latitude,omitempty" db:"latitude"`
	Longitude         *float64   `json:"longitude,omitempty" db:"longitude"`
	LocationUpdatedAt *time.Time `json:"location_updated_at,omitempty" db:"location_updated_at"`
	SOSActive         bool       `json:"sos_active" db:"sos_active"`
	SOSNote           string     `json:"sos_note,omitempty" db:"sos_note"`
	LastActiveAt      time.Time  `json:"last_active_at" db:"last_active_at"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

type CreateNomadRequest struct {
	ClerkID   string
	Email     string
	Username  string
	FirstName string
	LastName  string
	ImageURL  string
}

// UpdateProfileRequest carries partial updates; empty fields are kept as-is.
type UpdateProfileRequest struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	ImageURL  string `json:"image_url"`
	Bio       string `json:"bio"`
	Rig       string `json:"rig"`
}

type UpdateLocationRequest struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// NearbyNomad is one proximity result: a nomad and the great-circle
// distance from the query point, in km.
type NearbyNomad struct {
	Nomad      *Nomad  `json:"user"`
	DistanceKm float64 `json:"distance_km"`
}

// PublicProfile is what another nomad sees, including the relationship
// from the viewer's side.
type PublicProfile struct {
	Nomad            *Nomad `json:"user"`
	ConnectionStatus string `json:"connection_status"`
	IsBlocked        bool   `json:"is_blocked"`
}

type QRInviteResponse struct {
	InviteURL    string `json:"invite_url"`
	QRCodeBase64 string `json:"qr_code_base64"`
}
