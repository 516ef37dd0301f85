package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"

	"nomadlinkAPI/internal/geo"
	"nomadlinkAPI/internal/types/nomad"
)

const (
	DefaultNearbyRadiusKm = 50.0
	DefaultNearbyLimit    = 20
	maxNearbyLimit        = 100
)

type ProximityService struct {
	db *pgxpool.Pool
}

func NewProximityService(db *pgxpool.Pool) *ProximityService {
	return &ProximityService{db: db}
}

// FindNearby returns nomads with known coordinates ranked by great-circle
// distance from the query point, nearest first. viewerClerkID may be empty
// (anonymous query); when set, the viewer is excluded from their own results.
// Zero matches is an empty slice, not an error.
func (s *ProximityService) FindNearby(ctx context.Context, viewerClerkID string, lat, lng, radiusKm float64, limit int) ([]*nomad.NearbyNomad, error) {
	if err := geo.ValidateCoordinates(lat, lng); err != nil {
		return nil, err
	}
	if radiusKm <= 0 {
		radiusKm = DefaultNearbyRadiusKm
	}
	if limit < 1 || limit > maxNearbyLimit {
		limit = DefaultNearbyLimit
	}

	query := `SELECT ` + nomadColumns + `
	FROM users
	WHERE deleted = FALSE
	  AND latitude IS NOT NULL
	  AND longitude IS NOT NULL
	  AND clerk_id <> $1
	`

	rows, err := s.db.Query(ctx, query, viewerClerkID)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	results := []*nomad.NearbyNomad{}
	for rows.Next() {
		n, err := scanNomad(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}

		d := geo.DistanceKm(lat, lng, *n.Latitude, *n.Longitude)
		if d > radiusKm {
			continue
		}
		n.Email = ""
		results = append(results, &nomad.NearbyNomad{Nomad: n, DistanceKm: d})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candidates: %w", err)
	}

	// Equal distances order by user id so results are deterministic.
	sort.Slice(results, func(i, j int) bool {
		if results[i].DistanceKm != results[j].DistanceKm {
			return results[i].DistanceKm < results[j].DistanceKm
		}
		return results[i].Nomad.ID.String() < results[j].Nomad.ID.String()
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
