// Package route defines the Route aggregate: a named trip owning the
// manual waypoints and tracked samples captured while recording it.
package route

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/themainfun/waymark/internal/geo"
)

var (
	// ErrEmptyName is returned when a route or waypoint name is empty
	// or whitespace-only.
	ErrEmptyName = errors.New("name must not be empty")

	// ErrInvalidCoordinate is returned when a latitude or longitude is
	// outside WGS-84 bounds.
	ErrInvalidCoordinate = errors.New("coordinate out of range")
)

// validate checks coordinate bounds. Shared instance; validator.Validate
// is safe for concurrent use.
var validate = validator.New()

// coordinates is the validation target for any latitude/longitude pair.
type coordinates struct {
	Latitude  float64 `validate:"latitude"`
	Longitude float64 `validate:"longitude"`
}

// Route is a user-created trip record. It exclusively owns its waypoint
// and sample collections: a point belongs to exactly one route for its
// lifetime and is never reassigned.
//
// Waypoints keeps insertion order; Samples keeps creation order, which
// coincides with timestamp order while the sampler runs on a fixed
// interval. SamplesInOrder re-sorts by timestamp for consumers that
// need the traveled path.
type Route struct {
	ID          uuid.UUID
	Name        string
	Description string
	CreatedAt   time.Time
	Waypoints   []*RoutePoint
	Samples     []*LocationPoint
}

// RoutePoint is a user-annotated waypoint captured on demand during
// recording. Immutable after creation.
type RoutePoint struct {
	ID          uuid.UUID
	RouteID     uuid.UUID
	Name        string
	Description string
	Latitude    float64
	Longitude   float64
	CreatedAt   time.Time
}

// LocationPoint is an automatically sampled position captured at fixed
// intervals during recording.
type LocationPoint struct {
	ID         uuid.UUID
	RouteID    uuid.UUID
	Latitude   float64
	Longitude  float64
	RecordedAt time.Time
}

// New creates a route with a generated UUIDv7 ID.
//
// The name must be non-empty after trimming. Name and description are
// NFC-normalized so that equal-looking user input compares equal.
func New(name, description string) (*Route, error) {
	name = normalizeName(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	return &Route{
		ID:          uuid.Must(uuid.NewV7()),
		Name:        name,
		Description: norm.NFC.String(description),
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// AddWaypoint appends a manual waypoint at the given fix.
//
// Returns ErrEmptyName for a blank name and ErrInvalidCoordinate for an
// out-of-range fix. On success the point carries a back-reference to
// this route and is appended in insertion order.
func (r *Route) AddWaypoint(name, description string, fix geo.Fix) (*RoutePoint, error) {
	name = normalizeName(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	if err := checkCoordinates(fix); err != nil {
		return nil, err
	}
	p := &RoutePoint{
		ID:          uuid.Must(uuid.NewV7()),
		RouteID:     r.ID,
		Name:        name,
		Description: norm.NFC.String(description),
		Latitude:    fix.Latitude,
		Longitude:   fix.Longitude,
		CreatedAt:   time.Now().UTC(),
	}
	r.Waypoints = append(r.Waypoints, p)
	return p, nil
}

// AddSample appends a tracked sample recorded at the given time.
//
// Returns ErrInvalidCoordinate for an out-of-range fix.
func (r *Route) AddSample(fix geo.Fix, at time.Time) (*LocationPoint, error) {
	if err := checkCoordinates(fix); err != nil {
		return nil, err
	}
	p := &LocationPoint{
		ID:         uuid.Must(uuid.NewV7()),
		RouteID:    r.ID,
		Latitude:   fix.Latitude,
		Longitude:  fix.Longitude,
		RecordedAt: at.UTC(),
	}
	r.Samples = append(r.Samples, p)
	return p, nil
}

// SamplesInOrder returns the tracked samples sorted by recording time.
// The sort is stable, so samples with equal timestamps keep creation
// order. The receiver's slice is not modified.
func (r *Route) SamplesInOrder() []*LocationPoint {
	out := make([]*LocationPoint, len(r.Samples))
	copy(out, r.Samples)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RecordedAt.Before(out[j].RecordedAt)
	})
	return out
}

// Summary is a lightweight projection for route listings.
type Summary struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Waypoints int       `json:"waypoints"`
	Samples   int       `json:"samples"`
}

func normalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

func checkCoordinates(fix geo.Fix) error {
	if err := validate.Struct(coordinates{Latitude: fix.Latitude, Longitude: fix.Longitude}); err != nil {
		return fmt.Errorf("%w: lat=%v lon=%v", ErrInvalidCoordinate, fix.Latitude, fix.Longitude)
	}
	return nil
}
