package store

import (
	"context"
	"fmt"
	"time"

	"github.com/themainfun/waymark/internal/route"
)

// timeFormat is the stored timestamp encoding. RFC 3339 UTC with
// nanoseconds keeps lexicographic order equal to chronological order.
const timeFormat = time.RFC3339Nano

// SaveRoute inserts a route row.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - saving the same
// route twice is silently ignored. Points are written separately via
// AppendWaypoint/AppendSample as they are captured.
func (s *Store) SaveRoute(ctx context.Context, r *route.Route) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO routes (id, name, description, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		r.ID.String(),
		r.Name,
		r.Description,
		r.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("save route: %w", err)
	}

	return nil
}

// AppendWaypoint inserts a manual waypoint row.
// Append-only: waypoints are immutable after creation, so there is no
// update path. The route referenced by RouteID must exist (foreign key
// constraint).
func (s *Store) AppendWaypoint(ctx context.Context, p *route.RoutePoint) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO route_points (id, route_id, name, description, latitude, longitude, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		p.ID.String(),
		p.RouteID.String(),
		p.Name,
		p.Description,
		p.Latitude,
		p.Longitude,
		p.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("append waypoint: %w", err)
	}

	return nil
}

// AppendSample inserts a tracked sample row.
// Append-only, same contract as AppendWaypoint.
func (s *Store) AppendSample(ctx context.Context, p *route.LocationPoint) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO location_points (id, route_id, latitude, longitude, recorded_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		p.ID.String(),
		p.RouteID.String(),
		p.Latitude,
		p.Longitude,
		p.RecordedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("append sample: %w", err)
	}

	return nil
}

// DeleteRoute removes a route and all points it owns.
//
// The children are deleted explicitly before the route row, all inside
// one transaction, so a confirmed deletion never leaves orphan points
// regardless of foreign-key cascade settings.
//
// Returns ErrRouteNotFound if the route does not exist.
func (s *Store) DeleteRoute(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete route: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `DELETE FROM route_points WHERE route_id = ?`, id); err != nil {
		return fmt.Errorf("delete route: waypoints: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM location_points WHERE route_id = ?`, id); err != nil {
		return fmt.Errorf("delete route: samples: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM routes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete route: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete route: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("delete route %s: %w", id, ErrRouteNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete route: commit: %w", err)
	}

	return nil
}
