package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/themainfun/waymark/internal/route"
)

// ListRoutes returns summaries of all stored routes, newest first
// (created_at DESC), each with its point counts.
//
// Returns an empty slice (not nil) when the store is empty.
func (s *Store) ListRoutes(ctx context.Context) ([]route.Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.name, r.created_at,
		       (SELECT COUNT(*) FROM route_points    WHERE route_id = r.id),
		       (SELECT COUNT(*) FROM location_points WHERE route_id = r.id)
		FROM routes r
		ORDER BY r.created_at DESC, r.id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	defer rows.Close()

	summaries := []route.Summary{}
	for rows.Next() {
		var (
			id, name, createdAt string
			waypoints, samples  int
		)
		if err := rows.Scan(&id, &name, &createdAt, &waypoints, &samples); err != nil {
			return nil, fmt.Errorf("scan route summary: %w", err)
		}

		routeID, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parse route id %q: %w", id, err)
		}
		created, err := parseStoredTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("route %s: %w", id, err)
		}

		summaries = append(summaries, route.Summary{
			ID:        routeID,
			Name:      name,
			CreatedAt: created,
			Waypoints: waypoints,
			Samples:   samples,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate routes: %w", err)
	}

	return summaries, nil
}

// GetRoute loads a full route aggregate: the route row, its waypoints
// in insertion order, and its samples ordered by recording time.
//
// Returns ErrRouteNotFound if the ID does not exist.
func (s *Store) GetRoute(ctx context.Context, id string) (*route.Route, error) {
	r := &route.Route{}

	var routeID, name, description, createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, created_at
		FROM routes
		WHERE id = ?
	`, id).Scan(&routeID, &name, &description, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get route %s: %w", id, ErrRouteNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get route: %w", err)
	}

	r.ID, err = uuid.Parse(routeID)
	if err != nil {
		return nil, fmt.Errorf("parse route id %q: %w", routeID, err)
	}
	r.Name = name
	r.Description = description
	r.CreatedAt, err = parseStoredTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("route %s: %w", id, err)
	}

	if r.Waypoints, err = s.readWaypoints(ctx, r.ID); err != nil {
		return nil, err
	}
	if r.Samples, err = s.readSamples(ctx, r.ID); err != nil {
		return nil, err
	}

	return r, nil
}

// readWaypoints returns a route's waypoints in insertion order (rowid).
func (s *Store) readWaypoints(ctx context.Context, routeID uuid.UUID) ([]*route.RoutePoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, latitude, longitude, created_at
		FROM route_points
		WHERE route_id = ?
		ORDER BY rowid ASC
	`, routeID.String())
	if err != nil {
		return nil, fmt.Errorf("query waypoints: %w", err)
	}
	defer rows.Close()

	var points []*route.RoutePoint
	for rows.Next() {
		var (
			id, name, description, createdAt string
			lat, lon                         float64
		)
		if err := rows.Scan(&id, &name, &description, &lat, &lon, &createdAt); err != nil {
			return nil, fmt.Errorf("scan waypoint: %w", err)
		}

		p := &route.RoutePoint{
			RouteID:     routeID,
			Name:        name,
			Description: description,
			Latitude:    lat,
			Longitude:   lon,
		}
		if p.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse waypoint id %q: %w", id, err)
		}
		if p.CreatedAt, err = parseStoredTime(createdAt); err != nil {
			return nil, fmt.Errorf("waypoint %s: %w", id, err)
		}
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate waypoints: %w", err)
	}

	return points, nil
}

// readSamples returns a route's samples ordered by recording time, with
// rowid as tiebreaker for equal timestamps.
func (s *Store) readSamples(ctx context.Context, routeID uuid.UUID) ([]*route.LocationPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, latitude, longitude, recorded_at
		FROM location_points
		WHERE route_id = ?
		ORDER BY recorded_at ASC, rowid ASC
	`, routeID.String())
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var points []*route.LocationPoint
	for rows.Next() {
		var (
			id, recordedAt string
			lat, lon       float64
		)
		if err := rows.Scan(&id, &lat, &lon, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}

		p := &route.LocationPoint{
			RouteID:   routeID,
			Latitude:  lat,
			Longitude: lon,
		}
		if p.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse sample id %q: %w", id, err)
		}
		if p.RecordedAt, err = parseStoredTime(recordedAt); err != nil {
			return nil, fmt.Errorf("sample %s: %w", id, err)
		}
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}

	return points, nil
}

func parseStoredTime(value string) (time.Time, error) {
	t, err := time.Parse(timeFormat, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", value, err)
	}
	return t, nil
}
