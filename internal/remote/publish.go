package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/themainfun/waymark/internal/route"
)

// routeInsert is the create-route request row.
type routeInsert struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	OwnerID     string `json:"owner_id"`
}

// routeRow is the server's echo of a created route.
type routeRow struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
	OwnerID     string `json:"owner_id"`
}

// waypointInsert is one row of the route_points batch.
type waypointInsert struct {
	RouteID     string  `json:"route_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// sampleInsert is one row of the location_points batch. RecordedAt is
// ISO-8601 (RFC 3339) UTC.
type sampleInsert struct {
	RouteID    string  `json:"route_id"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	RecordedAt string  `json:"recorded_at"`
}

// PublishReceipt reports what a successful publish created remotely.
type PublishReceipt struct {
	RouteID   string `json:"route_id"`
	Waypoints int    `json:"waypoints"`
	Samples   int    `json:"samples"`
}

// Publish mirrors a local route aggregate to the backend.
//
// The write sequence is create-then-attach-children:
//
//  1. Create the route row; the server must echo its assigned ID.
//  2. If the route has waypoints, batch-insert them all, tagged with
//     the returned ID.
//  3. If the route has samples, batch-insert them all (timestamp order,
//     RFC 3339 recorded_at), tagged with the returned ID.
//
// Steps 2 and 3 are attempted unconditionally when their collections
// are non-empty. The sequence is NOT transactional: a failure after
// step 1 returns *PublishError but the remote route row stays in place
// without some or all of its points, and no rollback is attempted.
// Known limitation, preserved deliberately; callers that care can
// delete the remote route out of band.
//
// Requires a signed-in session (ErrNotSignedIn otherwise). The reported
// error never names the failed step; logs carry that detail.
func (c *Client) Publish(ctx context.Context, r *route.Route) (*PublishReceipt, error) {
	session := c.CurrentSession()
	if session == nil {
		return nil, ErrNotSignedIn
	}

	created, err := c.createRoute(ctx, r, session.User.ID)
	if err != nil {
		slog.Error("publish step failed", "step", StepCreateRoute, "route", r.Name, "error", err)
		return nil, &PublishError{Step: StepCreateRoute, Err: err}
	}
	slog.Info("remote route created", "route_id", created.ID, "route", r.Name)

	if len(r.Waypoints) > 0 {
		if err := c.insertWaypoints(ctx, r, created.ID); err != nil {
			slog.Error("publish step failed", "step", StepRoutePoints, "route_id", created.ID, "error", err)
			return nil, &PublishError{Step: StepRoutePoints, Err: err}
		}
		slog.Info("waypoints published", "route_id", created.ID, "count", len(r.Waypoints))
	}

	if len(r.Samples) > 0 {
		if err := c.insertSamples(ctx, r, created.ID); err != nil {
			slog.Error("publish step failed", "step", StepLocationPoints, "route_id", created.ID, "error", err)
			return nil, &PublishError{Step: StepLocationPoints, Err: err}
		}
		slog.Info("samples published", "route_id", created.ID, "count", len(r.Samples))
	}

	return &PublishReceipt{
		RouteID:   created.ID,
		Waypoints: len(r.Waypoints),
		Samples:   len(r.Samples),
	}, nil
}

// createRoute performs step 1 and returns the server's route row.
func (c *Client) createRoute(ctx context.Context, r *route.Route, ownerID string) (*routeRow, error) {
	// Ask PostgREST for the created row back as a single object.
	header := http.Header{}
	header.Set("Prefer", "return=representation")
	header.Set("Accept", "application/vnd.pgrst.object+json")

	payload, err := c.do(ctx, http.MethodPost, c.baseURL+"/rest/v1/routes", buildRouteInsert(r, ownerID), header)
	if err != nil {
		return nil, err
	}

	var created routeRow
	if err := json.Unmarshal(payload, &created); err != nil {
		return nil, fmt.Errorf("decode created route: %w", err)
	}
	if created.ID == "" {
		return nil, fmt.Errorf("server did not echo a route id")
	}
	return &created, nil
}

// insertWaypoints performs step 2 as a single batched insert.
func (c *Client) insertWaypoints(ctx context.Context, r *route.Route, routeID string) error {
	_, err := c.do(ctx, http.MethodPost, c.baseURL+"/rest/v1/route_points", buildWaypointRows(r, routeID), nil)
	return err
}

// insertSamples performs step 3 as a single batched insert.
func (c *Client) insertSamples(ctx context.Context, r *route.Route, routeID string) error {
	_, err := c.do(ctx, http.MethodPost, c.baseURL+"/rest/v1/location_points", buildSampleRows(r, routeID), nil)
	return err
}

func buildRouteInsert(r *route.Route, ownerID string) routeInsert {
	return routeInsert{
		Name:        r.Name,
		Description: r.Description,
		OwnerID:     ownerID,
	}
}

func buildWaypointRows(r *route.Route, routeID string) []waypointInsert {
	rows := make([]waypointInsert, 0, len(r.Waypoints))
	for _, p := range r.Waypoints {
		rows = append(rows, waypointInsert{
			RouteID:     routeID,
			Name:        p.Name,
			Description: p.Description,
			Latitude:    p.Latitude,
			Longitude:   p.Longitude,
		})
	}
	return rows
}

func buildSampleRows(r *route.Route, routeID string) []sampleInsert {
	ordered := r.SamplesInOrder()
	rows := make([]sampleInsert, 0, len(ordered))
	for _, p := range ordered {
		rows = append(rows, sampleInsert{
			RouteID:    routeID,
			Latitude:   p.Latitude,
			Longitude:  p.Longitude,
			RecordedAt: p.RecordedAt.UTC().Format(time.RFC3339),
		})
	}
	return rows
}
