package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/themainfun/waymark/internal/geo"
	"github.com/themainfun/waymark/internal/route"
)

// fakeBackend counts and captures requests per collection and can fail
// a chosen path.
type fakeBackend struct {
	mu       sync.Mutex
	requests map[string][][]byte
	failPath string
	routeID  string
}

func newFakeBackend(routeID string) *fakeBackend {
	return &fakeBackend{requests: map[string][][]byte{}, routeID: routeID}
}

func (b *fakeBackend) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		b.mu.Lock()
		b.requests[r.URL.Path] = append(b.requests[r.URL.Path], body)
		fail := b.failPath == r.URL.Path
		b.mu.Unlock()

		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"message": "boom"})
			return
		}

		switch r.URL.Path {
		case "/rest/v1/routes":
			assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
			json.NewEncoder(w).Encode(routeRow{ID: b.routeID, Name: "echoed"})
		default:
			w.WriteHeader(http.StatusCreated)
		}
	})
}

func (b *fakeBackend) count(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests[path])
}

func (b *fakeBackend) last(path string) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	reqs := b.requests[path]
	if len(reqs) == 0 {
		return nil
	}
	return reqs[len(reqs)-1]
}

func signedInClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c := NewClient(baseURL, "anon-key")
	session := testSession()
	c.Resume(&session)
	return c
}

func buildAggregate(t *testing.T, waypoints, samples int) *route.Route {
	t.Helper()
	r, err := route.New("Test Route", "around the lake")
	require.NoError(t, err)

	for i := 0; i < waypoints; i++ {
		_, err := r.AddWaypoint("P1", "", geo.Fix{Latitude: 0, Longitude: 2})
		require.NoError(t, err)
	}
	base := time.Date(2025, 9, 5, 12, 0, 0, 0, time.UTC)
	for i := 0; i < samples; i++ {
		_, err := r.AddSample(geo.Fix{Latitude: 0, Longitude: float64(i)}, base.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}
	return r
}

func TestPublish_Success(t *testing.T) {
	backend := newFakeBackend("remote-route-1")
	srv := httptest.NewServer(backend.handler(t))
	defer srv.Close()

	c := signedInClient(t, srv.URL)
	r := buildAggregate(t, 1, 3)

	receipt, err := c.Publish(context.Background(), r)
	require.NoError(t, err)

	assert.Equal(t, "remote-route-1", receipt.RouteID)
	assert.Equal(t, 1, receipt.Waypoints)
	assert.Equal(t, 3, receipt.Samples)

	assert.Equal(t, 1, backend.count("/rest/v1/routes"))
	assert.Equal(t, 1, backend.count("/rest/v1/route_points"), "single batched insert")
	assert.Equal(t, 1, backend.count("/rest/v1/location_points"), "single batched insert")

	// Route payload carries the submitted name/description and owner.
	var sent routeInsert
	require.NoError(t, json.Unmarshal(backend.last("/rest/v1/routes"), &sent))
	assert.Equal(t, "Test Route", sent.Name)
	assert.Equal(t, "around the lake", sent.Description)
	assert.Equal(t, "c34048ff-b223-48bb-81d6-6589dea8c5bd", sent.OwnerID)

	// Children are tagged with the server-assigned parent ID.
	var points []waypointInsert
	require.NoError(t, json.Unmarshal(backend.last("/rest/v1/route_points"), &points))
	require.Len(t, points, 1)
	assert.Equal(t, "remote-route-1", points[0].RouteID)

	var locs []sampleInsert
	require.NoError(t, json.Unmarshal(backend.last("/rest/v1/location_points"), &locs))
	require.Len(t, locs, 3)
	assert.Equal(t, "2025-09-05T12:00:00Z", locs[0].RecordedAt, "RFC 3339 UTC timestamps")
	assert.Equal(t, "2025-09-05T12:00:02Z", locs[2].RecordedAt)
}

func TestPublish_SkipsEmptyCollections(t *testing.T) {
	backend := newFakeBackend("remote-route-2")
	srv := httptest.NewServer(backend.handler(t))
	defer srv.Close()

	c := signedInClient(t, srv.URL)
	r := buildAggregate(t, 0, 0)

	receipt, err := c.Publish(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "remote-route-2", receipt.RouteID)

	assert.Equal(t, 1, backend.count("/rest/v1/routes"))
	assert.Zero(t, backend.count("/rest/v1/route_points"), "no batch for an empty collection")
	assert.Zero(t, backend.count("/rest/v1/location_points"))
}

// Step 1 succeeds, step 2 fails: overall failure, remote route exists,
// no rollback, zero route_points accepted.
func TestPublish_PartialFailureLeavesRoute(t *testing.T) {
	backend := newFakeBackend("remote-route-3")
	backend.failPath = "/rest/v1/route_points"
	srv := httptest.NewServer(backend.handler(t))
	defer srv.Close()

	c := signedInClient(t, srv.URL)
	r := buildAggregate(t, 2, 0)

	_, err := c.Publish(context.Background(), r)
	require.Error(t, err)

	var pe *PublishError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, StepRoutePoints, pe.Step)
	assert.NotContains(t, pe.Error(), string(StepRoutePoints),
		"user-facing message does not name the failed step")

	assert.Equal(t, 1, backend.count("/rest/v1/routes"), "remote route was created")
	assert.Equal(t, 1, backend.count("/rest/v1/route_points"), "the failed attempt")
	// No delete/rollback call of any kind.
	assert.Len(t, backend.requests, 2)
}

func TestPublish_CreateRouteFailure(t *testing.T) {
	backend := newFakeBackend("unused")
	backend.failPath = "/rest/v1/routes"
	srv := httptest.NewServer(backend.handler(t))
	defer srv.Close()

	c := signedInClient(t, srv.URL)
	r := buildAggregate(t, 1, 1)

	_, err := c.Publish(context.Background(), r)
	require.Error(t, err)

	var pe *PublishError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, StepCreateRoute, pe.Step)

	assert.Zero(t, backend.count("/rest/v1/route_points"), "children not attempted without a parent id")
	assert.Zero(t, backend.count("/rest/v1/location_points"))
}

func TestPublish_MissingEchoedID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"name": "no id here"})
	}))
	defer srv.Close()

	c := signedInClient(t, srv.URL)
	r := buildAggregate(t, 0, 0)

	_, err := c.Publish(context.Background(), r)
	require.Error(t, err)
	var pe *PublishError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, StepCreateRoute, pe.Step)
}

func TestPublish_RequiresSession(t *testing.T) {
	c := NewClient("http://unused", "anon-key")
	r := buildAggregate(t, 0, 0)

	_, err := c.Publish(context.Background(), r)
	assert.ErrorIs(t, err, ErrNotSignedIn)
}

func TestPublish_SamplesSentInTimestampOrder(t *testing.T) {
	backend := newFakeBackend("remote-route-4")
	srv := httptest.NewServer(backend.handler(t))
	defer srv.Close()

	c := signedInClient(t, srv.URL)

	r, err := route.New("Out of order", "")
	require.NoError(t, err)
	base := time.Date(2025, 9, 5, 12, 0, 0, 0, time.UTC)
	_, err = r.AddSample(geo.Fix{Latitude: 0, Longitude: 1}, base.Add(time.Second))
	require.NoError(t, err)
	_, err = r.AddSample(geo.Fix{Latitude: 0, Longitude: 0}, base)
	require.NoError(t, err)

	_, err = c.Publish(context.Background(), r)
	require.NoError(t, err)

	var locs []sampleInsert
	require.NoError(t, json.Unmarshal(backend.last("/rest/v1/location_points"), &locs))
	require.Len(t, locs, 2)
	assert.Equal(t, 0.0, locs[0].Longitude, "earliest sample first")
	assert.Equal(t, 1.0, locs[1].Longitude)
}

// Golden file for the exact request bodies the pipeline produces.
func TestPublish_PayloadsGolden(t *testing.T) {
	r, err := route.New("Test Route", "around the lake")
	require.NoError(t, err)
	_, err = r.AddWaypoint("P1", "old fountain", geo.Fix{Latitude: 0, Longitude: 2})
	require.NoError(t, err)

	base := time.Date(2025, 9, 5, 12, 0, 0, 0, time.UTC)
	for i, lon := range []float64{0, 1, 2} {
		_, err := r.AddSample(geo.Fix{Latitude: 0, Longitude: lon}, base.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}

	payloads := struct {
		Route          routeInsert      `json:"route"`
		RoutePoints    []waypointInsert `json:"route_points"`
		LocationPoints []sampleInsert   `json:"location_points"`
	}{
		Route:          buildRouteInsert(r, "c34048ff-b223-48bb-81d6-6589dea8c5bd"),
		RoutePoints:    buildWaypointRows(r, "remote-route-1"),
		LocationPoints: buildSampleRows(r, "remote-route-1"),
	}

	data, err := json.MarshalIndent(payloads, "", "  ")
	require.NoError(t, err)

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"))
	g.Assert(t, "publish_payloads", data)
}
