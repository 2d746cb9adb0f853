package cli

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordedRoute records a small fixture route and returns its local id.
func recordedRoute(t *testing.T) string {
	t.Helper()
	track := "0,0\n0,1\nwp:P1:old fountain\n"
	_, err := runCLI(t, track, "record", "Lake loop", "--track", "-")
	require.NoError(t, err)

	listOut, err := runCLI(t, "", "routes", "--format", "json")
	require.NoError(t, err)
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(listOut), &resp))
	rows := resp.Data.([]any)
	require.Len(t, rows, 1)
	return rows[0].(map[string]any)["id"].(string)
}

// signIn caches a session against the given backend.
func signIn(t *testing.T) {
	t.Helper()
	_, err := runCLI(t, "", "login", "rider@example.com", "--password", "s3cret")
	require.NoError(t, err)
}

func publishBackend(t *testing.T) (*httptest.Server, *sync.Map) {
	t.Helper()
	var hits sync.Map
	server := withBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := 0
		if v, ok := hits.Load(r.URL.Path); ok {
			count = v.(int)
		}
		hits.Store(r.URL.Path, count+1)

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/auth/v1/token":
			_, _ = w.Write([]byte(`{"access_token":"tok-1","user":{"id":"owner-1","email":"rider@example.com"}}`))
		case "/rest/v1/routes":
			require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"id":"remote-route-1","name":"Lake loop","owner_id":"owner-1"}`))
		case "/rest/v1/route_points", "/rest/v1/location_points":
			require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`[]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	return server, &hits
}

func TestPublishCommand_EndToEnd(t *testing.T) {
	testEnv(t)
	_, hits := publishBackend(t)

	id := recordedRoute(t)
	signIn(t)

	out, err := runCLI(t, "", "publish", id)
	require.NoError(t, err)
	assert.Contains(t, out, `Published "Lake loop" as remote-route-1 (1 waypoints, 2 samples).`)

	for _, path := range []string{"/rest/v1/routes", "/rest/v1/route_points", "/rest/v1/location_points"} {
		v, ok := hits.Load(path)
		require.True(t, ok, "expected a request to %s", path)
		assert.Equal(t, 1, v, path)
	}
}

func TestPublishCommand_NotSignedIn(t *testing.T) {
	testEnv(t)
	publishBackend(t)

	id := recordedRoute(t)

	_, err := runCLI(t, "", "publish", id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not signed in: run waymark login first")
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestPublishCommand_UnknownRoute(t *testing.T) {
	testEnv(t)
	publishBackend(t)
	signIn(t)

	_, err := runCLI(t, "", "publish", "no-such-route")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "route not found")
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestPublishCommand_StepFailureIsFlat(t *testing.T) {
	testEnv(t)
	withBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/auth/v1/token":
			_, _ = w.Write([]byte(`{"access_token":"tok-1","user":{"id":"owner-1","email":"rider@example.com"}}`))
		case "/rest/v1/routes":
			_, _ = w.Write([]byte(`{"id":"remote-route-1"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"message":"boom"}`))
		}
	}))

	id := recordedRoute(t)
	signIn(t)

	_, err := runCLI(t, "", "publish", id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not publish route")
	// The failed step name stays out of the user-facing message.
	assert.NotContains(t, err.Error(), "route_points")
	assert.Equal(t, ExitFailure, GetExitCode(err))
}
