package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession() Session {
	return Session{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		ExpiresIn:    3600,
		User:         User{ID: "c34048ff-b223-48bb-81d6-6589dea8c5bd", Email: "user@example.com"},
	}
}

func TestSignIn_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"), "anon key is the bearer before sign-in")

		var creds struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "user@example.com", creds.Email)

		json.NewEncoder(w).Encode(testSession())
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key")
	session, err := c.SignIn(context.Background(), "user@example.com", "hunter2")
	require.NoError(t, err)

	assert.Equal(t, "access-token", session.AccessToken)
	assert.Equal(t, "user@example.com", session.User.Email)
	require.NotNil(t, c.CurrentSession())
	assert.Equal(t, "access-token", c.CurrentSession().AccessToken)
}

func TestSignIn_InvalidCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"message": "Invalid login credentials"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key")
	_, err := c.SignIn(context.Background(), "nobody@example.com", "wrong")

	require.Error(t, err)
	assert.True(t, IsInvalidCredentials(err))

	var ae *AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, http.StatusBadRequest, ae.StatusCode)
	assert.Equal(t, "Invalid login credentials", ae.Message, "server message used verbatim")
	assert.Nil(t, c.CurrentSession())
}

func TestSignIn_TransportErrorIsNotAuthError(t *testing.T) {
	// Point at a closed server so the dial fails.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(srv.URL, "anon-key")
	_, err := c.SignIn(context.Background(), "user@example.com", "hunter2")

	require.Error(t, err)
	var ae *AuthError
	assert.False(t, errors.As(err, &ae), "network failure must not look like a credentials rejection")
	assert.False(t, IsInvalidCredentials(err))
}

func TestSignUp_ImmediateSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/signup", r.URL.Path)
		session := testSession()
		json.NewEncoder(w).Encode(map[string]any{
			"user":    session.User,
			"session": session,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key")
	session, err := c.SignUp(context.Background(), "user@example.com", "hunter2")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.NotNil(t, c.CurrentSession(), "immediate session is held")
}

func TestSignUp_ConfirmationPending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"user": map[string]string{"id": "u1"}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key")
	session, err := c.SignUp(context.Background(), "user@example.com", "hunter2")
	require.NoError(t, err)
	assert.Nil(t, session, "no session until the email is confirmed")
	assert.Nil(t, c.CurrentSession())
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"msg": "User already registered"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key")
	_, err := c.SignUp(context.Background(), "taken@example.com", "hunter2")

	require.Error(t, err)
	assert.True(t, IsRegistrationFailed(err))
	var ae *AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "User already registered", ae.Message)
}

func TestSignOut_ClearsSessionEvenWhenRemoteFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/v1/logout" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(testSession())
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key")
	_, err := c.SignIn(context.Background(), "user@example.com", "hunter2")
	require.NoError(t, err)

	c.SignOut(context.Background())
	assert.Nil(t, c.CurrentSession(), "local session cleared unconditionally")
}

func TestResume(t *testing.T) {
	c := NewClient("http://unused", "anon-key")
	session := testSession()
	c.Resume(&session)
	require.NotNil(t, c.CurrentSession())
	assert.Equal(t, "access-token", c.bearerToken(), "resumed token becomes the bearer")
}
