package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUp registers a new account.
//
// Returns the session when the server signs the user in immediately,
// or (nil, nil) when registration was accepted but no session was
// issued (e.g. email confirmation pending). A rejected payload -
// typically a duplicate email - returns *AuthError with
// KindRegistrationFailed carrying the server's message.
func (c *Client) SignUp(ctx context.Context, email, password string) (*Session, error) {
	payload, err := c.do(ctx, http.MethodPost, c.baseURL+"/auth/v1/signup", credentials{Email: email, Password: password}, nil)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) {
			return nil, &AuthError{
				Kind:       KindRegistrationFailed,
				StatusCode: se.StatusCode,
				Message:    se.Message,
			}
		}
		return nil, fmt.Errorf("sign up: %w", err)
	}

	var resp struct {
		User    *User    `json:"user"`
		Session *Session `json:"session"`
	}
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("sign up: decode response: %w", err)
	}

	if resp.Session != nil {
		c.setSession(resp.Session)
		slog.Info("signed up", "user_id", resp.Session.User.ID)
		return resp.Session, nil
	}

	slog.Info("signed up, session pending confirmation", "email", email)
	return nil, nil
}

// SignIn exchanges email/password for a session and holds it on the
// client.
//
// A 400/401/403 response returns *AuthError with
// KindInvalidCredentials; other non-2xx responses return *AuthError
// with KindAuthRejected. Transport failures return wrapped net errors,
// distinguishable from both with errors.As.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	payload, err := c.do(ctx, http.MethodPost, c.baseURL+"/auth/v1/token?grant_type=password", credentials{Email: email, Password: password}, nil)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) {
			return nil, authErrorForSignIn(se)
		}
		return nil, fmt.Errorf("sign in: %w", err)
	}

	var session Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("sign in: decode response: %w", err)
	}
	if session.AccessToken == "" {
		return nil, fmt.Errorf("sign in: response carried no access token")
	}

	c.setSession(&session)
	slog.Info("signed in", "user_id", session.User.ID)
	return &session, nil
}

// SignOut clears the held session unconditionally.
//
// Remote-side invalidation is best-effort: the logout call's outcome is
// logged but never surfaced, and the local session is cleared either way.
func (c *Client) SignOut(ctx context.Context) {
	if c.CurrentSession() != nil {
		if _, err := c.do(ctx, http.MethodPost, c.baseURL+"/auth/v1/logout", nil, nil); err != nil {
			slog.Debug("remote logout failed, clearing local session anyway", "error", err)
		}
	}
	c.setSession(nil)
	slog.Info("signed out")
}

// Resume installs a previously obtained session, e.g. one cached on
// disk between CLI invocations.
func (c *Client) Resume(session *Session) {
	c.setSession(session)
}

func authErrorForSignIn(se *statusError) *AuthError {
	kind := KindAuthRejected
	switch se.StatusCode {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		kind = KindInvalidCredentials
	}
	message := se.Message
	if message == "" {
		message = "invalid login credentials"
	}
	return &AuthError{Kind: kind, StatusCode: se.StatusCode, Message: message}
}
