package remote

import (
	"errors"
	"fmt"
)

// ErrNotSignedIn is returned when an operation requires a session and
// none is held.
var ErrNotSignedIn = errors.New("not signed in")

// AuthKind categorizes authentication failures.
type AuthKind string

const (
	// KindInvalidCredentials: the identity endpoint rejected the
	// email/password pair (sign-in).
	KindInvalidCredentials AuthKind = "INVALID_CREDENTIALS"

	// KindRegistrationFailed: the server rejected the sign-up payload,
	// e.g. the email is already registered.
	KindRegistrationFailed AuthKind = "REGISTRATION_FAILED"

	// KindAuthRejected: any other non-2xx auth response.
	KindAuthRejected AuthKind = "AUTH_REJECTED"
)

// AuthError is a rejection from the identity endpoint. It is returned
// only when the server answered; transport failures surface as wrapped
// net errors instead, so the two are distinguishable with errors.As.
type AuthError struct {
	Kind       AuthKind
	StatusCode int

	// Message is the server's message field verbatim, or a canned
	// translation for known cases.
	Message string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %s (status %d)", e.Kind, e.Message, e.StatusCode)
}

// IsInvalidCredentials reports whether err is a credentials rejection.
// Uses errors.As to handle wrapped errors.
func IsInvalidCredentials(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae) && ae.Kind == KindInvalidCredentials
}

// IsRegistrationFailed reports whether err is a sign-up rejection.
func IsRegistrationFailed(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae) && ae.Kind == KindRegistrationFailed
}

// Step identifies a stage of the publish pipeline. Used in logs and in
// PublishError; never shown to the user.
type Step string

const (
	StepCreateRoute    Step = "create_route"
	StepRoutePoints    Step = "route_points"
	StepLocationPoints Step = "location_points"
)

// PublishError reports a failed publish.
//
// The user-facing message is deliberately flat - it does not say which
// step failed (that detail goes to logs only). Step and Err carry the
// detail for logging and tests.
type PublishError struct {
	Step Step
	Err  error
}

// Error implements the error interface.
func (e *PublishError) Error() string {
	return fmt.Sprintf("publish failed: %v", e.Err)
}

// Unwrap returns the underlying cause.
func (e *PublishError) Unwrap() error {
	return e.Err
}

// statusError is a non-2xx data API response.
type statusError struct {
	StatusCode int
	Message    string
}

func (e *statusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}
