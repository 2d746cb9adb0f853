package geo

import (
	"fmt"
	"time"
)

// Fix is a resolved device position in WGS-84 decimal degrees.
type Fix struct {
	Latitude  float64
	Longitude float64
	Time      time.Time
}

// Position is either a known fix or nothing.
//
// The zero value is the unknown position. Consumers must check Known
// before reading Fix; Fix is meaningless when Known is false.
type Position struct {
	Known bool
	Fix   Fix
}

// KnownPosition wraps a fix in a known position.
func KnownPosition(fix Fix) Position {
	return Position{Known: true, Fix: fix}
}

// UnknownPosition returns the "no current position" value.
func UnknownPosition() Position {
	return Position{}
}

// String renders the position for logs.
func (p Position) String() string {
	if !p.Known {
		return "unknown"
	}
	return fmt.Sprintf("%.6f,%.6f", p.Fix.Latitude, p.Fix.Longitude)
}

// Permission is the device location authorization state.
type Permission int

const (
	// PermissionUndetermined means the user has not been asked yet.
	PermissionUndetermined Permission = iota

	// PermissionGranted means position updates may be consumed.
	PermissionGranted

	// PermissionDenied means the user refused location access.
	// Recoverable only by user action outside the application.
	PermissionDenied

	// PermissionRestricted means a system policy blocks location access.
	PermissionRestricted
)

// String implements fmt.Stringer.
func (p Permission) String() string {
	switch p {
	case PermissionUndetermined:
		return "undetermined"
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	case PermissionRestricted:
		return "restricted"
	default:
		return fmt.Sprintf("permission(%d)", int(p))
	}
}
