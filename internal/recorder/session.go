package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/themainfun/waymark/internal/geo"
	"github.com/themainfun/waymark/internal/route"
)

var (
	// ErrAlreadyActive is returned when Begin is called on an active session.
	ErrAlreadyActive = errors.New("recording session already active")

	// ErrSessionTerminated is returned when an operation is attempted
	// after the session ended. A terminated session cannot be reused.
	ErrSessionTerminated = errors.New("recording session terminated")

	// ErrNotActive is returned when a waypoint capture is attempted
	// before the route has been created.
	ErrNotActive = errors.New("no active recording")
)

// DefaultInterval is the sampler period used when no option overrides it.
const DefaultInterval = time.Second

// State is the recording session lifecycle state.
type State int

const (
	// StateAwaitingRouteInfo is the initial state: the route dialog is
	// open and nothing has been persisted.
	StateAwaitingRouteInfo State = iota

	// StateActive means the route exists, the sampler is running, and
	// waypoint capture is enabled.
	StateActive

	// StateTerminated means the session was dismissed and the sampler
	// stopped. Terminal.
	StateTerminated
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateAwaitingRouteInfo:
		return "awaiting-route-info"
	case StateActive:
		return "active"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Store is the subset of the persisted route store the session writes to.
type Store interface {
	SaveRoute(ctx context.Context, r *route.Route) error
	AppendWaypoint(ctx context.Context, p *route.RoutePoint) error
	AppendSample(ctx context.Context, p *route.LocationPoint) error
}

// Session coordinates one route recording from dialog to dismissal.
//
// Thread-safety model:
//   - Begin/CaptureWaypoint/Tick/End: safe from any goroutine; all
//     mutations serialize on the session mutex (single-writer).
//   - The sampler goroutine only ever calls Tick.
//
// A Session records exactly one route. Create a new Session for the
// next recording.
type Session struct {
	mu       sync.Mutex
	state    State
	route    *route.Route
	stopTick func()

	store    Store
	source   geo.Source
	clock    Clock
	interval time.Duration
}

// Option configures a Session.
type Option func(*Session)

// WithInterval sets the sampler period. Default: DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(s *Session) {
		s.interval = d
	}
}

// WithClock sets the timestamp source for samples. Default: SystemClock.
func WithClock(c Clock) Option {
	return func(s *Session) {
		s.clock = c
	}
}

// New creates a session in StateAwaitingRouteInfo.
func New(store Store, source geo.Source, opts ...Option) *Session {
	s := &Session{
		state:    StateAwaitingRouteInfo,
		store:    store,
		source:   source,
		clock:    SystemClock{},
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Route returns the route being recorded, or nil before Begin succeeds.
// After End the aggregate remains readable for publishing.
func (s *Session) Route() *route.Route {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.route
}

// Begin submits the route dialog: AwaitingRouteInfo -> Active.
//
// A valid name creates and persists the route, starts the sampler, and
// enables waypoint capture. An empty name returns route.ErrEmptyName
// and the session stays in AwaitingRouteInfo, so the dialog can be
// resubmitted. A store write failure is logged and recording proceeds
// anyway (accepted data-loss risk; the store is not retried).
func (s *Session) Begin(ctx context.Context, name, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateActive:
		return ErrAlreadyActive
	case StateTerminated:
		return ErrSessionTerminated
	}

	r, err := route.New(name, description)
	if err != nil {
		return err
	}

	if err := s.store.SaveRoute(ctx, r); err != nil {
		slog.Error("route save failed, recording continues", "route", r.Name, "error", err)
	}

	s.route = r
	s.state = StateActive
	s.startSampler(ctx)

	slog.Info("recording started", "route_id", r.ID, "route", r.Name, "interval", s.interval)
	return nil
}

// CaptureWaypoint submits the waypoint dialog while recording.
//
// With no current position fix the attempt is dropped without error -
// no waypoint is created and nothing is surfaced to the user. An empty
// name returns route.ErrEmptyName so the dialog can be resubmitted.
// A store write failure is logged and the session continues.
func (s *Session) CaptureWaypoint(ctx context.Context, name, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateAwaitingRouteInfo:
		return ErrNotActive
	case StateTerminated:
		return ErrSessionTerminated
	}

	pos := s.source.Current()
	if !pos.Known {
		slog.Debug("waypoint capture skipped: no position fix", "route_id", s.route.ID, "name", name)
		return nil
	}

	p, err := s.route.AddWaypoint(name, description, pos.Fix)
	if errors.Is(err, route.ErrEmptyName) {
		return err
	}
	if err != nil {
		slog.Error("waypoint rejected", "route_id", s.route.ID, "error", err)
		return nil
	}

	if err := s.store.AppendWaypoint(ctx, p); err != nil {
		slog.Error("waypoint save failed, recording continues", "route_id", s.route.ID, "point_id", p.ID, "error", err)
	}

	slog.Debug("waypoint captured", "route_id", s.route.ID, "point_id", p.ID, "position", pos)
	return nil
}

// Tick records one tracked sample if a position fix is known.
//
// The sampler goroutine calls Tick once per interval; tests call it
// directly for deterministic schedules. A tick with no fix records
// nothing. Ticks after End record nothing. At most one sample is
// appended per call.
func (s *Session) Tick(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return
	}

	pos := s.source.Current()
	if !pos.Known {
		slog.Debug("sampler tick skipped: no position fix", "route_id", s.route.ID)
		return
	}

	p, err := s.route.AddSample(pos.Fix, s.clock.Now())
	if err != nil {
		slog.Error("sample rejected", "route_id", s.route.ID, "error", err)
		return
	}

	if err := s.store.AppendSample(ctx, p); err != nil {
		slog.Error("sample save failed, recording continues", "route_id", s.route.ID, "point_id", p.ID, "error", err)
	}
}

// End dismisses the session: -> Terminated from either live state.
//
// The sampler is stopped synchronously before End returns and the
// position source is released. Idempotent - ending a terminated
// session is a no-op. Ending from AwaitingRouteInfo discards the
// dialog without having persisted anything.
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateTerminated {
		return
	}

	if s.stopTick != nil {
		s.stopTick()
		s.stopTick = nil
	}
	s.source.Stop()

	if s.route != nil {
		slog.Info("recording ended",
			"route_id", s.route.ID,
			"waypoints", len(s.route.Waypoints),
			"samples", len(s.route.Samples))
	}
	s.state = StateTerminated
}

// startSampler launches the periodic tick goroutine.
// Caller must hold s.mu.
func (s *Session) startSampler(ctx context.Context) {
	done := make(chan struct{})
	var once sync.Once
	s.stopTick = func() {
		once.Do(func() { close(done) })
	}

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Tick(ctx)
			}
		}
	}()
}
