package geo

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Source supplies the current device position to a recording session.
//
// Implementations wrap a platform location API. The recorder only ever
// asks for the latest position; it does not subscribe to an update
// stream directly.
//
// Stop releases any underlying subscription. Calling Stop more than
// once is a no-op. After Stop, Current returns the unknown position.
type Source interface {
	// RequestPermission asks the platform for location authorization.
	// It blocks until the user responds or ctx is done.
	RequestPermission(ctx context.Context) (Permission, error)

	// Current returns the most recent position, or the unknown
	// position when no fix has been acquired yet.
	Current() Position

	// Stop ends position updates. Idempotent.
	Stop()
}

// Playback is a Source that replays a fixed sequence of positions.
//
// Each call to Advance moves to the next position in the sequence;
// Current keeps returning the same position until the next Advance.
// Used by tests and by the CLI's simulate mode, the same way fixed
// token generators stand in for UUID generation in tests.
//
// Thread-safety: all methods are safe for concurrent use.
type Playback struct {
	mu        sync.Mutex
	positions []Position
	idx       int
	stopped   bool
}

// NewPlayback creates a playback source. The source reports the unknown
// position until the first Advance.
func NewPlayback(positions ...Position) *Playback {
	return &Playback{positions: positions, idx: -1}
}

// RequestPermission always grants.
func (p *Playback) RequestPermission(ctx context.Context) (Permission, error) {
	return PermissionGranted, nil
}

// Current returns the position selected by the last Advance.
func (p *Playback) Current() Position {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped || p.idx < 0 || p.idx >= len(p.positions) {
		return UnknownPosition()
	}
	return p.positions[p.idx]
}

// Advance moves to the next position in the sequence. Returns false
// when the sequence is exhausted; Current then reports unknown.
func (p *Playback) Advance() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return false
	}
	p.idx++
	return p.idx < len(p.positions)
}

// Stop ends playback. Idempotent.
func (p *Playback) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
}

// ParseTrack reads "lat,lon" lines into a position sequence.
//
// Blank lines and lines starting with '#' are skipped. A bare "?" line
// yields the unknown position, which lets simulated tracks exercise the
// skip-when-no-fix path.
func ParseTrack(r io.Reader, now func() time.Time) ([]Position, error) {
	var positions []Position
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if text == "?" {
			positions = append(positions, UnknownPosition())
			continue
		}
		lat, lon, err := parseLatLon(text)
		if err != nil {
			return nil, fmt.Errorf("track line %d: %w", line, err)
		}
		positions = append(positions, KnownPosition(Fix{
			Latitude:  lat,
			Longitude: lon,
			Time:      now(),
		}))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read track: %w", err)
	}
	return positions, nil
}

func parseLatLon(text string) (lat, lon float64, err error) {
	parts := strings.SplitN(text, ",", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected \"lat,lon\", got %q", text)
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("latitude %q: %w", parts[0], err)
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("longitude %q: %w", parts[1], err)
	}
	return lat, lon, nil
}
