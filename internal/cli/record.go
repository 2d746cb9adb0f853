package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/themainfun/waymark/internal/config"
	"github.com/themainfun/waymark/internal/geo"
	"github.com/themainfun/waymark/internal/recorder"
)

// RecordOptions holds flags for the record command.
type RecordOptions struct {
	*RootOptions
	Description string
	Track       string
	Interval    time.Duration
}

// NewRecordCommand creates the record command.
func NewRecordCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "record <name>",
		Short: "Record a route from a simulated track",
		Long: `Record a named route into the local store by replaying a track script.

The script is a text file ("-" for stdin) with one instruction per line:

  <lat>,<lon>     sampler tick at this position
  ?               sampler tick with no position fix (skipped silently)
  wp:NAME[:DESC]  capture a manual waypoint at the current position
  # ...           comment

A live device location source is a platform service and is not bundled
with this CLI; the track script stands in for it.

Example:
  waymark record "Morning walk" --track walk.txt`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecord(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Description, "description", "", "route description")
	cmd.Flags().StringVar(&opts.Track, "track", "", "track script file, or - for stdin (required)")
	cmd.Flags().DurationVar(&opts.Interval, "interval", 0, "sampler interval override (default from config)")
	_ = cmd.MarkFlagRequired("track")

	return cmd
}

func runRecord(opts *RecordOptions, name string, cmd *cobra.Command) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	interval := opts.Interval
	if interval == 0 {
		if interval, err = cfg.Recorder.Interval(); err != nil {
			return WrapExitError(ExitCommandError, "invalid config", err)
		}
	}

	script, err := readScript(opts.Track, cmd.InOrStdin())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read track", err)
	}

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeStore(st)

	src := geo.NewPlayback(script.positions...)
	// The script drives ticks directly, so the internal sampler can idle.
	session := recorder.New(st, src, recorder.WithInterval(time.Hour))
	defer session.End()

	ctx := cmd.Context()
	if err := session.Begin(ctx, name, opts.Description); err != nil {
		return WrapExitError(ExitFailure, "could not start recording", err)
	}

	for _, step := range script.steps {
		switch step.kind {
		case stepTick:
			src.Advance()
			session.Tick(ctx)
		case stepWaypoint:
			if err := session.CaptureWaypoint(ctx, step.name, step.description); err != nil {
				return WrapExitError(ExitFailure, "waypoint capture failed", err)
			}
		}
	}

	session.End()
	r := session.Route()

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return out.Successf(
		map[string]any{
			"route_id":  r.ID.String(),
			"name":      r.Name,
			"waypoints": len(r.Waypoints),
			"samples":   len(r.Samples),
		},
		"Recorded %q (%s): %d waypoints, %d samples.", r.Name, r.ID, len(r.Waypoints), len(r.Samples))
}

const (
	stepTick = iota
	stepWaypoint
)

type scriptStep struct {
	kind        int
	name        string
	description string
}

type trackScript struct {
	positions []geo.Position
	steps     []scriptStep
}

// readScript parses a track script. Position lines delegate to
// geo.ParseTrack one line at a time so the coordinate syntax stays in
// one place.
func readScript(path string, stdin io.Reader) (*trackScript, error) {
	var reader io.Reader
	if path == "-" {
		reader = stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		reader = f
	}

	script := &trackScript{}
	scanner := bufio.NewScanner(reader)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		if rest, ok := strings.CutPrefix(text, "wp:"); ok {
			name, description, _ := strings.Cut(rest, ":")
			if strings.TrimSpace(name) == "" {
				return nil, fmt.Errorf("track line %d: waypoint needs a name", line)
			}
			script.steps = append(script.steps, scriptStep{
				kind:        stepWaypoint,
				name:        name,
				description: description,
			})
			continue
		}

		positions, err := geo.ParseTrack(strings.NewReader(text), time.Now)
		if err != nil {
			// ParseTrack saw a one-line input; report our line number.
			cause := err
			if inner := errors.Unwrap(err); inner != nil {
				cause = inner
			}
			return nil, fmt.Errorf("track line %d: %w", line, cause)
		}
		script.positions = append(script.positions, positions...)
		script.steps = append(script.steps, scriptStep{kind: stepTick})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read track: %w", err)
	}

	return script, nil
}
