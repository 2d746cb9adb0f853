package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/themainfun/waymark/internal/store"
)

// NewPublishCommand creates the publish command.
func NewPublishCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "publish <route-id>",
		Short: "Publish a local route to the remote backend",
		Long: `Publish a recorded route and its points to the remote backend.

Requires a cached session (see login). The route row is created first,
then its waypoints and samples are attached in batches; a failure after
the route was created leaves it on the backend without its points.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(rootOpts, args[0], cmd)
		},
	}
}

func runPublish(opts *RootOptions, routeID string, cmd *cobra.Command) error {
	client, err := remoteClient(opts)
	if err != nil {
		return err
	}

	session, err := loadSession()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session cache", err)
	}
	if session == nil {
		return NewExitError(ExitFailure, "not signed in: run waymark login first")
	}
	client.Resume(session)

	st, err := openStore(opts)
	if err != nil {
		return err
	}
	defer closeStore(st)

	r, err := st.GetRoute(cmd.Context(), routeID)
	if err != nil {
		if errors.Is(err, store.ErrRouteNotFound) {
			return WrapExitError(ExitFailure, "route not found", err)
		}
		return WrapExitError(ExitCommandError, "failed to load route", err)
	}

	receipt, err := client.Publish(cmd.Context(), r)
	if err != nil {
		// Flat message; the failed step is in the logs only.
		return WrapExitError(ExitFailure, "could not publish route", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return out.Successf(receipt,
		"Published %q as %s (%d waypoints, %d samples).",
		r.Name, receipt.RouteID, receipt.Waypoints, receipt.Samples)
}
