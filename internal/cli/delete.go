package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/themainfun/waymark/internal/store"
)

// DeleteOptions holds flags for the delete command.
type DeleteOptions struct {
	*RootOptions
	Yes bool
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeleteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "delete <route-id>",
		Short: "Delete a local route and all its points",
		Long: `Delete a route from the local store.

The route's waypoints and samples are removed with it, synchronously,
in one transaction. Requires --yes; there is no undo.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Yes, "yes", false, "confirm deletion")

	return cmd
}

func runDelete(opts *DeleteOptions, routeID string, cmd *cobra.Command) error {
	if !opts.Yes {
		return NewExitError(ExitCommandError, "refusing to delete without --yes")
	}

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeStore(st)

	if err := st.DeleteRoute(cmd.Context(), routeID); err != nil {
		if errors.Is(err, store.ErrRouteNotFound) {
			return WrapExitError(ExitFailure, "route not found", err)
		}
		return WrapExitError(ExitCommandError, "failed to delete route", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return out.Successf(map[string]string{"deleted": routeID}, "Deleted route %s.", routeID)
}
