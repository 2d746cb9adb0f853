package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/themainfun/waymark/internal/config"
	"github.com/themainfun/waymark/internal/store"
)

// NewRoutesCommand creates the routes listing command.
func NewRoutesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "routes",
		Short:         "List locally recorded routes, newest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoutes(rootOpts, cmd)
		},
	}
}

func runRoutes(opts *RootOptions, cmd *cobra.Command) error {
	st, err := openStore(opts)
	if err != nil {
		return err
	}
	defer closeStore(st)

	summaries, err := st.ListRoutes(cmd.Context())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list routes", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if opts.Format == "json" {
		return out.Success(summaries)
	}

	if len(summaries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No routes recorded yet.")
		return nil
	}
	for _, s := range summaries {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  (%d waypoints, %d samples)  %s\n",
			s.ID, s.CreatedAt.Format("2006-01-02 15:04"), s.Waypoints, s.Samples, s.Name)
	}
	return nil
}

// openStore opens the configured local database.
func openStore(opts *RootOptions) (*store.Store, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}
