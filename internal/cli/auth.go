package cli

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/themainfun/waymark/internal/config"
	"github.com/themainfun/waymark/internal/remote"
)

// AuthOptions holds flags shared by register and login.
type AuthOptions struct {
	*RootOptions
	Password string
}

// NewRegisterCommand creates the register command.
func NewRegisterCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AuthOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "register <email>",
		Short: "Create an account on the remote backend",
		Long: `Register a new account with the remote backend.

The password comes from --password or the WAYMARK_PASSWORD environment
variable. When the backend signs the new user in immediately the session
is cached for publish; otherwise confirm the email first, then login.

Example:
  waymark register rider@example.com --password s3cret`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Password, "password", "", "account password (or WAYMARK_PASSWORD)")

	return cmd
}

// NewLoginCommand creates the login command.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AuthOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Sign in and cache the session",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Password, "password", "", "account password (or WAYMARK_PASSWORD)")

	return cmd
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "logout",
		Short:         "Discard the cached session",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clearSession(); err != nil {
				return WrapExitError(ExitCommandError, "failed to clear session", err)
			}
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return out.Successf(map[string]string{"status": "signed out"}, "Signed out.")
		},
	}
}

func runRegister(opts *AuthOptions, email string, cmd *cobra.Command) error {
	client, err := remoteClient(opts.RootOptions)
	if err != nil {
		return err
	}
	password, err := resolvePassword(opts)
	if err != nil {
		return err
	}

	session, err := client.SignUp(cmd.Context(), email, password)
	if err != nil {
		if remote.IsRegistrationFailed(err) {
			return WrapExitError(ExitFailure, "registration failed", err)
		}
		return WrapExitError(ExitFailure, "registration request failed", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if session == nil {
		return out.Successf(map[string]string{"status": "confirmation pending"},
			"Registered. Confirm %s before logging in.", email)
	}

	if err := saveSession(session); err != nil {
		return WrapExitError(ExitCommandError, "failed to cache session", err)
	}
	return out.Successf(map[string]string{"status": "registered", "user_id": session.User.ID},
		"Registered and signed in as %s.", email)
}

func runLogin(opts *AuthOptions, email string, cmd *cobra.Command) error {
	client, err := remoteClient(opts.RootOptions)
	if err != nil {
		return err
	}
	password, err := resolvePassword(opts)
	if err != nil {
		return err
	}

	session, err := client.SignIn(cmd.Context(), email, password)
	if err != nil {
		if remote.IsInvalidCredentials(err) {
			var ae *remote.AuthError
			errors.As(err, &ae)
			return NewExitError(ExitFailure, ae.Message)
		}
		return WrapExitError(ExitFailure, "login request failed", err)
	}

	if err := saveSession(session); err != nil {
		return WrapExitError(ExitCommandError, "failed to cache session", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return out.Successf(map[string]string{"status": "signed in", "user_id": session.User.ID},
		"Signed in as %s.", email)
}

// remoteClient builds a client from configuration; fails when the
// backend is not configured.
func remoteClient(opts *RootOptions) (*remote.Client, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if err := cfg.Remote.Require(); err != nil {
		return nil, WrapExitError(ExitCommandError, "remote backend unavailable", err)
	}
	return remote.NewClient(cfg.Remote.URL, cfg.Remote.APIKey), nil
}

func resolvePassword(opts *AuthOptions) (string, error) {
	if opts.Password != "" {
		return opts.Password, nil
	}
	if v := os.Getenv("WAYMARK_PASSWORD"); v != "" {
		return v, nil
	}
	return "", NewExitError(ExitCommandError, "no password: use --password or WAYMARK_PASSWORD")
}
