package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/internal/app"
	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/pkg/mindtree"
	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	exitCodeSuccess = 0
	exitCodeError   = 1
	// exitCodeSessionEnded means the stored session is gone and the user
	// has to log in again.
	exitCodeSessionEnded = 2
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mindtree",
		Short: "Command-line client for the mind tree diary backend",
		Long: `mindtree logs in to the mind tree backend, keeps the session renewed
and shows points and live notifications. Configuration comes from
MINDTREE_* environment variables and the YAML file named by MINDTREE_CONFIG.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newPointsCmd(),
		newNotificationsCmd(),
		newDeleteAccountCmd(),
		newMockCmd(),
		newVersionCmd(),
	)
	return root
}

var rootVersion string

func setVersion(v string) {
	rootVersion = v
	app.BuildVersion = v
}

func execute() {
	root := newRootCmd()
	root.Version = rootVersion
	root.SetVersionTemplate(`{{printf "mindtree version %s\n" .Version}}`)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", errorText(err))
		os.Exit(exitCode(err))
	}
	os.Exit(exitCodeSuccess)
}

// errorText renders SDK errors through their user-facing message and
// anything else (flags, config) as-is.
func errorText(err error) string {
	var e *mindtree.Error
	if errors.As(err, &e) && !errors.Is(err, errNotLoggedIn) {
		return mindtree.UserMessage(err)
	}
	return err.Error()
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, errNotLoggedIn),
		mindtree.IsSessionFatal(err),
		errors.Is(err, mindtree.ErrRefreshInvalid),
		errors.Is(err, mindtree.ErrNoSession):
		return exitCodeSessionEnded
	default:
		return exitCodeError
	}
}

var errNotLoggedIn = errors.New("not logged in, run `mindtree login` first")

// withApp loads the configuration, builds the application and runs fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.Application) error) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}

	a, err := app.New(cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(cmd.Context(), a)
}

// withSession is withApp for commands that need a logged-in member.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, c *mindtree.Client) error) error {
	return withApp(cmd, func(ctx context.Context, a *app.Application) error {
		id, err := a.Client().Restore(ctx)
		if err != nil {
			return err
		}
		if !id.LoggedIn {
			return errNotLoggedIn
		}
		return fn(ctx, a.Client())
	})
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of mindtree",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mindtree version %s\n", rootVersion)
		},
	}
}
