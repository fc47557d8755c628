package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/internal/app"
	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/pkg/mindtree"
	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login <user-id>",
		Short: "Log in and store the session",
		Long: `Log in with a user id and password. The password is taken from --password,
then MINDTREE_PASSWORD, and is otherwise read from the first line of stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("MINDTREE_PASSWORD")
			}
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no password given")
				}
				password = strings.TrimRight(line, "\r\n")
			}

			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				id, err := a.Client().Login(ctx, args[0], password)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s (%s)\n", id.Nickname, id.UserID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				if _, err := a.Client().Restore(ctx); err != nil && !mindtree.IsSessionFatal(err) {
					return err
				}
				if err := a.Client().Logout(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "logged out")
				return nil
			})
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, c *mindtree.Client) error {
				p, err := c.Profile(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", p.Nickname, p.UserID)
				return nil
			})
		},
	}
}

func newPointsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "points",
		Short: "Show the point balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, c *mindtree.Client) error {
				points, err := c.Points(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), points)
				return nil
			})
		},
	}
}

func newDeleteAccountCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete-account",
		Short: "Delete the logged-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to delete the account without --yes")
			}
			return withSession(cmd, func(ctx context.Context, c *mindtree.Client) error {
				return c.DeleteAccount(ctx)
			})
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the deletion")
	return cmd
}
