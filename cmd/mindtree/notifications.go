package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/pkg/mindtree"
	"github.com/spf13/cobra"
)

func newNotificationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"noti"},
		Short:   "List, acknowledge and watch notifications",
	}
	cmd.AddCommand(newNotificationsListCmd(), newNotificationsAckCmd(), newNotificationsWatchCmd())
	return cmd
}

func newNotificationsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List unacknowledged notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, c *mindtree.Client) error {
				items, err := c.FetchUnchecked(ctx)
				if err != nil {
					return err
				}
				return printNotifications(cmd.OutOrStdout(), items)
			})
		},
	}
}

func newNotificationsAckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ack <id>...",
		Short: "Acknowledge notifications",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, c *mindtree.Client) error {
				for _, id := range args {
					if err := c.Acknowledge(ctx, id); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "acknowledged", id)
				}
				return nil
			})
		},
	}
}

func newNotificationsWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print notifications as they arrive until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, c *mindtree.Client) error {
				return watch(ctx, cmd.OutOrStdout(), c)
			})
		},
	}
}

// watch prints each notification once and returns when ctx ends or the
// push channel gives up.
func watch(ctx context.Context, out io.Writer, c *mindtree.Client) error {
	seen := make(map[string]struct{})
	for _, n := range c.Notifications().List() {
		seen[n.ID] = struct{}{}
	}

	unsubscribe := c.Notifications().Subscribe(func(items []mindtree.Notification) {
		for _, n := range items {
			if _, ok := seen[n.ID]; ok {
				continue
			}
			seen[n.ID] = struct{}{}
			fmt.Fprintf(out, "%s\t%s from %s\n", n.ID, n.Type, n.SenderUserID)
		}
	})
	defer unsubscribe()

	closed := make(chan struct{}, 1)
	stopState := c.Push().OnStateChange(func(s mindtree.PushState) {
		if s == mindtree.PushClosed {
			select {
			case closed <- struct{}{}:
			default:
			}
		}
	})
	defer stopState()

	select {
	case <-ctx.Done():
		return nil
	case <-closed:
		return c.Push().Err()
	}
}

func printNotifications(out io.Writer, items []mindtree.Notification) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(out, "no unacknowledged notifications")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tFROM\tDIARY\tCREATED")
	for _, n := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", n.ID, n.Type, n.SenderUserID, n.DiaryCreatedAt, n.CreatedAt)
	}
	return tw.Flush()
}
