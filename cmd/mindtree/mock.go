package main

import (
	"fmt"
	"time"

	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/internal/app"
	"github.com/spf13/cobra"
)

func newMockCmd() *cobra.Command {
	var (
		addr      string
		member    app.MockMember
		accessTTL time.Duration
	)

	cmd := &cobra.Command{
		Use:   "mock",
		Short: "Run an in-process fake backend for local testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.MockAddr
			}

			srv, err := app.NewMockServer(addr, accessTTL, app.NewLogger(cfg), member)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "mock backend on http://%s (member %q)\n", srv.Addr(), member.UserID)
			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from MINDTREE_MOCK_ADDR)")
	cmd.Flags().StringVar(&member.UserID, "user", "demo", "seeded member id")
	cmd.Flags().StringVar(&member.Password, "password", "demo-password", "seeded member password")
	cmd.Flags().StringVar(&member.Nickname, "nickname", "Demo", "seeded member nickname")
	cmd.Flags().IntVar(&member.Points, "points", 100, "seeded member points")
	cmd.Flags().DurationVar(&accessTTL, "access-ttl", 15*time.Minute, "access token lifetime")
	return cmd
}
