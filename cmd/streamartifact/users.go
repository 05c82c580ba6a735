package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/streamartifact/streamartifact/bridge"
	"github.com/streamartifact/streamartifact/db/models"
	"github.com/streamartifact/streamartifact/store"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage known chat users",
}

var usersShowCmd = &cobra.Command{
	Use:   "show <username>",
	Short: "Print a user's stored stats",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBridge(cmd.Context(), func(ctx context.Context, b *bridge.Bridge) error {
			u, err := bridge.Query(ctx, b, func(ctx context.Context, s *store.Store) (models.User, error) {
				row, ok := s.UserStats(ctx, args[0])
				if !ok {
					return models.User{}, fmt.Errorf("unknown user %q", args[0])
				}
				return row, nil
			})
			if err != nil {
				return err
			}
			fmt.Printf("%s\tmessages=%d\tpoints=%d\tregular=%v\tfirst_seen=%s\tlast_seen=%s\n",
				u.Username, u.MessageCount, u.Points, u.IsRegular,
				u.FirstSeen.Format("2006-01-02"), u.LastSeen.Format("2006-01-02"))
			return nil
		})
	},
}

var usersRegularCmd = &cobra.Command{
	Use:   "regular <username> <on|off>",
	Short: "Grant or revoke a user's regular status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var regular bool
		switch args[1] {
		case "on", "true":
			regular = true
		case "off", "false":
			regular = false
		default:
			return fmt.Errorf("want on or off, got %q", args[1])
		}
		return withBridge(cmd.Context(), func(ctx context.Context, b *bridge.Bridge) error {
			return b.Submit(ctx, func(ctx context.Context, s *store.Store) error {
				return s.SetRegular(ctx, args[0], regular)
			})
		})
	},
}

var usersPointsCmd = &cobra.Command{
	Use:   "points <username> <delta>",
	Short: "Adjust a user's points balance (delta may be negative)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		delta, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("parse delta %q: %w", args[1], err)
		}
		return withBridge(cmd.Context(), func(ctx context.Context, b *bridge.Bridge) error {
			return b.Submit(ctx, func(ctx context.Context, s *store.Store) error {
				return s.AdjustPoints(ctx, args[0], delta)
			})
		})
	},
}

func init() {
	usersCmd.AddCommand(usersShowCmd, usersRegularCmd, usersPointsCmd)
}
