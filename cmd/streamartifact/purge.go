package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/streamartifact/streamartifact/bridge"
	"github.com/streamartifact/streamartifact/store"
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete messages and low-relevance memories older than the retention window",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		window, _ := cmd.Flags().GetDuration("older-than")
		if window <= 0 {
			_, window = retentionFromViper()
		}
		return withBridge(cmd.Context(), func(ctx context.Context, b *bridge.Bridge) error {
			res, err := bridge.Query(ctx, b, func(ctx context.Context, s *store.Store) (store.PurgeResult, error) {
				return s.PurgeOlderThan(ctx, window)
			})
			if err != nil {
				return err
			}
			fmt.Printf("deleted %d messages and %d low-relevance memories older than %s\n",
				res.MessagesDeleted, res.MemoriesDeleted, window)
			return nil
		})
	},
}

func init() {
	purgeCmd.Flags().Duration("older-than", 0, "override the retention window (e.g. 720h)")
}
