package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/streamartifact/streamartifact/bridge"
	"github.com/streamartifact/streamartifact/db"
	"github.com/streamartifact/streamartifact/db/models"
	"github.com/streamartifact/streamartifact/store"
)

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "Manage registered chat commands",
}

var commandsAddCmd = &cobra.Command{
	Use:   "add <name> <response>",
	Short: "Register or edit a chat command",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetString("level")
		cooldown, _ := cmd.Flags().GetInt("cooldown")
		return withBridge(cmd.Context(), func(ctx context.Context, b *bridge.Bridge) error {
			return b.Submit(ctx, func(ctx context.Context, s *store.Store) error {
				return s.UpsertCommand(ctx, store.UpsertCommandParams{
					Command:         args[0],
					Response:        args[1],
					PermissionLevel: level,
					Cooldown:        cooldown,
				})
			})
		})
	},
}

var commandsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered commands",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBridge(cmd.Context(), func(ctx context.Context, b *bridge.Bridge) error {
			rows, err := bridge.Query(ctx, b, func(ctx context.Context, s *store.Store) ([]models.Command, error) {
				return s.ListCommands(ctx), nil
			})
			if err != nil {
				return err
			}
			for _, c := range rows {
				state := "enabled"
				if !c.IsEnabled {
					state = "disabled"
				}
				fmt.Printf("!%s\t%s\t%s\tcooldown=%ds\tused=%d\n",
					c.Command, state, c.PermissionLevel, c.Cooldown, c.UsageCount)
			}
			return nil
		})
	},
}

var commandsEnableCmd = &cobra.Command{
	Use:   "enable <name>",
	Short: "Enable a command",
	Args:  cobra.ExactArgs(1),
	RunE:  setEnabledRunE(true),
}

var commandsDisableCmd = &cobra.Command{
	Use:   "disable <name>",
	Short: "Disable a command without deleting it",
	Args:  cobra.ExactArgs(1),
	RunE:  setEnabledRunE(false),
}

var commandsRmCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Delete a command",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBridge(cmd.Context(), func(ctx context.Context, b *bridge.Bridge) error {
			return b.Submit(ctx, func(ctx context.Context, s *store.Store) error {
				return s.DeleteCommand(ctx, args[0])
			})
		})
	},
}

func setEnabledRunE(enabled bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return withBridge(cmd.Context(), func(ctx context.Context, b *bridge.Bridge) error {
			return b.Submit(ctx, func(ctx context.Context, s *store.Store) error {
				return s.SetCommandEnabled(ctx, args[0], enabled)
			})
		})
	}
}

func init() {
	commandsAddCmd.Flags().String("level", "everyone",
		"permission level: everyone, regular, subscriber, vip, moderator, broadcaster")
	commandsAddCmd.Flags().Int("cooldown", 0, "cooldown in seconds")
	commandsCmd.AddCommand(commandsAddCmd, commandsListCmd, commandsEnableCmd, commandsDisableCmd, commandsRmCmd)
}

// withBridge opens the store, runs fn against a short-lived bridge,
// and shuts it down. Administrative commands share the serve path's
// access discipline even for one-shot operations.
func withBridge(ctx context.Context, fn func(ctx context.Context, b *bridge.Bridge) error) error {
	log := slog.Default()
	gdb, err := db.Open(ctx, dbConfigFromViper())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		_ = db.Close(gdb)
		return fmt.Errorf("migrate store: %w", err)
	}
	b := bridge.New(store.New(gdb, log), func() error { return db.Close(gdb) }, bridge.Config{}, log)
	defer func() { _ = b.Close() }()
	return fn(ctx, b)
}
