package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/streamartifact/streamartifact/assembler"
	"github.com/streamartifact/streamartifact/bridge"
	"github.com/streamartifact/streamartifact/db"
	"github.com/streamartifact/streamartifact/dispatch"
	"github.com/streamartifact/streamartifact/providers/openrouter"
	"github.com/streamartifact/streamartifact/store"
	"github.com/streamartifact/streamartifact/sweeper"
	"github.com/streamartifact/streamartifact/twitch"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Connect to chat and run the bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := slog.Default()

	tcfg := twitchConfigFromViper()
	if tcfg.Channel == "" || tcfg.Nick == "" || tcfg.Token == "" {
		return fmt.Errorf("twitch.channel, twitch.nick and twitch.token are required")
	}

	// The store opens before anything may submit work; failure here
	// aborts startup.
	gdb, err := db.Open(ctx, dbConfigFromViper())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		_ = db.Close(gdb)
		return fmt.Errorf("migrate store: %w", err)
	}

	b := bridge.New(store.New(gdb, log), func() error { return db.Close(gdb) }, bridge.Config{}, log)
	defer func() {
		if err := b.Close(); err != nil {
			log.Error("bridge close failed", "error", err)
		}
	}()

	var ai *assembler.Assembler
	if key := strings.TrimSpace(viper.GetString("ai.api_key")); key != "" {
		client := openrouter.New(viper.GetString("ai.endpoint"), key)
		ai = assembler.New(b, client, assemblerConfigFromViper(), log)
		log.Info("ai enabled", "model", viper.GetString("ai.model"))
	} else {
		log.Info("ai disabled: no ai.api_key configured")
	}

	interval, window := retentionFromViper()
	go sweeper.New(b, interval, window, log).Run(ctx)

	bot := newBot(b, dispatch.New(b, log), ai, log)
	chat := twitch.New(tcfg, log)
	chat.OnMessage = func(m twitch.ChatMessage) { bot.handleMessage(ctx, chat, m) }
	chat.OnEvent = func(ev twitch.StreamEvent) { bot.handleEvent(ev) }

	log.Info("starting", "channel", tcfg.Channel, "version", version)
	if err := chat.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	log.Info("shutting down")
	return nil
}
