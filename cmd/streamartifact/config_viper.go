package main

import (
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/streamartifact/streamartifact/assembler"
	"github.com/streamartifact/streamartifact/db"
	"github.com/streamartifact/streamartifact/providers/openrouter"
	"github.com/streamartifact/streamartifact/twitch"
)

func setConfigDefaults() {
	viper.SetDefault("db.wal", true)
	viper.SetDefault("db.busy_timeout_ms", 5000)

	viper.SetDefault("retention.window", "720h") // 30 days
	viper.SetDefault("retention.sweep_interval", "1h")

	viper.SetDefault("ai.endpoint", openrouter.DefaultEndpoint)
	viper.SetDefault("ai.message_window", 10)
	viper.SetDefault("ai.memory_window", 5)
	viper.SetDefault("ai.budget", 4000)
	viper.SetDefault("ai.timeout", "30s")
	viper.SetDefault("ai.random_reply_chance", 0.0)

	viper.SetDefault("log.level", "info")
}

func dbConfigFromViper() db.Config {
	return db.Config{
		Path: strings.TrimSpace(viper.GetString("db.path")),
		SQLite: db.SQLiteConfig{
			WAL:           viper.GetBool("db.wal"),
			BusyTimeoutMs: viper.GetInt("db.busy_timeout_ms"),
		},
	}
}

func assemblerConfigFromViper() assembler.Config {
	return assembler.Config{
		Model:         strings.TrimSpace(viper.GetString("ai.model")),
		MessageWindow: viper.GetInt("ai.message_window"),
		MemoryWindow:  viper.GetInt("ai.memory_window"),
		Budget:        viper.GetInt("ai.budget"),
		Timeout:       viper.GetDuration("ai.timeout"),
		Personality:   strings.TrimSpace(viper.GetString("ai.personality")),
	}
}

func twitchConfigFromViper() twitch.Config {
	return twitch.Config{
		ServerURL: strings.TrimSpace(viper.GetString("twitch.server_url")),
		Channel:   strings.TrimSpace(viper.GetString("twitch.channel")),
		Nick:      strings.TrimSpace(viper.GetString("twitch.nick")),
		Token:     strings.TrimSpace(viper.GetString("twitch.token")),
	}
}

func retentionFromViper() (interval, window time.Duration) {
	return viper.GetDuration("retention.sweep_interval"), viper.GetDuration("retention.window")
}
