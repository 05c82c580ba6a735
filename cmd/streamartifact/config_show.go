package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings := viper.AllSettings()
		redactKey(settings, "ai", "api_key")
		redactKey(settings, "twitch", "token")

		out, err := yaml.Marshal(settings)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		fmt.Print(string(out))
		return nil
	},
}

func redactKey(settings map[string]any, section, key string) {
	sec, ok := settings[section].(map[string]any)
	if !ok {
		return
	}
	if v, ok := sec[key].(string); ok && v != "" {
		sec[key] = "***"
	}
}

func init() {
	configCmd.AddCommand(configShowCmd)
}
