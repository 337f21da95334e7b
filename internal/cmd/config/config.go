// Package config provides CLI commands for managing Untethered
// configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	appconfig "github.com/reifying/untethered/internal/config"
)

// Register adds the config command tree to the given parent command.
func Register(parent *cobra.Command) {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
	parent.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or manage Untethered configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(appconfig.ConfigFile())
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	RunE:  runConfigInit,
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := appconfig.Load()
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(renderable(cfg))
	if err != nil {
		return err
	}
	fmt.Print(string(out))
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := appconfig.ConfigFile()
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	out, err := yaml.Marshal(renderable(appconfig.Default()))
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	fmt.Printf("created %s\n", path)
	return nil
}

// renderable converts the config into the same keys the config file
// uses, so `config show` output can be pasted back into config.yaml.
func renderable(cfg *appconfig.Config) map[string]any {
	return map[string]any{
		"upload": map[string]any{
			"timeout_seconds":                 cfg.Upload.TimeoutSeconds,
			"connection_test_timeout_seconds": cfg.Upload.ConnectionTestTimeoutSeconds,
			"max_payload_mb":                  cfg.Upload.MaxPayloadMB,
		},
		"queue": map[string]any{
			"default_priority": cfg.Queue.DefaultPriority,
		},
		"logging": map[string]any{
			"enabled":     cfg.Logging.Enabled,
			"level":       cfg.Logging.Level,
			"max_size_mb": cfg.Logging.MaxSizeMB,
			"max_backups": cfg.Logging.MaxBackups,
		},
		"paths": map[string]any{
			"state_dir": cfg.Paths.StateDir,
		},
	}
}
