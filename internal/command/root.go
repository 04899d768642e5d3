// Package command contains the CLI command constructors.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"

	"github.com/stolasapp/animes/internal/config"
	"github.com/stolasapp/animes/internal/observability"
)

// RootCommand instantiates the root command, with all sub-commands bound.
func RootCommand() *cobra.Command {
	configFilePath := filepath.Join(xdg.ConfigHome, "animes.yaml")
	cmd := &cobra.Command{
		Use:          "animes [command] [flags]",
		Short:        "The anime catalog API server",
		Version:      version(),
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) (err error) {
			cfg, err := loadOrInitConfig(cmd, configFilePath)
			if err != nil {
				return fmt.Errorf("failed to load configuration file: %w", err)
			}
			logger := observability.InitSlog(cfg)
			logger.DebugContext(cmd.Context(), "configuration loaded", slog.Any("config", cfg))
			slog.SetDefault(logger)
			cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(
		&configFilePath,
		"config", "c",
		configFilePath,
		"path to the configuration file",
	)

	cmd.AddCommand(
		serveCommand(),
		userCommand(),
		apiCommand(),
	)

	return cmd
}

func loadOrInitConfig(cmd *cobra.Command, configFilePath string) (*config.Config, error) {
	cfg, err := config.Load(configFilePath)
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		return cfg, err
	}

	resp, initErr := prompt(cmd, fmt.Sprintf("Config not found at %s. Create one? [y|N] ", configFilePath), false)
	if initErr != nil || !bytes.Equal(resp, []byte("y")) {
		return nil, errors.Join(err, initErr)
	}

	if err = writeDefaultConfig(configFilePath); err != nil {
		return nil, err
	}
	return config.Load(configFilePath)
}

func writeDefaultConfig(configFilePath string) error {
	data, err := config.Marshal(config.Default())
	if err != nil {
		return fmt.Errorf("failed to marshal default config to YAML: %w", err)
	}
	if err = os.MkdirAll(filepath.Dir(configFilePath), 0o700); err != nil { //nolint:mnd // owner rwx access
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err = os.WriteFile(configFilePath, data, 0o600); err != nil { //nolint:mnd // owner rw access
		return fmt.Errorf("failed to write config file to %s: %w", configFilePath, err)
	}
	return nil
}
