package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/coach/internal/cli"
	"github.com/aretw0/coach/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "coach",
	Short: "Coach is a stage-driven interview practice tutor",
	Long: `Coach walks a learner through a coding problem one stage at a time:
clarify, articulate, analyse complexity, write pseudocode, check edge cases,
answer a follow-up and summarize the pattern.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("env-file", ".env", "Environment file to load when present")
	rootCmd.PersistentFlags().String("log-level", "", "Override the log level (debug, info, warn, error)")
}

// loadConfig reads the env file, the config file and the flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// buildApp loads configuration and wires the engine.
func buildApp(ctx context.Context, cmd *cobra.Command) (*config.Config, *cli.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger := cli.NewLogger(cfg.Log, os.Stderr)
	app, err := cli.Build(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return cfg, app, nil
}
