package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"cliplift/internal/config"
	"cliplift/internal/logging"
	"cliplift/internal/store"
)

var configFlag string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cliplift",
		Short:         "Extract highlight clips from long-form video",
		Long:          "Cliplift watches directories for new videos, transcribes and scores them with local models, escalates ambiguous moments to a cloud reviewer, and exports the best segments as ready-to-post clips.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configFlag, "config", "", "path to the configuration file")

	root.AddCommand(
		newRunCmd(),
		newAddCmd(),
		newVideosCmd(),
		newLogsCmd(),
		newArchiveCmd(),
		newWatchCmd(),
		newConfigCmd(),
	)
	return root
}

// app bundles the shared runtime every subcommand needs.
type app struct {
	cfg        *config.Config
	configPath string
	logger     *slog.Logger
	store      *store.Store
}

func loadApp() (*app, error) {
	cfg, path, found, err := config.Load(configFlag)
	if err != nil {
		return nil, err
	}
	if !found && configFlag != "" {
		return nil, fmt.Errorf("config file not found at %s", configFlag)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, configPath: path, logger: logger, store: st}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("store close failed", logging.Error(err))
	}
}
