package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cliplift/internal/config"
	"cliplift/internal/watcher"
)

func newAddCmd() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Register a video file for processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp()
			if err != nil {
				return err
			}
			defer app.Close()

			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("source file: %w", err)
			}

			if existing, err := app.store.FindVideoByPath(cmd.Context(), path); err != nil {
				return err
			} else if existing != nil {
				return fmt.Errorf("already registered as video %d", existing.ID)
			}

			video, err := app.store.NewVideo(cmd.Context(), path, watcher.TitleFromFilename(path), user, nil)
			if err != nil {
				return err
			}
			fmt.Printf("registered video %d (%s); it will process on the next daemon start\n", video.ID, video.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "local", "owning user id")
	return cmd
}
