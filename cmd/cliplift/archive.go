package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"cliplift/internal/state"
)

func newArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive <video-id>",
		Short: "Archive a finished video",
		Long:  "Moves a video whose clips have been exported into the terminal archived state. Only videos in the ready state can be archived.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			videoID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return err
			}

			app, err := loadApp()
			if err != nil {
				return err
			}
			defer app.Close()

			video, err := app.store.TransitionVideo(cmd.Context(), videoID, state.StateArchived)
			if err != nil {
				return err
			}
			fmt.Printf("archived video %d (%s)\n", video.ID, video.Title)
			return nil
		},
	}
}
