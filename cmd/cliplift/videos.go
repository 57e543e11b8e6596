package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"cliplift/internal/state"
)

func newVideosCmd() *cobra.Command {
	var stateFilter string

	cmd := &cobra.Command{
		Use:   "videos",
		Short: "List registered videos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp()
			if err != nil {
				return err
			}
			defer app.Close()

			var states []state.VideoState
			if stateFilter != "" {
				parsed, err := state.ParseState(stateFilter)
				if err != nil {
					return err
				}
				states = append(states, parsed)
			}

			videos, err := app.store.ListVideos(cmd.Context(), states...)
			if err != nil {
				return err
			}

			t := newTable()
			t.AppendHeader(table.Row{"ID", "Title", "State", "Updated", "Error"})
			for _, video := range videos {
				t.AppendRow(table.Row{
					video.ID,
					truncate(video.Title, 40),
					video.State,
					video.UpdatedAt.Local().Format("2006-01-02 15:04"),
					truncate(video.ErrorMessage, 60),
				})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&stateFilter, "state", "", "only show videos in this state")
	return cmd
}
