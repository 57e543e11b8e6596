package main

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newLogsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logs <video-id>",
		Short: "Show the processing history for a video",
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

			entries, err := app.store.LogForVideo(cmd.Context(), videoID)
			if err != nil {
				return err
			}

			t := newTable()
			t.AppendHeader(table.Row{"Time", "Step", "Status", "Message"})
			for _, entry := range entries {
				t.AppendRow(table.Row{
					entry.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					entry.Step,
					entry.Status,
					truncate(entry.Message, 80),
				})
			}
			t.Render()
			return nil
		},
	}
}
