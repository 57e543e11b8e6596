package main

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"cliplift/internal/config"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Manage watch directories",
	}
	cmd.AddCommand(newWatchAddCmd(), newWatchListCmd(), newWatchSetActiveCmd("enable", true), newWatchSetActiveCmd("disable", false))
	return cmd
}

func newWatchAddCmd() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "add <directory>",
		Short: "Register a directory to poll for new videos",
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
			dir, err := app.store.AddWatchDirectory(cmd.Context(), user, path)
			if err != nil {
				return err
			}
			fmt.Printf("watching %s (id %d)\n", dir.DirectoryPath, dir.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "local", "owning user id")
	return cmd
}

func newWatchListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List watch directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp()
			if err != nil {
				return err
			}
			defer app.Close()

			dirs, err := app.store.ListWatchDirectories(cmd.Context(), false)
			if err != nil {
				return err
			}

			t := newTable()
			t.AppendHeader(table.Row{"ID", "User", "Directory", "Active"})
			for _, dir := range dirs {
				t.AppendRow(table.Row{dir.ID, dir.UserID, dir.DirectoryPath, dir.IsActive})
			}
			t.Render()
			return nil
		},
	}
}

func newWatchSetActiveCmd(use string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: fmt.Sprintf("%s polling for a watch directory", use),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return err
			}

			app, err := loadApp()
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.store.SetWatchDirectoryActive(cmd.Context(), id, active); err != nil {
				return err
			}
			fmt.Printf("watch directory %d %sd\n", id, use)
			return nil
		},
	}
}
