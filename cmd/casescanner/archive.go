package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var archiveCmd = &cobra.Command{
	Use:   "archive [id]",
	Short: "Archive a processed notification",
	Args:  cobra.ExactArgs(1),
	RunE:  runArchive,
}

var unarchiveCmd = &cobra.Command{
	Use:   "unarchive [id]",
	Short: "Restore an archived notification to its previous status",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnarchive,
}

func runArchive(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	application, _, err := openApp(cmd.Context(), loadConfig())
	if err != nil {
		return err
	}
	defer application.Close()

	if err := application.Archiver().Archive(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s notification %d\n", color.New(color.FgGreen).Sprint("archived"), id)
	return nil
}

func runUnarchive(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	application, _, err := openApp(cmd.Context(), loadConfig())
	if err != nil {
		return err
	}
	defer application.Close()

	if err := application.Archiver().Unarchive(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s notification %d\n", color.New(color.FgGreen).Sprint("restored"), id)
	return nil
}
