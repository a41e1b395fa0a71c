package main

import (
	"github.com/spf13/cobra"

	"CaseScanner/internal/report"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the latest execution logs",
	RunE:  runLogs,
}

var logsLimit int

func init() {
	logsCmd.Flags().IntVar(&logsLimit, "limit", 20, "Number of runs to show")
}

func runLogs(cmd *cobra.Command, args []string) error {
	application, _, err := openApp(cmd.Context(), loadConfig())
	if err != nil {
		return err
	}
	defer application.Close()

	logs, err := application.Archiver().Logs(cmd.Context(), logsLimit)
	if err != nil {
		return err
	}
	report.WriteLogs(cmd.OutOrStdout(), logs, application.Location())
	return nil
}
