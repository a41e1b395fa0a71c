package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"CaseScanner/internal/app"
	"CaseScanner/internal/config"
	"CaseScanner/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "casescanner",
	Short:         "Reconcile legal-case notifications with the portal",
	Long:          `casescanner extracts case notifications from the legal portal, captures the activities and documents dated around each notification and keeps an execution log of every run.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (defaults to $CASE_SCANNER_CONFIG)")

	rootCmd.AddCommand(runCmd, listCmd, showCmd, typesCmd, logsCmd, archiveCmd, unarchiveCmd)
}

func loadConfig() config.Config {
	return config.Load(configPath)
}

func openApp(ctx context.Context, cfg config.Config) (*app.Application, *slog.Logger, error) {
	logger := logging.NewWithWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return application, logger, nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
