package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"CaseScanner/internal/domain"
	"CaseScanner/internal/report"
	"CaseScanner/internal/usecase"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Extract new notifications and reconcile pending cases",
	RunE:  runRun,
}

var (
	runWatch            bool
	runSkipExtraction   bool
	runTestModeFallback bool
)

func init() {
	runCmd.Flags().BoolVar(&runWatch, "watch", false, "Repeat the run on the configured scheduler interval")
	runCmd.Flags().BoolVar(&runSkipExtraction, "skip-extraction", false, "Only reconcile cases already stored")
	runCmd.Flags().BoolVar(&runTestModeFallback, "test-mode-fallback", true, "Replay recently processed cases when nothing is pending")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if cmd.Flags().Changed("test-mode-fallback") {
		enabled := runTestModeFallback
		cfg.Reconcile.TestModeFallback = &enabled
	}
	if err := cfg.Portal.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, logger, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	out := cmd.OutOrStdout()
	printResult := func(entry domain.ExecutionLog, err error) {
		report.WriteSummary(out, entry, application.Location(), !color.NoColor)
		if err != nil {
			logger.Error("run finished with errors", "run_id", entry.RunID, "error", err)
		}
	}

	opts := usecase.RunOptions{SkipExtraction: runSkipExtraction}
	if runWatch {
		return application.Watch(ctx, opts, printResult)
	}

	entry, err := application.Run(ctx, opts)
	printResult(entry, err)
	return err
}
