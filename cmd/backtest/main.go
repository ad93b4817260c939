// Package main provides the entry point for the backtesting CLI tool.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/goalcast/internal/backtest"
	"github.com/yourusername/goalcast/internal/cli"
	"github.com/yourusername/goalcast/internal/config"
	"github.com/yourusername/goalcast/internal/repository"
	"github.com/yourusername/goalcast/internal/service"
)

var (
	configFile string
	dataPath   string
	logLevel   string
	cfg        *config.Config
	logger     *logrus.Logger
)

var (
	mode        string
	ledgerPath  string
	summaryPath string
	htmlPath    string
	equityPath  string
	persist     bool
	monteCarlo  bool
	listLimit   int
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&dataPath, "data", "", "Path to the match CSV (overrides data.path)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override")

	runCmd.Flags().StringVar(&mode, "mode", "", "Backtest mode: static or walk_forward (overrides backtest.mode)")
	runCmd.Flags().StringVarP(&ledgerPath, "output", "o", "", "Ledger CSV path (overrides backtest.output_path)")
	runCmd.Flags().StringVar(&summaryPath, "summary", "", "Summary JSON path (overrides backtest.summary_path)")
	runCmd.Flags().StringVar(&htmlPath, "html", "", "Optional HTML report path")
	runCmd.Flags().StringVar(&equityPath, "equity", "", "Optional equity curve path (.json or .csv)")
	runCmd.Flags().BoolVar(&persist, "persist", false, "Save the run and ledger to the database")
	runCmd.Flags().BoolVar(&monteCarlo, "monte-carlo", false, "Resample the ledger to estimate the return distribution")

	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 10, "Number of runs to show")

	rootCmd.AddCommand(runCmd, listCmd, showCmd, versionCmd)
}

var rootCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Backtest the goal model and staking rules on historical matches",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd == versionCmd {
			return nil
		}
		var err error
		cfg, err = cli.LoadConfig(cmd.Context(), configFile, cli.ConfigOverrides{DataPath: dataPath, LogLevel: logLevel})
		if err != nil {
			return err
		}
		logger = cli.NewLogger(cfg)
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Replay the configured history and report the results",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		repos, closeDB, err := openIfNeeded(ctx, persist)
		if err != nil {
			return err
		}
		defer closeDB()

		var runs repository.RunRepository
		if repos != nil {
			runs = repos.Runs
		}

		opts := service.RunOptions{
			Mode:        mode,
			LedgerPath:  firstNonEmpty(ledgerPath, cfg.Backtest.OutputPath),
			SummaryPath: firstNonEmpty(summaryPath, cfg.Backtest.SummaryPath),
			HTMLPath:    htmlPath,
			EquityPath:  equityPath,
			MonteCarlo:  monteCarlo || cfg.Backtest.MonteCarloIterations > 0,
			Persist:     persist,
		}
		logger.WithFields(logrus.Fields{
			"mode":    firstNonEmpty(mode, cfg.Backtest.Mode),
			"persist": persist,
		}).Info("Starting backtest")

		report, err := service.NewBacktestService(cfg, runs, logger).Run(ctx, opts)
		if err != nil {
			return err
		}

		fmt.Print(backtest.GenerateConsoleReport(report.Result, report.Assessment))
		logger.WithFields(logrus.Fields{
			"run_id":      report.Result.Run.ID.String(),
			"duration_ms": report.Duration.Milliseconds(),
		}).Info("Backtest completed")
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recent persisted runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		repos, closeDB, err := openIfNeeded(ctx, true)
		if err != nil {
			return err
		}
		defer closeDB()

		runs, err := repos.Runs.GetLatest(ctx, listLimit)
		if err != nil {
			return err
		}
		fmt.Printf("%-36s  %-12s  %-20s  %6s  %8s  %8s\n", "ID", "MODE", "STARTED", "BETS", "ROI", "MAX DD")
		for _, r := range runs {
			fmt.Printf("%-36s  %-12s  %-20s  %6d  %7.2f%%  %7.2f%%\n",
				r.ID, r.Mode, r.StartedAt.Format("2006-01-02 15:04:05"), r.Bets, r.ROI*100, r.MaxDrawdown*100)
		}
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print a persisted run as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid run id: %w", err)
		}
		ctx := cmd.Context()
		repos, closeDB, err := openIfNeeded(ctx, true)
		if err != nil {
			return err
		}
		defer closeDB()

		run, err := repos.Runs.GetByID(ctx, id)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("backtest %s (commit %s, built %s)\n", cli.Version, cli.GitCommit, cli.BuildDate)
	},
}

func openIfNeeded(ctx context.Context, required bool) (*repository.Repositories, func(), error) {
	if !required {
		return nil, func() {}, nil
	}
	if !cfg.Database.Enabled {
		return nil, nil, fmt.Errorf("database.enabled is false")
	}
	_, repos, closeDB, err := cli.OpenRepositories(ctx, cfg, logger)
	return repos, closeDB, err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatalf("Error: %v", err)
	}
}
