// Package main runs configured backtests on a cron schedule behind a health and metrics server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/goalcast/internal/cli"
	"github.com/yourusername/goalcast/internal/health"
	"github.com/yourusername/goalcast/internal/metrics"
	"github.com/yourusername/goalcast/internal/repository"
	"github.com/yourusername/goalcast/internal/scheduler"
	"github.com/yourusername/goalcast/internal/service"
)

var configFile string

func init() {
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
}

var rootCmd = &cobra.Command{
	Use:           "scheduler",
	Short:         "Refresh backtests on a schedule and export their metrics",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func run(ctx context.Context) error {
	cfg, err := cli.LoadConfig(ctx, configFile, cli.ConfigOverrides{})
	if err != nil {
		return err
	}
	logger := cli.NewLogger(cfg)

	db, repos, closeDB, err := cli.OpenRepositories(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDB()

	var runs repository.RunRepository
	hcfg := health.Config{
		ServiceName: "goalcast-scheduler",
		Version:     cli.Version,
		Commit:      cli.GitCommit,
		Port:        strconv.Itoa(cfg.Metrics.Port),
		Logger:      logger,
	}
	if repos != nil {
		runs = repos.Runs
		hcfg.DB = db
	}
	if cfg.Metrics.Enabled {
		hcfg.Metrics = metrics.Handler()
		hcfg.MetricsPath = cfg.Metrics.Path
	}
	server := health.NewServer(hcfg)
	if err := server.Start(ctx); err != nil {
		return err
	}

	svc := service.NewBacktestService(cfg, runs, logger)
	job := func(ctx context.Context) error {
		report, err := svc.Run(ctx, service.RunOptions{
			LedgerPath:  cfg.Backtest.OutputPath,
			SummaryPath: cfg.Backtest.SummaryPath,
			MonteCarlo:  cfg.Backtest.MonteCarloIterations > 0,
			Persist:     runs != nil,
		})
		if err != nil {
			server.RecordRun("", err)
			return err
		}
		server.RecordRun(report.Result.Run.ID.String(), nil)
		logger.WithFields(logrus.Fields{
			"run_id":         report.Result.Run.ID.String(),
			"bets":           report.Result.Summary.Bets,
			"roi":            report.Result.Summary.ROI,
			"recommendation": report.Assessment.Recommendation,
		}).Info("Scheduled backtest finished")
		return nil
	}

	sched := scheduler.NewScheduler(cfg.SchedulerTimeout(), logger)
	if _, err := sched.ScheduleBacktest(cfg.Scheduler.BacktestCron, "backtest", job); err != nil {
		return err
	}
	if err := sched.Start(); err != nil {
		return err
	}
	server.SetReady(true)

	if cfg.Scheduler.RunOnStart {
		go func() { _ = sched.RunNow(ctx, "backtest-on-start", job) }()
	}

	logger.WithField("next_run", sched.GetNextRun().Format(time.RFC3339)).Info("Scheduler running")
	<-ctx.Done()

	server.SetReady(false)
	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := sched.Stop(stopCtx); err != nil {
		logger.WithError(err).Warn("Scheduled job did not finish before shutdown")
	}
	return server.Shutdown()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatalf("Error: %v", err)
	}
}
