// Package main prices a single fixture with a model fitted on the configured history.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/yourusername/goalcast/internal/cli"
	"github.com/yourusername/goalcast/internal/service"
)

var (
	configFile string
	dataPath   string
	homeTeam   string
	awayTeam   string
	league     string
	date       string
	eloHome    float64
	eloAway    float64
	ahLine     float64
	ouLine     float64
	format     string
)

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	f.StringVar(&dataPath, "data", "", "Path to the match CSV (overrides data.path)")
	f.StringVar(&homeTeam, "home", "", "Home team")
	f.StringVar(&awayTeam, "away", "", "Away team")
	f.StringVar(&league, "league", "", "League code")
	f.StringVar(&date, "date", "", "Kick-off date YYYY-MM-DD; history on or after it is ignored (default today)")
	f.Float64Var(&eloHome, "elo-home", 0, "Home Elo rating")
	f.Float64Var(&eloAway, "elo-away", 0, "Away Elo rating")
	f.Float64Var(&ahLine, "ah-line", 0, "Asian handicap line from the home side; omit to skip the market")
	f.Float64Var(&ouLine, "ou-line", 0, "Over/under line (default data.default_over_under_line)")
	f.StringVarP(&format, "format", "f", "json", "Output format: json or yaml")
	_ = rootCmd.MarkFlagRequired("home")
	_ = rootCmd.MarkFlagRequired("away")
}

var rootCmd = &cobra.Command{
	Use:           "predict",
	Short:         "Print 1X2, over/under and Asian handicap probabilities for a fixture",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := cli.LoadConfig(ctx, configFile, cli.ConfigOverrides{DataPath: dataPath})
		if err != nil {
			return err
		}
		logger := cli.NewLogger(cfg)

		fixture := service.Fixture{
			League:        league,
			HomeTeam:      homeTeam,
			AwayTeam:      awayTeam,
			EloHome:       eloHome,
			EloAway:       eloAway,
			OverUnderLine: ouLine,
			Date:          time.Now().UTC(),
		}
		if date != "" {
			if fixture.Date, err = time.Parse("2006-01-02", date); err != nil {
				return fmt.Errorf("invalid --date: %w", err)
			}
		}
		if cmd.Flags().Changed("ah-line") {
			line := ahLine
			fixture.AHLine = &line
		}

		history, _, err := service.NewBacktestService(cfg, nil, logger).LoadMatches(ctx)
		if err != nil {
			return err
		}
		predictor, err := service.NewPredictionService(cfg, logger)
		if err != nil {
			return err
		}
		prediction, err := predictor.Predict(ctx, history, fixture)
		if err != nil {
			return err
		}
		return render(os.Stdout, prediction, format)
	},
}

func render(w io.Writer, p *service.Prediction, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(p); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatalf("Error: %v", err)
	}
}
