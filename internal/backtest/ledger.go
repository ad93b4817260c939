package backtest

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"github.com/yourusername/goalcast/internal/models"
)

// LedgerHeader is the column order of the ledger CSV
var LedgerHeader = []string{
	"date", "league", "home", "away", "market", "selection", "line",
	"odds_open", "stake", "result", "pnl", "equity", "p_model", "p_mkt",
}

// WriteLedgerCSV writes the ledger with LedgerHeader. Money columns are
// rounded to four places, probabilities to six; a missing line or market
// probability is an empty cell.
func WriteLedgerCSV(w io.Writer, entries []models.LedgerEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(LedgerHeader); err != nil {
		return fmt.Errorf("failed to write ledger header: %w", err)
	}
	for i, e := range entries {
		line := ""
		if e.Line != nil {
			line = decimal.NewFromFloat(*e.Line).String()
		}
		record := []string{
			e.Date.Format("2006-01-02"),
			e.League,
			e.HomeTeam,
			e.AwayTeam,
			string(e.Market),
			string(e.Selection),
			line,
			decimal.NewFromFloat(e.Odds).String(),
			money(e.Stake),
			string(e.Result),
			money(e.PnL),
			money(e.Equity),
			probability(e.ModelProb),
			probability(e.MarketProb),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write ledger row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteLedgerFile writes the ledger CSV to path, creating parent directories
func WriteLedgerFile(path string, entries []models.LedgerEntry) error {
	if path == "" {
		return fmt.Errorf("output path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create ledger file: %w", err)
	}
	if err := WriteLedgerCSV(f, entries); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func money(v float64) string {
	return decimal.NewFromFloat(v).Round(4).String()
}

func probability(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return decimal.NewFromFloat(v).Round(6).String()
}
