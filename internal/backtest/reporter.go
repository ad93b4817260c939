package backtest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yourusername/goalcast/internal/models"
)

// GenerateConsoleReport formats a run for terminal output
func GenerateConsoleReport(result *Result, assessment Assessment) string {
	s := result.Summary
	var builder strings.Builder
	builder.WriteString("Backtest Report\n")
	builder.WriteString("================\n")
	builder.WriteString(fmt.Sprintf("Run: %s (%s)\n", result.Run.ID, result.Run.Mode))
	builder.WriteString(fmt.Sprintf("Matches Evaluated: %d\n", result.Run.Matches))
	builder.WriteString(fmt.Sprintf("Bets: %d (W %d / L %d / P %d)\n", s.Bets, s.Wins, s.Losses, s.Pushes))
	builder.WriteString(fmt.Sprintf("Turnover: %.2f\n", s.Turnover))
	builder.WriteString(fmt.Sprintf("Total P&L: %.2f\n", s.TotalPnL))
	builder.WriteString(fmt.Sprintf("ROI: %.2f%%\n", s.ROI*100))
	builder.WriteString(fmt.Sprintf("Hit Rate: %.2f%%\n", s.HitRate*100))
	builder.WriteString(fmt.Sprintf("Sharpe (per bet): %.3f\n", s.Sharpe))
	builder.WriteString(fmt.Sprintf("Max Drawdown: %.2f%%\n", s.MaxDrawdown*100))
	builder.WriteString(fmt.Sprintf("Bankroll Volatility (per bet): %.2f%%\n", s.Volatility*100))
	builder.WriteString(fmt.Sprintf("Final Bankroll: %.2f\n", s.FinalBankroll))
	builder.WriteString(fmt.Sprintf("Profit Factor: %.2f\n", s.ProfitFactor))

	if len(s.ByMarket) > 0 {
		builder.WriteString("\nBy Market\n")
		for _, m := range models.Markets {
			ms, ok := s.ByMarket[m]
			if !ok {
				continue
			}
			builder.WriteString(fmt.Sprintf("  %-3s bets=%d pnl=%.2f roi=%.2f%% hit=%.2f%%\n",
				m, ms.Bets, ms.PnL, ms.ROI*100, ms.HitRate*100))
		}
	}

	if len(result.Skips) > 0 {
		builder.WriteString("\nSkipped Matches\n")
		reasons := make([]string, 0, len(result.Skips))
		for reason := range result.Skips {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			builder.WriteString(fmt.Sprintf("  %s: %d\n", reason, result.Skips[reason]))
		}
	}

	if len(result.Windows) > 0 {
		builder.WriteString(fmt.Sprintf("\nModel Fits: %d (%.0f%% converged)\n",
			len(result.Windows), ConvergenceRate(result.Windows)*100))
	}
	if mc := assessment.MonteCarlo; mc != nil {
		builder.WriteString(fmt.Sprintf("Monte Carlo (%d paths): mean return %.2f%%, VaR95 %.2f%%, P(profit) %.2f\n",
			mc.Iterations, mc.MeanReturn*100, mc.VaR95*100, mc.ProbabilityOfProfit))
	}
	builder.WriteString(fmt.Sprintf("\nComposite Score: %.2f\n", assessment.CompositeScore))
	builder.WriteString(fmt.Sprintf("Recommendation: %s\n", assessment.Recommendation))
	return builder.String()
}

// GenerateHTMLReport creates a simple HTML report
func GenerateHTMLReport(result *Result, assessment Assessment, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}

	s := result.Summary
	html := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><title>Backtest Report</title></head>
<body>
<h1>Backtest Report</h1>
<p><strong>Mode:</strong> %s</p>
<p><strong>Bets:</strong> %d</p>
<p><strong>Total P&amp;L:</strong> %.2f</p>
<p><strong>ROI:</strong> %.2f%%</p>
<p><strong>Sharpe:</strong> %.3f</p>
<p><strong>Max Drawdown:</strong> %.2f%%</p>
<p><strong>Hit Rate:</strong> %.2f%%</p>
<p><strong>Composite Score:</strong> %.2f</p>
<p><strong>Recommendation:</strong> %s</p>
</body>
</html>`,
		result.Run.Mode,
		s.Bets,
		s.TotalPnL,
		s.ROI*100,
		s.Sharpe,
		s.MaxDrawdown*100,
		s.HitRate*100,
		assessment.CompositeScore,
		assessment.Recommendation,
	)

	return os.WriteFile(outputPath, []byte(html), 0o644)
}

// WriteSummaryJSON writes the run header, summary, windows and assessment as JSON
func WriteSummaryJSON(result *Result, assessment Assessment, outputPath string) error {
	if outputPath == "" {
		return fmt.Errorf("output path is required")
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	payload := struct {
		*Result
		Assessment Assessment `json:"assessment"`
	}{result, assessment}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	return os.WriteFile(outputPath, data, 0o644)
}
