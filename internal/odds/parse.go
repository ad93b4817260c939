package odds

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/yourusername/goalcast/internal/models"
)

// ParseDecimal parses a decimal price column value.
// Empty strings return nil (not quoted); prices <= 1 return ErrInvalidOdds.
func ParseDecimal(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "NA") || strings.EqualFold(s, "NaN") {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidOdds, s)
	}
	if d.LessThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("%w: %s must exceed 1.0", models.ErrInvalidOdds, d.String())
	}
	v, _ := d.Float64()
	return &v, nil
}

// ParseLine parses a handicap or totals line, which may be zero or negative
func ParseLine(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "NA") {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid line %q: %w", s, err)
	}
	// Lines are quoted in quarter-goal steps
	if !d.Mul(decimal.NewFromInt(4)).IsInteger() {
		return nil, fmt.Errorf("line %s is not a quarter-goal multiple", d.String())
	}
	v, _ := d.Float64()
	return &v, nil
}
