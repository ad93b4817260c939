package datasource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/goalcast/internal/logger"
	"github.com/yourusername/goalcast/internal/models"
	"github.com/yourusername/goalcast/internal/odds"
)

// FormPrefix marks rolling-form covariate columns, e.g. form_gd5_home
const FormPrefix = "form_"

// dateLayouts are tried in order; football-data uses both day-first forms
var dateLayouts = []string{"02/01/2006", "02/01/06", "2006-01-02", time.RFC3339}

// Required and optional single columns, each with its accepted headers
var (
	colDate      = []string{"Date"}
	colKickoff   = []string{"Time"}
	colHome      = []string{"HomeTeam", "Home"}
	colAway      = []string{"AwayTeam", "Away"}
	colHomeGoals = []string{"FTHG", "HG"}
	colAwayGoals = []string{"FTAG", "AG"}
	colLeague    = []string{"League", "Div"}
	colEloHome   = []string{"EloHome", "HomeElo"}
	colEloAway   = []string{"EloAway", "AwayElo"}
	colOULine    = []string{"OULine"}
	colAHLine    = []string{"AHh", "AHLine"}
)

// fixedOverUnderLine is the line of the football-data >2.5/<2.5 columns
const fixedOverUnderLine = 2.5

// Odds families; the first family whose columns are all present is used so
// prices within a market always come from one book
var (
	oneXTwoFamilies = [][3]string{
		{"B365H", "B365D", "B365A"},
		{"PSH", "PSD", "PSA"},
		{"OddsH", "OddsD", "OddsA"},
		{"AvgH", "AvgD", "AvgA"},
	}
	// priced at the fixed 2.5 goal line
	overUnderFamilies = [][2]string{
		{"B365>2.5", "B365<2.5"},
		{"Over25", "Under25"},
		{"P>2.5", "P<2.5"},
		{"Avg>2.5", "Avg<2.5"},
	}
	// priced at the row's OULine
	quotedOverUnderFamilies = [][2]string{
		{"OUOver", "OUUnder"},
		{"OverOdds", "UnderOdds"},
	}
	asianFamilies = [][2]string{
		{"B365AHH", "B365AHA"},
		{"AHHome", "AHAway"},
		{"PAHH", "PAHA"},
		{"AvgAHH", "AvgAHA"},
	}
)

// LoadOptions controls how a feature table is read
type LoadOptions struct {
	// League is used when the table has no League/Div column
	League string
	// Strict aborts on the first malformed row; otherwise such rows are logged and dropped
	Strict        bool
	ExcludeBefore time.Time
	ExcludeAfter  time.Time
	Logger        *logrus.Logger
}

// LoadStats counts what happened to each data row
type LoadStats struct {
	Rows     int `json:"rows"`
	Loaded   int `json:"loaded"`
	Dropped  int `json:"dropped"`
	Filtered int `json:"filtered"`
	Blank    int `json:"blank"`
}

// columns maps canonical fields to record indexes; -1 means absent
type columns struct {
	date, kickoff, home, away, homeGoals, awayGoals int
	league, eloHome, eloAway, ouLine, ahLine        int
	oneXTwo                                         [3]int
	overUnder, asian                                [2]int
	// ouQuoted means the totals prices follow the OULine column
	ouQuoted bool
	form     map[string]int
}

// LoadCSV parses a football-data style feature table into matches, in file order
func LoadCSV(r io.Reader, opts LoadOptions) ([]models.Match, error) {
	matches, _, err := LoadCSVWithStats(r, opts)
	return matches, err
}

// LoadCSVWithStats is LoadCSV that also reports per-row accounting
func LoadCSVWithStats(r io.Reader, opts LoadOptions) ([]models.Match, LoadStats, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	var stats LoadStats

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, stats, fmt.Errorf("%w: empty file", models.ErrMissingColumn)
		}
		return nil, stats, fmt.Errorf("failed to read header: %w", err)
	}
	cols, err := resolveColumns(header)
	if err != nil {
		return nil, stats, err
	}

	var matches []models.Match
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("%w: %v", models.ErrMalformedRow, err)
		}
		line, _ := reader.FieldPos(0)
		if blankRecord(record) {
			stats.Blank++
			continue
		}
		stats.Rows++

		m, err := cols.parse(record, opts.League, log)
		if err == nil {
			err = m.Validate()
		}
		if err != nil {
			if opts.Strict {
				return nil, stats, fmt.Errorf("line %d: %w", line, err)
			}
			stats.Dropped++
			log.WithFields(logrus.Fields{"line": line, "error": err}).Warn("Dropping malformed row")
			continue
		}
		if excluded(m.Date, opts) {
			stats.Filtered++
			continue
		}
		matches = append(matches, m)
	}
	stats.Loaded = len(matches)

	log.WithFields(logrus.Fields{
		"rows":     stats.Rows,
		"loaded":   stats.Loaded,
		"dropped":  stats.Dropped,
		"filtered": stats.Filtered,
	}).Info("Loaded feature table")
	return matches, stats, nil
}

// LoadFile opens path and parses it with LoadCSV
func LoadFile(path string, opts LoadOptions) ([]models.Match, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	matches, err := LoadCSV(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return matches, nil
}

func resolveColumns(header []string) (columns, error) {
	idx := make(map[string]int, len(header))
	c := columns{form: make(map[string]int)}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			continue
		}
		if _, dup := idx[strings.ToLower(h)]; !dup {
			idx[strings.ToLower(h)] = i
		}
		if len(h) > len(FormPrefix) && strings.EqualFold(h[:len(FormPrefix)], FormPrefix) {
			c.form[strings.ToLower(h[len(FormPrefix):])] = i
		}
	}
	find := func(names []string) int {
		for _, n := range names {
			if i, ok := idx[strings.ToLower(n)]; ok {
				return i
			}
		}
		return -1
	}

	required := []struct {
		names []string
		dst   *int
	}{
		{colDate, &c.date},
		{colHome, &c.home},
		{colAway, &c.away},
		{colHomeGoals, &c.homeGoals},
		{colAwayGoals, &c.awayGoals},
	}
	for _, r := range required {
		*r.dst = find(r.names)
		if *r.dst < 0 {
			return columns{}, fmt.Errorf("%w: %s", models.ErrMissingColumn, strings.Join(r.names, " or "))
		}
	}

	c.kickoff = find(colKickoff)
	c.league = find(colLeague)
	c.eloHome = find(colEloHome)
	c.eloAway = find(colEloAway)
	if (c.eloHome < 0) != (c.eloAway < 0) {
		return columns{}, fmt.Errorf("%w: ratings need both %s and %s",
			models.ErrMissingColumn, strings.Join(colEloHome, " or "), strings.Join(colEloAway, " or "))
	}
	c.ouLine = find(colOULine)
	c.ahLine = find(colAHLine)

	c.oneXTwo = [3]int{-1, -1, -1}
	for _, fam := range oneXTwoFamilies {
		h, d, a := find(fam[:1]), find(fam[1:2]), find(fam[2:])
		if h >= 0 && d >= 0 && a >= 0 {
			c.oneXTwo = [3]int{h, d, a}
			break
		}
	}
	c.overUnder = pairFamily(overUnderFamilies, find)
	if c.ouLine >= 0 {
		if quoted := pairFamily(quotedOverUnderFamilies, find); quoted[0] >= 0 {
			c.overUnder = quoted
			c.ouQuoted = true
		}
	}
	c.asian = pairFamily(asianFamilies, find)
	return c, nil
}

func pairFamily(families [][2]string, find func([]string) int) [2]int {
	for _, fam := range families {
		a, b := find(fam[:1]), find(fam[1:])
		if a >= 0 && b >= 0 {
			return [2]int{a, b}
		}
	}
	return [2]int{-1, -1}
}

func (c columns) parse(rec []string, defaultLeague string, log *logrus.Logger) (models.Match, error) {
	var m models.Match
	var err error

	if m.Date, err = parseDate(field(rec, c.date), field(rec, c.kickoff)); err != nil {
		return m, err
	}
	m.HomeTeam = field(rec, c.home)
	m.AwayTeam = field(rec, c.away)
	if m.HomeGoals, err = parseGoals(field(rec, c.homeGoals)); err != nil {
		return m, fmt.Errorf("home goals: %w", err)
	}
	if m.AwayGoals, err = parseGoals(field(rec, c.awayGoals)); err != nil {
		return m, fmt.Errorf("away goals: %w", err)
	}

	m.League = field(rec, c.league)
	if m.League == "" {
		m.League = defaultLeague
	}
	if c.eloHome >= 0 {
		if m.EloHome, err = parseRating(field(rec, c.eloHome)); err != nil {
			return m, fmt.Errorf("home rating: %w", err)
		}
		if m.EloAway, err = parseRating(field(rec, c.eloAway)); err != nil {
			return m, fmt.Errorf("away rating: %w", err)
		}
	}

	if len(c.form) > 0 {
		m.Form = make(map[string]float64, len(c.form))
		for name, i := range c.form {
			raw := field(rec, i)
			if raw == "" {
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return m, fmt.Errorf("%w: form column %s%s = %q", models.ErrMalformedRow, FormPrefix, name, raw)
			}
			m.Form[name] = v
		}
	}

	price := func(i int) *float64 {
		raw := field(rec, i)
		p, err := odds.ParseDecimal(raw)
		if err != nil {
			// Unusable prices only remove that market for this match
			log.WithFields(logrus.Fields{"value": raw, "error": err}).Debug("Ignoring unusable price")
			return nil
		}
		return p
	}
	m.Odds.Home = price(c.oneXTwo[0])
	m.Odds.Draw = price(c.oneXTwo[1])
	m.Odds.Away = price(c.oneXTwo[2])
	m.Odds.Over = price(c.overUnder[0])
	m.Odds.Under = price(c.overUnder[1])
	switch {
	case c.ouQuoted:
		l, err := odds.ParseLine(field(rec, c.ouLine))
		if err == nil && l != nil && *l > 0 {
			m.Odds.OverUnderLine = *l
		} else {
			// Prices without a usable line cannot be matched to a model line
			m.Odds.Over, m.Odds.Under = nil, nil
		}
	case c.overUnder[0] >= 0:
		m.Odds.OverUnderLine = fixedOverUnderLine
	}

	if l, err := odds.ParseLine(field(rec, c.ahLine)); err != nil {
		log.WithFields(logrus.Fields{"value": field(rec, c.ahLine), "error": err}).Debug("Ignoring unusable handicap line")
	} else if l != nil {
		m.Odds.AHLine = l
		m.Odds.AHHome = price(c.asian[0])
		m.Odds.AHAway = price(c.asian[1])
	}
	return m, nil
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func parseDate(day, kickoff string) (time.Time, error) {
	if day == "" {
		return time.Time{}, fmt.Errorf("%w: empty date", models.ErrMalformedRow)
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, day)
		if err != nil {
			continue
		}
		if k, err := time.Parse("15:04", kickoff); err == nil && layout != time.RFC3339 {
			t = t.Add(time.Duration(k.Hour())*time.Hour + time.Duration(k.Minute())*time.Minute)
		}
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: unrecognised date %q", models.ErrMalformedRow, day)
}

func parseGoals(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: empty score", models.ErrMalformedRow)
	}
	// Some exports write goals as floats
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || v != float64(int(v)) {
		return 0, fmt.Errorf("%w: score %q is not a non-negative integer", models.ErrMalformedRow, s)
	}
	return int(v), nil
}

// parseRating requires a finite value; a blank rating would read as 0
func parseRating(s string) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: empty rating", models.ErrMalformedRow)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: rating %q is not a number", models.ErrMalformedRow, s)
	}
	return v, nil
}

func blankRecord(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func excluded(t time.Time, opts LoadOptions) bool {
	if !opts.ExcludeBefore.IsZero() && t.Before(opts.ExcludeBefore) {
		return true
	}
	if !opts.ExcludeAfter.IsZero() && t.After(opts.ExcludeAfter) {
		return true
	}
	return false
}
