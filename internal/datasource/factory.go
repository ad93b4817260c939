package datasource

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/goalcast/internal/config"
	"github.com/yourusername/goalcast/internal/logger"
	"github.com/yourusername/goalcast/internal/models"
)

// SourceType represents the type of data source
type SourceType string

const (
	// FileSourceType reads a local CSV
	FileSourceType SourceType = "file"
	// HTTPSourceType downloads the CSV
	HTTPSourceType SourceType = "http"
)

// FileSource loads a local feature table
type FileSource struct {
	Path    string
	Options LoadOptions
}

// Load implements Source
func (s FileSource) Load(ctx context.Context) ([]models.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadFile(s.Path, s.Options)
}

// Name implements Source
func (s FileSource) Name() string {
	return s.Path
}

// HTTPSource downloads a feature table, e.g. a football-data.co.uk season file
type HTTPSource struct {
	URL     string
	Fetcher *Fetcher
	Options LoadOptions
}

// Load implements Source
func (s HTTPSource) Load(ctx context.Context) ([]models.Match, error) {
	data, err := s.Fetcher.Fetch(ctx, s.URL)
	if err != nil {
		return nil, err
	}
	matches, err := LoadCSV(bytes.NewReader(data), s.Options)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.URL, err)
	}
	return matches, nil
}

// Name implements Source
func (s HTTPSource) Name() string {
	return s.URL
}

// Factory creates Source implementations based on configuration
type Factory struct {
	logger *logrus.Logger
}

// NewFactory creates a new data source factory
func NewFactory(log *logrus.Logger) *Factory {
	if log == nil {
		log = logger.Discard()
	}
	return &Factory{logger: log}
}

// TypeOf reports which source a data config selects; a path wins over a URL
func TypeOf(cfg config.DataConfig) (SourceType, error) {
	switch {
	case cfg.Path != "":
		return FileSourceType, nil
	case cfg.URL != "":
		return HTTPSourceType, nil
	default:
		return "", fmt.Errorf("no data path or url configured")
	}
}

// NewSource builds the source selected by cfg
func (f *Factory) NewSource(cfg config.DataConfig) (Source, error) {
	opts, err := f.LoadOptions(cfg)
	if err != nil {
		return nil, err
	}
	kind, err := TypeOf(cfg)
	if err != nil {
		return nil, err
	}

	switch kind {
	case FileSourceType:
		f.logger.WithField("path", cfg.Path).Debug("Using file data source")
		return FileSource{Path: cfg.Path, Options: opts}, nil
	default:
		f.logger.WithField("url", cfg.URL).Debug("Using HTTP data source")
		return HTTPSource{
			URL:     cfg.URL,
			Fetcher: NewFetcher(HTTPClientConfigFrom(cfg), f.logger),
			Options: opts,
		}, nil
	}
}

// LoadOptions converts the data config into loader options
func (f *Factory) LoadOptions(cfg config.DataConfig) (LoadOptions, error) {
	opts := LoadOptions{League: cfg.League, Strict: cfg.StrictRows, Logger: f.logger}
	var err error
	if cfg.ExcludeBefore != "" {
		if opts.ExcludeBefore, err = time.Parse("2006-01-02", cfg.ExcludeBefore); err != nil {
			return LoadOptions{}, fmt.Errorf("exclude_before: %w", err)
		}
	}
	if cfg.ExcludeAfter != "" {
		if opts.ExcludeAfter, err = time.Parse("2006-01-02", cfg.ExcludeAfter); err != nil {
			return LoadOptions{}, fmt.Errorf("exclude_after: %w", err)
		}
		// The bound is inclusive of the whole day
		opts.ExcludeAfter = opts.ExcludeAfter.Add(24*time.Hour - time.Nanosecond)
	}
	return opts, nil
}
