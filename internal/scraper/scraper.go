// Package scraper defines the contract between the CLI and a recruiting
// site, and the registry sites add themselves to.
package scraper

import (
	"context"

	"go.uber.org/zap"

	"recruits/internal/config"
	"recruits/internal/diagnostics"
	"recruits/internal/metrics"
	"recruits/internal/record"
)

type Scraper interface {
	Name() string
	Scrape(ctx context.Context, opts Options) (Content, error)
}

// Content is the result of a run, renderable in every text format.
type Content interface {
	Records() []record.Athlete
	ToHTML() (string, error)
	ToText() (string, error)
	ToMarkdown() (string, error)
	ToJSON() ([]byte, error)
	ToCSV() (string, error)
}

type Options struct {
	Config      *config.Config
	Logger      *zap.Logger
	Metrics     *metrics.Recorder   // may be nil
	Diagnostics *diagnostics.Writer // may be nil
}
