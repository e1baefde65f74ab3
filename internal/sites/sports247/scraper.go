package sports247

import (
	"context"
	"fmt"

	"recruits/internal/browser"
	"recruits/internal/config"
	"recruits/internal/scraper"
)

func init() {
	scraper.Register(&Scraper{})
}

// Scraper implements scraper.Scraper for 247Sports composite rankings.
type Scraper struct {
	// newEngine is replaced in tests.
	newEngine func(cfg *config.Config) (Engine, func(), error)
}

func (s *Scraper) Name() string {
	return "sports247"
}

func (s *Scraper) Scrape(ctx context.Context, opts scraper.Options) (scraper.Content, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("%w: missing config", config.ErrInvalidConfig)
	}
	newEngine := s.newEngine
	if newEngine == nil {
		newEngine = launchEngine
	}

	engine, closeEngine, err := newEngine(opts.Config)
	if err != nil {
		return nil, err
	}
	defer closeEngine()

	records, err := NewRunner(opts.Config, engine, opts.Logger, opts.Diagnostics, opts.Metrics).Run(ctx)
	if err != nil {
		return nil, err
	}
	return NewContent(records, opts.Config.Seasons), nil
}

func launchEngine(cfg *config.Config) (Engine, func(), error) {
	b, err := browser.New(browser.Config{
		ProxyURL: cfg.ProxyURL,
		Headless: cfg.Headless,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create browser: %w", err)
	}
	return NewBrowserEngine(b), func() { _ = b.Close() }, nil
}
