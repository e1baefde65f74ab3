package sports247

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"recruits/internal/batch"
	"recruits/internal/browser"
	"recruits/internal/config"
	"recruits/internal/diagnostics"
	"recruits/internal/fetcher"
	"recruits/internal/metrics"
	"recruits/internal/record"
)

// ErrNoRecords means a run produced no records across all seasons.
var ErrNoRecords = errors.New("no records scraped")

// Session is a chunk-scoped rendering context.
type Session interface {
	fetcher.Opener
	Close() error
}

// Engine hands out pages for discovery and sessions for profile chunks.
type Engine interface {
	Opener() fetcher.Opener
	NewSession(ctx context.Context) (Session, error)
}

// BrowserEngine is the Engine backed by a launched browser.
type BrowserEngine struct {
	b *browser.Browser
}

// NewBrowserEngine wraps b.
func NewBrowserEngine(b *browser.Browser) *BrowserEngine {
	return &BrowserEngine{b: b}
}

func (e *BrowserEngine) Opener() fetcher.Opener { return fetcher.RodOpener(e.b) }

func (e *BrowserEngine) NewSession(ctx context.Context) (Session, error) {
	s, err := e.b.Session()
	if err != nil {
		return nil, err
	}
	return &browserSession{Opener: fetcher.RodOpener(s), s: s}, nil
}

type browserSession struct {
	fetcher.Opener
	s *browser.Session
}

func (b *browserSession) Close() error { return b.s.Close() }

// Runner scrapes every configured season in order.
type Runner struct {
	cfg     *config.Config
	engine  Engine
	logger  *zap.Logger
	diag    *diagnostics.Writer
	metrics *metrics.Recorder
}

// NewRunner creates a Runner. diag and rec may be nil.
func NewRunner(cfg *config.Config, engine Engine, logger *zap.Logger, diag *diagnostics.Writer, rec *metrics.Recorder) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{cfg: cfg, engine: engine, logger: logger, diag: diag, metrics: rec}
}

// Run discovers and scrapes each season, returning the records of all
// seasons in season order then discovery order. A season whose discovery
// fails contributes nothing; ErrNoRecords is returned when no season
// contributed anything.
func (r *Runner) Run(ctx context.Context) ([]record.Athlete, error) {
	policy, err := r.cfg.Policy()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}

	walker := NewWalker(r.engine.Opener(), DiscoveryOptions{
		BaseURL:           r.cfg.BaseURL,
		MaxClicks:         r.cfg.MaxClicks(),
		Limit:             r.cfg.ProfileLimit(),
		LoadRetries:       r.cfg.Discovery.LoadRetries,
		NavigationTimeout: r.cfg.Timeouts.RankingNavigation,
		InitialSettle:     r.cfg.Timeouts.InitialSettle,
		ClickSettle:       r.cfg.Timeouts.ClickSettle,
	}, r.logger.Named("discovery"), r.diag, r.metrics)

	profiles := NewProfileScraper(ProfileOptions{
		BaseURL:          r.cfg.BaseURL,
		Timeout:          r.cfg.Timeouts.Navigation,
		Settle:           r.cfg.Timeouts.ProfileSettle,
		MaxTimelinePages: r.cfg.Timeline.MaxPages,
	}, policy, r.logger.Named("profile"), r.diag, r.metrics)

	var all []record.Athlete
	for _, season := range r.cfg.Seasons {
		if err := ctx.Err(); err != nil {
			break
		}
		d, err := walker.Discover(ctx, season)
		if err != nil {
			r.logger.Error("Discovery failed", zap.Int("season", season), zap.Error(err))
			continue
		}
		if len(d.Locators) == 0 {
			r.logger.Warn("No profiles discovered", zap.Int("season", season))
			continue
		}
		all = append(all, r.scrapeSeason(ctx, profiles, season, d.Locators)...)
	}

	if len(all) == 0 {
		return nil, ErrNoRecords
	}
	return all, nil
}

func (r *Runner) scrapeSeason(ctx context.Context, profiles *ProfileScraper, season int, locators []string) []record.Athlete {
	log := r.logger.Named("batch").With(zap.Int("season", season))
	total := len(locators)
	var done atomic.Int64

	report := func(a record.Athlete) {
		n := done.Add(1)
		log.Info(fmt.Sprintf("[%d/%d] %s | %s | %s stars", n, total, a.Name, a.Position, a.Composite.Stars))
	}

	task := func(ctx context.Context, sess Session, url string) (record.Athlete, error) {
		a, err := profiles.Scrape(ctx, sess, season, url)
		if err == nil {
			report(a)
		}
		return a, err
	}
	fallback := func(url string, err error) record.Athlete {
		a := profiles.Fallback(season, url)
		log.Warn("Profile failed", zap.String("url", url), zap.Error(err))
		report(a)
		return a
	}

	sched := batch.New(r.cfg.Width, r.engine.NewSession, task, fallback, batch.Options{
		Logger: log,
		OnProgress: func(p batch.Progress) {
			r.metrics.SetResidentMemory(p.RSS)
			log.Info("Chunk complete",
				zap.Int("chunk", p.Chunk),
				zap.Int("chunks", p.Chunks),
				zap.Int("done", p.Done),
				zap.Int("failed", p.Failed),
				zap.Duration("elapsed", p.Elapsed.Round(time.Millisecond)),
				zap.Uint64("rss_mb", p.RSS>>20),
			)
		},
		Observer: r.metrics,
	})
	return sched.Run(ctx, locators)
}
