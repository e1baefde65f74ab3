package sports247

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"recruits/internal/diagnostics"
	"recruits/internal/extractor"
	"recruits/internal/fetcher"
	"recruits/internal/metrics"
	"recruits/internal/record"
	"recruits/internal/timeline"
)

// ProfileOptions bounds the work done per profile.
type ProfileOptions struct {
	BaseURL          string
	Timeout          time.Duration
	Settle           time.Duration
	MaxTimelinePages int
}

// ProfileScraper turns one profile locator into a record.
type ProfileScraper struct {
	opts    ProfileOptions
	policy  timeline.Policy
	logger  *zap.Logger
	diag    *diagnostics.Writer
	metrics *metrics.Recorder
	now     func() time.Time
}

// NewProfileScraper creates a ProfileScraper. diag and rec may be nil.
func NewProfileScraper(opts ProfileOptions, policy timeline.Policy, logger *zap.Logger, diag *diagnostics.Writer, rec *metrics.Recorder) *ProfileScraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileScraper{
		opts:    opts,
		policy:  policy,
		logger:  logger,
		diag:    diag,
		metrics: rec,
		now:     time.Now,
	}
}

// Fallback is the record emitted for a locator whose scrape failed outright.
func (s *ProfileScraper) Fallback(season int, url string) record.Athlete {
	return record.New(season, url, s.now())
}

// Scrape loads the player page at url, follows it to the recruiting profile,
// extracts the header fields and ratings, and reconciles the abbreviated and
// full timelines. Only a failure to open or load the page is returned as an
// error; extraction failures leave the affected fields NA.
func (s *ProfileScraper) Scrape(ctx context.Context, opener fetcher.Opener, season int, url string) (record.Athlete, error) {
	a := record.New(season, url, s.now())
	log := s.logger.With(zap.Int("season", season), zap.String("id", a.ID))

	res, err := fetcher.NewFetcher(opener).Fetch(ctx, url, fetcher.WaitStrategyTime, fetcher.Millis(s.opts.Settle), s.opts.Timeout)
	if err != nil {
		return a, err
	}
	page := res.Page
	defer page.Close()

	if href, ok := recruitingProfileLink(ctx, page); ok {
		target := ResolveURL(s.opts.BaseURL, href)
		log.Debug("Following recruiting profile link", zap.String("url", target))
		if err := page.Navigate(ctx, target, s.opts.Timeout); err != nil {
			return a, err
		}
		if err := fetcher.Settle(ctx, s.opts.Settle); err != nil {
			return a, err
		}
	}

	html, err := page.HTML(ctx)
	if err != nil {
		return a, fmt.Errorf("failed to read profile: %w", err)
	}
	doc, err := extractor.Document(html)
	if err != nil {
		s.save(a.ID, html)
		return a, nil
	}

	if err := ParseProfile(doc, &a); err != nil {
		log.Warn("Profile extraction failed", zap.Error(err))
		s.save(a.ID, html)
	}

	rec := timeline.NewReconciler(season, s.policy)
	state := applyFragments(rec, timeline.New(), TimelineTexts(doc.Selection), s.metrics)

	if href, ok := SeeAllLink(doc.Selection); ok && s.opts.MaxTimelinePages > 0 {
		pager := &Pager{
			BaseURL:  s.opts.BaseURL,
			MaxPages: s.opts.MaxTimelinePages,
			Timeout:  s.opts.Timeout,
			Settle:   s.opts.Settle,
			Metrics:  s.metrics,
		}
		var pages int
		state, pages, err = pager.Walk(ctx, page, href, rec, state)
		if err != nil {
			// partial history is kept
			log.Debug("Timeline paging stopped", zap.Int("pages", pages), zap.Error(err))
		}
	}
	state.ApplyTo(&a)

	if a.Commitment.Destination == record.NA {
		if dest, ok := BannerDestination(doc.Selection); ok {
			a.Commitment.Destination = dest
		}
	}
	return a, nil
}

func (s *ProfileScraper) save(id, html string) {
	if _, err := s.diag.SavePage(id, html); err != nil {
		s.logger.Debug("Failed to save diagnostic page", zap.String("id", id), zap.Error(err))
	}
}

// recruitingProfileLink finds the link from a player page to the recruiting
// profile. Pages that already are the recruiting profile have none.
func recruitingProfileLink(ctx context.Context, page fetcher.Page) (string, bool) {
	els, err := page.Elements(ctx, "a")
	if err != nil {
		return "", false
	}
	for _, el := range els {
		text, err := el.Text()
		if err != nil {
			continue
		}
		lower := strings.ToLower(text)
		if !strings.Contains(lower, "recruiting profile") {
			continue
		}
		if href, ok, _ := el.Attribute("href"); ok && strings.TrimSpace(href) != "" {
			return href, true
		}
	}
	return "", false
}
