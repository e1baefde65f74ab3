package sports247

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"recruits/internal/diagnostics"
	"recruits/internal/extractor"
	"recruits/internal/fetcher"
	"recruits/internal/metrics"
)

// ErrNoListMarker means none of the known ranking list structures matched.
var ErrNoListMarker = errors.New("no known ranking list marker on page")

// StopReason explains why the load-more loop ended.
type StopReason string

const (
	StopAbsent      StopReason = "absent"
	StopHidden      StopReason = "hidden"
	StopCeiling     StopReason = "ceiling"
	StopClickFailed StopReason = "click_failed"
)

// listMarker pairs a list-item structure with the anchors that link to
// profiles inside it. The ranking page markup has changed over time; markers
// are tried in order and the first with at least one item wins.
type listMarker struct {
	item    string
	anchors []string
}

var listMarkers = []listMarker{
	{item: "li.rankings-page__list-item", anchors: []string{"a.rankings-page__name-link", "a[href*='/player/']"}},
	{item: "li.recruit", anchors: []string{"a.recruit", "a[href*='/player/']"}},
	{item: "div.rankings-page__list-item", anchors: []string{"a.rankings-page__name-link", "a[href*='/player/']"}},
}

var loadMoreSelectors = []string{"a.load-more", "button.load-more"}

// DiscoveryOptions bounds one season's discovery.
type DiscoveryOptions struct {
	BaseURL           string
	MaxClicks         int
	Limit             int // 0 means unlimited
	LoadRetries       int
	NavigationTimeout time.Duration
	InitialSettle     time.Duration
	ClickSettle       time.Duration
}

// Discovery is the outcome of walking one season's ranking page.
type Discovery struct {
	Season   int
	Locators []string
	Marker   string
	Clicks   int
	Stop     StopReason
}

// Walker enumerates profile locators behind the load-more control.
type Walker struct {
	opener  fetcher.Opener
	opts    DiscoveryOptions
	logger  *zap.Logger
	diag    *diagnostics.Writer
	metrics *metrics.Recorder
}

// NewWalker creates a Walker. diag and rec may be nil.
func NewWalker(opener fetcher.Opener, opts DiscoveryOptions, logger *zap.Logger, diag *diagnostics.Writer, rec *metrics.Recorder) *Walker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Walker{opener: opener, opts: opts, logger: logger, diag: diag, metrics: rec}
}

// RankingURL returns the composite ranking page for season.
func RankingURL(base string, season int) string {
	return fmt.Sprintf("%s/season/%d-football/compositerecruitrankings/", strings.TrimRight(base, "/"), season)
}

// Discover loads the ranking page for season, expands it and returns the
// deduplicated profile locators in page order. A failure to load the page or
// recognise its list structure returns an empty Discovery and an error.
func (w *Walker) Discover(ctx context.Context, season int) (Discovery, error) {
	d := Discovery{Season: season}
	target := RankingURL(w.opts.BaseURL, season)
	log := w.logger.With(zap.Int("season", season))

	page, err := w.opener.Open(ctx)
	if err != nil {
		return d, fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	log.Info("Loading ranking page", zap.String("url", target))
	if err := w.load(ctx, page, target); err != nil {
		w.capture(ctx, page, season)
		return d, err
	}
	if err := fetcher.Settle(ctx, w.opts.InitialSettle); err != nil {
		return d, err
	}

	marker, err := detectMarker(ctx, page)
	if err != nil {
		w.capture(ctx, page, season)
		return d, err
	}
	d.Marker = marker.item

	d.Clicks, d.Stop = w.paginate(ctx, page, log)
	log.Info("Pagination finished", zap.Int("clicks", d.Clicks), zap.String("reason", string(d.Stop)))

	html, err := page.HTML(ctx)
	if err != nil {
		return d, fmt.Errorf("failed to read ranking page: %w", err)
	}
	doc, err := extractor.Document(html)
	if err != nil {
		return d, err
	}

	d.Locators = NormalizeLocators(w.opts.BaseURL, CollectLocators(doc, marker), w.opts.Limit)
	w.metrics.Discovered(season, len(d.Locators), string(d.Stop))
	log.Info("Discovered profiles", zap.Int("profiles", len(d.Locators)), zap.String("marker", d.Marker))
	return d, nil
}

func (w *Walker) load(ctx context.Context, page fetcher.Page, target string) error {
	attempt := 0
	op := func() error {
		attempt++
		err := page.Navigate(ctx, target, w.opts.NavigationTimeout)
		if err != nil {
			w.logger.Warn("Ranking page load failed", zap.Int("attempt", attempt), zap.Error(err))
		}
		return err
	}
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(max(w.opts.LoadRetries, 0))), ctx)
	return backoff.Retry(op, b)
}

func (w *Walker) capture(ctx context.Context, page fetcher.Page, season int) {
	if !w.diag.Enabled() {
		return
	}
	key := fmt.Sprintf("season_%d", season)
	if png, err := page.Screenshot(ctx); err == nil {
		_, _ = w.diag.SaveScreenshot(key, png)
	}
	if html, err := page.HTML(ctx); err == nil && html != "" {
		_, _ = w.diag.SavePage(key, html)
	}
}

func detectMarker(ctx context.Context, page fetcher.Page) (listMarker, error) {
	for _, m := range listMarkers {
		els, err := page.Elements(ctx, m.item)
		if err != nil {
			continue
		}
		if len(els) > 0 {
			return m, nil
		}
	}
	return listMarker{}, ErrNoListMarker
}

// paginate clicks the load-more control until it disappears, hides, fails,
// or the click ceiling is reached. Every click counts toward the ceiling.
func (w *Walker) paginate(ctx context.Context, page fetcher.Page, log *zap.Logger) (int, StopReason) {
	clicks := 0
	for {
		if clicks >= w.opts.MaxClicks {
			return clicks, StopCeiling
		}

		btn := findLoadMore(ctx, page)
		if btn == nil {
			return clicks, StopAbsent
		}
		visible, err := btn.Visible()
		if err != nil || !visible {
			return clicks, StopHidden
		}

		if err := btn.Click(ctx); err != nil {
			log.Debug("Load more click failed", zap.Error(err))
			return clicks, StopClickFailed
		}
		clicks++
		log.Debug("Clicked load more", zap.Int("click", clicks))

		if err := fetcher.Settle(ctx, w.opts.ClickSettle); err != nil {
			return clicks, StopClickFailed
		}
	}
}

func findLoadMore(ctx context.Context, page fetcher.Page) fetcher.Element {
	for _, sel := range loadMoreSelectors {
		if els, err := page.Elements(ctx, sel); err == nil && len(els) > 0 {
			return els[0]
		}
	}
	return findByText(ctx, page, "a, button", "load more")
}

// findByText returns the first element matching selector whose text contains
// needle, case-insensitively.
func findByText(ctx context.Context, page fetcher.Page, selector, needle string) fetcher.Element {
	els, err := page.Elements(ctx, selector)
	if err != nil {
		return nil
	}
	for _, el := range els {
		text, err := el.Text()
		if err != nil {
			continue
		}
		if strings.Contains(strings.ToLower(text), needle) {
			return el
		}
	}
	return nil
}

// CollectLocators returns every profile href under the marker's list items,
// trying the marker's anchor selectors in order.
func CollectLocators(doc *goquery.Document, marker listMarker) []string {
	items := doc.Find(marker.item)
	for _, anchor := range marker.anchors {
		var hrefs []string
		items.Find(anchor).Each(func(_ int, a *goquery.Selection) {
			if href, ok := a.Attr("href"); ok {
				hrefs = append(hrefs, href)
			}
		})
		if len(hrefs) > 0 {
			return hrefs
		}
	}
	return nil
}

// NormalizeLocators resolves hrefs against base, keeps only profile links,
// removes duplicates in first-seen order and truncates to limit when limit
// is positive.
func NormalizeLocators(base string, hrefs []string, limit int) []string {
	baseURL, err := url.Parse(base)
	if err != nil {
		baseURL = &url.URL{}
	}

	seen := make(map[string]bool, len(hrefs))
	out := make([]string, 0, len(hrefs))
	for _, href := range hrefs {
		abs := resolve(baseURL, href)
		if abs == "" || !strings.Contains(abs, "/player/") || seen[abs] {
			continue
		}
		seen[abs] = true
		out = append(out, abs)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	abs.Fragment = ""
	return abs.String()
}

// ResolveURL resolves href against base.
func ResolveURL(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	return resolve(b, href)
}
