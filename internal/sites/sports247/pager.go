package sports247

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"recruits/internal/extractor"
	"recruits/internal/fetcher"
	"recruits/internal/metrics"
	"recruits/internal/timeline"
)

const (
	seeAllSelector   = "a.see-all, a.timeline-see-all, .timeline a.more"
	fullListSelector = "ul.timeline-list, ol.timeline-list, .timeline-list"
	fullItemSelector = "li, .timeline-item"
	nextSelector     = "a.next, button.next, li.next a, .pagination .next"
)

// errNoFullList means the see-all target did not render a history list.
var errNoFullList = errors.New("full timeline list not found")

// Pager walks the paginated full-history timeline view.
type Pager struct {
	BaseURL  string
	MaxPages int
	Timeout  time.Duration
	Settle   time.Duration
	Metrics  *metrics.Recorder
}

var seeAllRule = extractor.Chain(
	extractor.Attr(seeAllSelector, "href"),
	extractor.RuleFunc(func(s *goquery.Selection) (string, bool) {
		var found string
		s.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			if !strings.Contains(strings.ToLower(a.Text()), "see all") {
				return true
			}
			if href, ok := a.Attr("href"); ok && strings.TrimSpace(href) != "" {
				found = strings.TrimSpace(href)
				return false
			}
			return true
		})
		return found, found != ""
	}),
)

// SeeAllLink returns the href of the full-history link in a profile.
func SeeAllLink(s *goquery.Selection) (string, bool) {
	return seeAllRule.Try(s)
}

// Walk applies every fragment of every history page to state, following the
// next control until it disappears or MaxPages is reached. It returns the
// state accumulated so far, and the pages read, even when it fails part way.
func (p *Pager) Walk(ctx context.Context, page fetcher.Page, href string, rec *timeline.Reconciler, state timeline.Timeline) (timeline.Timeline, int, error) {
	pages := 0
	err := p.walk(ctx, page, href, rec, &state, &pages)
	return state, pages, err
}

func (p *Pager) walk(ctx context.Context, page fetcher.Page, href string, rec *timeline.Reconciler, state *timeline.Timeline, pages *int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("timeline page %d: %v", *pages+1, r)
		}
	}()

	if err := page.Navigate(ctx, ResolveURL(p.BaseURL, href), p.Timeout); err != nil {
		return err
	}
	if err := fetcher.Settle(ctx, p.Settle); err != nil {
		return err
	}

	var lastFirst string
	for *pages < p.MaxPages {
		html, err := page.HTML(ctx)
		if err != nil {
			return fmt.Errorf("failed to read timeline page: %w", err)
		}
		doc, err := extractor.Document(html)
		if err != nil {
			return err
		}

		list := doc.Find(fullListSelector).First()
		if list.Length() == 0 {
			if *pages == 0 {
				return errNoFullList
			}
			return nil
		}

		texts := listTexts(list)
		if len(texts) > 0 && texts[0] == lastFirst {
			// next did not advance
			return nil
		}
		if len(texts) > 0 {
			lastFirst = texts[0]
		}

		*state = applyFragments(rec, *state, texts, p.Metrics)
		*pages++
		p.Metrics.TimelinePage()

		advanced, err := p.next(ctx, page)
		if err != nil || !advanced {
			return err
		}
	}
	return nil
}

// applyFragments folds texts into state in order, counting each outcome.
func applyFragments(rec *timeline.Reconciler, state timeline.Timeline, texts []string, m *metrics.Recorder) timeline.Timeline {
	for _, text := range texts {
		var outcome timeline.Outcome
		state, outcome = rec.Apply(state, rec.Parse(text))
		m.Fragment(outcome.String())
	}
	return state
}

func listTexts(list *goquery.Selection) []string {
	var texts []string
	list.Find(fullItemSelector).Each(func(_ int, item *goquery.Selection) {
		if t := extractor.Normalize(item.Text()); t != "" {
			texts = append(texts, t)
		}
	})
	return texts
}

// next activates the next-page control. It reports false when there is no
// usable control.
func (p *Pager) next(ctx context.Context, page fetcher.Page) (bool, error) {
	var el fetcher.Element
	if els, err := page.Elements(ctx, nextSelector); err == nil && len(els) > 0 {
		el = els[0]
	} else {
		el = findByText(ctx, page, ".pagination a, .pagination button", "next")
	}
	if el == nil {
		return false, nil
	}

	if visible, err := el.Visible(); err != nil || !visible {
		return false, nil
	}
	if class, _, _ := el.Attribute("class"); strings.Contains(class, "disabled") {
		return false, nil
	}
	if _, disabled, _ := el.Attribute("disabled"); disabled {
		return false, nil
	}

	if href, ok, _ := el.Attribute("href"); ok && href != "" && !strings.HasPrefix(href, "#") && !strings.HasPrefix(href, "javascript:") {
		if err := page.Navigate(ctx, ResolveURL(p.BaseURL, href), p.Timeout); err != nil {
			return false, err
		}
	} else if err := el.Click(ctx); err != nil {
		return false, err
	}
	return true, fetcher.Settle(ctx, p.Settle)
}
