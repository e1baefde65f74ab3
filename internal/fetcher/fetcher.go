package fetcher

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// WaitStrategy selects how Fetch decides a freshly navigated page is ready.
type WaitStrategy string

const (
	WaitStrategyLoad    WaitStrategy = "load"    // wait for the load event
	WaitStrategyElement WaitStrategy = "element" // wait until a selector matches
	WaitStrategyTime    WaitStrategy = "time"    // fixed settle delay in ms
)

// Element is a handle to one node of a rendered page.
type Element interface {
	Text() (string, error)
	// Attribute returns the attribute value and whether it is present.
	Attribute(name string) (string, bool, error)
	Visible() (bool, error)
	Click(ctx context.Context) error
}

// Page is the capability set the scraper needs from a rendered page. Every
// blocking call honors ctx; Navigate also takes an explicit timeout.
type Page interface {
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	WaitLoad(ctx context.Context) error
	// Elements returns the nodes currently matching selector without waiting.
	Elements(ctx context.Context, selector string) ([]Element, error)
	HTML(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
	URL() string
	Title() string
	Close() error
}

// Opener hands out fresh pages, one per task.
type Opener interface {
	Open(ctx context.Context) (Page, error)
}

// FetchResult is a navigated page plus load metadata.
type FetchResult struct {
	Page     Page
	Title    string
	URL      string
	LoadTime time.Duration
}

// Fetcher opens pages from an Opener and navigates them.
type Fetcher struct {
	opener Opener
}

// NewFetcher creates a Fetcher drawing pages from o.
func NewFetcher(o Opener) *Fetcher {
	return &Fetcher{opener: o}
}

// Fetch opens a new page, navigates to url and applies the wait strategy.
// The caller owns the returned page and must close it. On error the page is
// already closed.
func (f *Fetcher) Fetch(ctx context.Context, url string, strategy WaitStrategy, target string, timeout time.Duration) (*FetchResult, error) {
	start := time.Now()

	page, err := f.opener.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	if err := page.Navigate(ctx, url, timeout); err != nil {
		page.Close()
		return nil, err
	}

	if err := Wait(ctx, page, strategy, target, timeout); err != nil {
		page.Close()
		return nil, fmt.Errorf("wait strategy failed: %w", err)
	}

	return &FetchResult{
		Page:     page,
		Title:    page.Title(),
		URL:      page.URL(),
		LoadTime: time.Since(start),
	}, nil
}

// Wait applies strategy to an already navigated page.
func Wait(ctx context.Context, page Page, strategy WaitStrategy, target string, timeout time.Duration) error {
	switch strategy {
	case WaitStrategyElement:
		if target == "" {
			return fmt.Errorf("wait target is required for element strategy")
		}
		return WaitElement(ctx, page, target, timeout)

	case WaitStrategyTime:
		if target == "" {
			return fmt.Errorf("wait target is required for time strategy")
		}
		ms, err := strconv.Atoi(target)
		if err != nil {
			return fmt.Errorf("invalid wait time '%s': %w", target, err)
		}
		return Settle(ctx, time.Duration(ms)*time.Millisecond)

	default:
		if err := page.WaitLoad(ctx); err != nil {
			return fmt.Errorf("failed to wait for page load: %w", err)
		}
		return nil
	}
}

// Millis renders d as a WaitStrategyTime target.
func Millis(d time.Duration) string {
	return strconv.FormatInt(d.Milliseconds(), 10)
}

const pollInterval = 250 * time.Millisecond

// WaitElement polls until selector matches at least one node or timeout
// elapses.
func WaitElement(ctx context.Context, page Page, selector string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		els, err := page.Elements(ctx, selector)
		if err == nil && len(els) > 0 {
			return nil
		}
		if err := Settle(ctx, pollInterval); err != nil {
			return fmt.Errorf("failed to wait for element '%s': %w", selector, err)
		}
	}
}

// Settle blocks for d or until ctx is done.
func Settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// NavigationError is returned when a page fails to load.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("failed to navigate to %s: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// InteractionError is returned when clicking or reading an element fails.
type InteractionError struct {
	Action   string
	Selector string
	Err      error
}

func (e *InteractionError) Error() string {
	return fmt.Sprintf("failed to %s %q: %v", e.Action, e.Selector, e.Err)
}

func (e *InteractionError) Unwrap() error { return e.Err }

// IsTimeout reports whether err came from an expired deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
