// Package fetchertest provides an in-memory implementation of the fetcher
// render contract for tests. Pages are static markup keyed by URL; element
// queries run through goquery against the current markup.
package fetchertest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"

	"recruits/internal/fetcher"
)

// ClickFunc handles a click on el. Returning false falls through to the
// default behavior, which follows the element's href.
type ClickFunc func(p *Page, el *Element) (handled bool, err error)

// Site is a set of routes shared by every page it opens.
type Site struct {
	mu       sync.Mutex
	pages    map[string]string
	handlers map[string]ClickFunc
	failures map[string]error

	opened atomic.Int32
	closed atomic.Int32
}

// NewSite returns an empty site.
func NewSite() *Site {
	return &Site{
		pages:    map[string]string{},
		handlers: map[string]ClickFunc{},
		failures: map[string]error{},
	}
}

// Handle serves html at url.
func (s *Site) Handle(url, html string) *Site {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[url] = html
	return s
}

// OnClick installs a click handler for pages currently showing url.
func (s *Site) OnClick(url string, fn ClickFunc) *Site {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[url] = fn
	return s
}

// Fail makes navigation to url return err.
func (s *Site) Fail(url string, err error) *Site {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[url] = err
	return s
}

// Open implements fetcher.Opener.
func (s *Site) Open(ctx context.Context) (fetcher.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.opened.Add(1)
	return &Page{site: s}, nil
}

// Opened returns how many pages were opened.
func (s *Site) Opened() int { return int(s.opened.Load()) }

// Closed returns how many pages were closed.
func (s *Site) Closed() int { return int(s.closed.Load()) }

func (s *Site) route(url string) (string, ClickFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures[url]; err != nil {
		return "", nil, err
	}
	html, ok := s.pages[url]
	if !ok {
		return "", nil, fmt.Errorf("404 %s", url)
	}
	return html, s.handlers[url], nil
}

// Page is an in-memory page.
type Page struct {
	site *Site

	mu      sync.Mutex
	url     string
	html    string
	onClick ClickFunc
	clicks  int
	closed  bool
}

var _ fetcher.Page = (*Page)(nil)

// SetHTML replaces the current markup, as a script would after a click.
func (p *Page) SetHTML(html string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.html = html
}

// Clicks returns how many clicks the page received.
func (p *Page) Clicks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clicks
}

func (p *Page) Navigate(ctx context.Context, url string, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return &fetcher.NavigationError{URL: url, Err: err}
	}
	html, handler, err := p.site.route(url)
	if err != nil {
		return &fetcher.NavigationError{URL: url, Err: err}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url, p.html, p.onClick = url, html, handler
	return nil
}

func (p *Page) WaitLoad(ctx context.Context) error { return ctx.Err() }

func (p *Page) Elements(ctx context.Context, selector string) ([]fetcher.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	html := p.html
	p.mu.Unlock()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	var out []fetcher.Element
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, &Element{page: p, sel: s})
	})
	return out, nil
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.html, nil
}

func (p *Page) Screenshot(context.Context) ([]byte, error) {
	return []byte("PNG"), nil
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *Page) Title() string {
	p.mu.Lock()
	html := p.html
	p.mu.Unlock()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").Text())
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		p.site.closed.Add(1)
	}
	return nil
}

// Element is a node of a Page.
type Element struct {
	page *Page
	sel  *goquery.Selection
}

// Selection exposes the underlying node for click handlers.
func (e *Element) Selection() *goquery.Selection { return e.sel }

func (e *Element) Text() (string, error) { return e.sel.Text(), nil }

func (e *Element) Attribute(name string) (string, bool, error) {
	v, ok := e.sel.Attr(name)
	return v, ok, nil
}

// Visible is false for nodes carrying a hidden attribute, a "hidden" class or
// an inline display:none.
func (e *Element) Visible() (bool, error) {
	if _, ok := e.sel.Attr("hidden"); ok {
		return false, nil
	}
	if e.sel.HasClass("hidden") {
		return false, nil
	}
	style, _ := e.sel.Attr("style")
	style = strings.ReplaceAll(strings.ToLower(style), " ", "")
	return !strings.Contains(style, "display:none"), nil
}

func (e *Element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p := e.page
	p.mu.Lock()
	p.clicks++
	handler := p.onClick
	p.mu.Unlock()

	if handler != nil {
		handled, err := handler(p, e)
		if err != nil {
			return &fetcher.InteractionError{Action: "click", Selector: goquery.NodeName(e.sel), Err: err}
		}
		if handled {
			return nil
		}
	}
	if href, ok := e.sel.Attr("href"); ok && href != "" {
		return p.Navigate(ctx, href, 0)
	}
	return nil
}
