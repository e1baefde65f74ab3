package fetcher

import (
	"context"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// PageSource creates raw rod pages. Both a browser and an incognito session
// satisfy it.
type PageSource interface {
	NewPage() (*rod.Page, error)
}

type rodOpener struct {
	src PageSource
}

// RodOpener adapts a rod page source to Opener.
func RodOpener(src PageSource) Opener {
	return &rodOpener{src: src}
}

func (o *rodOpener) Open(ctx context.Context) (Page, error) {
	page, err := o.src.NewPage()
	if err != nil {
		return nil, err
	}
	_ = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: userAgent})
	_, _ = page.EvalOnNewDocument(`Object.defineProperty(navigator, 'webdriver', {get: () => undefined});`)
	return &RodPage{page: page}, nil
}

// RodPage implements Page on top of a rod page.
type RodPage struct {
	page *rod.Page
}

// NewRodPage wraps an existing rod page.
func NewRodPage(p *rod.Page) *RodPage {
	return &RodPage{page: p}
}

func (p *RodPage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	page := p.page.Context(ctx)
	if timeout > 0 {
		page = page.Timeout(timeout)
		defer page.CancelTimeout()
	}
	wait := page.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := page.Navigate(url); err != nil {
		return &NavigationError{URL: url, Err: err}
	}
	wait()
	// wait returns silently once the timeout clone expires
	return navigationResult(page.GetContext(), url)
}

func navigationResult(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return &NavigationError{URL: url, Err: err}
	}
	return nil
}

func (p *RodPage) WaitLoad(ctx context.Context) error {
	return p.page.Context(ctx).WaitLoad()
}

func (p *RodPage) Elements(ctx context.Context, selector string) ([]Element, error) {
	els, err := p.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, &InteractionError{Action: "locate", Selector: selector, Err: err}
	}
	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, &rodElement{el: el, selector: selector})
	}
	return out, nil
}

func (p *RodPage) HTML(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}

func (p *RodPage) Screenshot(ctx context.Context) ([]byte, error) {
	return p.page.Context(ctx).Screenshot(true, nil)
}

func (p *RodPage) URL() string {
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (p *RodPage) Title() string {
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.Title
}

func (p *RodPage) Close() error {
	return p.page.Close()
}

type rodElement struct {
	el       *rod.Element
	selector string
}

func (e *rodElement) Text() (string, error) {
	return e.el.Text()
}

func (e *rodElement) Attribute(name string) (string, bool, error) {
	v, err := e.el.Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *rodElement) Visible() (bool, error) {
	return e.el.Visible()
}

func (e *rodElement) Click(ctx context.Context) error {
	if err := e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1); err != nil {
		return &InteractionError{Action: "click", Selector: e.selector, Err: err}
	}
	return nil
}
