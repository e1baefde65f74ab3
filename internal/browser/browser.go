package browser

import (
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Config controls how the browser process is launched.
type Config struct {
	ProxyURL string
	Headless bool
}

// Browser wraps a launched rod browser.
type Browser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	proxyURL string
}

// New launches a browser and connects to it.
func New(cfg Config) (*Browser, error) {
	l := launcher.New().Headless(cfg.Headless)
	if cfg.ProxyURL != "" {
		l = l.Proxy(cfg.ProxyURL)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	return &Browser{browser: b, launcher: l, proxyURL: cfg.ProxyURL}, nil
}

// ProxyURL returns the proxy the browser was launched with.
func (b *Browser) ProxyURL() string {
	return b.proxyURL
}

// NewPage opens a tab in the default browser context.
func (b *Browser) NewPage() (*rod.Page, error) {
	return b.browser.Page(proto.TargetCreateTarget{})
}

// Session opens an isolated browser context. Pages created from it share
// cookies and cache with each other but not with other sessions.
func (b *Browser) Session() (*Session, error) {
	inc, err := b.browser.Incognito()
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &Session{browser: inc}, nil
}

// Close shuts the browser down and kills the launched process.
func (b *Browser) Close() error {
	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			return err
		}
	}
	if b.launcher != nil {
		b.launcher.Kill()
	}
	return nil
}

// Session is an incognito browser context. Closing it disposes every page
// opened through it.
type Session struct {
	browser *rod.Browser
}

// NewPage opens a tab inside the session.
func (s *Session) NewPage() (*rod.Page, error) {
	return s.browser.Page(proto.TargetCreateTarget{})
}

// Close disposes the session's browser context.
func (s *Session) Close() error {
	return s.browser.Close()
}
