// Package config holds the scraper configuration and its layered loader.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"recruits/internal/timeline"
)

var (
	// ErrInvalidConfig wraps every validation failure.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig wraps failures reading a config source.
	ErrLoadConfig = errors.New("load config failed")
)

// Formats lists the accepted output formats.
var Formats = []string{"csv", "json", "markdown", "html", "text", "sqlite"}

// Config is the full run configuration.
type Config struct {
	// Seasons are the recruiting classes to scrape, in order.
	Seasons []int `koanf:"seasons"`

	// Width is the number of profiles fetched concurrently per chunk.
	Width int `koanf:"width"`

	// Constrained caps discovery to one load-more click and a fixed number
	// of profiles.
	Constrained bool `koanf:"constrained"`

	OutputDir   string `koanf:"output_dir"`
	Format      string `koanf:"format"`
	Diagnostics bool   `koanf:"diagnostics"`
	Headless    bool   `koanf:"headless"`
	ProxyURL    string `koanf:"proxy_url"`
	BaseURL     string `koanf:"base_url"`
	Site        string `koanf:"site"`

	LogLevel    string `koanf:"log_level"`
	LogFile     string `koanf:"log_file"`
	MetricsFile string `koanf:"metrics_file"`

	Timeouts  Timeouts  `koanf:"timeouts"`
	Discovery Discovery `koanf:"discovery"`
	Timeline  Timeline  `koanf:"timeline"`
}

// Timeouts bounds every navigation and settle wait.
type Timeouts struct {
	Navigation        time.Duration `koanf:"navigation"`
	RankingNavigation time.Duration `koanf:"ranking_navigation"`
	InitialSettle     time.Duration `koanf:"initial_settle"`
	ClickSettle       time.Duration `koanf:"click_settle"`
	ProfileSettle     time.Duration `koanf:"profile_settle"`
}

// Discovery bounds the load-more loop.
type Discovery struct {
	MaxClicks           int `koanf:"max_clicks"`
	ConstrainedClicks   int `koanf:"constrained_clicks"`
	ConstrainedProfiles int `koanf:"constrained_profiles"`
	LoadRetries         int `koanf:"load_retries"`
}

// Timeline bounds the event-history pager and ranks event kinds.
type Timeline struct {
	MaxPages int      `koanf:"max_pages"`
	Priority []string `koanf:"priority"`
}

// defaults is keyed by koanf path so file and env layers merge over it.
func defaults() map[string]any {
	return map[string]any{
		"seasons":      []int{2019},
		"width":        4,
		"constrained":  false,
		"output_dir":   "output",
		"format":       "csv",
		"diagnostics":  true,
		"headless":     true,
		"proxy_url":    "",
		"base_url":     "https://247sports.com",
		"site":         "sports247",
		"log_level":    "info",
		"log_file":     "",
		"metrics_file": "",

		"timeouts.navigation":         30 * time.Second,
		"timeouts.ranking_navigation": 60 * time.Second,
		"timeouts.initial_settle":     3 * time.Second,
		"timeouts.click_settle":       2 * time.Second,
		"timeouts.profile_settle":     1500 * time.Millisecond,

		"discovery.max_clicks":           500,
		"discovery.constrained_clicks":   1,
		"discovery.constrained_profiles": 50,
		"discovery.load_retries":         2,

		"timeline.max_pages": 25,
		"timeline.priority":  []string{"commitment", "signing", "enrollment"},
	}
}

// Policy returns the timeline priority policy named by the config.
func (c *Config) Policy() (timeline.Policy, error) {
	return timeline.PolicyFromNames(c.Timeline.Priority)
}

// MaxClicks returns the load-more ceiling for the current mode.
func (c *Config) MaxClicks() int {
	if c.Constrained {
		return c.Discovery.ConstrainedClicks
	}
	return c.Discovery.MaxClicks
}

// ProfileLimit returns the discovery truncation, 0 meaning unlimited.
func (c *Config) ProfileLimit() int {
	if c.Constrained {
		return c.Discovery.ConstrainedProfiles
	}
	return 0
}

// Validate checks the config for values the scraper cannot run with.
func (c *Config) Validate() error {
	if c.Width < 1 {
		return fmt.Errorf("%w: width must be at least 1, got %d", ErrInvalidConfig, c.Width)
	}
	if len(c.Seasons) == 0 {
		return fmt.Errorf("%w: at least one season is required", ErrInvalidConfig)
	}
	for _, s := range c.Seasons {
		if s < 1000 || s > 9999 {
			return fmt.Errorf("%w: season %d is not a 4-digit year", ErrInvalidConfig, s)
		}
	}
	if !validFormat(c.Format) {
		return fmt.Errorf("%w: unknown format %q (want one of %s)", ErrInvalidConfig, c.Format, strings.Join(Formats, ", "))
	}
	if _, err := c.Policy(); err != nil {
		return fmt.Errorf("%w: timeline.priority: %v", ErrInvalidConfig, err)
	}
	if c.Discovery.MaxClicks < 0 || c.Discovery.ConstrainedClicks < 0 {
		return fmt.Errorf("%w: click ceilings must not be negative", ErrInvalidConfig)
	}
	if c.Timeline.MaxPages < 1 {
		return fmt.Errorf("%w: timeline.max_pages must be at least 1", ErrInvalidConfig)
	}
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base_url must not be empty", ErrInvalidConfig)
	}
	return nil
}

func validFormat(f string) bool {
	for _, v := range Formats {
		if f == v {
			return true
		}
	}
	return false
}
