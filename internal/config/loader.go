package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "RECRUITS_"

// LoadOptions points the loader at optional sources.
type LoadOptions struct {
	// File is a YAML config path; RECRUITS_CONFIG is used when empty.
	File string
	// EnvFile is a dotenv file loaded into the process env; ".env" when empty.
	EnvFile string
	// Overrides are applied last, keyed by koanf path (e.g. "width").
	Overrides map[string]any
}

// Load builds a Config by layering, low to high precedence:
//  1. defaults
//  2. dotenv file (only fills variables not already set)
//  3. YAML file
//  4. env (RECRUITS_ prefix, "__" separates nested keys; TEST_MODE=true
//     enables constrained mode)
//  5. overrides
func Load(opts LoadOptions) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, envFile, err)
	}

	k := koanf.New(".")
	for key, v := range defaults() {
		if err := k.Set(key, v); err != nil {
			return nil, fmt.Errorf("%w: default %s: %v", ErrLoadConfig, key, err)
		}
	}

	path := opts.File
	if path == "" {
		path = os.Getenv(envPrefix + "CONFIG")
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	// RECRUITS_DISCOVERY__MAX_CLICKS -> discovery.max_clicks
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}
	if strings.EqualFold(os.Getenv("TEST_MODE"), "true") {
		_ = k.Set("constrained", true)
	}
	if k.String("proxy_url") == "" {
		if v := os.Getenv(envPrefix + "PROXY"); v != "" {
			_ = k.Set("proxy_url", v)
		}
	}

	for key, v := range opts.Overrides {
		if err := k.Set(key, v); err != nil {
			return nil, fmt.Errorf("%w: override %s: %v", ErrLoadConfig, key, err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
