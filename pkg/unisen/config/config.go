// Package config builds unisen.ClientOptions from environment variables and
// YAML files.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/strongdm/miniapp-observe/pkg/unisen"
)

// Environment variables read by Load.
const (
	EnvDSN              = "SENTRY_DSN"
	EnvRelease          = "SENTRY_RELEASE"
	EnvEnvironment      = "SENTRY_ENVIRONMENT"
	EnvDist             = "SENTRY_DIST"
	EnvPlatform         = "PLATFORM"
	EnvDebug            = "UNISEN_DEBUG"
	EnvSampleRate       = "UNISEN_SAMPLE_RATE"
	EnvAttachStacktrace = "UNISEN_ATTACH_STACKTRACE"
	EnvLogLevel         = "UNISEN_LOG_LEVEL"
)

// Config is the file and environment representation of client options.
type Config struct {
	DSN              string   `yaml:"dsn"`
	Release          string   `yaml:"release"`
	Environment      string   `yaml:"environment"`
	Dist             string   `yaml:"dist"`
	Platform         string   `yaml:"platform"`
	Debug            bool     `yaml:"debug"`
	SampleRate       float64  `yaml:"sample_rate"`
	AttachStacktrace bool     `yaml:"attach_stacktrace"`
	MaxBreadcrumbs   int      `yaml:"max_breadcrumbs"`
	LogLevel         string   `yaml:"log_level"`
	AllowURLs        []string `yaml:"allow_urls"`
	DenyURLs         []string `yaml:"deny_urls"`
	IgnoreErrors     []string `yaml:"ignore_errors"`

	ExtraOptions unisen.GlobalHandlersOptions `yaml:"extra_options"`
	Router       unisen.RouterOptions         `yaml:"router"`
	Scrubbing    *ScrubbingConfig             `yaml:"scrubbing"`
}

// ScrubbingConfig enables scrubbing. Zero fields keep the defaults of
// unisen.DefaultScrubberConfig.
type ScrubbingConfig struct {
	SensitiveKeys  []string `yaml:"sensitive_keys"`
	MaxMessageSize int      `yaml:"max_message_size"`
	MaxFrames      int      `yaml:"max_frames"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	applyEnv(&cfg)
	return cfg
}

// LoadFile reads a YAML file and applies environment overrides on top.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv overwrites fields whose environment variable is set.
func applyEnv(cfg *Config) {
	cfg.DSN = getenv(EnvDSN, cfg.DSN)
	cfg.Release = getenv(EnvRelease, cfg.Release)
	cfg.Environment = getenv(EnvEnvironment, cfg.Environment)
	cfg.Dist = getenv(EnvDist, cfg.Dist)
	cfg.Platform = getenv(EnvPlatform, cfg.Platform)
	cfg.Debug = getenvBool(EnvDebug, cfg.Debug)
	cfg.SampleRate = getenvFloat(EnvSampleRate, cfg.SampleRate)
	cfg.AttachStacktrace = getenvBool(EnvAttachStacktrace, cfg.AttachStacktrace)
	cfg.LogLevel = getenv(EnvLogLevel, cfg.LogLevel)
}

// Validate reports configuration the client would reject.
func (c Config) Validate() error {
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("sample_rate %v out of range [0, 1]", c.SampleRate)
	}
	if c.DSN != "" {
		if _, err := unisen.ParseDSN(c.DSN); err != nil {
			return err
		}
	}
	return nil
}

// ClientOptions converts c. platform may be nil; Integrations stays nil so
// the defaults are installed, except that a disabled router replaces them.
func (c Config) ClientOptions(platform unisen.Platform) unisen.ClientOptions {
	opts := unisen.ClientOptions{
		DSN:              c.DSN,
		Debug:            c.Debug,
		Release:          c.Release,
		Environment:      c.Environment,
		Dist:             c.Dist,
		SampleRate:       c.SampleRate,
		AttachStacktrace: c.AttachStacktrace,
		MaxBreadcrumbs:   c.MaxBreadcrumbs,
		Platform:         platform,
		AllowURLs:        c.AllowURLs,
		DenyURLs:         c.DenyURLs,
		IgnoreErrors:     c.IgnoreErrors,
		ExtraOptions:     c.ExtraOptions,
		Logger:           c.Logger(),
	}
	if c.Router.Disable {
		integrations := unisen.DefaultIntegrations(opts)
		for i, in := range integrations {
			if in.Name() == unisen.RouterIntegrationName {
				integrations[i] = unisen.NewRouterIntegration(c.Router)
			}
		}
		opts.Integrations = integrations
	}
	if c.Scrubbing != nil {
		sc := unisen.DefaultScrubberConfig()
		if len(c.Scrubbing.SensitiveKeys) > 0 {
			sc.SensitiveKeys = c.Scrubbing.SensitiveKeys
		}
		if c.Scrubbing.MaxMessageSize > 0 {
			sc.MaxMessageSize = c.Scrubbing.MaxMessageSize
		}
		if c.Scrubbing.MaxFrames > 0 {
			sc.MaxFrames = c.Scrubbing.MaxFrames
		}
		opts.Scrubbing = &sc
	}
	return opts
}

// Logger returns a stderr text logger at LogLevel, or nil when LogLevel is
// empty so the client falls back to its Debug-driven default.
func (c Config) Logger() *slog.Logger {
	if c.LogLevel == "" {
		return nil
	}
	level := ParseLevel(c.LogLevel)
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})).
		With("component", "unisen")
}

// ParseLevel converts a string ("debug", "info", "warn", "error") to slog.Level.
// Unknown strings default to LevelInfo.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
