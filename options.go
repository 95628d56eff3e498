package offlinecache

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Config holds transport configuration
type Config struct {
	Base          http.RoundTripper
	Origin        string
	Rules         Rules
	Logger        logrus.FieldLogger
	Registerer    prometheus.Registerer
	WriteObserver WriteObserver
}

// WriteObserver is notified when a detached cache write completes. Writes
// never gate the response they mirror; the observer exists so their outcome
// stays visible to callers and tests.
type WriteObserver func(id string, err error)

// Option is a functional option for configuring the transport
type Option func(*Config)

// WithBase sets the underlying network transport. Defaults to
// http.DefaultTransport.
func WithBase(rt http.RoundTripper) Option {
	return func(c *Config) {
		c.Base = rt
	}
}

// WithOrigin sets the application's own origin (scheme://host) used for
// cross-origin detection.
func WithOrigin(origin string) Option {
	return func(c *Config) {
		c.Origin = origin
	}
}

// WithRules sets the classification rule sets. Defaults to DefaultRules.
func WithRules(rules Rules) Option {
	return func(c *Config) {
		c.Rules = rules
	}
}

// WithLogger sets the structured logger. Defaults to the logrus standard logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

// WithMetrics registers request and cache metrics with the given registerer
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registerer = reg
	}
}

// WithWriteObserver sets a callback invoked after every detached cache write
func WithWriteObserver(fn WriteObserver) Option {
	return func(c *Config) {
		c.WriteObserver = fn
	}
}

// ControllerConfig holds lifecycle controller configuration
type ControllerConfig struct {
	Base        http.RoundTripper
	Origin      string
	Seeds       []string
	Logger      logrus.FieldLogger
	UpdateCheck func(ctx context.Context) error
	OnInstalled func(v Version)
	OnActivated func(v Version)
}

// ControllerOption is a functional option for configuring the lifecycle controller
type ControllerOption func(*ControllerConfig)

// WithSeedAssets sets the root-relative paths precached at install time.
// Defaults to DefaultSeedAssets.
func WithSeedAssets(paths []string) ControllerOption {
	return func(c *ControllerConfig) {
		c.Seeds = paths
	}
}

// WithControllerBase sets the transport used to fetch seed assets. Defaults
// to http.DefaultTransport.
func WithControllerBase(rt http.RoundTripper) ControllerOption {
	return func(c *ControllerConfig) {
		c.Base = rt
	}
}

// WithControllerOrigin sets the origin seed paths are resolved against
func WithControllerOrigin(origin string) ControllerOption {
	return func(c *ControllerConfig) {
		c.Origin = origin
	}
}

// WithControllerLogger sets the structured logger for lifecycle events
func WithControllerLogger(log logrus.FieldLogger) ControllerOption {
	return func(c *ControllerConfig) {
		c.Logger = log
	}
}

// WithUpdateCheck sets the best-effort update check invoked on the recurring
// interval. Errors are logged and otherwise ignored.
func WithUpdateCheck(fn func(ctx context.Context) error) ControllerOption {
	return func(c *ControllerConfig) {
		c.UpdateCheck = fn
	}
}

// WithOnInstalled sets a callback fired when a version finishes installing
func WithOnInstalled(fn func(v Version)) ControllerOption {
	return func(c *ControllerConfig) {
		c.OnInstalled = fn
	}
}

// WithOnActivated sets a callback fired when a version becomes active
func WithOnActivated(fn func(v Version)) ControllerOption {
	return func(c *ControllerConfig) {
		c.OnActivated = fn
	}
}

// DefaultUpdateInterval is the default period between update checks
const DefaultUpdateInterval = 5 * time.Minute
