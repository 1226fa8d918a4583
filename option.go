package dispatch

import "log/slog"

// DefaultRouterName is used when no name is configured. The name scopes
// the router's tracer, meter and logger.
var DefaultRouterName = "dispatch"

// config holds router configuration (unexported)
type config struct {
	name            string
	logger          *slog.Logger
	tracingEnabled  bool
	metricsEnabled  bool
	recoveryEnabled bool
}

// Option is an option function for router configuration
type Option func(*config)

// WithName sets the router name, used to scope tracing, metrics and log
// output.
func WithName(name string) Option {
	return func(c *config) {
		if name != "" {
			c.name = name
		}
	}
}

// WithLogger sets a custom logger for the router
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTracing enables/disables OpenTelemetry tracing for dispatches
func WithTracing(enabled bool) Option {
	return func(c *config) {
		c.tracingEnabled = enabled
	}
}

// WithMetrics enables/disables OpenTelemetry metrics for dispatches
func WithMetrics(enabled bool) Option {
	return func(c *config) {
		c.metricsEnabled = enabled
	}
}

// WithRecovery enables/disables panic recovery in the dispatch chain.
// Recovery should normally stay enabled; disable it in tests when a
// panic should fail loudly.
func WithRecovery(enabled bool) Option {
	return func(c *config) {
		c.recoveryEnabled = enabled
	}
}

// newConfig creates a config with defaults and applies provided options
func newConfig(opts ...Option) *config {
	c := &config{
		name:            DefaultRouterName,
		logger:          slog.Default(),
		tracingEnabled:  true,
		metricsEnabled:  true,
		recoveryEnabled: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// fanoutConfig holds fan-out group configuration (unexported)
type fanoutConfig struct {
	strategy Strategy
	onError  func(*Event, error)
}

// FanoutOption is an option function for fan-out group configuration
type FanoutOption func(*fanoutConfig)

// WithStrategy sets the failure-aggregation strategy for a fan-out
// group. Default is AllOrNothing.
func WithStrategy(s Strategy) FanoutOption {
	return func(c *fanoutConfig) {
		c.strategy = s
	}
}

// WithErrorHandler sets the error observer for a BestEffort fan-out
// group. Each handler failure is delivered in completion order, with
// panics normalized into *PanicError. The observer is not consulted
// under AllOrNothing.
func WithErrorHandler(fn func(*Event, error)) FanoutOption {
	return func(c *fanoutConfig) {
		if fn != nil {
			c.onError = fn
		}
	}
}
