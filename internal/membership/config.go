package membership

import (
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/dreamware/torua/internal/obs"
)

// DefaultConcurrentRPCs is the default number of parallel push slots the
// dispatcher runs.
const DefaultConcurrentRPCs = 5

// DefaultRPCTimeout is the default per-RPC deadline.
const DefaultRPCTimeout = 10 * time.Millisecond

// Config holds the dispatcher's tuning knobs.
type Config struct {
	ConcurrentRPCs int
	RPCTimeout     time.Duration
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		ConcurrentRPCs: DefaultConcurrentRPCs,
		RPCTimeout:     DefaultRPCTimeout,
	}
}

// FromEnv overlays COORDINATOR_CONCURRENT_RPCS and COORDINATOR_RPC_TIMEOUT
// (parsed with time.ParseDuration) onto c and returns the result. Malformed
// or non-positive values are ignored, keeping c's value, matching the
// teacher's getenv(key, def) fallback style.
func (c Config) FromEnv() Config {
	if v := os.Getenv("COORDINATOR_CONCURRENT_RPCS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.ConcurrentRPCs = n
		}
	}
	if v := os.Getenv("COORDINATOR_RPC_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.RPCTimeout = d
		}
	}
	return c
}

// Option configures a Registry at construction time.
type Option func(*options)

type options struct {
	config  Config
	logger  *zap.Logger
	metrics *obs.Metrics
}

// WithConfig overrides the dispatcher tuning knobs.
func WithConfig(cfg Config) Option {
	return func(o *options) { o.config = cfg }
}

// WithConcurrentRPCs overrides the number of parallel push slots.
func WithConcurrentRPCs(n int) Option {
	return func(o *options) { o.config.ConcurrentRPCs = n }
}

// WithRPCTimeout overrides the per-RPC deadline.
func WithRPCTimeout(d time.Duration) Option {
	return func(o *options) { o.config.RPCTimeout = d }
}

// WithLogger supplies a structured logger; defaults to zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics supplies a Prometheus metrics sink; defaults to nil (no-op).
func WithMetrics(m *obs.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithPrometheusRegisterer builds and wires a Metrics instance registered
// against reg.
func WithPrometheusRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.metrics = obs.NewMetrics(reg) }
}

func newOptions(opts []Option) *options {
	o := &options{
		config: DefaultConfig(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
