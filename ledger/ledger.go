// Package ledger implements the job state machine. It wires the store, the
// extension registry and the middleware chain together and exposes one
// method per transition in the table below. Every change to a job goes
// through a single store.UpdateJob call, so a status change and the funds
// it moves are committed together or not at all.
package ledger

import (
	"context"
	"log/slog"
	"time"

	gu "github.com/xraph/go-utils/metrics"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	trustwork "github.com/nexora-w/TrustWork"
	"github.com/nexora-w/TrustWork/ext"
	mw "github.com/nexora-w/TrustWork/middleware"
	"github.com/nexora-w/TrustWork/observability"
	"github.com/nexora-w/TrustWork/store"
)

// instrumentationName scopes the tracer and meter the ledger creates from
// injected providers.
const instrumentationName = "github.com/nexora-w/TrustWork"

// Ledger is the escrow job state machine.
type Ledger struct {
	store      store.Store
	config     trustwork.Config
	extensions *ext.Registry
	mws        []mw.Middleware
	chain      mw.Middleware
	logger     *slog.Logger
	now        func() time.Time

	// OpenTelemetry providers (optional; nil means use global).
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	metricFactory  gu.MetricFactory
	pending        []ext.Extension
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// WithClock overrides the time source used for deadlines and timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithConfig replaces the whole configuration.
func WithConfig(cfg trustwork.Config) Option {
	return func(l *Ledger) {
		l.config = cfg
	}
}

// WithMinDeadline requires new jobs to have at least d until their deadline.
func WithMinDeadline(d time.Duration) Option {
	return func(l *Ledger) {
		l.config.MinDeadline = d
	}
}

// WithExtension registers an extension with the ledger.
func WithExtension(e ext.Extension) Option {
	return func(l *Ledger) {
		l.pending = append(l.pending, e)
	}
}

// WithMiddleware adds middleware to the ledger's chain. Custom middleware
// runs inside the default recover → tracing → metrics → logging stack.
func WithMiddleware(m mw.Middleware) Option {
	return func(l *Ledger) {
		l.mws = append(l.mws, m)
	}
}

// WithTracerProvider sets a custom OTel TracerProvider for the tracing
// middleware. If not set, the global otel.GetTracerProvider() is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(l *Ledger) {
		l.tracerProvider = tp
	}
}

// WithMeterProvider sets a custom OTel MeterProvider for the metrics
// middleware. If not set, the global otel.GetMeterProvider() is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(l *Ledger) {
		l.meterProvider = mp
	}
}

// WithMetricFactory sets the go-utils factory backing the lifecycle
// counters of the built-in observability extension.
func WithMetricFactory(f gu.MetricFactory) Option {
	return func(l *Ledger) {
		l.metricFactory = f
	}
}

// New creates a Ledger on top of s.
func New(s store.Store, opts ...Option) (*Ledger, error) {
	if s == nil {
		return nil, trustwork.ErrNoStore
	}

	l := &Ledger{
		store:  s,
		config: trustwork.DefaultConfig(),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}

	l.extensions = ext.NewRegistry(l.logger)

	// Register the observability metrics extension first so its counters
	// see every event even when a later extension misbehaves.
	if l.metricFactory != nil {
		l.extensions.Register(observability.NewMetricsExtensionWithFactory(l.metricFactory))
	} else {
		l.extensions.Register(observability.NewMetricsExtension())
	}
	for _, e := range l.pending {
		l.extensions.Register(e)
	}
	l.pending = nil

	// Build tracing middleware (custom provider or global).
	var tracingMw mw.Middleware
	if l.tracerProvider != nil {
		tracingMw = mw.TracingWithTracer(l.tracerProvider.Tracer(instrumentationName))
	} else {
		tracingMw = mw.Tracing()
	}

	// Build metrics middleware (custom provider or global).
	var metricsMw mw.Middleware
	if l.meterProvider != nil {
		metricsMw = mw.MetricsWithMeter(l.meterProvider.Meter(instrumentationName))
	} else {
		metricsMw = mw.Metrics()
	}

	// Default middleware stack: recover → tracing → metrics → logging.
	defaultMws := []mw.Middleware{
		mw.Recover(l.logger),
		tracingMw,
		metricsMw,
		mw.Logging(l.logger),
	}
	allMws := make([]mw.Middleware, 0, len(defaultMws)+len(l.mws))
	allMws = append(allMws, defaultMws...)
	allMws = append(allMws, l.mws...)
	l.chain = mw.Chain(allMws...)

	return l, nil
}

// Stop notifies extensions of shutdown. The store is owned by the caller
// and is not closed.
func (l *Ledger) Stop(ctx context.Context) error {
	l.extensions.EmitShutdown(ctx)
	return nil
}

// Extensions returns the extension registry.
func (l *Ledger) Extensions() *ext.Registry { return l.extensions }

// Store returns the underlying store.
func (l *Ledger) Store() store.Store { return l.store }

// Config returns the active configuration.
func (l *Ledger) Config() trustwork.Config { return l.config }

// Logger returns the ledger's logger.
func (l *Ledger) Logger() *slog.Logger { return l.logger }

func (l *Ledger) clock() time.Time { return l.now().UTC() }
