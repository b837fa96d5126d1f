// Package daemon assembles a runnable TrustWork server: it opens the
// configured store, builds the ledger with its extensions and middleware,
// and serves the HTTP API while the deadline sweeper runs alongside.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/xraph/relay"
	relaymem "github.com/xraph/relay/store/memory"
	"golang.org/x/sync/errgroup"

	"github.com/nexora-w/TrustWork/api"
	audithook "github.com/nexora-w/TrustWork/audit_hook"
	"github.com/nexora-w/TrustWork/dispute"
	"github.com/nexora-w/TrustWork/ext"
	"github.com/nexora-w/TrustWork/ledger"
	mw "github.com/nexora-w/TrustWork/middleware"
	relayhook "github.com/nexora-w/TrustWork/relay_hook"
	"github.com/nexora-w/TrustWork/store"
	"github.com/nexora-w/TrustWork/stream"
	"github.com/nexora-w/TrustWork/sweep"
)

// Daemon owns every long-lived component of a TrustWork server.
type Daemon struct {
	config Config
	logger *slog.Logger

	store      store.Store
	closeStore closeFunc
	exts       []ext.Extension
	mws        []mw.Middleware
	ledgerOpts []ledger.Option
	apiOpts    []api.Option
	recorder   audithook.Recorder
	relay      *relay.Relay

	ledger  *ledger.Ledger
	broker  *stream.Broker
	sweeper *sweep.Sweeper
	api     *api.API
	server  *http.Server
}

// New creates a daemon. Nothing is connected until Init.
func New(cfg Config, opts ...Option) *Daemon {
	d := &Daemon{
		config: cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Init opens the store, runs migrations unless disabled, and builds the
// ledger, the API and the sweeper.
func (d *Daemon) Init(ctx context.Context) error {
	if d.store == nil {
		if err := d.config.Validate(); err != nil {
			return err
		}
		s, closer, err := openStore(ctx, d.config, d.logger)
		if err != nil {
			return fmt.Errorf("daemon: open %s store: %w", d.config.StoreKind, err)
		}
		d.store, d.closeStore = s, closer
	}
	if d.closeStore == nil {
		d.closeStore = noClose
	}

	if !d.config.DisableMigrate {
		if err := d.store.Migrate(ctx); err != nil {
			return fmt.Errorf("daemon: migration failed: %w", err)
		}
	}

	policy, err := dispute.FromConfig(d.config.Ledger)
	if err != nil {
		return fmt.Errorf("daemon: arbitrators: %w", err)
	}

	recorder := d.recorder
	if recorder == nil {
		recorder = audithook.LogRecorder(d.logger)
	}

	ledgerOpts := make([]ledger.Option, 0, len(d.ledgerOpts)+len(d.exts)+len(d.mws)+5)
	ledgerOpts = append(ledgerOpts,
		ledger.WithLogger(d.logger),
		ledger.WithConfig(d.config.Ledger),
		ledger.WithMiddleware(mw.Timeout(d.config.OperationTimeout)),
		ledger.WithExtension(audithook.New(recorder, audithook.WithLogger(d.logger))),
	)

	if d.config.EnableStream {
		d.broker = stream.NewBroker(d.logger)
		ledgerOpts = append(ledgerOpts, ledger.WithExtension(d.broker))
	}

	if d.relay == nil && d.config.EnableWebhooks {
		r, err := relay.New(relay.WithStore(relaymem.New()))
		if err != nil {
			return fmt.Errorf("daemon: create relay: %w", err)
		}
		d.relay = r
	}
	if d.relay != nil {
		if err := relayhook.RegisterAll(ctx, d.relay); err != nil {
			return fmt.Errorf("daemon: register webhook definitions: %w", err)
		}
		ledgerOpts = append(ledgerOpts, ledger.WithExtension(relayhook.New(d.relay)))
	}

	for _, x := range d.exts {
		ledgerOpts = append(ledgerOpts, ledger.WithExtension(x))
	}
	for _, m := range d.mws {
		ledgerOpts = append(ledgerOpts, ledger.WithMiddleware(m))
	}
	ledgerOpts = append(ledgerOpts, d.ledgerOpts...)

	d.ledger, err = ledger.New(d.store, ledgerOpts...)
	if err != nil {
		return fmt.Errorf("daemon: create ledger: %w", err)
	}

	resolver := dispute.NewResolver(d.ledger,
		dispute.WithPolicy(policy),
		dispute.WithLogger(d.logger),
	)

	apiOpts := []api.Option{
		api.WithLogger(d.logger),
		api.WithResolver(resolver),
		api.WithRateLimit(d.config.RateLimit, d.config.RateBurst),
	}
	if d.broker != nil {
		apiOpts = append(apiOpts, api.WithBroker(d.broker))
	}
	apiOpts = append(apiOpts, d.apiOpts...)
	d.api = api.New(d.ledger, apiOpts...)

	if schedule := d.config.Ledger.SweepSchedule; schedule != "" {
		d.sweeper, err = sweep.New(d.ledger,
			sweep.WithSchedule(schedule),
			sweep.WithLogger(d.logger),
		)
		if err != nil {
			return fmt.Errorf("daemon: sweeper: %w", err)
		}
	}

	d.server = &http.Server{
		Addr:              d.config.Addr,
		Handler:           d.api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// Run serves until ctx is cancelled, then shuts everything down within
// Config.ShutdownTimeout. Init must have succeeded.
func (d *Daemon) Run(ctx context.Context) error {
	if d.ledger == nil {
		return errors.New("daemon: not initialized")
	}

	if d.sweeper != nil {
		if err := d.sweeper.Start(ctx); err != nil {
			return fmt.Errorf("daemon: start sweeper: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		d.logger.Info("http server listening", "addr", d.server.Addr, "store", d.config.StoreKind)
		if err := d.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("daemon: http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), d.config.ShutdownTimeout)
		defer cancel()
		return d.shutdown(shutdownCtx)
	})

	return g.Wait()
}

// shutdown stops intake first, then background work, then the ledger and
// finally the store connection.
func (d *Daemon) shutdown(ctx context.Context) error {
	d.logger.Info("shutting down")

	var errs []error
	if err := d.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http server: %w", err))
	}
	if d.sweeper != nil {
		if err := d.sweeper.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("sweeper: %w", err))
		}
	}
	if err := d.ledger.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("ledger: %w", err))
	}
	if err := d.closeStore(ctx); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	return errors.Join(errs...)
}

// Health reports whether the store is reachable.
func (d *Daemon) Health(ctx context.Context) error {
	if d.store == nil {
		return errors.New("daemon: not initialized")
	}
	return d.store.Ping(ctx)
}

// Handler returns the HTTP handler for all API routes. Before Init every
// request gets 404.
func (d *Daemon) Handler() http.Handler {
	if d.api == nil {
		return http.NotFoundHandler()
	}
	return d.server.Handler
}

// Ledger returns the ledger built by Init.
func (d *Daemon) Ledger() *ledger.Ledger { return d.ledger }

// Relay returns the webhook relay, or nil when webhooks are disabled.
func (d *Daemon) Relay() *relay.Relay { return d.relay }
