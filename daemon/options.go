package daemon

import (
	"log/slog"

	"github.com/xraph/relay"

	"github.com/nexora-w/TrustWork/api"
	audithook "github.com/nexora-w/TrustWork/audit_hook"
	"github.com/nexora-w/TrustWork/ext"
	"github.com/nexora-w/TrustWork/ledger"
	mw "github.com/nexora-w/TrustWork/middleware"
	"github.com/nexora-w/TrustWork/store"
)

// Option configures the Daemon.
type Option func(*Daemon)

// WithLogger sets the logger shared by every component.
func WithLogger(l *slog.Logger) Option {
	return func(d *Daemon) {
		d.logger = l
	}
}

// WithStore sets the persistence backend directly, bypassing
// Config.StoreKind. The daemon does not close a store passed this way.
func WithStore(s store.Store) Option {
	return func(d *Daemon) {
		d.store = s
	}
}

// WithExtension registers a ledger extension (lifecycle hooks).
func WithExtension(x ext.Extension) Option {
	return func(d *Daemon) {
		d.exts = append(d.exts, x)
	}
}

// WithMiddleware adds operation middleware to the ledger.
func WithMiddleware(m mw.Middleware) Option {
	return func(d *Daemon) {
		d.mws = append(d.mws, m)
	}
}

// WithLedgerOptions passes extra options through to ledger.New.
func WithLedgerOptions(opts ...ledger.Option) Option {
	return func(d *Daemon) {
		d.ledgerOpts = append(d.ledgerOpts, opts...)
	}
}

// WithAPIOptions passes extra options through to api.New.
func WithAPIOptions(opts ...api.Option) Option {
	return func(d *Daemon) {
		d.apiOpts = append(d.apiOpts, opts...)
	}
}

// WithAuditRecorder replaces the default log-backed audit recorder.
func WithAuditRecorder(r audithook.Recorder) Option {
	return func(d *Daemon) {
		d.recorder = r
	}
}

// WithRelay publishes ledger events through r. It implies
// Config.EnableWebhooks.
func WithRelay(r *relay.Relay) Option {
	return func(d *Daemon) {
		d.relay = r
	}
}
