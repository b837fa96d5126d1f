// Package api exposes the ledger over HTTP with gin. It is a thin client:
// every handler translates the request into one ledger call and maps the
// result back, so no business rule lives here.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nexora-w/TrustWork/dispute"
	"github.com/nexora-w/TrustWork/ledger"
	"github.com/nexora-w/TrustWork/stream"
)

// API wires the gin handlers to a ledger.
type API struct {
	ledger   *ledger.Ledger
	resolver *dispute.Resolver
	broker   *stream.Broker
	auth     Authenticator
	limiter  *callerLimiter
	logger   *slog.Logger
}

// Option configures an API.
type Option func(*API)

// WithResolver routes dispute resolution through r so its arbitration
// policy applies. Without it resolutions go straight to the ledger.
func WithResolver(r *dispute.Resolver) Option {
	return func(a *API) { a.resolver = r }
}

// WithBroker enables the websocket event stream at /v1/stream.
func WithBroker(b *stream.Broker) Option {
	return func(a *API) { a.broker = b }
}

// WithAuthenticator sets how callers are identified. Defaults to
// HeaderAuthenticator.
func WithAuthenticator(auth Authenticator) Option {
	return func(a *API) { a.auth = auth }
}

// WithRateLimit allows each caller rps requests per second with the
// given burst. Zero rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(a *API) {
		if rps <= 0 {
			a.limiter = nil
			return
		}
		a.limiter = newCallerLimiter(rps, burst)
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *API) { a.logger = l }
}

// New creates an API over l.
func New(l *ledger.Ledger, opts ...Option) *API {
	a := &API{
		ledger: l,
		auth:   HeaderAuthenticator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handler returns the fully assembled http.Handler with all routes.
func (a *API) Handler() http.Handler {
	router := gin.New()
	router.Use(gin.Recovery(), a.requestLogger())
	a.RegisterRoutes(router)
	return router
}

// RegisterRoutes registers all ledger routes on router.
func (a *API) RegisterRoutes(router gin.IRouter) {
	router.GET("/healthz", a.healthz)

	v1 := router.Group("/v1", a.authenticate())
	if a.limiter != nil {
		v1.Use(a.limiter.middleware())
	}

	v1.POST("/jobs", a.createJob)
	v1.GET("/jobs", a.listJobs)
	v1.GET("/jobs/:jobId", a.getJob)
	v1.GET("/jobs/:jobId/transfers", a.listTransfers)
	v1.POST("/jobs/:jobId/accept", a.acceptJob)
	v1.POST("/jobs/:jobId/deliver", a.deliverWork)
	v1.POST("/jobs/:jobId/confirm", a.confirmDelivery)
	v1.POST("/jobs/:jobId/cancel", a.cancelJob)
	v1.POST("/jobs/:jobId/dispute", a.raiseDispute)
	v1.POST("/jobs/:jobId/resolve", a.resolveDispute)

	v1.GET("/accounts/:address/balance", a.balance)
	v1.GET("/accounts/:address/summary", a.summary)

	if a.broker != nil {
		v1.GET("/stream", a.stream)
	}
}

func (a *API) healthz(c *gin.Context) {
	if err := a.ledger.Store().Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// requestLogger logs every request at debug level and server errors at
// error level.
func (a *API) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelDebug
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		a.logger.LogAttrs(c.Request.Context(), level, "http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", status),
			slog.Duration("elapsed", time.Since(start)),
		)
	}
}
