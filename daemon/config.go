package daemon

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	trustwork "github.com/nexora-w/TrustWork"
)

// EnvPrefix prefixes every environment variable LoadConfig reads.
const EnvPrefix = "TRUSTWORK_"

// Store kinds accepted by Config.StoreKind.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreBun      = "bun"
	StoreRedis    = "redis"
	StoreMongo    = "mongo"
)

// Config holds configuration for the TrustWork daemon.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `json:"addr"`

	// StoreKind selects the persistence backend.
	StoreKind string `json:"store_kind"`

	// StoreDSN is the backend connection string. Ignored for memory.
	StoreDSN string `json:"store_dsn"`

	// MongoDatabase names the database used by the mongo backend.
	MongoDatabase string `json:"mongo_database"`

	// DisableMigrate disables auto-migration on start.
	DisableMigrate bool `json:"disable_migrate"`

	// RateLimit is the sustained request rate allowed per caller. Zero
	// disables rate limiting.
	RateLimit float64 `json:"rate_limit"`

	// RateBurst is the burst size allowed per caller.
	RateBurst int `json:"rate_burst"`

	// EnableStream mounts the websocket event stream.
	EnableStream bool `json:"enable_stream"`

	// EnableWebhooks publishes ledger events through relay.
	EnableWebhooks bool `json:"enable_webhooks"`

	// OperationTimeout bounds each ledger operation.
	OperationTimeout time.Duration `json:"operation_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`

	// Ledger holds the core ledger configuration.
	Ledger trustwork.Config `json:"ledger"`
}

// DefaultConfig returns the daemon defaults.
func DefaultConfig() Config {
	return Config{
		Addr:             ":8080",
		StoreKind:        StoreMemory,
		MongoDatabase:    "trustwork",
		RateLimit:        20,
		RateBurst:        40,
		EnableStream:     true,
		OperationTimeout: 10 * time.Second,
		ShutdownTimeout:  15 * time.Second,
		Ledger:           trustwork.DefaultConfig(),
	}
}

// LoadConfig reads TRUSTWORK_* variables through lookup on top of the
// defaults. Pass os.LookupEnv in production.
func LoadConfig(lookup func(string) (string, bool)) (Config, error) {
	cfg := DefaultConfig()
	if lookup == nil {
		lookup = os.LookupEnv
	}
	env := envReader{lookup: lookup}

	env.str("ADDR", &cfg.Addr)
	env.str("STORE", &cfg.StoreKind)
	env.str("STORE_DSN", &cfg.StoreDSN)
	env.str("MONGO_DATABASE", &cfg.MongoDatabase)
	env.boolean("DISABLE_MIGRATE", &cfg.DisableMigrate)
	env.float("RATE_LIMIT", &cfg.RateLimit)
	env.integer("RATE_BURST", &cfg.RateBurst)
	env.boolean("ENABLE_STREAM", &cfg.EnableStream)
	env.boolean("ENABLE_WEBHOOKS", &cfg.EnableWebhooks)
	env.duration("OPERATION_TIMEOUT", &cfg.OperationTimeout)
	env.duration("SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout)

	env.duration("MIN_DEADLINE", &cfg.Ledger.MinDeadline)
	env.integer("MAX_TITLE_LENGTH", &cfg.Ledger.MaxTitleLength)
	env.integer("MAX_DESCRIPTION_LENGTH", &cfg.Ledger.MaxDescriptionLength)
	env.list("ARBITRATORS", &cfg.Ledger.Arbitrators)
	env.str("SWEEP_SCHEDULE", &cfg.Ledger.SweepSchedule)

	if env.err != nil {
		return Config{}, env.err
	}
	return cfg, cfg.Validate()
}

// Validate checks the combination of settings.
func (c Config) Validate() error {
	switch c.StoreKind {
	case StoreMemory:
	case StorePostgres, StoreBun, StoreRedis, StoreMongo:
		if c.StoreDSN == "" {
			return fmt.Errorf("daemon: %sSTORE_DSN is required for store %q", EnvPrefix, c.StoreKind)
		}
	default:
		return fmt.Errorf("daemon: unknown store %q", c.StoreKind)
	}
	if c.RateLimit < 0 || c.RateBurst < 0 {
		return fmt.Errorf("daemon: rate limit and burst must not be negative")
	}
	return nil
}

// envReader records the first parse error so LoadConfig can report it
// after reading every variable.
type envReader struct {
	lookup func(string) (string, bool)
	err    error
}

func (r *envReader) get(name string) (string, bool) {
	v, ok := r.lookup(EnvPrefix + name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (r *envReader) fail(name, v string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("daemon: %s%s=%q: %w", EnvPrefix, name, v, err)
	}
}

func (r *envReader) str(name string, dst *string) {
	if v, ok := r.get(name); ok {
		*dst = v
	}
}

func (r *envReader) boolean(name string, dst *bool) {
	if v, ok := r.get(name); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			r.fail(name, v, err)
			return
		}
		*dst = b
	}
}

func (r *envReader) integer(name string, dst *int) {
	if v, ok := r.get(name); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			r.fail(name, v, err)
			return
		}
		*dst = n
	}
}

func (r *envReader) float(name string, dst *float64) {
	if v, ok := r.get(name); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			r.fail(name, v, err)
			return
		}
		*dst = f
	}
}

func (r *envReader) duration(name string, dst *time.Duration) {
	if v, ok := r.get(name); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			r.fail(name, v, err)
			return
		}
		*dst = d
	}
}

func (r *envReader) list(name string, dst *[]string) {
	if v, ok := r.get(name); ok {
		var out []string
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*dst = out
	}
}
