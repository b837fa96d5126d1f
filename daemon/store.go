package daemon

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/nexora-w/TrustWork/store"
	bunstore "github.com/nexora-w/TrustWork/store/bun"
	"github.com/nexora-w/TrustWork/store/memory"
	mongostore "github.com/nexora-w/TrustWork/store/mongo"
	"github.com/nexora-w/TrustWork/store/postgres"
	redisstore "github.com/nexora-w/TrustWork/store/redis"
)

// closeFunc releases the connection behind an opened store.
type closeFunc func(ctx context.Context) error

func noClose(context.Context) error { return nil }

// openStore connects the backend named by cfg.StoreKind.
func openStore(ctx context.Context, cfg Config, logger *slog.Logger) (store.Store, closeFunc, error) {
	switch cfg.StoreKind {
	case StoreMemory:
		return memory.New(), noClose, nil

	case StorePostgres:
		s, err := postgres.New(ctx, cfg.StoreDSN, postgres.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return s, func(context.Context) error { return s.Close() }, nil

	case StoreBun:
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.StoreDSN)))
		db := bun.NewDB(sqldb, pgdialect.New())
		return bunstore.New(db, bunstore.WithLogger(logger)),
			func(context.Context) error { return db.Close() }, nil

	case StoreRedis:
		opts, err := goredis.ParseURL(cfg.StoreDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("daemon: parse redis url: %w", err)
		}
		client := goredis.NewClient(opts)
		return redisstore.New(client, redisstore.WithLogger(logger)),
			func(context.Context) error { return client.Close() }, nil

	case StoreMongo:
		client, err := mongod.Connect(options.Client().ApplyURI(cfg.StoreDSN))
		if err != nil {
			return nil, nil, fmt.Errorf("daemon: connect mongo: %w", err)
		}
		return mongostore.New(client.Database(cfg.MongoDatabase), mongostore.WithLogger(logger)),
			client.Disconnect, nil

	default:
		return nil, nil, fmt.Errorf("daemon: unknown store %q", cfg.StoreKind)
	}
}
