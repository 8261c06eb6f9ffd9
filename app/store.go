package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/reps"
	"github.com/xraph/reps/store"
	"github.com/xraph/reps/store/badger"
	bunstore "github.com/xraph/reps/store/bun"
	"github.com/xraph/reps/store/memory"
	"github.com/xraph/reps/store/mongo"
	"github.com/xraph/reps/store/postgres"
	"github.com/xraph/reps/store/redis"
	"github.com/xraph/reps/store/sqlite"
)

// OpenStore builds a record store from a driver name and DSN.
// Supported drivers: memory, sqlite, postgres, redis, badger, bun,
// mongo. The mongo DSN may carry the database name in its path; it
// defaults to "reps".
func OpenStore(ctx context.Context, driver, dsn string, logger *slog.Logger) (store.Store, error) {
	switch driver {
	case "":
		return nil, reps.ErrNoStore
	case "memory":
		return memory.New(), nil
	case "sqlite":
		return sqlite.New(dsn, sqlite.WithLogger(logger))
	case "postgres":
		return postgres.New(ctx, dsn, postgres.WithLogger(logger))
	case "redis":
		return redis.New(dsn, redis.WithLogger(logger))
	case "badger":
		if dsn == "" {
			return badger.NewInMemory()
		}
		return badger.New(dsn)
	case "bun":
		return bunstore.Open(dsn, bunstore.WithLogger(logger)), nil
	case "mongo":
		return mongo.New(dsn, "reps", mongo.WithLogger(logger))
	default:
		return nil, fmt.Errorf("%w: unknown store driver %q", reps.ErrValidation, driver)
	}
}
