// Package store opens the configured user store and runs its migrations.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/geocoder89/userhub/internal/config"
	"github.com/geocoder89/userhub/internal/db"
	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/observability"
	"github.com/geocoder89/userhub/internal/repo/postgres"
	"github.com/geocoder89/userhub/internal/repo/sqlite"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Users is a user repository that can also answer readiness probes.
type Users interface {
	user.Repository
	Ping(ctx context.Context) error
}

type Store struct {
	Driver string
	Users  Users

	cfg  config.DB
	pool *pgxpool.Pool
	sql  *sql.DB
}

// Open connects to the driver named in cfg. prom may be nil.
func Open(ctx context.Context, cfg config.DB, prom *observability.Prom) (*Store, error) {
	s := &Store{Driver: cfg.Driver, cfg: cfg}

	switch cfg.Driver {
	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, cfg.PostgresURL(), cfg.MaxConns)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		s.pool = pool
		s.Users = postgres.NewUsersRepo(pool, prom)

	case config.DriverSQLite:
		conn, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		s.sql = conn
		s.Users = sqlite.NewUsersRepo(conn).WithMetrics(prom)

	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}

	return s, nil
}

// Migrate moves the schema in dir using the embedded migrations.
func (s *Store) Migrate(dir db.Direction) error {
	if s.pool != nil {
		return db.MigratePostgres(s.cfg.PostgresURL(), dir)
	}
	return db.MigrateSQLite(s.sql, dir)
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.sql != nil {
		_ = s.sql.Close()
	}
}
