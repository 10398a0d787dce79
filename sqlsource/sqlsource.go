// Package sqlsource builds data sources backed by a database/sql pool, for any registered driver.
package sqlsource

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/a-peyrard/godi-datasource"
)

type (
	// Factory opens sql.DB pools. Opening a pool does not connect, unless Verify is set.
	Factory struct {
		Verify bool
	}

	// Source is a database/sql backed connection source.
	Source struct {
		name string
		db   *sql.DB
	}
)

// defaultMaxIdleConns is the database/sql default.
const defaultMaxIdleConns = 2

var _ datasource.Factory = Factory{}

func (f Factory) NewSource(ctx context.Context, settings datasource.Settings) (datasource.ConnectionSource, error) {
	dsn, err := settings.Properties.ApplyTo(settings.JNDIName)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(settings.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", settings.Driver, err)
	}
	db.SetMaxOpenConns(settings.PoolMax)
	db.SetMaxIdleConns(idleConns(settings))

	if f.Verify {
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping %s database: %w", settings.Driver, err)
		}
	}

	return &Source{name: settings.Unique, db: db}, nil
}

// idleConns keeps at least the database/sql default of idle connections, pool_min being a floor, within pool_max.
func idleConns(settings datasource.Settings) int {
	idle := max(settings.PoolMin, defaultMaxIdleConns)
	if settings.PoolMax > 0 {
		idle = min(idle, settings.PoolMax)
	}
	return idle
}

// DB returns the underlying pool.
func (s *Source) DB() *sql.DB {
	return s.db
}

func (s *Source) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Source) Close() error {
	return s.db.Close()
}

func (s *Source) PoolStats() datasource.PoolStats {
	stats := s.db.Stats()
	return datasource.PoolStats{
		MaxOpen: stats.MaxOpenConnections,
		Open:    stats.OpenConnections,
		Idle:    stats.Idle,
		InUse:   stats.InUse,
	}
}

func (s *Source) String() string {
	return fmt.Sprintf("sql pool %s", s.name)
}
