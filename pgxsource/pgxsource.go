// Package pgxsource builds data sources backed by a pgx connection pool.
package pgxsource

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/a-peyrard/godi-datasource"
	"github.com/jackc/pgx/v5/pgxpool"
)

type (
	// Factory builds pgxpool backed connection sources. The pool connects lazily unless Verify is set.
	Factory struct {
		Verify bool
	}

	// Source is a pgxpool backed connection source.
	Source struct {
		name string
		pool *pgxpool.Pool
	}
)

// Drivers are the driver names the factory accepts.
var Drivers = []string{"pgx", "postgres", "postgresql"}

var _ datasource.Factory = Factory{}

// PoolConfig turns the settings into a pool configuration.
//
// The properties are added to the connection string, so that pgx handles them as any connection parameter:
// known ones (sslmode, connect_timeout...) configure the connection, the others are sent as runtime parameters.
func PoolConfig(settings datasource.Settings) (*pgxpool.Config, error) {
	if !slices.Contains(Drivers, settings.Driver) {
		return nil, fmt.Errorf("unsupported driver %q, expected one of %v", settings.Driver, Drivers)
	}
	dsn, err := settings.Properties.ApplyTo(settings.JNDIName)
	if err != nil {
		return nil, err
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if settings.PoolMax > 0 {
		config.MaxConns = clamp(settings.PoolMax)
	}
	if settings.PoolMin > 0 {
		config.MinConns = clamp(settings.PoolMin)
	}
	if config.MinConns > config.MaxConns {
		return nil, &datasource.ConfigError{
			Resource: settings.Unique,
			Slot:     datasource.SlotPoolMin,
			Err: fmt.Errorf("%w: must not exceed the pool size (%d), got %d",
				datasource.ErrInvalidConfiguration, config.MaxConns, config.MinConns),
		}
	}

	return config, nil
}

func (f Factory) NewSource(ctx context.Context, settings datasource.Settings) (datasource.ConnectionSource, error) {
	config, err := PoolConfig(settings)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if f.Verify {
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping pool: %w", err)
		}
	}

	return &Source{name: settings.Unique, pool: pool}, nil
}

// Pool returns the underlying pool.
func (s *Source) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *Source) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Source) Close() error {
	s.pool.Close()
	return nil
}

func (s *Source) PoolStats() datasource.PoolStats {
	stat := s.pool.Stat()
	return datasource.PoolStats{
		MaxOpen: int(stat.MaxConns()),
		Open:    int(stat.TotalConns()),
		Idle:    int(stat.IdleConns()),
		InUse:   int(stat.AcquiredConns()),
	}
}

func (s *Source) String() string {
	return fmt.Sprintf("pgx pool %s", s.name)
}

func clamp(n int) int32 {
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(n)
}
