package sqlsource

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"
	"testing"

	"github.com/a-peyrard/godi-datasource"
	"github.com/a-peyrard/godi-datasource/inject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fakeDriverName = "sqlsource-fake"

type (
	fakeDriver struct {
		mu   sync.Mutex
		dsns []string
	}

	fakeConn struct {
		dsn string
	}
)

var (
	registered = &fakeDriver{}

	errUnreachable = errors.New("database unreachable")
)

func init() {
	sql.Register(fakeDriverName, registered)
}

func (d *fakeDriver) Open(dsn string) (driver.Conn, error) {
	d.mu.Lock()
	d.dsns = append(d.dsns, dsn)
	d.mu.Unlock()
	return &fakeConn{dsn: dsn}, nil
}

func (d *fakeDriver) lastDSN() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.dsns) == 0 {
		return ""
	}
	return d.dsns[len(d.dsns)-1]
}

func (d *fakeDriver) opened(dsn string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	count := 0
	for _, opened := range d.dsns {
		if opened == dsn {
			count++
		}
	}
	return count
}

func (c *fakeConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("not implemented")
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) Begin() (driver.Tx, error) {
	return nil, errors.New("not implemented")
}

func (c *fakeConn) Ping(context.Context) error {
	if c.dsn == "unreachable" {
		return errUnreachable
	}
	return nil
}

func settings(dsn string) datasource.Settings {
	return datasource.Settings{
		Unique:     "orders-db",
		JNDIName:   dsn,
		Driver:     fakeDriverName,
		Properties: datasource.Properties{"sslmode": "disable"},
		PoolMax:    5,
		PoolMin:    2,
	}
}

func TestFactory(t *testing.T) {
	ctx := context.Background()

	t.Run("it should open a pool with the pool bounds", func(t *testing.T) {
		// GIVEN
		factory := Factory{}

		// WHEN
		source, err := factory.NewSource(ctx, settings("mem://orders"))

		// THEN
		require.NoError(t, err)
		defer source.Close()
		assert.Equal(t, 5, source.(*Source).PoolStats().MaxOpen)
		assert.Equal(t, 0, source.(*Source).PoolStats().Open)
	})

	t.Run("it should hand the properties to the driver", func(t *testing.T) {
		// GIVEN
		source, err := Factory{}.NewSource(ctx, settings("mem://orders"))
		require.NoError(t, err)
		defer source.Close()

		// WHEN
		err = source.Ping(ctx)

		// THEN
		require.NoError(t, err)
		assert.Equal(t, "mem://orders?sslmode=disable", registered.lastDSN())
		stats := source.(*Source).PoolStats()
		assert.Equal(t, 1, stats.Open)
		assert.Equal(t, 1, stats.Idle)
	})

	t.Run("it should reuse connections when pool_min is not set", func(t *testing.T) {
		// GIVEN
		s := settings("mem://reuse")
		s.Properties = nil
		s.PoolMax = 10
		s.PoolMin = 0
		source, err := Factory{}.NewSource(ctx, s)
		require.NoError(t, err)
		defer source.Close()

		// WHEN
		for range 3 {
			require.NoError(t, source.Ping(ctx))
		}

		// THEN
		assert.Equal(t, 1, registered.opened("mem://reuse"))
		assert.Equal(t, 1, source.(*Source).PoolStats().Idle)
	})

	t.Run("it should keep idle connections within the pool bounds", func(t *testing.T) {
		testCases := []struct {
			poolMax, poolMin, expected int
		}{
			{poolMax: 0, poolMin: 0, expected: 2},
			{poolMax: 10, poolMin: 0, expected: 2},
			{poolMax: 10, poolMin: 5, expected: 5},
			{poolMax: 1, poolMin: 0, expected: 1},
			{poolMax: 0, poolMin: 8, expected: 8},
		}

		for _, tc := range testCases {
			// GIVEN
			s := settings("mem://bounds")
			s.PoolMax = tc.poolMax
			s.PoolMin = tc.poolMin

			// WHEN
			idle := idleConns(s)

			// THEN
			assert.Equal(t, tc.expected, idle, "pool_max=%d pool_min=%d", tc.poolMax, tc.poolMin)
		}
	})

	t.Run("it should verify the pool when asked", func(t *testing.T) {
		// GIVEN
		s := settings("unreachable")
		s.Properties = nil

		// WHEN
		_, verifiedErr := Factory{Verify: true}.NewSource(ctx, s)
		lazy, lazyErr := Factory{}.NewSource(ctx, s)

		// THEN
		require.Error(t, verifiedErr)
		assert.ErrorIs(t, verifiedErr, errUnreachable)
		require.NoError(t, lazyErr)
		defer lazy.Close()
		assert.ErrorIs(t, lazy.Ping(ctx), errUnreachable)
	})

	t.Run("it should fail on unknown drivers", func(t *testing.T) {
		// GIVEN
		s := settings("mem://orders")
		s.Driver = "unknown-driver"

		// WHEN
		_, err := Factory{}.NewSource(ctx, s)

		// THEN
		require.Error(t, err)
		assert.Contains(t, err.Error(), "open unknown-driver database")
	})

	t.Run("it should be closed with the container", func(t *testing.T) {
		// GIVEN
		c := inject.New()
		keys, err := datasource.DeriveKeys("orders-db")
		require.NoError(t, err)
		b := c.Binder()
		require.NoError(t, b.BindConstant(keys.JNDIName, "mem://orders"))
		require.NoError(t, b.BindConstant(keys.Driver, fakeDriverName))
		require.NoError(t, b.BindConstant(keys.Properties, map[string]string{}))
		require.NoError(t, b.BindConstant(keys.PoolMax, "3"))
		require.NoError(t, b.BindConstant(keys.PoolMin, "1"))
		module, err := datasource.NewNamedModule("orders-db", Factory{Verify: true})
		require.NoError(t, err)
		require.NoError(t, c.Install(module))
		require.NoError(t, c.Init(ctx))
		source, err := inject.ResolveKey[datasource.ConnectionSource](ctx, c, module.Key())
		require.NoError(t, err)

		// WHEN
		require.NoError(t, c.Close())

		// THEN
		assert.Error(t, source.Ping(ctx))
	})
}
