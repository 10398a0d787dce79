package datasource

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() Settings {
	return Settings{
		Unique:     "orders-db",
		JNDIName:   "postgres://localhost:5432/orders",
		Driver:     "pgx",
		Properties: Properties{},
		PoolMax:    10,
		PoolMin:    2,
	}
}

func TestSettings_Validate(t *testing.T) {
	t.Run("it should accept consistent settings", func(t *testing.T) {
		assert.NoError(t, validSettings().Validate())
	})

	t.Run("it should treat a zero pool_max as the driver default", func(t *testing.T) {
		// GIVEN
		settings := validSettings()
		settings.PoolMax = 0
		settings.PoolMin = 5

		// WHEN / THEN
		assert.NoError(t, settings.Validate())
	})

	t.Run("it should name the faulty slot", func(t *testing.T) {
		testCases := map[Slot]func(s *Settings){
			SlotJNDIName: func(s *Settings) { s.JNDIName = " " },
			SlotDriver:   func(s *Settings) { s.Driver = "" },
			SlotPoolMax:  func(s *Settings) { s.PoolMax = -1 },
			SlotPoolMin:  func(s *Settings) { s.PoolMin = 11 },
		}

		for slot, breakIt := range testCases {
			// GIVEN
			settings := validSettings()
			breakIt(&settings)

			// WHEN
			err := settings.Validate()

			// THEN
			require.Error(t, err, slot.String())
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
			var configErr *ConfigError
			require.True(t, errors.As(err, &configErr))
			assert.Equal(t, slot, configErr.Slot)
			assert.Equal(t, "orders-db", configErr.Resource)
		}
	})
}

func TestProperties(t *testing.T) {
	props := Properties{"sslmode": "disable", "application_name": "orders api"}

	t.Run("it should encode properties sorted", func(t *testing.T) {
		assert.Equal(t, []string{"application_name", "sslmode"}, props.Keys())
		assert.Equal(t, "application_name=orders+api&sslmode=disable", props.Encode())
	})

	t.Run("it should add properties to URLs", func(t *testing.T) {
		// WHEN
		dsn, err := props.ApplyTo("postgres://localhost:5432/orders?sslmode=require")

		// THEN
		require.NoError(t, err)
		assert.Equal(t, "postgres://localhost:5432/orders?application_name=orders+api&sslmode=disable", dsn)
	})

	t.Run("it should add properties to keyword/value strings", func(t *testing.T) {
		// WHEN
		dsn, err := props.ApplyTo("host=localhost dbname=orders")

		// THEN
		require.NoError(t, err)
		assert.Equal(t, "host=localhost dbname=orders application_name='orders api' sslmode=disable", dsn)
	})

	t.Run("it should append properties to other data source names", func(t *testing.T) {
		// WHEN
		plain, plainErr := Properties{"cache": "shared"}.ApplyTo("file:orders.db")
		queried, queriedErr := Properties{"cache": "shared"}.ApplyTo("file:orders.db?mode=ro")

		// THEN
		require.NoError(t, errors.Join(plainErr, queriedErr))
		assert.Equal(t, "file:orders.db?cache=shared", plain)
		assert.Equal(t, "file:orders.db?mode=ro&cache=shared", queried)
	})

	t.Run("it should leave the data source name untouched without properties", func(t *testing.T) {
		dsn, err := Properties(nil).ApplyTo("postgres://localhost/orders")
		require.NoError(t, err)
		assert.Equal(t, "postgres://localhost/orders", dsn)
	})

	t.Run("it should fail on malformed URLs", func(t *testing.T) {
		_, err := props.ApplyTo("postgres://local host:xx/orders")
		assert.Error(t, err)
	})
}

func TestIdentity(t *testing.T) {
	t.Run("it should build named identities", func(t *testing.T) {
		// WHEN
		identity, err := Named("orders-db")

		// THEN
		require.NoError(t, err)
		assert.Equal(t, "orders-db", identity.Name())
		assert.Equal(t, "orders-db as named=orders-db", identity.String())
		assert.False(t, identity.IsZero())
	})

	t.Run("it should keep the name apart from the qualifier", func(t *testing.T) {
		// WHEN
		typed, typedErr := TypedBy[Primary]("orders-db")
		tagged, taggedErr := Tagged("eu", "orders-db")

		// THEN
		require.NoError(t, errors.Join(typedErr, taggedErr))
		assert.Equal(t, "orders-db", typed.Name())
		assert.Equal(t, "orders-db", tagged.Name())
		assert.NotEqual(t, typed.Qualifier(), tagged.Qualifier())
	})

	t.Run("it should refuse incomplete identities", func(t *testing.T) {
		_, nilMarker := Typed(nil, "orders-db")
		_, nilTag := Tagged(nil, "orders-db")
		_, blank := Named("  ")

		assert.ErrorIs(t, nilMarker, ErrInvalidConfiguration)
		assert.ErrorIs(t, nilTag, ErrInvalidConfiguration)
		assert.ErrorIs(t, blank, ErrInvalidConfiguration)
		assert.True(t, Identity{}.IsZero())
		assert.Panics(t, func() { MustNamed("") })
	})
}
