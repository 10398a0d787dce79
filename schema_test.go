package datasource

import (
	"fmt"
	"testing"

	"github.com/a-peyrard/godi-datasource/set"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKeys(t *testing.T) {
	t.Run("it should namespace every slot under the data source name", func(t *testing.T) {
		// GIVEN
		name := "orders-db"

		// WHEN
		keys, err := DeriveKeys(name)

		// THEN
		require.NoError(t, err)
		expected := Keys{
			Unique:     "datasource.orders-db.unique",
			JNDIName:   "datasource.orders-db.jndi_name",
			Driver:     "datasource.orders-db.driver",
			Properties: "datasource.orders-db.properties",
			PoolMax:    "datasource.orders-db.pool_max",
			PoolMin:    "datasource.orders-db.pool_min",
		}
		if diff := cmp.Diff(expected, keys); diff != "" {
			t.Errorf("unexpected keys (-want +got):\n%s", diff)
		}
	})

	t.Run("it should be deterministic", func(t *testing.T) {
		// GIVEN
		name := "billing"

		// WHEN
		first, err1 := DeriveKeys(name)
		second, err2 := DeriveKeys(name)

		// THEN
		require.NoError(t, err1)
		require.NoError(t, err2)
		assert.Equal(t, first, second)
	})

	t.Run("it should never share a key between two distinct names", func(t *testing.T) {
		// GIVEN
		names := []string{
			"a", "b", "orders-db", "orders", "db", "orders.db", "orders-db.driver", "a.b", "a.b.c",
			"pool_max", "a.pool_max", "A", "datasource", "datasource.a", " a",
		}

		for i, n1 := range names {
			for _, n2 := range names[i+1:] {
				// WHEN
				k1, err := DeriveKeys(n1)
				require.NoError(t, err)
				k2, err := DeriveKeys(n2)
				require.NoError(t, err)

				// THEN
				common := set.New(k1.All()...).Intersection(set.New(k2.All()...))
				assert.Zero(t, common.Size(), fmt.Sprintf("%q and %q share keys", n1, n2))
			}
		}
	})

	t.Run("it should fail on empty names", func(t *testing.T) {
		for _, name := range []string{"", "   ", "\t"} {
			// WHEN
			_, err := DeriveKeys(name)

			// THEN
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
		}
	})

	t.Run("it should return the keys in slot order", func(t *testing.T) {
		// GIVEN
		keys, err := DeriveKeys("x")
		require.NoError(t, err)

		// WHEN
		all := keys.All()

		// THEN
		require.Len(t, all, len(Slots()))
		for i, slot := range Slots() {
			assert.Equal(t, keys.For(slot), all[i])
			assert.Equal(t, "datasource.x."+slot.String(), all[i])
		}
	})
}

func TestSlot(t *testing.T) {
	t.Run("it should bind local keys independently of the data source name", func(t *testing.T) {
		// WHEN
		key := SlotPoolMax.LocalKey()

		// THEN
		assert.Equal(t, "(int, named=datasource.pool_max)", key.String())
	})

	t.Run("it should type lookup keys like local keys", func(t *testing.T) {
		// GIVEN
		keys, err := DeriveKeys("orders-db")
		require.NoError(t, err)

		for _, slot := range Slots() {
			// WHEN
			lookup := keys.LookupKey(slot)

			// THEN
			assert.Equal(t, slot.LocalKey().Type(), lookup.Type())
			name, _ := lookup.Qualifier().Name()
			assert.Equal(t, keys.For(slot), name)
		}
	})

	t.Run("it should name unknown slots", func(t *testing.T) {
		assert.Equal(t, "unknown", Slot(0).String())
		assert.Equal(t, "unknown", Slot(42).String())
	})
}
