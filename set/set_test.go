package set

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	t.Run("it should ignore duplicated values", func(t *testing.T) {
		// WHEN
		s := New("a", "b", "a")

		// THEN
		assert.Equal(t, 2, s.Size())
		assert.True(t, s.Contains("a"))
		assert.False(t, s.Contains("c"))
	})

	t.Run("it should remove values", func(t *testing.T) {
		// GIVEN
		s := New(1, 2)

		// WHEN
		s.Remove(1)
		s.Remove(3)

		// THEN
		assert.Equal(t, New(2), s)
	})

	t.Run("it should intersect sets", func(t *testing.T) {
		// GIVEN
		left := New("datasource.a.driver", "datasource.a.pool_max")
		right := New("datasource.a.driver", "datasource.b.pool_max")

		// WHEN
		common := left.Intersection(right)

		// THEN
		assert.Equal(t, New("datasource.a.driver"), common)
		assert.Zero(t, left.Intersection(New[string]()).Size())
	})
}
