package option

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type poolOptions struct {
	URL     string
	MaxSize int
	Verify  bool
}

func withURL(url string) Option[poolOptions] {
	return func(opts *poolOptions) {
		opts.URL = url
	}
}

func withMaxSize(size int) Option[poolOptions] {
	return func(opts *poolOptions) {
		opts.MaxSize = size
	}
}

func withVerify() Option[poolOptions] {
	return func(opts *poolOptions) {
		opts.Verify = true
	}
}

func TestBuild(t *testing.T) {
	t.Run("it should keep defaults when no option is given", func(t *testing.T) {
		// GIVEN
		defaults := &poolOptions{URL: "postgres://localhost:5432/app", MaxSize: 10}

		// WHEN
		result := Build(defaults)

		// THEN
		assert.Same(t, defaults, result)
		assert.Equal(t, "postgres://localhost:5432/app", result.URL)
		assert.Equal(t, 10, result.MaxSize)
		assert.False(t, result.Verify)
	})

	t.Run("it should apply options in order, last one wins", func(t *testing.T) {
		// GIVEN
		defaults := &poolOptions{MaxSize: 10}

		// WHEN
		result := Build(defaults,
			withURL("postgres://db:5432/orders"),
			withMaxSize(50),
			withMaxSize(25),
			withVerify(),
		)

		// THEN
		assert.Equal(t, "postgres://db:5432/orders", result.URL)
		assert.Equal(t, 25, result.MaxSize)
		assert.True(t, result.Verify)
	})

	t.Run("it should skip nil options", func(t *testing.T) {
		// GIVEN
		defaults := &poolOptions{MaxSize: 10}

		// WHEN
		result := Build(defaults, nil, withMaxSize(3), nil)

		// THEN
		assert.Equal(t, 3, result.MaxSize)
	})
}
