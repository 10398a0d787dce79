package datasource

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

type (
	// ConnectionSource is a pool of connections to a data source.
	ConnectionSource interface {
		Ping(ctx context.Context) error
		Close() error
	}

	// Factory builds connection sources. There is one implementation per pooling library.
	Factory interface {
		NewSource(ctx context.Context, settings Settings) (ConnectionSource, error)
	}

	// FactoryFunc adapts a function to the Factory interface.
	FactoryFunc func(ctx context.Context, settings Settings) (ConnectionSource, error)

	// Properties are driver specific connection parameters.
	Properties map[string]string

	// Settings are the resolved configuration slots of a data source.
	Settings struct {
		// Unique is the name of the data source.
		Unique string
		// JNDIName locates the data source: a URL or a DSN, as understood by the driver.
		JNDIName   string
		Driver     string
		Properties Properties
		PoolMax    int
		PoolMin    int
	}

	// PoolStats is a snapshot of the connections held by a pool.
	PoolStats struct {
		MaxOpen int
		Open    int
		Idle    int
		InUse   int
	}

	// StatsReporter is implemented by connection sources able to report pool statistics.
	StatsReporter interface {
		PoolStats() PoolStats
	}
)

func (f FactoryFunc) NewSource(ctx context.Context, settings Settings) (ConnectionSource, error) {
	return f(ctx, settings)
}

// Validate checks the consistency of the settings, a zero PoolMax meaning "driver default".
func (s Settings) Validate() error {
	if strings.TrimSpace(s.Unique) == "" {
		return invalid(s.Unique, SlotUnique, "name must not be empty")
	}
	if strings.TrimSpace(s.JNDIName) == "" {
		return invalid(s.Unique, SlotJNDIName, "must not be empty")
	}
	if strings.TrimSpace(s.Driver) == "" {
		return invalid(s.Unique, SlotDriver, "must not be empty")
	}
	if s.PoolMax < 0 {
		return invalid(s.Unique, SlotPoolMax, "must not be negative, got %d", s.PoolMax)
	}
	if s.PoolMin < 0 {
		return invalid(s.Unique, SlotPoolMin, "must not be negative, got %d", s.PoolMin)
	}
	if s.PoolMax > 0 && s.PoolMin > s.PoolMax {
		return invalid(s.Unique, SlotPoolMin, "must not exceed pool_max (%d), got %d", s.PoolMax, s.PoolMin)
	}
	return nil
}

// Keys returns the property names, sorted.
func (p Properties) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Encode returns the properties as a sorted query string.
func (p Properties) Encode() string {
	values := url.Values{}
	for k, v := range p {
		values.Set(k, v)
	}
	return values.Encode()
}

// ApplyTo adds the properties to a data source name, overriding parameters already present.
//
// URLs get them as query parameters, keyword/value DSNs ("host=localhost dbname=app") as extra keywords, and any
// other DSN as a query string suffix.
func (p Properties) ApplyTo(dsn string) (string, error) {
	if len(p) == 0 {
		return dsn, nil
	}

	switch {
	case strings.Contains(dsn, "://"):
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("invalid data source URL:\n\t%w", err)
		}
		query := u.Query()
		for _, k := range p.Keys() {
			query.Set(k, p[k])
		}
		u.RawQuery = query.Encode()
		return u.String(), nil

	case strings.TrimSpace(dsn) == "" || (strings.Contains(dsn, "=") && !strings.Contains(dsn, "?")):
		var b strings.Builder
		b.WriteString(strings.TrimSpace(dsn))
		for _, k := range p.Keys() {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(quoteKeywordValue(p[k]))
		}
		return b.String(), nil

	default:
		separator := "?"
		if strings.Contains(dsn, "?") {
			separator = "&"
		}
		return dsn + separator + p.Encode(), nil
	}
}

func quoteKeywordValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v)
	return "'" + escaped + "'"
}
