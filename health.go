package datasource

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"
)

// PingAll pings every source concurrently and reports all the failures, keyed by source name.
func PingAll(ctx context.Context, sources map[string]ConnectionSource) error {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	slices.Sort(names)

	var (
		group  errgroup.Group
		failed = make([]error, len(names))
	)
	for i, name := range names {
		source := sources[name]
		group.Go(func() error {
			if err := source.Ping(ctx); err != nil {
				failed[i] = fmt.Errorf("datasource %q is not reachable:\n\t%w", name, err)
			}
			return nil
		})
	}
	_ = group.Wait()

	return errors.Join(failed...)
}
