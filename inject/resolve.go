package inject

import (
	"context"
	"errors"
	"fmt"
)

// Resolve resolves the component of type T bound with the given qualifier.
func Resolve[T any](ctx context.Context, r Resolver, qualifier Qualifier) (T, error) {
	return ResolveKey[T](ctx, r, KeyOf[T](qualifier))
}

// ResolveKey resolves key and asserts the result is a T.
func ResolveKey[T any](ctx context.Context, r Resolver, key Key) (val T, err error) {
	raw, err := r.Get(ctx, key)
	if err != nil {
		return val, err
	}
	val, ok := raw.(T)
	if !ok {
		return val, fmt.Errorf("value bound to %s is a %T, not a %s", key, raw, TypeOf[T]())
	}
	return val, nil
}

// TryResolve resolves the component of type T bound with the given qualifier.
//
// It returns the resolved value, a boolean indicating if it was found, and an error if any occurred during resolution.
// A component whose own dependencies are missing is reported as not found as well.
func TryResolve[T any](ctx context.Context, r Resolver, qualifier Qualifier) (val T, found bool, err error) {
	val, err = Resolve[T](ctx, r, qualifier)
	if errors.Is(err, ErrUnresolvedBinding) {
		return val, false, nil
	}
	if err != nil {
		return val, false, err
	}
	return val, true, nil
}

// MustResolve is like Resolve but panics on error.
func MustResolve[T any](ctx context.Context, r Resolver, qualifier Qualifier) T {
	val, err := Resolve[T](ctx, r, qualifier)
	if err != nil {
		panic(fmt.Sprintf("failed to resolve %s:\n\t%v", KeyOf[T](qualifier), err))
	}
	return val
}
