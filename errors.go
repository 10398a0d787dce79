package datasource

import (
	"errors"
	"fmt"

	"github.com/a-peyrard/godi-datasource/inject"
)

var (
	// ErrInvalidConfiguration is returned for a missing name, identity or factory, and for inconsistent settings.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrUnresolvedBinding is returned when a configuration slot has no value in the container.
	ErrUnresolvedBinding = inject.ErrUnresolvedBinding
	// ErrFactoryConstruction is returned when the factory fails to build the connection source.
	ErrFactoryConstruction = errors.New("factory construction failed")
)

// ConfigError locates a failure on a data source, and optionally on one of its slots.
type ConfigError struct {
	Resource string
	Slot     Slot
	Err      error
}

func (e *ConfigError) Error() string {
	switch {
	case e.Resource != "" && e.Slot.valid():
		return fmt.Sprintf("datasource %q, slot %s: %v", e.Resource, e.Slot, e.Err)
	case e.Resource != "":
		return fmt.Sprintf("datasource %q: %v", e.Resource, e.Err)
	case e.Slot.valid():
		return fmt.Sprintf("datasource slot %s: %v", e.Slot, e.Err)
	default:
		return fmt.Sprintf("datasource: %v", e.Err)
	}
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func invalid(resource string, slot Slot, format string, args ...any) error {
	return &ConfigError{
		Resource: resource,
		Slot:     slot,
		Err:      fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...)),
	}
}
