package inject

import "errors"

var (
	// ErrUnresolvedBinding is returned when nothing is bound to a requested key, or when a constant cannot be
	// converted to the requested type.
	ErrUnresolvedBinding = errors.New("unresolved binding")
	// ErrDuplicateBinding is returned when a key is bound twice in the same scope.
	ErrDuplicateBinding = errors.New("duplicate binding")
	// ErrFrozen is returned when bindings are declared after the container was initialized.
	ErrFrozen = errors.New("container already initialized")
)
