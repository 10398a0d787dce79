package datasource

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/a-peyrard/godi-datasource/inject"
)

// Identity tells which data source a module provides: the qualifier it is exposed with, and the name its
// configuration is read from.
type Identity struct {
	qualifier inject.Qualifier
	name      string
}

// Named identifies a data source by its name only.
func Named(name string) (Identity, error) {
	return newIdentity(inject.Named(name), name)
}

// Typed identifies a data source by a marker type, its configuration being read from name.
func Typed(marker reflect.Type, name string) (Identity, error) {
	if marker == nil {
		return Identity{}, invalid(name, 0, "marker type must not be nil")
	}
	return newIdentity(inject.AnnotatedWith(marker), name)
}

// TypedBy is the generic flavor of Typed.
func TypedBy[M any](name string) (Identity, error) {
	return Typed(inject.TypeOf[M](), name)
}

// Tagged identifies a data source by a comparable tag value, its configuration being read from name.
func Tagged(tag any, name string) (Identity, error) {
	if tag == nil {
		return Identity{}, invalid(name, 0, "tag must not be nil")
	}
	return newIdentity(inject.Tagged(tag), name)
}

func newIdentity(qualifier inject.Qualifier, name string) (Identity, error) {
	if strings.TrimSpace(name) == "" {
		return Identity{}, invalid(name, 0, "name must not be empty")
	}
	if err := qualifier.Validate(); err != nil {
		return Identity{}, invalid(name, 0, "%v", err)
	}
	return Identity{qualifier: qualifier, name: name}, nil
}

// MustNamed is like Named but panics on error.
func MustNamed(name string) Identity {
	identity, err := Named(name)
	if err != nil {
		panic(fmt.Sprintf("invalid datasource identity:\n\t%v", err))
	}
	return identity
}

func (i Identity) Name() string {
	return i.name
}

func (i Identity) Qualifier() inject.Qualifier {
	return i.qualifier
}

// IsZero reports whether the identity was built without one of the constructors.
func (i Identity) IsZero() bool {
	return i.qualifier.IsZero() || i.name == ""
}

func (i Identity) String() string {
	return fmt.Sprintf("%s as %s", i.name, i.qualifier)
}
