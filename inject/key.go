package inject

import (
	"errors"
	"fmt"
	"reflect"
)

type (
	qualifierKind uint8

	// Qualifier disambiguates two bindings of the same type.
	//
	// The zero value is the "unqualified" qualifier. A Qualifier is comparable and can be used as part of a map key,
	// as long as the tag given to Tagged is itself comparable (see Validate).
	Qualifier struct {
		kind  qualifierKind
		name  string
		typ   reflect.Type
		value any
	}

	// Key addresses exactly one binding in a scope: a payload type and a qualifier.
	Key struct {
		typ       reflect.Type
		qualifier Qualifier
	}
)

const (
	unqualified qualifierKind = iota
	namedQualifier
	annotatedQualifier
	taggedQualifier
)

var (
	StringType   = TypeOf[string]()
	ResolverType = TypeOf[Resolver]()
)

// Named qualifies a binding with a plain string.
func Named(name string) Qualifier {
	return Qualifier{kind: namedQualifier, name: name}
}

// AnnotatedWith qualifies a binding with a marker type.
func AnnotatedWith(marker reflect.Type) Qualifier {
	return Qualifier{kind: annotatedQualifier, typ: marker}
}

// AnnotatedBy is the generic flavor of AnnotatedWith.
func AnnotatedBy[M any]() Qualifier {
	return AnnotatedWith(TypeOf[M]())
}

// Tagged qualifies a binding with a value. Two tagged qualifiers are equal when their values are equal.
func Tagged(value any) Qualifier {
	return Qualifier{kind: taggedQualifier, value: value}
}

// Validate checks that the qualifier can safely be used in a key.
func (q Qualifier) Validate() error {
	switch q.kind {
	case namedQualifier:
		if q.name == "" {
			return errors.New("named qualifier requires a non empty name")
		}
	case annotatedQualifier:
		if q.typ == nil {
			return errors.New("annotated qualifier requires a non nil marker type")
		}
	case taggedQualifier:
		if q.value == nil {
			return errors.New("tagged qualifier requires a non nil tag")
		}
		if !reflect.TypeOf(q.value).Comparable() {
			return fmt.Errorf("tagged qualifier requires a comparable tag, got %T", q.value)
		}
	}
	return nil
}

// IsZero reports whether q is the unqualified qualifier.
func (q Qualifier) IsZero() bool {
	return q.kind == unqualified
}

// Name returns the name of a named qualifier, and false for any other kind.
func (q Qualifier) Name() (string, bool) {
	if q.kind != namedQualifier {
		return "", false
	}
	return q.name, true
}

func (q Qualifier) String() string {
	switch q.kind {
	case namedQualifier:
		return fmt.Sprintf("named=%s", q.name)
	case annotatedQualifier:
		return fmt.Sprintf("@%s", q.typ)
	case taggedQualifier:
		return fmt.Sprintf("@%T(%v)", q.value, q.value)
	default:
		return "unqualified"
	}
}

// NewKey builds a key from a payload type and a qualifier.
func NewKey(typ reflect.Type, qualifier Qualifier) Key {
	return Key{typ: typ, qualifier: qualifier}
}

// KeyOf builds a key whose payload type is T.
func KeyOf[T any](qualifier Qualifier) Key {
	return NewKey(TypeOf[T](), qualifier)
}

// Type returns the payload type of the key.
func (k Key) Type() reflect.Type {
	return k.typ
}

// Qualifier returns the qualifier of the key.
func (k Key) Qualifier() Qualifier {
	return k.qualifier
}

// Validate checks that the key has a payload type and a valid qualifier.
func (k Key) Validate() error {
	if k.typ == nil {
		return errors.New("key requires a payload type")
	}
	if err := k.qualifier.Validate(); err != nil {
		return fmt.Errorf("invalid qualifier for key of type %s:\n\t%w", k.typ, err)
	}
	return nil
}

func (k Key) String() string {
	typ := "<nil>"
	if k.typ != nil {
		typ = k.typ.String()
	}
	return fmt.Sprintf("(%s, %s)", typ, k.qualifier)
}

// TypeOf returns the reflect.Type of T, including when T is an interface type.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func matchType(queryType, providedType reflect.Type) bool {
	if queryType == providedType {
		return true
	}
	if queryType.Kind() == reflect.Interface && providedType.Implements(queryType) {
		return true
	}
	return false
}
