package inject

import (
	"context"
	"fmt"
)

type (
	// Scope controls how many instances a provider binding produces.
	Scope int

	// Resolver looks up the value bound to a key.
	Resolver interface {
		Get(ctx context.Context, key Key) (any, error)
	}

	// Provider builds the value of a binding. The resolver it receives sees the scope the binding was declared in.
	Provider func(ctx context.Context, r Resolver) (any, error)

	// Binder is the binding context handed to modules.
	Binder interface {
		// BindInstance binds key to an already built value.
		BindInstance(key Key, value any) error
		// BindAlias binds key to whatever target resolves to, target being looked up from this binder's scope.
		BindAlias(key Key, target Key) error
		// BindProvider binds key to a provider.
		BindProvider(key Key, provider Provider, scope Scope) error
		// BindConstant binds a raw value under a name. Any lookup of a named key without a typed binding falls back
		// on the constant with the same name, converted to the key type.
		BindConstant(name string, raw any) error
		// Expose makes key, bound in this private scope, visible from the parent scope.
		Expose(key Key) error
		// Private opens a child scope. Bindings declared in it stay hidden unless exposed.
		Private() Binder
		// Install configures another module against this binder.
		Install(module Module) error
	}

	// Module declares bindings.
	Module interface {
		Configure(b Binder) error
	}

	// ModuleFunc adapts a function to the Module interface.
	ModuleFunc func(b Binder) error
)

const (
	// Unscoped providers are called on every lookup.
	Unscoped Scope = iota
	// Singleton providers are called once, on first lookup.
	Singleton
	// EagerSingleton providers are called once, when the container is initialized.
	EagerSingleton
)

func (f ModuleFunc) Configure(b Binder) error {
	return f(b)
}

func (s Scope) String() string {
	switch s {
	case Unscoped:
		return "unscoped"
	case Singleton:
		return "singleton"
	case EagerSingleton:
		return "eager singleton"
	default:
		return fmt.Sprintf("scope(%d)", int(s))
	}
}

func (s Scope) isSingleton() bool {
	return s == Singleton || s == EagerSingleton
}
