package datasource

import (
	"context"
	"fmt"
	"reflect"

	"github.com/a-peyrard/godi-datasource/inject"
	"github.com/a-peyrard/godi-datasource/option"
	"github.com/rs/zerolog"
)

type (
	// Module is the binding registrar of one data source.
	//
	// It declares the configuration slots of the data source in a private scope, binds the connection source built
	// by its factory as an eager singleton, and exposes it under its identity.
	Module struct {
		identity  Identity
		key       inject.Key
		keys      Keys
		factory   Factory
		logger    *zerolog.Logger
		optionals func(b inject.Binder) error
	}

	ModuleOptions struct {
		logger    *zerolog.Logger
		optionals func(b inject.Binder) error
	}
)

// forwardedSlots are read from the surrounding scope, the unique slot being the name itself.
var forwardedSlots = []Slot{SlotJNDIName, SlotDriver, SlotProperties, SlotPoolMax, SlotPoolMin}

// WithLogger sets the logger tracing the bindings of the module.
func WithLogger(logger *zerolog.Logger) option.Option[ModuleOptions] {
	return func(opts *ModuleOptions) {
		opts.logger = logger
	}
}

// WithOptionals registers extra bindings in the private scope of the module, before the core bindings.
func WithOptionals(declare func(b inject.Binder) error) option.Option[ModuleOptions] {
	return func(opts *ModuleOptions) {
		opts.optionals = declare
	}
}

// NewModule creates the registrar of the data source identified by identity, built with factory.
func NewModule(identity Identity, factory Factory, opts ...option.Option[ModuleOptions]) (*Module, error) {
	if identity.IsZero() {
		return nil, invalid(identity.Name(), 0, "identity is required")
	}
	if factory == nil {
		return nil, invalid(identity.Name(), 0, "factory is required")
	}
	keys, err := DeriveKeys(identity.Name())
	if err != nil {
		return nil, err
	}

	nop := zerolog.Nop()
	options := option.Build(&ModuleOptions{logger: &nop}, opts...)

	return &Module{
		identity:  identity,
		key:       inject.KeyOf[ConnectionSource](identity.Qualifier()),
		keys:      keys,
		factory:   factory,
		logger:    options.logger,
		optionals: options.optionals,
	}, nil
}

// NewNamedModule is a shortcut for a module identified by its name only.
func NewNamedModule(name string, factory Factory, opts ...option.Option[ModuleOptions]) (*Module, error) {
	identity, err := Named(name)
	if err != nil {
		return nil, err
	}
	return NewModule(identity, factory, opts...)
}

func (m *Module) Identity() Identity {
	return m.identity
}

// Key returns the key the connection source is exposed with.
func (m *Module) Key() inject.Key {
	return m.key
}

// Keys returns the configuration keys the module reads from.
func (m *Module) Keys() Keys {
	return m.keys
}

// FactoryType returns the concrete type of the factory.
func (m *Module) FactoryType() reflect.Type {
	return reflect.TypeOf(m.factory)
}

// Configure opens a private scope and declares, in order, the configuration, the optional bindings, the core
// bindings, and the exposed key.
func (m *Module) Configure(b inject.Binder) error {
	private := b.Private()

	if err := m.DeclareConfiguration(private); err != nil {
		return fmt.Errorf("failed to declare configuration of datasource %s:\n\t%w", m.identity, err)
	}
	if err := m.DeclareOptionalConfiguration(private); err != nil {
		return fmt.Errorf("failed to declare optional configuration of datasource %s:\n\t%w", m.identity, err)
	}
	if err := m.DeclareCoreBindings(private); err != nil {
		return fmt.Errorf("failed to declare bindings of datasource %s:\n\t%w", m.identity, err)
	}
	if err := m.ExposeBindings(private); err != nil {
		return fmt.Errorf("failed to expose datasource %s:\n\t%w", m.identity, err)
	}
	return nil
}

// DeclareConfiguration binds the local slot keys: the unique slot to the name, the others to their namespaced key.
func (m *Module) DeclareConfiguration(b inject.Binder) error {
	m.logger.Trace().
		Stringer("factory", m.FactoryType()).
		Stringer("key", m.key).
		Str("name", m.identity.Name()).
		Msg("binding connection source")

	if err := b.BindInstance(SlotUnique.LocalKey(), m.identity.Name()); err != nil {
		return err
	}
	for _, slot := range forwardedSlots {
		if err := b.BindAlias(slot.LocalKey(), m.keys.LookupKey(slot)); err != nil {
			return err
		}
	}
	return nil
}

// DeclareOptionalConfiguration runs the WithOptionals hook, if any.
func (m *Module) DeclareOptionalConfiguration(b inject.Binder) error {
	if m.optionals == nil {
		return nil
	}
	return m.optionals(b)
}

// DeclareCoreBindings binds the connection source as an eager singleton.
func (m *Module) DeclareCoreBindings(b inject.Binder) error {
	return b.BindProvider(m.key, m.provide, inject.EagerSingleton)
}

// ExposeBindings exposes the connection source; the slots stay private.
func (m *Module) ExposeBindings(b inject.Binder) error {
	return b.Expose(m.key)
}

func (m *Module) provide(ctx context.Context, r inject.Resolver) (any, error) {
	settings, err := ResolveSettings(ctx, r)
	if err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	source, err := m.newSource(ctx, settings)
	if err != nil {
		return nil, &ConfigError{
			Resource: m.identity.Name(),
			Err:      fmt.Errorf("%w: %T:\n\t%w", ErrFactoryConstruction, m.factory, err),
		}
	}
	if source == nil {
		return nil, &ConfigError{
			Resource: m.identity.Name(),
			Err:      fmt.Errorf("%w: %T returned no connection source", ErrFactoryConstruction, m.factory),
		}
	}

	m.logger.Debug().Str("name", m.identity.Name()).Str("driver", settings.Driver).Msg("connection source built")
	return source, nil
}

func (m *Module) newSource(ctx context.Context, settings Settings) (source ConnectionSource, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return m.factory.NewSource(ctx, settings)
}

// ResolveSettings reads the six local slots visible from r.
func ResolveSettings(ctx context.Context, r inject.Resolver) (settings Settings, err error) {
	if settings.Unique, err = resolveSlot[string](ctx, r, SlotUnique, ""); err != nil {
		return settings, err
	}
	name := settings.Unique
	if settings.JNDIName, err = resolveSlot[string](ctx, r, SlotJNDIName, name); err != nil {
		return settings, err
	}
	if settings.Driver, err = resolveSlot[string](ctx, r, SlotDriver, name); err != nil {
		return settings, err
	}
	if settings.Properties, err = resolveSlot[Properties](ctx, r, SlotProperties, name); err != nil {
		return settings, err
	}
	if settings.PoolMax, err = resolveSlot[int](ctx, r, SlotPoolMax, name); err != nil {
		return settings, err
	}
	if settings.PoolMin, err = resolveSlot[int](ctx, r, SlotPoolMin, name); err != nil {
		return settings, err
	}
	return settings, nil
}

func resolveSlot[T any](ctx context.Context, r inject.Resolver, slot Slot, name string) (T, error) {
	val, err := inject.ResolveKey[T](ctx, r, slot.LocalKey())
	if err != nil {
		return val, &ConfigError{Resource: name, Slot: slot, Err: err}
	}
	return val, nil
}
