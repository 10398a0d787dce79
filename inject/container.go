package inject

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/a-peyrard/godi-datasource/option"
	"github.com/a-peyrard/godi-datasource/set"
	"github.com/rs/zerolog"
)

type (
	bindingKind int

	binding struct {
		kind     bindingKind
		key      Key
		owner    *scope
		value    any
		target   Key
		provider Provider
		scope    Scope
		child    *scope
	}

	scope struct {
		id        int
		parent    *scope
		bindings  map[Key]*binding
		order     []Key
		constants map[string]any
		children  []*scope
	}

	// Container holds the bindings of an application, organized in a tree of private scopes.
	Container struct {
		mu     sync.Mutex
		root   *scope
		scopes int

		store *Store
		lock  *LockManager

		initialized atomic.Bool
		logger      *zerolog.Logger
	}

	Options struct {
		logger *zerolog.Logger
	}

	scopeBinder struct {
		c *Container
		s *scope
	}

	scopedResolver struct {
		c       *Container
		s       *scope
		tracker *Tracker
	}
)

const (
	instanceBinding bindingKind = iota
	aliasBinding
	providerBinding
	exposedBinding
)

func (k bindingKind) String() string {
	switch k {
	case instanceBinding:
		return "instance"
	case aliasBinding:
		return "alias"
	case providerBinding:
		return "provider"
	case exposedBinding:
		return "exposed"
	default:
		return "unknown"
	}
}

// WithLogger sets the logger used to trace bindings and singleton construction.
func WithLogger(logger *zerolog.Logger) option.Option[Options] {
	return func(opts *Options) {
		opts.logger = logger
	}
}

// New creates an empty container. The container binds itself as a Resolver named "inject.resolver".
func New(opts ...option.Option[Options]) *Container {
	nop := zerolog.Nop()
	options := option.Build(&Options{logger: &nop}, opts...)

	c := &Container{
		store:  NewStore(),
		lock:   NewLockManager(),
		logger: options.logger,
	}
	c.root = c.newScope(nil)
	c.root.bindings[KeyOf[Resolver](Named("inject.resolver"))] = &binding{
		kind:  instanceBinding,
		key:   KeyOf[Resolver](Named("inject.resolver")),
		owner: c.root,
		value: Resolver(c),
	}

	return c
}

// Binder returns the binder of the root scope.
func (c *Container) Binder() Binder {
	return &scopeBinder{c: c, s: c.root}
}

// Install configures the given modules against the root scope.
func (c *Container) Install(modules ...Module) error {
	b := c.Binder()
	for _, m := range modules {
		if err := b.Install(m); err != nil {
			return err
		}
	}
	return nil
}

// Init validates the binding graph and builds every eager singleton, in declaration order.
//
// Every missing binding is reported at once, before anything is built.
func (c *Container) Init(ctx context.Context) error {
	if err := c.validate(c.root); err != nil {
		return fmt.Errorf("invalid binding graph:\n\t%w", err)
	}
	c.initialized.Store(true)

	return c.initScope(ctx, c.root)
}

func (c *Container) initScope(ctx context.Context, s *scope) error {
	for _, key := range s.order {
		b := s.bindings[key]
		if b.kind != providerBinding || b.scope != EagerSingleton {
			continue
		}
		c.logger.Debug().Stringer("key", key).Int("scope", s.id).Msg("building eager singleton")
		if _, err := c.get(ctx, s, key, NewTracker()); err != nil {
			return fmt.Errorf("failed to build eager singleton %s:\n\t%w", key, err)
		}
	}
	for _, child := range s.children {
		if err := c.initScope(ctx, child); err != nil {
			return err
		}
	}
	return nil
}

// Get resolves key from the root scope.
func (c *Container) Get(ctx context.Context, key Key) (any, error) {
	return c.get(ctx, c.root, key, NewTracker())
}

// Close closes every built singleton implementing io.Closer.
func (c *Container) Close() error {
	return c.store.Close()
}

// Describe returns a human-readable dump of the scopes and their bindings.
func (c *Container) Describe() string {
	var b strings.Builder
	c.describeScope(&b, c.root, 0)
	return b.String()
}

func (c *Container) describeScope(b *strings.Builder, s *scope, depth int) {
	indent := strings.Repeat("\t", depth)
	if s.parent == nil {
		b.WriteString(fmt.Sprintf("%s* Scope #%d (root):\n", indent, s.id))
	} else {
		b.WriteString(fmt.Sprintf("%s* Scope #%d (private):\n", indent, s.id))
	}
	for _, key := range s.order {
		bnd := s.bindings[key]
		line := fmt.Sprintf("%s\t- %s: %s", indent, key, bnd.kind)
		switch bnd.kind {
		case aliasBinding:
			line += fmt.Sprintf(" -> %s", bnd.target)
		case providerBinding:
			line += fmt.Sprintf(" (%s)", bnd.scope)
			if comp, built := c.store.Get(slot{scope: s.id, key: key}); built {
				line += " = " + describeValue(comp)
			}
		case exposedBinding:
			line += fmt.Sprintf(" from scope #%d", bnd.child.id)
		case instanceBinding:
			line += " = " + describeValue(bnd.value)
		}
		b.WriteString(line + "\n")
	}
	if len(s.constants) > 0 {
		b.WriteString(fmt.Sprintf("%s\tconstants:\n", indent))
		names := make([]string, 0, len(s.constants))
		for name := range s.constants {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			b.WriteString(fmt.Sprintf("%s\t\t- %s\n", indent, name))
		}
	}
	for _, child := range s.children {
		c.describeScope(b, child, depth+1)
	}
}

func describeValue(v any) string {
	switch v.(type) {
	case string, bool, int, int32, int64, float64:
		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%T", v)
	}
}

func (c *Container) newScope(parent *scope) *scope {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &scope{
		id:        c.scopes,
		parent:    parent,
		bindings:  make(map[Key]*binding),
		constants: make(map[string]any),
	}
	c.scopes++
	if parent != nil {
		parent.children = append(parent.children, s)
	}
	return s
}

func (c *Container) add(s *scope, b *binding) error {
	if c.initialized.Load() {
		return fmt.Errorf("cannot bind %s:\n\t%w", b.key, ErrFrozen)
	}
	if err := b.key.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, found := s.bindings[b.key]; found {
		return fmt.Errorf("%w: %s is already bound as %s in scope #%d", ErrDuplicateBinding, b.key, existing.kind, s.id)
	}
	b.owner = s
	s.bindings[b.key] = b
	s.order = append(s.order, b.key)

	c.logger.Trace().Stringer("key", b.key).Stringer("kind", b.kind).Int("scope", s.id).Msg("bound")
	return nil
}

// lookup finds the binding for key, starting from s and walking up the parents.
func (s *scope) lookup(key Key) (*binding, bool) {
	for current := s; current != nil; current = current.parent {
		if b, found := current.bindings[key]; found {
			return b, true
		}
	}
	return nil, false
}

func (s *scope) lookupConstant(name string) (any, bool) {
	for current := s; current != nil; current = current.parent {
		if raw, found := current.constants[name]; found {
			return raw, true
		}
	}
	return nil, false
}

func (c *Container) get(ctx context.Context, s *scope, key Key, tracker *Tracker) (any, error) {
	b, found := s.lookup(key)
	if !found {
		return c.getConstant(s, key)
	}

	id := slot{scope: b.owner.id, key: key}
	switch b.kind {
	case instanceBinding:
		return b.value, nil

	case aliasBinding:
		if err := tracker.Push(id); err != nil {
			return nil, fmt.Errorf("dependency cycle detected when resolving %s:\n\t%w", key, err)
		}
		defer tracker.Pop()

		val, err := c.get(ctx, b.owner, b.target, tracker)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s linked to %s:\n\t%w", key, b.target, err)
		}
		return val, nil

	case exposedBinding:
		if err := tracker.Push(id); err != nil {
			return nil, fmt.Errorf("dependency cycle detected when resolving %s:\n\t%w", key, err)
		}
		defer tracker.Pop()

		return c.get(ctx, b.child, key, tracker)

	case providerBinding:
		return c.provideUsing(ctx, b, id, tracker)

	default:
		return nil, fmt.Errorf("unknown binding kind %d for %s", b.kind, key)
	}
}

func (c *Container) getConstant(s *scope, key Key) (any, error) {
	name, named := key.qualifier.Name()
	if !named {
		return nil, fmt.Errorf("%w: no binding for %s", ErrUnresolvedBinding, key)
	}
	raw, found := s.lookupConstant(name)
	if !found {
		return nil, fmt.Errorf("%w: no binding nor constant for %s", ErrUnresolvedBinding, key)
	}
	val, err := convertConstant(raw, key.typ)
	if err != nil {
		return nil, fmt.Errorf("%w: constant %s does not fit %s:\n\t%w", ErrUnresolvedBinding, name, key, err)
	}
	return val, nil
}

func (c *Container) provideUsing(ctx context.Context, b *binding, id slot, tracker *Tracker) (any, error) {
	err := tracker.Push(id)
	if err != nil {
		return nil, fmt.Errorf("dependency cycle detected when trying to provide %s:\n\t%w", id, err)
	}
	defer tracker.Pop()

	if !b.scope.isSingleton() {
		return c.callProvider(ctx, b, tracker)
	}

	if comp, found := c.store.Get(id); found {
		return comp, nil
	}

	lock := c.lock.GetLockFor(id)
	lock.Lock()
	defer lock.Unlock()

	// now that we have the lock, check if the component was built while we were waiting
	if comp, found := c.store.Get(id); found {
		return comp, nil
	}

	comp, err := c.callProvider(ctx, b, tracker)
	if err != nil {
		return nil, err
	}
	c.store.Put(id, comp)
	c.lock.ReleaseLock(id)
	c.logger.Debug().Stringer("key", b.key).Int("scope", id.scope).Msg("singleton built")

	return comp, nil
}

func (c *Container) callProvider(ctx context.Context, b *binding, tracker *Tracker) (comp any, err error) {
	// panic recovery, a provider is user code
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic calling provider for %s: %v", b.key, r)
			}
		}()
		comp, err = b.provider(ctx, &scopedResolver{c: c, s: b.owner, tracker: tracker})
	}()
	if err != nil {
		return nil, fmt.Errorf("failed to provide %s:\n\t%w", b.key, err)
	}
	if comp == nil {
		return nil, fmt.Errorf("provider for %s returned nil", b.key)
	}
	if !matchType(b.key.typ, reflect.TypeOf(comp)) {
		return nil, fmt.Errorf("provider for %s returned %T", b.key, comp)
	}
	return comp, nil
}

// validate checks that every alias and exposed binding leads somewhere, without building anything.
func (c *Container) validate(s *scope) error {
	errs := make([]error, 0)
	for _, key := range s.order {
		b := s.bindings[key]
		if b.kind == aliasBinding || b.kind == exposedBinding {
			if err := c.probe(s, key, set.New[Key]()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	for _, child := range s.children {
		if err := c.validate(child); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Container) probe(s *scope, key Key, seen set.Set[Key]) error {
	b, found := s.lookup(key)
	if !found {
		_, err := c.getConstant(s, key)
		return err
	}
	switch b.kind {
	case aliasBinding:
		if seen.Contains(key) {
			return fmt.Errorf("dependency cycle detected when resolving %s", key)
		}
		seen.Add(key)
		if err := c.probe(b.owner, b.target, seen); err != nil {
			return fmt.Errorf("failed to resolve %s linked to %s:\n\t%w", key, b.target, err)
		}
	case exposedBinding:
		if _, bound := b.child.bindings[key]; !bound {
			return fmt.Errorf("%w: %s is exposed from scope #%d but not bound there", ErrUnresolvedBinding, key, b.child.id)
		}
		return c.probe(b.child, key, seen)
	}
	return nil
}

func (r *scopedResolver) Get(ctx context.Context, key Key) (any, error) {
	return r.c.get(ctx, r.s, key, r.tracker)
}

func (b *scopeBinder) BindInstance(key Key, value any) error {
	if value == nil {
		return fmt.Errorf("cannot bind %s to a nil instance", key)
	}
	if key.typ != nil && !matchType(key.typ, reflect.TypeOf(value)) {
		return fmt.Errorf("cannot bind %s to an instance of %T", key, value)
	}
	return b.c.add(b.s, &binding{kind: instanceBinding, key: key, value: value})
}

func (b *scopeBinder) BindAlias(key Key, target Key) error {
	if err := target.Validate(); err != nil {
		return fmt.Errorf("invalid target for %s:\n\t%w", key, err)
	}
	if key == target {
		return fmt.Errorf("cannot link %s to itself", key)
	}
	if key.typ != nil && !matchType(key.typ, target.typ) {
		return fmt.Errorf("cannot link %s to %s: incompatible types", key, target)
	}
	return b.c.add(b.s, &binding{kind: aliasBinding, key: key, target: target})
}

func (b *scopeBinder) BindProvider(key Key, provider Provider, scope Scope) error {
	if provider == nil {
		return fmt.Errorf("cannot bind %s to a nil provider", key)
	}
	return b.c.add(b.s, &binding{kind: providerBinding, key: key, provider: provider, scope: scope})
}

func (b *scopeBinder) BindConstant(name string, raw any) error {
	if name == "" {
		return errors.New("cannot bind a constant without name")
	}
	if raw == nil {
		return fmt.Errorf("cannot bind constant %s to nil", name)
	}
	if b.c.initialized.Load() {
		return fmt.Errorf("cannot bind constant %s:\n\t%w", name, ErrFrozen)
	}

	b.c.mu.Lock()
	defer b.c.mu.Unlock()

	if _, found := b.s.constants[name]; found {
		return fmt.Errorf("%w: constant %s is already bound in scope #%d", ErrDuplicateBinding, name, b.s.id)
	}
	b.s.constants[name] = raw
	return nil
}

func (b *scopeBinder) Expose(key Key) error {
	if b.s.parent == nil {
		return fmt.Errorf("cannot expose %s from the root scope", key)
	}
	return b.c.add(b.s.parent, &binding{kind: exposedBinding, key: key, child: b.s})
}

func (b *scopeBinder) Private() Binder {
	return &scopeBinder{c: b.c, s: b.c.newScope(b.s)}
}

func (b *scopeBinder) Install(module Module) error {
	if module == nil {
		return errors.New("cannot install a nil module")
	}
	if err := module.Configure(b); err != nil {
		return fmt.Errorf("failed to install module %T:\n\t%w", module, err)
	}
	return nil
}
