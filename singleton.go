package sprout

import (
	"fmt"
	"runtime/debug"
	"slices"

	"go.uber.org/zap"

	"github.com/junioryono/sprout/internal/graph"
)

// SingletonRegistry caches singleton instances by bean name and tracks what is
// needed to tear them down.
//
// The in-creation set is a recursion guard for a single call stack: asking for
// a bean while it is being built is a dependency cycle. It is not a lock, and
// SingletonRegistry is NOT thread-safe.
type SingletonRegistry struct {
	singletons map[string]any
	order      []string

	inCreation    map[string]struct{}
	creationChain []string

	disposables     map[string]Disposable
	disposableOrder []string

	dependencies *graph.DependencyGraph

	logger *zap.Logger
}

// NewSingletonRegistry creates an empty singleton registry.
func NewSingletonRegistry(logger *zap.Logger) *SingletonRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SingletonRegistry{
		singletons:   make(map[string]any),
		inCreation:   make(map[string]struct{}),
		disposables:  make(map[string]Disposable),
		dependencies: graph.New(),
		logger:       logger,
	}
}

// RegisterSingleton adds an already built object under name.
func (r *SingletonRegistry) RegisterSingleton(name string, obj any) error {
	if name == "" {
		return ErrBeanNameEmpty
	}
	if obj == nil {
		return fmt.Errorf("singleton %q: %w", name, ErrSourceNil)
	}
	if existing, ok := r.singletons[name]; ok {
		return fmt.Errorf("could not register object [%T] under bean name %q: there is already object [%T] bound", obj, name, existing)
	}

	r.addSingleton(name, obj)
	return nil
}

// GetSingleton returns the cached instance for name.
func (r *SingletonRegistry) GetSingleton(name string) (any, bool) {
	obj, ok := r.singletons[name]
	return obj, ok
}

// GetSingletonFromFactory returns the cached instance for name, creating it
// with factory when absent. The in-creation mark is cleared whatever factory
// does, including panicking. A non-nil result is cached.
//
// Calling it again for a name whose factory is still running returns
// BeanCurrentlyInCreationError.
func (r *SingletonRegistry) GetSingletonFromFactory(name string, factory func() (any, error)) (any, error) {
	if obj, ok := r.singletons[name]; ok {
		return obj, nil
	}

	if r.IsCurrentlyInCreation(name) {
		chain := append(slices.Clone(r.creationChain), name)
		return nil, BeanCurrentlyInCreationError{Name: name, Chain: chain}
	}

	obj, err := r.create(name, factory)
	if err != nil {
		return nil, err
	}

	if obj != nil {
		r.addSingleton(name, obj)
	}

	return obj, nil
}

func (r *SingletonRegistry) create(name string, factory func() (any, error)) (any, error) {
	r.beforeSingletonCreation(name)
	defer r.afterSingletonCreation(name)

	return factory()
}

func (r *SingletonRegistry) beforeSingletonCreation(name string) {
	r.inCreation[name] = struct{}{}
	r.creationChain = append(r.creationChain, name)
}

func (r *SingletonRegistry) afterSingletonCreation(name string) {
	delete(r.inCreation, name)
	if i := slices.Index(r.creationChain, name); i >= 0 {
		r.creationChain = slices.Delete(r.creationChain, i, i+1)
	}
}

func (r *SingletonRegistry) addSingleton(name string, obj any) {
	if _, exists := r.singletons[name]; !exists {
		r.order = append(r.order, name)
	}
	r.singletons[name] = obj
}

// IsCurrentlyInCreation reports whether the factory for name is running.
func (r *SingletonRegistry) IsCurrentlyInCreation(name string) bool {
	_, ok := r.inCreation[name]
	return ok
}

// ContainsSingleton reports whether an instance is cached for name.
func (r *SingletonRegistry) ContainsSingleton(name string) bool {
	_, ok := r.singletons[name]
	return ok
}

// SingletonNames returns the cached bean names in creation order.
func (r *SingletonRegistry) SingletonNames() []string {
	return slices.Clone(r.order)
}

// SingletonCount returns the number of cached singletons.
func (r *SingletonRegistry) SingletonCount() int {
	return len(r.order)
}

// RegisterDisposableBean records that the singleton name must be closed when destroyed.
func (r *SingletonRegistry) RegisterDisposableBean(name string, bean Disposable) {
	if _, exists := r.disposables[name]; !exists {
		r.disposableOrder = append(r.disposableOrder, name)
	}
	r.disposables[name] = bean
}

// RegisterDependentBean records that dependent was injected with bean, so
// dependent is destroyed before bean.
func (r *SingletonRegistry) RegisterDependentBean(bean, dependent string) {
	if bean == dependent {
		return
	}
	r.dependencies.AddEdge(dependent, bean)
}

// DependentBeans returns the beans that were injected with name.
func (r *SingletonRegistry) DependentBeans(name string) []string {
	return r.dependencies.Dependents(name)
}

// IsDependent reports whether dependent was injected with name, directly or
// through other beans.
func (r *SingletonRegistry) IsDependent(name, dependent string) bool {
	return r.dependencies.IsDependent(name, dependent)
}

// DependenciesForBean returns the beans name was injected with.
func (r *SingletonRegistry) DependenciesForBean(name string) []string {
	return r.dependencies.Dependencies(name)
}

// DestroySingleton removes the singleton name from the cache, destroying the
// beans that depend on it first, then closing it if it is disposable.
// Close failures are logged, never returned.
func (r *SingletonRegistry) DestroySingleton(name string) {
	r.removeSingleton(name)

	disposable := r.disposables[name]
	delete(r.disposables, name)
	r.disposableOrder = slices.DeleteFunc(r.disposableOrder, func(n string) bool { return n == name })

	r.destroyBean(name, disposable)
}

func (r *SingletonRegistry) destroyBean(name string, disposable Disposable) {
	// Removing the node first stops any stale cycle between dependents.
	for _, dependent := range r.dependencies.Remove(name) {
		r.DestroySingleton(dependent)
	}

	if disposable == nil {
		return
	}

	if err := closeSafely(disposable); err != nil {
		r.logger.Warn("destroy method on bean failed",
			zap.String("bean", name),
			zap.Error(err))
		return
	}

	r.logger.Debug("destroyed bean", zap.String("bean", name))
}

// DestroySingletons destroys every disposable singleton, dependents before
// their dependencies and otherwise in reverse creation order, then clears all
// caches. Failures are logged so that every bean gets its chance to close.
func (r *SingletonRegistry) DestroySingletons() {
	names := slices.Clone(r.disposableOrder)

	// The topological order puts dependencies first; reverse it so dependents close first.
	sorted, err := r.dependencies.TopologicalSort(names)
	if err != nil {
		r.logger.Warn("could not order disposable beans, falling back to creation order", zap.Error(err))
		sorted = names
	}
	slices.Reverse(sorted)

	for _, name := range sorted {
		if _, pending := r.disposables[name]; pending {
			r.DestroySingleton(name)
		}
	}

	r.singletons = make(map[string]any)
	r.order = nil
	r.disposables = make(map[string]Disposable)
	r.disposableOrder = nil
	r.dependencies.Clear()
}

func (r *SingletonRegistry) removeSingleton(name string) {
	if _, ok := r.singletons[name]; !ok {
		return
	}
	delete(r.singletons, name)
	r.order = slices.DeleteFunc(r.order, func(n string) bool { return n == name })
}

// closeSafely calls Close, turning a panic into an error.
func closeSafely(d Disposable) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = ConstructorPanicError{Source: fmt.Sprintf("%T.Close", d), Panic: p, Stack: debug.Stack()}
		}
	}()
	return d.Close()
}
