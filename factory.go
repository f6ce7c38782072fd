package sprout

import (
	"errors"
	"fmt"
	"reflect"
	"runtime/debug"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

var (
	_ BeanDefinitionRegistry = (*BeanFactory)(nil)
	_ BeanProvider           = (*BeanFactory)(nil)
)

// BeanFactory turns bean definitions into live, wired beans.
//
// It is both the definition registry and the singleton registry, and owns the
// post-processor list. Beans are created lazily on first request;
// BeanContext.Refresh creates every singleton eagerly.
//
// BeanFactory is NOT thread-safe.
type BeanFactory struct {
	*DefinitionRegistry
	*SingletonRegistry

	postProcessors []BeanPostProcessor
	annotations    *AnnotationStore
	logger         *zap.Logger
}

// NewBeanFactory creates an empty bean factory. Only the logging,
// overriding and annotation store options apply to a bare factory.
func NewBeanFactory(opts ...Option) *BeanFactory {
	o := newOptions(opts)
	return newBeanFactory(o)
}

func newBeanFactory(o *options) *BeanFactory {
	return &BeanFactory{
		DefinitionRegistry: NewDefinitionRegistry(o.allowOverriding, o.logger),
		SingletonRegistry:  NewSingletonRegistry(o.logger),
		annotations:        o.annotations,
		logger:             o.logger,
	}
}

// Annotations returns the store the factory reads Inject and Autowired metadata from.
func (f *BeanFactory) Annotations() *AnnotationStore {
	return f.annotations
}

// GetBean returns the bean registered under name, creating it if needed.
func (f *BeanFactory) GetBean(name string) (any, error) {
	if obj, ok := f.GetSingleton(name); ok {
		return obj, nil
	}

	def, err := f.GetBeanDefinition(name)
	if err != nil {
		return nil, err
	}

	if !def.IsSingleton() {
		return nil, BeanCreationError{Name: name, Cause: UnsupportedScopeError{Name: name, Scope: def.Scope}}
	}

	return f.GetSingletonFromFactory(name, func() (any, error) {
		return f.createBean(name, def)
	})
}

// GetBeanWithType returns the bean registered under name, checking that it is
// assignable to requiredType.
func (f *BeanFactory) GetBeanWithType(name string, requiredType reflect.Type) (any, error) {
	if requiredType == nil {
		return nil, ErrBeanTypeNil
	}

	bean, err := f.GetBean(name)
	if err != nil {
		return nil, err
	}

	actual := reflect.TypeOf(bean)
	if actual == nil || !actual.AssignableTo(requiredType) {
		return nil, BeanNotOfRequiredTypeError{Name: name, Required: requiredType, Actual: actual}
	}

	return bean, nil
}

// GetBeanOfType returns the single bean assignable to t.
func (f *BeanFactory) GetBeanOfType(t reflect.Type) (any, error) {
	names, err := f.GetBeanNamesForType(t)
	if err != nil {
		return nil, err
	}

	switch len(names) {
	case 0:
		return nil, NoSuchBeanDefinitionError{Type: t}
	case 1:
		return f.GetBean(names[0])
	default:
		return nil, NoUniqueBeanDefinitionError{Type: t, Candidates: names}
	}
}

// GetBeansOfType returns every bean assignable to t, keyed by bean name,
// creating them if needed.
func (f *BeanFactory) GetBeansOfType(t reflect.Type) (map[string]any, error) {
	names, err := f.GetBeanNamesForType(t)
	if err != nil {
		return nil, err
	}

	beans := make(map[string]any, len(names))
	for _, name := range names {
		bean, err := f.GetBean(name)
		if err != nil {
			return nil, err
		}
		if bean != nil {
			beans[name] = bean
		}
	}

	return beans, nil
}

// GetBeanNamesForType returns the names of beans assignable to t without
// creating them: definitions in registration order, then singletons
// registered directly.
func (f *BeanFactory) GetBeanNamesForType(t reflect.Type) ([]string, error) {
	if t == nil {
		return nil, ErrBeanTypeNil
	}

	var names []string
	for _, name := range f.GetBeanDefinitionNames() {
		match, err := f.IsTypeMatch(name, t)
		if err != nil {
			return nil, err
		}
		if match {
			names = append(names, name)
		}
	}

	manual := lo.Filter(f.SingletonNames(), func(name string, _ int) bool {
		if f.ContainsBeanDefinition(name) {
			return false
		}
		obj, _ := f.GetSingleton(name)
		return reflect.TypeOf(obj).AssignableTo(t)
	})

	return append(names, manual...), nil
}

// IsTypeMatch reports whether the bean name is assignable to t. A created
// singleton is checked by its actual type; otherwise the declared type of the
// definition is used and nothing is created.
func (f *BeanFactory) IsTypeMatch(name string, t reflect.Type) (bool, error) {
	if t == nil {
		return false, ErrBeanTypeNil
	}

	beanType, err := f.GetType(name)
	if err != nil {
		return false, err
	}

	return beanType != nil && beanType.AssignableTo(t), nil
}

// GetType returns the type of the bean name: the actual type of a created
// singleton, else the declared type of its definition.
func (f *BeanFactory) GetType(name string) (reflect.Type, error) {
	if obj, ok := f.GetSingleton(name); ok {
		return reflect.TypeOf(obj), nil
	}

	def, err := f.GetBeanDefinition(name)
	if err != nil {
		return nil, err
	}

	return f.declaredType(name, def)
}

// ContainsBean reports whether a singleton or a definition exists under name.
func (f *BeanFactory) ContainsBean(name string) bool {
	return f.ContainsSingleton(name) || f.ContainsBeanDefinition(name)
}

// PreInstantiateSingletons creates every singleton definition in
// registration order, then calls AfterSingletonsInstantiated on each
// singleton implementing SmartInitializingSingleton.
func (f *BeanFactory) PreInstantiateSingletons() error {
	names := f.GetBeanDefinitionNames()

	for _, name := range names {
		def, err := f.GetBeanDefinition(name)
		if err != nil {
			continue
		}
		if !def.IsSingleton() {
			continue
		}
		if _, err := f.GetBean(name); err != nil {
			return err
		}
	}

	for _, name := range names {
		obj, ok := f.GetSingleton(name)
		if !ok {
			continue
		}

		smart, ok := obj.(SmartInitializingSingleton)
		if !ok {
			continue
		}

		if err := smart.AfterSingletonsInstantiated(); err != nil {
			return BeanCreationError{Name: name, Cause: err}
		}
	}

	return nil
}

// declaredType returns the definition's declared type, naming the bean in
// any type error.
func (f *BeanFactory) declaredType(name string, def *BeanDefinition) (reflect.Type, error) {
	t, err := def.DeclaredType()
	if err == nil {
		return t, nil
	}

	var notDeclared BeanTypeNotDeclaredError
	if errors.As(err, &notDeclared) {
		notDeclared.Name = name
		return nil, notDeclared
	}

	var notAllowed BeanTypeNotAllowedError
	if errors.As(err, &notAllowed) {
		notAllowed.Name = name
		return nil, notAllowed
	}

	return nil, err
}

// createBean runs the full creation lifecycle for one bean.
func (f *BeanFactory) createBean(name string, def *BeanDefinition) (any, error) {
	f.logger.Debug("creating bean",
		zap.String("bean", name),
		zap.Stringer("source", def))

	beanType, err := f.declaredType(name, def)
	if err != nil {
		return nil, wrapCreationError(name, err)
	}

	// A post-processor may supply the object itself.
	if shortcut, err := f.applyBeforeInstantiation(beanType, name); err != nil {
		return nil, wrapCreationError(name, err)
	} else if shortcut != nil {
		bean, err := f.applyAfterInitialization(shortcut, name)
		if err != nil {
			return nil, wrapCreationError(name, err)
		}
		return bean, nil
	}

	bean, err := f.instantiate(name, def)
	if err != nil {
		return nil, wrapCreationError(name, err)
	}

	if isNil(bean) {
		f.logger.Debug("factory returned nil bean", zap.String("bean", name))
		return nil, nil
	}

	bean, err = f.initializeBean(name, bean)
	if err != nil {
		return nil, wrapCreationError(name, err)
	}

	if d, ok := bean.(Disposable); ok && def.IsSingleton() {
		f.RegisterDisposableBean(name, d)
	}

	return bean, nil
}

func (f *BeanFactory) initializeBean(name string, bean any) (any, error) {
	if aware, ok := bean.(BeanNameAware); ok {
		aware.SetBeanName(name)
	}
	if aware, ok := bean.(BeanFactoryAware); ok {
		aware.SetBeanFactory(f)
	}

	bean, err := f.applyBeforeInitialization(bean, name)
	if err != nil {
		return nil, err
	}

	if initializing, ok := bean.(InitializingBean); ok {
		if err := initializing.AfterPropertiesSet(); err != nil {
			return nil, fmt.Errorf("AfterPropertiesSet: %w", err)
		}
	}

	return f.applyAfterInitialization(bean, name)
}

// instantiate builds the raw object for def, recovering constructor panics.
func (f *BeanFactory) instantiate(name string, def *BeanDefinition) (bean any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ConstructorPanicError{Source: def.String(), Panic: r, Stack: debug.Stack()}
		}
	}()

	resolver := &constructorResolver{factory: f, beanName: name}

	switch def.kind() {
	case sourceFunction:
		return resolver.invoke(reflect.ValueOf(def.Source), f.annotations.Metadata(def.Source))

	case sourceClass:
		t, ok := def.Source.(reflect.Type)
		if !ok {
			t = reflect.TypeOf(def.Source)
		}
		return resolver.populate(structTypeOf(t))

	case sourceFactoryMethod:
		ref := def.Source.(MethodRef)
		owner, err := f.GetBean(def.FactoryBeanName)
		if err != nil {
			return nil, fmt.Errorf("factory bean %q: %w", def.FactoryBeanName, err)
		}
		if isNil(owner) {
			return nil, fmt.Errorf("factory bean %q is nil", def.FactoryBeanName)
		}
		f.RegisterDependentBean(def.FactoryBeanName, name)

		method := reflect.ValueOf(owner).MethodByName(ref.Name)
		if !method.IsValid() {
			return nil, fmt.Errorf("factory bean %q of type %T has no method %s", def.FactoryBeanName, owner, ref.Name)
		}
		return resolver.invoke(method, f.annotations.Metadata(ref))

	case sourceInstance:
		return def.Source, nil

	default:
		return nil, ErrSourceNil
	}
}

// wrapCreationError wraps err in a BeanCreationError for name unless it already is one.
func wrapCreationError(name string, err error) error {
	var creation BeanCreationError
	if errors.As(err, &creation) && creation.Name == name {
		return err
	}
	return BeanCreationError{Name: name, Cause: err}
}
