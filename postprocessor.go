package sprout

import (
	"reflect"
	"slices"
)

// BeanPostProcessor hooks into the initialization of every bean.
//
// Results accumulate: each processor receives the object returned by the
// previous one. Returning a nil object keeps the current object.
type BeanPostProcessor interface {
	PostProcessBeforeInitialization(bean any, name string) (any, error)
	PostProcessAfterInitialization(bean any, name string) (any, error)
}

// InstantiationAwareBeanPostProcessor can replace instantiation entirely.
// The first processor returning a non-nil object wins; that object skips
// construction, the aware callbacks, the before-initialization hooks and
// AfterPropertiesSet, and only the after-initialization hooks run on it.
type InstantiationAwareBeanPostProcessor interface {
	BeanPostProcessor
	PostProcessBeforeInstantiation(beanType reflect.Type, name string) (any, error)
}

// BeanFactoryPostProcessor may modify the factory after all definitions are
// loaded and before any regular bean is created.
type BeanFactoryPostProcessor interface {
	PostProcessBeanFactory(factory *BeanFactory) error
}

// BeanDefinitionRegistryPostProcessor may register further definitions before
// the BeanFactoryPostProcessor phase.
type BeanDefinitionRegistryPostProcessor interface {
	BeanFactoryPostProcessor
	PostProcessBeanDefinitionRegistry(registry BeanDefinitionRegistry) error
}

var (
	_ InstantiationAwareBeanPostProcessor = BeanPostProcessorFuncs{}
)

// BeanPostProcessorFuncs adapts functions to InstantiationAwareBeanPostProcessor.
// Nil functions are no-ops.
//
// Example:
//
//	ctx.AddBeanPostProcessor(sprout.BeanPostProcessorFuncs{
//	    AfterInitialization: func(bean any, name string) (any, error) {
//	        log.Printf("created %s", name)
//	        return bean, nil
//	    },
//	})
type BeanPostProcessorFuncs struct {
	BeforeInstantiation  func(beanType reflect.Type, name string) (any, error)
	BeforeInitialization func(bean any, name string) (any, error)
	AfterInitialization  func(bean any, name string) (any, error)
}

func (f BeanPostProcessorFuncs) PostProcessBeforeInstantiation(beanType reflect.Type, name string) (any, error) {
	if f.BeforeInstantiation == nil {
		return nil, nil
	}
	return f.BeforeInstantiation(beanType, name)
}

func (f BeanPostProcessorFuncs) PostProcessBeforeInitialization(bean any, name string) (any, error) {
	if f.BeforeInitialization == nil {
		return bean, nil
	}
	return f.BeforeInitialization(bean, name)
}

func (f BeanPostProcessorFuncs) PostProcessAfterInitialization(bean any, name string) (any, error) {
	if f.AfterInitialization == nil {
		return bean, nil
	}
	return f.AfterInitialization(bean, name)
}

// AddBeanPostProcessor appends p to the processor list. A processor already
// present is moved to the end rather than added twice. BeanFactoryAware
// processors receive the factory the first time they are added.
func (f *BeanFactory) AddBeanPostProcessor(p BeanPostProcessor) {
	f.addBeanPostProcessor(p, true)
}

// addBeanPostProcessor adds p, handing BeanFactoryAware processors the factory
// only when notify is set. Processors created from bean definitions already
// received it during initialization.
func (f *BeanFactory) addBeanPostProcessor(p BeanPostProcessor, notify bool) {
	if p == nil {
		return
	}

	if i := f.indexOfPostProcessor(p); i >= 0 {
		f.postProcessors = slices.Delete(f.postProcessors, i, i+1)
		f.postProcessors = append(f.postProcessors, p)
		return
	}

	if aware, ok := p.(BeanFactoryAware); ok && notify {
		aware.SetBeanFactory(f)
	}

	f.postProcessors = append(f.postProcessors, p)
}

// BeanPostProcessors returns the registered processors in invocation order.
func (f *BeanFactory) BeanPostProcessors() []BeanPostProcessor {
	return slices.Clone(f.postProcessors)
}

// BeanPostProcessorCount returns the number of registered processors.
func (f *BeanFactory) BeanPostProcessorCount() int {
	return len(f.postProcessors)
}

func (f *BeanFactory) indexOfPostProcessor(p BeanPostProcessor) int {
	// Comparing uncomparable dynamic types panics.
	if !reflect.TypeOf(p).Comparable() {
		return -1
	}

	return slices.IndexFunc(f.postProcessors, func(existing BeanPostProcessor) bool {
		return reflect.TypeOf(existing).Comparable() && existing == p
	})
}

func (f *BeanFactory) applyBeforeInstantiation(beanType reflect.Type, name string) (any, error) {
	for _, p := range f.postProcessors {
		ia, ok := p.(InstantiationAwareBeanPostProcessor)
		if !ok {
			continue
		}

		result, err := ia.PostProcessBeforeInstantiation(beanType, name)
		if err != nil {
			return nil, err
		}
		if !isNil(result) {
			return result, nil
		}
	}
	return nil, nil
}

func (f *BeanFactory) applyBeforeInitialization(bean any, name string) (any, error) {
	current := bean
	for _, p := range f.postProcessors {
		result, err := p.PostProcessBeforeInitialization(current, name)
		if err != nil {
			return nil, err
		}
		if !isNil(result) {
			current = result
		}
	}
	return current, nil
}

func (f *BeanFactory) applyAfterInitialization(bean any, name string) (any, error) {
	current := bean
	for _, p := range f.postProcessors {
		result, err := p.PostProcessAfterInitialization(current, name)
		if err != nil {
			return nil, err
		}
		if !isNil(result) {
			current = result
		}
	}
	return current, nil
}

// isNil reports whether v is nil or a typed nil pointer, map, slice, func or channel.
func isNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
