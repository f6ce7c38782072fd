package sprout

import (
	"fmt"
	"reflect"
)

// BeanProvider is the read side of a container. Both *BeanFactory and
// *BeanContext implement it.
type BeanProvider interface {
	GetBean(name string) (any, error)
	GetBeanOfType(t reflect.Type) (any, error)
	GetBeansOfType(t reflect.Type) (map[string]any, error)
}

// GetBean returns the bean registered under name as a T.
//
// Example:
//
//	repo, err := sprout.GetBean[*UserRepository](ctx, "userRepository")
func GetBean[T any](provider BeanProvider, name string) (T, error) {
	var zero T

	if provider == nil {
		return zero, ErrFactoryNil
	}

	bean, err := provider.GetBean(name)
	if err != nil {
		return zero, err
	}

	result, ok := bean.(T)
	if !ok {
		return zero, BeanNotOfRequiredTypeError{
			Name:     name,
			Required: typeOf[T](),
			Actual:   reflect.TypeOf(bean),
		}
	}

	return result, nil
}

// MustGetBean returns the bean registered under name as a T.
// It panics if the bean cannot be obtained.
//
// Example:
//
//	repo := sprout.MustGetBean[*UserRepository](ctx, "userRepository")
func MustGetBean[T any](provider BeanProvider, name string) T {
	bean, err := GetBean[T](provider, name)
	if err != nil {
		panic(fmt.Sprintf("failed to get bean: %v", err))
	}

	return bean
}

// GetBeanOfType returns the single bean assignable to T.
//
// Example:
//
//	logger, err := sprout.GetBeanOfType[Logger](ctx)
func GetBeanOfType[T any](provider BeanProvider) (T, error) {
	var zero T

	if provider == nil {
		return zero, ErrFactoryNil
	}

	t := typeOf[T]()
	bean, err := provider.GetBeanOfType(t)
	if err != nil {
		return zero, err
	}

	result, ok := bean.(T)
	if !ok {
		return zero, BeanNotOfRequiredTypeError{Required: t, Actual: reflect.TypeOf(bean)}
	}

	return result, nil
}

// GetBeansOfType returns every bean assignable to T, keyed by bean name.
func GetBeansOfType[T any](provider BeanProvider) (map[string]T, error) {
	if provider == nil {
		return nil, ErrFactoryNil
	}

	beans, err := provider.GetBeansOfType(typeOf[T]())
	if err != nil {
		return nil, err
	}

	result := make(map[string]T, len(beans))
	for name, bean := range beans {
		if typed, ok := bean.(T); ok {
			result[name] = typed
		}
	}

	return result, nil
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
