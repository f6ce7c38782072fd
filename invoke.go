package sprout

import (
	"fmt"
	"reflect"

	"go.uber.org/dig"
	"go.uber.org/zap"
)

// Invoke calls fn with its parameters resolved from the context's singletons
// through a dig container. fn may take plain parameters, filled from the
// single singleton of each type, or a dig.In struct whose `name` tags select
// singletons by bean name.
//
// The dig container is built on first use from the singletons of a
// refreshed context.
//
// Example:
//
//	err := ctx.Invoke(func(svc *UserService, p struct {
//	    dig.In
//	    Primary *sql.DB `name:"primaryDB"`
//	}) {
//	    ...
//	})
func (c *BeanContext) Invoke(fn any, opts ...dig.InvokeOption) error {
	if c.state != StateRefreshed {
		return IllegalStateError{Operation: "invoke", State: c.state}
	}

	if c.container == nil {
		container, err := c.buildContainer()
		if err != nil {
			return err
		}
		c.container = container
	}

	return c.container.Invoke(fn, opts...)
}

// buildContainer provides every singleton under its bean name, and unnamed
// under its actual and declared types when exactly one singleton has that type.
// dig reads a provided type implementing error as a failure result, so such
// types are left out.
func (c *BeanContext) buildContainer() (*dig.Container, error) {
	container := dig.New()
	byType := make(map[reflect.Type][]string)

	for _, name := range c.SingletonNames() {
		bean, _ := c.GetSingleton(name)
		actual := reflect.TypeOf(bean)
		if actual.Implements(errorType) {
			c.logger.Debug("bean implements error, not available to Invoke",
				zap.String("bean", name),
				zap.Stringer("type", actual))
			continue
		}

		if err := container.Provide(constantProvider(actual, bean), dig.Name(name)); err != nil {
			return nil, fmt.Errorf("provide bean %q: %w", name, err)
		}
		byType[actual] = append(byType[actual], name)

		if def, err := c.GetBeanDefinition(name); err == nil {
			if declared, err := def.DeclaredType(); err == nil && declared != actual && actual.AssignableTo(declared) && !declared.Implements(errorType) {
				byType[declared] = append(byType[declared], name)
			}
		}
	}

	for t, names := range byType {
		if len(names) != 1 {
			c.logger.Debug("type provided by several beans, only named injection available",
				zap.Stringer("type", t),
				zap.Strings("beans", names))
			continue
		}

		bean, _ := c.GetSingleton(names[0])
		if err := container.Provide(constantProvider(t, bean)); err != nil {
			return nil, fmt.Errorf("provide bean %q as %s: %w", names[0], formatType(t), err)
		}
	}

	return container, nil
}

// constantProvider returns a func() T that always returns value.
func constantProvider(t reflect.Type, value any) any {
	out := reflect.New(t).Elem()
	out.Set(reflect.ValueOf(value))

	fnType := reflect.FuncOf(nil, []reflect.Type{t}, false)
	return reflect.MakeFunc(fnType, func([]reflect.Value) []reflect.Value {
		return []reflect.Value{out}
	}).Interface()
}
