package sprout

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/junioryono/sprout/internal/reflection"
)

// analyzer is shared by every factory; it only caches immutable type analysis.
var analyzer = reflection.New()

// sourceKind classifies a bean source.
type sourceKind int

const (
	sourceInvalid       sourceKind = iota
	sourceFunction                 // constructor function
	sourceClass                    // struct type, populated through inject-tagged fields
	sourceFactoryMethod            // Bean method on a factory bean
	sourceInstance                 // pre-built object
)

// BeanDefinition is the recipe for a bean.
//
// Source is one of:
//   - a constructor function, e.g. NewUserService; the first return value is the bean
//   - a struct type given as reflect.Type or a typed nil pointer, e.g. (*UserService)(nil);
//     a new *UserService is allocated and its `inject` tagged fields are resolved
//   - a MethodRef, with FactoryBeanName naming the bean that owns the method
//   - any other non-nil value, used as the bean itself
type BeanDefinition struct {
	Source            any
	Scope             Scope
	FactoryBeanName   string
	FactoryMethodName string
}

// NewBeanDefinition creates a singleton definition for source.
func NewBeanDefinition(source any) *BeanDefinition {
	return &BeanDefinition{Source: source, Scope: Singleton}
}

// IsSingleton reports whether the definition has singleton scope.
func (d *BeanDefinition) IsSingleton() bool {
	return d.Scope == Singleton
}

// IsPrototype reports whether the definition has prototype scope.
func (d *BeanDefinition) IsPrototype() bool {
	return d.Scope == Prototype
}

// Validate checks that the definition can be registered.
func (d *BeanDefinition) Validate() error {
	if d == nil {
		return ErrDefinitionNil
	}

	if d.kind() == sourceInvalid {
		return ErrSourceNil
	}

	if !d.Scope.IsValid() {
		return fmt.Errorf("invalid bean scope: %v", d.Scope)
	}

	if d.kind() == sourceFactoryMethod && d.FactoryBeanName == "" {
		return ErrFactoryBeanNameEmpty
	}

	return nil
}

// String describes the source for log and error messages.
func (d *BeanDefinition) String() string {
	if d == nil {
		return "<nil>"
	}

	id, ok := identityOf(d.Source)
	if !ok {
		id = fmt.Sprintf("%T", d.Source)
	}

	if d.FactoryBeanName != "" {
		return fmt.Sprintf("%s (factory bean %q)", id, d.FactoryBeanName)
	}
	return id
}

func (d *BeanDefinition) kind() sourceKind {
	switch v := d.Source.(type) {
	case nil:
		return sourceInvalid
	case MethodRef:
		if v.Type == nil || v.Name == "" {
			return sourceInvalid
		}
		return sourceFactoryMethod
	case reflect.Type:
		if structTypeOf(v) == nil {
			return sourceInvalid
		}
		return sourceClass
	}

	val := reflect.ValueOf(d.Source)
	switch val.Kind() {
	case reflect.Func:
		if val.IsNil() {
			return sourceInvalid
		}
		return sourceFunction
	case reflect.Pointer:
		if val.IsNil() {
			if structTypeOf(val.Type()) == nil {
				return sourceInvalid
			}
			return sourceClass
		}
	}

	return sourceInstance
}

// DeclaredType returns the type of the bean the definition produces without creating it.
// For a factory function or method this is its first return type.
func (d *BeanDefinition) DeclaredType() (reflect.Type, error) {
	switch d.kind() {
	case sourceFunction:
		return declaredReturnType(reflect.TypeOf(d.Source), d.String())
	case sourceClass:
		t, ok := d.Source.(reflect.Type)
		if !ok {
			t = reflect.TypeOf(d.Source)
		}
		return reflect.PointerTo(structTypeOf(t)), nil
	case sourceFactoryMethod:
		ref := d.Source.(MethodRef)
		m, ok := ref.lookup()
		if !ok {
			return nil, BeanTypeNotDeclaredError{Source: ref.String(), Cause: fmt.Errorf("type %s has no method %s", formatType(ref.Type), ref.Name)}
		}
		return declaredReturnType(m.Type, ref.String())
	case sourceInstance:
		return reflect.TypeOf(d.Source), nil
	default:
		return nil, ErrSourceNil
	}
}

func declaredReturnType(fnType reflect.Type, source string) (reflect.Type, error) {
	t, _, err := reflection.ReturnType(fnType)
	switch {
	case err == nil:
		return t, nil
	case errors.Is(err, reflection.ErrNoReturnType):
		return nil, BeanTypeNotDeclaredError{Source: source}
	default:
		return nil, BeanTypeNotAllowedError{Source: source, Cause: err}
	}
}

// structTypeOf returns the struct type behind t, dereferencing pointers, or nil.
func structTypeOf(t reflect.Type) reflect.Type {
	if t == nil {
		return nil
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	return t
}
