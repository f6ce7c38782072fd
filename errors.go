package sprout

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/junioryono/sprout/internal/graph"
)

// ========================================
// Core Error Values (Sentinel Errors)
// ========================================
// These are base errors that are wrapped in typed errors when returned.

var (
	// Registration errors.
	ErrSourceNil            = errors.New("bean source cannot be nil")
	ErrBeanNameEmpty        = errors.New("bean name cannot be empty")
	ErrUnidentifiableSource = errors.New("source has no stable identity")
	ErrDefinitionNil        = errors.New("bean definition cannot be nil")
	ErrFactoryBeanNameEmpty = errors.New("factory method definition requires a factory bean name")

	// Lookup errors.
	ErrBeanTypeNil = errors.New("bean type cannot be nil")
	ErrFactoryNil  = errors.New("bean factory cannot be nil")

	// Listener errors.
	ErrListenerNil     = errors.New("listener cannot be nil")
	ErrListenerInvalid = errors.New("listener must declare OnApplicationEvent(event) with exactly one parameter")
	ErrEventNil        = errors.New("event cannot be nil")

	// Context errors.
	ErrContextClosed = errors.New("bean context has been closed")

	// Condition errors.
	ErrConditionInvalid = errors.New("condition must implement Condition")
)

var (
	_ error = NoSuchBeanDefinitionError{}
	_ error = BeanDefinitionStoreError{}
	_ error = NoUniqueBeanDefinitionError{}
	_ error = BeanTypeNotDeclaredError{}
	_ error = BeanTypeNotAllowedError{}
	_ error = BeanCurrentlyInCreationError{}
	_ error = BeanCreationError{}
	_ error = BeanNotOfRequiredTypeError{}
	_ error = UnsatisfiedDependencyError{}
	_ error = UnsupportedScopeError{}
	_ error = IllegalStateError{}
	_ error = ConstructorPanicError{}
)

// ========================================
// Typed Errors for Rich Context
// ========================================

// NoSuchBeanDefinitionError indicates a lookup that matched no bean.
// Either Name or Type is set depending on how the lookup was made.
type NoSuchBeanDefinitionError struct {
	Name string
	Type reflect.Type
}

func (e NoSuchBeanDefinitionError) Error() string {
	if e.Type != nil {
		return fmt.Sprintf("no qualifying bean of type %s available", formatType(e.Type))
	}
	return fmt.Sprintf("no bean named %q available", e.Name)
}

// BeanDefinitionStoreError indicates a definition could not be registered.
type BeanDefinitionStoreError struct {
	Name  string
	Cause error
}

func (e BeanDefinitionStoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("cannot register bean definition %q: %v", e.Name, e.Cause)
	}
	return fmt.Sprintf("cannot register bean definition %q: there is already a definition bound and overriding is disabled", e.Name)
}

func (e BeanDefinitionStoreError) Unwrap() error {
	return e.Cause
}

// NoUniqueBeanDefinitionError indicates a type lookup matched several beans
// and none could be chosen.
type NoUniqueBeanDefinitionError struct {
	Type       reflect.Type
	Candidates []string
}

func (e NoUniqueBeanDefinitionError) Error() string {
	return fmt.Sprintf("no qualifying bean of type %s available: expected single matching bean but found %d: %s",
		formatType(e.Type), len(e.Candidates), strings.Join(e.Candidates, ","))
}

// BeanTypeNotDeclaredError indicates a factory function or method does not
// declare the type of the bean it produces.
type BeanTypeNotDeclaredError struct {
	Name   string
	Source string
	Cause  error
}

func (e BeanTypeNotDeclaredError) Error() string {
	msg := fmt.Sprintf("bean %q: %s does not declare a bean return type", e.Name, e.Source)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e BeanTypeNotDeclaredError) Unwrap() error {
	return e.Cause
}

// BeanTypeNotAllowedError indicates a factory's declared return type cannot
// name a bean, such as any, a channel or a function.
type BeanTypeNotAllowedError struct {
	Name   string
	Source string
	Cause  error
}

func (e BeanTypeNotAllowedError) Error() string {
	return fmt.Sprintf("bean %q: %s declares a return type that is not allowed: %v", e.Name, e.Source, e.Cause)
}

func (e BeanTypeNotAllowedError) Unwrap() error {
	return e.Cause
}

// BeanCurrentlyInCreationError indicates a bean was requested while it was
// still being constructed, i.e. a dependency cycle.
// Chain lists the beans in creation, ending with the requested one.
type BeanCurrentlyInCreationError struct {
	Name  string
	Chain []string
}

func (e BeanCurrentlyInCreationError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("bean %q is currently in creation: is there an unresolvable circular reference?", e.Name))

	// Show only the cycle part of the chain.
	for i, name := range e.Chain {
		if name == e.Name {
			b.WriteString("\n\n")
			b.WriteString(graph.FormatCycle(e.Chain[i:]))
			break
		}
	}

	return b.String()
}

// BeanCreationError wraps any failure raised while creating a bean.
type BeanCreationError struct {
	Name  string
	Cause error
}

func (e BeanCreationError) Error() string {
	return fmt.Sprintf("error creating bean %q: %v", e.Name, e.Cause)
}

func (e BeanCreationError) Unwrap() error {
	return e.Cause
}

// BeanNotOfRequiredTypeError indicates a resolved bean failed an explicit type check.
type BeanNotOfRequiredTypeError struct {
	Name     string
	Required reflect.Type
	Actual   reflect.Type
}

func (e BeanNotOfRequiredTypeError) Error() string {
	return fmt.Sprintf("bean %q is expected to be of type %s but was actually of type %s",
		e.Name, formatType(e.Required), formatType(e.Actual))
}

// UnsatisfiedDependencyError indicates a required parameter could not be resolved.
type UnsatisfiedDependencyError struct {
	Name      string
	Parameter string
	Index     int
	Type      reflect.Type
	Cause     error
}

func (e UnsatisfiedDependencyError) Error() string {
	param := e.Parameter
	if param == "" {
		param = fmt.Sprintf("#%d", e.Index)
	}

	msg := fmt.Sprintf("unsatisfied dependency of bean %q through parameter %s of type %s",
		e.Name, param, formatType(e.Type))
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e UnsatisfiedDependencyError) Unwrap() error {
	return e.Cause
}

// UnsupportedScopeError indicates a bean was requested with a scope the
// container reserves but does not implement.
type UnsupportedScopeError struct {
	Name  string
	Scope Scope
}

func (e UnsupportedScopeError) Error() string {
	return fmt.Sprintf("bean %q has scope %s, which is not supported", e.Name, e.Scope)
}

// IllegalStateError indicates an operation invalid in the context's current state.
type IllegalStateError struct {
	Operation string
	State     State
}

func (e IllegalStateError) Error() string {
	return fmt.Sprintf("cannot %s: bean context is %s", e.Operation, e.State)
}

// Unwrap returns ErrContextClosed for a closed context.
func (e IllegalStateError) Unwrap() error {
	if e.State == StateClosed {
		return ErrContextClosed
	}
	return nil
}

// ConstructorPanicError indicates a constructor or factory method panicked.
type ConstructorPanicError struct {
	Source string
	Panic  any
	Stack  []byte
}

func (e ConstructorPanicError) Error() string {
	return fmt.Sprintf("%s panicked: %v", e.Source, e.Panic)
}

// IsNotFound reports whether err is, or wraps, a NoSuchBeanDefinitionError.
func IsNotFound(err error) bool {
	var target NoSuchBeanDefinitionError
	return errors.As(err, &target)
}

// IsCircularReference reports whether err is, or wraps, a BeanCurrentlyInCreationError.
func IsCircularReference(err error) bool {
	var target BeanCurrentlyInCreationError
	return errors.As(err, &target)
}

// formatType returns a readable type name without package paths.
func formatType(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	switch t.Kind() {
	case reflect.Pointer:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "*" + elem.Name()
		}
		return t.String()
	case reflect.Slice:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "[]" + elem.Name()
		}
		return t.String()
	default:
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	}
}
