package sprout

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cast"
)

// Condition decides whether an annotated source is registered.
type Condition interface {
	Matches(ctx ConditionContext, metadata *Metadata) bool
}

// ConditionFunc adapts a function to Condition.
type ConditionFunc func(ctx ConditionContext, metadata *Metadata) bool

func (f ConditionFunc) Matches(ctx ConditionContext, metadata *Metadata) bool {
	return f(ctx, metadata)
}

// ConditionContext is what a Condition may inspect.
type ConditionContext struct {
	Registry    BeanDefinitionRegistry
	BeanFactory *BeanFactory
	Environment *Environment
}

// ConditionEvaluator evaluates Conditional annotations.
type ConditionEvaluator struct {
	ctx ConditionContext
}

// NewConditionEvaluator creates an evaluator that hands ctx to conditions.
func NewConditionEvaluator(ctx ConditionContext) *ConditionEvaluator {
	return &ConditionEvaluator{ctx: ctx}
}

// ShouldSkip reports whether the source described by metadata must not be
// registered. Sources without a Conditional annotation are never skipped.
func (e *ConditionEvaluator) ShouldSkip(metadata *Metadata) (bool, error) {
	c, ok := annotationOf[Conditional](metadata)
	if !ok {
		return false, nil
	}

	cond, err := toCondition(c.Condition)
	if err != nil {
		return false, fmt.Errorf("%s: %w", metadata.Identity(), err)
	}

	return !cond.Matches(e.ctx, metadata), nil
}

// toCondition reuses a Condition value, adapts a function or instantiates a type.
func toCondition(v any) (Condition, error) {
	switch c := v.(type) {
	case nil:
		return nil, ErrConditionInvalid
	case Condition:
		return c, nil
	case func(ConditionContext, *Metadata) bool:
		return ConditionFunc(c), nil
	case reflect.Type:
		t := c
		if t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		ptr := reflect.New(t)
		if cond, ok := ptr.Interface().(Condition); ok {
			return cond, nil
		}
		if cond, ok := ptr.Elem().Interface().(Condition); ok {
			return cond, nil
		}
	}
	return nil, ErrConditionInvalid
}

// OnProperty matches when the property Name is set to HavingValue
// (case-insensitive), or, with no HavingValue, to anything but "false".
// A missing property matches only when MatchIfMissing is set.
//
// Example:
//
//	var _ = sprout.Annotate(NewRedisCache,
//	    sprout.Component{},
//	    sprout.Conditional{Condition: sprout.OnProperty{Name: "cache.type", HavingValue: "redis"}})
type OnProperty struct {
	Name           string
	HavingValue    string
	MatchIfMissing bool
}

func (c OnProperty) Matches(ctx ConditionContext, _ *Metadata) bool {
	if ctx.Environment == nil {
		return c.MatchIfMissing
	}

	val, ok := ctx.Environment.GetProperty(c.Name)
	if !ok {
		return c.MatchIfMissing
	}

	s := cast.ToString(val)
	if c.HavingValue == "" {
		return !strings.EqualFold(s, "false")
	}
	return strings.EqualFold(s, c.HavingValue)
}

// OnBean matches when every named bean and at least one bean of every listed
// type is already registered. With neither listed, it looks for a bean of the
// type the annotated source declares.
//
// Conditions see only what was registered before them, so registration
// order matters.
type OnBean struct {
	Names []string
	Types []reflect.Type
}

func (c OnBean) Matches(ctx ConditionContext, metadata *Metadata) bool {
	names, types := c.Names, c.Types
	if len(names) == 0 && len(types) == 0 {
		t, ok := declaredTypeOf(metadata)
		if !ok {
			return false
		}
		types = []reflect.Type{t}
	}

	return lo.EveryBy(names, func(n string) bool { return beanExists(ctx, n) }) &&
		lo.EveryBy(types, func(t reflect.Type) bool { return typeExists(ctx, t) })
}

// OnMissingBean matches when none of the named beans and no bean of any
// listed type is registered. With neither listed, it looks for a bean of the
// type the annotated source declares.
type OnMissingBean struct {
	Names []string
	Types []reflect.Type
}

func (c OnMissingBean) Matches(ctx ConditionContext, metadata *Metadata) bool {
	names, types := c.Names, c.Types
	if len(names) == 0 && len(types) == 0 {
		t, ok := declaredTypeOf(metadata)
		if !ok {
			return true
		}
		types = []reflect.Type{t}
	}

	return lo.NoneBy(names, func(n string) bool { return beanExists(ctx, n) }) &&
		lo.NoneBy(types, func(t reflect.Type) bool { return typeExists(ctx, t) })
}

func beanExists(ctx ConditionContext, name string) bool {
	if ctx.BeanFactory != nil {
		return ctx.BeanFactory.ContainsBean(name)
	}
	return ctx.Registry != nil && ctx.Registry.ContainsBeanDefinition(name)
}

func typeExists(ctx ConditionContext, t reflect.Type) bool {
	if ctx.BeanFactory == nil {
		return false
	}
	names, err := ctx.BeanFactory.GetBeanNamesForType(t)
	return err == nil && len(names) > 0
}

func declaredTypeOf(metadata *Metadata) (reflect.Type, bool) {
	if metadata == nil {
		return nil, false
	}
	t, err := NewBeanDefinition(metadata.Source).DeclaredType()
	return t, err == nil && t != nil
}
