package sprout

import "reflect"

// Component marks a source as a candidate for Scan. A component may also
// declare Bean methods, which the configuration expander turns into further
// definitions.
type Component struct {
	// Name overrides the generated bean name.
	Name string

	// Scope of the bean. Defaults to Singleton.
	Scope Scope
}

// Configuration marks a source whose Bean methods define further beans.
type Configuration struct {
	// Name overrides the generated bean name.
	Name string
}

// Bean marks a method of a configuration component as a factory method.
// Attach it to a MethodRef.
type Bean struct {
	// Name overrides the method-derived bean name.
	Name string

	// Scope of the produced bean. Defaults to Singleton.
	Scope Scope
}

// Conditional gates registration of a source on a Condition.
//
// Condition is a Condition value, a func(ConditionContext, *Metadata) bool,
// or a reflect.Type of a type implementing Condition, which is instantiated
// with its zero value.
type Conditional struct {
	Condition any
}

// Autowired lists setter methods to call with resolved beans after
// construction. Parameters of each method are bound the same way as
// constructor parameters; annotate the MethodRef with Inject to name them.
type Autowired struct {
	Methods []string
}

// Inject is an explicit parameter table for a function or method source.
// Go does not expose parameter names at runtime, so Params[i] describes the
// i-th parameter. Parameters beyond the table are required and named after
// their type.
type Inject struct {
	Params []Param
}

// Param describes one parameter of a function or method source.
type Param struct {
	// Name is the bean name tried first for this parameter.
	Name string

	// Optional parameters that resolve to nothing receive Default.
	Optional bool

	// Default is used for an unresolved optional parameter. It must be
	// assignable to the parameter type; nil means the zero value.
	Default any
}

// Params builds an Inject table of required parameters from bean names.
//
// Example:
//
//	var _ = sprout.Annotate(NewOrderService, sprout.Component{}, sprout.Params("orders", "payments"))
func Params(names ...string) Inject {
	params := make([]Param, len(names))
	for i, n := range names {
		params[i] = Param{Name: n}
	}
	return Inject{Params: params}
}

var (
	componentKind     = reflect.TypeOf(Component{})
	configurationKind = reflect.TypeOf(Configuration{})
	beanKind          = reflect.TypeOf(Bean{})
	conditionalKind   = reflect.TypeOf(Conditional{})
)

// isConfigurationShaped reports whether metadata marks a component that may declare Bean methods.
func isConfigurationShaped(m *Metadata) bool {
	return m.Has(configurationKind) || m.Has(componentKind)
}

// scopeOf returns the scope declared by a source's annotations.
func scopeOf(m *Metadata) Scope {
	if c, ok := annotationOf[Component](m); ok {
		return c.Scope
	}
	if b, ok := annotationOf[Bean](m); ok {
		return b.Scope
	}
	return Singleton
}
