package sprout

import (
	"errors"
	"fmt"
	"reflect"
	"slices"

	"github.com/junioryono/sprout/internal/reflection"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// constructorResolver binds the parameters of a constructor, factory method or
// setter, or the inject-tagged fields of a struct, to beans.
type constructorResolver struct {
	factory  *BeanFactory
	beanName string // bean being created; excluded from its own candidates
}

// dependency describes one injection point.
type dependency struct {
	name     string // bean name tried first for scalars
	label    string // parameter or field name for error messages
	index    int
	typ      reflect.Type
	kind     reflection.ParamKind
	elemType reflect.Type
	optional bool
	fallback any
}

// invoke calls fn with resolved arguments. fn returns the bean, optionally
// followed by an error.
func (r *constructorResolver) invoke(fn reflect.Value, meta *Metadata) (any, error) {
	info, err := analyzer.AnalyzeFunc(fn.Type())
	if err != nil {
		return nil, err
	}

	args, err := r.arguments(info.Parameters, meta)
	if err != nil {
		return nil, err
	}

	out := call(fn, args)
	if info.HasErrorReturn && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}

	return out[0].Interface(), nil
}

// invokeSetter calls a method returning nothing or an error.
func (r *constructorResolver) invokeSetter(method reflect.Value, meta *Metadata) error {
	args, err := r.arguments(reflection.Parameters(method.Type()), meta)
	if err != nil {
		return err
	}

	out := call(method, args)
	if n := len(out); n > 0 && method.Type().Out(n-1) == errorType && !out[n-1].IsNil() {
		return out[n-1].Interface().(error)
	}
	return nil
}

func call(fn reflect.Value, args []reflect.Value) []reflect.Value {
	if fn.Type().IsVariadic() {
		return fn.CallSlice(args)
	}
	return fn.Call(args)
}

// arguments resolves every parameter, naming them from the Inject table in
// meta and otherwise from the parameter type.
func (r *constructorResolver) arguments(params []reflection.ParameterInfo, meta *Metadata) ([]reflect.Value, error) {
	inject, _ := annotationOf[Inject](meta)

	args := make([]reflect.Value, len(params))
	for i, p := range params {
		d := dependency{
			index:    p.Index,
			typ:      p.Type,
			kind:     p.Kind,
			elemType: p.ElemType,
		}

		if i < len(inject.Params) {
			param := inject.Params[i]
			d.name = param.Name
			d.optional = param.Optional
			d.fallback = param.Default
		}
		if d.name == "" {
			d.name = beanNameForType(p.ElemType)
		}
		d.label = d.name

		v, err := r.resolve(d)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	return args, nil
}

// populate allocates a new struct and resolves its inject-tagged fields.
func (r *constructorResolver) populate(structType reflect.Type) (any, error) {
	info, err := analyzer.AnalyzeStruct(structType)
	if err != nil {
		return nil, err
	}

	ptr := reflect.New(structType)
	for _, p := range info.Parameters {
		v, err := r.resolve(dependency{
			name:     p.Name,
			label:    structType.Field(p.Index).Name,
			index:    p.Index,
			typ:      p.Type,
			kind:     p.Kind,
			elemType: p.ElemType,
			optional: p.Optional,
		})
		if err != nil {
			return nil, err
		}
		ptr.Elem().Field(p.Index).Set(v)
	}

	return ptr.Interface(), nil
}

func (r *constructorResolver) resolve(d dependency) (reflect.Value, error) {
	switch d.kind {
	case reflection.ParamSlice:
		return r.resolveSlice(d)
	case reflection.ParamSet:
		return r.resolveSet(d)
	case reflection.ParamMap:
		return r.resolveMap(d)
	default:
		return r.resolveScalar(d)
	}
}

func (r *constructorResolver) resolveScalar(d dependency) (reflect.Value, error) {
	f := r.factory

	// The bean named like the parameter wins when it fits; failures fall
	// through to the type lookup.
	var namedErr error
	if d.name != "" && d.name != r.beanName && f.ContainsBean(d.name) {
		if match, err := f.IsTypeMatch(d.name, d.typ); err == nil && match {
			bean, err := f.GetBean(d.name)
			if err == nil && bean != nil && reflect.TypeOf(bean).AssignableTo(d.typ) {
				return r.use(d.name, bean, d.typ), nil
			}
			namedErr = err
		}
	}

	candidates, err := r.candidates(d.typ)
	if err != nil {
		return reflect.Value{}, r.unsatisfied(d, err)
	}

	var chosen string
	switch {
	case len(candidates) == 1:
		chosen = candidates[0]
	case len(candidates) > 1:
		if !slices.Contains(candidates, d.name) {
			return reflect.Value{}, r.unsatisfied(d, NoUniqueBeanDefinitionError{Type: d.typ, Candidates: candidates})
		}
		chosen = d.name
	default:
		return r.unresolved(d)
	}

	// Do not build a bean a second time after it just failed.
	if chosen == d.name && namedErr != nil {
		return reflect.Value{}, r.unsatisfied(d, namedErr)
	}

	bean, err := f.GetBean(chosen)
	if err != nil {
		return reflect.Value{}, r.unsatisfied(d, err)
	}
	if isNil(bean) {
		return r.unresolved(d)
	}
	if !reflect.TypeOf(bean).AssignableTo(d.typ) {
		return reflect.Value{}, r.unsatisfied(d, BeanNotOfRequiredTypeError{Name: chosen, Required: d.typ, Actual: reflect.TypeOf(bean)})
	}

	return r.use(chosen, bean, d.typ), nil
}

func (r *constructorResolver) resolveSlice(d dependency) (reflect.Value, error) {
	beans, err := r.collect(d)
	if err != nil {
		return reflect.Value{}, err
	}

	slice := reflect.MakeSlice(d.typ, 0, len(beans))
	for _, b := range beans {
		slice = reflect.Append(slice, b.value)
	}
	return slice, nil
}

func (r *constructorResolver) resolveSet(d dependency) (reflect.Value, error) {
	beans, err := r.collect(d)
	if err != nil {
		return reflect.Value{}, err
	}

	set := reflect.MakeMapWithSize(d.typ, len(beans))
	present := reflect.New(d.typ.Elem()).Elem()
	for _, b := range beans {
		if !reflect.TypeOf(b.value.Interface()).Comparable() {
			return reflect.Value{}, r.unsatisfied(d, fmt.Errorf("bean %q of type %s cannot be a set member", b.name, b.value.Type()))
		}
		set.SetMapIndex(b.value, present)
	}
	return set, nil
}

func (r *constructorResolver) resolveMap(d dependency) (reflect.Value, error) {
	beans, err := r.collect(d)
	if err != nil {
		return reflect.Value{}, err
	}

	m := reflect.MakeMapWithSize(d.typ, len(beans))
	keyType := d.typ.Key()
	for _, b := range beans {
		m.SetMapIndex(reflect.ValueOf(b.name).Convert(keyType), b.value)
	}
	return m, nil
}

type namedBean struct {
	name  string
	value reflect.Value
}

// collect gathers every bean assignable to the element type, in registration order.
func (r *constructorResolver) collect(d dependency) ([]namedBean, error) {
	names, err := r.candidates(d.elemType)
	if err != nil {
		return nil, r.unsatisfied(d, err)
	}

	beans := make([]namedBean, 0, len(names))
	for _, name := range names {
		bean, err := r.factory.GetBean(name)
		if err != nil {
			return nil, r.unsatisfied(d, err)
		}
		if isNil(bean) || !reflect.TypeOf(bean).AssignableTo(d.elemType) {
			continue
		}
		beans = append(beans, namedBean{name: name, value: r.use(name, bean, d.elemType)})
	}
	return beans, nil
}

// candidates returns the beans assignable to t, leaving out the bean being created.
func (r *constructorResolver) candidates(t reflect.Type) ([]string, error) {
	names, err := r.factory.GetBeanNamesForType(t)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(names, func(n string) bool { return n == r.beanName }), nil
}

// use records the dependency and converts bean to a value of type t.
func (r *constructorResolver) use(name string, bean any, t reflect.Type) reflect.Value {
	if r.beanName != "" {
		r.factory.RegisterDependentBean(name, r.beanName)
	}

	v := reflect.New(t).Elem()
	v.Set(reflect.ValueOf(bean))
	return v
}

// unresolved handles a dependency that matched no bean.
func (r *constructorResolver) unresolved(d dependency) (reflect.Value, error) {
	if !d.optional {
		return reflect.Value{}, r.unsatisfied(d, NoSuchBeanDefinitionError{Type: d.typ})
	}

	if d.fallback == nil {
		return reflect.Zero(d.typ), nil
	}

	v := reflect.ValueOf(d.fallback)
	switch {
	case v.Type().AssignableTo(d.typ):
		out := reflect.New(d.typ).Elem()
		out.Set(v)
		return out, nil
	case v.Type().ConvertibleTo(d.typ):
		return v.Convert(d.typ), nil
	default:
		return reflect.Value{}, r.unsatisfied(d, fmt.Errorf("default value of type %T is not assignable", d.fallback))
	}
}

func (r *constructorResolver) unsatisfied(d dependency, cause error) error {
	var existing UnsatisfiedDependencyError
	if errors.As(cause, &existing) && existing.Name == r.beanName && existing.Index == d.index {
		return cause
	}

	return UnsatisfiedDependencyError{
		Name:      r.beanName,
		Parameter: d.label,
		Index:     d.index,
		Type:      d.typ,
		Cause:     cause,
	}
}
