package reflection

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

var (
	errType   = reflect.TypeOf((*error)(nil)).Elem()
	emptyType = reflect.TypeOf(struct{}{})
)

var (
	// ErrNoReturnType is returned when a callable declares no usable return value.
	ErrNoReturnType = errors.New("callable declares no return type")

	// ErrReturnTypeNotAllowed is returned when a callable's return type cannot name a bean.
	ErrReturnTypeNotAllowed = errors.New("return type is not a concrete bean type")
)

// ParamKind classifies how a parameter is satisfied.
type ParamKind int

const (
	// ParamScalar is satisfied by a single bean.
	ParamScalar ParamKind = iota

	// ParamSlice ([]T) is satisfied by every bean assignable to T.
	ParamSlice

	// ParamSet (map[T]struct{}) is satisfied by every bean assignable to T.
	ParamSet

	// ParamMap (map[string]T) is satisfied by every bean assignable to T, keyed by bean name.
	ParamMap
)

func (k ParamKind) String() string {
	switch k {
	case ParamScalar:
		return "scalar"
	case ParamSlice:
		return "slice"
	case ParamSet:
		return "set"
	case ParamMap:
		return "map"
	default:
		return fmt.Sprintf("ParamKind(%d)", int(k))
	}
}

// ParameterInfo describes a callable parameter or an injectable struct field.
type ParameterInfo struct {
	Type     reflect.Type
	Name     string       // Bean name hint from an inject tag; empty for function parameters
	Index    int          // Parameter index or field index
	Optional bool         // From inject:",optional"
	Kind     ParamKind    // How the parameter is satisfied
	ElemType reflect.Type // Bean type looked up for the parameter
}

// CallableInfo contains the analyzed shape of a function, bound method or struct source.
type CallableInfo struct {
	Type           reflect.Type
	Parameters     []ParameterInfo
	ReturnType     reflect.Type // nil for struct sources
	HasErrorReturn bool
	IsStruct       bool
}

// Analyzer performs reflection-based analysis of bean sources.
// It caches analysis results per type.
type Analyzer struct {
	mu    sync.RWMutex
	cache map[reflect.Type]*CallableInfo
}

// New creates a new Analyzer.
func New() *Analyzer {
	return &Analyzer{
		cache: make(map[reflect.Type]*CallableInfo),
	}
}

// AnalyzeFunc analyzes a function type: its parameters and its declared return type.
// The return must be a single value or a value followed by an error.
func (a *Analyzer) AnalyzeFunc(fnType reflect.Type) (*CallableInfo, error) {
	if fnType == nil || fnType.Kind() != reflect.Func {
		return nil, fmt.Errorf("expected a function type, got %v", fnType)
	}

	if cached, ok := a.lookup(fnType); ok {
		return cached, nil
	}

	returnType, hasErr, err := ReturnType(fnType)
	if err != nil {
		return nil, err
	}

	info := &CallableInfo{
		Type:           fnType,
		ReturnType:     returnType,
		HasErrorReturn: hasErr,
		Parameters:     Parameters(fnType),
	}

	return a.store(fnType, info), nil
}

// Parameters describes the parameters of a function type without looking at
// its results. Setter methods, which return nothing, are analyzed this way.
func Parameters(fnType reflect.Type) []ParameterInfo {
	params := make([]ParameterInfo, fnType.NumIn())
	for i := 0; i < fnType.NumIn(); i++ {
		paramType := fnType.In(i)
		kind, elem := classify(paramType)
		params[i] = ParameterInfo{
			Type:     paramType,
			Index:    i,
			Kind:     kind,
			ElemType: elem,
		}
	}
	return params
}

// AnalyzeStruct analyzes the inject-tagged exported fields of a struct type.
// Untagged fields are left alone.
func (a *Analyzer) AnalyzeStruct(structType reflect.Type) (*CallableInfo, error) {
	for structType != nil && structType.Kind() == reflect.Pointer {
		structType = structType.Elem()
	}

	if structType == nil || structType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("expected a struct type, got %v", structType)
	}

	if cached, ok := a.lookup(structType); ok {
		return cached, nil
	}

	info := &CallableInfo{
		Type:     structType,
		IsStruct: true,
	}

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)

		if !field.IsExported() {
			continue
		}

		tag, ok := ParseInjectTag(field.Tag)
		if !ok || tag.Ignore {
			continue
		}

		name := tag.Name
		if name == "" {
			name = Decapitalize(field.Name)
		}

		kind, elem := classify(field.Type)
		info.Parameters = append(info.Parameters, ParameterInfo{
			Type:     field.Type,
			Name:     name,
			Index:    i,
			Optional: tag.Optional,
			Kind:     kind,
			ElemType: elem,
		})
	}

	return a.store(structType, info), nil
}

// ReturnType extracts the declared bean type of a function type.
// It reports whether the function also returns an error.
func ReturnType(fnType reflect.Type) (reflect.Type, bool, error) {
	switch fnType.NumOut() {
	case 0:
		return nil, false, ErrNoReturnType
	case 1:
		out := fnType.Out(0)
		if out == errType {
			return nil, false, ErrNoReturnType
		}
		if err := validateReturnType(out); err != nil {
			return nil, false, err
		}
		return out, false, nil
	case 2:
		out := fnType.Out(0)
		if fnType.Out(1) != errType {
			return nil, false, fmt.Errorf("%w: second return value must be error, got %v", ErrReturnTypeNotAllowed, fnType.Out(1))
		}
		if out == errType {
			return nil, false, ErrNoReturnType
		}
		if err := validateReturnType(out); err != nil {
			return nil, false, err
		}
		return out, true, nil
	default:
		return nil, false, fmt.Errorf("%w: %d return values", ErrReturnTypeNotAllowed, fnType.NumOut())
	}
}

func validateReturnType(t reflect.Type) error {
	switch t.Kind() {
	case reflect.Interface:
		if t.NumMethod() == 0 {
			return fmt.Errorf("%w: %v", ErrReturnTypeNotAllowed, t)
		}
	case reflect.Chan, reflect.Func, reflect.UnsafePointer, reflect.Invalid:
		return fmt.Errorf("%w: %v", ErrReturnTypeNotAllowed, t)
	}
	return nil
}

// classify returns how a parameter type is satisfied and which bean type is looked up.
func classify(t reflect.Type) (ParamKind, reflect.Type) {
	switch t.Kind() {
	case reflect.Slice:
		return ParamSlice, t.Elem()
	case reflect.Map:
		if t.Elem() == emptyType {
			return ParamSet, t.Key()
		}
		if t.Key().Kind() == reflect.String {
			return ParamMap, t.Elem()
		}
	}
	return ParamScalar, t
}

// InjectTag is the parsed form of an `inject:"name,optional"` struct tag.
type InjectTag struct {
	Name     string
	Optional bool
	Ignore   bool
}

// ParseInjectTag parses the inject struct tag. The second result is false when the tag is absent.
func ParseInjectTag(tag reflect.StructTag) (InjectTag, bool) {
	val, ok := tag.Lookup("inject")
	if !ok {
		return InjectTag{}, false
	}

	if val == "-" {
		return InjectTag{Ignore: true}, true
	}

	parts := strings.Split(val, ",")
	info := InjectTag{Name: strings.TrimSpace(parts[0])}
	for _, opt := range parts[1:] {
		if strings.TrimSpace(opt) == "optional" {
			info.Optional = true
		}
	}

	return info, true
}

func (a *Analyzer) lookup(t reflect.Type) (*CallableInfo, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	info, ok := a.cache[t]
	return info, ok
}

func (a *Analyzer) store(t reflect.Type, info *CallableInfo) *CallableInfo {
	a.mu.Lock()
	a.cache[t] = info
	a.mu.Unlock()
	return info
}

// Decapitalize lower-cases the first letter of name, unless the first two
// letters are both upper case, in which case the name is returned unchanged.
// An untagged `inject:""` field named Repo therefore resolves the bean "repo".
func Decapitalize(name string) string {
	if name == "" {
		return name
	}

	first, size := utf8.DecodeRuneInString(name)
	if len(name) > size {
		second, _ := utf8.DecodeRuneInString(name[size:])
		if unicode.IsUpper(first) && unicode.IsUpper(second) {
			return name
		}
	}

	return string(unicode.ToLower(first)) + name[size:]
}
