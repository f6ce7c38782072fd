package sprout

import (
	"reflect"
	"runtime"
	"strings"
)

// MethodRef identifies a method declared on a type. It is the source of
// definitions produced by Bean methods of configuration components, and the
// target used to annotate such methods.
//
// Example:
//
//	var _ = sprout.Annotate(sprout.Method[*AppConfig]("DataSource"), sprout.Bean{Name: "db"})
type MethodRef struct {
	Type reflect.Type
	Name string
}

// Method returns a MethodRef for the named method of T.
func Method[T any](name string) MethodRef {
	return MethodRef{Type: reflect.TypeOf((*T)(nil)).Elem(), Name: name}
}

// String returns the stable identity of the method.
func (m MethodRef) String() string {
	return typeIdentity(m.Type) + "." + m.Name
}

// lookup finds the method on the pointer method set, which includes value receivers.
func (m MethodRef) lookup() (reflect.Method, bool) {
	if m.Type == nil {
		return reflect.Method{}, false
	}

	t := m.Type
	if t.Kind() != reflect.Pointer && t.Kind() != reflect.Interface {
		t = reflect.PointerTo(t)
	}

	return t.MethodByName(m.Name)
}

// identityOf returns the stable identity used to key annotation metadata:
// "import/path.Name" for types and functions, "import/path.Type.Method" for methods.
// Pointer and value forms of the same type share an identity.
func identityOf(target any) (string, bool) {
	switch v := target.(type) {
	case nil:
		return "", false
	case MethodRef:
		if v.Type == nil || v.Name == "" {
			return "", false
		}
		return v.String(), true
	case *MethodRef:
		if v == nil {
			return "", false
		}
		return identityOf(*v)
	case reflect.Type:
		if v == nil {
			return "", false
		}
		id := typeIdentity(v)
		return id, id != ""
	}

	val := reflect.ValueOf(target)
	if val.Kind() == reflect.Func {
		if val.IsNil() {
			return "", false
		}
		fn := runtime.FuncForPC(val.Pointer())
		if fn == nil {
			return "", false
		}
		return unescapeFuncName(fn.Name()), true
	}

	id := typeIdentity(val.Type())
	return id, id != ""
}

func typeIdentity(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t.Name() == "" {
		return t.String()
	}

	if t.PkgPath() == "" {
		return t.Name()
	}

	return t.PkgPath() + "." + t.Name()
}

// packagePathOf returns the import path of the package declaring target,
// or "" for predeclared and unnamed types.
func packagePathOf(target any) string {
	switch v := target.(type) {
	case nil:
		return ""
	case MethodRef:
		if v.Type == nil {
			return ""
		}
		return typePackage(v.Type)
	case *MethodRef:
		if v == nil {
			return ""
		}
		return packagePathOf(*v)
	case reflect.Type:
		if v == nil {
			return ""
		}
		return typePackage(v)
	}

	val := reflect.ValueOf(target)
	if val.Kind() == reflect.Func {
		if val.IsNil() {
			return ""
		}
		fn := runtime.FuncForPC(val.Pointer())
		if fn == nil {
			return ""
		}
		return funcPackage(fn.Name())
	}

	return typePackage(val.Type())
}

func typePackage(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.PkgPath()
}

// funcPackage extracts the import path from a symbol name as reported by the
// runtime. Dots in the last path element are escaped there as %2e, so the
// first dot after the last slash ends the import path.
func funcPackage(symbol string) string {
	slash := strings.LastIndex(symbol, "/")
	dot := strings.Index(symbol[slash+1:], ".")
	if dot < 0 {
		return unescapeFuncName(symbol)
	}
	return unescapeFuncName(symbol[:slash+1+dot])
}

// unescapeFuncName undoes the runtime's escaping of dots in the last element
// of an import path, so function identities match reflect.Type.PkgPath.
func unescapeFuncName(symbol string) string {
	return strings.ReplaceAll(symbol, "%2e", ".")
}

// shortName returns the last element of an identity: the type, function or method name.
func shortName(identity string) string {
	if i := strings.LastIndex(identity, "."); i >= 0 {
		return identity[i+1:]
	}
	return identity
}

// inPackage reports whether the import path p is pkg or one of its subpackages.
func inPackage(p, pkg string) bool {
	pkg = strings.TrimSuffix(strings.TrimSuffix(pkg, "/..."), "/")
	return p == pkg || strings.HasPrefix(p, pkg+"/")
}
