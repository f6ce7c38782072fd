package sprout

import (
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/junioryono/sprout/internal/reflection"
)

// BeanNameGenerator derives a bean name for a source.
// metadata is nil when the source carries no annotations.
type BeanNameGenerator interface {
	GenerateBeanName(source any, metadata *Metadata) string
}

// BeanNameGeneratorFunc adapts a function to BeanNameGenerator.
type BeanNameGeneratorFunc func(source any, metadata *Metadata) string

func (f BeanNameGeneratorFunc) GenerateBeanName(source any, metadata *Metadata) string {
	return f(source, metadata)
}

// AnnotationBeanNameGenerator uses the Name of a Component, Configuration or
// Bean annotation when set, and otherwise derives the name from the source:
//
//	type UserService struct{}        -> "userService"
//	func NewUserService() ...        -> "userService"
//	(*AppConfig).DataSource          -> "dataSource"
//	type URLResolver struct{}        -> "URLResolver"
type AnnotationBeanNameGenerator struct{}

func (AnnotationBeanNameGenerator) GenerateBeanName(source any, metadata *Metadata) string {
	if c, ok := annotationOf[Component](metadata); ok && c.Name != "" {
		return c.Name
	}
	if c, ok := annotationOf[Configuration](metadata); ok && c.Name != "" {
		return c.Name
	}
	if b, ok := annotationOf[Bean](metadata); ok && b.Name != "" {
		return b.Name
	}

	return DefaultBeanName(source)
}

// DefaultBeanName derives a bean name from a source without looking at annotations.
func DefaultBeanName(source any) string {
	switch v := source.(type) {
	case MethodRef:
		return Decapitalize(v.Name)
	case reflect.Type:
		return beanNameForType(v)
	}

	val := reflect.ValueOf(source)
	if val.Kind() == reflect.Func {
		id, ok := identityOf(source)
		if !ok {
			return ""
		}
		return Decapitalize(trimConstructorPrefix(shortName(id)))
	}

	if source == nil {
		return ""
	}

	return beanNameForType(val.Type())
}

// beanNameForType is also the default parameter name: a parameter of type
// *UserRepository looks for the bean "userRepository" first.
func beanNameForType(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	name := t.Name()
	if name == "" {
		return ""
	}

	// Generic instantiations carry their type arguments in the name.
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}

	return Decapitalize(name)
}

// trimConstructorPrefix turns NewUserService and newUserService into UserService.
func trimConstructorPrefix(name string) string {
	rest, ok := strings.CutPrefix(name, "New")
	if !ok {
		rest, ok = strings.CutPrefix(name, "new")
	}
	if !ok || rest == "" {
		return name
	}

	r, _ := utf8.DecodeRuneInString(rest)
	if !unicode.IsUpper(r) {
		return name
	}

	return rest
}

// Decapitalize lower-cases the first letter of name, unless the first two
// letters are both upper case, in which case the name is returned unchanged.
// It is the rule used for inject-tagged fields as well.
func Decapitalize(name string) string {
	return reflection.Decapitalize(name)
}
