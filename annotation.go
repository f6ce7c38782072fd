package sprout

import (
	"fmt"
	"reflect"
	"slices"
	"sync"
)

// Metadata is the set of annotations attached to one source.
// Each annotation kind (its dynamic type) appears at most once.
//
// Metadata is keyed by the exact identity of its source: a struct embedding an
// annotated struct does not see the embedded type's annotations.
type Metadata struct {
	// Source is the annotated object itself: a function, a type or a MethodRef.
	Source any

	identity    string
	pkg         string
	annotations map[reflect.Type]any
	order       []reflect.Type
}

// Identity returns the stable identity of the annotated source.
func (m *Metadata) Identity() string {
	if m == nil {
		return ""
	}
	return m.identity
}

// Get returns the annotation of the given kind.
func (m *Metadata) Get(kind reflect.Type) (any, bool) {
	if m == nil || kind == nil {
		return nil, false
	}
	a, ok := m.annotations[kind]
	return a, ok
}

// Has reports whether an annotation of the given kind is present.
func (m *Metadata) Has(kind reflect.Type) bool {
	_, ok := m.Get(kind)
	return ok
}

// All returns every annotation in the order their kinds were first added.
func (m *Metadata) All() []any {
	if m == nil {
		return nil
	}

	all := make([]any, 0, len(m.order))
	for _, kind := range m.order {
		all = append(all, m.annotations[kind])
	}
	return all
}

func (m *Metadata) put(annotation any) {
	kind := reflect.TypeOf(annotation)
	if _, exists := m.annotations[kind]; !exists {
		m.order = append(m.order, kind)
	}
	m.annotations[kind] = annotation
}

// AnnotationStore holds annotation metadata for any number of sources.
//
// Components usually annotate themselves from package init functions, so the
// store is safe for concurrent use. Most programs use the process-wide store
// behind AddAnnotation and Annotate.
type AnnotationStore struct {
	mu      sync.RWMutex
	entries map[string]*Metadata
	order   []string
}

// NewAnnotationStore creates an empty annotation store.
func NewAnnotationStore() *AnnotationStore {
	return &AnnotationStore{
		entries: make(map[string]*Metadata),
	}
}

// Add attaches an annotation to target, replacing any annotation of the same kind.
func (s *AnnotationStore) Add(target any, annotation any) error {
	if annotation == nil {
		return fmt.Errorf("annotation for %v cannot be nil", target)
	}

	id, ok := identityOf(target)
	if !ok {
		if target == nil {
			return ErrSourceNil
		}
		return ErrUnidentifiableSource
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	meta, exists := s.entries[id]
	if !exists {
		meta = &Metadata{
			Source:      target,
			identity:    id,
			pkg:         packagePathOf(target),
			annotations: make(map[reflect.Type]any),
		}
		s.entries[id] = meta
		s.order = append(s.order, id)
	}

	meta.put(annotation)
	return nil
}

// Metadata returns the metadata attached to target, or nil.
func (s *AnnotationStore) Metadata(target any) *Metadata {
	id, ok := identityOf(target)
	if !ok {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[id]
}

// Get returns the annotation of the given kind attached to target.
func (s *AnnotationStore) Get(target any, kind reflect.Type) (any, bool) {
	return s.Metadata(target).Get(kind)
}

// GetAll returns every annotation attached to target.
func (s *AnnotationStore) GetAll(target any) []any {
	return s.Metadata(target).All()
}

// IsAnnotated reports whether target carries an annotation of the given kind.
func (s *AnnotationStore) IsAnnotated(target any, kind reflect.Type) bool {
	return s.Metadata(target).Has(kind)
}

// AnnotatedIn returns the metadata of every source declared in pkg or one of
// its subpackages, in the order the sources were first annotated.
func (s *AnnotationStore) AnnotatedIn(pkg string) []*Metadata {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Metadata
	for _, id := range s.order {
		if inPackage(s.entries[id].pkg, pkg) {
			result = append(result, s.entries[id])
		}
	}
	return result
}

// Len returns the number of annotated sources.
func (s *AnnotationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Identities returns the identities of all annotated sources.
func (s *AnnotationStore) Identities() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order)
}

// FindAnnotation returns the annotation of kind A attached to target.
//
// Example:
//
//	if c, ok := sprout.FindAnnotation[sprout.Component](store, NewUserService); ok {
//	    fmt.Println(c.Name)
//	}
func FindAnnotation[A any](s *AnnotationStore, target any) (A, bool) {
	var zero A

	if s == nil {
		return zero, false
	}

	a, ok := s.Get(target, reflect.TypeOf((*A)(nil)).Elem())
	if !ok {
		return zero, false
	}

	typed, ok := a.(A)
	return typed, ok
}

// annotationOf is FindAnnotation over a Metadata value.
func annotationOf[A any](m *Metadata) (A, bool) {
	var zero A

	a, ok := m.Get(reflect.TypeOf((*A)(nil)).Elem())
	if !ok {
		return zero, false
	}

	typed, ok := a.(A)
	return typed, ok
}

// ========================================
// Process-wide store
// ========================================

var defaultStore = NewAnnotationStore()

// DefaultAnnotationStore returns the process-wide annotation store used by
// AddAnnotation, Annotate and contexts created without WithAnnotationStore.
func DefaultAnnotationStore() *AnnotationStore {
	return defaultStore
}

// AddAnnotation attaches an annotation to target in the process-wide store.
func AddAnnotation(target any, annotation any) error {
	return defaultStore.Add(target, annotation)
}

// GetAnnotation returns the annotation of the given kind attached to target.
func GetAnnotation(target any, kind reflect.Type) (any, bool) {
	return defaultStore.Get(target, kind)
}

// GetAnnotations returns every annotation attached to target.
func GetAnnotations(target any) []any {
	return defaultStore.GetAll(target)
}

// IsAnnotated reports whether target carries an annotation of the given kind.
func IsAnnotated(target any, kind reflect.Type) bool {
	return defaultStore.IsAnnotated(target, kind)
}

// Annotation is FindAnnotation over the process-wide store.
func Annotation[A any](target any) (A, bool) {
	return FindAnnotation[A](defaultStore, target)
}

// Annotate attaches annotations to target in the process-wide store and
// returns target, so components can declare themselves at package level.
// It panics when target has no stable identity.
//
// Example:
//
//	var _ = sprout.Annotate(NewUserService, sprout.Component{})
func Annotate(target any, annotations ...any) any {
	return AnnotateIn(defaultStore, target, annotations...)
}

// AnnotateIn is Annotate for an explicit store.
func AnnotateIn(s *AnnotationStore, target any, annotations ...any) any {
	for _, a := range annotations {
		if err := s.Add(target, a); err != nil {
			panic(fmt.Sprintf("sprout: cannot annotate %v: %v", target, err))
		}
	}
	return target
}
