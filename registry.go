package sprout

import (
	"slices"

	"go.uber.org/zap"
)

// BeanDefinitionRegistry stores bean definitions by name.
type BeanDefinitionRegistry interface {
	// RegisterBeanDefinition registers def under name. An existing definition
	// is replaced when overriding is allowed, otherwise BeanDefinitionStoreError is returned.
	RegisterBeanDefinition(name string, def *BeanDefinition) error

	// GetBeanDefinition returns the definition registered under name,
	// or NoSuchBeanDefinitionError.
	GetBeanDefinition(name string) (*BeanDefinition, error)

	// RemoveBeanDefinition removes the definition registered under name,
	// or returns NoSuchBeanDefinitionError.
	RemoveBeanDefinition(name string) error

	// ContainsBeanDefinition reports whether a definition is registered under name.
	ContainsBeanDefinition(name string) bool

	// GetBeanDefinitionNames returns all definition names in registration order.
	GetBeanDefinitionNames() []string

	// BeanDefinitionCount returns the number of registered definitions.
	BeanDefinitionCount() int
}

var _ BeanDefinitionRegistry = (*DefinitionRegistry)(nil)

// DefinitionRegistry is the default BeanDefinitionRegistry.
// Definition names keep their original registration position when overridden.
//
// DefinitionRegistry is NOT thread-safe.
type DefinitionRegistry struct {
	definitions     map[string]*BeanDefinition
	names           []string
	allowOverriding bool
	logger          *zap.Logger
}

// NewDefinitionRegistry creates an empty registry.
func NewDefinitionRegistry(allowOverriding bool, logger *zap.Logger) *DefinitionRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DefinitionRegistry{
		definitions:     make(map[string]*BeanDefinition),
		allowOverriding: allowOverriding,
		logger:          logger,
	}
}

// RegisterBeanDefinition implements BeanDefinitionRegistry.
func (r *DefinitionRegistry) RegisterBeanDefinition(name string, def *BeanDefinition) error {
	if name == "" {
		return BeanDefinitionStoreError{Name: name, Cause: ErrBeanNameEmpty}
	}

	if err := def.Validate(); err != nil {
		return BeanDefinitionStoreError{Name: name, Cause: err}
	}

	if existing, ok := r.definitions[name]; ok {
		if !r.allowOverriding {
			return BeanDefinitionStoreError{Name: name}
		}

		r.logger.Debug("overriding bean definition",
			zap.String("bean", name),
			zap.Stringer("existing", existing),
			zap.Stringer("replacement", def))
	} else {
		r.names = append(r.names, name)
	}

	r.definitions[name] = def
	return nil
}

// GetBeanDefinition implements BeanDefinitionRegistry.
func (r *DefinitionRegistry) GetBeanDefinition(name string) (*BeanDefinition, error) {
	def, ok := r.definitions[name]
	if !ok {
		return nil, NoSuchBeanDefinitionError{Name: name}
	}
	return def, nil
}

// RemoveBeanDefinition implements BeanDefinitionRegistry.
func (r *DefinitionRegistry) RemoveBeanDefinition(name string) error {
	if _, ok := r.definitions[name]; !ok {
		return NoSuchBeanDefinitionError{Name: name}
	}

	delete(r.definitions, name)
	r.names = slices.DeleteFunc(r.names, func(n string) bool { return n == name })
	return nil
}

// ContainsBeanDefinition implements BeanDefinitionRegistry.
func (r *DefinitionRegistry) ContainsBeanDefinition(name string) bool {
	_, ok := r.definitions[name]
	return ok
}

// GetBeanDefinitionNames implements BeanDefinitionRegistry.
func (r *DefinitionRegistry) GetBeanDefinitionNames() []string {
	return slices.Clone(r.names)
}

// BeanDefinitionCount implements BeanDefinitionRegistry.
func (r *DefinitionRegistry) BeanDefinitionCount() int {
	return len(r.names)
}

// IsAllowBeanDefinitionOverriding reports whether re-registering a name replaces the definition.
func (r *DefinitionRegistry) IsAllowBeanDefinitionOverriding() bool {
	return r.allowOverriding
}

// SetAllowBeanDefinitionOverriding changes the overriding policy.
func (r *DefinitionRegistry) SetAllowBeanDefinitionOverriding(allow bool) {
	r.allowOverriding = allow
}
