package sprout

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"
)

var _ BeanDefinitionRegistryPostProcessor = (*ConfigurationClassPostProcessor)(nil)

// ConfigurationClassPostProcessor turns the Bean methods of configuration
// components into bean definitions.
//
// Expansion is a worklist over definitions: it starts with every definition
// whose source or declared type carries Configuration or Component, and each
// following pass looks only at the definitions the previous pass added.
// Running it again over an expanded registry adds nothing.
type ConfigurationClassPostProcessor struct {
	Annotations   *AnnotationStore
	NameGenerator BeanNameGenerator
	Conditions    *ConditionEvaluator
	Logger        *zap.Logger
}

// PostProcessBeanDefinitionRegistry implements BeanDefinitionRegistryPostProcessor.
func (p *ConfigurationClassPostProcessor) PostProcessBeanDefinitionRegistry(registry BeanDefinitionRegistry) error {
	_, err := p.ProcessConfigBeanDefinitions(registry)
	return err
}

// PostProcessBeanFactory implements BeanFactoryPostProcessor.
func (p *ConfigurationClassPostProcessor) PostProcessBeanFactory(*BeanFactory) error {
	return nil
}

// ProcessConfigBeanDefinitions expands registry and returns the number of
// definitions it registered.
func (p *ConfigurationClassPostProcessor) ProcessConfigBeanDefinitions(registry BeanDefinitionRegistry) (int, error) {
	candidates := p.configurationCandidates(registry, registry.GetBeanDefinitionNames())

	total := 0
	for pass := 1; len(candidates) > 0; pass++ {
		var added []string
		for _, name := range candidates {
			registered, err := p.expand(registry, name)
			if err != nil {
				return total, err
			}
			added = append(added, registered...)
		}

		p.logger().Debug("configuration expansion pass",
			zap.Int("pass", pass),
			zap.Int("candidates", len(candidates)),
			zap.Int("registered", len(added)))

		total += len(added)
		candidates = p.configurationCandidates(registry, added)
	}

	return total, nil
}

func (p *ConfigurationClassPostProcessor) configurationCandidates(registry BeanDefinitionRegistry, names []string) []string {
	var candidates []string
	for _, name := range names {
		def, err := registry.GetBeanDefinition(name)
		if err != nil {
			continue
		}
		if p.isConfiguration(def) {
			candidates = append(candidates, name)
		}
	}
	return candidates
}

func (p *ConfigurationClassPostProcessor) isConfiguration(def *BeanDefinition) bool {
	if isConfigurationShaped(p.store().Metadata(def.Source)) {
		return true
	}

	t, err := def.DeclaredType()
	if err != nil {
		return false
	}
	return isConfigurationShaped(p.store().Metadata(t))
}

// expand registers a definition for every Bean method of the owner bean.
func (p *ConfigurationClassPostProcessor) expand(registry BeanDefinitionRegistry, owner string) ([]string, error) {
	def, err := registry.GetBeanDefinition(owner)
	if err != nil {
		return nil, err
	}

	ownerType, err := def.DeclaredType()
	if err != nil {
		return nil, fmt.Errorf("configuration bean %q: %w", owner, err)
	}
	if ownerType.Kind() != reflect.Pointer && ownerType.Kind() != reflect.Interface {
		ownerType = reflect.PointerTo(ownerType)
	}

	var added []string
	for i := 0; i < ownerType.NumMethod(); i++ {
		ref := MethodRef{Type: ownerType, Name: ownerType.Method(i).Name}

		meta := p.store().Metadata(ref)
		bean, ok := annotationOf[Bean](meta)
		if !ok {
			continue
		}

		if p.Conditions != nil {
			skip, err := p.Conditions.ShouldSkip(meta)
			if err != nil {
				return added, err
			}
			if skip {
				p.logger().Debug("bean method skipped by condition",
					zap.String("owner", owner),
					zap.String("method", ref.Name))
				continue
			}
		}

		name := p.nameGenerator().GenerateBeanName(ref, meta)
		if existing, err := registry.GetBeanDefinition(name); err == nil &&
			existing.FactoryBeanName == owner && existing.FactoryMethodName == ref.Name {
			continue
		}

		methodDef := &BeanDefinition{
			Source:            ref,
			Scope:             bean.Scope,
			FactoryBeanName:   owner,
			FactoryMethodName: ref.Name,
		}
		if err := registry.RegisterBeanDefinition(name, methodDef); err != nil {
			return added, err
		}

		p.logger().Debug("registered bean method",
			zap.String("bean", name),
			zap.String("owner", owner),
			zap.String("method", ref.Name))
		added = append(added, name)
	}

	return added, nil
}

func (p *ConfigurationClassPostProcessor) nameGenerator() BeanNameGenerator {
	if p.NameGenerator == nil {
		return AnnotationBeanNameGenerator{}
	}
	return p.NameGenerator
}

func (p *ConfigurationClassPostProcessor) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

func (p *ConfigurationClassPostProcessor) store() *AnnotationStore {
	if p.Annotations == nil {
		return defaultStore
	}
	return p.Annotations
}
