package sprout

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"
)

var (
	_ BeanPostProcessor = (*AutowiredAnnotationBeanPostProcessor)(nil)
	_ BeanFactoryAware  = (*AutowiredAnnotationBeanPostProcessor)(nil)
)

// AutowiredAnnotationBeanPostProcessor calls the setter methods named by an
// Autowired annotation with resolved beans, before the bean's
// initialization callbacks. The annotation is looked up on the bean's type
// and on the source of its definition.
//
// Example:
//
//	var _ = sprout.Annotate((*ReportService)(nil),
//	    sprout.Component{},
//	    sprout.Autowired{Methods: []string{"SetMailer"}})
//
// Every BeanContext registers one.
type AutowiredAnnotationBeanPostProcessor struct {
	factory *BeanFactory
}

// SetBeanFactory implements BeanFactoryAware.
func (p *AutowiredAnnotationBeanPostProcessor) SetBeanFactory(factory *BeanFactory) {
	p.factory = factory
}

// PostProcessBeforeInitialization implements BeanPostProcessor.
func (p *AutowiredAnnotationBeanPostProcessor) PostProcessBeforeInitialization(bean any, name string) (any, error) {
	if p.factory == nil {
		return bean, nil
	}

	methods := p.autowiredMethods(bean, name)
	if len(methods) == 0 {
		return bean, nil
	}

	beanType := reflect.TypeOf(bean)
	value := reflect.ValueOf(bean)
	resolver := &constructorResolver{factory: p.factory, beanName: name}

	for _, m := range methods {
		method := value.MethodByName(m)
		if !method.IsValid() {
			return nil, fmt.Errorf("autowired method %s not found on %s", m, formatType(beanType))
		}

		meta := p.factory.annotations.Metadata(MethodRef{Type: beanType, Name: m})
		if err := resolver.invokeSetter(method, meta); err != nil {
			return nil, fmt.Errorf("autowired method %s: %w", m, err)
		}

		p.factory.logger.Debug("autowired method called",
			zap.String("bean", name),
			zap.String("method", m))
	}

	return bean, nil
}

// PostProcessAfterInitialization implements BeanPostProcessor.
func (p *AutowiredAnnotationBeanPostProcessor) PostProcessAfterInitialization(bean any, _ string) (any, error) {
	return bean, nil
}

func (p *AutowiredAnnotationBeanPostProcessor) autowiredMethods(bean any, name string) []string {
	if a, ok := annotationOf[Autowired](p.factory.annotations.Metadata(reflect.TypeOf(bean))); ok {
		return a.Methods
	}

	def, err := p.factory.GetBeanDefinition(name)
	if err != nil {
		return nil
	}

	if a, ok := annotationOf[Autowired](p.factory.annotations.Metadata(def.Source)); ok {
		return a.Methods
	}

	return nil
}
