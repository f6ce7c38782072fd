package sprout

import (
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/dig"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/junioryono/sprout/internal/graph"
)

// State is the lifecycle state of a BeanContext.
type State int

const (
	// StateNew is a context accepting registrations, not yet refreshed.
	StateNew State = iota

	// StateRefreshed is a context whose singletons are created and wired.
	StateRefreshed

	// StateFailed is a context whose refresh failed; its singletons were destroyed.
	StateFailed

	// StateClosed is a closed context. It cannot be refreshed again.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateRefreshed:
		return "refreshed"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var (
	_ BeanProvider = (*BeanContext)(nil)

	beanFactoryPostProcessorType = reflect.TypeOf((*BeanFactoryPostProcessor)(nil)).Elem()
	beanPostProcessorType        = reflect.TypeOf((*BeanPostProcessor)(nil)).Elem()
)

// BeanContext orchestrates a BeanFactory: it registers sources, expands
// configuration components, runs post-processors and events, and manages
// the refresh and close lifecycle.
//
// A BeanContext is meant to be built and refreshed once at startup and
// closed at shutdown. It is NOT thread-safe.
//
// Example:
//
//	ctx, err := sprout.New(sprout.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer ctx.Close()
//
//	if err := ctx.Scan("github.com/acme/app/internal/..."); err != nil {
//	    return err
//	}
//	if err := ctx.Refresh(); err != nil {
//	    return err
//	}
//
//	svc, err := sprout.GetBeanOfType[*UserService](ctx)
type BeanContext struct {
	*BeanFactory

	id          string
	state       State
	startupTime time.Time

	environment   *Environment
	nameGenerator BeanNameGenerator
	conditions    *ConditionEvaluator
	publisher     *EventPublisher
	configuration *ConfigurationClassPostProcessor

	factoryPostProcessors []BeanFactoryPostProcessor

	container *dig.Container
	logger    *zap.Logger
}

// New creates a bean context in StateNew.
func New(opts ...Option) (*BeanContext, error) {
	o := newOptions(opts)

	env, err := newEnvironment(o)
	if err != nil {
		return nil, err
	}

	factory := newBeanFactory(o)

	c := &BeanContext{
		BeanFactory:   factory,
		id:            uuid.NewString(),
		state:         StateNew,
		environment:   env,
		nameGenerator: o.nameGenerator,
		publisher:     NewEventPublisher(factory, o.logger),
		logger:        o.logger,
	}

	c.conditions = NewConditionEvaluator(ConditionContext{
		Registry:    factory,
		BeanFactory: factory,
		Environment: env,
	})

	c.configuration = &ConfigurationClassPostProcessor{
		Annotations:   o.annotations,
		NameGenerator: o.nameGenerator,
		Conditions:    c.conditions,
		Logger:        o.logger,
	}

	factory.AddBeanPostProcessor(&AutowiredAnnotationBeanPostProcessor{})

	return c, nil
}

// ID returns the unique id of the context.
func (c *BeanContext) ID() string {
	return c.id
}

// State returns the current lifecycle state.
func (c *BeanContext) State() State {
	return c.state
}

// IsActive reports whether the context is refreshed and not closed.
func (c *BeanContext) IsActive() bool {
	return c.state == StateRefreshed
}

// StartupTime returns when the last successful refresh finished.
func (c *BeanContext) StartupTime() time.Time {
	return c.startupTime
}

// Environment returns the property source of the context.
func (c *BeanContext) Environment() *Environment {
	return c.environment
}

// GetBeanFactory returns the underlying factory.
func (c *BeanContext) GetBeanFactory() *BeanFactory {
	return c.BeanFactory
}

// ========================================
// Registration
// ========================================

// Register registers bean definitions for sources: constructor functions,
// struct types given as a reflect.Type or a typed nil pointer, or pre-built
// objects. Names come from the bean name generator, and sources whose
// Conditional does not match are left out.
//
// Example:
//
//	err := ctx.Register(NewUserRepository, NewUserService, (*AuditLog)(nil))
func (c *BeanContext) Register(sources ...any) error {
	for _, source := range sources {
		if _, err := c.register("", source); err != nil {
			return err
		}
	}
	return nil
}

// RegisterNamed registers a bean definition for source under name.
func (c *BeanContext) RegisterNamed(name string, source any) error {
	if name == "" {
		return BeanDefinitionStoreError{Cause: ErrBeanNameEmpty}
	}
	_, err := c.register(name, source)
	return err
}

// Scan registers every Component and Configuration source annotated in the
// given packages or their subpackages. A trailing "/..." is accepted.
// Sources are registered in the order they were annotated.
func (c *BeanContext) Scan(packages ...string) error {
	store := c.Annotations()

	var found []*Metadata
	for _, pkg := range packages {
		found = append(found, store.AnnotatedIn(pkg)...)
	}
	found = lo.UniqBy(found, func(m *Metadata) string { return m.Identity() })

	registered := 0
	for _, meta := range found {
		if _, isMethod := meta.Source.(MethodRef); isMethod || !isConfigurationShaped(meta) {
			continue
		}

		ok, err := c.register("", meta.Source)
		if err != nil {
			return err
		}
		if ok {
			registered++
		}
	}

	c.logger.Debug("scanned packages",
		zap.Strings("packages", packages),
		zap.Int("registered", registered))
	return nil
}

// register evaluates conditions and registers source, reporting whether it did.
func (c *BeanContext) register(name string, source any) (bool, error) {
	if err := c.assertUsable("register"); err != nil {
		return false, err
	}
	if source == nil {
		return false, BeanDefinitionStoreError{Name: name, Cause: ErrSourceNil}
	}

	meta := c.Annotations().Metadata(source)

	skip, err := c.conditions.ShouldSkip(meta)
	if err != nil {
		return false, BeanDefinitionStoreError{Name: name, Cause: err}
	}
	if skip {
		c.logger.Debug("source skipped by condition", zap.String("source", meta.Identity()))
		return false, nil
	}

	if name == "" {
		name = c.nameGenerator.GenerateBeanName(source, meta)
	}

	def := &BeanDefinition{Source: source, Scope: scopeOf(meta)}
	if err := c.RegisterBeanDefinition(name, def); err != nil {
		return false, err
	}

	c.logger.Debug("registered bean definition",
		zap.String("bean", name),
		zap.Stringer("source", def),
		zap.Stringer("scope", def.Scope))
	return true, nil
}

// AddBeanFactoryPostProcessor adds a factory post-processor run by Refresh
// before any bean-defined one.
func (c *BeanContext) AddBeanFactoryPostProcessor(p BeanFactoryPostProcessor) {
	if p != nil {
		c.factoryPostProcessors = append(c.factoryPostProcessors, p)
	}
}

// AddApplicationListener adds a listener object. See EventPublisher.AddListener.
func (c *BeanContext) AddApplicationListener(listener any) error {
	return c.publisher.AddListener(listener)
}

// PublishEvent publishes event to the context's listeners.
func (c *BeanContext) PublishEvent(event any) error {
	return c.publisher.PublishEvent(event)
}

// ========================================
// Lifecycle
// ========================================

// Refresh creates and wires every singleton. It can be called once, on a
// new context. On failure the singletons created so far are destroyed, the
// context moves to StateFailed and the error is returned.
func (c *BeanContext) Refresh() error {
	if c.state != StateNew {
		return IllegalStateError{Operation: "refresh", State: c.state}
	}

	start := time.Now()
	c.logger.Info("refreshing bean context",
		zap.String("id", c.id),
		zap.Int("definitions", c.BeanDefinitionCount()))

	if err := c.refresh(); err != nil {
		c.logger.Error("bean context refresh failed",
			zap.String("id", c.id),
			zap.Error(err))
		c.DestroySingletons()
		c.state = StateFailed
		return err
	}

	c.state = StateRefreshed
	c.startupTime = time.Now()

	if ce := c.logger.Check(zapcore.DebugLevel, "bean dependencies"); ce != nil {
		var deps strings.Builder
		_ = graph.NewVisualizer(c.dependencies).WriteAdjacencyList(&deps)
		ce.Write(zap.String("graph", deps.String()))
	}

	c.logger.Info("bean context refreshed",
		zap.String("id", c.id),
		zap.Int("singletons", c.SingletonCount()),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (c *BeanContext) refresh() error {
	if err := c.prepareBeanFactory(); err != nil {
		return err
	}

	if err := c.invokeBeanFactoryPostProcessors(); err != nil {
		return err
	}

	if err := c.configuration.PostProcessBeanDefinitionRegistry(c.BeanFactory); err != nil {
		return err
	}

	if err := c.registerBeanPostProcessors(); err != nil {
		return err
	}

	c.registerListeners()

	if err := c.PreInstantiateSingletons(); err != nil {
		return err
	}

	return c.publisher.PublishEvent(ContextRefreshedEvent{Context: c, Timestamp: time.Now()})
}

func (c *BeanContext) prepareBeanFactory() error {
	if c.ContainsSingleton(EnvironmentBeanName) {
		return nil
	}
	return c.RegisterSingleton(EnvironmentBeanName, c.environment)
}

// invokeBeanFactoryPostProcessors runs the registry phase of programmatic and
// bean-defined processors, then the factory phase of all of them. Bean-defined
// processors registered by a registry phase are picked up in turn.
func (c *BeanContext) invokeBeanFactoryPostProcessors() error {
	processors := make([]BeanFactoryPostProcessor, 0, len(c.factoryPostProcessors))

	for _, p := range c.factoryPostProcessors {
		if rp, ok := p.(BeanDefinitionRegistryPostProcessor); ok {
			if err := rp.PostProcessBeanDefinitionRegistry(c.BeanFactory); err != nil {
				return err
			}
		}
		processors = append(processors, p)
	}

	processed := make(map[string]bool)
	for {
		names, err := c.BeanFactory.GetBeanNamesForType(beanFactoryPostProcessorType)
		if err != nil {
			return err
		}

		pending := lo.Reject(names, func(n string, _ int) bool { return processed[n] })
		if len(pending) == 0 {
			break
		}

		for _, name := range pending {
			processed[name] = true

			bean, err := c.BeanFactory.GetBean(name)
			if err != nil {
				return err
			}

			p, ok := bean.(BeanFactoryPostProcessor)
			if !ok {
				continue
			}

			if rp, ok := p.(BeanDefinitionRegistryPostProcessor); ok {
				if err := rp.PostProcessBeanDefinitionRegistry(c.BeanFactory); err != nil {
					return err
				}
			}
			processors = append(processors, p)
		}
	}

	for _, p := range processors {
		if err := p.PostProcessBeanFactory(c.BeanFactory); err != nil {
			return err
		}
	}

	return nil
}

func (c *BeanContext) registerBeanPostProcessors() error {
	names, err := c.BeanFactory.GetBeanNamesForType(beanPostProcessorType)
	if err != nil {
		return err
	}

	for _, name := range names {
		bean, err := c.BeanFactory.GetBean(name)
		if err != nil {
			return err
		}
		if p, ok := bean.(BeanPostProcessor); ok {
			c.addBeanPostProcessor(p, !c.ContainsBeanDefinition(name))
			c.logger.Debug("registered bean post-processor", zap.String("bean", name))
		}
	}

	return nil
}

// registerListeners adds every bean whose type declares OnApplicationEvent.
func (c *BeanContext) registerListeners() {
	for _, name := range c.GetBeanDefinitionNames() {
		t, err := c.BeanFactory.GetType(name)
		if err != nil {
			continue
		}
		if _, ok := listenerMethodOf(t); ok {
			c.publisher.AddListenerBean(name)
		}
	}
}

// Close publishes a ContextClosedEvent if the context was refreshed, then
// destroys every singleton. Listener errors are logged. Closing twice is a no-op.
func (c *BeanContext) Close() error {
	if c.state == StateClosed {
		return nil
	}

	c.logger.Info("closing bean context", zap.String("id", c.id))

	if c.state == StateRefreshed {
		if err := c.publisher.PublishEvent(ContextClosedEvent{Context: c, Timestamp: time.Now()}); err != nil {
			c.logger.Warn("context closed listener failed", zap.Error(err))
		}
	}

	c.DestroySingletons()
	c.container = nil
	c.state = StateClosed
	return nil
}

func (c *BeanContext) assertUsable(operation string) error {
	switch c.state {
	case StateClosed, StateFailed:
		return IllegalStateError{Operation: operation, State: c.state}
	default:
		return nil
	}
}

// ========================================
// Lookups
// ========================================

// GetBean is BeanFactory.GetBean, failing on a closed or failed context.
func (c *BeanContext) GetBean(name string) (any, error) {
	if err := c.assertUsable("get bean " + name); err != nil {
		return nil, err
	}
	return c.BeanFactory.GetBean(name)
}

// GetBeanWithType is BeanFactory.GetBeanWithType, failing on a closed or failed context.
func (c *BeanContext) GetBeanWithType(name string, requiredType reflect.Type) (any, error) {
	if err := c.assertUsable("get bean " + name); err != nil {
		return nil, err
	}
	return c.BeanFactory.GetBeanWithType(name, requiredType)
}

// GetBeanOfType is BeanFactory.GetBeanOfType, failing on a closed or failed context.
func (c *BeanContext) GetBeanOfType(t reflect.Type) (any, error) {
	if err := c.assertUsable("get bean of type " + formatType(t)); err != nil {
		return nil, err
	}
	return c.BeanFactory.GetBeanOfType(t)
}

// GetBeansOfType is BeanFactory.GetBeansOfType, failing on a closed or failed context.
func (c *BeanContext) GetBeansOfType(t reflect.Type) (map[string]any, error) {
	if err := c.assertUsable("get beans of type " + formatType(t)); err != nil {
		return nil, err
	}
	return c.BeanFactory.GetBeansOfType(t)
}

// WriteDependencyGraph writes the recorded bean dependencies in Graphviz DOT format.
func (c *BeanContext) WriteDependencyGraph(w io.Writer) error {
	return graph.NewVisualizer(c.dependencies).WriteDOT(w)
}
