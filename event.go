package sprout

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"go.uber.org/zap"
)

// listenerMethod is the method a listener declares to receive events.
// Its single parameter selects the events it accepts; a parameter of type any
// accepts every event.
const listenerMethod = "OnApplicationEvent"

// ContextRefreshedEvent is published when a context finishes refreshing.
type ContextRefreshedEvent struct {
	Context   *BeanContext
	Timestamp time.Time
}

// ContextClosedEvent is published when a refreshed context is closed,
// before its singletons are destroyed.
type ContextClosedEvent struct {
	Context   *BeanContext
	Timestamp time.Time
}

// ListenerFunc adapts a function to a listener accepting events of type E.
//
// Example:
//
//	ctx.AddApplicationListener(sprout.Listener(func(e sprout.ContextRefreshedEvent) {
//	    log.Println("ready")
//	}))
type ListenerFunc[E any] func(E)

// OnApplicationEvent delivers event to f.
func (f ListenerFunc[E]) OnApplicationEvent(event E) {
	f(event)
}

// Listener returns fn as a ListenerFunc.
func Listener[E any](fn func(E)) ListenerFunc[E] {
	return ListenerFunc[E](fn)
}

// EventPublisher delivers events synchronously to listener objects and
// listener beans, in the order they were added. Listener beans are resolved
// when an event is published; a bean that cannot be resolved is skipped.
type EventPublisher struct {
	factory   *BeanFactory
	listeners []listenerEntry
	logger    *zap.Logger
}

type listenerEntry struct {
	listener any
	beanName string
}

// NewEventPublisher creates a publisher resolving listener beans through factory.
func NewEventPublisher(factory *BeanFactory, logger *zap.Logger) *EventPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventPublisher{factory: factory, logger: logger}
}

// AddListener adds a listener object. It must have an OnApplicationEvent
// method with one parameter, returning nothing or an error.
func (p *EventPublisher) AddListener(listener any) error {
	if isNil(listener) {
		return ErrListenerNil
	}
	if _, ok := listenerMethodOf(reflect.TypeOf(listener)); !ok {
		return fmt.Errorf("%T: %w", listener, ErrListenerInvalid)
	}

	p.listeners = append(p.listeners, listenerEntry{listener: listener})
	return nil
}

// AddListenerBean adds the bean name as a listener.
func (p *EventPublisher) AddListenerBean(name string) {
	for _, l := range p.listeners {
		if l.beanName == name {
			return
		}
	}
	p.listeners = append(p.listeners, listenerEntry{beanName: name})
}

// ListenerCount returns the number of listener objects and listener beans.
func (p *EventPublisher) ListenerCount() int {
	return len(p.listeners)
}

// PublishEvent delivers event to every listener accepting its type.
// Every listener is called; their errors are joined.
func (p *EventPublisher) PublishEvent(event any) error {
	if event == nil {
		return ErrEventNil
	}

	eventType := reflect.TypeOf(event)
	var errs []error

	for _, entry := range p.listeners {
		listener := entry.listener
		if entry.beanName != "" {
			bean, err := p.resolveListenerBean(entry.beanName)
			if err != nil {
				p.logger.Debug("skipping unresolvable listener bean",
					zap.String("bean", entry.beanName),
					zap.Error(err))
				continue
			}
			listener = bean
		}

		if err := deliver(listener, event, eventType); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (p *EventPublisher) resolveListenerBean(name string) (any, error) {
	if p.factory == nil {
		return nil, ErrFactoryNil
	}

	bean, err := p.factory.GetBean(name)
	if err != nil {
		return nil, err
	}
	if isNil(bean) {
		return nil, NoSuchBeanDefinitionError{Name: name}
	}
	return bean, nil
}

func deliver(listener any, event any, eventType reflect.Type) error {
	if _, ok := listenerMethodOf(reflect.TypeOf(listener)); !ok {
		return nil
	}

	method := reflect.ValueOf(listener).MethodByName(listenerMethod)
	if !eventType.AssignableTo(method.Type().In(0)) {
		return nil
	}

	arg := reflect.New(method.Type().In(0)).Elem()
	arg.Set(reflect.ValueOf(event))

	out := method.Call([]reflect.Value{arg})
	if len(out) == 1 && !out[0].IsNil() {
		return fmt.Errorf("listener %T: %w", listener, out[0].Interface().(error))
	}
	return nil
}

// listenerMethodOf returns the OnApplicationEvent method of t when it has the listener shape.
func listenerMethodOf(t reflect.Type) (reflect.Method, bool) {
	if t == nil {
		return reflect.Method{}, false
	}

	m, ok := t.MethodByName(listenerMethod)
	if !ok {
		return reflect.Method{}, false
	}

	// Method types of concrete types include the receiver.
	in := m.Type.NumIn()
	if t.Kind() != reflect.Interface {
		in--
	}
	if in != 1 {
		return reflect.Method{}, false
	}

	switch m.Type.NumOut() {
	case 0:
		return m, true
	case 1:
		return m, m.Type.Out(0) == errorType
	default:
		return reflect.Method{}, false
	}
}
