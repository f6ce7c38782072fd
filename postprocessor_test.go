package sprout

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingProcessor records the beans it sees and the factories it is given.
type countingProcessor struct {
	tag          string
	rec          *recorder
	factoryCalls int
}

func (p *countingProcessor) SetBeanFactory(*BeanFactory) {
	p.factoryCalls++
}

func (p *countingProcessor) PostProcessBeforeInitialization(bean any, name string) (any, error) {
	p.rec.add(p.tag + " before " + name)
	return bean, nil
}

func (p *countingProcessor) PostProcessAfterInitialization(bean any, name string) (any, error) {
	p.rec.add(p.tag + " after " + name)
	return bean, nil
}

type wrappedGreeter struct {
	inner greeter
	tag   string
}

func (w *wrappedGreeter) Greet() string { return w.tag + "(" + w.inner.Greet() + ")" }

func wrapping(tag string) BeanPostProcessorFuncs {
	return BeanPostProcessorFuncs{
		AfterInitialization: func(bean any, name string) (any, error) {
			if g, ok := bean.(greeter); ok {
				return &wrappedGreeter{inner: g, tag: tag}, nil
			}
			return bean, nil
		},
	}
}

func TestBeanFactory_AddBeanPostProcessor(t *testing.T) {
	f := newTestFactory(t)
	rec := &recorder{}
	first := &countingProcessor{tag: "first", rec: rec}
	second := &countingProcessor{tag: "second", rec: rec}

	f.AddBeanPostProcessor(first)
	f.AddBeanPostProcessor(second)
	f.AddBeanPostProcessor(first)
	f.AddBeanPostProcessor(nil)

	assert.Equal(t, 2, f.BeanPostProcessorCount())
	assert.Equal(t, []BeanPostProcessor{second, first}, f.BeanPostProcessors())
	assert.Equal(t, 1, first.factoryCalls)
	assert.Equal(t, 1, second.factoryCalls)

	registerDefinitions(t, f, "testRepo", newTestRepo)
	_, err := f.GetBean("testRepo")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"second before testRepo",
		"first before testRepo",
		"second after testRepo",
		"first after testRepo",
	}, rec.events)
}

func TestBeanFactory_PostProcessorResults(t *testing.T) {
	t.Run("results accumulate", func(t *testing.T) {
		f := newTestFactory(t)
		f.AddBeanPostProcessor(wrapping("a"))
		f.AddBeanPostProcessor(wrapping("b"))
		registerDefinitions(t, f, "english", newEnglishGreeter)

		g, err := GetBean[greeter](f, "english")
		require.NoError(t, err)
		assert.Equal(t, "b(a(hello))", g.Greet())
	})

	t.Run("nil result keeps the current object", func(t *testing.T) {
		f := newTestFactory(t)
		f.AddBeanPostProcessor(BeanPostProcessorFuncs{
			BeforeInitialization: func(any, string) (any, error) { return nil, nil },
			AfterInitialization:  func(any, string) (any, error) { return (*testRepo)(nil), nil },
		})
		registerDefinitions(t, f, "testRepo", newTestRepo)

		repo, err := GetBean[*testRepo](f, "testRepo")
		require.NoError(t, err)
		require.NotNil(t, repo)
		assert.Equal(t, "repo", repo.ID)
	})

	t.Run("error fails creation", func(t *testing.T) {
		f := newTestFactory(t)
		f.AddBeanPostProcessor(BeanPostProcessorFuncs{
			AfterInitialization: func(any, string) (any, error) { return nil, errors.New("rejected") },
		})
		registerDefinitions(t, f, "testRepo", newTestRepo)

		_, err := f.GetBean("testRepo")
		var creation BeanCreationError
		require.ErrorAs(t, err, &creation)
		assert.Equal(t, "testRepo", creation.Name)
		assert.ErrorContains(t, err, "rejected")
		assert.False(t, f.ContainsSingleton("testRepo"))
	})
}

func TestBeanFactory_BeforeInstantiation(t *testing.T) {
	f := newTestFactory(t)
	rec := &recorder{}

	var seenType reflect.Type
	shortcut := &lifecycleBean{rec: rec}
	f.AddBeanPostProcessor(BeanPostProcessorFuncs{
		BeforeInstantiation: func(beanType reflect.Type, name string) (any, error) {
			if name != "lifecycle" {
				return nil, nil
			}
			seenType = beanType
			return shortcut, nil
		},
		BeforeInitialization: func(bean any, name string) (any, error) {
			rec.add("before " + name)
			return bean, nil
		},
		AfterInitialization: func(bean any, name string) (any, error) {
			rec.add("after " + name)
			return bean, nil
		},
	})
	registerDefinitions(t, f, "lifecycle", newLifecycleBean)

	bean, err := GetBean[*lifecycleBean](f, "lifecycle")
	require.NoError(t, err)

	assert.Same(t, shortcut, bean)
	assert.Equal(t, reflect.TypeOf(&lifecycleBean{}), seenType)
	// No constructor, aware callbacks, before hooks or init.
	assert.Equal(t, []string{"after lifecycle"}, rec.events)

	f.DestroySingletons()
	assert.Equal(t, []string{"after lifecycle"}, rec.events)
}
