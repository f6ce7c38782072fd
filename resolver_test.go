package sprout

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greeterRegistry struct {
	all    []greeter
	set    map[greeter]struct{}
	byName map[string]greeter
}

func newGreeterRegistry(all []greeter, set map[greeter]struct{}, byName map[string]greeter) *greeterRegistry {
	return &greeterRegistry{all: all, set: set, byName: byName}
}

type greeting struct {
	text string
}

func newGreeting(g greeter) *greeting {
	return &greeting{text: g.Greet()}
}

type loudGreeter struct {
	inner greeter
}

func (l *loudGreeter) Greet() string { return l.inner.Greet() + "!" }

func newLoudGreeter(inner greeter) *loudGreeter {
	return &loudGreeter{inner: inner}
}

type greeterList struct {
	greeters []greeter
}

func newGreeterList(greeters ...greeter) *greeterList {
	return &greeterList{greeters: greeters}
}

type server struct {
	port int
}

func newServer(port int) *server {
	return &server{port: port}
}

type fieldInjected struct {
	Repo     *testRepo    `inject:""`
	Greeters []greeter    `inject:""`
	Missing  *testService `inject:",optional"`
	Named    greeter      `inject:"french"`
	Ignored  *testRepo
}

func TestConstructorResolver_Collections(t *testing.T) {
	t.Run("slice, set and map", func(t *testing.T) {
		f := newTestFactory(t)
		registerDefinitions(t, f,
			"english", newEnglishGreeter,
			"registry", newGreeterRegistry,
			"french", newFrenchGreeter,
		)

		reg, err := GetBean[*greeterRegistry](f, "registry")
		require.NoError(t, err)

		english := MustGetBean[*englishGreeter](f, "english")
		french := MustGetBean[*frenchGreeter](f, "french")

		assert.Equal(t, []greeter{english, french}, reg.all)
		assert.Len(t, reg.set, 2)
		assert.Contains(t, reg.set, greeter(english))
		assert.Contains(t, reg.set, greeter(french))
		assert.Equal(t, map[string]greeter{"english": english, "french": french}, reg.byName)

		assert.ElementsMatch(t, []string{"english", "french"}, f.DependenciesForBean("registry"))
	})

	t.Run("no matching beans gives empty collections", func(t *testing.T) {
		f := newTestFactory(t)
		registerDefinitions(t, f, "registry", newGreeterRegistry)

		reg, err := GetBean[*greeterRegistry](f, "registry")
		require.NoError(t, err)
		assert.NotNil(t, reg.all)
		assert.Empty(t, reg.all)
		assert.Empty(t, reg.set)
		assert.Empty(t, reg.byName)
	})

	t.Run("variadic parameter", func(t *testing.T) {
		f := newTestFactory(t)
		registerDefinitions(t, f,
			"english", newEnglishGreeter,
			"french", newFrenchGreeter,
			"list", newGreeterList,
		)

		list, err := GetBean[*greeterList](f, "list")
		require.NoError(t, err)
		assert.Len(t, list.greeters, 2)
	})
}

func TestConstructorResolver_Scalar(t *testing.T) {
	t.Run("ambiguous type", func(t *testing.T) {
		f := newTestFactory(t)
		registerDefinitions(t, f,
			"english", newEnglishGreeter,
			"french", newFrenchGreeter,
			"greeting", newGreeting,
		)

		_, err := f.GetBean("greeting")
		require.Error(t, err)

		var noUnique NoUniqueBeanDefinitionError
		require.ErrorAs(t, err, &noUnique)
		assert.Equal(t, []string{"english", "french"}, noUnique.Candidates)
	})

	t.Run("parameter named by Inject", func(t *testing.T) {
		f := newTestFactory(t)
		AnnotateIn(f.Annotations(), newGreeting, Params("french"))
		registerDefinitions(t, f,
			"english", newEnglishGreeter,
			"french", newFrenchGreeter,
			"greeting", newGreeting,
		)

		g, err := GetBean[*greeting](f, "greeting")
		require.NoError(t, err)
		assert.Equal(t, "bonjour", g.text)
	})

	t.Run("bean named after the parameter type", func(t *testing.T) {
		f := newTestFactory(t)
		registerDefinitions(t, f,
			"english", newEnglishGreeter,
			"greeter", newFrenchGreeter,
			"greeting", newGreeting,
		)

		g, err := GetBean[*greeting](f, "greeting")
		require.NoError(t, err)
		assert.Equal(t, "bonjour", g.text)
	})

	t.Run("named bean of the wrong type falls back to type lookup", func(t *testing.T) {
		f := newTestFactory(t)
		AnnotateIn(f.Annotations(), newGreeting, Params("testRepo"))
		registerDefinitions(t, f,
			"testRepo", newTestRepo,
			"english", newEnglishGreeter,
			"greeting", newGreeting,
		)

		g, err := GetBean[*greeting](f, "greeting")
		require.NoError(t, err)
		assert.Equal(t, "hello", g.text)
	})

	t.Run("bean is not its own candidate", func(t *testing.T) {
		f := newTestFactory(t)
		registerDefinitions(t, f,
			"english", newEnglishGreeter,
			"loud", newLoudGreeter,
		)

		loud, err := GetBean[*loudGreeter](f, "loud")
		require.NoError(t, err)
		assert.Equal(t, "hello!", loud.Greet())
	})

	t.Run("optional parameter with default", func(t *testing.T) {
		f := newTestFactory(t)
		AnnotateIn(f.Annotations(), newServer, Inject{Params: []Param{{Name: "port", Optional: true, Default: 8080}}})
		registerDefinitions(t, f, "server", newServer)

		s, err := GetBean[*server](f, "server")
		require.NoError(t, err)
		assert.Equal(t, 8080, s.port)
	})

	t.Run("optional parameter without default", func(t *testing.T) {
		f := newTestFactory(t)
		AnnotateIn(f.Annotations(), newTestService, Inject{Params: []Param{{Optional: true}}})
		registerDefinitions(t, f, "testService", newTestService)

		svc, err := GetBean[*testService](f, "testService")
		require.NoError(t, err)
		assert.Nil(t, svc.Repo)
	})

	t.Run("dependency failure surfaces", func(t *testing.T) {
		f := newTestFactory(t)
		registerDefinitions(t, f,
			"testService", newTestService,
			"testRepo", newFailingRepo,
		)

		_, err := f.GetBean("testService")
		require.Error(t, err)

		var unsatisfied UnsatisfiedDependencyError
		require.ErrorAs(t, err, &unsatisfied)
		assert.Equal(t, "testService", unsatisfied.Name)

		var creation BeanCreationError
		require.ErrorAs(t, unsatisfied.Cause, &creation)
		assert.Equal(t, "testRepo", creation.Name)
	})
}

func TestConstructorResolver_StructSource(t *testing.T) {
	f := newTestFactory(t)
	registerDefinitions(t, f,
		"testRepo", newTestRepo,
		"english", newEnglishGreeter,
		"french", newFrenchGreeter,
		"fieldInjected", (*fieldInjected)(nil),
	)

	bean, err := GetBean[*fieldInjected](f, "fieldInjected")
	require.NoError(t, err)

	assert.Same(t, MustGetBean[*testRepo](f, "testRepo"), bean.Repo)
	assert.Len(t, bean.Greeters, 2)
	assert.Nil(t, bean.Missing)
	assert.Equal(t, "bonjour", bean.Named.Greet())
	assert.Nil(t, bean.Ignored)
}

type mailer struct{}

type reportService struct {
	mailer *mailer
	repo   *testRepo
}

func (s *reportService) SetMailer(m *mailer) {
	s.mailer = m
}

func (s *reportService) SetRepo(r *testRepo) error {
	if r == nil {
		return errors.New("repo required")
	}
	s.repo = r
	return nil
}

func TestAutowiredAnnotationBeanPostProcessor(t *testing.T) {
	t.Run("setter injection", func(t *testing.T) {
		f := newTestFactory(t)
		f.AddBeanPostProcessor(&AutowiredAnnotationBeanPostProcessor{})
		AnnotateIn(f.Annotations(), (*reportService)(nil), Autowired{Methods: []string{"SetMailer", "SetRepo"}})
		registerDefinitions(t, f,
			"reportService", (*reportService)(nil),
			"mailer", &mailer{},
			"testRepo", newTestRepo,
		)

		svc, err := GetBean[*reportService](f, "reportService")
		require.NoError(t, err)
		assert.Same(t, MustGetBean[*mailer](f, "mailer"), svc.mailer)
		assert.Same(t, MustGetBean[*testRepo](f, "testRepo"), svc.repo)
	})

	t.Run("unknown method", func(t *testing.T) {
		f := newTestFactory(t)
		f.AddBeanPostProcessor(&AutowiredAnnotationBeanPostProcessor{})
		AnnotateIn(f.Annotations(), (*reportService)(nil), Autowired{Methods: []string{"SetNothing"}})
		registerDefinitions(t, f, "reportService", (*reportService)(nil))

		_, err := f.GetBean("reportService")
		require.Error(t, err)
		assert.ErrorContains(t, err, "SetNothing")
	})

	t.Run("unresolvable setter parameter", func(t *testing.T) {
		f := newTestFactory(t)
		f.AddBeanPostProcessor(&AutowiredAnnotationBeanPostProcessor{})
		AnnotateIn(f.Annotations(), (*reportService)(nil), Autowired{Methods: []string{"SetMailer"}})
		registerDefinitions(t, f, "reportService", (*reportService)(nil))

		_, err := f.GetBean("reportService")
		var unsatisfied UnsatisfiedDependencyError
		require.ErrorAs(t, err, &unsatisfied)
		assert.Equal(t, "reportService", unsatisfied.Name)
	})
}
