package sprout

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// ============================================================================
// Shared Test Types
// ============================================================================

// recorder collects lifecycle steps in order.
type recorder struct {
	events []string
}

func (r *recorder) add(event string) {
	r.events = append(r.events, event)
}

// testRepo is a dependency-free bean.
type testRepo struct {
	ID string
}

func newTestRepo() *testRepo {
	return &testRepo{ID: "repo"}
}

// testService depends on testRepo.
type testService struct {
	Repo *testRepo
}

func newTestService(repo *testRepo) *testService {
	return &testService{Repo: repo}
}

// greeter is implemented by several beans.
type greeter interface {
	Greet() string
}

type englishGreeter struct{}

func (*englishGreeter) Greet() string { return "hello" }

func newEnglishGreeter() *englishGreeter { return &englishGreeter{} }

type frenchGreeter struct{}

func (*frenchGreeter) Greet() string { return "bonjour" }

func newFrenchGreeter() *frenchGreeter { return &frenchGreeter{} }

// lifecycleBean implements every lifecycle capability.
type lifecycleBean struct {
	rec     *recorder
	name    string
	factory *BeanFactory
	initErr error
}

func newLifecycleBean(rec *recorder) *lifecycleBean {
	return &lifecycleBean{rec: rec}
}

func (b *lifecycleBean) SetBeanName(name string) {
	b.name = name
	b.rec.add("name")
}

func (b *lifecycleBean) SetBeanFactory(factory *BeanFactory) {
	b.factory = factory
	b.rec.add("factory")
}

func (b *lifecycleBean) AfterPropertiesSet() error {
	b.rec.add("init")
	return b.initErr
}

func (b *lifecycleBean) Close() error {
	b.rec.add("close")
	return nil
}

// disposableBean records its Close calls.
type disposableBean struct {
	Name     string
	rec      *recorder
	closeErr error
	closed   int
}

func (d *disposableBean) Close() error {
	d.closed++
	if d.rec != nil {
		d.rec.add("close " + d.Name)
	}
	return d.closeErr
}

// Cyclic constructors.
type cycleA struct{ B *cycleB }
type cycleB struct{ A *cycleA }

func newCycleA(b *cycleB) *cycleA { return &cycleA{B: b} }
func newCycleB(a *cycleA) *cycleB { return &cycleB{A: a} }

func newFailingRepo() (*testRepo, error) {
	return nil, errors.New("boom")
}

func newPanickingRepo() *testRepo {
	panic("constructor exploded")
}

// ============================================================================
// Test Helpers
// ============================================================================

// newTestContext creates a context reading annotations from its own store.
func newTestContext(t *testing.T, opts ...Option) (*BeanContext, *AnnotationStore) {
	t.Helper()

	store := NewAnnotationStore()
	opts = append([]Option{
		WithLogger(zaptest.NewLogger(t)),
		WithAnnotationStore(store),
	}, opts...)

	ctx, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctx.Close() })

	return ctx, store
}

// newTestFactory creates a bare factory with its own annotation store.
func newTestFactory(t *testing.T, opts ...Option) *BeanFactory {
	t.Helper()

	opts = append([]Option{
		WithLogger(zaptest.NewLogger(t)),
		WithAnnotationStore(NewAnnotationStore()),
	}, opts...)

	return NewBeanFactory(opts...)
}

// registerDefinitions registers a singleton definition per name and source.
func registerDefinitions(t *testing.T, registry BeanDefinitionRegistry, pairs ...any) {
	t.Helper()
	require.Zero(t, len(pairs)%2, "pairs must be name, source")

	for i := 0; i < len(pairs); i += 2 {
		require.NoError(t, registry.RegisterBeanDefinition(pairs[i].(string), NewBeanDefinition(pairs[i+1])))
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
