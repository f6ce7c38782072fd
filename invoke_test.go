package sprout

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/dig"
)

type greeterParams struct {
	dig.In

	English *englishGreeter `name:"english"`
	German  *englishGreeter `name:"german"`
	French  *frenchGreeter  `optional:"true"`
}

// faultReport is a bean that happens to satisfy the error interface.
type faultReport struct {
	Reason string
}

func (r *faultReport) Error() string { return r.Reason }

func TestBeanContext_Invoke(t *testing.T) {
	t.Run("requires a refreshed context", func(t *testing.T) {
		ctx, _ := newTestContext(t)

		err := ctx.Invoke(func(*testRepo) {})
		var illegal IllegalStateError
		require.ErrorAs(t, err, &illegal)
		assert.Equal(t, StateNew, illegal.State)
	})

	t.Run("unique types", func(t *testing.T) {
		ctx, _ := newTestContext(t)
		require.NoError(t, ctx.Register(newTestRepo, newTestService))
		require.NoError(t, ctx.Refresh())

		called := false
		err := ctx.Invoke(func(repo *testRepo, svc *testService, env *Environment) {
			called = true
			assert.Same(t, repo, svc.Repo)
			assert.Same(t, ctx.Environment(), env)
		})
		require.NoError(t, err)
		assert.True(t, called)
	})

	t.Run("named beans", func(t *testing.T) {
		ctx, _ := newTestContext(t)
		german := &englishGreeter{}
		require.NoError(t, ctx.RegisterNamed("english", newEnglishGreeter))
		require.NoError(t, ctx.RegisterNamed("german", german))
		require.NoError(t, ctx.Refresh())

		err := ctx.Invoke(func(p greeterParams) {
			assert.Same(t, MustGetBean[*englishGreeter](ctx, "english"), p.English)
			assert.Same(t, german, p.German)
			assert.Nil(t, p.French)
		})
		require.NoError(t, err)

		// Two beans share the type, so there is no unnamed provider.
		err = ctx.Invoke(func(*englishGreeter) {})
		assert.Error(t, err)
	})

	t.Run("function error is returned", func(t *testing.T) {
		ctx, _ := newTestContext(t)
		require.NoError(t, ctx.Register(newTestRepo))
		require.NoError(t, ctx.Refresh())

		boom := errors.New("boom")
		err := ctx.Invoke(func(*testRepo) error { return boom })
		assert.ErrorIs(t, err, boom)
	})

	t.Run("beans implementing error are left out", func(t *testing.T) {
		ctx, _ := newTestContext(t)
		require.NoError(t, ctx.RegisterNamed("faultReport", &faultReport{Reason: "disk"}))
		require.NoError(t, ctx.Register(newTestRepo))
		require.NoError(t, ctx.Refresh())

		called := false
		err := ctx.Invoke(func(repo *testRepo) {
			called = true
			assert.NotNil(t, repo)
		})
		require.NoError(t, err)
		assert.True(t, called)

		assert.Error(t, ctx.Invoke(func(*faultReport) {}))

		report, err := GetBean[*faultReport](ctx, "faultReport")
		require.NoError(t, err)
		assert.Equal(t, "disk", report.Reason)
	})

	t.Run("closed context", func(t *testing.T) {
		ctx, _ := newTestContext(t)
		require.NoError(t, ctx.Refresh())
		require.NoError(t, ctx.Close())

		assert.ErrorIs(t, ctx.Invoke(func() {}), ErrContextClosed)
	})
}
