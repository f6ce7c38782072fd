package reflection_test

import (
	"errors"
	"reflect"
	"testing"
	"unsafe"

	"github.com/junioryono/sprout/internal/reflection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Database struct {
	DSN string
}

type Logger interface {
	Log(msg string)
}

type Handler interface {
	Handle()
}

type UserService struct {
	DB       *Database            `inject:""`
	Log      Logger               `inject:"auditLogger,optional"`
	Handlers []Handler            `inject:""`
	Set      map[Handler]struct{} `inject:"handlerSet"`
	ByName   map[string]Handler   `inject:"handlerMap"`
	Skipped  *Database            `inject:"-"`
	Plain    string
	hidden   *Database `inject:""`
}

func NewUserService(db *Database, logger Logger) *UserService {
	return &UserService{DB: db, Log: logger}
}

func NewUserServiceWithError(db *Database) (*UserService, error) {
	if db == nil {
		return nil, errors.New("database is required")
	}
	return &UserService{DB: db}, nil
}

func TestAnalyzer_AnalyzeFunc(t *testing.T) {
	a := reflection.New()

	t.Run("single return", func(t *testing.T) {
		info, err := a.AnalyzeFunc(reflect.TypeOf(NewUserService))
		require.NoError(t, err)

		assert.Equal(t, reflect.TypeOf(&UserService{}), info.ReturnType)
		assert.False(t, info.HasErrorReturn)
		require.Len(t, info.Parameters, 2)
		assert.Equal(t, reflect.TypeOf(&Database{}), info.Parameters[0].Type)
		assert.Equal(t, reflection.ParamScalar, info.Parameters[0].Kind)
		assert.Equal(t, 1, info.Parameters[1].Index)
	})

	t.Run("error return", func(t *testing.T) {
		info, err := a.AnalyzeFunc(reflect.TypeOf(NewUserServiceWithError))
		require.NoError(t, err)
		assert.True(t, info.HasErrorReturn)
	})

	t.Run("collection parameters", func(t *testing.T) {
		fn := func(all []Handler, set map[Handler]struct{}, named map[string]Handler) *UserService { return nil }
		info, err := a.AnalyzeFunc(reflect.TypeOf(fn))
		require.NoError(t, err)

		handlerType := reflect.TypeOf((*Handler)(nil)).Elem()
		assert.Equal(t, reflection.ParamSlice, info.Parameters[0].Kind)
		assert.Equal(t, reflection.ParamSet, info.Parameters[1].Kind)
		assert.Equal(t, reflection.ParamMap, info.Parameters[2].Kind)
		for _, p := range info.Parameters {
			assert.Equal(t, handlerType, p.ElemType)
		}
	})

	t.Run("caches results", func(t *testing.T) {
		fresh := reflection.New()
		first, err := fresh.AnalyzeFunc(reflect.TypeOf(NewUserService))
		require.NoError(t, err)
		second, err := fresh.AnalyzeFunc(reflect.TypeOf(NewUserService))
		require.NoError(t, err)

		assert.Same(t, first, second)
	})

	t.Run("not a function", func(t *testing.T) {
		_, err := a.AnalyzeFunc(reflect.TypeOf(42))
		assert.Error(t, err)
	})
}

func TestReturnType(t *testing.T) {
	tests := []struct {
		name    string
		fn      any
		want    reflect.Type
		wantErr error
	}{
		{"pointer", func() *Database { return nil }, reflect.TypeOf(&Database{}), nil},
		{"interface", func() Logger { return nil }, reflect.TypeOf((*Logger)(nil)).Elem(), nil},
		{"with error", func() (*Database, error) { return nil, nil }, reflect.TypeOf(&Database{}), nil},
		{"no return", func() {}, nil, reflection.ErrNoReturnType},
		{"only error", func() error { return nil }, nil, reflection.ErrNoReturnType},
		{"any", func() any { return nil }, nil, reflection.ErrReturnTypeNotAllowed},
		{"channel", func() chan int { return nil }, nil, reflection.ErrReturnTypeNotAllowed},
		{"func", func() func() { return nil }, nil, reflection.ErrReturnTypeNotAllowed},
		{"unsafe pointer", func() unsafe.Pointer { return nil }, nil, reflection.ErrReturnTypeNotAllowed},
		{"second not error", func() (*Database, int) { return nil, 0 }, nil, reflection.ErrReturnTypeNotAllowed},
		{"three returns", func() (*Database, *Database, error) { return nil, nil, nil }, nil, reflection.ErrReturnTypeNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := reflection.ReturnType(reflect.TypeOf(tt.fn))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAnalyzer_AnalyzeStruct(t *testing.T) {
	a := reflection.New()

	info, err := a.AnalyzeStruct(reflect.TypeOf(&UserService{}))
	require.NoError(t, err)
	assert.True(t, info.IsStruct)
	require.Len(t, info.Parameters, 5)

	byName := make(map[string]reflection.ParameterInfo)
	for _, p := range info.Parameters {
		byName[p.Name] = p
	}

	assert.Contains(t, byName, "DB")
	assert.Equal(t, reflection.ParamScalar, byName["DB"].Kind)

	logger := byName["auditLogger"]
	assert.True(t, logger.Optional)

	assert.Equal(t, reflection.ParamSlice, byName["handlers"].Kind)
	assert.Equal(t, reflection.ParamSet, byName["handlerSet"].Kind)
	assert.Equal(t, reflection.ParamMap, byName["handlerMap"].Kind)

	_, err = a.AnalyzeStruct(reflect.TypeOf(3))
	assert.Error(t, err)
}

type Inventory struct {
	Ölquelle *Database `inject:""`
	URLs     []Handler `inject:""`
}

func TestDecapitalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"Repo", "repo"},
		{"repo", "repo"},
		{"DB", "DB"},
		{"X", "x"},
		{"Ölquelle", "ölquelle"},
		{"ÉTAT", "ÉTAT"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, reflection.Decapitalize(tt.in))
		})
	}

	t.Run("untagged field names", func(t *testing.T) {
		info, err := reflection.New().AnalyzeStruct(reflect.TypeOf(Inventory{}))
		require.NoError(t, err)
		require.Len(t, info.Parameters, 2)

		assert.Equal(t, "ölquelle", info.Parameters[0].Name)
		assert.Equal(t, "URLs", info.Parameters[1].Name)
	})
}

func TestParseInjectTag(t *testing.T) {
	tests := []struct {
		tag     reflect.StructTag
		want    reflection.InjectTag
		present bool
	}{
		{`inject:""`, reflection.InjectTag{}, true},
		{`inject:"repo"`, reflection.InjectTag{Name: "repo"}, true},
		{`inject:"repo,optional"`, reflection.InjectTag{Name: "repo", Optional: true}, true},
		{`inject:",optional"`, reflection.InjectTag{Optional: true}, true},
		{`inject:"-"`, reflection.InjectTag{Ignore: true}, true},
		{`json:"x"`, reflection.InjectTag{}, false},
	}

	for _, tt := range tests {
		got, ok := reflection.ParseInjectTag(tt.tag)
		assert.Equal(t, tt.present, ok, string(tt.tag))
		assert.Equal(t, tt.want, got, string(tt.tag))
	}
}
