package sprout

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// EnvironmentBeanName is the name the context registers its Environment under.
const EnvironmentBeanName = "environment"

// Environment is the property source of a context, backed by a viper instance.
// Keys are case-insensitive and use dots for nesting ("server.port").
type Environment struct {
	v *viper.Viper
}

// NewEnvironment wraps v. A nil v gives an empty environment.
func NewEnvironment(v *viper.Viper) *Environment {
	if v == nil {
		v = viper.New()
	}
	return &Environment{v: v}
}

func newEnvironment(o *options) (*Environment, error) {
	env := NewEnvironment(o.viper)

	if o.envPrefix != "" {
		env.v.SetEnvPrefix(o.envPrefix)
		env.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
		env.v.AutomaticEnv()
	}

	if o.configFile != "" {
		env.v.SetConfigFile(o.configFile)
		if err := env.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", o.configFile, err)
		}
	}

	for k, val := range o.properties {
		env.v.Set(k, val)
	}

	return env, nil
}

// Viper returns the backing viper instance.
func (e *Environment) Viper() *viper.Viper {
	return e.v
}

// ContainsProperty reports whether key has a value.
func (e *Environment) ContainsProperty(key string) bool {
	return e.v.IsSet(key)
}

// GetProperty returns the raw value of key.
func (e *Environment) GetProperty(key string) (any, bool) {
	if !e.v.IsSet(key) {
		return nil, false
	}
	return e.v.Get(key), true
}

// GetString returns key as a string, or def when it is not set.
func (e *Environment) GetString(key, def string) string {
	val, ok := e.GetProperty(key)
	if !ok {
		return def
	}
	return cast.ToString(val)
}

// GetInt returns key as an int, or def when it is not set or not numeric.
func (e *Environment) GetInt(key string, def int) int {
	val, ok := e.GetProperty(key)
	if !ok {
		return def
	}
	i, err := cast.ToIntE(val)
	if err != nil {
		return def
	}
	return i
}

// GetBool returns key as a bool, or def when it is not set or not boolean.
func (e *Environment) GetBool(key string, def bool) bool {
	val, ok := e.GetProperty(key)
	if !ok {
		return def
	}
	b, err := cast.ToBoolE(val)
	if err != nil {
		return def
	}
	return b
}

// SetProperty overrides the value of key.
func (e *Environment) SetProperty(key string, value any) {
	e.v.Set(key, value)
}
