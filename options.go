package sprout

import (
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Option configures a BeanContext or a BeanFactory.
type Option interface {
	apply(*options)
}

// options holds context configuration.
type options struct {
	logger          *zap.Logger
	allowOverriding bool
	viper           *viper.Viper
	properties      map[string]any
	configFile      string
	envPrefix       string
	annotations     *AnnotationStore
	nameGenerator   BeanNameGenerator
}

// optionFunc adapts a function to Option.
type optionFunc func(*options)

func (f optionFunc) apply(opts *options) {
	f(opts)
}

func newOptions(opts []Option) *options {
	o := &options{
		logger:          zap.NewNop(),
		allowOverriding: true,
		annotations:     defaultStore,
		nameGenerator:   AnnotationBeanNameGenerator{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt.apply(o)
		}
	}

	return o
}

// WithLogger sets the logger used for registration, creation and teardown
// messages. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return optionFunc(func(opts *options) {
		if logger != nil {
			opts.logger = logger
		}
	})
}

// WithAllowBeanDefinitionOverriding controls whether registering a second
// definition under an existing name replaces the first. Defaults to true.
func WithAllowBeanDefinitionOverriding(allow bool) Option {
	return optionFunc(func(opts *options) {
		opts.allowOverriding = allow
	})
}

// WithEnvironment backs the context's Environment with v.
func WithEnvironment(v *viper.Viper) Option {
	return optionFunc(func(opts *options) {
		opts.viper = v
	})
}

// WithProperties sets property values in the context's Environment.
// Later calls add to earlier ones.
func WithProperties(props map[string]any) Option {
	return optionFunc(func(opts *options) {
		if opts.properties == nil {
			opts.properties = make(map[string]any, len(props))
		}
		for k, v := range props {
			opts.properties[k] = v
		}
	})
}

// WithConfigFile reads properties from a file when the context is created.
// The format follows the file extension (yaml, json, toml, ...).
func WithConfigFile(path string) Option {
	return optionFunc(func(opts *options) {
		opts.configFile = path
	})
}

// WithEnvPrefix makes environment variables with the given prefix visible as
// properties: "server.port" is read from PREFIX_SERVER_PORT.
func WithEnvPrefix(prefix string) Option {
	return optionFunc(func(opts *options) {
		opts.envPrefix = strings.TrimSuffix(prefix, "_")
	})
}

// WithAnnotationStore makes the context read annotations from s instead of
// the process-wide store.
func WithAnnotationStore(s *AnnotationStore) Option {
	return optionFunc(func(opts *options) {
		if s != nil {
			opts.annotations = s
		}
	})
}

// WithBeanNameGenerator replaces the AnnotationBeanNameGenerator.
func WithBeanNameGenerator(g BeanNameGenerator) Option {
	return optionFunc(func(opts *options) {
		if g != nil {
			opts.nameGenerator = g
		}
	})
}
