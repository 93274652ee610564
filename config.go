package jsc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned for configuration documents that do not
// describe a usable context.
var ErrInvalidConfig = errors.New("invalid context configuration")

// Config describes a context declaratively:
//
//	name: sandbox
//	gc_on_close: true
//	globals:
//	  limits: {depth: 3}
//	prelude:
//	  - url: prelude.js
//	    source: |
//	      function greet(n) { return "hi " + n }
type Config struct {
	Name                  string         `yaml:"name"`
	GarbageCollectOnClose bool           `yaml:"gc_on_close"`
	Globals               map[string]any `yaml:"globals"`
	Prelude               []Script       `yaml:"prelude"`
}

// Script is a prelude script evaluated when the context is created.
type Script struct {
	URL    string `yaml:"url"`
	Line   int    `yaml:"line"`
	Source string `yaml:"source"`
}

// ParseConfig decodes a YAML configuration. Unknown keys are rejected.
func ParseConfig(data []byte) (*Config, error) {
	return LoadConfig(bytes.NewReader(data))
}

// LoadConfig decodes a YAML configuration from r. An empty document yields an
// empty Config.
func LoadConfig(r io.Reader) (*Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration without creating a context.
func (c *Config) Validate() error {
	for name := range c.Globals {
		if name == "" {
			return fmt.Errorf("%w: empty global name", ErrInvalidConfig)
		}
	}
	for i, s := range c.Prelude {
		if s.Line < 0 {
			return fmt.Errorf("%w: prelude %d: negative line %d", ErrInvalidConfig, i, s.Line)
		}
	}
	return nil
}

// Options converts the configuration into context options.
func (c *Config) Options() []ContextOption {
	opts := []ContextOption{WithGarbageCollectOnClose(c.GarbageCollectOnClose)}
	if c.Name != "" {
		opts = append(opts, WithName(c.Name))
	}
	return opts
}

// NewContextFromConfig creates a context, defines the configured globals and
// runs the prelude scripts in order. opts are applied after the
// configuration's own options. The context is closed again on failure and the
// returned exception keeps only its text.
func NewContextFromConfig(cfg *Config, opts ...ContextOption) (*Context, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctx, err := NewContext(append(cfg.Options(), opts...)...)
	if err != nil {
		return nil, err
	}
	if err := cfg.apply(ctx); err != nil {
		err = detach(err)
		ctx.Close()
		return nil, err
	}

	Logger().Debug("jsc: context configured",
		zap.String("name", cfg.Name),
		zap.Int("globals", len(cfg.Globals)),
		zap.Int("prelude", len(cfg.Prelude)))
	return ctx, nil
}

func (c *Config) apply(ctx *Context) error {
	global, err := ctx.GlobalObject()
	if err != nil {
		return err
	}

	names := make([]string, 0, len(c.Globals))
	for name := range c.Globals {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		v, err := ctx.Marshal(c.Globals[name])
		if err != nil {
			return err
		}
		if err := global.Set(name, v); err != nil {
			return err
		}
	}

	for _, s := range c.Prelude {
		opts := []EvalOption{EvalSourceURL(s.URL)}
		if s.Line > 0 {
			opts = append(opts, EvalStartingLine(s.Line))
		}
		if _, err := ctx.Evaluate(s.Source, opts...); err != nil {
			return err
		}
	}
	return nil
}
