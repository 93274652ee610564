package jsc_test

import (
	"strings"
	"testing"

	"github.com/buke/jsc-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sandboxConfig = `
name: sandbox
gc_on_close: true
globals:
  limits:
    depth: 3
    tags: [a, b]
  greeting: hello
prelude:
  - url: prelude.js
    source: |
      function greet(who) { return greeting + " " + who }
  - source: var depthTimesTwo = limits.depth * 2
`

func TestParseConfig(t *testing.T) {
	cfg, err := jsc.ParseConfig([]byte(sandboxConfig))
	require.NoError(t, err)
	assert.Equal(t, "sandbox", cfg.Name)
	assert.True(t, cfg.GarbageCollectOnClose)
	assert.Len(t, cfg.Globals, 2)
	require.Len(t, cfg.Prelude, 2)
	assert.Equal(t, "prelude.js", cfg.Prelude[0].URL)

	empty, err := jsc.LoadConfig(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, empty.Name)

	_, err = jsc.ParseConfig([]byte("unknown_key: 1"))
	assert.ErrorIs(t, err, jsc.ErrInvalidConfig)

	_, err = jsc.ParseConfig([]byte("prelude:\n  - source: x\n    line: -2\n"))
	assert.ErrorIs(t, err, jsc.ErrInvalidConfig)

	_, err = jsc.ParseConfig([]byte("name: [unterminated"))
	assert.ErrorIs(t, err, jsc.ErrInvalidConfig)
}

func TestNewContextFromConfig(t *testing.T) {
	cfg, err := jsc.ParseConfig([]byte(sandboxConfig))
	require.NoError(t, err)

	ctx, err := jsc.NewContextFromConfig(cfg)
	require.NoError(t, err)
	defer ctx.Close()

	name, ok := ctx.Name()
	assert.True(t, ok)
	assert.Equal(t, "sandbox", name)

	assert.Equal(t, "hello world", eval(t, ctx, "greet('world')").String())
	assert.Equal(t, 6.0, number(t, eval(t, ctx, "depthTimesTwo")))
	assert.Equal(t, "b", eval(t, ctx, "limits.tags[1]").String())

	t.Run("OptionsOverride", func(t *testing.T) {
		ctx, err := jsc.NewContextFromConfig(cfg, jsc.WithName("override"))
		require.NoError(t, err)
		defer ctx.Close()
		name, _ := ctx.Name()
		assert.Equal(t, "override", name)
	})

	t.Run("PreludeFailure", func(t *testing.T) {
		bad := &jsc.Config{Prelude: []jsc.Script{{URL: "bad.js", Source: "throw new Error('prelude')"}}}
		_, err := jsc.NewContextFromConfig(bad)
		require.Error(t, err)
		assert.Equal(t, "Error: prelude", err.Error())
	})
}

func TestNewContextFromConfigGlobalError(t *testing.T) {
	cfg := &jsc.Config{Globals: map[string]any{"bad": make(chan int)}}
	_, err := jsc.NewContextFromConfig(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, jsc.ErrUnsupportedType)
	var exc *jsc.Exception
	require.ErrorAs(t, err, &exc)
	assert.True(t, exc.Value().IsZero())
}
