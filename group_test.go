package jsc_test

import (
	"testing"

	"github.com/buke/jsc-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextGroup(t *testing.T) {
	group := jsc.NewContextGroup()
	defer group.Release()

	a, err := group.NewContext()
	require.NoError(t, err)
	defer a.Close()
	b, err := jsc.NewContext(jsc.WithGroup(group))
	require.NoError(t, err)
	defer b.Close()

	ga := a.Group()
	defer ga.Release()
	gb := b.Group()
	defer gb.Release()
	assert.True(t, ga.Same(gb))
	assert.True(t, ga.Same(group))

	alone := newContext(t)
	other := alone.Group()
	defer other.Release()
	assert.False(t, other.Same(group))

	// values may move between contexts of one group
	obj, err := a.Evaluate("({shared: 41})")
	require.NoError(t, err)
	g, err := b.GlobalObject()
	require.NoError(t, err)
	require.NoError(t, g.Set("fromA", obj))
	v, err := b.Evaluate("fromA.shared + 1")
	require.NoError(t, err)
	assert.Equal(t, 42.0, number(t, v))
}

func TestContextGroupRelease(t *testing.T) {
	group := jsc.NewContextGroup()
	extra := group.Retain()
	group.Release()
	group.Release()
	assert.Panics(t, func() { _, _ = group.NewContext() })

	ctx, err := extra.NewContext()
	require.NoError(t, err)
	ctx.Close()
	extra.Release()
}

func TestContextGroupLeavesOptionsAlone(t *testing.T) {
	group := jsc.NewContextGroup()
	defer group.Release()

	opts := make([]jsc.ContextOption, 1, 2)
	opts[0] = jsc.WithName("first")
	ctx, err := group.NewContext(opts...)
	require.NoError(t, err)
	defer ctx.Close()

	// the spare slot of the caller's slice stays untouched
	assert.Nil(t, opts[:2][1])

	alone, err := jsc.NewContext(opts...)
	require.NoError(t, err)
	defer alone.Close()
	g := alone.Group()
	defer g.Release()
	assert.False(t, g.Same(group))
}
