package jsc_test

import (
	"testing"

	"github.com/buke/jsc-go"
	"github.com/stretchr/testify/require"
)

func newContext(t *testing.T, opts ...jsc.ContextOption) *jsc.Context {
	t.Helper()
	ctx, err := jsc.NewContext(opts...)
	require.NoError(t, err)
	t.Cleanup(ctx.Close)
	return ctx
}

func eval(t *testing.T, ctx *jsc.Context, script string) jsc.Value {
	t.Helper()
	v, err := ctx.Evaluate(script)
	require.NoError(t, err)
	return v
}

func number(t *testing.T, v jsc.Value) float64 {
	t.Helper()
	n, err := v.ToNumber()
	require.NoError(t, err)
	return n
}

func global(t *testing.T, ctx *jsc.Context) *jsc.Object {
	t.Helper()
	g, err := ctx.GlobalObject()
	require.NoError(t, err)
	return g
}

func callGlobal(t *testing.T, ctx *jsc.Context, name string, args ...jsc.Value) (jsc.Value, error) {
	t.Helper()
	fn, err := global(t, ctx).Get(name)
	require.NoError(t, err)
	obj, err := fn.ToObject()
	require.NoError(t, err)
	return obj.Call(nil, args...)
}
