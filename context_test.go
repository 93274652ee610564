package jsc_test

import (
	"errors"
	"testing"
	"time"

	"github.com/buke/jsc-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextLifecycle(t *testing.T) {
	ctx, err := jsc.NewContext()
	require.NoError(t, err)
	assert.False(t, ctx.Borrowed())

	ctx.Close()
	ctx.Close()

	assert.PanicsWithValue(t, "jsc: use of closed Context", func() { ctx.Undefined() })
	assert.Panics(t, func() { _, _ = ctx.Evaluate("1") })
}

func TestContextName(t *testing.T) {
	ctx := newContext(t)
	_, ok := ctx.Name()
	assert.False(t, ok)

	ctx.SetName("worker")
	name, ok := ctx.Name()
	assert.True(t, ok)
	assert.Equal(t, "worker", name)

	ctx.SetName("")
	_, ok = ctx.Name()
	assert.False(t, ok)

	named := newContext(t, jsc.WithName("named"))
	name, ok = named.Name()
	assert.True(t, ok)
	assert.Equal(t, "named", name)
}

func TestEvaluate(t *testing.T) {
	ctx := newContext(t)

	t.Run("Completion", func(t *testing.T) {
		assert.Equal(t, 3.0, number(t, eval(t, ctx, "1 + 2")))
		assert.True(t, eval(t, ctx, "var unused = 1").IsUndefined())
	})

	t.Run("This", func(t *testing.T) {
		this := ctx.NewObject()
		require.NoError(t, this.Set("tag", ctx.String("mine")))
		v, err := ctx.Evaluate("this.tag", jsc.EvalThis(this))
		require.NoError(t, err)
		assert.Equal(t, "mine", v.String())
	})

	t.Run("SourceURLAndLine", func(t *testing.T) {
		_, err := ctx.Evaluate("\n\nthrow new Error('here')",
			jsc.EvalSourceURL("origin.js"), jsc.EvalStartingLine(10))
		require.Error(t, err)

		var exc *jsc.Exception
		require.ErrorAs(t, err, &exc)
		obj, err := exc.Value().ToObject()
		require.NoError(t, err)
		line, err := obj.Get("line")
		require.NoError(t, err)
		assert.Equal(t, 12.0, number(t, line))
		url, err := obj.Get("sourceURL")
		require.NoError(t, err)
		assert.Equal(t, "origin.js", url.String())
	})

	t.Run("Throws", func(t *testing.T) {
		_, err := ctx.Evaluate("null.field")
		require.Error(t, err)
		var exc *jsc.Exception
		require.True(t, errors.As(err, &exc))
		name, err := exc.Name()
		require.NoError(t, err)
		defer name.Release()
		assert.Equal(t, "TypeError", name.String())
	})
}

func TestCheckSyntax(t *testing.T) {
	ctx := newContext(t)
	assert.NoError(t, ctx.CheckSyntax("function ok() { return 1 }"))

	err := ctx.CheckSyntax("function (")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SyntaxError")

	// checking does not run the script
	require.NoError(t, ctx.CheckSyntax("var checkedOnly = 1"))
	assert.True(t, eval(t, ctx, "typeof checkedOnly === 'undefined'").ToBool())
}

func TestContextValues(t *testing.T) {
	ctx := newContext(t)

	tests := []struct {
		name  string
		value jsc.Value
		kind  jsc.Type
	}{
		{"Undefined", ctx.Undefined(), jsc.TypeUndefined},
		{"Null", ctx.Null(), jsc.TypeNull},
		{"Bool", ctx.Bool(true), jsc.TypeBoolean},
		{"Number", ctx.Number(1.5), jsc.TypeNumber},
		{"String", ctx.String("text"), jsc.TypeString},
		{"Symbol", ctx.Symbol("id"), jsc.TypeSymbol},
		{"Object", ctx.NewObject().Value, jsc.TypeObject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.value.Type())
			assert.Equal(t, ctx, tt.value.Context())
		})
	}

	t.Run("Array", func(t *testing.T) {
		arr, err := ctx.NewArray(ctx.Number(1), ctx.String("two"))
		require.NoError(t, err)
		assert.True(t, arr.IsArray())
		s, err := arr.ToJSON(0)
		require.NoError(t, err)
		defer s.Release()
		assert.Equal(t, `[1,"two"]`, s.String())

		empty, err := ctx.NewArray()
		require.NoError(t, err)
		assert.True(t, empty.IsArray())
	})

	t.Run("Error", func(t *testing.T) {
		e, err := ctx.NewError("bad thing")
		require.NoError(t, err)
		msg, err := e.Get("message")
		require.NoError(t, err)
		assert.Equal(t, "bad thing", msg.String())
		assert.True(t, e.Value.String() == "Error: bad thing")
	})

	t.Run("Date", func(t *testing.T) {
		when := time.Date(2024, 2, 29, 12, 30, 0, 0, time.UTC)
		d, err := ctx.NewDate(when)
		require.NoError(t, err)
		assert.True(t, d.IsDate())
		got, err := d.ToTime()
		require.NoError(t, err)
		assert.True(t, when.Equal(got))
	})

	t.Run("StringValue", func(t *testing.T) {
		s := jsc.NewString("owned")
		v := ctx.StringValue(s)
		s.Release()
		assert.Equal(t, "owned", v.String())
	})
}

func TestValueFromJSON(t *testing.T) {
	ctx := newContext(t)

	v, err := ctx.ValueFromJSON(`{"a":[1,2,{"b":null}]}`)
	require.NoError(t, err)
	assert.True(t, v.IsObject())

	_, err = ctx.ValueFromJSON("3 +")
	require.Error(t, err)
	assert.ErrorIs(t, err, jsc.ErrInvalidJSON)
	var exc *jsc.Exception
	require.ErrorAs(t, err, &exc)
	assert.True(t, exc.Value().IsString())
}

func TestGlobalClass(t *testing.T) {
	cls, err := jsc.NewClassBuilder("Sandbox").
		Method("hello", func(ctx *jsc.Context, _, _ *jsc.Object, args []jsc.Value) (jsc.Value, error) {
			return ctx.String("hi " + args[0].String()), nil
		}).
		Build(nil)
	require.NoError(t, err)
	defer cls.Release()

	ctx := newContext(t, jsc.WithGlobalClass(cls))
	assert.Equal(t, "hi there", eval(t, ctx, "hello('there')").String())
	assert.True(t, global(t, ctx).IsObjectOfClass(cls))
	assert.Equal(t, 2.0, number(t, eval(t, ctx, "Math.max(1, 2)")), "built-ins are still present")
}

func TestGarbageCollect(t *testing.T) {
	ctx := newContext(t, jsc.WithGarbageCollectOnClose(true))
	eval(t, ctx, "var junk = []; for (var i = 0; i < 1000; i++) junk.push({i: i}); junk = null")
	assert.NotPanics(t, ctx.GarbageCollect)
}
