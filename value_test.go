package jsc_test

import (
	"math"
	"testing"

	"github.com/buke/jsc-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValuePredicates(t *testing.T) {
	ctx := newContext(t)

	arr := eval(t, ctx, "[1, 2]")
	assert.True(t, arr.IsArray())
	assert.True(t, arr.IsObject())
	assert.False(t, arr.IsDate())

	date := eval(t, ctx, "new Date(0)")
	assert.True(t, date.IsDate())
	assert.False(t, date.IsArray())

	sym := eval(t, ctx, "Symbol('s')")
	assert.True(t, sym.IsSymbol())
	assert.False(t, sym.IsObject())

	assert.True(t, ctx.Undefined().IsUndefined())
	assert.True(t, ctx.Null().IsNull())
	assert.True(t, ctx.Bool(false).IsBoolean())
	assert.True(t, ctx.Number(0).IsNumber())
	assert.True(t, ctx.String("").IsString())
	assert.True(t, jsc.Value{}.IsZero())
	assert.Equal(t, "symbol", jsc.TypeSymbol.String())
}

func TestValueJSONRoundTrip(t *testing.T) {
	ctx := newContext(t)

	for _, src := range []string{"true", "false", "null", "0", "-12.5", "1e+21", `""`, `"héllo ☃"`} {
		t.Run(src, func(t *testing.T) {
			v, err := ctx.ValueFromJSON(src)
			require.NoError(t, err)
			s, err := v.ToJSON(0)
			require.NoError(t, err)
			defer s.Release()
			assert.Equal(t, src, s.String())
		})
	}

	t.Run("Indent", func(t *testing.T) {
		v := eval(t, ctx, "({a: 1})")
		s, err := v.ToJSON(2)
		require.NoError(t, err)
		defer s.Release()
		assert.Equal(t, "{\n  \"a\": 1\n}", s.String())
	})

	t.Run("NotSerializable", func(t *testing.T) {
		_, err := ctx.Undefined().ToJSON(0)
		require.Error(t, err)
		assert.ErrorIs(t, err, jsc.ErrNotSerializable)
	})

	t.Run("ToJSONThrows", func(t *testing.T) {
		v := eval(t, ctx, "({toJSON() { throw new RangeError('no') }})")
		_, err := v.ToJSON(0)
		require.Error(t, err)
		assert.Equal(t, "RangeError: no", err.Error())
	})
}

func TestValueEquality(t *testing.T) {
	ctx := newContext(t)

	values := []jsc.Value{ctx.Number(1), ctx.String("a"), ctx.Bool(true), ctx.Null(), eval(t, ctx, "({})")}
	for _, v := range values {
		assert.True(t, v.StrictEquals(v), "strict equality is reflexive for %s", v.Type())
	}

	assert.True(t, ctx.String("abc").StrictEquals(ctx.String("abc")))
	assert.True(t, ctx.Number(2).StrictEquals(ctx.Number(2)))
	assert.False(t, ctx.NewObject().StrictEquals(ctx.NewObject().Value))
	assert.False(t, ctx.Number(math.NaN()).StrictEquals(ctx.Number(math.NaN())))
	assert.False(t, ctx.Number(1).StrictEquals(ctx.String("1")))

	eq, err := ctx.Number(1).Equals(ctx.String("1"))
	require.NoError(t, err)
	assert.True(t, eq)

	throwing := eval(t, ctx, "({valueOf() { throw new Error('x') }})")
	_, err = throwing.Equals(ctx.Number(1))
	assert.Error(t, err)
}

func TestValueConversions(t *testing.T) {
	ctx := newContext(t)

	t.Run("ToBool", func(t *testing.T) {
		assert.False(t, ctx.String("").ToBool())
		assert.True(t, ctx.String("0").ToBool())
		assert.False(t, ctx.Number(0).ToBool())
		assert.True(t, ctx.NewObject().ToBool())
	})

	t.Run("ToNumber", func(t *testing.T) {
		assert.Equal(t, 42.0, number(t, ctx.String("42")))
		assert.Equal(t, 1.0, number(t, ctx.Bool(true)))
		assert.Equal(t, 0.0, number(t, ctx.Null()))

		// a number holding NaN converts
		n, err := ctx.Number(math.NaN()).ToNumber()
		require.NoError(t, err)
		assert.True(t, math.IsNaN(n))

		// NaN from anything else is a failure
		_, err = ctx.String("not a number").ToNumber()
		assert.ErrorIs(t, err, jsc.ErrNotANumber)
		_, err = ctx.Undefined().ToNumber()
		assert.ErrorIs(t, err, jsc.ErrNotANumber)

		_, err = ctx.Symbol("s").ToNumber()
		var exc *jsc.Exception
		require.ErrorAs(t, err, &exc)
		assert.Nil(t, exc.Unwrap(), "engine exceptions carry no Go cause")
	})

	t.Run("ToString", func(t *testing.T) {
		assert.Equal(t, "1.5", ctx.Number(1.5).String())
		assert.Equal(t, "null", ctx.Null().String())
		assert.Equal(t, "1,2", eval(t, ctx, "[1, 2]").String())

		_, err := eval(t, ctx, "({toString() { throw new Error('nope') }})").ToString()
		assert.Error(t, err)
	})

	t.Run("ToObject", func(t *testing.T) {
		obj, err := ctx.String("abc").ToObject()
		require.NoError(t, err)
		length, err := obj.Get("length")
		require.NoError(t, err)
		assert.Equal(t, 3.0, number(t, length))

		_, err = ctx.Null().ToObject()
		assert.Error(t, err)
		_, err = ctx.Undefined().ToObject()
		assert.Error(t, err)
	})

	t.Run("ToTime", func(t *testing.T) {
		tm, err := eval(t, ctx, "new Date(86400000)").ToTime()
		require.NoError(t, err)
		assert.Equal(t, int64(86400000), tm.UnixMilli())

		_, err = ctx.Number(1).ToTime()
		assert.ErrorIs(t, err, jsc.ErrNotDate)
	})
}

func TestValueInstanceOf(t *testing.T) {
	ctx := newContext(t)

	arrayCtor, err := global(t, ctx).Get("Array")
	require.NoError(t, err)
	ctor, err := arrayCtor.ToObject()
	require.NoError(t, err)

	ok, err := eval(t, ctx, "[]").IsInstanceOf(ctor)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ctx.NewObject().IsInstanceOf(ctor)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = ctx.NewObject().IsInstanceOf(ctx.NewObject())
	assert.Error(t, err, "instanceof a non-callable throws")
}

func TestValueProtect(t *testing.T) {
	ctx := newContext(t)

	v := eval(t, ctx, "({kept: true})")
	v.Protect()
	v.Protect()
	ctx.GarbageCollect()

	obj, err := v.ToObject()
	require.NoError(t, err)
	kept, err := obj.Get("kept")
	require.NoError(t, err)
	assert.True(t, kept.ToBool())

	v.Unprotect()
	v.Unprotect()
}
