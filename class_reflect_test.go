package jsc_test

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/buke/jsc-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Counter struct {
	Name   string   `js:"name"`
	Count  int      `js:"count"`
	Tags   []string `json:"tags,omitempty"`
	Secret string   `js:"-"`
	Step   int
	hidden int
}

func (c *Counter) Increment(by int) int {
	if by == 0 {
		by = 1
	}
	c.Count += by
	return c.Count
}

func (c *Counter) Describe() string {
	return fmt.Sprintf("%s=%d", c.Name, c.Count)
}

func (c *Counter) Split() (string, int) {
	return c.Name, c.Count
}

func (c *Counter) Check(msg string) error {
	if msg != "" {
		return errors.New(msg)
	}
	return nil
}

func (c *Counter) Sum(base int, rest ...int) int {
	for _, n := range rest {
		base += n
	}
	return base
}

func (c *Counter) Crash() {
	panic("counter crashed")
}

func (c *Counter) String() string {
	return "Counter(" + c.Name + ")"
}

func bindCounter(t *testing.T, ctx *jsc.Context, opts ...jsc.ReflectOption) *jsc.BoundClass {
	t.Helper()
	bound, err := ctx.BindClass(&Counter{}, opts...)
	require.NoError(t, err)
	t.Cleanup(bound.Release)
	require.NoError(t, global(t, ctx).Set("Counter", bound.Constructor.Value))
	return bound
}

func TestBindClass(t *testing.T) {
	ctx := newContext(t)
	bound := bindCounter(t, ctx)
	assert.Equal(t, "Counter", bound.Instance.Name())

	t.Run("PositionalConstructor", func(t *testing.T) {
		v := eval(t, ctx, `var c = new Counter("a", 2); c`)
		assert.True(t, v.IsObjectOfClass(bound.Instance))
		obj, err := v.ToObject()
		require.NoError(t, err)
		data, ok := obj.PrivateData()
		require.True(t, ok)
		assert.Equal(t, &Counter{Name: "a", Count: 2}, data)

		assert.Equal(t, 5.0, number(t, eval(t, ctx, "c.Increment(3)")))
		assert.Equal(t, 6.0, number(t, eval(t, ctx, "c.Increment()")))
		assert.Equal(t, 6, data.(*Counter).Count)
	})

	t.Run("NamedConstructor", func(t *testing.T) {
		v := eval(t, ctx, `new Counter({name: "b", count: 1, tags: ["x"], Step: 4}).Describe()`)
		assert.Equal(t, "b=1", v.String())
		assert.Equal(t, `["x"]`, eval(t, ctx, `JSON.stringify(new Counter({tags: ["x"]}).tags)`).String())
		assert.Equal(t, 4.0, number(t, eval(t, ctx, `new Counter({Step: 4}).Step`)))
	})

	t.Run("ConstructorErrors", func(t *testing.T) {
		_, err := ctx.Evaluate(`new Counter(1)`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Counter constructor")

		_, err = ctx.Evaluate(`new Counter("a", 1, [], 2, 3)`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "too many arguments")
	})

	t.Run("Fields", func(t *testing.T) {
		eval(t, ctx, `var f = new Counter("f", 1)`)
		assert.Equal(t, "f", eval(t, ctx, "f.name").String())
		eval(t, ctx, "f.count = 10")
		assert.Equal(t, 10.0, number(t, eval(t, ctx, "f.count")))
		assert.Equal(t, "f=10", eval(t, ctx, "f.Describe()").String())

		_, err := ctx.Evaluate(`f.count = "many"`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "property count")

		// names that are not fields use the normal path
		eval(t, ctx, "f.extra = 1")
		assert.Equal(t, 1.0, number(t, eval(t, ctx, "f.extra")))
		assert.True(t, eval(t, ctx, "f.Secret === undefined && f.hidden === undefined").ToBool())
	})

	t.Run("Results", func(t *testing.T) {
		eval(t, ctx, `var r = new Counter("r", 7)`)
		assert.Equal(t, `["r",7]`, eval(t, ctx, "JSON.stringify(r.Split())").String())
		assert.True(t, eval(t, ctx, `r.Check("") === undefined`).ToBool())
		assert.Equal(t, "true:bad input",
			eval(t, ctx, `var m; try { r.Check("bad input") } catch (e) { m = (e instanceof Error) + ":" + e.message } m`).String())
		assert.Equal(t, 6.0, number(t, eval(t, ctx, "r.Sum(1, 2, 3)")))
		assert.Equal(t, 1.0, number(t, eval(t, ctx, "r.Sum(1)")))
	})

	t.Run("MethodErrors", func(t *testing.T) {
		eval(t, ctx, `var e = new Counter("e", 0)`)

		_, err := ctx.Evaluate(`e.Increment(1, 2)`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "too many arguments")

		_, err = ctx.Evaluate(`e.Increment("x")`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Increment")

		_, err = ctx.Evaluate(`e.Describe.call({})`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), jsc.ErrNotBound.Error())

		_, err = ctx.Evaluate(`e.Crash()`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "counter crashed")
	})

	t.Run("ReservedMethodsSkipped", func(t *testing.T) {
		assert.Equal(t, "undefined", eval(t, ctx, `typeof new Counter().String`).String())
	})

	t.Run("WrapGoValue", func(t *testing.T) {
		c := &Counter{Name: "go", Count: 3}
		obj, err := bound.NewObject(ctx, c)
		require.NoError(t, err)
		require.NoError(t, global(t, ctx).Set("fromGo", obj.Value))

		assert.Equal(t, "go=4", eval(t, ctx, "fromGo.Increment(); fromGo.Describe()").String())
		assert.Equal(t, 4, c.Count)

		_, err = bound.NewObject(ctx, Counter{})
		assert.ErrorIs(t, err, jsc.ErrNotBound)
		_, err = bound.NewObject(ctx, (*Counter)(nil))
		assert.ErrorIs(t, err, jsc.ErrNotBound)
	})
}

func TestBindClassOptions(t *testing.T) {
	ctx := newContext(t)
	bindCounter(t, ctx,
		jsc.WithIgnoredMethods("Describe"),
		jsc.WithIgnoredFields("Count"),
	)

	eval(t, ctx, `var o = new Counter("o", ["t"], 2)`)
	assert.Equal(t, "undefined", eval(t, ctx, "typeof o.Describe").String())
	assert.Equal(t, "function", eval(t, ctx, "typeof o.Increment").String())
	assert.True(t, eval(t, ctx, "o.count === undefined").ToBool())

	// positional arguments follow the bound fields only
	assert.Equal(t, `["o",0]`, eval(t, ctx, "JSON.stringify(o.Split())").String())
	assert.Equal(t, 2.0, number(t, eval(t, ctx, "o.Step")))

	t.Run("MethodPrefix", func(t *testing.T) {
		builder, err := jsc.BindClassBuilder(reflect.TypeOf(Counter{}), jsc.WithMethodPrefix("S"))
		require.NoError(t, err)
		cls, err := builder.Build(ctx)
		require.NoError(t, err)
		defer cls.Release()

		obj, err := cls.NewObject(ctx, &Counter{Name: "p"})
		require.NoError(t, err)
		require.NoError(t, global(t, ctx).Set("p", obj.Value))
		assert.Equal(t, "function", eval(t, ctx, "typeof p.Split").String())
		assert.Equal(t, "function", eval(t, ctx, "typeof p.Sum").String())
		assert.Equal(t, "undefined", eval(t, ctx, "typeof p.Increment").String())
		assert.Equal(t, "p", eval(t, ctx, "p.name").String())
	})
}

func TestBindClassBuilderErrors(t *testing.T) {
	tests := []struct {
		name  string
		input any
	}{
		{"Nil", nil},
		{"NotStruct", 42},
		{"PointerToNonStruct", new(int)},
		{"Anonymous", struct{ A int }{}},
		{"ReflectTypeNotStruct", reflect.TypeOf("")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := jsc.BindClassBuilder(tt.input)
			assert.ErrorIs(t, err, jsc.ErrUnsupportedType)
		})
	}
}
