package jsc

// Function adapts a Go function returning a plain Go value into a
// FunctionCallback. The result is converted with Marshal.
func Function[T any](fn func(ctx *Context, args []Value) (T, error)) FunctionCallback {
	return func(ctx *Context, _, _ *Object, args []Value) (Value, error) {
		r, err := fn(ctx, args)
		if err != nil {
			return Value{}, err
		}
		return ctx.Marshal(r)
	}
}

// NewGoFunction is NewFunction for a Function adapter.
func NewGoFunction[T any](ctx *Context, name string, fn func(ctx *Context, args []Value) (T, error)) (*Object, error) {
	return ctx.NewFunction(name, Function(fn))
}
