package jsc

import "fmt"

// Array is a convenience view of a JavaScript array.
type Array struct {
	*Object
}

// ToArray returns an Array view of v.
func (v Value) ToArray() (*Array, error) {
	if !v.IsArray() {
		return nil, v.ctx.newException(fmt.Errorf("%w: %s is not an array", ErrNotObject, v.Type()))
	}
	obj, err := v.ToObject()
	if err != nil {
		return nil, err
	}
	return &Array{Object: obj}, nil
}

// NewArrayFrom wraps a new array holding values.
func (ctx *Context) NewArrayFrom(values ...Value) (*Array, error) {
	obj, err := ctx.NewArray(values...)
	if err != nil {
		return nil, err
	}
	return &Array{Object: obj}, nil
}

// Len returns the array's length property.
func (a *Array) Len() (int, error) {
	v, err := a.Object.Get("length")
	if err != nil {
		return 0, err
	}
	n, err := v.ToNumber()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (a *Array) checkIndex(index int) error {
	n, err := a.Len()
	if err != nil {
		return err
	}
	if index < 0 || index >= n {
		return a.ctx.newException(fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, index, n))
	}
	return nil
}

// Get returns the element at index.
func (a *Array) Get(index int) (Value, error) {
	if err := a.checkIndex(index); err != nil {
		return Value{}, err
	}
	return a.GetIndex(uint32(index))
}

// Set replaces the element at index.
func (a *Array) Set(index int, value Value) error {
	if err := a.checkIndex(index); err != nil {
		return err
	}
	return a.SetIndex(uint32(index), value)
}

// Push appends elements and returns the new length.
func (a *Array) Push(elements ...Value) (int, error) {
	return a.callNumber("push", elements...)
}

// Pop removes and returns the last element.
func (a *Array) Pop() (Value, error) {
	return a.Call("pop")
}

// Unshift prepends elements and returns the new length.
func (a *Array) Unshift(elements ...Value) (int, error) {
	return a.callNumber("unshift", elements...)
}

// Shift removes and returns the first element.
func (a *Array) Shift() (Value, error) {
	return a.Call("shift")
}

// Call invokes an Array.prototype method on the array.
func (a *Array) Call(method string, args ...Value) (Value, error) {
	fnValue, err := a.Object.Get(method)
	if err != nil {
		return Value{}, err
	}
	fn, err := fnValue.ToObject()
	if err != nil {
		return Value{}, err
	}
	return fn.Call(a.Object, args...)
}

func (a *Array) callNumber(method string, args ...Value) (int, error) {
	v, err := a.Call(method, args...)
	if err != nil {
		return 0, err
	}
	n, err := v.ToNumber()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Values returns every element.
func (a *Array) Values() ([]Value, error) {
	n, err := a.Len()
	if err != nil {
		return nil, err
	}
	out := make([]Value, n)
	for i := range out {
		if out[i], err = a.GetIndex(uint32(i)); err != nil {
			return nil, err
		}
	}
	return out, nil
}
