package jsc

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ErrNotBound is the cause of calls that reach a bound method or field
// through an object that does not wrap a value of the bound type.
var ErrNotBound = errors.New("object does not wrap a value of the bound Go type")

// ReflectOptions configures BindClass and BindClassBuilder.
type ReflectOptions struct {
	// MethodPrefix keeps only methods whose name starts with it.
	MethodPrefix string

	// IgnoredMethods lists Go method names left unbound.
	IgnoredMethods []string

	// IgnoredFields lists Go field names left unbound.
	IgnoredFields []string
}

// ReflectOption configures ReflectOptions.
type ReflectOption func(*ReflectOptions)

// WithMethodPrefix binds only methods whose name starts with prefix.
func WithMethodPrefix(prefix string) ReflectOption {
	return func(opts *ReflectOptions) {
		opts.MethodPrefix = prefix
	}
}

// WithIgnoredMethods leaves the named methods unbound.
func WithIgnoredMethods(methods ...string) ReflectOption {
	return func(opts *ReflectOptions) {
		opts.IgnoredMethods = append(opts.IgnoredMethods, methods...)
	}
}

// WithIgnoredFields leaves the named fields unbound.
func WithIgnoredFields(fields ...string) ReflectOption {
	return func(opts *ReflectOptions) {
		opts.IgnoredFields = append(opts.IgnoredFields, fields...)
	}
}

// methods implemented for the runtime or for fmt, never exposed to script
var reservedMethods = map[string]bool{
	"String":      true,
	"Error":       true,
	"GoString":    true,
	"Format":      true,
	"Finalize":    true,
	"MarshalJS":   true,
	"UnmarshalJS": true,
}

// BoundClass is a Go struct type exposed to script. Instances wrap a pointer
// to the struct as their host data.
type BoundClass struct {
	// Instance is the class of the wrapping objects.
	Instance *Class
	// Constructor creates instances with `new`. Install it on the global
	// object under the name the script should use.
	Constructor *Object

	ctorClass *Class
	ptrType   reflect.Type
}

// BindClass exposes a Go struct type to script. structType is a struct
// value, a pointer to one, or its reflect.Type.
//
// Exported fields become properties named after their js or json tag, read
// and written through Marshal and Unmarshal. Exported methods of the pointer
// type become methods; arguments are unmarshalled into the parameter types,
// a trailing non-nil error is thrown, and the other results are marshalled
// (several results become an array). The constructor fills fields from one
// object argument by property name, or from positional arguments in field
// order.
//
//	bound, err := ctx.BindClass(&Counter{})
//	if err != nil { return err }
//	defer bound.Release()
//	global.Set("Counter", bound.Constructor.Value)
func (ctx *Context) BindClass(structType any, opts ...ReflectOption) (*BoundClass, error) {
	builder, err := BindClassBuilder(structType, opts...)
	if err != nil {
		return nil, err
	}
	typ, _ := reflectStructType(structType)

	instance, err := builder.Build(ctx)
	if err != nil {
		return nil, err
	}

	fields := boundFields(typ, newReflectOptions(opts))
	ctorClass, err := NewClassBuilder(typ.Name() + "Constructor").
		Constructor(func(ctx *Context, _ *Object, args []Value) (*Object, error) {
			ptr := reflect.New(typ)
			if err := ctx.initFromArgs(ptr.Elem(), fields, args); err != nil {
				return nil, fmt.Errorf("%s constructor: %w", typ.Name(), err)
			}
			return instance.NewObject(ctx, ptr.Interface())
		}).
		Build(ctx)
	if err != nil {
		instance.Release()
		return nil, err
	}

	ctor, err := ctorClass.NewObject(ctx, nil)
	if err != nil {
		ctorClass.Release()
		instance.Release()
		return nil, err
	}

	return &BoundClass{
		Instance:    instance,
		Constructor: ctor,
		ctorClass:   ctorClass,
		ptrType:     reflect.PointerTo(typ),
	}, nil
}

// NewObject wraps an existing *T, where T is the bound struct type.
func (b *BoundClass) NewObject(ctx *Context, v any) (*Object, error) {
	if reflect.TypeOf(v) != b.ptrType || reflect.ValueOf(v).IsNil() {
		return nil, ctx.newException(fmt.Errorf("%w: got %T, want %v", ErrNotBound, v, b.ptrType))
	}
	return b.Instance.NewObject(ctx, v)
}

// Release drops both class references. Live instances keep working.
func (b *BoundClass) Release() {
	b.Instance.Release()
	b.ctorClass.Release()
}

// BindClassBuilder returns a ClassBuilder for the instances of a Go struct
// type, with the field hooks and methods BindClass installs. More methods
// can be added before Build; replacing GetProperty or SetProperty drops the
// field bindings.
func BindClassBuilder(structType any, opts ...ReflectOption) (*ClassBuilder, error) {
	typ, err := reflectStructType(structType)
	if err != nil {
		return nil, err
	}
	if typ.Name() == "" {
		return nil, fmt.Errorf("%w: anonymous struct has no class name", ErrUnsupportedType)
	}

	o := newReflectOptions(opts)
	ptrType := reflect.PointerTo(typ)
	builder := NewClassBuilder(typ.Name())

	fields := boundFields(typ, o)
	byName := make(map[string]int, len(fields))
	for _, f := range fields {
		byName[f.name] = f.index
	}
	if len(byName) > 0 {
		builder.GetProperty(fieldGetter(ptrType, byName))
		builder.SetProperty(fieldSetter(ptrType, byName))
	}

	for i := 0; i < ptrType.NumMethod(); i++ {
		m := ptrType.Method(i)
		if reservedMethods[m.Name] || contains(o.IgnoredMethods, m.Name) ||
			!strings.HasPrefix(m.Name, o.MethodPrefix) {
			continue
		}
		builder.Method(m.Name, methodCallback(ptrType, m))
	}
	return builder, nil
}

func newReflectOptions(opts []ReflectOption) *ReflectOptions {
	o := &ReflectOptions{}
	for _, fn := range opts {
		fn(o)
	}
	return o
}

func reflectStructType(structType any) (reflect.Type, error) {
	var typ reflect.Type
	switch v := structType.(type) {
	case nil:
		return nil, fmt.Errorf("%w: cannot bind nil", ErrUnsupportedType)
	case reflect.Type:
		typ = v
	default:
		typ = reflect.TypeOf(v)
		if typ.Kind() == reflect.Ptr {
			typ = typ.Elem()
		}
	}
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %v is not a struct", ErrUnsupportedType, typ)
	}
	return typ, nil
}

type boundField struct {
	name  string
	index int
}

// boundFields lists the exported, non-skipped fields in declaration order.
func boundFields(typ reflect.Type, o *ReflectOptions) []boundField {
	var fields []boundField
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() || contains(o.IgnoredFields, field.Name) {
			continue
		}
		info := structField(field)
		if info.skip {
			continue
		}
		fields = append(fields, boundField{name: info.name, index: i})
	}
	return fields
}

// boundValue returns the struct wrapped by object.
func boundValue(object *Object, ptrType reflect.Type) (reflect.Value, bool) {
	if object == nil {
		return reflect.Value{}, false
	}
	data, ok := object.PrivateData()
	if !ok || data == nil {
		return reflect.Value{}, false
	}
	rv := reflect.ValueOf(data)
	if rv.Type() != ptrType || rv.IsNil() {
		return reflect.Value{}, false
	}
	return rv, true
}

func fieldGetter(ptrType reflect.Type, byName map[string]int) PropertyGetter {
	return func(ctx *Context, object *Object, name *String) (Value, error) {
		index, ok := byName[name.String()]
		if !ok {
			return Value{}, nil
		}
		rv, ok := boundValue(object, ptrType)
		if !ok {
			return Value{}, nil
		}
		return ctx.marshal(rv.Elem().Field(index))
	}
}

func fieldSetter(ptrType reflect.Type, byName map[string]int) PropertySetter {
	return func(ctx *Context, object *Object, name *String, value Value) (bool, error) {
		key := name.String()
		index, ok := byName[key]
		if !ok {
			return false, nil
		}
		rv, ok := boundValue(object, ptrType)
		if !ok {
			return false, nil
		}
		field := rv.Elem().Field(index)
		tmp := reflect.New(field.Type()).Elem()
		if err := ctx.unmarshal(value, tmp); err != nil {
			return false, fmt.Errorf("property %s: %w", key, err)
		}
		field.Set(tmp)
		return true, nil
	}
}

func (ctx *Context) initFromArgs(rv reflect.Value, fields []boundField, args []Value) error {
	if len(args) == 1 && args[0].IsObject() && !args[0].IsArray() {
		obj, err := args[0].ToObject()
		if err != nil {
			return err
		}
		for _, f := range fields {
			if !obj.Has(f.name) {
				continue
			}
			prop, err := obj.Get(f.name)
			if err != nil {
				return err
			}
			if err := ctx.unmarshal(prop, rv.Field(f.index)); err != nil {
				return fmt.Errorf("property %s: %w", f.name, err)
			}
		}
		return nil
	}

	if len(args) > len(fields) {
		return fmt.Errorf("too many arguments: expected at most %d, got %d", len(fields), len(args))
	}
	for i, arg := range args {
		f := fields[i]
		if err := ctx.unmarshal(arg, rv.Field(f.index)); err != nil {
			return fmt.Errorf("argument %d (%s): %w", i, f.name, err)
		}
	}
	return nil
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func methodCallback(ptrType reflect.Type, m reflect.Method) FunctionCallback {
	return func(ctx *Context, _, this *Object, args []Value) (Value, error) {
		rv, ok := boundValue(this, ptrType)
		if !ok {
			return Value{}, fmt.Errorf("%w: %s.%s called on a foreign object", ErrNotBound, ptrType.Elem().Name(), m.Name)
		}

		in, err := ctx.methodArgs(m.Type, args)
		if err != nil {
			return Value{}, fmt.Errorf("%s: %w", m.Name, err)
		}
		fn := rv.Method(m.Index)
		var out []reflect.Value
		if m.Type.IsVariadic() {
			out = fn.CallSlice(in)
		} else {
			out = fn.Call(in)
		}
		return ctx.methodResults(m.Type, out)
	}
}

// methodArgs unmarshals args into the parameters of a method expression
// type, whose first parameter is the receiver. Missing arguments are zero.
func (ctx *Context) methodArgs(mt reflect.Type, args []Value) ([]reflect.Value, error) {
	n := mt.NumIn() - 1
	fixed := n
	if mt.IsVariadic() {
		fixed--
	} else if len(args) > n {
		return nil, fmt.Errorf("too many arguments: expected %d, got %d", n, len(args))
	}

	in := make([]reflect.Value, n)
	for i := 0; i < fixed; i++ {
		v := reflect.New(mt.In(i + 1)).Elem()
		if i < len(args) {
			if err := ctx.unmarshal(args[i], v); err != nil {
				return nil, fmt.Errorf("argument %d: %w", i, err)
			}
		}
		in[i] = v
	}

	if mt.IsVariadic() {
		sliceType := mt.In(n)
		rest := reflect.MakeSlice(sliceType, 0, 0)
		for i := fixed; i < len(args); i++ {
			v := reflect.New(sliceType.Elem()).Elem()
			if err := ctx.unmarshal(args[i], v); err != nil {
				return nil, fmt.Errorf("argument %d: %w", i, err)
			}
			rest = reflect.Append(rest, v)
		}
		in[fixed] = rest
	}
	return in, nil
}

func (ctx *Context) methodResults(mt reflect.Type, out []reflect.Value) (Value, error) {
	if n := mt.NumOut(); n > 0 && mt.Out(n-1) == errorType {
		if err, _ := out[n-1].Interface().(error); err != nil {
			return Value{}, err
		}
		out = out[:n-1]
	}

	switch len(out) {
	case 0:
		return ctx.Undefined(), nil
	case 1:
		return ctx.marshal(out[0])
	}
	values := make([]any, len(out))
	for i, r := range out {
		values[i] = r.Interface()
	}
	return ctx.marshal(reflect.ValueOf(values))
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
