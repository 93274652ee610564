package jsc

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Marshaler is implemented by types that can marshal themselves into a
// JavaScript value.
type Marshaler interface {
	MarshalJS(ctx *Context) (Value, error)
}

// Unmarshaler is implemented by types that can unmarshal a JavaScript value
// into themselves.
type Unmarshaler interface {
	UnmarshalJS(ctx *Context, val Value) error
}

var (
	valueType  = reflect.TypeOf(Value{})
	objectType = reflect.TypeOf(&Object{})
	timeType   = reflect.TypeOf(time.Time{})
)

// Marshal returns the JavaScript value encoding of v.
//
// Marshal uses the following type mappings:
//   - bool -> boolean
//   - integers and floats -> number
//   - string -> string
//   - []byte -> Uint8Array holding a copy
//   - time.Time -> Date
//   - slice/array -> Array
//   - map with string or integer keys -> Object
//   - struct -> Object
//   - pointer -> the pointed value, nil becomes null
//   - Value and *Object -> themselves
//
// Struct fields use the "js" tag, then the "json" tag, then the field name.
// A "-" tag skips the field and "omitempty" skips zero values.
func (ctx *Context) Marshal(v any) (Value, error) {
	if v == nil {
		return ctx.Null(), nil
	}
	val, err := ctx.marshal(reflect.ValueOf(v))
	return val, ctx.asException(err)
}

// Unmarshal stores the JavaScript value in the value pointed to by v.
//
// Unmarshal uses the inverse of the Marshal mappings. When unmarshaling into
// an interface it stores nil, bool, int64 for integral numbers, float64,
// string, []byte for typed arrays and ArrayBuffers, time.Time, []any or
// map[string]any.
func (ctx *Context) Unmarshal(val Value, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return ctx.newException(ErrInvalidTarget)
	}
	return ctx.asException(ctx.unmarshal(val, rv.Elem()))
}

func (ctx *Context) marshal(rv reflect.Value) (Value, error) {
	if rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return ctx.Null(), nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Ptr && rv.IsNil() {
		return ctx.Null(), nil
	}

	switch rv.Type() {
	case valueType:
		return rv.Interface().(Value), nil
	case objectType:
		return rv.Interface().(*Object).Value, nil
	case timeType:
		d, err := ctx.NewDate(rv.Interface().(time.Time))
		if err != nil {
			return Value{}, err
		}
		return d.Value, nil
	}

	if rv.CanInterface() {
		if m, ok := rv.Interface().(Marshaler); ok {
			return m.MarshalJS(ctx)
		}
	}

	switch rv.Kind() {
	case reflect.Ptr:
		return ctx.marshal(rv.Elem())

	case reflect.Bool:
		return ctx.Bool(rv.Bool()), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return ctx.Number(float64(rv.Int())), nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return ctx.Number(float64(rv.Uint())), nil

	case reflect.Float32, reflect.Float64:
		return ctx.Number(rv.Float()), nil

	case reflect.String:
		return ctx.String(rv.String()), nil

	case reflect.Slice:
		if rv.IsNil() {
			return ctx.Null(), nil
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			t, err := ctx.NewTypedArrayFromBytes(TypedArrayUint8, rv.Bytes())
			if err != nil {
				return Value{}, err
			}
			return t.Value, nil
		}
		return ctx.marshalList(rv)

	case reflect.Array:
		return ctx.marshalList(rv)

	case reflect.Map:
		if rv.IsNil() {
			return ctx.Null(), nil
		}
		return ctx.marshalMap(rv)

	case reflect.Struct:
		return ctx.marshalStruct(rv)
	}

	return Value{}, fmt.Errorf("%w: %v", ErrUnsupportedType, rv.Type())
}

func (ctx *Context) marshalList(rv reflect.Value) (Value, error) {
	values := make([]Value, 0, rv.Len())
	defer func() {
		for _, v := range values {
			v.Unprotect()
		}
	}()
	for i := 0; i < rv.Len(); i++ {
		elem, err := ctx.marshal(rv.Index(i))
		if err != nil {
			return Value{}, fmt.Errorf("array element %d: %w", i, err)
		}
		elem.Protect()
		values = append(values, elem)
	}
	arr, err := ctx.NewArray(values...)
	if err != nil {
		return Value{}, err
	}
	return arr.Value, nil
}

func (ctx *Context) marshalMap(rv reflect.Value) (Value, error) {
	keys := rv.MapKeys()
	names := make([]string, len(keys))
	for i, key := range keys {
		switch key.Kind() {
		case reflect.String:
			names[i] = key.String()
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			names[i] = strconv.FormatInt(key.Int(), 10)
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			names[i] = strconv.FormatUint(key.Uint(), 10)
		default:
			return Value{}, fmt.Errorf("%w: map key %v", ErrUnsupportedType, key.Type())
		}
	}

	order := make([]int, len(keys))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return names[order[a]] < names[order[b]] })

	obj := ctx.NewObject()
	obj.Protect()
	defer obj.Unprotect()
	for _, i := range order {
		val, err := ctx.marshal(rv.MapIndex(keys[i]))
		if err != nil {
			return Value{}, fmt.Errorf("map value for key %s: %w", names[i], err)
		}
		if err := obj.Set(names[i], val); err != nil {
			return Value{}, err
		}
	}
	return obj.Value, nil
}

type fieldInfo struct {
	name      string
	omitEmpty bool
	skip      bool
}

func structField(field reflect.StructField) fieldInfo {
	tag, ok := field.Tag.Lookup("js")
	if !ok {
		tag, ok = field.Tag.Lookup("json")
	}
	if !ok || tag == "" {
		return fieldInfo{name: field.Name}
	}
	if tag == "-" {
		return fieldInfo{skip: true}
	}

	name, opts, _ := strings.Cut(tag, ",")
	if name == "" {
		name = field.Name
	}
	info := fieldInfo{name: name}
	for _, opt := range strings.Split(opts, ",") {
		if opt == "omitempty" {
			info.omitEmpty = true
		}
	}
	return info
}

func (ctx *Context) marshalStruct(rv reflect.Value) (Value, error) {
	rt := rv.Type()
	obj := ctx.NewObject()
	obj.Protect()
	defer obj.Unprotect()

	for i := 0; i < rv.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		info := structField(field)
		if info.skip {
			continue
		}
		fv := rv.Field(i)
		if info.omitEmpty && fv.IsZero() {
			continue
		}

		val, err := ctx.marshal(fv)
		if err != nil {
			return Value{}, fmt.Errorf("struct field %s: %w", field.Name, err)
		}
		if err := obj.Set(info.name, val); err != nil {
			return Value{}, err
		}
	}
	return obj.Value, nil
}

func (ctx *Context) unmarshal(val Value, rv reflect.Value) error {
	if rv.CanAddr() {
		if u, ok := rv.Addr().Interface().(Unmarshaler); ok {
			return u.UnmarshalJS(ctx, val)
		}
	}

	switch rv.Type() {
	case valueType:
		rv.Set(reflect.ValueOf(val))
		return nil
	case objectType:
		if val.IsNull() || val.IsUndefined() {
			rv.Set(reflect.Zero(rv.Type()))
			return nil
		}
		obj, err := val.ToObject()
		if err != nil {
			return err
		}
		rv.Set(reflect.ValueOf(obj))
		return nil
	case timeType:
		t, err := val.ToTime()
		if err != nil {
			return err
		}
		rv.Set(reflect.ValueOf(t))
		return nil
	}

	if rv.Kind() == reflect.Ptr {
		if val.IsNull() || val.IsUndefined() {
			rv.Set(reflect.Zero(rv.Type()))
			return nil
		}
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		return ctx.unmarshal(val, rv.Elem())
	}

	switch rv.Kind() {
	case reflect.Bool:
		if !val.IsBoolean() {
			return mismatch(val, rv)
		}
		rv.SetBool(val.ToBool())

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if !val.IsNumber() {
			return mismatch(val, rv)
		}
		f, err := val.ToNumber()
		if err != nil {
			return err
		}
		if err := checkIntegral(f, rv); err != nil {
			return err
		}
		if f < math.MinInt64 || f >= math.MaxInt64 {
			return fmt.Errorf("number %v overflows Go %v", f, rv.Type())
		}
		n := int64(f)
		if rv.OverflowInt(n) {
			return fmt.Errorf("number %v overflows Go %v", f, rv.Type())
		}
		rv.SetInt(n)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if !val.IsNumber() {
			return mismatch(val, rv)
		}
		f, err := val.ToNumber()
		if err != nil {
			return err
		}
		if err := checkIntegral(f, rv); err != nil {
			return err
		}
		if f < 0 {
			return fmt.Errorf("cannot unmarshal negative number into Go %v", rv.Type())
		}
		if f >= math.MaxUint64 {
			return fmt.Errorf("number %v overflows Go %v", f, rv.Type())
		}
		n := uint64(f)
		if rv.OverflowUint(n) {
			return fmt.Errorf("number %v overflows Go %v", f, rv.Type())
		}
		rv.SetUint(n)

	case reflect.Float32, reflect.Float64:
		if !val.IsNumber() {
			return mismatch(val, rv)
		}
		f, err := val.ToNumber()
		if err != nil {
			return err
		}
		rv.SetFloat(f)

	case reflect.String:
		if !val.IsString() {
			return mismatch(val, rv)
		}
		rv.SetString(val.String())

	case reflect.Slice:
		return ctx.unmarshalSlice(val, rv)

	case reflect.Array:
		return ctx.unmarshalArray(val, rv)

	case reflect.Map:
		return ctx.unmarshalMap(val, rv)

	case reflect.Struct:
		return ctx.unmarshalStruct(val, rv)

	case reflect.Interface:
		v, err := ctx.unmarshalInterface(val)
		if err != nil {
			return err
		}
		if v == nil {
			rv.Set(reflect.Zero(rv.Type()))
		} else {
			rv.Set(reflect.ValueOf(v))
		}

	default:
		return fmt.Errorf("%w: %v", ErrUnsupportedType, rv.Type())
	}
	return nil
}

// checkIntegral rejects numbers an integer field cannot hold exactly.
func checkIntegral(f float64, rv reflect.Value) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("cannot unmarshal non-finite number %v into Go %v", f, rv.Type())
	}
	if f != math.Trunc(f) {
		return fmt.Errorf("cannot unmarshal fractional number %v into Go %v", f, rv.Type())
	}
	return nil
}

func mismatch(val Value, rv reflect.Value) error {
	return fmt.Errorf("cannot unmarshal JavaScript %s into Go %v", val.Type(), rv.Type())
}

// bytesOf copies the bytes of a typed array or ArrayBuffer.
func bytesOf(val Value) ([]byte, bool, error) {
	if val.IsTypedArray() {
		t, err := val.ToTypedArray()
		if err != nil {
			return nil, true, err
		}
		b, err := t.CopyBytes()
		return b, true, err
	}
	buf, err := val.ToArrayBuffer()
	if err != nil {
		discard(err)
		return nil, false, nil
	}
	b, err := buf.Bytes()
	if err != nil {
		return nil, true, err
	}
	return append([]byte(nil), b...), true, nil
}

func (ctx *Context) unmarshalSlice(val Value, rv reflect.Value) error {
	if val.IsNull() || val.IsUndefined() {
		rv.Set(reflect.Zero(rv.Type()))
		return nil
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 && val.IsObject() {
		b, ok, err := bytesOf(val)
		if err != nil {
			return err
		}
		if ok {
			rv.SetBytes(b)
			return nil
		}
	}

	arr, err := val.ToArray()
	if err != nil {
		return err
	}
	n, err := arr.Len()
	if err != nil {
		return err
	}

	slice := reflect.MakeSlice(rv.Type(), n, n)
	for i := 0; i < n; i++ {
		elem, err := arr.Get(i)
		if err != nil {
			return err
		}
		if err := ctx.unmarshal(elem, slice.Index(i)); err != nil {
			return fmt.Errorf("array element %d: %w", i, err)
		}
	}
	rv.Set(slice)
	return nil
}

func (ctx *Context) unmarshalArray(val Value, rv reflect.Value) error {
	arr, err := val.ToArray()
	if err != nil {
		return err
	}
	n, err := arr.Len()
	if err != nil {
		return err
	}
	if rv.Len() < n {
		n = rv.Len()
	}
	for i := 0; i < n; i++ {
		elem, err := arr.Get(i)
		if err != nil {
			return err
		}
		if err := ctx.unmarshal(elem, rv.Index(i)); err != nil {
			return fmt.Errorf("array element %d: %w", i, err)
		}
	}
	return nil
}

func (ctx *Context) unmarshalMap(val Value, rv reflect.Value) error {
	if val.IsNull() || val.IsUndefined() {
		rv.Set(reflect.Zero(rv.Type()))
		return nil
	}
	if !val.IsObject() {
		return mismatch(val, rv)
	}
	obj, err := val.ToObject()
	if err != nil {
		return err
	}
	if rv.IsNil() {
		rv.Set(reflect.MakeMap(rv.Type()))
	}

	names := obj.PropertyNames()
	defer names.Release()

	keyType := rv.Type().Key()
	elemType := rv.Type().Elem()
	for _, name := range names.Strings() {
		key := reflect.New(keyType).Elem()
		switch keyType.Kind() {
		case reflect.String:
			key.SetString(name)
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			n, err := strconv.ParseInt(name, 10, 64)
			if err != nil || key.OverflowInt(n) {
				continue
			}
			key.SetInt(n)
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			n, err := strconv.ParseUint(name, 10, 64)
			if err != nil || key.OverflowUint(n) {
				continue
			}
			key.SetUint(n)
		default:
			return fmt.Errorf("%w: map key %v", ErrUnsupportedType, keyType)
		}

		prop, err := obj.Get(name)
		if err != nil {
			return err
		}
		elem := reflect.New(elemType).Elem()
		if err := ctx.unmarshal(prop, elem); err != nil {
			return fmt.Errorf("map value for key %s: %w", name, err)
		}
		rv.SetMapIndex(key, elem)
	}
	return nil
}

func (ctx *Context) unmarshalStruct(val Value, rv reflect.Value) error {
	if !val.IsObject() {
		return mismatch(val, rv)
	}
	obj, err := val.ToObject()
	if err != nil {
		return err
	}

	rt := rv.Type()
	for i := 0; i < rv.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		info := structField(field)
		if info.skip || !obj.Has(info.name) {
			continue
		}
		prop, err := obj.Get(info.name)
		if err != nil {
			return err
		}
		if err := ctx.unmarshal(prop, rv.Field(i)); err != nil {
			return fmt.Errorf("struct field %s: %w", field.Name, err)
		}
	}
	return nil
}

func (ctx *Context) unmarshalInterface(val Value) (any, error) {
	switch val.Type() {
	case TypeUndefined, TypeNull:
		return nil, nil
	case TypeBoolean:
		return val.ToBool(), nil
	case TypeString:
		return val.String(), nil
	case TypeNumber:
		f, err := val.ToNumber()
		if err != nil {
			return nil, err
		}
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f), nil
		}
		return f, nil
	case TypeSymbol:
		return nil, fmt.Errorf("%w: symbol", ErrUnsupportedType)
	}

	obj, err := val.ToObject()
	if err != nil {
		return nil, err
	}
	if obj.IsFunction() {
		return nil, fmt.Errorf("%w: function", ErrUnsupportedType)
	}
	if val.IsDate() {
		return val.ToTime()
	}
	if b, ok, err := bytesOf(val); ok || err != nil {
		return b, err
	}

	if val.IsArray() {
		arr, err := val.ToArray()
		if err != nil {
			return nil, err
		}
		n, err := arr.Len()
		if err != nil {
			return nil, err
		}
		out := make([]any, n)
		for i := range out {
			elem, err := arr.Get(i)
			if err != nil {
				return nil, err
			}
			if out[i], err = ctx.unmarshalInterface(elem); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	names := obj.PropertyNames()
	defer names.Release()

	out := make(map[string]any)
	for _, name := range names.Strings() {
		prop, err := obj.Get(name)
		if err != nil {
			return nil, err
		}
		if out[name], err = ctx.unmarshalInterface(prop); err != nil {
			return nil, err
		}
	}
	return out, nil
}
