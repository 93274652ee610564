package jsc

/*
#include "bridge.h"
*/
import "C"
import (
	"time"

	"go.uber.org/zap"
)

// Context represents a JavaScript execution context: one global object plus
// the built-ins. A Context created by NewContext owns one reference to the
// engine's global context and must be closed exactly once. The Context handed
// to callbacks is a borrowed view; closing it does nothing.
type Context struct {
	ref      C.JSContextRef
	borrowed bool
	gcClose  bool
}

type contextOptions struct {
	class   *Class
	group   *ContextGroup
	name    string
	hasName bool
	gcClose bool
}

// ContextOption configures NewContext.
type ContextOption func(*contextOptions)

// WithGlobalClass uses class to create the global object.
func WithGlobalClass(class *Class) ContextOption {
	return func(o *contextOptions) {
		o.class = class
	}
}

// WithGroup creates the context inside group so that values can be shared
// with other contexts of the same group.
func WithGroup(group *ContextGroup) ContextOption {
	return func(o *contextOptions) {
		o.group = group
	}
}

// WithName sets the debug name of the context.
func WithName(name string) ContextOption {
	return func(o *contextOptions) {
		o.name = name
		o.hasName = true
	}
}

// WithGarbageCollectOnClose runs a collection right before the context's
// reference is released.
func WithGarbageCollectOnClose(enabled bool) ContextOption {
	return func(o *contextOptions) {
		o.gcClose = enabled
	}
}

// NewContext creates a global JavaScript execution context populated with the
// built-in objects. Without WithGroup the context lives in its own group.
func NewContext(opts ...ContextOption) (*Context, error) {
	var o contextOptions
	for _, fn := range opts {
		fn(&o)
	}

	var classRef C.JSClassRef
	if o.class != nil {
		classRef = o.class.raw()
	}

	var ref C.JSGlobalContextRef
	if o.group != nil {
		ref = C.JSGlobalContextCreateInGroup(o.group.raw(), classRef)
	} else {
		ref = C.JSGlobalContextCreate(classRef)
	}
	if ref == nil {
		return nil, &Exception{cause: ErrContextCreate}
	}

	ctx := &Context{ref: C.JSContextRef(ref), gcClose: o.gcClose}
	if o.hasName {
		ctx.SetName(o.name)
	}
	if o.class != nil {
		if err := ctx.adoptGlobalObject(o.class); err != nil {
			err = detach(err)
			ctx.Close()
			return nil, err
		}
	}

	Logger().Debug("jsc: context created")
	return ctx, nil
}

// borrowContext wraps a context handle the caller does not own.
func borrowContext(ref C.JSContextRef) *Context {
	return &Context{ref: ref, borrowed: true}
}

func (ctx *Context) raw() C.JSContextRef {
	if ctx.ref == nil {
		panic("jsc: use of closed Context")
	}
	return ctx.ref
}

func (ctx *Context) global() C.JSGlobalContextRef {
	return C.JSContextGetGlobalContext(ctx.raw())
}

// Borrowed reports whether ctx is a non-owning view.
func (ctx *Context) Borrowed() bool {
	return ctx.borrowed
}

// Close releases the context. Exceptions still holding values of the context
// drop them first. Borrowed views and already closed contexts are left
// untouched.
func (ctx *Context) Close() {
	if ctx.borrowed || ctx.ref == nil {
		return
	}
	ctx.unpinAll()
	if ctx.gcClose {
		C.JSGarbageCollect(ctx.ref)
	}
	C.JSGlobalContextRelease(C.JSGlobalContextRef(ctx.ref))
	ctx.ref = nil
	Logger().Debug("jsc: context closed")
}

// Group returns a retained reference to the context's group. The caller must
// release it.
func (ctx *Context) Group() *ContextGroup {
	ref := C.JSContextGetGroup(ctx.raw())
	return &ContextGroup{ref: C.JSContextGroupRetain(ref)}
}

// GlobalObject returns the context's global object.
func (ctx *Context) GlobalObject() (*Object, error) {
	obj := C.JSContextGetGlobalObject(ctx.raw())
	if obj == nil {
		return nil, ctx.newException(ErrNoGlobalObject)
	}
	return newObject(ctx, obj), nil
}

// Name returns the debug name of the context, if one was set.
func (ctx *Context) Name() (string, bool) {
	ref := C.JSGlobalContextCopyName(ctx.global())
	if ref == nil {
		return "", false
	}
	s := adoptString(ref)
	defer s.Release()
	return s.String(), true
}

// SetName sets the debug name of the context. An empty name clears it.
func (ctx *Context) SetName(name string) {
	if name == "" {
		C.JSGlobalContextSetName(ctx.global(), nil)
		return
	}
	s := NewString(name)
	defer s.Release()
	C.JSGlobalContextSetName(ctx.global(), s.raw())
}

// GarbageCollect asks the engine to run a collection.
func (ctx *Context) GarbageCollect() {
	C.JSGarbageCollect(ctx.raw())
}

type evalOptions struct {
	this      *Object
	sourceURL string
	line      int
}

// EvalOption configures Evaluate and CheckSyntax.
type EvalOption func(*evalOptions)

// EvalThis sets the object used as `this` by the script.
func EvalThis(this *Object) EvalOption {
	return func(o *evalOptions) {
		o.this = this
	}
}

// EvalSourceURL sets the URL reported in exceptions and stack traces.
func EvalSourceURL(url string) EvalOption {
	return func(o *evalOptions) {
		o.sourceURL = url
	}
}

// EvalStartingLine sets the line number of the script's first line.
func EvalStartingLine(line int) EvalOption {
	return func(o *evalOptions) {
		o.line = line
	}
}

func newEvalOptions(opts []EvalOption) evalOptions {
	o := evalOptions{line: 1}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Evaluate evaluates script and returns the value of its completion.
func (ctx *Context) Evaluate(script string, opts ...EvalOption) (Value, error) {
	o := newEvalOptions(opts)

	src := NewString(script)
	defer src.Release()

	var url C.JSStringRef
	if o.sourceURL != "" {
		u := NewString(o.sourceURL)
		defer u.Release()
		url = u.raw()
	}

	var this C.JSObjectRef
	if o.this != nil {
		this = o.this.raw()
	}

	var exc C.JSValueRef
	v := C.JSEvaluateScript(ctx.raw(), src.raw(), this, url, C.int(o.line), &exc)
	return ctx.checkValue(v, exc, ErrEvaluate)
}

// CheckSyntax reports the syntax error of script, if any, without running it.
func (ctx *Context) CheckSyntax(script string, opts ...EvalOption) error {
	o := newEvalOptions(opts)

	src := NewString(script)
	defer src.Release()

	var url C.JSStringRef
	if o.sourceURL != "" {
		u := NewString(o.sourceURL)
		defer u.Release()
		url = u.raw()
	}

	var exc C.JSValueRef
	C.JSCheckScriptSyntax(ctx.raw(), src.raw(), url, C.int(o.line), &exc)
	return ctx.check(exc)
}

// Undefined returns the undefined value.
func (ctx *Context) Undefined() Value {
	return Value{ctx: ctx, ref: C.JSValueMakeUndefined(ctx.raw())}
}

// Null returns the null value.
func (ctx *Context) Null() Value {
	return Value{ctx: ctx, ref: C.JSValueMakeNull(ctx.raw())}
}

// Bool returns a boolean value.
func (ctx *Context) Bool(b bool) Value {
	return Value{ctx: ctx, ref: C.JSValueMakeBoolean(ctx.raw(), C.bool(b))}
}

// Number returns a number value.
func (ctx *Context) Number(f float64) Value {
	return Value{ctx: ctx, ref: C.JSValueMakeNumber(ctx.raw(), C.double(f))}
}

// String returns a string value holding s.
func (ctx *Context) String(s string) Value {
	str := NewString(s)
	defer str.Release()
	return ctx.StringValue(str)
}

// StringValue returns a string value backed by s. The engine takes its own
// reference; s stays owned by the caller.
func (ctx *Context) StringValue(s *String) Value {
	return Value{ctx: ctx, ref: C.JSValueMakeString(ctx.raw(), s.raw())}
}

// Symbol returns a new unique symbol with the given description.
func (ctx *Context) Symbol(description string) Value {
	s := NewString(description)
	defer s.Release()
	return Value{ctx: ctx, ref: C.JSValueMakeSymbol(ctx.raw(), s.raw())}
}

// ValueFromJSON parses a JSON document. Invalid input returns an exception
// caused by ErrInvalidJSON.
func (ctx *Context) ValueFromJSON(json string) (Value, error) {
	s := NewString(json)
	defer s.Release()

	v := C.JSValueMakeFromJSONString(ctx.raw(), s.raw())
	if v == nil {
		return Value{}, ctx.newException(ErrInvalidJSON)
	}
	return Value{ctx: ctx, ref: v}, nil
}

// NewObject returns a new empty object.
func (ctx *Context) NewObject() *Object {
	return newObject(ctx, C.JSObjectMake(ctx.raw(), nil, nil))
}

// NewArray returns a new array holding values.
func (ctx *Context) NewArray(values ...Value) (*Object, error) {
	var exc C.JSValueRef
	var obj C.JSObjectRef
	if len(values) == 0 {
		obj = C.JSObjectMakeArray(ctx.raw(), 0, nil, &exc)
	} else {
		refs := rawValues(values)
		obj = C.JSObjectMakeArray(ctx.raw(), C.size_t(len(refs)), &refs[0], &exc)
	}
	return ctx.checkObject(obj, exc, ErrNotObject)
}

// NewError returns a new Error object with the given message.
func (ctx *Context) NewError(message string) (*Object, error) {
	msg := ctx.String(message)
	args := []C.JSValueRef{msg.ref}

	var exc C.JSValueRef
	obj := C.JSObjectMakeError(ctx.raw(), 1, &args[0], &exc)
	return ctx.checkObject(obj, exc, ErrNotObject)
}

// NewDate returns a new Date object for t, truncated to milliseconds.
func (ctx *Context) NewDate(t time.Time) (*Object, error) {
	ms := ctx.Number(float64(t.UnixMilli()))
	args := []C.JSValueRef{ms.ref}

	var exc C.JSValueRef
	obj := C.JSObjectMakeDate(ctx.raw(), 1, &args[0], &exc)
	return ctx.checkObject(obj, exc, ErrNotObject)
}

// NewFunction returns a function object that runs fn when called from
// JavaScript. The name must be valid UTF-8 without NUL bytes.
func (ctx *Context) NewFunction(name string, fn FunctionCallback) (*Object, error) {
	mustBeName(name)

	slot := &hostSlot{hooks: &classHooks{name: name, call: fn}}
	id := slots.Store(slot)

	obj := C.JSObjectMake(ctx.raw(), functionClass(), idToPrivate(id))
	if obj == nil {
		slots.Delete(id)
		return nil, ctx.newException(ErrNotFunction)
	}
	fnObj := newObject(ctx, obj)
	fnObj.Protect()
	defer fnObj.Unprotect()

	if err := ctx.linkFunctionPrototype(fnObj); err != nil {
		return nil, err
	}
	if err := fnObj.SetWithAttributes("name", ctx.String(name),
		PropertyReadOnly|PropertyDontEnum|PropertyDontDelete); err != nil {
		return nil, err
	}
	return fnObj, nil
}

func (ctx *Context) linkFunctionPrototype(fn *Object) error {
	global, err := ctx.GlobalObject()
	if err != nil {
		return err
	}
	ctor, err := global.Get("Function")
	if err != nil {
		return err
	}
	ctorObj, err := ctor.ToObject()
	if err != nil {
		return err
	}
	ctorObj.Protect()
	defer ctorObj.Unprotect()
	proto, err := ctorObj.Get("prototype")
	if err != nil {
		return err
	}
	fn.SetPrototype(proto)
	return nil
}

// adoptGlobalObject gives a global object created from a host class its slot,
// which the engine could not receive through JSGlobalContextCreate.
func (ctx *Context) adoptGlobalObject(class *Class) error {
	global, err := ctx.GlobalObject()
	if err != nil {
		return err
	}
	slot := &hostSlot{hooks: class.hooks}
	id := slots.Store(slot)
	if !bool(C.JSObjectSetPrivate(global.raw(), idToPrivate(id))) {
		slots.Delete(id)
		Logger().Warn("jsc: global object does not accept private data", zap.String("class", class.hooks.name))
		return nil
	}
	installMethods(ctx, global, slot)
	return nil
}

func rawValues(values []Value) []C.JSValueRef {
	refs := make([]C.JSValueRef, len(values))
	for i, v := range values {
		refs[i] = v.ref
	}
	return refs
}

// callArgs returns the count and pointer JavaScriptCore expects for an
// argument list; an empty list is (0, NULL).
func callArgs(refs []C.JSValueRef) (C.size_t, *C.JSValueRef) {
	if len(refs) == 0 {
		return 0, nil
	}
	return C.size_t(len(refs)), &refs[0]
}
