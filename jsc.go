/*
Package jsc provides Go bindings to JavaScriptCore: the JavaScript engine of WebKit, reached through its public C API.

The package is an ownership boundary. Owned handles (Context, ContextGroup,
String, Class, PropertyNames) are released exactly once by Close or Release;
borrowed views handed to callbacks never release. Every fallible engine call
returns an error whose dynamic type is *Exception; configuration loading, which
runs before any context exists, returns plain errors wrapping ErrInvalidConfig.
*/
package jsc

/*
#cgo linux pkg-config: javascriptcoregtk-4.1
#cgo darwin LDFLAGS: -framework JavaScriptCore
*/
import "C"
