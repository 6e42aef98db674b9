package resourcecache

import "reflect"

// Value is an opaque script-side value: an otto.Value, a lua.LValue or a
// reflect.Value depending on the engine that produced it.
type Value interface{}

type Engine interface {
	New()

	// IsReady reports whether the native bindings have been installed.
	IsReady() bool
	SetReady()

	ParseString(source string) error
	ParseFile(path string) error

	RegisterObject(objectName string, objectPtr interface{})
	RegisterFunction(goFuncName string, goFuncPtr interface{})
	RegisterModule(moduleName string, moduleFuncPtr map[string]interface{})

	IsFunction(scriptFuncName string) bool
	Call(scriptFuncName string, retNum int, args ...interface{}) ([]interface{}, error)

	// Lookup resolves a dotted path such as "BABYLON._resourceCache" from the
	// global scope. It reports false when any segment is missing.
	Lookup(path string) (Value, bool)
	// Invoke calls method on an object previously returned by Lookup.
	Invoke(object Value, method string, args ...interface{}) error

	Close()
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// nativeIn converts script-side arguments into the parameter list of a Go
// function, substituting zero values for missing or nil arguments.
func nativeIn(fnType reflect.Type, args []interface{}) []reflect.Value {
	n := fnType.NumIn()
	if fnType.IsVariadic() && len(args) > n {
		n = len(args)
	}
	in := make([]reflect.Value, 0, n)
	for i := 0; i < n; i++ {
		var pt reflect.Type
		if fnType.IsVariadic() && i >= fnType.NumIn()-1 {
			pt = fnType.In(fnType.NumIn() - 1).Elem()
		} else {
			pt = fnType.In(i)
		}
		if i >= len(args) && fnType.IsVariadic() && i >= fnType.NumIn()-1 {
			break
		}
		if i >= len(args) || args[i] == nil {
			in = append(in, reflect.Zero(pt))
			continue
		}
		v := reflect.ValueOf(args[i])
		if !v.Type().AssignableTo(pt) && v.Type().ConvertibleTo(pt) {
			v = v.Convert(pt)
		}
		in = append(in, v)
	}
	return in
}

// nativeOut splits the results of a Go function call into plain values and
// a trailing error, if the function declares one.
func nativeOut(fnType reflect.Type, rets []reflect.Value) ([]interface{}, error) {
	var err error
	if n := fnType.NumOut(); n > 0 && fnType.Out(n-1) == errorType {
		if e, ok := rets[n-1].Interface().(error); ok && e != nil {
			err = e
		}
		rets = rets[:n-1]
	}
	out := make([]interface{}, 0, len(rets))
	for _, r := range rets {
		out = append(out, r.Interface())
	}
	return out, err
}
