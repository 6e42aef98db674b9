package resourcecache

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"github.com/yuin/gluamapper"
)

const (
	TypeEngineGo = "go"
)

// GoEngine interprets Go source with yaegi. Native modules are exposed as
// importable packages (import "babylon" for module "BABYLON") with
// exported function names.
type GoEngine struct {
	i       *interp.Interpreter
	symbols map[string]reflect.Value
	fn      map[string]reflect.Value
	ready   bool
}

func (e *GoEngine) New() {
	e.i = interp.New(interp.Options{})
	e.symbols = make(map[string]reflect.Value)
	e.fn = make(map[string]reflect.Value)
	err := e.i.Use(stdlib.Symbols)
	if err != nil {
		panic(err)
	}
	e.ready = false
}

func (e *GoEngine) IsReady() bool {
	return e.ready
}

func (e *GoEngine) SetReady() {
	symbols := map[string]map[string]reflect.Value{
		"gos/gos": e.symbols,
	}
	e.i.Use(symbols)
	e.ready = true
}

func (e *GoEngine) ParseString(source string) error {
	_, err := e.i.Eval(source)
	return err
}

func (e *GoEngine) ParseFile(path string) error {
	_, err := e.i.EvalPath(path)
	return err
}

func (e *GoEngine) RegisterObject(objectName string, objectPtr interface{}) {
	e.symbols[objectName] = reflect.ValueOf(objectPtr)
}

func (e *GoEngine) RegisterFunction(goFuncName string, goFuncPtr interface{}) {
	e.symbols[goFuncName] = reflect.ValueOf(goFuncPtr)
}

func (e *GoEngine) RegisterModule(moduleName string, moduleFuncPtr map[string]interface{}) {
	modFuncSymbols := make(map[string]reflect.Value)
	for k, v := range moduleFuncPtr {
		modFuncSymbols[gluamapper.ToUpperCamelCase(k)] = reflect.ValueOf(v)
	}
	pkg := strings.ToLower(moduleName)
	symbols := map[string]map[string]reflect.Value{
		pkg + "/" + pkg: modFuncSymbols,
	}
	e.i.Use(symbols)
}

func (e *GoEngine) IsFunction(scriptFuncName string) bool {
	f, err := e.i.Eval(scriptFuncName)
	return err == nil && f.Kind() == reflect.Func
}

func (e *GoEngine) Call(scriptFuncName string, retNum int, args ...interface{}) ([]interface{}, error) {
	var f reflect.Value
	var ok bool
	var err error
	if f, ok = e.fn[scriptFuncName]; !ok {
		f, err = e.i.Eval(scriptFuncName)
		if err != nil {
			return nil, err
		}
		if f.Kind() != reflect.Func {
			return nil, fmt.Errorf("call %s: not a function", scriptFuncName)
		}
		e.fn[scriptFuncName] = f
	}
	return nativeOut(f.Type(), f.Call(nativeIn(f.Type(), unwrapReflect(args))))
}

func (e *GoEngine) Lookup(path string) (Value, bool) {
	segments := strings.Split(path, ".")
	// Globals rather than Eval: Lookup also runs from native functions
	// called while a script is being evaluated.
	v, ok := e.i.Globals()[segments[0]]
	if !ok || !v.IsValid() {
		return nil, false
	}
	for _, seg := range segments[1:] {
		if v = member(v, seg); !v.IsValid() {
			return nil, false
		}
	}
	return v, true
}

func (e *GoEngine) Invoke(object Value, method string, args ...interface{}) error {
	v, ok := object.(reflect.Value)
	if !ok {
		return fmt.Errorf("invoke %s: not an interpreted value", method)
	}
	fn := indirect(member(v, method))
	if fn.Kind() != reflect.Func {
		return fmt.Errorf("invoke %s: not a function", method)
	}
	_, err := nativeOut(fn.Type(), fn.Call(nativeIn(fn.Type(), unwrapReflect(args))))
	return err
}

func (e *GoEngine) Close() {
}

// member resolves name as a method, a map key or an exported struct field.
func member(v reflect.Value, name string) reflect.Value {
	if !v.IsValid() {
		return reflect.Value{}
	}
	exported := gluamapper.ToUpperCamelCase(name)
	if m := v.MethodByName(exported); m.IsValid() {
		return m
	}
	v = indirect(v)
	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return reflect.Value{}
		}
		return v.MapIndex(reflect.ValueOf(name).Convert(v.Type().Key()))
	case reflect.Struct:
		return v.FieldByName(exported)
	}
	return reflect.Value{}
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Interface || v.Kind() == reflect.Ptr) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func unwrapReflect(args []interface{}) []interface{} {
	out := make([]interface{}, len(args))
	for i, arg := range args {
		if rv, ok := arg.(reflect.Value); ok && rv.IsValid() && rv.CanInterface() {
			out[i] = rv.Interface()
			continue
		}
		out[i] = arg
	}
	return out
}
