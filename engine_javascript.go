package resourcecache

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/robertkrimen/otto"
)

const (
	TypeEngineJs = "js"
)

type JsEngine struct {
	vm    *otto.Otto
	ready bool
}

func (e *JsEngine) New() {
	e.vm = otto.New()
	e.ready = false
}

func (e *JsEngine) IsReady() bool {
	return e.ready
}

func (e *JsEngine) SetReady() {
	e.ready = true
}

func (e *JsEngine) ParseString(source string) error {
	_, err := e.vm.Run(source)
	return err
}

func (e *JsEngine) ParseFile(path string) error {
	script, err := e.vm.Compile(path, nil)
	if err != nil {
		return err
	}
	_, err = e.vm.Run(script)
	return err
}

func (e *JsEngine) RegisterObject(objectName string, objectPtr interface{}) {
	e.vm.Set(objectName, objectPtr)
}

func (e *JsEngine) RegisterFunction(goFuncName string, goFuncPtr interface{}) {
	e.vm.Set(goFuncName, e.wrap(goFuncPtr))
}

// RegisterModule merges the functions into the global object moduleName,
// creating it when absent.
func (e *JsEngine) RegisterModule(moduleName string, moduleFuncPtr map[string]interface{}) {
	var mod *otto.Object
	if val, err := e.vm.Get(moduleName); err == nil && val.IsObject() {
		mod = val.Object()
	} else {
		mod, _ = e.vm.Object("({})")
		e.vm.Set(moduleName, mod)
	}
	for goFuncName, goFuncPtr := range moduleFuncPtr {
		mod.Set(goFuncName, e.wrap(goFuncPtr))
	}
}

// wrap adapts a Go function to an otto native function. A non-nil trailing
// error result is thrown as a script exception.
func (e *JsEngine) wrap(goFuncPtr interface{}) func(call otto.FunctionCall) otto.Value {
	goFuncVal := reflect.ValueOf(goFuncPtr)
	if goFuncVal.Kind() != reflect.Func {
		panic("register not invalid function")
	}
	goFuncType := goFuncVal.Type()

	return func(call otto.FunctionCall) otto.Value {
		args := make([]interface{}, len(call.ArgumentList))
		for i, jsParam := range call.ArgumentList {
			val, err := jsParam.Export()
			if err != nil {
				panic(e.vm.MakeTypeError(err.Error()))
			}
			args[i] = val
		}

		rets, err := nativeOut(goFuncType, goFuncVal.Call(nativeIn(goFuncType, args)))
		if err != nil {
			panic(e.vm.MakeCustomError("ResourceCacheError", err.Error()))
		}
		if len(rets) == 0 || rets[0] == nil {
			return otto.NullValue()
		}
		result, _ := e.vm.ToValue(rets[0])
		return result
	}
}

func (e *JsEngine) IsFunction(scriptFuncName string) bool {
	val, err := e.vm.Get(scriptFuncName)
	return err == nil && val.IsFunction()
}

func (e *JsEngine) Call(scriptFuncName string, retNum int, args ...interface{}) ([]interface{}, error) {
	value, err := e.vm.Call(scriptFuncName, nil, args...)
	if err != nil {
		return nil, err
	}
	if retNum == 0 {
		return nil, nil
	}
	data, err := value.Export()
	if err != nil {
		return nil, err
	}
	return []interface{}{data}, nil
}

func (e *JsEngine) Lookup(path string) (Value, bool) {
	segments := strings.Split(path, ".")
	val, err := e.vm.Get(segments[0])
	if err != nil {
		return nil, false
	}
	for _, seg := range segments[1:] {
		if !val.IsObject() {
			return nil, false
		}
		if val, err = val.Object().Get(seg); err != nil {
			return nil, false
		}
	}
	if val.IsUndefined() || val.IsNull() {
		return nil, false
	}
	return val, true
}

func (e *JsEngine) Invoke(object Value, method string, args ...interface{}) error {
	val, ok := object.(otto.Value)
	if !ok || !val.IsObject() {
		return fmt.Errorf("invoke %s: not a script object", method)
	}
	fn, err := val.Object().Get(method)
	if err != nil {
		return err
	}
	if !fn.IsFunction() {
		return fmt.Errorf("invoke %s: not a function", method)
	}
	_, err = val.Object().Call(method, args...)
	return err
}

func (e *JsEngine) Close() {
}
