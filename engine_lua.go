package resourcecache

import (
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/ailncode/gluaxmlpath"
	"github.com/ciaos/gluahttp"
	"github.com/cjoudrey/gluaurl"
	"github.com/yuin/gluamapper"
	"github.com/yuin/gluare"
	lua "github.com/yuin/gopher-lua"
	luajson "layeh.com/gopher-json"
	luar "layeh.com/gopher-luar"
)

const (
	TypeEngineLua = "lua"
)

type LuaEngine struct {
	vm    *lua.LState
	ready bool
}

func (e *LuaEngine) New() {
	e.vm = lua.NewState()
	luajson.Preload(e.vm)
	e.vm.PreloadModule("url", gluaurl.Loader)
	e.vm.PreloadModule("re", gluare.Loader)
	e.vm.PreloadModule("http", gluahttp.NewHttpModule(&http.Client{
		Timeout: 30 * time.Second,
	}).Loader)
	e.vm.PreloadModule("xmlpath", gluaxmlpath.Loader)
	e.ready = false
}

func (e *LuaEngine) IsReady() bool {
	return e.ready
}
func (e *LuaEngine) SetReady() {
	e.ready = true
}

func (e *LuaEngine) ParseString(source string) error {
	return e.vm.DoString(source)
}

func (e *LuaEngine) ParseFile(path string) error {
	return e.vm.DoFile(path)
}

func (e *LuaEngine) toLuaValue(src interface{}) lua.LValue {
	if src == nil {
		return lua.LNil
	}
	if lv, ok := src.(lua.LValue); ok {
		return lv
	}
	if reflect.ValueOf(src).Kind() == reflect.Map {
		dst := &lua.LTable{}
		srcVal := reflect.ValueOf(src)
		for _, key := range srcVal.MapKeys() {
			dst.RawSet(luar.New(e.vm, key.Interface()), e.toLuaValue(srcVal.MapIndex(key).Interface()))
		}
		return dst
	} else if reflect.ValueOf(src).Kind() == reflect.Slice {
		dst := &lua.LTable{}
		srcVal := reflect.ValueOf(src)
		for i := 0; i < srcVal.Len(); i++ {
			dst.Append(e.toLuaValue(srcVal.Index(i).Interface()))
		}
		return dst
	} else {
		return luar.New(e.vm, src)
	}
}

func (e *LuaEngine) toGoValue(src lua.LValue) interface{} {
	switch v := src.(type) {
	case *lua.LTable:
		maxn := v.MaxN()
		if maxn == 0 { // table
			ret := make(map[string]interface{})
			v.ForEach(func(key, value lua.LValue) {
				keyStr := fmt.Sprint(e.toGoValue(key))
				if keyStr != "" && unicode.IsLower(rune(keyStr[0])) {
					ret[gluamapper.ToUpperCamelCase(keyStr)] = e.toGoValue(value)
				} else {
					ret[keyStr] = e.toGoValue(value)
				}
			})
			return ret
		} else { // array
			ret := make([]interface{}, 0, maxn)
			for i := 1; i <= maxn; i++ {
				ret = append(ret, e.toGoValue(v.RawGetInt(i)))
			}
			return ret
		}
	case *lua.LUserData:
		return v.Value
	default:
		return gluamapper.ToGoValue(src, gluamapper.Option{NameFunc: gluamapper.ToUpperCamelCase})
	}
}

func (e *LuaEngine) RegisterObject(objectName string, objectPtr interface{}) {
	dst := e.toLuaValue(objectPtr)
	e.vm.SetGlobal(objectName, dst)
}

// wrap adapts a Go function to a Lua function. A non-nil trailing error
// result is raised as a Lua error.
func (e *LuaEngine) wrap(goFuncPtr interface{}) lua.LGFunction {
	goFuncVal := reflect.ValueOf(goFuncPtr)
	if goFuncVal.Kind() != reflect.Func {
		panic("register not invalid function")
	}
	goFuncType := goFuncVal.Type()

	return func(L *lua.LState) int {
		args := make([]interface{}, L.GetTop())
		for i := range args {
			args[i] = e.toGoValue(L.Get(i + 1))
		}

		goRet, err := nativeOut(goFuncType, goFuncVal.Call(nativeIn(goFuncType, args)))
		if err != nil {
			L.RaiseError("%s", err.Error())
			return 0
		}
		for i := 0; i < len(goRet); i++ {
			L.Push(e.toLuaValue(goRet[i]))
		}
		return len(goRet)
	}
}

func (e *LuaEngine) RegisterFunction(goFuncName string, goFuncPtr interface{}) {
	e.vm.SetGlobal(goFuncName, e.vm.NewFunction(e.wrap(goFuncPtr)))
}

// RegisterModule merges the functions into the global table moduleName and
// makes the same table available through require(moduleName).
func (e *LuaEngine) RegisterModule(moduleName string, moduleFuncPtr map[string]interface{}) {
	exports := make(map[string]lua.LGFunction)
	for goFuncName, goFuncPtr := range moduleFuncPtr {
		exports[goFuncName] = e.wrap(goFuncPtr)
	}

	mod, ok := e.vm.GetGlobal(moduleName).(*lua.LTable)
	if !ok {
		mod = e.vm.NewTable()
		e.vm.SetGlobal(moduleName, mod)
	}
	e.vm.SetFuncs(mod, exports)

	e.vm.PreloadModule(moduleName, func(L *lua.LState) int {
		L.Push(mod)
		return 1
	})
}

func (e *LuaEngine) IsFunction(scriptFuncName string) bool {
	val := e.vm.GetGlobal(scriptFuncName)
	return val.Type() == lua.LTFunction
}

func (e *LuaEngine) Call(scriptFuncName string, retNum int, args ...interface{}) ([]interface{}, error) {

	luaArgs := make([]lua.LValue, len(args))
	for i := 0; i < len(args); i++ {
		luaArgs[i] = e.toLuaValue(args[i])
	}

	if err := e.vm.CallByParam(lua.P{
		Fn:      e.vm.GetGlobal(scriptFuncName),
		NRet:    retNum,
		Protect: true,
		Handler: nil,
	}, luaArgs...); err != nil {
		return nil, err
	}

	rets := make([]interface{}, 0)
	for i := 0; i < retNum; i++ {
		luaRet := e.vm.Get(-1)
		e.vm.Pop(1)

		res := e.toGoValue(luaRet)
		rets = append([]interface{}{res}, rets...)
	}

	return rets, nil
}

func (e *LuaEngine) Lookup(path string) (Value, bool) {
	segments := strings.Split(path, ".")
	val := e.vm.GetGlobal(segments[0])
	for _, seg := range segments[1:] {
		tbl, ok := val.(*lua.LTable)
		if !ok {
			return nil, false
		}
		val = e.vm.GetField(tbl, seg)
	}
	if val == lua.LNil {
		return nil, false
	}
	return val, true
}

// Invoke calls object:method(args...).
func (e *LuaEngine) Invoke(object Value, method string, args ...interface{}) error {
	tbl, ok := object.(*lua.LTable)
	if !ok {
		return fmt.Errorf("invoke %s: not a table", method)
	}
	fn := e.vm.GetField(tbl, method)
	if fn.Type() != lua.LTFunction {
		return fmt.Errorf("invoke %s: not a function", method)
	}

	luaArgs := make([]lua.LValue, 0, len(args)+1)
	luaArgs = append(luaArgs, tbl)
	for _, arg := range args {
		luaArgs = append(luaArgs, e.toLuaValue(arg))
	}
	return e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, luaArgs...)
}

func (e *LuaEngine) Close() {
	e.vm.Close()
}

func (e *LuaEngine) GetVM() *lua.LState {
	return e.vm
}
