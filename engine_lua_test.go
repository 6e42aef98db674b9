package resourcecache

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
)

func newLuaEngine(t *testing.T) *LuaEngine {
	t.Helper()
	e := &LuaEngine{}
	e.New()
	t.Cleanup(e.Close)
	return e
}

func luaGlobal(t *testing.T, e *LuaEngine, name string) interface{} {
	t.Helper()
	require.NoError(t, e.ParseString(`function __get() return `+name+` end`))
	rets, err := e.Call("__get", 1)
	require.NoError(t, err)
	require.Len(t, rets, 1)
	return rets[0]
}

func TestLuaEngine_RegisterModuleMergesIntoExistingTable(t *testing.T) {
	e := newLuaEngine(t)
	require.NoError(t, e.ParseString(`NS = { keep = "kept" }`))

	e.RegisterModule("NS", map[string]interface{}{
		"twice": func(x int) int { return 2 * x },
	})

	require.NoError(t, e.ParseString(`result = NS.twice(21)`))
	assert.EqualValues(t, 42, luaGlobal(t, e, "result"))
	assert.Equal(t, "kept", luaGlobal(t, e, "NS.keep"))

	require.NoError(t, e.ParseString(`same = require("NS") == NS`))
	assert.Equal(t, true, luaGlobal(t, e, "same"))
}

func TestLuaEngine_NativeErrorIsRaised(t *testing.T) {
	e := newLuaEngine(t)
	e.RegisterFunction("fail", func() error { return errors.New("nope") })

	require.NoError(t, e.ParseString(`ok, msg = pcall(fail)`))
	assert.Equal(t, false, luaGlobal(t, e, "ok"))
	assert.Contains(t, luaGlobal(t, e, "msg"), "nope")

	assert.Error(t, e.ParseString(`fail()`))
}

func TestLuaEngine_LookupAndInvoke(t *testing.T) {
	e := newLuaEngine(t)
	require.NoError(t, e.ParseString(`
		obj = { n = 0, label = "x" }
		function obj:add(k) self.n = self.n + k end
	`))

	obj, ok := e.Lookup("obj")
	require.True(t, ok)
	require.NoError(t, e.Invoke(obj, "add", 5))
	require.NoError(t, e.Invoke(obj, "add", 2))

	n, ok := e.Lookup("obj.n")
	require.True(t, ok)
	assert.Equal(t, lua.LNumber(7), n)

	assert.Error(t, e.Invoke(obj, "label"))
	assert.Error(t, e.Invoke("not a table", "add"))

	_, ok = e.Lookup("nothing")
	assert.False(t, ok)
	_, ok = e.Lookup("obj.missing.deep")
	assert.False(t, ok)
}

func TestLuaEngine_PassesScriptValuesThrough(t *testing.T) {
	e := newLuaEngine(t)
	require.NoError(t, e.ParseString(`
		marker = {}
		holder = {}
		function holder:set(v) self.same = (v == marker) end
	`))
	marker, ok := e.Lookup("marker")
	require.True(t, ok)
	holder, ok := e.Lookup("holder")
	require.True(t, ok)

	require.NoError(t, e.Invoke(holder, "set", marker))
	assert.Equal(t, true, luaGlobal(t, e, "holder.same"))
}

func TestLuaEngine_PreloadedModules(t *testing.T) {
	e := newLuaEngine(t)
	require.NoError(t, e.ParseString(`
		local json = require("json")
		decoded = json.decode('{"a":1}').a
		local re = require("re")
		matched = re.match("resource-42", "[0-9]+")
		local url = require("url")
		host = url.parse("https://cdn.example.com/a.glb").host
	`))
	assert.EqualValues(t, 1, luaGlobal(t, e, "decoded"))
	assert.Equal(t, "42", luaGlobal(t, e, "matched"))
	assert.Equal(t, "cdn.example.com", luaGlobal(t, e, "host"))
}

func TestLuaEngine_IsFunction(t *testing.T) {
	e := newLuaEngine(t)
	require.NoError(t, e.ParseString(`function f() end v = 1`))
	assert.True(t, e.IsFunction("f"))
	assert.False(t, e.IsFunction("v"))
}

func TestLuaEngine_RegisterObject(t *testing.T) {
	e := newLuaEngine(t)
	e.RegisterObject("ENV", map[string]interface{}{"name": "main"})

	assert.Equal(t, "main", luaGlobal(t, e, "ENV.name"))
}
