package resourcecache

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGoEngine(t *testing.T) *GoEngine {
	t.Helper()
	e := &GoEngine{}
	e.New()
	t.Cleanup(e.Close)
	return e
}

func TestGoEngine_Call(t *testing.T) {
	e := newGoEngine(t)
	require.NoError(t, e.ParseString(`func add(a, b int) int { return a + b }`))

	assert.True(t, e.IsFunction("add"))
	rets, err := e.Call("add", 1, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{5}, rets)

	_, err = e.Call("missing", 1)
	assert.Error(t, err)
}

func TestGoEngine_RegisterModule(t *testing.T) {
	e := newGoEngine(t)
	e.RegisterModule("BABYLON", map[string]interface{}{
		"twice": func(x int) int { return 2 * x },
	})

	require.NoError(t, e.ParseString(`import "babylon"`))
	require.NoError(t, e.ParseString(`func quad(x int) int { return babylon.Twice(babylon.Twice(x)) }`))

	rets, err := e.Call("quad", 1, 3)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{12}, rets)
}

const goCounterpart = `
type meta struct{ Name string }

var calls []string

var app = map[string]interface{}{
	"cache": map[string]func(...interface{}){
		"record": func(args ...interface{}) {
			calls = append(calls, args[0].(string))
		},
	},
}

var scene = meta{Name: "main"}

func recorded() int { return len(calls) }
`

func TestGoEngine_Lookup(t *testing.T) {
	e := newGoEngine(t)
	require.NoError(t, e.ParseString(goCounterpart))

	v, ok := e.Lookup("scene.name")
	require.True(t, ok)
	rv, ok := v.(reflect.Value)
	require.True(t, ok)
	assert.Equal(t, "main", rv.Interface())

	_, ok = e.Lookup("app.cache")
	assert.True(t, ok)

	for _, path := range []string{"missing", "app.missing", "scene.missing", "scene.name.deeper"} {
		_, ok := e.Lookup(path)
		assert.False(t, ok, path)
	}
}

func TestGoEngine_Invoke(t *testing.T) {
	e := newGoEngine(t)
	require.NoError(t, e.ParseString(goCounterpart))

	cache, ok := e.Lookup("app.cache")
	require.True(t, ok)
	require.NoError(t, e.Invoke(cache, "record", "first"))
	require.NoError(t, e.Invoke(cache, "record", "second"))

	rets, err := e.Call("recorded", 1)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{2}, rets)

	assert.Error(t, e.Invoke(cache, "missing"))
	assert.Error(t, e.Invoke("not a value", "record"))
}
