package resourcecache

import (
	"encoding/json"
	"testing"

	"github.com/robertkrimen/otto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cacheSummary struct {
	Resources   int      `json:"resources"`
	Experiences []string `json:"experiences"`
	Updates     int      `json:"updates"`
	HasScene    bool     `json:"hasScene"`
}

func TestPlugin_BundledScripts(t *testing.T) {
	scenes := map[string]string{
		TypeEngineJs:  `var mainScene = { name: "main" };`,
		TypeEngineLua: `mainScene = { name = "main" }`,
		TypeEngineGo:  `var mainScene = map[string]string{"name": "main"}`,
	}
	for engineType, sceneSource := range scenes {
		t.Run(engineType, func(t *testing.T) {
			sink := &errorSink{}
			rt := newTestRuntime(t, engineType, WithErrorHandler(sink.handle))
			plugin := NewPlugin(
				WithScriptPath(DefaultScriptPath(engineType)),
				WithLogger(discardLogger()),
			)
			cache, err := plugin.NewCache(rt)
			require.NoError(t, err)
			defer cache.Close()

			cache.LoadResourcesFromJSON("expA", `{"resources":[{"id":"a1","url":"u1"},{"id":"a2","url":"u2"}]}`)
			cache.LoadResourcesFromJSON("expB", `{"resources":[{"id":"b1","url":"u3","type":"mesh"}]}`)
			cache.UpdateResource("a1", "u1-v2")

			// One barrier for the script load and ready signal, one for the
			// commands it drained.
			barrier(t, rt)
			barrier(t, rt)
			require.True(t, cache.IsReady())
			require.NotNil(t, cache.ObjectHandle())

			var scene Value
			require.NoError(t, rt.Sync(testContext(t), func(e Engine) error {
				if err := e.ParseString(sceneSource); err != nil {
					return err
				}
				scene, _ = e.Lookup("mainScene")
				return nil
			}))
			cache.SetScene(scene)
			barrier(t, rt)

			var raw []interface{}
			require.NoError(t, rt.Sync(testContext(t), func(e Engine) error {
				var err error
				raw, err = e.Call("resourceCacheSummary", 1)
				return err
			}))
			require.Len(t, raw, 1)

			var got cacheSummary
			require.NoError(t, json.Unmarshal([]byte(raw[0].(string)), &got))
			assert.Equal(t, cacheSummary{
				Resources:   3,
				Experiences: []string{"expA", "expB"},
				Updates:     1,
				HasScene:    true,
			}, got)
			assert.Empty(t, sink.all())
		})
	}
}

func TestPlugin_GetResourceCacheAccessor(t *testing.T) {
	rt := newTestRuntime(t, TypeEngineJs)
	plugin := NewPlugin(WithLogger(discardLogger()))
	cache, err := plugin.NewCache(rt)
	require.NoError(t, err)
	defer cache.Close()
	barrier(t, rt)

	var same, again otto.Value
	require.NoError(t, rt.Sync(testContext(t), func(e Engine) error {
		// A second install must leave the bindings untouched.
		plugin.Install(rt, e)
		err := e.ParseString(`
			var same = BABYLON.getResourceCache() === BABYLON._resourceCache;
			var again = BABYLON.getResourceCache() === BABYLON.getResourceCache();
		`)
		if err != nil {
			return err
		}
		v, _ := e.Lookup("same")
		same = v.(otto.Value)
		v, _ = e.Lookup("again")
		again = v.(otto.Value)
		return nil
	}))
	assert.Equal(t, "true", same.String())
	assert.Equal(t, "true", again.String())
}

func TestPlugin_CustomBinding(t *testing.T) {
	rt := newTestRuntime(t, TypeEngineJs)
	plugin := newTestPlugin(`
		APP.cache = { loadFromJSON: function (p, id) { APP.last = id + "=" + p; } };
		APP.signalReady();
	`, WithBinding("APP", "cache"))
	cache, err := plugin.NewCache(rt)
	require.NoError(t, err)
	defer cache.Close()

	cache.LoadResourcesFromJSON("expA", "{}")
	barrier(t, rt)
	barrier(t, rt)
	require.True(t, cache.IsReady())

	var last otto.Value
	require.NoError(t, rt.Sync(testContext(t), func(e Engine) error {
		v, _ := e.Lookup("APP.last")
		last, _ = v.(otto.Value)
		return nil
	}))
	assert.Equal(t, "expA={}", last.String())
}
