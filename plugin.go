package resourcecache

import (
	"fmt"
	"log/slog"
)

const (
	DefaultNamespace = "BABYLON"
	DefaultProperty  = "_resourceCache"
)

// Script entry points registered on the namespace object.
const (
	EntryGetResourceCache = "getResourceCache"
	EntrySignalReady      = "signalReady"
)

// Plugin binds resource caches to runtimes. It owns the registry that lets
// a ready signal raised inside a runtime find the cache of that runtime.
type Plugin struct {
	registry   *Registry
	loader     *ScriptLoader
	logger     *slog.Logger
	namespace  string
	property   string
	scriptPath string
	gateAll    bool
}

// Option configures a Plugin.
type Option func(*Plugin)

// WithRegistry shares a registry between plugins.
func WithRegistry(r *Registry) Option {
	return func(p *Plugin) {
		p.registry = r
	}
}

// WithLoader sets the loader used for the counterpart script.
func WithLoader(l *ScriptLoader) Option {
	return func(p *Plugin) {
		p.loader = l
	}
}

// WithLogger sets the plugin logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Plugin) {
		p.logger = logger
	}
}

// WithBinding sets the namespace object and the property on it that holds
// the counterpart.
func WithBinding(namespace, property string) Option {
	return func(p *Plugin) {
		p.namespace = namespace
		p.property = property
	}
}

// WithScriptPath sets the logical path of the counterpart script.
func WithScriptPath(path string) Option {
	return func(p *Plugin) {
		p.scriptPath = path
	}
}

// WithGateAll controls whether SetScene and UpdateResource wait for
// readiness like LoadResourcesFromJSON does. It defaults to true.
func WithGateAll(gateAll bool) Option {
	return func(p *Plugin) {
		p.gateAll = gateAll
	}
}

// NewPlugin returns a plugin with its own registry and the bundled scripts.
func NewPlugin(opts ...Option) *Plugin {
	p := &Plugin{
		namespace:  DefaultNamespace,
		property:   DefaultProperty,
		scriptPath: DefaultScriptPath(TypeEngineJs),
		gateAll:    true,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.registry == nil {
		p.registry = NewRegistry()
	}
	if p.loader == nil {
		p.loader = NewScriptLoader(nil)
	}
	return p
}

// Registry returns the plugin registry.
func (p *Plugin) Registry() *Registry {
	return p.registry
}

func (p *Plugin) counterpartPath() string {
	return p.namespace + "." + p.property
}

// NewCache creates the cache for rt and registers it. Script loading and
// binding installation happen asynchronously on the runtime goroutine.
func (p *Plugin) NewCache(rt *Runtime) (*Cache, error) {
	c := &Cache{
		handle:  rt.Handle(),
		runtime: rt,
		plugin:  p,
		logger:  p.logger.With("runtime", string(rt.Handle())),
	}
	if err := p.registry.Register(c.handle, c); err != nil {
		return nil, err
	}

	h := c.handle
	rt.Dispatch(func(e Engine) error {
		p.Install(rt, e)
		if _, ok := e.Lookup(p.counterpartPath()); ok {
			return p.SignalReady(e, h)
		}
		return p.loader.Load(e, p.scriptPath)
	})
	c.logger.Debug("Resource cache created.")
	return c, nil
}

// Install registers the namespace entry points on the engine of rt so that
// they resolve through this plugin's registry. It is a no-op when this
// plugin already owns the bindings, and rebinds them when another plugin
// installed them earlier. It must run on the runtime goroutine of rt.
func (p *Plugin) Install(rt *Runtime, e Engine) {
	if rt.binder == p {
		return
	}
	h := rt.Handle()
	path := p.counterpartPath()
	e.RegisterModule(p.namespace, map[string]interface{}{
		EntryGetResourceCache: func() Value {
			v, ok := e.Lookup(path)
			if !ok {
				return nil
			}
			return unwrapReflect([]interface{}{v})[0]
		},
		EntrySignalReady: func() error {
			return p.SignalReady(e, h)
		},
	})
	if rt.binder != nil {
		p.logger.Debug("Rebound script entry points.", "runtime", string(h), "namespace", p.namespace)
	}
	rt.binder = p
	if !e.IsReady() {
		e.SetReady()
	}
}

// SignalReady opens the gate of the cache registered for h and drains its
// pending commands. On failure no state changes. A signal for a cache that
// is already ready is ignored. It must run on the runtime goroutine.
func (p *Plugin) SignalReady(e Engine, h Handle) error {
	c, ok := p.registry.Lookup(h)
	if !ok {
		return WithMetadata(CodeRegistryMiss, fmt.Sprintf("no resource cache registered for runtime %s", h), map[string]string{
			"runtime": string(h),
		})
	}
	if c.IsReady() {
		c.logger.Debug("Ignoring repeated ready signal.")
		return nil
	}

	path := p.counterpartPath()
	counterpart, ok := e.Lookup(path)
	if !ok {
		return WithMetadata(CodeReadyPrecondition, fmt.Sprintf("%s is not defined", path), map[string]string{
			"runtime": string(h),
			"path":    path,
		})
	}

	drained := 0
	if c.gate.open(counterpart, func(batch []PendingCommand) {
		drained += len(batch)
		c.dispatch(batch)
	}) {
		c.logger.Info("Resource cache ready.", "drained", drained)
	}
	return nil
}
