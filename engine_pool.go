package resourcecache

import (
	"fmt"
	"sync"
)

// EnginePool hands out fresh engines of a single type. Engines are not
// returned to the pool: script state cannot be reset once bindings and
// scripts have been loaded into it.
type EnginePool struct {
	engineType string
	m          sync.Mutex
	saved      []Engine
}

func (ep *EnginePool) Get() (Engine, error) {
	ep.m.Lock()
	defer ep.m.Unlock()
	n := len(ep.saved)
	if n == 0 {
		return ep.New()
	}
	x := ep.saved[n-1]
	ep.saved = ep.saved[0 : n-1]
	return x, nil
}

// Prewarm creates engines until n idle ones are available.
func (ep *EnginePool) Prewarm(n int) error {
	ep.m.Lock()
	defer ep.m.Unlock()
	for len(ep.saved) < n {
		engine, err := ep.New()
		if err != nil {
			return err
		}
		ep.saved = append(ep.saved, engine)
	}
	return nil
}

// Idle returns the number of engines waiting in the pool.
func (ep *EnginePool) Idle() int {
	ep.m.Lock()
	defer ep.m.Unlock()
	return len(ep.saved)
}

func (ep *EnginePool) Shutdown() {
	ep.m.Lock()
	defer ep.m.Unlock()
	for _, e := range ep.saved {
		e.Close()
	}
	ep.saved = nil
}

// New creates an engine of the pool type without touching the idle list.
// A pool not built by InitEnginePool has no type and fails here.
func (ep *EnginePool) New() (Engine, error) {
	return NewEngine(ep.engineType)
}

// NewEngine creates and initializes an engine of the given type.
func NewEngine(engineType string) (Engine, error) {
	var engine Engine
	switch engineType {
	case TypeEngineLua:
		engine = &LuaEngine{}
	case TypeEngineJs:
		engine = &JsEngine{}
	case TypeEngineGo:
		engine = &GoEngine{}
	default:
		return nil, Wrap(CodeEngineUnsupported, "create engine", fmt.Errorf("unknown engine type %q", engineType))
	}

	engine.New()
	return engine, nil
}

func InitEnginePool(engineType string) (*EnginePool, error) {
	if _, ok := engineTypes[engineType]; !ok {
		return nil, Wrap(CodeEngineUnsupported, "init engine pool", fmt.Errorf("unknown engine type %q", engineType))
	}
	return &EnginePool{
		engineType: engineType,
		m:          sync.Mutex{},
		saved:      make([]Engine, 0, 4),
	}, nil
}

var engineTypes = map[string]struct{}{
	TypeEngineJs:  {},
	TypeEngineLua: {},
	TypeEngineGo:  {},
}
