// Package resourcecache hosts script-side resource caches inside embedded
// script engines and delivers calls from any goroutine to them in order.
package resourcecache

import (
	"errors"
	"log/slog"
	"sync"
)

// Cache is the native side of one script resource cache. Its methods may be
// called from any goroutine and never block on the runtime.
type Cache struct {
	handle  Handle // captured at construction; used to unregister
	runtime *Runtime
	plugin  *Plugin
	logger  *slog.Logger

	gate      gate
	closeOnce sync.Once
}

// Handle returns the handle of the owning runtime.
func (c *Cache) Handle() Handle {
	return c.handle
}

// SetScene forwards scene unmodified to the counterpart's setScene.
func (c *Cache) SetScene(scene Value) {
	c.send(PendingCommand{Kind: CommandSetScene, Scene: scene})
}

// LoadResourcesFromJSON forwards payload to the counterpart's loadFromJSON.
// Calls made before readiness are delivered in order once it is reached.
func (c *Cache) LoadResourcesFromJSON(experienceID, payload string) {
	c.gate.submit(PendingCommand{
		Kind:         CommandLoadResources,
		ExperienceID: experienceID,
		Payload:      payload,
	}, c.dispatch)
}

// UpdateResource forwards a new URL for resource id to the counterpart.
func (c *Cache) UpdateResource(id, newURL string) {
	c.send(PendingCommand{Kind: CommandUpdateResource, ResourceID: id, URL: newURL})
}

// ObjectHandle returns the counterpart, or nil before readiness.
func (c *Cache) ObjectHandle() Value {
	return c.gate.object()
}

// IsReady reports whether the counterpart has signalled readiness.
func (c *Cache) IsReady() bool {
	return c.gate.ready.Load()
}

// Pending returns the number of commands waiting for readiness.
func (c *Cache) Pending() int {
	return c.gate.len()
}

// Close unregisters the cache. Commands still pending are never delivered.
func (c *Cache) Close() {
	c.closeOnce.Do(func() {
		c.plugin.registry.Unregister(c.handle)
		if n := c.Pending(); n > 0 {
			c.logger.Warn("Resource cache closed with pending commands.", "pending", n)
		}
		c.logger.Debug("Resource cache closed.")
	})
}

func (c *Cache) send(cmd PendingCommand) {
	if c.plugin.gateAll {
		c.gate.submit(cmd, c.dispatch)
		return
	}
	c.dispatch([]PendingCommand{cmd})
}

// dispatch hands batch to the runtime as a single task. A failing command
// does not stop the rest of the batch.
func (c *Cache) dispatch(batch []PendingCommand) {
	c.runtime.Dispatch(func(e Engine) error {
		counterpart := c.gate.current()
		var errs []error
		for _, cmd := range batch {
			if counterpart == nil {
				errs = append(errs, WithMetadata(CodeUnguardedPrereadyCall, cmd.Kind.String()+" called before the resource cache was ready", map[string]string{
					"runtime": string(c.handle),
				}))
				continue
			}
			if err := cmd.invoke(e, counterpart); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}
