package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/icyseptember2237/resourcecache"
)

func main() {
	// Signal-aware context is the root of ownership for the demo; SIGINT or
	// SIGTERM stops it early.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, outW io.Writer, args []string) error {
	fs := flag.NewFlagSet("resourcecache", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to a TOML or YAML config file")
	producers := fs.Int("producers", 4, "number of goroutines issuing loads")
	loads := fs.Int("loads", 3, "loads issued by each producer")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := resourcecache.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	logger := resourcecache.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	slog.SetDefault(logger)

	pool, err := resourcecache.InitEnginePool(cfg.EngineType)
	if err != nil {
		return err
	}
	if err := pool.Prewarm(cfg.PoolSize); err != nil {
		return err
	}
	defer pool.Shutdown()

	// One runtime per prewarmed engine, all served by a single plugin.
	plugin := resourcecache.NewPlugin(append(cfg.PluginOptions(), resourcecache.WithLogger(logger))...)
	runtimes := make([]*resourcecache.Runtime, 0, cfg.PoolSize)
	caches := make([]*resourcecache.Cache, 0, cfg.PoolSize)
	for i := 0; i < cfg.PoolSize; i++ {
		engine, err := pool.Get()
		if err != nil {
			return err
		}
		rt := resourcecache.NewRuntime(engine, resourcecache.WithRuntimeLogger(logger))
		defer rt.Close()
		cache, err := plugin.NewCache(rt)
		if err != nil {
			return err
		}
		defer cache.Close()
		runtimes = append(runtimes, rt)
		caches = append(caches, cache)
	}

	// Producers race the script loads; early loads wait in the queues.
	var wg sync.WaitGroup
	for p := 0; p < *producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			cache := caches[p%len(caches)]
			for i := 0; i < *loads; i++ {
				experienceID := fmt.Sprintf("experience-%d", p)
				payload := fmt.Sprintf(`{"resources":[{"id":"p%d-r%d","url":"https://cdn.example.com/p%d/r%d.glb","type":"mesh"}]}`, p, i, p, i)
				cache.LoadResourcesFromJSON(experienceID, payload)
			}
		}(p)
	}
	wg.Wait()
	caches[0].UpdateResource("p0-r0", "https://cdn.example.com/p0/r0-v2.glb")

	syncCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for i, rt := range runtimes {
		if err := summarize(syncCtx, outW, rt, caches[i]); err != nil {
			return err
		}
	}
	return nil
}

func summarize(ctx context.Context, outW io.Writer, rt *resourcecache.Runtime, cache *resourcecache.Cache) error {
	// Two barriers: the first lets the ready signal run, the second lets the
	// commands it drained run.
	for i := 0; i < 2; i++ {
		if err := rt.Sync(ctx, func(resourcecache.Engine) error { return nil }); err != nil {
			return err
		}
	}
	if !cache.IsReady() {
		return fmt.Errorf("resource cache of runtime %s did not become ready (%d pending)", rt.Handle(), cache.Pending())
	}

	var summary []interface{}
	err := rt.Sync(ctx, func(e resourcecache.Engine) error {
		if !e.IsFunction("resourceCacheSummary") {
			return nil
		}
		var err error
		summary, err = e.Call("resourceCacheSummary", 1)
		return err
	})
	if err != nil {
		return err
	}
	if len(summary) > 0 {
		fmt.Fprintf(outW, "runtime %s: %v\n", rt.Handle(), summary[0])
	}
	return nil
}
