package resourcecache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Handle identifies one Runtime for its whole lifetime.
type Handle string

// Task is a unit of work executed on the runtime goroutine. A returned
// error is treated as an unhandled runtime exception.
type Task func(Engine) error

// Runtime owns an Engine and serializes every access to it on a single
// goroutine. Tasks run to completion in dispatch order.
type Runtime struct {
	handle  Handle
	engine  Engine
	logger  *slog.Logger
	onError func(error)

	// binder is the plugin whose entry points are installed on engine.
	// Runtime goroutine only.
	binder *Plugin

	mu     sync.Mutex
	tasks  []Task
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithHandle overrides the generated runtime handle.
func WithHandle(h Handle) RuntimeOption {
	return func(r *Runtime) {
		r.handle = h
	}
}

// WithRuntimeLogger sets the logger used for runtime diagnostics.
func WithRuntimeLogger(logger *slog.Logger) RuntimeOption {
	return func(r *Runtime) {
		r.logger = logger
	}
}

// WithErrorHandler registers a callback for task errors. It runs on the
// runtime goroutine.
func WithErrorHandler(fn func(error)) RuntimeOption {
	return func(r *Runtime) {
		r.onError = fn
	}
}

// NewRuntime starts the task loop for engine.
func NewRuntime(engine Engine, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		handle: Handle(uuid.NewString()),
		engine: engine,
		logger: slog.Default(),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("runtime", string(r.handle))

	go r.loop()
	return r
}

// Handle returns the runtime handle.
func (r *Runtime) Handle() Handle {
	return r.handle
}

// Dispatch queues task for the runtime goroutine and returns immediately.
// Tasks dispatched after Close are dropped.
func (r *Runtime) Dispatch(task Task) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.logger.Warn("Dropping task dispatched to closed runtime.")
		return
	}
	r.tasks = append(r.tasks, task)
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Sync dispatches task and waits for it to finish. Cancelling ctx stops the
// wait but not the task.
func (r *Runtime) Sync(ctx context.Context, task Task) error {
	result := make(chan error, 1)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return NewError(CodeRuntimeClosed, "runtime is closed")
	}
	r.tasks = append(r.tasks, func(e Engine) error {
		defer func() {
			if p := recover(); p != nil {
				result <- fmt.Errorf("task panic: %v", p)
			}
		}()
		result <- task(e)
		return nil
	})
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-r.done:
		select {
		case err := <-result:
			return err
		default:
			return NewError(CodeRuntimeClosed, "runtime closed before task ran")
		}
	}
}

// Close stops accepting tasks, runs the ones already queued and closes the
// engine. It is safe to call more than once.
func (r *Runtime) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-r.done
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
	<-r.done
	return nil
}

func (r *Runtime) loop() {
	defer close(r.done)
	defer r.engine.Close()

	for {
		r.mu.Lock()
		tasks := r.tasks
		r.tasks = nil
		closed := r.closed
		r.mu.Unlock()

		for _, task := range tasks {
			r.run(task)
		}
		if len(tasks) > 0 {
			continue
		}
		if closed {
			r.logger.Debug("Runtime loop stopped.")
			return
		}
		<-r.wake
	}
}

func (r *Runtime) run(task Task) {
	defer func() {
		if p := recover(); p != nil {
			r.report(fmt.Errorf("task panic: %v", p))
		}
	}()
	if err := task(r.engine); err != nil {
		r.report(err)
	}
}

func (r *Runtime) report(err error) {
	r.logger.Error("Unhandled runtime exception.", "error", err)
	if r.onError != nil {
		r.onError(err)
	}
}
