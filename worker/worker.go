// Package worker tracks the goroutines a host runs user code on and
// implements the thread introspection surface the shutdown controller
// terminates through. A Worker is cooperative up to Checkpoint calls;
// ForceStop is best effort and may leave the worker's data mid-flight.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/hostloop/rundown"
	"github.com/hostloop/rundown/logging"
)

// Func is the body of a worker. The context is canceled when the
// worker is force-stopped.
type Func func(ctx context.Context) error

type Registry struct {
	log     logging.Log
	workers cmap.ConcurrentMap[string, *Worker]
	byGoid  cmap.ConcurrentMap[string, *Worker]
	seq     atomic.Int64
	wg      sync.WaitGroup
}

func NewRegistry() *Registry {
	return &Registry{
		log:     logging.GetLog("workers"),
		workers: cmap.New[*Worker](),
		byGoid:  cmap.New[*Worker](),
	}
}

type Worker struct {
	id     int64
	name   string
	daemon bool
	stack  string

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	stopped atomic.Bool

	mu        sync.Mutex
	onFailure func(error)
}

// Go starts fn on a new worker goroutine. Daemon workers do not count
// toward Wait and are spared by forced termination.
func (r *Registry) Go(name string, daemon bool, fn Func) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		id:     r.seq.Add(1),
		name:   name,
		daemon: daemon,
		stack:  captureStack(),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	w.onFailure = func(err error) {
		r.log.Warnf("worker #%d %s failed: %v", w.id, w.name, err)
	}
	key := strconv.FormatInt(w.id, 10)
	r.workers.Set(key, w)
	if !daemon {
		r.wg.Add(1)
	}
	go func() {
		gid := goid()
		r.byGoid.Set(gid, w)
		defer func() {
			rec := recover()
			r.byGoid.Remove(gid)
			r.workers.Remove(key)
			if !daemon {
				r.wg.Done()
			}
			close(w.done)
			if rec != nil {
				w.failureHandler()(recoverError(rec))
			}
		}()
		if err := fn(ctx); err != nil {
			w.failureHandler()(err)
		}
	}()
	return w
}

// Wait blocks until every non-daemon worker has finished. The host
// wires it to the controller's cooperative shutdown entry.
func (r *Registry) Wait() {
	r.wg.Wait()
}

func (r *Registry) Len() int {
	return r.workers.Count()
}

// LiveThreads snapshots the live workers, mapped to their spawn-site
// stack description.
func (r *Registry) LiveThreads() map[rundown.ThreadHandle]string {
	snapshot := make(map[rundown.ThreadHandle]string)
	for _, w := range r.workers.Items() {
		snapshot[w] = w.stack
	}
	return snapshot
}

// Current returns the worker running the calling goroutine, or nil
// when the caller is not a managed worker.
func (r *Registry) Current() rundown.ThreadHandle {
	if w, ok := r.byGoid.Get(goid()); ok {
		return w
	}
	return nil
}

func (w *Worker) ID() int64    { return w.id }
func (w *Worker) Name() string { return w.name }
func (w *Worker) Daemon() bool { return w.daemon }

func (w *Worker) SetFailureHandler(h func(error)) {
	w.mu.Lock()
	w.onFailure = h
	w.mu.Unlock()
}

func (w *Worker) failureHandler() func(error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.onFailure == nil {
		return func(error) {}
	}
	return w.onFailure
}

// ForceStop cancels the worker's context and arms Checkpoint to unwind
// the goroutine. It does not wait for the worker to actually die.
func (w *Worker) ForceStop() {
	w.stopped.Store(true)
	w.cancel()
}

// Stopped reports whether the worker was force-stopped.
func (w *Worker) Stopped() bool {
	return w.stopped.Load()
}

// Done is closed when the worker goroutine has finished.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Checkpoint unwinds the calling goroutine with rundown.Killed when the
// worker has been force-stopped. Worker bodies call it at points where
// dying mid-operation is survivable; between checkpoints a force-stop
// only cancels the context.
func (w *Worker) Checkpoint() {
	if w.stopped.Load() {
		panic(rundown.Killed{})
	}
}

var _ rundown.ThreadHandle = (*Worker)(nil)
var _ rundown.ThreadIntrospector = (*Registry)(nil)

func recoverError(rec any) error {
	if err, ok := rec.(error); ok {
		return err
	}
	return fmt.Errorf("%v", rec)
}

func captureStack() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// goid extracts the goroutine id from the runtime stack header,
// "goroutine N [running]:". There is no supported accessor; this is
// the same trick goroutine-local libraries rely on.
func goid() string {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	s := buf[:n]
	// skip "goroutine "
	s = s[len("goroutine "):]
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' {
			return string(s[:i])
		}
	}
	return string(s)
}
