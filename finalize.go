package rundown

import "sync"

// Finalizers is the default finalization collaborator: a plain registry
// of cleanup functions for resources that must be released before the
// process ends. Unlike shutdown hooks, finalizers are expected to be
// well-behaved system code; a panic from one propagates to the caller.
type Finalizers struct {
	mu    sync.Mutex
	funcs []func()
}

func NewFinalizers() *Finalizers {
	return &Finalizers{}
}

// Add registers a finalizer. Finalizers run in registration order.
func (f *Finalizers) Add(fn func()) {
	f.mu.Lock()
	f.funcs = append(f.funcs, fn)
	f.mu.Unlock()
}

// RunAll runs every registered finalizer once and clears the registry.
func (f *Finalizers) RunAll() {
	f.mu.Lock()
	funcs := f.funcs
	f.funcs = nil
	f.mu.Unlock()
	for _, fn := range funcs {
		fn()
	}
}
