package rundown

import (
	"fmt"
	"sync"

	"github.com/hostloop/rundown/logging"
)

// AppHooks multiplexes application-registered shutdown hooks onto the
// reserved application slot. Application hooks are named, may be
// removed again before shutdown begins, and all run concurrently when
// the slot fires; the slot hook returns after the last one finished.
type AppHooks struct {
	mu      sync.Mutex
	hooks   map[string]Hook
	started bool
	log     logging.Log
}

func NewAppHooks() *AppHooks {
	return &AppHooks{
		hooks: make(map[string]Hook),
		log:   logging.GetLog("rundown-apphooks"),
	}
}

// AttachTo registers the multiplexer at SlotApplication.
func (a *AppHooks) AttachTo(c *Controller) error {
	return c.Register(SlotApplication, false, a.runAll)
}

// Hook exposes the multiplexer for factory-based registration.
func (a *AppHooks) Hook() Hook {
	return a.runAll
}

// Add registers a named application hook. Fails once shutdown began or
// when the name is taken.
func (a *AppHooks) Add(name string, hook Hook) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return fmt.Errorf("shutdown in progress, cannot add hook %q", name)
	}
	if _, exists := a.hooks[name]; exists {
		return fmt.Errorf("hook %q already registered", name)
	}
	a.hooks[name] = hook
	return nil
}

// Remove deregisters a named hook, reporting whether it was present.
// Removal is refused once shutdown began.
func (a *AppHooks) Remove(name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return false
	}
	_, exists := a.hooks[name]
	delete(a.hooks, name)
	return exists
}

func (a *AppHooks) runAll() {
	a.mu.Lock()
	a.started = true
	hooks := a.hooks
	a.mu.Unlock()

	var wg sync.WaitGroup
	for name, hook := range hooks {
		wg.Add(1)
		go func(name string, hook Hook) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					a.log.Warnf("application hook %q failed: %v", name, r)
				}
			}()
			hook()
		}(name, hook)
	}
	wg.Wait()
}
