package rundown

import "fmt"

// Hook is a teardown callback, invoked at most once during shutdown.
type Hook func()

// Hooks are registered with a predefined slot and run in ascending
// slot order. Reserved slots:
//
//	(0) console restore
//	(1) application hooks
//	(2) delete-on-exit
const MaxHooks = 10

const (
	SlotConsoleRestore = 0
	SlotApplication    = 1
	SlotDeleteOnExit   = 2
)

// DuplicateSlotError reports registration into an occupied slot.
type DuplicateSlotError struct {
	Slot int
}

func (e *DuplicateSlotError) Error() string {
	return fmt.Sprintf("shutdown hook at slot %d already registered", e.Slot)
}

// IllegalPhaseError reports a registration attempted outside its
// allowed phase window.
type IllegalPhaseError struct {
	Slot  int
	Phase State
}

func (e *IllegalPhaseError) Error() string {
	return fmt.Sprintf("shutdown in progress, slot %d not registerable in phase %s", e.Slot, e.Phase)
}

// Register adds a shutdown hook at the given slot. A slot holds at most
// one hook; re-registering an occupied slot fails with
// DuplicateSlotError.
//
// duringShutdown should be false except for hooks that must accept
// registrations after shutdown has begun, such as delete-on-exit, whose
// first entry may be added by an application hook. With duringShutdown
// false the registration fails once the phase moved past RUNNING; with
// it true the registration fails once the phase moved past HOOKS, or
// when the running sequence already reached the given slot.
//
// Registration only stores the hook, it never triggers execution.
func (c *Controller) Register(slot int, duringShutdown bool, hook Hook) error {
	if slot < 0 || slot >= MaxHooks {
		return fmt.Errorf("shutdown hook slot %d out of range [0,%d)", slot, MaxHooks)
	}
	if hook == nil {
		return fmt.Errorf("shutdown hook at slot %d is nil", slot)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hooks[slot] != nil {
		return &DuplicateSlotError{Slot: slot}
	}
	if !duringShutdown {
		if c.state > StateRunning {
			return &IllegalPhaseError{Slot: slot, Phase: c.state}
		}
	} else {
		if c.state > StateHooks || (c.state == StateHooks && slot <= c.current) {
			return &IllegalPhaseError{Slot: slot, Phase: c.state}
		}
	}
	c.hooks[slot] = hook
	return nil
}

// runHooks runs the registered hooks in ascending slot order. The slot
// about to run is recorded under the coordination lock so concurrent
// late registrations observe a consistent boundary.
func (c *Controller) runHooks() {
	for i := 0; i < MaxHooks; i++ {
		c.mu.Lock()
		c.current = i
		hook := c.hooks[i]
		c.mu.Unlock()
		if hook == nil {
			continue
		}
		c.invokeHook(i, hook)
	}
}

// invokeHook runs a single hook, discarding any failure it raises.
// The Killed unwind is the one exception: it re-propagates so forced
// termination is not stalled by the remaining hooks.
func (c *Controller) invokeHook(slot int, hook Hook) {
	defer func() {
		if r := recover(); r != nil {
			if k, ok := r.(Killed); ok {
				panic(k)
			}
			c.log.Warnf("shutdown hook at slot %d failed: %v", slot, r)
		}
	}()
	hook()
}
