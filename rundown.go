// Package rundown coordinates the one-time transition of a host process
// from running to terminated: ordered shutdown hooks, optional resource
// finalization and, in reuse mode, forced termination of still-running
// workers so the process can be reclaimed without a restart.
package rundown

import (
	"sync"
	"sync/atomic"

	"github.com/hostloop/rundown/logging"
)

type State int

const (
	StateRunning State = iota
	StateHooks
	StateFinalizers
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "RUNNING"
	case StateHooks:
		return "HOOKS"
	case StateFinalizers:
		return "FINALIZERS"
	}
	return "UNKNOWN"
}

// Controller owns the shutdown state of a single process. Construct one
// at process start and hand it to every entry point; the zero value is
// not usable.
type Controller struct {
	// mu guards state, hooks, current and runFinalizersOnExit.
	// Held only for short, non-blocking critical sections; in
	// particular never across halt() or a collaborator call.
	mu                  sync.Mutex
	state               State
	hooks               [MaxHooks]Hook
	current             int
	runFinalizersOnExit bool

	// seqMu serializes the sequence body so it runs end-to-end at most
	// once with respect to other shutdown-initiating threads.
	seqMu sync.Mutex

	// haltMu serializes entry into the irreversible halt path. It is
	// held across a call that does not return, so it is acquired bare,
	// never nested inside mu.
	haltMu sync.Mutex

	halter    Halter
	finalizer Finalizer
	threads   ThreadIntrospector

	reuseDeath  atomic.Bool
	statusSaved atomic.Bool
	savedStatus atomic.Int64

	log logging.Log
}

type Option func(*Controller)

// WithHalter replaces the native halt primitive (default os.Exit).
func WithHalter(h Halter) Option {
	return func(c *Controller) { c.halter = h }
}

// WithFinalizer sets the finalization collaborator.
func WithFinalizer(f Finalizer) Option {
	return func(c *Controller) { c.finalizer = f }
}

// WithReuse enables the reuse extension: instead of halting the
// process, exit persists the status and forcibly terminates the
// workers enumerated by intro.
func WithReuse(intro ThreadIntrospector) Option {
	return func(c *Controller) { c.threads = intro }
}

func WithLog(log logging.Log) Option {
	return func(c *Controller) { c.log = log }
}

func New(opts ...Option) *Controller {
	c := &Controller{
		halter:    processHalter{},
		finalizer: &Finalizers{},
	}
	for _, o := range opts {
		o(c)
	}
	if c.log == nil {
		c.log = logging.GetLog("rundown")
	}
	return c
}

// State returns the current shutdown phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetRunFinalizersOnExit toggles whether finalizers run after the hooks
// on a zero-status exit. The flag is forced false by any nonzero-status
// exit and never restored.
func (c *Controller) SetRunFinalizersOnExit(enabled bool) {
	c.mu.Lock()
	c.runFinalizersOnExit = enabled
	c.mu.Unlock()
}

// ReuseDeath reports whether the forced-termination path has been
// entered. Consulted by the reuse orchestration layer, not by this
// package.
func (c *Controller) ReuseDeath() bool {
	return c.reuseDeath.Load()
}

// SavedStatus returns the exit status persisted by the reuse path.
func (c *Controller) SavedStatus() (int, bool) {
	if !c.statusSaved.Load() {
		return 0, false
	}
	return int(c.savedStatus.Load()), true
}

// advanceTo moves the phase forward to target and returns the previous
// phase. Re-entering an earlier phase is a no-op. Caller holds mu.
func (c *Controller) advanceTo(target State) State {
	prev := c.state
	if c.state < target {
		c.state = target
	}
	return prev
}

// Exit initiates shutdown and halts the process with the given status.
// The first caller that observes phase RUNNING or HOOKS drives the real
// teardown; every later concurrent caller either queues behind the
// sequence serialization or, on nonzero status during FINALIZERS, halts
// immediately. On the halting branch this method does not return.
func (c *Controller) Exit(status int) {
	runMore := false
	halting := false
	c.mu.Lock()
	if status != 0 {
		c.runFinalizersOnExit = false
	}
	switch c.state {
	case StateRunning:
		c.advanceTo(StateHooks)
	case StateHooks:
		// stall below, then halt
	case StateFinalizers:
		if status != 0 {
			halting = true
		} else {
			runMore = c.runFinalizersOnExit
		}
	}
	c.mu.Unlock()

	if halting {
		// nonzero status during finalization halts immediately
		c.halt(status)
		return
	}
	if runMore {
		c.finalizer.RunAll()
		c.halt(status)
		return
	}

	c.seqMu.Lock()
	defer c.seqMu.Unlock()
	c.sequence()
	c.halt(status)
}

// Shutdown runs the shutdown sequence without halting. Invoked when the
// host has no more cooperating work to do, e.g. the last non-daemon
// worker finished.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	c.advanceTo(StateHooks)
	c.mu.Unlock()

	c.seqMu.Lock()
	defer c.seqMu.Unlock()
	c.sequence()
}

// sequence runs the one-time teardown body: all hooks, then the phase
// transition to FINALIZERS, then the finalizers if enabled. Caller
// holds seqMu.
func (c *Controller) sequence() {
	c.mu.Lock()
	// a concurrent racer may have completed shutdown while this caller
	// was waiting for seqMu
	if c.state != StateHooks {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.runHooks()

	c.mu.Lock()
	c.advanceTo(StateFinalizers)
	rfoe := c.runFinalizersOnExit
	c.mu.Unlock()

	if rfoe {
		c.finalizer.RunAll()
	}
}
