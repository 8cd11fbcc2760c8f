package rundown

import (
	"os"
	"runtime"
)

// processHalter is the default Halter, ending the process for real.
type processHalter struct{}

func (processHalter) Halt(status int) {
	os.Exit(status)
}

// halt ends the process, or in reuse mode hands the still-warm process
// back to the orchestration layer by stopping every worker instead.
// It does not return.
//
// haltMu is deliberately not released: the body never returns, and
// keeping the gate closed guarantees no second termination attempt
// reaches the halt primitive.
func (c *Controller) halt(status int) {
	c.haltMu.Lock()
	if c.threads != nil {
		c.savedStatus.Store(int64(status))
		c.statusSaved.Store(true)
		c.log.Infof("reuse death, status %d", status)
		c.terminateAll()
		// not reached
	}
	c.halter.Halt(status)
}

// terminateAll forcibly stops every live worker thread except the
// caller and the daemons, then stops the caller itself as its last act.
// Control never resumes after this call.
//
// A single sweep is performed, fire and forget: a stopped worker may be
// left mid-operation with inconsistent state, which is acceptable only
// because the process is about to be reclaimed by the layer above. No
// lock is taken on the enumerated handles; termination inherently races
// the target's own progress.
func (c *Controller) terminateAll() {
	c.reuseDeath.Store(true)

	self := c.threads.Current()
	stopped, daemons := 0, 0
	for th, stack := range c.threads.LiveThreads() {
		if self != nil && th.ID() == self.ID() {
			continue
		}
		if th.Daemon() {
			c.log.Debugf("leaving daemon #%d %s", th.ID(), th.Name())
			daemons++
			continue
		}
		c.log.Infof("stopping worker #%d %s", th.ID(), th.Name())
		if c.log.TraceEnabled() && stack != "" {
			c.log.Tracef("worker #%d stack:\n%s", th.ID(), stack)
		}
		// silence the failure report the stop itself produces
		th.SetFailureHandler(func(error) {})
		th.ForceStop()
		stopped++
	}
	c.log.Infof("stopped %d workers, %d daemons left", stopped, daemons)

	if self != nil {
		self.SetFailureHandler(func(error) {})
		self.ForceStop()
	}
	runtime.Goexit()
}
