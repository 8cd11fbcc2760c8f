package rundown

import (
	"os"
	"sync"

	"github.com/hostloop/rundown/logging"
)

// DeleteOnExit collects files to be removed when the process shuts
// down. It is an ordinary hook at the reserved delete-on-exit slot,
// registered with duringShutdown true because the first file may well
// be added by an application hook running earlier in the sequence.
type DeleteOnExit struct {
	mu    sync.Mutex
	files []string
	log   logging.Log
}

func NewDeleteOnExit() *DeleteOnExit {
	return &DeleteOnExit{
		log: logging.GetLog("rundown-deleteonexit"),
	}
}

func (d *DeleteOnExit) AttachTo(c *Controller) error {
	return c.Register(SlotDeleteOnExit, true, d.run)
}

// Hook exposes the deletion pass for factory-based registration.
func (d *DeleteOnExit) Hook() Hook {
	return d.run
}

// Add schedules path for deletion at shutdown.
func (d *DeleteOnExit) Add(path string) {
	d.mu.Lock()
	d.files = append(d.files, path)
	d.mu.Unlock()
}

// run deletes in reverse registration order, so files created inside a
// directory after the directory itself go first. Failures are logged
// and ignored.
func (d *DeleteOnExit) run() {
	d.mu.Lock()
	files := d.files
	d.files = nil
	d.mu.Unlock()

	for i := len(files) - 1; i >= 0; i-- {
		if err := os.Remove(files[i]); err != nil && !os.IsNotExist(err) {
			d.log.Warnf("delete-on-exit %s, %s", files[i], err.Error())
		}
	}
}
