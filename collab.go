package rundown

// Halter is the native process-halt primitive. Halt must not return.
type Halter interface {
	Halt(status int)
}

// Finalizer runs all pending resource finalizers. A panic raised by a
// finalizer is not recovered by the controller.
type Finalizer interface {
	RunAll()
}

// ThreadHandle is a live thread of execution as seen by the
// introspection collaborator.
type ThreadHandle interface {
	ID() int64
	Name() string
	// Daemon reports whether the thread is a runtime-owned service
	// thread, exempt from forced termination.
	Daemon() bool
	// SetFailureHandler replaces the thread's uncaught-failure handler.
	SetFailureHandler(func(error))
	// ForceStop terminates the thread asynchronously, best effort.
	// The target may be left with inconsistent state; acceptable only
	// when the whole process is about to be discarded.
	ForceStop()
}

// ThreadIntrospector enumerates live threads for forced termination.
type ThreadIntrospector interface {
	// LiveThreads returns a snapshot of live threads mapped to a
	// call-stack description.
	LiveThreads() map[ThreadHandle]string
	// Current returns the handle of the calling thread, or nil when the
	// caller is not a managed worker.
	Current() ThreadHandle
}

// Killed is the panic value delivered to code running on a thread that
// is being forcibly stopped. Unlike ordinary hook panics it is allowed
// to unwind through the shutdown sequence, so forced termination does
// not hang inside a misbehaving hook.
type Killed struct{}

func (Killed) Error() string { return "thread killed" }
