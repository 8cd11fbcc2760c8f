package main

import (
	"context"
	"time"

	"github.com/alecthomas/kong"

	"github.com/hostloop/rundown"
	"github.com/hostloop/rundown/worker"
)

var defaultConfig = []byte(`
runtime {
    run_finalizers_on_exit = false
    reuse                  = env("RUNDOWN_REUSE", "false")
}

logging {
    Filename     = env("RUNDOWN_LOG", "-")
    DefaultLevel = env("RUNDOWN_LOG_LEVEL", "INFO")
}

hook "rundown/delete-on-exit" {
    slot            = 2
    during_shutdown = true
}
`)

var workers = worker.NewRegistry()
var deleteOnExit = rundown.NewDeleteOnExit()

func init() {
	rundown.RegisterHook("rundown/delete-on-exit",
		func() *struct{} { return &struct{}{} },
		func(conf *struct{}) (rundown.Hook, error) {
			return deleteOnExit.Hook(), nil
		})

	rundown.SetFallbackPname("rundownd")
	rundown.SetFallbackConfig(defaultConfig)
	rundown.SetVersionString("0.1.0")
}

func main() {
	var cmd rundown.HostCmd
	_ = kong.Parse(&cmd,
		kong.HelpOptions{NoAppSummary: false, Compact: true, FlagsLast: true},
		kong.UsageOnError(),
	)

	rundown.DefaultBuilder().SetIntrospector(workers)
	rundown.Startup(&cmd)

	ctrl := rundown.Default()
	if ctrl == nil {
		// parent process in daemon mode
		return
	}

	appHooks := rundown.NewAppHooks()
	if err := appHooks.AttachTo(ctrl); err != nil {
		panic(err)
	}

	// a pair of demo workers: one cooperative, one daemon
	workers.Go("ticker", false, func(ctx context.Context) error {
		tick := time.NewTicker(time.Second)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-tick.C:
			}
		}
	})
	workers.Go("janitor", true, func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})

	// cooperative drain: when the last non-daemon worker finishes,
	// run the shutdown sequence without halting
	go func() {
		workers.Wait()
		rundown.Shutdown()
	}()

	rundown.WaitSignal()
	rundown.Exit(0)
}
