package rundown_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/hostloop/rundown"
)

type echoConfig struct {
	Label string
	Delay time.Duration
	Count int
}

func TestLoadDefinitions(t *testing.T) {
	content := []byte(`
define vals {
    first_slot = 4
}

runtime {
    run_finalizers_on_exit = true
    reuse                  = "false"
}

logging {
    Filename     = "."
    DefaultLevel = "WARN"
}

hook "test/late" {
    slot            = 7
    during_shutdown = true
    name            = "late"
}

hook "test/early" {
    slot     = vals_first_slot
    disabled = true
    config {
        Label = "first"
    }
}
`)
	defs, err := rundown.LoadDefinitions(content, nil)
	require.NoError(t, err)

	require.True(t, defs.Policy.RunFinalizersOnExit)
	require.False(t, defs.Policy.Reuse)
	require.NotEqual(t, cty.NilVal, defs.Logging)

	// sorted by slot, not declaration order
	require.Len(t, defs.Hooks, 2)
	require.Equal(t, "test/early", defs.Hooks[0].Id)
	require.Equal(t, 4, defs.Hooks[0].Slot)
	require.True(t, defs.Hooks[0].Disabled)
	require.Equal(t, "test/late", defs.Hooks[1].Id)
	require.Equal(t, "late", defs.Hooks[1].Name)
	require.True(t, defs.Hooks[1].DuringShutdown)
}

func TestLoadDefinitionsSlotOutOfRange(t *testing.T) {
	_, err := rundown.LoadDefinitions([]byte(`
hook "test/bad" {
    slot = 10
}
`), nil)
	require.Error(t, err)

	_, err = rundown.LoadDefinitions([]byte(`
hook "test/none" {
    during_shutdown = true
}
`), nil)
	require.Error(t, err)
}

func TestLoadDefinitionsEnvFunction(t *testing.T) {
	t.Setenv("RUNDOWN_TEST_SLOT", "6")
	defs, err := rundown.LoadDefinitions([]byte(`
hook "test/env" {
    slot = env("RUNDOWN_TEST_SLOT", "1")
    name = env("RUNDOWN_TEST_NAME", "fallback")
}
`), nil)
	require.NoError(t, err)
	require.Len(t, defs.Hooks, 1)
	require.Equal(t, 6, defs.Hooks[0].Slot)
	require.Equal(t, "fallback", defs.Hooks[0].Name)
}

func TestBuildWithContent(t *testing.T) {
	var mu sync.Mutex
	ran := []string{}
	record := func(label string) {
		mu.Lock()
		ran = append(ran, label)
		mu.Unlock()
	}

	rundown.RegisterHook("test/echo",
		func() *echoConfig { return &echoConfig{Count: 1} },
		func(conf *echoConfig) (rundown.Hook, error) {
			return func() {
				time.Sleep(conf.Delay)
				for i := 0; i < conf.Count; i++ {
					record(conf.Label)
				}
			}, nil
		})
	defer rundown.UnregisterHookFactory("test/echo")

	rundown.RegisterHook("test/skipped",
		func() *echoConfig { return &echoConfig{} },
		func(conf *echoConfig) (rundown.Hook, error) {
			return func() { record("skipped") }, nil
		})
	defer rundown.UnregisterHookFactory("test/skipped")

	halter := newTestHalter()
	finalizer := &testFinalizer{}
	builder := rundown.NewBuilder()
	builder.SetHalter(halter)
	builder.SetFinalizer(finalizer)
	require.NoError(t, builder.SetVariable("custom_label", "tail"))

	c, err := builder.BuildWithContent([]byte(`
define vals {
    head = upper("head")
}

runtime {
    run_finalizers_on_exit = true
}

logging {
    Filename     = "."
    DefaultLevel = "ERROR"
}

hook "test/echo" {
    slot = 3
    config {
        Label = vals_head
        Delay = "10ms"
    }
}

hook "test/skipped" {
    slot     = 5
    disabled = true
}
`))
	require.NoError(t, err)

	// the disabled hook left its slot free
	require.NoError(t, c.Register(5, false, func() { record("tail") }))

	go c.Exit(0)
	require.Equal(t, 0, halter.waitHalt(t))

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"HEAD", "tail"}, ran)
	require.Equal(t, int32(1), finalizer.count.Load())
}

func TestBuilderVariables(t *testing.T) {
	var got string
	rundown.RegisterHook("test/var",
		func() *echoConfig { return &echoConfig{} },
		func(conf *echoConfig) (rundown.Hook, error) {
			got = conf.Label
			return func() {}, nil
		})
	defer rundown.UnregisterHookFactory("test/var")

	builder := rundown.NewBuilder()
	builder.SetHalter(newTestHalter())
	require.NoError(t, builder.SetVariable("custom_label", "injected"))
	require.Error(t, builder.SetVariable("", "nameless"))

	_, err := builder.BuildWithContent([]byte(`
hook "test/var" {
    slot = 1
    config {
        Label = custom_label
    }
}
`))
	require.NoError(t, err)
	require.Equal(t, "injected", got)
}

func TestBuildUnknownHook(t *testing.T) {
	builder := rundown.NewBuilder()
	builder.SetHalter(newTestHalter())
	_, err := builder.BuildWithContent([]byte(`
hook "test/unregistered" {
    slot = 1
}
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "test/unregistered")
}

func TestBuildReuseRequiresIntrospector(t *testing.T) {
	builder := rundown.NewBuilder()
	builder.SetHalter(newTestHalter())
	_, err := builder.BuildWithContent([]byte(`
runtime {
    reuse = true
}
`))
	require.Error(t, err)

	builder.SetIntrospector(&testIntrospector{})
	c, err := builder.BuildWithContent([]byte(`
runtime {
    reuse = true
}
`))
	require.NoError(t, err)
	require.False(t, c.ReuseDeath())
}

func writeTestConfig(t *testing.T, dir string, name string, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestBuildWithDir(t *testing.T) {
	dir := t.TempDir()
	writeTestConfig(t, dir, "00-base.hcl", `
runtime {
    run_finalizers_on_exit = true
}
`)
	writeTestConfig(t, dir, "10-hooks.hcl", `
hook "test/filehook" {
    slot = 4
    config {
        Label = "from-file"
    }
}
`)
	writeTestConfig(t, dir, "ignored.conf", `not hcl at all`)

	var mu sync.Mutex
	ran := []string{}
	rundown.RegisterHook("test/filehook",
		func() *echoConfig { return &echoConfig{} },
		func(conf *echoConfig) (rundown.Hook, error) {
			return func() {
				mu.Lock()
				ran = append(ran, conf.Label)
				mu.Unlock()
			}, nil
		})
	defer rundown.UnregisterHookFactory("test/filehook")

	halter := newTestHalter()
	finalizer := &testFinalizer{}
	builder := rundown.NewBuilder()
	builder.SetHalter(halter)
	builder.SetFinalizer(finalizer)

	c, err := builder.BuildWithDir(dir)
	require.NoError(t, err)

	go c.Exit(0)
	require.Equal(t, 0, halter.waitHalt(t))

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"from-file"}, ran)
	require.Equal(t, int32(1), finalizer.count.Load())
}
