package rundown_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hostloop/rundown"
)

func TestAppHooks(t *testing.T) {
	halter := newTestHalter()
	c := rundown.New(rundown.WithHalter(halter))

	app := rundown.NewAppHooks()
	require.NoError(t, app.AttachTo(c))

	var mu sync.Mutex
	ran := map[string]bool{}
	record := func(name string) rundown.Hook {
		return func() {
			mu.Lock()
			ran[name] = true
			mu.Unlock()
		}
	}

	require.NoError(t, app.Add("flush-cache", record("flush-cache")))
	require.NoError(t, app.Add("close-db", record("close-db")))
	require.NoError(t, app.Add("drop-me", record("drop-me")))
	require.Error(t, app.Add("close-db", record("close-db")))

	require.True(t, app.Remove("drop-me"))
	require.False(t, app.Remove("drop-me"))

	go c.Exit(0)
	require.Equal(t, 0, halter.waitHalt(t))

	mu.Lock()
	defer mu.Unlock()
	require.True(t, ran["flush-cache"])
	require.True(t, ran["close-db"])
	require.False(t, ran["drop-me"])

	// the window closed with the shutdown
	require.Error(t, app.Add("too-late", record("too-late")))
	require.False(t, app.Remove("close-db"))
}

func TestAppHooksPanicIsolated(t *testing.T) {
	halter := newTestHalter()
	c := rundown.New(rundown.WithHalter(halter))

	app := rundown.NewAppHooks()
	require.NoError(t, app.AttachTo(c))

	var survived sync.WaitGroup
	survived.Add(1)
	require.NoError(t, app.Add("broken", func() { panic("broken hook") }))
	require.NoError(t, app.Add("healthy", func() { survived.Done() }))

	go c.Exit(0)
	require.Equal(t, 0, halter.waitHalt(t))
	survived.Wait()
}

func TestDeleteOnExit(t *testing.T) {
	halter := newTestHalter()
	c := rundown.New(rundown.WithHalter(halter))

	doe := rundown.NewDeleteOnExit()
	require.NoError(t, doe.AttachTo(c))

	dir := filepath.Join(t.TempDir(), "scratch")
	require.NoError(t, os.Mkdir(dir, 0o755))
	file := filepath.Join(dir, "data.tmp")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	// the directory first, its content later: reverse-order deletion
	// must empty the directory before removing it
	doe.Add(dir)
	doe.Add(file)
	doe.Add(filepath.Join(dir, "never-created.tmp"))

	go c.Exit(0)
	require.Equal(t, 0, halter.waitHalt(t))

	_, err := os.Stat(file)
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(dir)
	require.True(t, os.IsNotExist(err))
}

func TestDeleteOnExitLateAdd(t *testing.T) {
	halter := newTestHalter()
	c := rundown.New(rundown.WithHalter(halter))

	doe := rundown.NewDeleteOnExit()
	require.NoError(t, doe.AttachTo(c))

	file := filepath.Join(t.TempDir(), "spill.tmp")

	// an application hook at an earlier slot creates its spill file
	// during shutdown; the deletion pass still collects it
	require.NoError(t, c.Register(rundown.SlotApplication, false, func() {
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
		doe.Add(file)
	}))

	go c.Exit(0)
	require.Equal(t, 0, halter.waitHalt(t))

	_, err := os.Stat(file)
	require.True(t, os.IsNotExist(err))
}
