//go:build windows
// +build windows

package rundown

// No daemon mode on windows; run in foreground.
func Daemonize(bootlog string, pidfile string, proc func()) {
	proc()
}
