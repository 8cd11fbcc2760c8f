package rundown

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
)

// HostCmd is the command line surface of a host process, parsed by
// kong in the host binary.
type HostCmd struct {
	ConfigDir   string `name:"config-dir" placeholder:"<dir>" help:"config directory path"`
	ConfigFile  string `name:"config" short:"c" placeholder:"<file>" help:"a single file config"`
	GenConfig   bool   `name:"gen-config" help:"print default config"`
	Pname       string `name:"pname" placeholder:"<name>" help:"assign process name"`
	PidFile     string `name:"pid" placeholder:"<path>" help:"pid file path"`
	BootlogFile string `name:"bootlog" placeholder:"<path>" help:"boot log path"`
	Daemon      bool   `name:"daemon" short:"d" help:"run process in background, daemonize"`
}

var defaultController *Controller
var defaultBuilder = NewBuilder()
var conf *HostCmd
var quitChan chan os.Signal
var fallbackConfigContent []byte
var fallbackPname string
var versionString string
var bootlog *log.Logger

func init() {
	bootlog = log.New(os.Stdout, "rundown ", log.LstdFlags|log.Lmsgprefix)
}

// Startup builds the default controller from the configuration named
// by cmd and brings the host up. In daemon mode the work happens in
// the forked child.
func Startup(cmd *HostCmd) {
	conf = cmd
	if len(conf.Pname) == 0 {
		if len(fallbackPname) > 0 {
			conf.Pname = fallbackPname
		} else {
			conf.Pname = fmt.Sprintf("rundown-%d", os.Getpid())
		}
	}

	if conf.GenConfig && len(fallbackConfigContent) > 0 {
		fmt.Println(string(fallbackConfigContent))
		os.Exit(0)
	}

	if conf.Daemon {
		// bootlog and pidfile are handled inside Daemonize
		Daemonize(conf.BootlogFile, conf.PidFile, func() { serve(conf) })
		return
	}

	var writer io.Writer
	if len(conf.BootlogFile) > 0 {
		logfile, _ := os.OpenFile(conf.BootlogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		defer logfile.Close()
		writer = io.MultiWriter(os.Stdout, logfile)
	} else {
		writer = os.Stdout
	}
	bootlog = log.New(writer, fmt.Sprintf("rundown-%s ", conf.Pname), log.LstdFlags|log.Lmsgprefix)
	bootlog.Println("pid:", os.Getpid())

	if len(conf.PidFile) > 0 {
		pfile, _ := os.OpenFile(conf.PidFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
		pfile.WriteString(fmt.Sprintf("%d", os.Getpid()))
		pfile.Close()
	}

	serve(conf)
}

func serve(conf *HostCmd) {
	var err error
	if len(conf.ConfigFile) > 0 {
		defaultController, err = defaultBuilder.BuildWithFiles([]string{conf.ConfigFile})
	} else if len(conf.ConfigDir) > 0 {
		defaultController, err = defaultBuilder.BuildWithDir(conf.ConfigDir)
	} else if len(fallbackConfigContent) > 0 {
		defaultController, err = defaultBuilder.BuildWithContent(fallbackConfigContent)
	} else {
		panic(fmt.Errorf("one of --config-dir --config should be provided"))
	}
	if err != nil {
		panic(err)
	}
	bootlog.Println("startup", conf.Pname)
}

// Default returns the controller built by Startup, nil before then.
func Default() *Controller {
	return defaultController
}

// DefaultBuilder exposes the builder Startup uses, so the application
// can set collaborators and variables before calling Startup.
func DefaultBuilder() Builder {
	return defaultBuilder
}

// Shutdown runs the default controller's cooperative shutdown.
func Shutdown() {
	if defaultController == nil {
		// parent process in daemon mode
		return
	}
	bootlog.Println("shutdown", conf.Pname)
	defaultController.Shutdown()
}

// Exit initiates shutdown and halts with the given status.
func Exit(status int) {
	if defaultController == nil {
		// parent process in daemon mode
		return
	}
	bootlog.Println("exit", conf.Pname, "status", status)
	defaultController.Exit(status)
}

func WaitSignal() {
	if defaultController == nil {
		return
	}
	quitChan = make(chan os.Signal, 1)
	signal.Notify(quitChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-quitChan
}

func NotifySignal() {
	if quitChan != nil {
		quitChan <- syscall.SIGINT
	}
}

func Pname() string {
	if conf == nil {
		return ""
	}
	return conf.Pname
}

func VersionString() string {
	return versionString
}

func SetVersionString(str string) {
	versionString = str
}

func SetFallbackConfig(content []byte) {
	fallbackConfigContent = content
}

func SetFallbackPname(pname string) {
	fallbackPname = pname
}
