package engine

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/ember/engine/config"
	"github.com/spaghettifunk/ember/engine/core"
)

// RunApplication loads the configuration, runs the game until the window
// closes or the process is signalled, and shuts everything down.
func RunApplication(g *Game, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		core.LogError(err.Error())
		return err
	}

	e, err := New(g, cfg)
	if err != nil {
		return err
	}
	if err := e.Initialize(); err != nil {
		return err
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer signal.Stop(sigCh)

	go func() {
		if sig, ok := <-sigCh; ok {
			core.LogInfo("received %s, stopping", sig)
			e.Stop()
		}
	}()

	// the window and the device belong to this thread, so shutdown runs here
	// once the loop has returned
	runErr := e.Run()
	if err := e.Shutdown(); err != nil {
		core.LogError(err.Error())
		if runErr == nil {
			runErr = err
		}
	}
	return runErr
}
