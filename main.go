/*
This is an example of application that will use the
engine package to test things out
*/
package main

import (
	"os"

	"github.com/spaghettifunk/ember/engine"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/testbed"
)

func main() {
	configPath := ""
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	if err := engine.RunApplication(testbed.NewTestGame(), configPath); err != nil {
		if core.IsFatal(err) {
			core.LogError("fatal: %+v", err)
		}
		os.Exit(1)
	}
}
