//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Test mg.Namespace

// Runs the tests that need no GPU.
func (Test) Unit() error {
	_, err := executeCmd("go", withArgs("test", "-race", "./..."), withStream())
	return err
}

// Runs the upload round trip against a real device. Needs a display and a
// Vulkan driver.
func (Test) GPU() error {
	_, err := executeCmd("go", withArgs("test", "-tags", "gpu", "-run", "GPU", "./engine/renderer/vulkan/..."), withStream())
	return err
}
