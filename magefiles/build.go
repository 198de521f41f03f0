//go:build mage

package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
)

const shaderDir = "assets/shaders"

var shaderStages = map[string]bool{".vert": true, ".frag": true}

type Build mg.Namespace

// Compiles every GLSL stage under assets/shaders to <name>.<stage>.spv with glslc.
func (Build) Shaders() error {
	return buildShaders()
}

// Builds the engine binary into bin/ember.
func (Build) Engine() error {
	mg.Deps(Build.Shaders)
	_, err := executeCmd("go", withArgs("build", "-o", "bin/ember", "."), withStream())
	return err
}

func buildShaders() error {
	entries, err := os.ReadDir(shaderDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !shaderStages[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		name := entry.Name()
		if _, err := executeCmd("glslc", withArgs(name, "-o", name+".spv"), withDir(shaderDir), withStream()); err != nil {
			return err
		}
	}
	return nil
}
