//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Runs the testbed scene until interrupted. PRISM_FRAMES limits the number of frames.
func (Run) Demo() error {
	args := []string{"run", ".", "--config", "prism.toml"}
	if frames := os.Getenv("PRISM_FRAMES"); frames != "" {
		args = append(args, "--frames", frames)
	}
	fmt.Println("Run demo...")
	if _, err := executeCmd("go", withArgs(args...), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the testbed for a single frame with debug logs.
func (Run) Smoke() error {
	mg.Deps(Build.All)
	_, err := executeCmd("bin/prism", withArgs("--config", "prism.toml", "--frames", "1", "--log-level", "debug"), withStream())
	return err
}
