//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Builds the skeleton of the sample biped, with a TOML file and a PNG preview in bin/.
func (Run) Skeleton() error {
	mg.Deps(Build.All)
	fmt.Println("Run skeleton...")
	args := []string{
		"skeleton", "testdata/biped.mesh.toml",
		"--config", "testdata/autorig.toml",
		"--out", "bin/biped.skeleton.toml",
		"--preview", "bin/biped.png",
	}
	if _, err := executeCmd("bin/autorig", withArgs(args...), withStream()); err != nil {
		return err
	}
	return nil
}

// Lists the regions of the sample biped.
func (Run) Regions() error {
	mg.Deps(Build.All)
	if _, err := executeCmd("bin/autorig", withArgs("regions", "testdata/biped.mesh.toml"), withStream()); err != nil {
		return err
	}
	return nil
}
