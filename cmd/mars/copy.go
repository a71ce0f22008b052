package main

import (
	"fmt"
	"os"
	"path/filepath"
)

// CopyCmd prints a prior run's final answer with no surrounding
// metadata, suited for piping into a clipboard tool (e.g. `mars copy |
// pbcopy`). MARS has no direct clipboard dependency in the pack, so
// copy-via-pipe is the portable equivalent.
type CopyCmd struct {
	RunDir string `arg:"" optional:"" default:"./mars-runs" help:"A specific run directory, or an output directory to use the latest run from."`
}

func (c *CopyCmd) Run() error {
	dir, err := resolveRunDir(c.RunDir)
	if err != nil {
		return fmt.Errorf("copy: %w", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "final-answer.md"))
	if err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	fmt.Print(string(data))
	return nil
}
