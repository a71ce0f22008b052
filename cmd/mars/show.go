package main

import (
	"fmt"
	"os"
	"path/filepath"
)

// ShowCmd prints one section of a prior run's audit trail. RunDir may
// be a specific run directory or an output directory to search for the
// latest run in.
type ShowCmd struct {
	Section string `arg:"" enum:"answer,resolution,costs,attribution,rounds,convergence" default:"answer" help:"Which section to print."`
	RunDir  string `arg:"" optional:"" default:"./mars-runs" help:"A specific run directory, or an output directory to use the latest run from."`
}

func (s *ShowCmd) Run() error {
	dir, err := resolveRunDir(s.RunDir)
	if err != nil {
		return fmt.Errorf("show: %w", err)
	}

	switch s.Section {
	case "answer":
		return printFile(filepath.Join(dir, "final-answer.md"))
	case "resolution":
		return printFile(filepath.Join(dir, "audit", "resolution.md"))
	case "costs":
		return printFile(filepath.Join(dir, "audit", "costs.md"))
	case "attribution":
		return printFile(filepath.Join(dir, "audit", "attribution.md"))
	case "convergence":
		return printFile(filepath.Join(dir, "audit", "convergence.md"))
	case "rounds":
		return printRounds(dir)
	default:
		return fmt.Errorf("show: unknown section %q", s.Section)
	}
}

// resolveRunDir treats path as a run directory if it already contains
// final-answer.md, otherwise looks for the latest run underneath it.
func resolveRunDir(path string) (string, error) {
	if _, err := os.Stat(filepath.Join(path, "final-answer.md")); err == nil {
		return path, nil
	}
	return latestRun(path)
}

func printFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}

// printRounds prints every NN-round-N-{responses,critiques}.md file in
// audit/ in filename order, since their numeric prefix already sorts
// them chronologically.
func printRounds(runDir string) error {
	entries, err := os.ReadDir(filepath.Join(runDir, "audit"))
	if err != nil {
		return err
	}
	for _, e := range entries {
		name := e.Name()
		if len(name) < 2 {
			continue
		}
		if !isRoundFile(name) {
			continue
		}
		if err := printFile(filepath.Join(runDir, "audit", name)); err != nil {
			return err
		}
		fmt.Println()
	}
	return nil
}

func isRoundFile(name string) bool {
	for _, suffix := range []string{"-responses.md", "-critiques.md"} {
		if len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix {
			return true
		}
	}
	return false
}
