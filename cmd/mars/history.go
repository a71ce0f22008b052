package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// HistoryCmd lists prior run directories under an output directory,
// newest first. Each run directory is named <timestamp>_<slug> by
// pkg/engine's caller, so lexical sort order is chronological.
type HistoryCmd struct {
	OutputDir string `arg:"" optional:"" default:"./mars-runs" help:"Directory containing prior run directories."`
}

func (h *HistoryCmd) Run() error {
	runs, err := listRuns(h.OutputDir)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}

	if len(runs) == 0 {
		fmt.Printf("No prior runs found under %s\n", h.OutputDir)
		return nil
	}

	for _, run := range runs {
		fmt.Println(run)
	}
	return nil
}

// listRuns returns run directory names under dir, newest first.
func listRuns(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var runs []string
	for _, e := range entries {
		if e.IsDir() {
			runs = append(runs, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(runs)))
	return runs, nil
}

// latestRun returns the path to the most recent run directory under
// dir, or an error if none exist.
func latestRun(dir string) (string, error) {
	runs, err := listRuns(dir)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", fmt.Errorf("no prior runs found under %s", dir)
	}
	return filepath.Join(dir, runs[0]), nil
}
