package main

import (
	"fmt"

	"github.com/jpollock/mars/pkg/providers"
	"github.com/jpollock/mars/pkg/registry"
)

// ProvidersCmd lists every registered provider, the MARS analogue of
// the teacher's ListCmd.
type ProvidersCmd struct{}

func (p *ProvidersCmd) Run() error {
	names := providers.List()
	fmt.Printf("Registered providers (%d):\n", len(names))
	for _, name := range names {
		prov, err := providers.Create(name, registry.Config{})
		if err != nil {
			fmt.Printf("  - %s (not configured: %v)\n", name, err)
			continue
		}
		fmt.Printf("  - %s (default model: %s)\n", name, prov.DefaultModel())
	}
	return nil
}
