package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/jpollock/mars/pkg/logging"

	// Import for side effects: register every provider via init().
	_ "github.com/jpollock/mars/internal/providers/anthropic"
	_ "github.com/jpollock/mars/internal/providers/bedrock"
	_ "github.com/jpollock/mars/internal/providers/google"
	_ "github.com/jpollock/mars/internal/providers/ollama"
	_ "github.com/jpollock/mars/internal/providers/openai"
	_ "github.com/jpollock/mars/internal/providers/replicate"
)

const version = "0.1.0"

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("mars"),
		kong.Description("MARS - Multi-Agent Resolution Synthesis"),
		kong.UsageOnError(),
		kong.Vars{"version": version},
		kong.Exit(func(code int) {
			if code != 0 {
				os.Exit(2)
			}
			os.Exit(0)
		}),
	)

	level := slog.LevelInfo
	if CLI.Debug {
		level = slog.LevelDebug
	}
	logging.Configure(level, CLI.LogFormat, os.Stderr)

	err := ctx.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
