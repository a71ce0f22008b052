package main

import "fmt"

// CLI is the MARS command-line interface, structured the same way the
// teacher's Augustus CLI is: one kong struct of subcommands, each with
// its own Run and, where flags are mutually exclusive, Validate.
var CLI struct {
	Debug      bool       `help:"Enable debug logging." short:"d" env:"MARS_DEBUG"`
	LogFormat  string     `help:"Log output format." enum:"text,json" default:"text" name:"log-format" env:"MARS_LOG_FORMAT"`
	ConfigFile string     `help:"YAML debate configuration file." short:"c" type:"existingfile" name:"config-file"`
	Version    VersionCmd `cmd:"" help:"Print version information."`
	Debate     DebateCmd  `cmd:"" help:"Run a multi-provider debate over a prompt."`
	Providers  ProvidersCmd `cmd:"" help:"List configured providers."`
	Configure  ConfigureCmd `cmd:"" help:"Interactively capture provider credentials."`
	Show       ShowCmd      `cmd:"" help:"Print a section of a prior run's audit trail."`
	History    HistoryCmd   `cmd:"" help:"List prior runs under an output directory."`
	Copy       CopyCmd      `cmd:"" help:"Print a prior run's final answer."`
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (v *VersionCmd) Run() error {
	fmt.Println("mars " + version)
	return nil
}
