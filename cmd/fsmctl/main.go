package main

import (
	"io"
	"os"

	"github.com/alecthomas/kong"

	"github.com/goliatone/go-statemachine"
)

var cli struct {
	Verbose bool `short:"v" help:"Enable debug logging."`

	Lint  LintCmd  `cmd:"" help:"Parse and compile machine definitions, reporting every failure."`
	Show  ShowCmd  `cmd:"" help:"Print the normalized form of a compiled machine."`
	Next  NextCmd  `cmd:"" help:"List or resolve candidate next states for a record state."`
	Chart ChartCmd `cmd:"" help:"Render a machine as a Mermaid state diagram."`
}

// runContext carries the output stream and logger into command Run methods.
type runContext struct {
	out    io.Writer
	logger statemachine.Logger
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("fsmctl"),
		kong.Description("Lint, inspect, and chart state machine definitions."),
		kong.UsageOnError(),
	)

	level := "info"
	if cli.Verbose {
		level = "debug"
	}

	err := ctx.Run(&runContext{
		out:    os.Stdout,
		logger: newCLILogger(os.Stderr, level),
	})
	ctx.FatalIfErrorf(err)
}
