package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Table   TableCmd   `cmd:"" default:"withargs" help:"Settle a table described in an HCL file"`
	Token   TokenCmd   `cmd:"" help:"Issue a development token for an owner"`
	Version VersionCmd `cmd:"" help:"Show version"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("settle"),
		kong.Description("Work out who pays whom after a home poker game"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}

type VersionCmd struct{}

func (VersionCmd) Run(ctx *kong.Context) error {
	_, err := ctx.Stdout.Write([]byte("settle " + version + "\n"))
	return err
}
