package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version   kong.VersionFlag `short:"v" help:"Show version"`
	Run       RunCmd           `cmd:"" help:"Connect to the game and run the betting loop"`
	Configure ConfigureCmd     `cmd:"" help:"Edit and persist the betting profile"`
	Accounts  AccountsCmd      `cmd:"" help:"Manage saved game accounts"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("escapebot"),
		kong.Description("Automated betting bot for the escape game"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version":    version,
			"strategies": strategiesHelp(),
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
