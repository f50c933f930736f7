package main

import (
	"github.com/aidentified/go-matching-api/datasetfile/network"
	"github.com/alecthomas/kong"
)

// CLI is the command line of aidentified_match.
type CLI struct {
	Globals

	Auth        AuthCommand         `cmd:"" help:"Print a bearer token for the account."`
	Dataset     DatasetCommands     `cmd:"" help:"Manage datasets."`
	DatasetFile DatasetFileCommands `cmd:"" name:"dataset-file" help:"Manage dataset files."`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("aidentified_match"),
		kong.Description("Upload, match and download dataset files with the Aidentified matching API."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Configuration(kong.JSON, "~/.config/aidentified_match.json"),
		kong.Vars{
			"url": network.DefaultBaseURL,
		},
	)

	app, err := NewApp(cli.Globals)
	ctx.FatalIfErrorf(err)
	defer app.Close()

	ctx.FatalIfErrorf(ctx.Run(app))
}
