// Command reconctl runs reconciliation operations directly against the database, for
// operators working without the HTTP API.
package main

import (
	"github.com/alecthomas/kong"
)

var cli struct {
	Commands
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("reconctl"),
		kong.Description("Bank reconciliation operator tool."),
		kong.UsageOnError(),
		kong.Bind(&cli.Globals),
	)

	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
