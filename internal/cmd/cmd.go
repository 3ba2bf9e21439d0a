// Package cmd implements reqx's CLI.
package cmd

import (
	"go.followtheprocess.codes/cli"
	"go.followtheprocess.codes/reqx/internal/reqx"
	"go.followtheprocess.codes/reqx/internal/transport"
	"go.followtheprocess.codes/reqx/internal/tui"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

// Build returns the root reqx CLI command.
func Build() (*cli.Command, error) {
	return cli.New(
		"reqx",
		cli.Short("Describe HTTP requests in .reqx files and execute them from the command line"),
		cli.Allow(cli.NoArgs()),
		cli.Version(version),
		cli.Commit(commit),
		cli.BuildDate(date),
		cli.Run(func(cmd *cli.Command, args []string) error {
			// Bare reqx launches the interactive picker
			return tui.Run()
		}),
		cli.SubCommands(check, show, do),
	)
}

// check returns the check subcommand.
func check() (*cli.Command, error) {
	var options reqx.CheckOptions
	return cli.New(
		"check",
		cli.Short("Check .reqx files for syntax errors"),
		cli.Allow(cli.MinArgs(1)),
		cli.Flag(&options.Watch, "watch", 'w', false, "Re-check the files whenever they change"),
		cli.Run(func(cmd *cli.Command, args []string) error {
			app := reqx.New(cmd.Stdout(), cmd.Stderr(), nil)
			return app.Check(args, options)
		}),
	)
}

// show returns the show subcommand.
func show() (*cli.Command, error) {
	var options reqx.ShowOptions
	return cli.New(
		"show",
		cli.Short("Show the requests described in a .reqx file"),
		cli.RequiredArg("file", "Path of the .reqx file"),
		cli.Flag(&options.Resolve, "resolve", 'r', false, "Resolve the file handling variable interpolation etc."),
		cli.Flag(&options.JSON, "json", 'j', false, "Output the file as JSON"),
		cli.Run(func(cmd *cli.Command, args []string) error {
			app := reqx.New(cmd.Stdout(), cmd.Stderr(), nil)
			return app.Show(cmd.Arg("file"), options)
		}),
	)
}

const doLong = `
Requests are executed sequentially in the order they appear in the
file. Use '--request' to execute only the request at a given 1-based
index, or '--method' to execute only requests with a given HTTP verb.

'--dry-run' shows the fully resolved requests without sending anything,
and the final response body can be saved to a file with '--output'.
`

// do returns the do subcommand.
func do() (*cli.Command, error) {
	var options reqx.DoOptions
	return cli.New(
		"do",
		cli.Short("Execute the HTTP requests in a .reqx file"),
		cli.Long(doLong),
		cli.RequiredArg("file", ".reqx file containing the requests"),
		cli.Flag(&options.Request, "request", 'r', 0, "Execute only the request at this index (1-based)"),
		cli.Flag(&options.Method, "method", 'm', "", "Execute only requests with this HTTP method"),
		cli.Flag(&options.Timeout, "timeout", cli.NoShortHand, transport.DefaultTimeout, "Timeout per request"),
		cli.Flag(&options.Output, "output", 'o', "", "Name of a file to save the response body"),
		cli.Flag(&options.DryRun, "dry-run", 'd', false, "Show requests without actually sending them"),
		cli.Flag(&options.Verbose, "verbose", 'v', false, "Show request and response detail"),
		cli.Run(func(cmd *cli.Command, args []string) error {
			app := reqx.New(cmd.Stdout(), cmd.Stderr(), nil)
			return app.Do(cmd.Arg("file"), options)
		}),
	)
}
