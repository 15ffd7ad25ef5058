package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/masmgr/ccbuild-go/internal/output"
)

// OutputOptions creates OutputOptions from CLI flags.
func OutputOptions(c *cli.Context) output.OutputOptions {
	return output.OutputOptions{
		Format:     getOutputFormat(c.String("format")),
		Top:        c.Int("top"),
		OutputPath: c.String("output"),
		ShowFiles:  c.Bool("files"),
		Stdout:     c.App.Writer,
	}
}

func writeChangelog(c *cli.Context, report *output.ChangelogReport) error {
	opts := OutputOptions(c)
	writer := output.NewChangelogWriter(opts.Format)
	return writer.Write(report, opts)
}
