package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/masmgr/ccbuild-go/internal/specstore"
)

// SpecCmd returns the spec command.
func SpecCmd() *cli.Command {
	return &cli.Command{
		Name:  "spec",
		Usage: "Work with the archived original config specs of past builds",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print an archived config spec",
				Flags:  append(viewFlags(), revisionFlag()),
				Action: specShowAction,
			},
			{
				Name:  "log",
				Usage: "List the archived config specs of the view",
				Flags: append(viewFlags(), &cli.IntFlag{
					Name:    "limit",
					Aliases: []string{"n"},
					Usage:   "Number of revisions to show (0: all)",
				}),
				Action: specLogAction,
			},
			{
				Name:   "restore",
				Usage:  "Install an archived config spec into the view",
				Flags:  append(viewFlags(), revisionFlag()),
				Action: specRestoreAction,
			},
		},
	}
}

func revisionFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "revision",
		Usage: "Archive revision (default: latest)",
	}
}

func archivedSpec(c *cli.Context, ctx *CommandContext) (string, error) {
	archive, err := ctx.OpenArchive()
	if err != nil {
		return "", err
	}
	if rev := c.String("revision"); rev != "" {
		return archive.At(rev, ctx.Config.View.Tag)
	}
	return archive.Latest(ctx.Config.View.Tag)
}

func specShowAction(c *cli.Context) error {
	ctx, err := NewCommandContext(c)
	if err != nil {
		return err
	}
	spec, err := archivedSpec(c, ctx)
	if err != nil {
		return err
	}
	_, err = io.WriteString(c.App.Writer, spec)
	return err
}

func specLogAction(c *cli.Context) error {
	ctx, err := NewCommandContext(c)
	if err != nil {
		return err
	}
	archive, err := ctx.OpenArchive()
	if err != nil {
		return err
	}
	revisions, err := archive.History(ctx.Config.View.Tag, c.Int("limit"))
	if err != nil {
		return err
	}
	if len(revisions) == 0 {
		return fmt.Errorf("%s: %w", ctx.Config.View.Tag, specstore.ErrNotArchived)
	}
	for _, rev := range revisions {
		fmt.Fprintf(c.App.Writer, "%s  %s  %s\n", color.YellowString(rev.Hash[:10]), rev.When.Format(time.DateTime), rev.Message)
	}
	return nil
}

func specRestoreAction(c *cli.Context) error {
	ctx, err := NewCommandContext(c)
	if err != nil {
		return err
	}
	spec, err := archivedSpec(c, ctx)
	if err != nil {
		return err
	}
	if err := ctx.Exec.SetSpec(c.Context, ctx.View(), spec); err != nil {
		return fmt.Errorf("failed to restore config spec: %w", err)
	}
	color.New(color.FgGreen).Fprintf(c.App.Writer, "Config spec of %s restored\n", ctx.Config.View.Tag)
	return nil
}
