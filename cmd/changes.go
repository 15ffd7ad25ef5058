package cmd

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
)

// ChangesCmd returns the changes command.
func ChangesCmd() *cli.Command {
	flags := append(viewFlags(), historyFlags()...)
	flags = append(flags, reportFlags()...)

	return &cli.Command{
		Name:    "changes",
		Aliases: []string{"log"},
		Usage:   "Report the changesets in the view since a point in time",
		Flags:   flags,
		Action:  changesAction,
	}
}

func changesAction(c *cli.Context) error {
	ctx, err := NewCommandContext(c)
	if err != nil {
		return err
	}

	store, err := ctx.OpenState()
	if err != nil {
		return err
	}
	defer store.Close()

	since, err := ctx.Since(c, store)
	if err != nil {
		return err
	}
	from := time.Time{}
	if since == nil {
		ctx.PrintNoBuildMessage(c)
	} else {
		from = *since
	}

	until := time.Now()
	changesets, err := ctx.Fetcher().FetchChanges(c.Context, from, ctx.View(), ctx.Config.History.Branches, ctx.Config.History.Paths)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	return writeChangelog(c, ctx.Report(since, until, changesets))
}
