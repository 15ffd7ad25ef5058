package cmd

import (
	"errors"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/masmgr/ccbuild-go/internal/history"
)

// Exit codes of the poll command.
const (
	ExitNoChanges    = 1
	ExitPendingEdits = 3
)

// PollCmd returns the poll command.
func PollCmd() *cli.Command {
	return &cli.Command{
		Name:   "poll",
		Usage:  "Exit 0 when the view has changes to build, 1 when it has none and 3 while checkouts are pending",
		Flags:  append(viewFlags(), historyFlags()...),
		Action: pollAction,
	}
}

func pollAction(c *cli.Context) error {
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
	if since == nil {
		color.New(color.FgGreen).Fprintf(c.App.Writer, "%s has never been built\n", ctx.Config.View.Tag)
		return nil
	}

	changed, err := ctx.Fetcher().PollHasChanges(c.Context, *since, ctx.View(), ctx.Config.History.Branches, ctx.Config.History.Paths)
	if errors.Is(err, history.ErrPendingLocalEdits) {
		return cli.Exit(color.YellowString("Not building: %v", err), ExitPendingEdits)
	}
	if err != nil {
		return err
	}
	if !changed {
		return cli.Exit("No changes since "+since.Format(time.DateTime), ExitNoChanges)
	}

	color.New(color.FgGreen).Fprintf(c.App.Writer, "Changes since %s\n", since.Format(time.DateTime))
	return nil
}
