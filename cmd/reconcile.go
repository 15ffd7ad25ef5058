package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/masmgr/ccbuild-go/internal/buildstate"
	"github.com/masmgr/ccbuild-go/internal/configspec"
	"github.com/masmgr/ccbuild-go/internal/history"
	"github.com/masmgr/ccbuild-go/internal/output"
	"github.com/masmgr/ccbuild-go/internal/view"
)

func reconcileFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "freeze-time",
			Usage: "Time to freeze live views at (default: now)",
		},
		&cli.BoolFlag{
			Name:  "no-update",
			Usage: "Always recreate the view instead of updating it in place",
		},
	}
}

// ReconcileCmd returns the reconcile command.
func ReconcileCmd() *cli.Command {
	flags := append(viewFlags(), reconcileFlags()...)
	flags = append(flags, &cli.StringFlag{
		Name:  "original-spec",
		Usage: "Write the config spec as it was before freezing to this file",
	})

	return &cli.Command{
		Name:   "reconcile",
		Usage:  "Create or update the view so that it matches the configuration",
		Flags:  flags,
		Action: reconcileAction,
	}
}

func reconcileAction(c *cli.Context) error {
	ctx, err := NewCommandContext(c)
	if err != nil {
		return err
	}

	result, err := reconcileView(c, ctx)
	if err != nil {
		return err
	}
	printReconcileResult(c, result)

	if path := c.String("original-spec"); path != "" {
		if err := os.WriteFile(path, []byte(result.OriginalSpec), 0o644); err != nil {
			return fmt.Errorf("failed to write original spec: %w", err)
		}
	}
	return nil
}

// CheckoutCmd returns the checkout command.
func CheckoutCmd() *cli.Command {
	flags := append(viewFlags(), reconcileFlags()...)
	flags = append(flags, historyFlags()...)
	flags = append(flags, reportFlags()...)
	flags = append(flags, &cli.StringFlag{
		Name:  "changelog",
		Usage: "Also write the XML changelog to this file",
	})

	return &cli.Command{
		Name:    "checkout",
		Aliases: []string{"co"},
		Usage:   "Prepare the view for a build, record the build and report changes since the previous one",
		Flags:   flags,
		Action:  checkoutAction,
	}
}

func checkoutAction(c *cli.Context) error {
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

	started := time.Now()
	result, err := reconcileView(c, ctx)
	if err != nil {
		return err
	}
	printReconcileResult(c, result)

	commit, err := archiveSpec(c, ctx, result, started)
	if err != nil {
		return err
	}
	build, err := store.RecordBuild(c.Context, buildstate.Build{
		Tag:        ctx.Config.View.Tag,
		StartedAt:  started,
		ViewUUID:   result.View.UUID,
		Recreated:  result.Recreated,
		SpecCommit: commit,
	})
	if err != nil {
		return err
	}

	if since == nil {
		color.New(color.FgYellow).Fprintf(c.App.Writer, "First recorded build of %s; no changelog.\n", ctx.Config.View.Tag)
		return nil
	}

	changesets, err := ctx.Fetcher().FetchChanges(c.Context, *since, result.View, ctx.Config.History.Branches, ctx.Config.History.Paths)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	if err := store.SetChangesets(c.Context, build.ID, len(changesets)); err != nil {
		return err
	}

	report := ctx.Report(since, started, changesets)
	if path := c.String("changelog"); path != "" {
		if err := (&output.XMLWriter{}).Write(report, output.OutputOptions{Format: output.FormatXML, OutputPath: path}); err != nil {
			return fmt.Errorf("failed to write changelog: %w", err)
		}
	}
	return writeChangelog(c, report)
}

func reconcileView(c *cli.Context, ctx *CommandContext) (view.Result, error) {
	cfg, err := ctx.ViewConfig()
	if err != nil {
		return view.Result{}, err
	}

	freezeAt, err := parseSinceFlag(c.String("freeze-time"))
	if err != nil {
		return view.Result{}, fmt.Errorf("invalid freeze time: %w", err)
	}
	if freezeAt != nil {
		cfg.FreezeTime = *freezeAt
	}
	if c.Bool("no-update") {
		cfg.UpdateInPlace = false
	}

	return view.NewReconciler(ctx.Exec, view.Options{}).Reconcile(c.Context, cfg)
}

// archiveSpec saves the original spec of the build and returns its commit.
func archiveSpec(c *cli.Context, ctx *CommandContext, result view.Result, when time.Time) (string, error) {
	archive, err := ctx.OpenArchive()
	if err != nil {
		return "", err
	}
	message := fmt.Sprintf("Build of %s at %s", result.View.Tag, configspec.FormatTime(when))
	commit, _, err := archive.Save(result.View.Tag, result.OriginalSpec, when, message)
	if err != nil {
		return "", fmt.Errorf("failed to archive config spec: %w", err)
	}
	return commit, nil
}

func printReconcileResult(c *cli.Context, result view.Result) {
	out := c.App.Writer
	color.New(color.FgGreen).Fprintf(out, "View %s ready\n", result.View.Tag)
	fmt.Fprintf(out, "Kind: %s\n", result.View.Kind())
	if result.View.Stream != "" {
		fmt.Fprintf(out, "Stream: %s\n", history.StreamBranch(result.View.Stream))
	}
	if result.View.UUID != "" {
		fmt.Fprintf(out, "UUID: %s\n", result.View.UUID)
	}
	switch {
	case result.Recreated:
		fmt.Fprintln(out, "Action: created")
	case result.SpecInstalled:
		fmt.Fprintln(out, "Action: updated, config spec installed")
	default:
		fmt.Fprintln(out, "Action: updated")
	}
	if result.Frozen {
		fmt.Fprintln(out, "Config spec frozen")
	}
}
