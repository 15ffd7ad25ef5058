package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/masmgr/ccbuild-go/config"
	"github.com/masmgr/ccbuild-go/internal/buildstate"
	"github.com/masmgr/ccbuild-go/internal/cleartool"
	"github.com/masmgr/ccbuild-go/internal/history"
	"github.com/masmgr/ccbuild-go/internal/output"
	"github.com/masmgr/ccbuild-go/internal/specstore"
	"github.com/masmgr/ccbuild-go/internal/view"
)

// newExecutor creates the executor commands run against.
var newExecutor = func(cfg *config.Config) cleartool.Executor {
	return cleartool.NewTool(cleartool.ToolOptions{Executable: cfg.Tool.Executable})
}

// CommandContext holds common state for command execution.
// It encapsulates the setup shared by the commands that work on a view.
type CommandContext struct {
	Config *config.Config
	Exec   cleartool.Executor
}

// NewCommandContext creates a context from CLI flags.
func NewCommandContext(c *cli.Context) (*CommandContext, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	if cfg.View.Tag == "" {
		return nil, errors.New("no view tag: pass --tag or set view.tag")
	}
	return &CommandContext{Config: cfg, Exec: newExecutor(cfg)}, nil
}

// ViewConfig returns the desired state of the configured view.
func (ctx *CommandContext) ViewConfig() (view.Config, error) {
	v := ctx.Config.View
	spec, err := v.SpecText()
	if err != nil {
		return view.Config{}, err
	}
	return view.Config{
		Tag:             v.Tag,
		LocalPath:       v.Path,
		Live:            v.Live,
		Stream:          v.Stream,
		ConfigSpec:      spec,
		LoadRules:       v.LoadRules,
		UpdateInPlace:   v.UpdateInPlace,
		StorageLocation: v.StorageLocation,
		ExtraParams:     v.ExtraParams,
		FreezeLiveViews: v.FreezeLiveViews,
		Windows:         v.Windows,
	}, nil
}

// View returns the descriptor of the configured view.
func (ctx *CommandContext) View() cleartool.View {
	v := ctx.Config.View
	desc := cleartool.View{Tag: v.Tag, Live: v.Live, Stream: v.Stream}
	if !v.Live {
		desc.LocalPath = v.Path
	}
	return desc
}

// Fetcher creates a history fetcher from the configuration.
func (ctx *CommandContext) Fetcher() *history.Fetcher {
	h := ctx.Config.History
	return history.NewFetcher(ctx.Exec, history.FetcherOptions{
		WindowSeconds:     h.WindowSeconds,
		Delimiter:         h.Delimiter,
		BenignErrors:      h.BenignErrors,
		Location:          time.Local,
		Filters:           buildFilters(ctx.Config),
		ResolveActivities: true,
		ActivityDepth:     h.ActivityDepth,
	})
}

// buildFilters assembles the record filters selected by the configuration.
func buildFilters(cfg *config.Config) history.Chain {
	chain := history.Chain{history.DefaultFilter{}}
	if !cfg.History.KeepDestroySubBranch {
		chain = append(chain, history.DestroySubBranchFilter{})
	}
	if len(cfg.History.ExcludedUsers) > 0 {
		chain = append(chain, history.NewUserFilter(cfg.History.ExcludedUsers))
	}
	if len(cfg.History.Include) > 0 || len(cfg.History.Exclude) > 0 {
		chain = append(chain, history.PathFilter{Include: cfg.History.Include, Exclude: cfg.History.Exclude})
	}
	if cfg.History.FilterOutsideLoadRules && len(cfg.View.LoadRules) > 0 {
		chain = append(chain, history.NewLoadRuleFilter(cfg.View.LoadRules))
	}
	return chain
}

// OpenState opens the build database.
func (ctx *CommandContext) OpenState() (*buildstate.Store, error) {
	store, err := buildstate.Open(ctx.Config.State.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open build state: %w", err)
	}
	return store, nil
}

// OpenArchive opens the config spec archive.
func (ctx *CommandContext) OpenArchive() (*specstore.Archive, error) {
	archive, err := specstore.Open(ctx.Config.State.SpecArchive)
	if err != nil {
		return nil, fmt.Errorf("failed to open spec archive: %w", err)
	}
	return archive, nil
}

// Since resolves the start of the reported range: the --since flag, else the
// last recorded build of the view. Nil means the view was never built.
func (ctx *CommandContext) Since(c *cli.Context, store *buildstate.Store) (*time.Time, error) {
	since, err := parseSinceFlag(c.String("since"))
	if err != nil || since != nil {
		return since, err
	}

	last, found, err := store.LastBuild(c.Context, ctx.Config.View.Tag)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	log.Debug().Str("tag", last.Tag).Time("started", last.StartedAt).Msg("Using last recorded build")
	return &last.StartedAt, nil
}

// Report creates the changelog report of the view.
func (ctx *CommandContext) Report(since *time.Time, until time.Time, changesets []history.Changeset) *output.ChangelogReport {
	return &output.ChangelogReport{
		Tag:         ctx.Config.View.Tag,
		Stream:      ctx.Config.View.Stream,
		Since:       since,
		Until:       until,
		GeneratedAt: time.Now(),
		Changesets:  changesets,
	}
}

// PrintNoBuildMessage prints a message when the view has no recorded build.
func (ctx *CommandContext) PrintNoBuildMessage(c *cli.Context) {
	color.New(color.FgYellow).Fprintf(c.App.ErrWriter, "No recorded build of %s; reporting the full history.\n", ctx.Config.View.Tag)
}
