package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/masmgr/ccbuild-go/internal/cleartool"
)

// ErrPendingLocalEdits is returned by PollHasChanges while checkouts exist on
// a polled branch.
var ErrPendingLocalEdits = errors.New("pending local edits")

// FetcherOptions configures a Fetcher.
type FetcherOptions struct {
	WindowSeconds     int
	Delimiter         string
	BenignErrors      []string
	Location          *time.Location
	Filters           Chain
	ResolveActivities bool
	ActivityDepth     int
}

// Fetcher queries the history of a view and turns it into changesets.
type Fetcher struct {
	exec       cleartool.Executor
	parser     *Parser
	filters    Chain
	aggregator *Aggregator
	resolver   *ActivityResolver
}

// NewFetcher creates a Fetcher.
func NewFetcher(exec cleartool.Executor, opts FetcherOptions) *Fetcher {
	f := &Fetcher{
		exec:       exec,
		parser:     NewParser(opts.Delimiter, opts.BenignErrors, opts.Location),
		filters:    opts.Filters,
		aggregator: NewAggregator(opts.WindowSeconds),
	}
	if opts.ResolveActivities {
		f.resolver = NewActivityResolver(exec, opts.ActivityDepth)
	}
	return f
}

// FetchChanges returns the changesets on branches below paths since the given
// time. Without branches a stream-tracking view queries its stream's branch
// and any other view queries all branches.
func (f *Fetcher) FetchChanges(ctx context.Context, since time.Time, v cleartool.View, branches, paths []string) ([]Changeset, error) {
	var raw strings.Builder
	for _, scope := range scopes(v, branches) {
		out, err := f.exec.QueryLog(ctx, cleartool.LogQuery{
			Since:  since,
			View:   v,
			Scope:  scope,
			Paths:  paths,
			Format: f.parser.Format(),
		})
		if err != nil {
			if out == "" || !f.parser.OnlyBenignErrors(out) {
				return nil, fmt.Errorf("query history of %s: %w", scopeLabel(scope), err)
			}
			log.Warn().Str("scope", scopeLabel(scope)).Msg("History query reported only benign errors, continuing")
		}
		raw.WriteString(out)
		if out != "" && !strings.HasSuffix(out, "\n") {
			raw.WriteByte('\n')
		}
	}

	result, err := f.parser.Parse(strings.NewReader(raw.String()))
	if err != nil {
		return nil, err
	}
	log.Debug().
		Int("records", len(result.Records)).
		Int("skipped", result.Skipped).
		Int("benign", result.Benign).
		Msg("Parsed history")

	records := f.filters.Apply(result.Records)
	changesets := f.aggregator.Aggregate(records)

	if f.resolver != nil && v.IsStreamTracking() {
		if err := f.resolver.Resolve(ctx, changesets); err != nil {
			return nil, err
		}
	}
	return changesets, nil
}

// PollHasChanges reports whether there are changes to build. It fails with
// ErrPendingLocalEdits while checkouts exist on one of the branches.
func (f *Fetcher) PollHasChanges(ctx context.Context, since time.Time, v cleartool.View, branches, paths []string) (bool, error) {
	for _, scope := range scopes(v, branches) {
		if scope == "" {
			continue
		}
		pending, err := f.exec.HasPendingLocalEdits(ctx, scope, v, paths)
		if err != nil {
			return false, fmt.Errorf("check checkouts on %s: %w", scope, err)
		}
		if pending {
			return false, fmt.Errorf("%w on branch %s", ErrPendingLocalEdits, scope)
		}
	}

	changesets, err := f.FetchChanges(ctx, since, v, branches, paths)
	if err != nil {
		return false, err
	}
	return len(changesets) > 0, nil
}

func scopes(v cleartool.View, branches []string) []string {
	if len(branches) > 0 {
		return branches
	}
	if v.IsStreamTracking() {
		return []string{StreamBranch(v.Stream)}
	}
	return []string{""}
}

// StreamBranch returns the branch type name of a stream selector such as
// "stream:dev@/vobs/pvob".
func StreamBranch(stream string) string {
	name := strings.TrimPrefix(stream, "stream:")
	if idx := strings.IndexByte(name, '@'); idx != -1 {
		name = name[:idx]
	}
	return name
}

func scopeLabel(scope string) string {
	if scope == "" {
		return "all branches"
	}
	return "branch " + scope
}
