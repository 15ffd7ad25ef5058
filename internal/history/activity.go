package history

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/masmgr/ccbuild-go/internal/cleartool"
)

// DefaultActivityDepth bounds the resolution of nested integration activities.
const DefaultActivityDepth = 3

// ActivityResolver attaches activities to changesets. Descriptions are
// cached for the lifetime of the resolver; trees are built per changeset so
// each one honours the depth cap and cycle cut from its own root.
type ActivityResolver struct {
	exec     cleartool.Executor
	maxDepth int
	cache    map[string]cleartool.ActivityInfo
}

// NewActivityResolver creates a resolver descending at most maxDepth levels
// into integration activities.
func NewActivityResolver(exec cleartool.Executor, maxDepth int) *ActivityResolver {
	if maxDepth <= 0 {
		maxDepth = DefaultActivityDepth
	}
	return &ActivityResolver{
		exec:     exec,
		maxDepth: maxDepth,
		cache:    make(map[string]cleartool.ActivityInfo),
	}
}

// Resolve sets Activity on every changeset that names one. Failed lookups are
// logged and leave the changeset without an activity.
func (r *ActivityResolver) Resolve(ctx context.Context, changesets []Changeset) error {
	for i := range changesets {
		name := changesets[i].ActivityName
		if name == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		activity, err := r.resolve(ctx, name, 0, make(map[string]bool))
		if err != nil {
			log.Warn().Err(err).Str("activity", name).Msg("Failed to describe activity")
			continue
		}
		changesets[i].Activity = activity
	}
	return nil
}

func (r *ActivityResolver) describe(ctx context.Context, name string) (cleartool.ActivityInfo, error) {
	if info, ok := r.cache[name]; ok {
		return info, nil
	}
	info, err := r.exec.DescribeActivity(ctx, name)
	if err != nil {
		return cleartool.ActivityInfo{}, err
	}
	r.cache[name] = info
	return info, nil
}

func (r *ActivityResolver) resolve(ctx context.Context, name string, depth int, visiting map[string]bool) (*Activity, error) {
	info, err := r.describe(ctx, name)
	if err != nil {
		return nil, err
	}

	activity := &Activity{
		Name:     info.Name,
		Headline: info.Headline,
		Stream:   info.Stream,
		Owner:    info.Owner,
	}

	if info.IsIntegration() && depth < r.maxDepth {
		visiting[name] = true
		for _, sub := range info.Contributing {
			if visiting[sub] {
				log.Debug().Str("activity", sub).Msg("Skipping activity cycle")
				continue
			}
			child, err := r.resolve(ctx, sub, depth+1, visiting)
			if err != nil {
				log.Warn().Err(err).Str("activity", sub).Msg("Failed to describe sub-activity")
				continue
			}
			activity.SubActivities = append(activity.SubActivities, child)
		}
		delete(visiting, name)
	}
	return activity, nil
}
