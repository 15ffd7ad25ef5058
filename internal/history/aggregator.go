package history

import (
	"sort"
	"time"

	"github.com/emirpasic/gods/sets/linkedhashset"
)

// clockSlack absorbs the rounding of timestamps in the history output.
const clockSlack = time.Second

// Aggregator merges records into changesets.
type Aggregator struct {
	maxWindow time.Duration
}

// NewAggregator creates an aggregator merging records of the same author and
// comment that lie within windowSeconds of an existing group.
func NewAggregator(windowSeconds int) *Aggregator {
	if windowSeconds < 0 {
		windowSeconds = 0
	}
	return &Aggregator{maxWindow: time.Duration(windowSeconds)*time.Second + clockSlack}
}

type group struct {
	author   string
	comment  string
	activity string
	oldest   time.Time
	newest   time.Time
	files    *linkedhashset.Set
}

func (g *group) within(t time.Time, maxWindow time.Duration) bool {
	return absDuration(t.Sub(g.oldest)) <= maxWindow || absDuration(t.Sub(g.newest)) <= maxWindow
}

func (g *group) add(r Record) {
	if r.When.Before(g.oldest) {
		g.oldest = r.When
	}
	if r.When.After(g.newest) {
		g.newest = r.When
	}
	if g.activity == "" {
		g.activity = r.Activity
	}
	g.files.Add(r.File())
}

// Aggregate groups records into changesets sorted by time, newest first.
// A changeset's time is the time of its oldest record.
func (a *Aggregator) Aggregate(records []Record) []Changeset {
	buckets := make(map[string][]*group)
	var authors []string

	for _, r := range records {
		groups, seen := buckets[r.Author]
		if !seen {
			authors = append(authors, r.Author)
		}

		var target *group
		for _, g := range groups {
			if g.comment == r.Comment && g.within(r.When, a.maxWindow) {
				target = g
				break
			}
		}
		if target == nil {
			target = &group{
				author:  r.Author,
				comment: r.Comment,
				oldest:  r.When,
				newest:  r.When,
				files:   linkedhashset.New(),
			}
			groups = append(groups, target)
		}
		target.add(r)
		buckets[r.Author] = groups
	}

	var changesets []Changeset
	for _, author := range authors {
		for _, g := range buckets[author] {
			changesets = append(changesets, g.changeset())
		}
	}

	sort.SliceStable(changesets, func(i, j int) bool {
		return changesets[i].When.After(changesets[j].When)
	})
	return changesets
}

func (g *group) changeset() Changeset {
	files := make([]FileRecord, 0, g.files.Size())
	for _, v := range g.files.Values() {
		files = append(files, v.(FileRecord))
	}
	return Changeset{
		Author:       g.author,
		Comment:      g.comment,
		When:         g.oldest,
		Files:        files,
		ActivityName: g.activity,
	}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
