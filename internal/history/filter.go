package history

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Filter decides whether a record takes part in the changelog.
type Filter interface {
	Accept(r Record) bool
}

// Chain applies filters in order; a record must pass all of them.
type Chain []Filter

// Apply returns the records accepted by every filter.
func (c Chain) Apply(records []Record) []Record {
	if len(c) == 0 {
		return records
	}
	kept := make([]Record, 0, len(records))
	for _, r := range records {
		if c.accept(r) {
			kept = append(kept, r)
		}
	}
	return kept
}

func (c Chain) accept(r Record) bool {
	for _, f := range c {
		if !f.Accept(r) {
			return false
		}
	}
	return true
}

// DefaultFilter drops branch creation events and the empty /0 version that a
// new branch starts with.
type DefaultFilter struct{}

func (DefaultFilter) Accept(r Record) bool {
	if r.Operation == "mkbranch" || strings.Contains(r.Event, "create branch") {
		return false
	}
	if r.Event == "create version" && strings.HasSuffix(r.Version, "/0") {
		return false
	}
	return true
}

// DestroySubBranchFilter drops "destroy sub-branch" events.
type DestroySubBranchFilter struct{}

func (DestroySubBranchFilter) Accept(r Record) bool {
	return !strings.Contains(r.Event, "destroy sub-branch")
}

// UserFilter drops records of excluded users.
type UserFilter struct {
	excluded map[string]struct{}
}

// NewUserFilter creates a filter excluding users (case-insensitive).
func NewUserFilter(users []string) *UserFilter {
	f := &UserFilter{excluded: make(map[string]struct{}, len(users))}
	for _, u := range users {
		f.excluded[strings.ToLower(strings.TrimSpace(u))] = struct{}{}
	}
	return f
}

func (f *UserFilter) Accept(r Record) bool {
	_, excluded := f.excluded[strings.ToLower(r.Author)]
	return !excluded
}

// PathFilter applies glob include and exclude patterns to element paths.
type PathFilter struct {
	Include []string
	Exclude []string
}

func (f PathFilter) Accept(r Record) bool {
	path := normalizePath(r.Path)

	// Check exclude patterns first
	for _, pattern := range f.Exclude {
		if matched, _ := doublestar.Match(pattern, path); matched {
			return false
		}
	}

	if len(f.Include) == 0 {
		return true
	}
	for _, pattern := range f.Include {
		if matched, _ := doublestar.Match(pattern, path); matched {
			return true
		}
	}
	return false
}

// LoadRuleFilter keeps records of elements below one of the load rules.
type LoadRuleFilter struct {
	rules []string
}

// NewLoadRuleFilter creates a filter for the given load rules.
func NewLoadRuleFilter(rules []string) *LoadRuleFilter {
	f := &LoadRuleFilter{}
	for _, rule := range rules {
		rule = strings.Trim(normalizePath(rule), "/")
		if rule != "" {
			f.rules = append(f.rules, "/"+rule+"/")
		}
	}
	return f
}

func (f *LoadRuleFilter) Accept(r Record) bool {
	if len(f.rules) == 0 {
		return true
	}
	path := "/" + normalizePath(r.Path) + "/"
	for _, rule := range f.rules {
		if strings.Contains(path, rule) {
			return true
		}
	}
	return false
}

// normalizePath converts separators to '/' and strips the leading one.
func normalizePath(path string) string {
	return strings.TrimLeft(strings.ReplaceAll(path, `\`, "/"), "/")
}
