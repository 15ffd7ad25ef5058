package cleartool

import (
	"strings"
	"time"
)

// View identifies a view registered on the server.
type View struct {
	Tag       string
	Live      bool   // dynamic view (vs. snapshot)
	Stream    string // bound stream selector; empty for branch-selected views
	UUID      string // assigned by the server at creation
	LocalPath string // snapshot root, or the view root of a live view
	Host      string
}

// IsStreamTracking reports whether the view follows a stream.
func (v View) IsStreamTracking() bool {
	return v.Stream != ""
}

// Kind returns "dynamic" or "snapshot".
func (v View) Kind() string {
	if v.Live {
		return "dynamic"
	}
	return "snapshot"
}

// LogQuery selects the history to return from QueryLog.
type LogQuery struct {
	Since  time.Time
	View   View
	Scope  string   // branch type or stream branch; empty means all branches
	Paths  []string // element paths relative to the view root
	Format string   // output format handed to the tool
}

// ActivityInfo describes an activity as reported by the server.
type ActivityInfo struct {
	Name         string
	Headline     string
	Stream       string
	Owner        string
	Contributing []string // sub-activities of an integration activity
}

// IsIntegration reports whether the activity aggregates other activities
// (deliver and rebase activities).
func (a ActivityInfo) IsIntegration() bool {
	name := a.Name
	if idx := strings.LastIndexByte(name, ':'); idx != -1 {
		name = name[idx+1:]
	}
	return len(a.Contributing) > 0 ||
		strings.HasPrefix(name, "deliver.") ||
		strings.HasPrefix(name, "rebase.")
}
