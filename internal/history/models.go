package history

import "time"

// Record is one event from the history log.
type Record struct {
	Path      string // element path
	Version   string // version id, e.g. /main/dev/4
	Event     string // e.g. "create version"
	Operation string // e.g. "checkin"
	Author    string
	When      time.Time
	Comment   string
	Activity  string // owning activity selector, empty outside stream-tracking views
}

// File returns the part of the record kept in a changeset.
func (r Record) File() FileRecord {
	return FileRecord{
		Path:      r.Path,
		Version:   r.Version,
		Event:     r.Event,
		Operation: r.Operation,
	}
}

// FileRecord is an affected element inside a changeset.
type FileRecord struct {
	Path      string
	Version   string
	Event     string
	Operation string
}

// Changeset groups records of one author with one comment that happened
// close together in time.
type Changeset struct {
	Author       string
	Comment      string
	When         time.Time // oldest record of the group
	Files        []FileRecord
	ActivityName string
	Activity     *Activity
}

// Activity is a resolved activity. Integration activities carry the
// activities they deliver or rebase as sub-activities.
type Activity struct {
	Name          string
	Headline      string
	Stream        string
	Owner         string
	SubActivities []*Activity
}
