package view

import (
	"errors"
	"time"

	"github.com/masmgr/ccbuild-go/internal/cleartool"
)

// Config is the desired state of a view.
type Config struct {
	Tag       string
	LocalPath string // snapshot views only
	Live      bool
	Stream    string // set for stream-tracking views

	// ConfigSpec is installed verbatim into plain views. When LoadRules is
	// also set its load rules are replaced.
	ConfigSpec string
	LoadRules  []string

	UpdateInPlace   bool
	StorageLocation string
	ExtraParams     string

	FreezeLiveViews bool
	FreezeTime      time.Time // zero means the reconciler's clock
	Windows         bool      // CRLF line endings and backslash separators
}

// Validate checks that the configuration can be reconciled.
func (c Config) Validate() error {
	if c.Tag == "" {
		return errors.New("view tag is required")
	}
	if !c.Live && c.LocalPath == "" {
		return errors.New("snapshot view requires a local path")
	}
	if c.Stream == "" && c.ConfigSpec == "" && len(c.LoadRules) == 0 {
		return errors.New("view without a stream requires a config spec or load rules")
	}
	return nil
}

// View returns the view descriptor for this configuration.
func (c Config) View() cleartool.View {
	v := cleartool.View{
		Tag:    c.Tag,
		Live:   c.Live,
		Stream: c.Stream,
	}
	if !c.Live {
		v.LocalPath = c.LocalPath
	}
	return v
}

// Result is the outcome of a reconciliation.
type Result struct {
	View cleartool.View
	// OriginalSpec is the view's spec before any time freeze.
	OriginalSpec  string
	Recreated     bool
	SpecInstalled bool
	Frozen        bool
}
