package cleartool

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"
)

var (
	// ErrHostUnreachable is reported when a view tag is registered but the
	// host holding its storage cannot be contacted.
	ErrHostUnreachable = errors.New("view host unreachable")
	// ErrNoIdentityMarker is reported when a folder carries no view identity.
	ErrNoIdentityMarker = errors.New("no view identity marker")
)

// CommandError is returned for a failed external command. It keeps the
// command line and the raw output for diagnostics.
type CommandError struct {
	Args   []string
	Dir    string
	Output string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s: %v", shellquote.Join(e.Args...), e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + out
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// CommandLine returns the shell-quoted command line.
func (e *CommandError) CommandLine() string {
	return shellquote.Join(e.Args...)
}
