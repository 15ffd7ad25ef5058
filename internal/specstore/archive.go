// Package specstore archives the original config spec of every build in a
// local git repository, one file per view tag.
package specstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

var signature = object.Signature{Name: "ccbuild", Email: "ccbuild@localhost"}

// ErrNotArchived is returned when no spec has been saved for a tag.
var ErrNotArchived = errors.New("config spec not archived")

// Revision is one archived version of a view's spec.
type Revision struct {
	Hash    string
	When    time.Time
	Message string
}

// Archive is a git repository of config specs.
type Archive struct {
	path string
	repo *git.Repository
}

// Open opens the archive at path, creating it when needed.
func Open(path string) (*Archive, error) {
	repo, err := git.PlainOpen(path)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("create spec archive: %w", err)
		}
		repo, err = git.PlainInit(path, false)
	}
	if err != nil {
		return nil, fmt.Errorf("open spec archive %s: %w", path, err)
	}
	return &Archive{path: path, repo: repo}, nil
}

// Save commits spec as the current spec of tag and returns the commit hash.
// When the archived spec is already identical no commit is made and the
// boolean is false.
func (a *Archive) Save(tag, spec string, when time.Time, message string) (string, bool, error) {
	name := fileName(tag)

	current, err := a.Latest(tag)
	switch {
	case err == nil && current == spec:
		head, err := a.repo.Head()
		if err != nil {
			return "", false, fmt.Errorf("read archive head: %w", err)
		}
		return head.Hash().String(), false, nil
	case err != nil && !errors.Is(err, ErrNotArchived):
		return "", false, err
	}

	if err := os.WriteFile(filepath.Join(a.path, name), []byte(spec), 0o644); err != nil {
		return "", false, fmt.Errorf("write %s: %w", name, err)
	}

	wt, err := a.repo.Worktree()
	if err != nil {
		return "", false, fmt.Errorf("open archive worktree: %w", err)
	}
	if _, err := wt.Add(name); err != nil {
		return "", false, fmt.Errorf("stage %s: %w", name, err)
	}

	if message == "" {
		message = "Config spec of " + tag
	}
	sig := signature
	sig.When = when
	hash, err := wt.Commit(message, &git.CommitOptions{Author: &sig, Committer: &sig})
	if err != nil {
		return "", false, fmt.Errorf("commit %s: %w", name, err)
	}
	return hash.String(), true, nil
}

// Latest returns the most recently archived spec of tag.
func (a *Archive) Latest(tag string) (string, error) {
	head, err := a.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return "", fmt.Errorf("%s: %w", tag, ErrNotArchived)
	}
	if err != nil {
		return "", fmt.Errorf("read archive head: %w", err)
	}
	return a.At(head.Hash().String(), tag)
}

// At returns the spec of tag as archived in the given commit.
func (a *Archive) At(revision, tag string) (string, error) {
	hash, err := a.repo.ResolveRevision(plumbing.Revision(revision))
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", revision, err)
	}
	c, err := a.repo.CommitObject(*hash)
	if err != nil {
		return "", fmt.Errorf("read commit %s: %w", revision, err)
	}
	f, err := c.File(fileName(tag))
	if errors.Is(err, object.ErrFileNotFound) {
		return "", fmt.Errorf("%s at %s: %w", tag, revision, ErrNotArchived)
	}
	if err != nil {
		return "", fmt.Errorf("read %s at %s: %w", tag, revision, err)
	}
	return f.Contents()
}

// History lists the commits that changed the spec of tag, newest first.
func (a *Archive) History(tag string, limit int) ([]Revision, error) {
	head, err := a.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read archive head: %w", err)
	}

	name := fileName(tag)
	iter, err := a.repo.Log(&git.LogOptions{From: head.Hash(), FileName: &name})
	if err != nil {
		return nil, fmt.Errorf("read archive log: %w", err)
	}
	defer iter.Close()

	var revisions []Revision
	err = iter.ForEach(func(c *object.Commit) error {
		if limit > 0 && len(revisions) >= limit {
			return storer.ErrStop
		}
		revisions = append(revisions, Revision{
			Hash:    c.Hash.String(),
			When:    c.Committer.When,
			Message: strings.TrimSpace(c.Message),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk archive log: %w", err)
	}
	return revisions, nil
}

func fileName(tag string) string {
	return strings.NewReplacer("/", "_", `\`, "_", ":", "_").Replace(tag) + ".cs"
}
