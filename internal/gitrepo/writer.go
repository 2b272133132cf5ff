// Package gitrepo applies replay events to a local git working tree: it
// writes each event's files, stages them, and records one commit per
// event using the event's author identity and timestamp. Events must be
// applied in the order the replay produces them, so the resulting history
// matches the source chronology.
package gitrepo

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/forgeport/forgeport/internal/wiki"
)

// Writer commits replay events into an existing repository.
type Writer struct {
	dir  string
	repo *git.Repository
	wt   *git.Worktree
}

// Open prepares a writer for the repository at dir. The directory must
// already contain a cloned repository (for a wiki conversion, the target
// wiki repo).
func Open(dir string) (*Writer, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return nil, fmt.Errorf("gitrepo: open %s: %w", dir, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("gitrepo: worktree: %w", err)
	}
	return &Writer{dir: dir, repo: repo, wt: wt}, nil
}

// Init creates a fresh repository at dir and returns a writer for it.
func Init(dir string) (*Writer, error) {
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		return nil, fmt.Errorf("gitrepo: init %s: %w", dir, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("gitrepo: worktree: %w", err)
	}
	return &Writer{dir: dir, repo: repo, wt: wt}, nil
}

// Apply writes the event's files into the working tree, stages them and
// commits with the event's author, email and timestamp (normalised to
// UTC). File names are processed in sorted order so the staged tree is
// deterministic.
func (w *Writer) Apply(ev wiki.ReplayEvent) (plumbing.Hash, error) {
	names := make([]string, 0, len(ev.Files))
	for name := range ev.Files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(w.dir, name)
		if err := os.WriteFile(path, []byte(ev.Files[name]), 0644); err != nil {
			return plumbing.ZeroHash, fmt.Errorf("gitrepo: write %s: %w", name, err)
		}
		if _, err := w.wt.Add(name); err != nil {
			return plumbing.ZeroHash, fmt.Errorf("gitrepo: stage %s: %w", name, err)
		}
	}

	sig := &object.Signature{
		Name:  ev.AuthorName,
		Email: ev.AuthorEmail,
		When:  ev.Date.UTC(),
	}
	hash, err := w.wt.Commit(ev.Message, &git.CommitOptions{
		Author:    sig,
		Committer: sig,
		// Consecutive versions can render identical trees; every replay
		// event still becomes a commit.
		AllowEmptyCommits: true,
	})
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("gitrepo: commit %q: %w", ev.Name, err)
	}
	return hash, nil
}

// Dir returns the working tree directory.
func (w *Writer) Dir() string {
	return w.dir
}
