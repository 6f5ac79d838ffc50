// Package gitload reads historical document content out of a local Git
// repository so structural deltas can be computed against any revision
// without checking it out.
package gitload

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// RevisionError indicates the requested revision could not be resolved.
type RevisionError struct {
	Revision string
	Err      error
}

func (e *RevisionError) Error() string {
	return fmt.Sprintf("resolve revision %q: %v", e.Revision, e.Err)
}
func (e *RevisionError) Unwrap() error { return e.Err }

// FileNotInRevisionError indicates the file does not exist at the revision.
type FileNotInRevisionError struct {
	Path     string
	Revision string
}

func (e *FileNotInRevisionError) Error() string {
	return fmt.Sprintf("file %q not present at revision %q", e.Path, e.Revision)
}

// FileAt returns the content of path as it was at the given revision.
// The repository is discovered by walking up from the file's directory,
// and path may be absolute or relative to the working directory.
func FileAt(path, revision string) ([]byte, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}

	repo, err := git.PlainOpenWithOptions(filepath.Dir(abs), &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository for %s: %w", abs, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("resolve worktree: %w", err)
	}
	rel, err := filepath.Rel(wt.Filesystem.Root(), abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return nil, fmt.Errorf("%s is outside the repository worktree", abs)
	}
	rel = filepath.ToSlash(rel)

	hash, err := repo.ResolveRevision(plumbing.Revision(revision))
	if err != nil {
		return nil, &RevisionError{Revision: revision, Err: err}
	}

	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, &RevisionError{Revision: revision, Err: err}
	}

	file, err := commit.File(rel)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, &FileNotInRevisionError{Path: rel, Revision: revision}
		}
		return nil, fmt.Errorf("read %s at %s: %w", rel, revision, err)
	}

	content, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("read %s at %s: %w", rel, revision, err)
	}
	return []byte(content), nil
}
