// Package git wraps the external git binary. Only the handful of
// plumbing/porcelain calls the cherry-pick loop needs are exposed; nothing
// here reimplements version control.
package git

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ErrInvalidReference means a start or end ref does not resolve to a commit.
var ErrInvalidReference = errors.New("invalid commit reference")

// ErrNoCommitsInRange means the resolved range is empty.
var ErrNoCommitsInRange = errors.New("no commits in range")

// Repo runs git commands against a single working directory
type Repo struct {
	dir string
}

// Open returns a Repo rooted at dir. Dir must be inside a git work tree;
// this is not verified until the first command runs.
func Open(dir string) *Repo {
	return &Repo{dir: dir}
}

// Dir returns the working directory the repo operates on
func (r *Repo) Dir() string {
	return r.dir
}

func (r *Repo) git(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("git %s: %s: %w", args[0], strings.TrimSpace(string(out)), err)
	}
	return string(out), nil
}

// ResolveCommit verifies that ref names an existing commit object and
// returns its full hash
func (r *Repo) ResolveCommit(ref string) (string, error) {
	cmd := exec.Command("git", "rev-parse", "--verify", "--quiet", ref+"^{commit}")
	cmd.Dir = r.dir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}
	return strings.TrimSpace(string(out)), nil
}

// RevList returns the commits strictly after start up to and including end,
// oldest first
func (r *Repo) RevList(start, end string) ([]string, error) {
	if _, err := r.ResolveCommit(start); err != nil {
		return nil, err
	}
	if _, err := r.ResolveCommit(end); err != nil {
		return nil, err
	}

	out, err := r.git("rev-list", "--reverse", start+".."+end)
	if err != nil {
		return nil, err
	}

	var hashes []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			hashes = append(hashes, line)
		}
	}
	if len(hashes) == 0 {
		return nil, fmt.Errorf("%w: %s..%s", ErrNoCommitsInRange, start, end)
	}
	return hashes, nil
}

// Subject returns the single-line commit message summary
func (r *Repo) Subject(hash string) (string, error) {
	out, err := r.git("log", "-1", "--format=%s", hash)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// CherryPick applies a single commit onto the current branch. A non-nil
// error usually means the pick stopped on conflicts.
func (r *Repo) CherryPick(hash string) error {
	_, err := r.git("cherry-pick", hash)
	return err
}

// Continue finishes a cherry-pick that stopped on conflicts, after the
// conflicts have been resolved and staged
func (r *Repo) Continue() error {
	cmd := exec.Command("git", "cherry-pick", "--continue")
	cmd.Dir = r.dir
	// Keep the recorded message; never drop into an editor.
	cmd.Env = append(os.Environ(), "GIT_EDITOR=true")
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git cherry-pick --continue: %s: %w", strings.TrimSpace(string(out)), err)
	}
	return nil
}

// Abort cancels an in-progress cherry-pick and restores the working tree
func (r *Repo) Abort() error {
	_, err := r.git("cherry-pick", "--abort")
	return err
}

// HasConflicts reports whether the working tree has unresolved merge paths
func (r *Repo) HasConflicts() (bool, error) {
	cmd := exec.Command("git", "diff", "--name-only", "--diff-filter=U")
	cmd.Dir = r.dir
	out, err := cmd.Output()
	if err != nil {
		return false, fmt.Errorf("git diff: %w", err)
	}
	return strings.TrimSpace(string(out)) != "", nil
}
