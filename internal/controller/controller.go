// Package controller drives the per-commit cherry-pick loop: prompt, apply,
// wait out conflicts, record. Commits are processed strictly in range order,
// one at a time, and every terminal outcome is written to the ledger before
// the loop advances.
package controller

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hochfrequenz/cherry-orch/internal/domain"
	"github.com/hochfrequenz/cherry-orch/internal/ledger"
)

// ErrConflictTimeout is returned when unattended conflict polling gives up.
// The commit keeps its pending record, so a resumed run retries it.
var ErrConflictTimeout = errors.New("timed out waiting for conflict resolution")

// GitClient is the slice of git operations the loop needs
type GitClient interface {
	Subject(hash string) (string, error)
	CherryPick(hash string) error
	Continue() error
	HasConflicts() (bool, error)
}

// Options configures the loop
type Options struct {
	// Unattended answers every prompt with yes and polls for conflict
	// resolution instead of waiting for the operator.
	Unattended bool

	// PollInterval is how often unattended mode re-checks the working tree
	// during a conflict. Zero means 5 seconds.
	PollInterval time.Duration

	// PollTimeout bounds the unattended conflict wait. Zero means wait
	// forever, matching the historical behavior.
	PollTimeout time.Duration
}

// Result summarizes a finished (or aborted) run
type Result struct {
	Picked    int
	Skipped   int
	Conflicts int
	Aborted   bool
}

// Controller walks a commit sequence and records each outcome
type Controller struct {
	git    GitClient
	ledger *ledger.Ledger
	opts   Options
	in     *bufio.Scanner
	out    io.Writer
	now    func() string
}

// New creates a controller. in and out are the operator's terminal; in is
// only read in interactive mode.
func New(git GitClient, led *ledger.Ledger, in io.Reader, out io.Writer, opts Options) *Controller {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	return &Controller{
		git:    git,
		ledger: led,
		opts:   opts,
		in:     bufio.NewScanner(in),
		out:    out,
		now:    domain.Now,
	}
}

// Run processes hashes in order. It returns early with Aborted set when the
// operator answers q; already-recorded commits are never reprocessed.
func (c *Controller) Run(ctx context.Context, hashes []string) (Result, error) {
	var res Result
	for _, hash := range hashes {
		if rec, ok := c.ledger.Get(hash); ok && rec.Status.Terminal() {
			continue
		}

		message := c.message(hash)

		switch c.prompt(hash, message) {
		case answerQuit:
			fmt.Fprintln(c.out, "Stopping. Progress is saved; rerun with --resume to continue.")
			res.Aborted = true
			return res, nil
		case answerNo:
			if err := c.ledger.Upsert(hash, domain.StatusSkipped, c.now(), message); err != nil {
				return res, err
			}
			res.Skipped++
			continue
		}

		status, err := c.apply(ctx, hash)
		if err != nil {
			return res, err
		}
		if err := c.ledger.Upsert(hash, status, c.now(), message); err != nil {
			return res, err
		}
		if status == domain.StatusConflictResolved {
			res.Conflicts++
		} else {
			res.Picked++
		}
	}
	return res, nil
}

// message prefers the seeded ledger message over a fresh git lookup
func (c *Controller) message(hash string) string {
	if rec, ok := c.ledger.Get(hash); ok && rec.Message != "" {
		return rec.Message
	}
	subject, err := c.git.Subject(hash)
	if err != nil {
		return ""
	}
	return subject
}

type answer int

const (
	answerYes answer = iota
	answerNo
	answerQuit
)

// prompt asks the operator about one commit. Unattended mode always answers
// yes; any input other than y or q counts as no.
func (c *Controller) prompt(hash, message string) answer {
	short := hash
	if len(short) > 8 {
		short = short[:8]
	}
	if c.opts.Unattended {
		fmt.Fprintf(c.out, "Picking %s %s\n", short, message)
		return answerYes
	}

	fmt.Fprintf(c.out, "Pick %s %s? [y/n/q] ", short, message)
	if !c.in.Scan() {
		// Input closed: treat like quit so progress stays consistent.
		return answerQuit
	}
	switch strings.ToLower(strings.TrimSpace(c.in.Text())) {
	case "y", "yes":
		return answerYes
	case "q", "quit":
		return answerQuit
	default:
		return answerNo
	}
}

// apply runs the cherry-pick and, on conflict, waits for resolution
func (c *Controller) apply(ctx context.Context, hash string) (domain.Status, error) {
	if err := c.git.CherryPick(hash); err == nil {
		return domain.StatusSuccess, nil
	}

	if c.opts.Unattended {
		if err := c.waitForResolution(ctx); err != nil {
			return "", err
		}
		if err := c.git.Continue(); err != nil {
			return "", fmt.Errorf("continuing cherry-pick for %s: %w", hash, err)
		}
		return domain.StatusConflictResolved, nil
	}

	fmt.Fprintf(c.out, "Conflict on %s. Resolve it, run `git cherry-pick --continue`, then press enter. ", hash)
	c.in.Scan()
	return domain.StatusConflictResolved, nil
}

// waitForResolution polls the working tree until no unresolved paths remain
func (c *Controller) waitForResolution(ctx context.Context) error {
	var deadline <-chan time.Time
	if c.opts.PollTimeout > 0 {
		timer := time.NewTimer(c.opts.PollTimeout)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	fmt.Fprintln(c.out, "Conflict: waiting for working tree to be resolved...")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return ErrConflictTimeout
		case <-ticker.C:
			conflicted, err := c.git.HasConflicts()
			if err != nil {
				return err
			}
			if !conflicted {
				return nil
			}
		}
	}
}
