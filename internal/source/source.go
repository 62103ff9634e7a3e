// Package source manages the local checkout of the engine source tree.
//
// The checkout is the only artifact that persists across runs. Updates
// are strictly additive: a fast-forward or nothing. If the local tree
// has been edited or has diverged from upstream, the update fails
// loudly instead of discarding work — automated tooling never resets a
// tree a developer may have touched.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/teleprint-me/agent/internal/errkind"
	"github.com/teleprint-me/agent/internal/log"
)

// Handle names a source tree: where it comes from and where it lives.
type Handle struct {
	Remote string // clone URL
	Ref    string // branch name
	Path   string // local checkout directory
}

// Repository clones and fast-forwards source trees.
type Repository struct {
	progress io.Writer
	logger   log.Logger
}

// Option configures a Repository.
type Option func(*Repository)

// WithProgress sets the writer for clone/fetch progress. Defaults to
// stdout; tests pass io.Discard.
func WithProgress(w io.Writer) Option {
	return func(r *Repository) { r.progress = w }
}

// WithLogger sets the repository's logger.
func WithLogger(l log.Logger) Option {
	return func(r *Repository) { r.logger = l }
}

// New creates a Repository.
func New(opts ...Option) *Repository {
	r := &Repository{
		progress: os.Stdout,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Ensure makes h.Path an up-to-date checkout of h.Remote at h.Ref.
// A missing path is cloned; an existing one is fast-forwarded.
// Idempotent: a second call with no upstream changes is a no-op.
func (r *Repository) Ensure(ctx context.Context, h Handle) error {
	if _, err := os.Stat(h.Path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return errkind.Wrap(errkind.KindCloneFailed, err, "cannot stat %s", h.Path)
		}
		return r.clone(ctx, h)
	}
	return r.update(ctx, h)
}

func (r *Repository) clone(ctx context.Context, h Handle) error {
	r.logger.Info("cloning source tree", "remote", h.Remote, "ref", h.Ref, "path", h.Path)

	if err := os.MkdirAll(filepath.Dir(h.Path), 0o755); err != nil {
		return errkind.Wrap(errkind.KindCloneFailed, err, "cannot create %s", filepath.Dir(h.Path))
	}

	_, err := git.PlainCloneContext(ctx, h.Path, false, &git.CloneOptions{
		URL:           h.Remote,
		ReferenceName: plumbing.NewBranchReferenceName(h.Ref),
		SingleBranch:  true,
		Progress:      r.progress,
	})
	if err != nil {
		return errkind.Wrap(errkind.KindCloneFailed, err, "clone of %s failed", h.Remote)
	}
	return nil
}

func (r *Repository) update(ctx context.Context, h Handle) error {
	r.logger.Info("updating source tree", "path", h.Path, "ref", h.Ref)

	repo, err := git.PlainOpen(h.Path)
	if err != nil {
		return errkind.Wrap(errkind.KindUpdateConflict, err,
			"%s exists but is not a git checkout", h.Path)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return errkind.Wrap(errkind.KindUpdateConflict, err, "cannot open worktree")
	}

	// A dirty tree is a conflict up front; pull never runs against it.
	status, err := worktree.Status()
	if err != nil {
		return errkind.Wrap(errkind.KindUpdateConflict, err, "cannot read worktree status")
	}
	if !status.IsClean() {
		return errkind.New(errkind.KindUpdateConflict,
			"%s has local modifications; commit, stash, or remove them and rerun", h.Path)
	}

	err = worktree.PullContext(ctx, &git.PullOptions{
		RemoteName:    git.DefaultRemoteName,
		ReferenceName: plumbing.NewBranchReferenceName(h.Ref),
		SingleBranch:  true,
		Progress:      r.progress,
	})
	switch {
	case err == nil:
		r.logger.Info("source tree updated", "path", h.Path)
		return nil
	case errors.Is(err, git.NoErrAlreadyUpToDate):
		r.logger.Debug("source tree already up to date", "path", h.Path)
		return nil
	case errors.Is(err, git.ErrNonFastForwardUpdate):
		return errkind.Wrap(errkind.KindUpdateConflict, err,
			"%s has diverged from %s", h.Path, h.Remote)
	default:
		return errkind.Wrap(errkind.KindUpdateConflict, err, "update of %s failed", h.Path)
	}
}

// Head returns the current commit hash of the checkout, for the doctor
// report and build logs.
func Head(path string) (string, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return "", fmt.Errorf("cannot open %s: %w", path, err)
	}
	ref, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("cannot read HEAD: %w", err)
	}
	return ref.Hash().String(), nil
}
