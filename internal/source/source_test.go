package source

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"github.com/teleprint-me/agent/internal/errkind"
)

var testSignature = &object.Signature{
	Name:  "test",
	Email: "test@example.com",
	When:  time.Unix(1700000000, 0),
}

// initUpstream creates an on-disk repository with one commit, standing
// in for the remote engine source.
func initUpstream(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "upstream")
	repo, err := git.PlainInit(path, false)
	require.NoError(t, err, "failed to init upstream repository")

	writeFile(t, path, "CMakeLists.txt", "cmake_minimum_required(VERSION 3.14)\n")

	worktree, err := repo.Worktree()
	require.NoError(t, err)
	_, err = worktree.Add("CMakeLists.txt")
	require.NoError(t, err)
	_, err = worktree.Commit("initial", &git.CommitOptions{Author: testSignature})
	require.NoError(t, err, "failed to create initial commit")

	return path
}

// commitUpstream adds a commit to an existing repository.
func commitUpstream(t *testing.T, repoPath, name, content string) {
	t.Helper()

	repo, err := git.PlainOpen(repoPath)
	require.NoError(t, err)
	worktree, err := repo.Worktree()
	require.NoError(t, err)

	writeFile(t, repoPath, name, content)
	_, err = worktree.Add(name)
	require.NoError(t, err)
	_, err = worktree.Commit("update "+name, &git.CommitOptions{Author: testSignature})
	require.NoError(t, err)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func defaultBranch(t *testing.T, repoPath string) string {
	t.Helper()
	repo, err := git.PlainOpen(repoPath)
	require.NoError(t, err)
	head, err := repo.Head()
	require.NoError(t, err)
	return head.Name().Short()
}

func newTestRepository() *Repository {
	return New(WithProgress(io.Discard))
}

func TestEnsureClonesWhenPathMissing(t *testing.T) {
	upstream := initUpstream(t)
	local := filepath.Join(t.TempDir(), "checkout", "llama.cpp")

	h := Handle{Remote: upstream, Ref: defaultBranch(t, upstream), Path: local}
	err := newTestRepository().Ensure(context.Background(), h)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(local, "CMakeLists.txt"))
	require.NoError(t, err, "clone should contain the upstream tree")
}

func TestEnsureIsIdempotent(t *testing.T) {
	upstream := initUpstream(t)
	local := filepath.Join(t.TempDir(), "llama.cpp")
	h := Handle{Remote: upstream, Ref: defaultBranch(t, upstream), Path: local}
	repo := newTestRepository()

	require.NoError(t, repo.Ensure(context.Background(), h))
	headAfterFirst, err := Head(local)
	require.NoError(t, err)

	// Second call with no upstream changes succeeds and changes nothing.
	require.NoError(t, repo.Ensure(context.Background(), h))
	headAfterSecond, err := Head(local)
	require.NoError(t, err)
	require.Equal(t, headAfterFirst, headAfterSecond)
}

func TestEnsureFastForwardsExistingCheckout(t *testing.T) {
	upstream := initUpstream(t)
	local := filepath.Join(t.TempDir(), "llama.cpp")
	h := Handle{Remote: upstream, Ref: defaultBranch(t, upstream), Path: local}
	repo := newTestRepository()

	require.NoError(t, repo.Ensure(context.Background(), h))

	commitUpstream(t, upstream, "README.md", "updated upstream\n")
	require.NoError(t, repo.Ensure(context.Background(), h))

	data, err := os.ReadFile(filepath.Join(local, "README.md"))
	require.NoError(t, err)
	require.Equal(t, "updated upstream\n", string(data))
}

func TestEnsureRefusesDirtyWorktree(t *testing.T) {
	upstream := initUpstream(t)
	local := filepath.Join(t.TempDir(), "llama.cpp")
	h := Handle{Remote: upstream, Ref: defaultBranch(t, upstream), Path: local}
	repo := newTestRepository()

	require.NoError(t, repo.Ensure(context.Background(), h))

	// User edits the checkout, upstream moves on.
	edited := "my local experiment\n"
	writeFile(t, local, "CMakeLists.txt", edited)
	commitUpstream(t, upstream, "CMakeLists.txt", "upstream rewrite\n")

	err := repo.Ensure(context.Background(), h)
	require.Error(t, err)
	require.True(t, errkind.Is(err, errkind.KindUpdateConflict),
		"error kind = %v, want update-conflict", errkind.KindOf(err))

	// The local edit must survive untouched.
	data, err := os.ReadFile(filepath.Join(local, "CMakeLists.txt"))
	require.NoError(t, err)
	require.Equal(t, edited, string(data))
}

func TestEnsureRefusesDivergedHistory(t *testing.T) {
	upstream := initUpstream(t)
	local := filepath.Join(t.TempDir(), "llama.cpp")
	branch := defaultBranch(t, upstream)
	h := Handle{Remote: upstream, Ref: branch, Path: local}
	repo := newTestRepository()

	require.NoError(t, repo.Ensure(context.Background(), h))

	// Committed local work plus new upstream commits: no fast-forward
	// exists, so the update must refuse rather than merge or reset.
	localRepo, err := git.PlainOpen(local)
	require.NoError(t, err)
	worktree, err := localRepo.Worktree()
	require.NoError(t, err)
	writeFile(t, local, "local.txt", "local work\n")
	_, err = worktree.Add("local.txt")
	require.NoError(t, err)
	_, err = worktree.Commit("local work", &git.CommitOptions{Author: testSignature})
	require.NoError(t, err)

	commitUpstream(t, upstream, "upstream.txt", "upstream work\n")

	err = repo.Ensure(context.Background(), h)
	require.Error(t, err)
	require.True(t, errkind.Is(err, errkind.KindUpdateConflict),
		"error kind = %v, want update-conflict", errkind.KindOf(err))

	_, statErr := os.Stat(filepath.Join(local, "local.txt"))
	require.NoError(t, statErr, "local commit content must remain on disk")
}

func TestEnsureRejectsNonCheckoutDirectory(t *testing.T) {
	local := t.TempDir() // exists, but is not a git checkout
	h := Handle{Remote: "ignored", Ref: "master", Path: local}

	err := newTestRepository().Ensure(context.Background(), h)
	require.Error(t, err)
	require.True(t, errkind.Is(err, errkind.KindUpdateConflict),
		"error kind = %v, want update-conflict", errkind.KindOf(err))
}

func TestEnsureCloneFailure(t *testing.T) {
	local := filepath.Join(t.TempDir(), "llama.cpp")
	h := Handle{
		Remote: filepath.Join(t.TempDir(), "no-such-upstream"),
		Ref:    "master",
		Path:   local,
	}

	err := newTestRepository().Ensure(context.Background(), h)
	require.Error(t, err)
	require.True(t, errkind.Is(err, errkind.KindCloneFailed),
		"error kind = %v, want clone-failed", errkind.KindOf(err))
}
