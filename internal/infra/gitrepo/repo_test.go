package gitrepo

import (
	"errors"
	"testing"
	"time"

	"github.com/SavagePirate/assetdeploy/internal/resolve"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
)

type testRepo struct {
	repo *Repo
	wt   *git.Worktree
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()

	repo, err := git.Init(memory.NewStorage(), memfs.New())
	if err != nil {
		t.Fatalf("init repo: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	return &testRepo{repo: New(repo), wt: wt}
}

func (r *testRepo) write(t *testing.T, path, content string) {
	t.Helper()
	if err := util.WriteFile(r.wt.Filesystem, path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := r.wt.Add(path); err != nil {
		t.Fatal(err)
	}
}

func (r *testRepo) commit(t *testing.T, message string) string {
	t.Helper()
	hash, err := r.wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.org", When: time.Now()},
	})
	if err != nil {
		t.Fatal(err)
	}
	return hash.String()
}

func TestHeadAndCommitLookup(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	tr.write(t, "package.json", "{}")
	first := tr.commit(t, "initial")

	tr.write(t, "package.json", `{"name": "x"}`)
	second := tr.commit(t, "update")

	head, err := tr.repo.Head()
	if err != nil {
		t.Fatalf("head failed: %v", err)
	}
	if head != second {
		t.Fatalf("head = %s, want %s", head, second)
	}

	commit, err := tr.repo.Commit(head)
	if err != nil {
		t.Fatal(err)
	}
	if len(commit.Parents) != 1 || commit.Parents[0] != first {
		t.Fatalf("parents = %v, want [%s]", commit.Parents, first)
	}
}

func TestTreeHashTrackedPaths(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	tr.write(t, "package.json", "{}")
	tr.write(t, "public/main.js", "console.log(1)")
	head := tr.commit(t, "initial")

	commit, err := tr.repo.Commit(head)
	if err != nil {
		t.Fatal(err)
	}

	fileHash, err := commit.Tree.Hash("package.json")
	if err != nil {
		t.Fatalf("file lookup failed: %v", err)
	}
	if len(fileHash) != 40 {
		t.Fatalf("blob hash = %q", fileHash)
	}

	// Directories resolve to their subtree hash.
	dirHash, err := commit.Tree.Hash("public")
	if err != nil {
		t.Fatalf("directory lookup failed: %v", err)
	}
	if len(dirHash) != 40 || dirHash == fileHash {
		t.Fatalf("subtree hash = %q", dirHash)
	}
}

func TestTreeHashMissingPath(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	tr.write(t, "package.json", "{}")
	head := tr.commit(t, "initial")

	commit, err := tr.repo.Commit(head)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := commit.Tree.Hash("yarn.lock"); !errors.Is(err, resolve.ErrMissingTrackedPath) {
		t.Fatalf("expected ErrMissingTrackedPath, got %v", err)
	}
}

func TestIdentityStableAcrossUntrackedChanges(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	tr.write(t, "package.json", "{}")
	tr.write(t, "public/main.js", "console.log(1)")
	tr.write(t, "README.md", "hello")
	first := tr.commit(t, "initial")

	tr.write(t, "README.md", "hello again")
	second := tr.commit(t, "docs only")

	paths := []string{"package.json", "public"}

	firstCommit, err := tr.repo.Commit(first)
	if err != nil {
		t.Fatal(err)
	}
	secondCommit, err := tr.repo.Commit(second)
	if err != nil {
		t.Fatal(err)
	}

	a, err := resolve.Identity(firstCommit.Tree, paths)
	if err != nil {
		t.Fatal(err)
	}
	b, err := resolve.Identity(secondCommit.Tree, paths)
	if err != nil {
		t.Fatal(err)
	}
	if !a.Equal(b) {
		t.Fatal("identity changed when only an untracked file changed")
	}
}

func TestFindMatchingOverRealHistory(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	tr.write(t, "package.json", "{}")
	tr.write(t, "public/main.js", "v1")
	c := tr.commit(t, "old assets")

	tr.write(t, "public/main.js", "v2")
	b := tr.commit(t, "new assets")

	tr.write(t, "README.md", "docs")
	a := tr.commit(t, "docs")

	paths := []string{"package.json", "public"}
	headCommit, err := tr.repo.Commit(a)
	if err != nil {
		t.Fatal(err)
	}
	target, err := resolve.Identity(headCommit.Tree, paths)
	if err != nil {
		t.Fatal(err)
	}

	matching, err := resolve.FindMatching(tr.repo, a, paths, target)
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := matching[a]; !ok {
		t.Fatal("head commit not matched")
	}
	if _, ok := matching[b]; !ok {
		t.Fatal("input-equivalent parent not matched")
	}
	if _, ok := matching[c]; ok {
		t.Fatal("commit with different assets matched")
	}
}
