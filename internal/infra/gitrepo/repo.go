package gitrepo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/SavagePirate/assetdeploy/internal/resolve"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Repo adapts a local git clone to the history interfaces the
// resolution engine consumes.
type Repo struct {
	repo   *git.Repository
	gitDir string
}

// Open finds the enclosing repository by walking up from path, the way
// the git CLI does.
func Open(path string) (*Repo, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("opening repository from %s: %w", path, err)
	}
	return &Repo{repo: repo, gitDir: findGitDir(path)}, nil
}

// New wraps an already-open repository. Used by tests with in-memory
// storage.
func New(repo *git.Repository) *Repo {
	return &Repo{repo: repo}
}

// Head returns the id of the current checkout's head commit.
func (r *Repo) Head() (string, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return "", err
	}
	return ref.Hash().String(), nil
}

// Commit looks up one commit and its tree.
func (r *Repo) Commit(id string) (*resolve.Commit, error) {
	commit, err := r.repo.CommitObject(plumbing.NewHash(id))
	if err != nil {
		return nil, fmt.Errorf("loading commit %s: %w", id, err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("loading tree of %s: %w", id, err)
	}

	parents := make([]string, 0, len(commit.ParentHashes))
	for _, parent := range commit.ParentHashes {
		parents = append(parents, parent.String())
	}

	return &resolve.Commit{
		ID:      id,
		Parents: parents,
		Tree:    gitTree{tree: tree},
	}, nil
}

// CacheDir is where the per-working-copy run cache lives: the .git
// directory when one was found, the starting directory otherwise.
func (r *Repo) CacheDir() string {
	if r.gitDir != "" {
		return r.gitDir
	}
	return "."
}

type gitTree struct {
	tree *object.Tree
}

// Hash resolves a path to the hash of the blob or subtree stored there.
func (t gitTree) Hash(path string) (string, error) {
	entry, err := t.tree.FindEntry(path)
	if err != nil {
		if errors.Is(err, object.ErrEntryNotFound) || errors.Is(err, object.ErrDirectoryNotFound) {
			return "", fmt.Errorf("%w: %s", resolve.ErrMissingTrackedPath, path)
		}
		return "", err
	}
	return entry.Hash.String(), nil
}

func findGitDir(start string) string {
	dir, err := filepath.Abs(start)
	if err != nil {
		return ""
	}
	for {
		gitDir := filepath.Join(dir, ".git")
		if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
			return gitDir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
