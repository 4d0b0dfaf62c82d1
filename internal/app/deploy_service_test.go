package app

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/SavagePirate/assetdeploy/internal/domain"
	"github.com/SavagePirate/assetdeploy/internal/infra/repos/runcache"
	"github.com/SavagePirate/assetdeploy/internal/logging"
	"github.com/SavagePirate/assetdeploy/internal/resolve"
)

type fakeTree map[string]string

func (t fakeTree) Hash(path string) (string, error) {
	hash, ok := t[path]
	if !ok {
		return "", fmt.Errorf("%w: %s", resolve.ErrMissingTrackedPath, path)
	}
	return hash, nil
}

type fakeCheckout struct {
	head    string
	commits map[string]*resolve.Commit
}

func (c *fakeCheckout) Head() (string, error) {
	return c.head, nil
}

func (c *fakeCheckout) Commit(id string) (*resolve.Commit, error) {
	commit, ok := c.commits[id]
	if !ok {
		return nil, fmt.Errorf("unknown commit: %s", id)
	}
	return commit, nil
}

type fakeProvider struct {
	pages     map[string]*runcache.Page
	artifacts map[string][]*domain.Artifact
	calls     int
}

func (p *fakeProvider) FetchRuns(url string) (*runcache.Page, error) {
	p.calls++
	page, ok := p.pages[url]
	if !ok {
		return nil, errors.New("no such page: " + url)
	}
	return page, nil
}

func (p *fakeProvider) FetchArtifacts(url string) ([]*domain.Artifact, error) {
	p.calls++
	return p.artifacts[url], nil
}

func testStore(t *testing.T) runcache.Repository {
	t.Helper()

	store := runcache.NewSQLiteRepository(filepath.Join(t.TempDir(), "workflow_runs.sqlite"))
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func testProfile() *domain.Profile {
	return &domain.Profile{
		TrackedPaths: []string{"package.json", "public"},
		RunsURL:      "runs-page-1",
		ArtifactName: "lila-assets",
		Host:         "root@deploy.example.org",
	}
}

func TestResolvePicksSuccessfulRunOnMatchingAncestor(t *testing.T) {
	t.Parallel()

	// Commits a (head) and b share the input identity; c differs. The
	// run that built a failed, the run that built b succeeded.
	matched := fakeTree{"package.json": "p1", "public": "u1"}
	checkout := &fakeCheckout{
		head: "a",
		commits: map[string]*resolve.Commit{
			"a": {ID: "a", Parents: []string{"b"}, Tree: matched},
			"b": {ID: "b", Parents: []string{"c"}, Tree: matched},
			"c": {ID: "c", Parents: nil, Tree: fakeTree{"package.json": "p0", "public": "u0"}},
		},
	}

	provider := &fakeProvider{
		pages: map[string]*runcache.Page{
			"runs-page-1": {
				Runs: []*domain.WorkflowRun{
					{ID: 101, HeadCommit: "a", Status: domain.RunStatusCompleted, Conclusion: domain.ConclusionFailure, ArtifactsURL: "arts-101"},
					{ID: 100, HeadCommit: "b", Status: domain.RunStatusCompleted, Conclusion: domain.ConclusionSuccess, ArtifactsURL: "arts-100"},
				},
			},
		},
		artifacts: map[string][]*domain.Artifact{
			"arts-100": {
				{Name: "lila-assets", ArchiveDownloadURL: "https://ci/artifacts/100"},
			},
		},
	}

	service := NewDeployService(checkout, provider, testStore(t), testProfile(), logging.NewLogger("error"))
	res, err := service.Resolve()
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	if res.Run.ID != 100 {
		t.Fatalf("selected run %d, want 100", res.Run.ID)
	}
	if res.Artifact.ArchiveDownloadURL != "https://ci/artifacts/100" {
		t.Fatalf("artifact = %+v", res.Artifact)
	}
	if res.Matching != 2 {
		t.Fatalf("matching commits = %d, want 2", res.Matching)
	}
}

func TestResolveUnresolvableInputsBeforeNetwork(t *testing.T) {
	t.Parallel()

	checkout := &fakeCheckout{
		head: "a",
		commits: map[string]*resolve.Commit{
			"a": {ID: "a", Tree: fakeTree{"package.json": "p1"}},
		},
	}
	provider := &fakeProvider{}

	service := NewDeployService(checkout, provider, testStore(t), testProfile(), logging.NewLogger("error"))
	_, err := service.Resolve()
	if !errors.Is(err, resolve.ErrMissingTrackedPath) {
		t.Fatalf("expected ErrMissingTrackedPath, got %v", err)
	}
	if provider.calls != 0 {
		t.Fatalf("provider was called %d times before inputs resolved", provider.calls)
	}
}

func TestResolveNoSuccessfulRun(t *testing.T) {
	t.Parallel()

	matched := fakeTree{"package.json": "p1", "public": "u1"}
	checkout := &fakeCheckout{
		head: "a",
		commits: map[string]*resolve.Commit{
			"a": {ID: "a", Tree: matched},
		},
	}
	provider := &fakeProvider{
		pages: map[string]*runcache.Page{
			"runs-page-1": {
				Runs: []*domain.WorkflowRun{
					{ID: 101, HeadCommit: "a", Status: domain.RunStatusInProgress, ArtifactsURL: "arts-101"},
				},
			},
		},
	}

	service := NewDeployService(checkout, provider, testStore(t), testProfile(), logging.NewLogger("error"))
	_, err := service.Resolve()
	if !errors.Is(err, resolve.ErrNoMatchingRun) {
		t.Fatalf("expected ErrNoMatchingRun, got %v", err)
	}
}

func TestResolveUsesCachedRunsFromEarlierSync(t *testing.T) {
	t.Parallel()

	matched := fakeTree{"package.json": "p1", "public": "u1"}
	checkout := &fakeCheckout{
		head: "a",
		commits: map[string]*resolve.Commit{
			"a": {ID: "a", Tree: matched},
		},
	}

	// The provider lists nothing new, but the store already knows a
	// successful run for the head commit from a previous invocation.
	store := testStore(t)
	err := store.Upsert(&domain.WorkflowRun{
		ID: 99, HeadCommit: "a",
		Status: domain.RunStatusCompleted, Conclusion: domain.ConclusionSuccess,
		ArtifactsURL: "arts-99",
	})
	if err != nil {
		t.Fatal(err)
	}

	provider := &fakeProvider{
		pages: map[string]*runcache.Page{
			"runs-page-1": {Runs: []*domain.WorkflowRun{}},
		},
		artifacts: map[string][]*domain.Artifact{
			"arts-99": {{Name: "lila-assets", ArchiveDownloadURL: "https://ci/artifacts/99"}},
		},
	}

	service := NewDeployService(checkout, provider, store, testProfile(), logging.NewLogger("error"))
	res, err := service.Resolve()
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if res.Run.ID != 99 {
		t.Fatalf("selected run %d, want the cached 99", res.Run.ID)
	}
}
