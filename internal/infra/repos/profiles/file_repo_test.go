package profiles

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleProfile = `id: staging
name: staging assets
tracked_paths:
  - package.json
  - public
runs_url: https://api.github.com/repos/example/app/actions/workflows/assets.yml/runs
artifact_name: app-assets
host: deploy@staging.example.org
artifacts_dir: /srv/artifacts
deploy_dir: /srv/deploy
session_name: app-deploy
`

func TestListAndGet(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "staging.yaml"), []byte(sampleProfile), 0o644); err != nil {
		t.Fatal(err)
	}

	repo := NewFileRepository(dir)
	list, err := repo.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d profiles, want 1", len(list))
	}

	profile, err := repo.Get("staging")
	if err != nil {
		t.Fatal(err)
	}
	if profile.ArtifactName != "app-assets" {
		t.Fatalf("artifact name = %q", profile.ArtifactName)
	}
	if len(profile.TrackedPaths) != 2 || profile.TrackedPaths[0] != "package.json" {
		t.Fatalf("tracked paths = %v", profile.TrackedPaths)
	}
	if profile.LinkName != "public" {
		t.Fatalf("link name default not applied: %q", profile.LinkName)
	}
}

func TestGetUnknownProfile(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(t.TempDir())
	if _, err := repo.Get("missing"); err == nil {
		t.Fatal("expected error for unknown profile")
	}
}

func TestListMissingDirectory(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(filepath.Join(t.TempDir(), "does-not-exist"))
	list, err := repo.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Fatalf("got %d profiles from a missing directory", len(list))
	}
}
