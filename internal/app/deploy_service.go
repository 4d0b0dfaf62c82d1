package app

import (
	"fmt"

	"github.com/SavagePirate/assetdeploy/internal/deploy"
	"github.com/SavagePirate/assetdeploy/internal/domain"
	"github.com/SavagePirate/assetdeploy/internal/infra/repos/runcache"
	"github.com/SavagePirate/assetdeploy/internal/logging"
	"github.com/SavagePirate/assetdeploy/internal/resolve"
)

// Checkout is the source-control collaborator: commit lookup plus the
// current head.
type Checkout interface {
	resolve.History
	Head() (string, error)
}

// Provider is the CI-provider collaborator.
type Provider interface {
	runcache.Pager
	FetchArtifacts(url string) ([]*domain.Artifact, error)
}

// Resolution is the outcome of the resolution pipeline: the selected
// run and the artifact to deploy.
type Resolution struct {
	Run      *domain.WorkflowRun
	Artifact *domain.Artifact
	Matching int
}

// DeployService wires the resolution engine to its collaborators:
// content identity of the head, ancestry walk, cache sync, run
// selection, artifact lookup, remote deploy.
type DeployService struct {
	checkout Checkout
	provider Provider
	store    runcache.Repository
	profile  *domain.Profile
	logger   *logging.Logger
}

func NewDeployService(
	checkout Checkout,
	provider Provider,
	store runcache.Repository,
	profile *domain.Profile,
	logger *logging.Logger,
) *DeployService {
	return &DeployService{
		checkout: checkout,
		provider: provider,
		store:    store,
		profile:  profile,
		logger:   logger,
	}
}

// Resolve runs the pipeline up to (and including) artifact lookup.
// The head identity is computed before anything touches the network,
// so unresolvable inputs fail without a single request.
func (s *DeployService) Resolve() (*Resolution, error) {
	head, err := s.checkout.Head()
	if err != nil {
		return nil, fmt.Errorf("resolving head: %w", err)
	}

	headCommit, err := s.checkout.Commit(head)
	if err != nil {
		return nil, err
	}

	target, err := resolve.Identity(headCommit.Tree, s.profile.TrackedPaths)
	if err != nil {
		return nil, fmt.Errorf("current checkout: %w", err)
	}

	matching, err := resolve.FindMatching(s.checkout, head, s.profile.TrackedPaths, target)
	if err != nil {
		return nil, err
	}
	s.logger.Printf("Found %d matching commits.\n", len(matching))

	if err := runcache.Sync(s.provider, s.store, s.profile.RunsURL, s.logger); err != nil {
		return nil, err
	}

	runs, err := s.store.Load()
	if err != nil {
		return nil, err
	}

	run, err := resolve.Select(runs, matching, s.logger)
	if err != nil {
		return nil, err
	}

	artifacts, err := s.provider.FetchArtifacts(run.ArtifactsURL)
	if err != nil {
		return nil, err
	}

	artifact, err := resolve.LocateArtifact(artifacts, s.profile.ArtifactName, s.logger)
	if err != nil {
		return nil, err
	}

	return &Resolution{Run: run, Artifact: artifact, Matching: len(matching)}, nil
}

// Deploy records the attempt, attaches the operator to the remote
// session, and stores the session's exit code.
func (s *DeployService) Deploy(res *Resolution, executor *deploy.Executor) (int, error) {
	rec := &domain.DeployRecord{
		RunID:       res.Run.ID,
		ArtifactURL: res.Artifact.ArchiveDownloadURL,
		Host:        s.profile.Host,
	}
	if err := s.store.RecordDeploy(rec); err != nil {
		return -1, err
	}

	code, err := executor.Attach(res.Run.ID, res.Artifact.ArchiveDownloadURL)
	if err != nil {
		return -1, err
	}

	if err := s.store.FinishDeploy(rec.ID, code); err != nil {
		s.logger.Warn("recording deploy result: %v", err)
	}

	return code, nil
}
