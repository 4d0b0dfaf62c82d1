package runcache

import "github.com/SavagePirate/assetdeploy/internal/domain"

// Repository is the persisted run cache: a durable mapping of remote
// run id to workflow run, plus the deploy attempt history. Entries are
// never deleted. A run stored with status completed is immutable;
// Upsert silently leaves it untouched. Load returns runs in durable
// insertion (first-seen) order, which is the order selection iterates.
type Repository interface {
	Init() error
	Close() error
	Load() ([]*domain.WorkflowRun, error)
	Get(id int64) (*domain.WorkflowRun, error)
	Upsert(run *domain.WorkflowRun) error
	RecordDeploy(rec *domain.DeployRecord) error
	FinishDeploy(id string, exitCode int) error
	ListDeploys(limit int) ([]*domain.DeployRecord, error)
}
