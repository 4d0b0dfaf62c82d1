package domain

import "time"

// WorkflowRun is one CI execution record as reported by the provider,
// keyed by its remote id.
type WorkflowRun struct {
	ID           int64      `json:"id"`
	HeadCommit   string     `json:"head_commit"`
	Status       RunStatus  `json:"status"`
	Conclusion   Conclusion `json:"conclusion"`
	ArtifactsURL string     `json:"artifacts_url"`
	HTMLURL      string     `json:"html_url"`
	SyncedAt     time.Time  `json:"synced_at"`
}

type RunStatus string

const (
	RunStatusQueued     RunStatus = "queued"
	RunStatusInProgress RunStatus = "in_progress"
	RunStatusCompleted  RunStatus = "completed"
)

// Conclusion is meaningful only when Status is completed.
type Conclusion string

const (
	ConclusionSuccess Conclusion = "success"
	ConclusionFailure Conclusion = "failure"
)

// Deployable reports whether the run finished and its build succeeded.
func (r *WorkflowRun) Deployable() bool {
	return r.Status == RunStatusCompleted && r.Conclusion == ConclusionSuccess
}

// ContentIdentity is the ordered tuple of blob hashes for the tracked
// paths, in canonical path order. Two commits are input-equivalent iff
// their tuples are equal.
type ContentIdentity []string

func (c ContentIdentity) Equal(other ContentIdentity) bool {
	if len(c) != len(other) {
		return false
	}
	for i := range c {
		if c[i] != other[i] {
			return false
		}
	}
	return true
}

// Artifact is a named downloadable output of one workflow run.
type Artifact struct {
	Name               string `json:"name"`
	Expired            bool   `json:"expired"`
	ArchiveDownloadURL string `json:"archive_download_url"`
}

// DeployRecord is one deployment attempt against a remote host.
type DeployRecord struct {
	ID          string     `json:"id"`
	RunID       int64      `json:"run_id"`
	ArtifactURL string     `json:"artifact_url"`
	Host        string     `json:"host"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ExitCode    *int       `json:"exit_code,omitempty"`
}

// Profile describes one deployable artifact stream: which tracked paths
// define its inputs, where its workflow runs are listed, and where the
// artifact lands.
type Profile struct {
	ID           string   `json:"id" yaml:"id"`
	Name         string   `json:"name" yaml:"name"`
	TrackedPaths []string `json:"tracked_paths" yaml:"tracked_paths"`
	RunsURL      string   `json:"runs_url" yaml:"runs_url"`
	ArtifactName string   `json:"artifact_name" yaml:"artifact_name"`
	Host         string   `json:"host" yaml:"host"`
	ArtifactsDir string   `json:"artifacts_dir" yaml:"artifacts_dir"`
	DeployDir    string   `json:"deploy_dir" yaml:"deploy_dir"`
	LinkName     string   `json:"link_name" yaml:"link_name"`
	SessionName  string   `json:"session_name" yaml:"session_name"`
}
