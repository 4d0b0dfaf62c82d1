package runcache

import (
	"database/sql"
	"time"

	"github.com/SavagePirate/assetdeploy/internal/domain"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// PostgresRepository keeps the run cache in a shared database instead
// of a file beside the working copy. Selected by passing a postgres DSN
// as the cache location.
type PostgresRepository struct {
	dsn string
	db  *sql.DB
}

func NewPostgresRepository(dsn string) *PostgresRepository {
	return &PostgresRepository{dsn: dsn}
}

func (r *PostgresRepository) Init() error {
	db, err := sql.Open("postgres", r.dsn)
	if err != nil {
		return err
	}
	if err := db.Ping(); err != nil {
		return err
	}
	r.db = db

	_, err = r.db.Exec(`
		CREATE TABLE IF NOT EXISTS workflow_runs (
			id BIGINT PRIMARY KEY,
			position BIGINT NOT NULL,
			head_commit TEXT NOT NULL,
			status TEXT NOT NULL,
			conclusion TEXT,
			artifacts_url TEXT NOT NULL,
			html_url TEXT NOT NULL,
			synced_at TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(`
		CREATE TABLE IF NOT EXISTS deploys (
			id TEXT PRIMARY KEY,
			run_id BIGINT NOT NULL,
			artifact_url TEXT NOT NULL,
			host TEXT NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			completed_at TIMESTAMPTZ,
			exit_code INTEGER
		)`)
	return err
}

func (r *PostgresRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *PostgresRepository) Load() ([]*domain.WorkflowRun, error) {
	rows, err := r.db.Query(`
		SELECT id, head_commit, status, conclusion, artifacts_url, html_url, synced_at
		FROM workflow_runs
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]*domain.WorkflowRun, 0)
	for rows.Next() {
		var run domain.WorkflowRun
		var conclusion sql.NullString
		if err := rows.Scan(&run.ID, &run.HeadCommit, &run.Status, &conclusion,
			&run.ArtifactsURL, &run.HTMLURL, &run.SyncedAt); err != nil {
			return nil, err
		}
		if conclusion.Valid {
			run.Conclusion = domain.Conclusion(conclusion.String)
		}
		runs = append(runs, &run)
	}

	return runs, rows.Err()
}

func (r *PostgresRepository) Get(id int64) (*domain.WorkflowRun, error) {
	var run domain.WorkflowRun
	var conclusion sql.NullString

	err := r.db.QueryRow(`
		SELECT id, head_commit, status, conclusion, artifacts_url, html_url, synced_at
		FROM workflow_runs WHERE id = $1
	`, id).Scan(&run.ID, &run.HeadCommit, &run.Status, &conclusion,
		&run.ArtifactsURL, &run.HTMLURL, &run.SyncedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if conclusion.Valid {
		run.Conclusion = domain.Conclusion(conclusion.String)
	}
	return &run, nil
}

func (r *PostgresRepository) Upsert(run *domain.WorkflowRun) error {
	syncedAt := run.SyncedAt
	if syncedAt.IsZero() {
		syncedAt = time.Now()
	}

	existing, err := r.Get(run.ID)
	if err != nil {
		return err
	}

	if existing == nil {
		_, err := r.db.Exec(`
			INSERT INTO workflow_runs (id, position, head_commit, status, conclusion, artifacts_url, html_url, synced_at)
			VALUES ($1, (SELECT COALESCE(MAX(position), 0) + 1 FROM workflow_runs), $2, $3, $4, $5, $6, $7)
		`, run.ID, run.HeadCommit, run.Status, run.Conclusion,
			run.ArtifactsURL, run.HTMLURL, syncedAt)
		return err
	}

	_, err = r.db.Exec(`
		UPDATE workflow_runs SET
			head_commit = $1, status = $2, conclusion = $3,
			artifacts_url = $4, html_url = $5, synced_at = $6
		WHERE id = $7 AND status != $8
	`, run.HeadCommit, run.Status, run.Conclusion,
		run.ArtifactsURL, run.HTMLURL, syncedAt,
		run.ID, domain.RunStatusCompleted)
	return err
}

func (r *PostgresRepository) RecordDeploy(rec *domain.DeployRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}

	_, err := r.db.Exec(`
		INSERT INTO deploys (id, run_id, artifact_url, host, started_at)
		VALUES ($1, $2, $3, $4, $5)
	`, rec.ID, rec.RunID, rec.ArtifactURL, rec.Host, rec.StartedAt)
	return err
}

func (r *PostgresRepository) FinishDeploy(id string, exitCode int) error {
	_, err := r.db.Exec(`
		UPDATE deploys SET completed_at = $1, exit_code = $2 WHERE id = $3
	`, time.Now(), exitCode, id)
	return err
}

func (r *PostgresRepository) ListDeploys(limit int) ([]*domain.DeployRecord, error) {
	query := `
		SELECT id, run_id, artifact_url, host, started_at, completed_at, exit_code
		FROM deploys
		ORDER BY started_at DESC
	`
	args := make([]interface{}, 0)
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]*domain.DeployRecord, 0)
	for rows.Next() {
		var rec domain.DeployRecord
		var completedAt sql.NullTime
		var exitCode sql.NullInt64
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.ArtifactURL, &rec.Host,
			&rec.StartedAt, &completedAt, &exitCode); err != nil {
			return nil, err
		}
		if completedAt.Valid {
			t := completedAt.Time
			rec.CompletedAt = &t
		}
		if exitCode.Valid {
			code := int(exitCode.Int64)
			rec.ExitCode = &code
		}
		records = append(records, &rec)
	}

	return records, rows.Err()
}
