package runcache

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/SavagePirate/assetdeploy/internal/domain"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

type SQLiteRepository struct {
	dbPath string
	db     *sql.DB
}

func NewSQLiteRepository(dbPath string) *SQLiteRepository {
	return &SQLiteRepository{dbPath: dbPath}
}

const createTablesSQL = `
	CREATE TABLE IF NOT EXISTS workflow_runs (
		id INTEGER PRIMARY KEY,
		position INTEGER NOT NULL,
		head_commit TEXT NOT NULL,
		status TEXT NOT NULL,
		conclusion TEXT,
		artifacts_url TEXT NOT NULL,
		html_url TEXT NOT NULL,
		synced_at TIMESTAMP NOT NULL
	);
	CREATE TABLE IF NOT EXISTS deploys (
		id TEXT PRIMARY KEY,
		run_id INTEGER NOT NULL,
		artifact_url TEXT NOT NULL,
		host TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		completed_at TIMESTAMP,
		exit_code INTEGER
	)`

func (r *SQLiteRepository) Init() error {
	if dir := filepath.Dir(r.dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	if err := r.open(); err != nil {
		// An unreadable or corrupt cache file is treated as an empty
		// store, not a fatal condition: discard it and start over.
		if r.db != nil {
			r.db.Close()
			r.db = nil
		}
		if rmErr := os.Remove(r.dbPath); rmErr != nil && !os.IsNotExist(rmErr) {
			return err
		}
		return r.open()
	}
	return nil
}

func (r *SQLiteRepository) open() error {
	db, err := sql.Open("sqlite3", r.dbPath)
	if err != nil {
		return err
	}
	r.db = db

	_, err = r.db.Exec(createTablesSQL)
	return err
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) DB() *sql.DB {
	return r.db
}

func (r *SQLiteRepository) Load() ([]*domain.WorkflowRun, error) {
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
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

func (r *SQLiteRepository) Get(id int64) (*domain.WorkflowRun, error) {
	run, err := scanRun(r.db.QueryRow(`
		SELECT id, head_commit, status, conclusion, artifacts_url, html_url, synced_at
		FROM workflow_runs WHERE id = ?
	`, id).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// Upsert inserts a new run at the next position or overwrites an
// existing non-completed one in place. Position is assigned once, at
// first sight, so selection order survives restarts.
func (r *SQLiteRepository) Upsert(run *domain.WorkflowRun) error {
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
			VALUES (?, (SELECT COALESCE(MAX(position), 0) + 1 FROM workflow_runs), ?, ?, ?, ?, ?, ?)
		`, run.ID, run.HeadCommit, run.Status, run.Conclusion,
			run.ArtifactsURL, run.HTMLURL, syncedAt.Format(time.RFC3339))
		return err
	}

	_, err = r.db.Exec(`
		UPDATE workflow_runs SET
			head_commit = ?, status = ?, conclusion = ?,
			artifacts_url = ?, html_url = ?, synced_at = ?
		WHERE id = ? AND status != ?
	`, run.HeadCommit, run.Status, run.Conclusion,
		run.ArtifactsURL, run.HTMLURL, syncedAt.Format(time.RFC3339),
		run.ID, domain.RunStatusCompleted)
	return err
}

func (r *SQLiteRepository) RecordDeploy(rec *domain.DeployRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}

	_, err := r.db.Exec(`
		INSERT INTO deploys (id, run_id, artifact_url, host, started_at)
		VALUES (?, ?, ?, ?, ?)
	`, rec.ID, rec.RunID, rec.ArtifactURL, rec.Host, rec.StartedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) FinishDeploy(id string, exitCode int) error {
	_, err := r.db.Exec(`
		UPDATE deploys SET completed_at = ?, exit_code = ? WHERE id = ?
	`, time.Now().Format(time.RFC3339), exitCode, id)
	return err
}

func (r *SQLiteRepository) ListDeploys(limit int) ([]*domain.DeployRecord, error) {
	query := `
		SELECT id, run_id, artifact_url, host, started_at, completed_at, exit_code
		FROM deploys
		ORDER BY started_at DESC
	`
	args := make([]interface{}, 0)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]*domain.DeployRecord, 0)
	for rows.Next() {
		rec, err := scanDeploy(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

func scanRun(scan func(...interface{}) error) (*domain.WorkflowRun, error) {
	var run domain.WorkflowRun
	var conclusion sql.NullString
	var syncedAtStr string

	err := scan(&run.ID, &run.HeadCommit, &run.Status, &conclusion,
		&run.ArtifactsURL, &run.HTMLURL, &syncedAtStr)
	if err != nil {
		return nil, err
	}

	if conclusion.Valid {
		run.Conclusion = domain.Conclusion(conclusion.String)
	}
	run.SyncedAt, _ = time.Parse(time.RFC3339, syncedAtStr)

	return &run, nil
}

func scanDeploy(scan func(...interface{}) error) (*domain.DeployRecord, error) {
	var rec domain.DeployRecord
	var startedAtStr string
	var completedAtStr sql.NullString
	var exitCode sql.NullInt64

	err := scan(&rec.ID, &rec.RunID, &rec.ArtifactURL, &rec.Host,
		&startedAtStr, &completedAtStr, &exitCode)
	if err != nil {
		return nil, err
	}

	rec.StartedAt, _ = time.Parse(time.RFC3339, startedAtStr)
	if completedAtStr.Valid {
		t, _ := time.Parse(time.RFC3339, completedAtStr.String)
		rec.CompletedAt = &t
	}
	if exitCode.Valid {
		code := int(exitCode.Int64)
		rec.ExitCode = &code
	}

	return &rec, nil
}
