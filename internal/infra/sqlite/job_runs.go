package sqlite

import (
	"context"
	"database/sql"

	"github.com/ganbari-quest/ganbari/internal/domain"
)

// ─── Job Runs ───────────────────────────────────────────────────────────────

// StartJobRun records the start of a batch invocation.
func (d *DB) StartJobRun(ctx context.Context, r domain.JobRun) (int64, error) {
	result, err := d.q.ExecContext(ctx,
		`INSERT INTO job_runs (job, run_id, started_at) VALUES (?, ?, ?)`,
		r.Job, r.RunID, millis(r.StartedAt),
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// FinishJobRun stamps the outcome of a batch invocation.
func (d *DB) FinishJobRun(ctx context.Context, runID string, r domain.JobRun) error {
	_, err := d.q.ExecContext(ctx,
		`UPDATE job_runs SET finished_at = ?, children = ?, error = ? WHERE run_id = ?`,
		millis(r.FinishedAt), r.Children, nullStr(r.Error), runID,
	)
	return err
}

// RecentJobRuns returns up to limit runs of a job, newest first.
// An empty job lists every job.
func (d *DB) RecentJobRuns(ctx context.Context, job string, limit int) ([]domain.JobRun, error) {
	query := `SELECT id, job, run_id, started_at, finished_at, children, error FROM job_runs`
	args := []any{}
	if job != "" {
		query += ` WHERE job = ?`
		args = append(args, job)
	}
	query += ` ORDER BY started_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := d.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.JobRun
	for rows.Next() {
		var r domain.JobRun
		var started int64
		var finished sql.NullInt64
		var errText sql.NullString
		if err := rows.Scan(&r.ID, &r.Job, &r.RunID, &started, &finished, &r.Children, &errText); err != nil {
			return nil, err
		}
		r.StartedAt = fromMillis(started)
		if finished.Valid {
			r.FinishedAt = fromMillis(finished.Int64)
		}
		r.Error = errText.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
