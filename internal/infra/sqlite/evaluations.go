package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ganbari-quest/ganbari/internal/domain"
)

// ─── Evaluations ────────────────────────────────────────────────────────────

// InsertEvaluation stores a weekly snapshot. A second snapshot for the same
// (child, week_start) fails with a UNIQUE violation.
func (d *DB) InsertEvaluation(ctx context.Context, e domain.Evaluation) (int64, error) {
	scores, err := json.Marshal(e.Scores)
	if err != nil {
		return 0, fmt.Errorf("marshal scores: %w", err)
	}
	result, err := d.q.ExecContext(ctx,
		`INSERT INTO evaluations (child_id, week_start, week_end, scores_json, bonus_points, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ChildID, e.WeekStart, e.WeekEnd, string(scores), e.BonusPoints, millis(e.CreatedAt),
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// EvaluationExists reports whether a child already has a snapshot for weekStart.
func (d *DB) EvaluationExists(ctx context.Context, childID int64, weekStart string) (bool, error) {
	var n int
	err := d.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM evaluations WHERE child_id = ? AND week_start = ?`,
		childID, weekStart,
	).Scan(&n)
	return n > 0, err
}

// ListEvaluations returns up to limit snapshots for a child, newest week first.
func (d *DB) ListEvaluations(ctx context.Context, childID int64, limit int) ([]domain.Evaluation, error) {
	rows, err := d.q.QueryContext(ctx,
		`SELECT id, child_id, week_start, week_end, scores_json, bonus_points, created_at
		 FROM evaluations WHERE child_id = ?
		 ORDER BY week_start DESC LIMIT ?`,
		childID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var evals []domain.Evaluation
	for rows.Next() {
		var e domain.Evaluation
		var scores string
		var created int64
		err := rows.Scan(&e.ID, &e.ChildID, &e.WeekStart, &e.WeekEnd, &scores, &e.BonusPoints, &created)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(scores), &e.Scores); err != nil {
			return nil, fmt.Errorf("evaluation %d: unmarshal scores: %w", e.ID, err)
		}
		e.CreatedAt = fromMillis(created)
		evals = append(evals, e)
	}
	return evals, rows.Err()
}
