package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ganbari-quest/ganbari/internal/domain"
)

// ─── Activity Logs ──────────────────────────────────────────────────────────

const activityLogColumns = `id, child_id, activity_id, points, streak_days, streak_bonus, recorded_date, recorded_at, cancelled`

// InsertActivityLog records an activity. A second row for the same
// (child, activity, day) fails with a UNIQUE violation, cancelled or not.
func (d *DB) InsertActivityLog(ctx context.Context, l domain.ActivityLog) (int64, error) {
	result, err := d.q.ExecContext(ctx,
		`INSERT INTO activity_logs (child_id, activity_id, points, streak_days, streak_bonus, recorded_date, recorded_at, cancelled)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ChildID, l.ActivityID, l.Points, l.StreakDays, l.StreakBonus,
		l.RecordedDate, millis(l.RecordedAt), l.Cancelled,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetActivityLog retrieves a log by id, cancelled or not. Returns (nil, nil) when absent.
func (d *DB) GetActivityLog(ctx context.Context, id int64) (*domain.ActivityLog, error) {
	row := d.q.QueryRowContext(ctx,
		`SELECT `+activityLogColumns+` FROM activity_logs WHERE id = ?`, id)
	l, err := scanActivityLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return l, err
}

// FindDailyLog returns the non-cancelled log for (child, activity, day), if any.
func (d *DB) FindDailyLog(ctx context.Context, childID, activityID int64, day string) (*domain.ActivityLog, error) {
	row := d.q.QueryRowContext(ctx,
		`SELECT `+activityLogColumns+` FROM activity_logs
		 WHERE child_id = ? AND activity_id = ? AND recorded_date = ? AND cancelled = 0`,
		childID, activityID, day)
	l, err := scanActivityLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return l, err
}

// StreakDates returns the non-cancelled recorded days for (child, activity), newest first.
func (d *DB) StreakDates(ctx context.Context, childID, activityID int64) ([]string, error) {
	rows, err := d.q.QueryContext(ctx,
		`SELECT recorded_date FROM activity_logs
		 WHERE child_id = ? AND activity_id = ? AND cancelled = 0
		 ORDER BY recorded_date DESC`,
		childID, activityID)
	if err != nil {
		return nil, err
	}
	return scanStrings(rows)
}

// MarkActivityLogCancelled flags a log. Only a non-cancelled row is touched;
// the boolean reports whether one was.
func (d *DB) MarkActivityLogCancelled(ctx context.Context, id int64) (bool, error) {
	result, err := d.q.ExecContext(ctx,
		`UPDATE activity_logs SET cancelled = 1 WHERE id = ? AND cancelled = 0`, id)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

// ListActivityLogs returns non-cancelled logs joined with their activity,
// newest first. Empty from/to leave that side of the range open.
func (d *DB) ListActivityLogs(ctx context.Context, childID int64, from, to string) ([]domain.ActivityLogView, error) {
	query := `SELECT l.id, l.activity_id, a.name, a.icon, a.category, l.points, l.streak_days,
			l.streak_bonus, l.recorded_date, l.recorded_at
		 FROM activity_logs l
		 JOIN activities a ON a.id = l.activity_id
		 WHERE l.child_id = ? AND l.cancelled = 0`
	args := []any{childID}
	if from != "" {
		query += ` AND l.recorded_date >= ?`
		args = append(args, from)
	}
	if to != "" {
		query += ` AND l.recorded_date <= ?`
		args = append(args, to)
	}
	query += ` ORDER BY l.recorded_at DESC, l.id DESC`

	rows, err := d.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []domain.ActivityLogView
	for rows.Next() {
		var v domain.ActivityLogView
		var category string
		var recordedAt int64
		err := rows.Scan(&v.ID, &v.ActivityID, &v.ActivityName, &v.ActivityIcon, &category,
			&v.Points, &v.StreakDays, &v.StreakBonus, &v.RecordedDate, &recordedAt)
		if err != nil {
			return nil, err
		}
		v.Category = domain.Category(category)
		v.RecordedAt = fromMillis(recordedAt)
		logs = append(logs, v)
	}
	return logs, rows.Err()
}

// ActivityIDsOn returns the activity ids recorded (non-cancelled) by a child on a day.
func (d *DB) ActivityIDsOn(ctx context.Context, childID int64, day string) ([]int64, error) {
	rows, err := d.q.QueryContext(ctx,
		`SELECT activity_id FROM activity_logs
		 WHERE child_id = ? AND recorded_date = ? AND cancelled = 0
		 ORDER BY activity_id`,
		childID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountByCategory tallies non-cancelled logs and base points per category
// over the inclusive day range. Categories without logs are absent.
func (d *DB) CountByCategory(ctx context.Context, childID int64, from, to string) ([]domain.CategoryTally, error) {
	rows, err := d.q.QueryContext(ctx,
		`SELECT a.category, COUNT(*), COALESCE(SUM(l.points), 0)
		 FROM activity_logs l
		 JOIN activities a ON a.id = l.activity_id
		 WHERE l.child_id = ? AND l.cancelled = 0
		   AND l.recorded_date >= ? AND l.recorded_date <= ?
		 GROUP BY a.category`,
		childID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tallies []domain.CategoryTally
	for rows.Next() {
		var t domain.CategoryTally
		var category string
		if err := rows.Scan(&category, &t.Count, &t.Points); err != nil {
			return nil, err
		}
		t.Category = domain.Category(category)
		tallies = append(tallies, t)
	}
	return tallies, rows.Err()
}

// LastActivityByCategory returns the latest non-cancelled day per category.
func (d *DB) LastActivityByCategory(ctx context.Context, childID int64) ([]domain.LastActivity, error) {
	rows, err := d.q.QueryContext(ctx,
		`SELECT a.category, MAX(l.recorded_date)
		 FROM activity_logs l
		 JOIN activities a ON a.id = l.activity_id
		 WHERE l.child_id = ? AND l.cancelled = 0
		 GROUP BY a.category`,
		childID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var last []domain.LastActivity
	for rows.Next() {
		var la domain.LastActivity
		var category string
		if err := rows.Scan(&category, &la.Day); err != nil {
			return nil, err
		}
		la.Category = domain.Category(category)
		last = append(last, la)
	}
	return last, rows.Err()
}

func scanActivityLog(s scanner) (*domain.ActivityLog, error) {
	var l domain.ActivityLog
	var recordedAt int64
	err := s.Scan(&l.ID, &l.ChildID, &l.ActivityID, &l.Points, &l.StreakDays,
		&l.StreakBonus, &l.RecordedDate, &recordedAt, &l.Cancelled)
	if err != nil {
		return nil, err
	}
	l.RecordedAt = fromMillis(recordedAt)
	return &l, nil
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
