package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ganbari-quest/ganbari/internal/domain"
)

// ─── Statuses ───────────────────────────────────────────────────────────────

// GetStatus returns the stored status for (child, category). Returns (nil, nil) when absent.
func (d *DB) GetStatus(ctx context.Context, childID int64, category domain.Category) (*domain.Status, error) {
	var s domain.Status
	var cat string
	var updated int64
	err := d.q.QueryRowContext(ctx,
		`SELECT child_id, category, value, updated_at FROM statuses
		 WHERE child_id = ? AND category = ?`,
		childID, string(category),
	).Scan(&s.ChildID, &cat, &s.Value, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.Category = domain.Category(cat)
	s.UpdatedAt = fromMillis(updated)
	return &s, nil
}

// ListStatuses returns every stored status for a child.
func (d *DB) ListStatuses(ctx context.Context, childID int64) ([]domain.Status, error) {
	rows, err := d.q.QueryContext(ctx,
		`SELECT child_id, category, value, updated_at FROM statuses
		 WHERE child_id = ? ORDER BY category`, childID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var statuses []domain.Status
	for rows.Next() {
		var s domain.Status
		var cat string
		var updated int64
		if err := rows.Scan(&s.ChildID, &cat, &s.Value, &updated); err != nil {
			return nil, err
		}
		s.Category = domain.Category(cat)
		s.UpdatedAt = fromMillis(updated)
		statuses = append(statuses, s)
	}
	return statuses, rows.Err()
}

// UpsertStatus writes the current value for (child, category).
func (d *DB) UpsertStatus(ctx context.Context, s domain.Status) error {
	_, err := d.q.ExecContext(ctx,
		`INSERT INTO statuses (child_id, category, value, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(child_id, category) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		s.ChildID, string(s.Category), s.Value, millis(s.UpdatedAt),
	)
	return err
}

// InsertStatusHistory appends a status change row.
func (d *DB) InsertStatusHistory(ctx context.Context, c domain.StatusChange) (int64, error) {
	result, err := d.q.ExecContext(ctx,
		`INSERT INTO status_history (child_id, category, value, change_amount, change_type, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ChildID, string(c.Category), c.Value, c.ChangeAmount, string(c.ChangeType), millis(c.RecordedAt),
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// RecentStatusHistory returns up to limit history rows for (child, category), newest first.
func (d *DB) RecentStatusHistory(ctx context.Context, childID int64, category domain.Category, limit int) ([]domain.StatusChange, error) {
	rows, err := d.q.QueryContext(ctx,
		`SELECT id, child_id, category, value, change_amount, change_type, recorded_at
		 FROM status_history WHERE child_id = ? AND category = ?
		 ORDER BY recorded_at DESC, id DESC LIMIT ?`,
		childID, string(category), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changes []domain.StatusChange
	for rows.Next() {
		var c domain.StatusChange
		var cat, typ string
		var recorded int64
		err := rows.Scan(&c.ID, &c.ChildID, &cat, &c.Value, &c.ChangeAmount, &typ, &recorded)
		if err != nil {
			return nil, err
		}
		c.Category = domain.Category(cat)
		c.ChangeType = domain.ChangeReason(typ)
		c.RecordedAt = fromMillis(recorded)
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

// ─── Market Benchmarks ──────────────────────────────────────────────────────

// GetBenchmark returns the benchmark for (age, category). Returns (nil, nil) when absent.
func (d *DB) GetBenchmark(ctx context.Context, age int, category domain.Category) (*domain.Benchmark, error) {
	var b domain.Benchmark
	var cat string
	var source sql.NullString
	err := d.q.QueryRowContext(ctx,
		`SELECT age, category, mean, std_dev, source FROM market_benchmarks
		 WHERE age = ? AND category = ?`,
		age, string(category),
	).Scan(&b.Age, &cat, &b.Mean, &b.StdDev, &source)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	b.Category = domain.Category(cat)
	b.Source = source.String
	return &b, nil
}

// UpsertBenchmark inserts or replaces a benchmark row.
func (d *DB) UpsertBenchmark(ctx context.Context, b domain.Benchmark) error {
	_, err := d.q.ExecContext(ctx,
		`INSERT INTO market_benchmarks (age, category, mean, std_dev, source)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(age, category) DO UPDATE SET
			mean = excluded.mean,
			std_dev = excluded.std_dev,
			source = excluded.source`,
		b.Age, string(b.Category), b.Mean, b.StdDev, nullStr(b.Source),
	)
	return err
}
