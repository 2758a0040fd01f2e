package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/ganbari-quest/ganbari/internal/domain"
)

// ─── Children ───────────────────────────────────────────────────────────────

// InsertChild creates a child and returns its id.
func (d *DB) InsertChild(ctx context.Context, c domain.Child) (int64, error) {
	if c.Theme == "" {
		c.Theme = "pink"
	}
	result, err := d.q.ExecContext(ctx,
		`INSERT INTO children (nickname, age, theme, created_at) VALUES (?, ?, ?, ?)`,
		c.Nickname, c.Age, c.Theme, millis(c.CreatedAt),
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetChild retrieves a child by id. Returns (nil, nil) when absent.
func (d *DB) GetChild(ctx context.Context, id int64) (*domain.Child, error) {
	row := d.q.QueryRowContext(ctx,
		`SELECT id, nickname, age, theme, created_at FROM children WHERE id = ?`, id)
	c, err := scanChild(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

// ListChildren returns every child ordered by id.
func (d *DB) ListChildren(ctx context.Context) ([]domain.Child, error) {
	rows, err := d.q.QueryContext(ctx,
		`SELECT id, nickname, age, theme, created_at FROM children ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var children []domain.Child
	for rows.Next() {
		c, err := scanChild(rows)
		if err != nil {
			return nil, err
		}
		children = append(children, *c)
	}
	return children, rows.Err()
}

func scanChild(s scanner) (*domain.Child, error) {
	var c domain.Child
	var created int64
	if err := s.Scan(&c.ID, &c.Nickname, &c.Age, &c.Theme, &created); err != nil {
		return nil, err
	}
	c.CreatedAt = fromMillis(created)
	return &c, nil
}

// ─── Activities ─────────────────────────────────────────────────────────────

const activityColumns = `id, name, category, icon, base_points, age_min, age_max, is_visible, sort_order, created_at`

// InsertActivity creates a catalog entry and returns its id.
func (d *DB) InsertActivity(ctx context.Context, a domain.Activity) (int64, error) {
	result, err := d.q.ExecContext(ctx,
		`INSERT INTO activities (name, category, icon, base_points, age_min, age_max, is_visible, sort_order, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Name, string(a.Category), a.Icon, a.BasePoints,
		nullInt(a.AgeMin), nullInt(a.AgeMax), a.Visible, a.SortOrder, millis(a.CreatedAt),
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetActivity retrieves an activity by id. Returns (nil, nil) when absent.
func (d *DB) GetActivity(ctx context.Context, id int64) (*domain.Activity, error) {
	row := d.q.QueryRowContext(ctx,
		`SELECT `+activityColumns+` FROM activities WHERE id = ?`, id)
	a, err := scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

// ListActivities returns catalog entries matching the filter by sort order.
func (d *DB) ListActivities(ctx context.Context, f domain.ActivityFilter) ([]domain.Activity, error) {
	var where []string
	var args []any
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, string(f.Category))
	}
	if !f.IncludeHidden {
		where = append(where, "is_visible = 1")
	}
	if f.ChildAge != nil {
		where = append(where, "(age_min IS NULL OR age_min <= ?)", "(age_max IS NULL OR age_max >= ?)")
		args = append(args, *f.ChildAge, *f.ChildAge)
	}

	query := `SELECT ` + activityColumns + ` FROM activities`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY sort_order, id"

	rows, err := d.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []domain.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, *a)
	}
	return activities, rows.Err()
}

// UpdateActivity overwrites the editable fields of an activity.
func (d *DB) UpdateActivity(ctx context.Context, a domain.Activity) error {
	result, err := d.q.ExecContext(ctx,
		`UPDATE activities SET name = ?, category = ?, icon = ?, base_points = ?,
			age_min = ?, age_max = ?, sort_order = ?
		 WHERE id = ?`,
		a.Name, string(a.Category), a.Icon, a.BasePoints,
		nullInt(a.AgeMin), nullInt(a.AgeMax), a.SortOrder, a.ID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return domain.ErrActivityNotFound
	}
	return nil
}

// SetActivityVisibility shows or hides an activity. Hiding is the only delete.
func (d *DB) SetActivityVisibility(ctx context.Context, id int64, visible bool) error {
	result, err := d.q.ExecContext(ctx,
		`UPDATE activities SET is_visible = ? WHERE id = ?`, visible, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return domain.ErrActivityNotFound
	}
	return nil
}

func scanActivity(s scanner) (*domain.Activity, error) {
	var a domain.Activity
	var category string
	var ageMin, ageMax sql.NullInt64
	var created int64
	err := s.Scan(&a.ID, &a.Name, &category, &a.Icon, &a.BasePoints,
		&ageMin, &ageMax, &a.Visible, &a.SortOrder, &created)
	if err != nil {
		return nil, err
	}
	a.Category = domain.Category(category)
	a.AgeMin = intPtr(ageMin)
	a.AgeMax = intPtr(ageMax)
	a.CreatedAt = fromMillis(created)
	return &a, nil
}
