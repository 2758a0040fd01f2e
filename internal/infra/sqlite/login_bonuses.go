package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ganbari-quest/ganbari/internal/domain"
)

// ─── Login Bonuses ──────────────────────────────────────────────────────────

const loginBonusColumns = `id, child_id, login_date, rank, base_points, multiplier, total_points, consecutive_days, created_at`

// InsertLoginBonus stores a claim. A second claim for the same day fails
// with a UNIQUE violation.
func (d *DB) InsertLoginBonus(ctx context.Context, b domain.LoginBonus) (int64, error) {
	result, err := d.q.ExecContext(ctx,
		`INSERT INTO login_bonuses (child_id, login_date, rank, base_points, multiplier, total_points, consecutive_days, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ChildID, b.LoginDate, b.Rank, b.BasePoints, b.Multiplier,
		b.TotalPoints, b.ConsecutiveDays, millis(b.CreatedAt),
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetLoginBonus returns a child's claim for a day. Returns (nil, nil) when absent.
func (d *DB) GetLoginBonus(ctx context.Context, childID int64, day string) (*domain.LoginBonus, error) {
	row := d.q.QueryRowContext(ctx,
		`SELECT `+loginBonusColumns+` FROM login_bonuses WHERE child_id = ? AND login_date = ?`,
		childID, day)
	b, err := scanLoginBonus(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

// RecentLoginBonuses returns up to limit claims for a child, newest day first.
func (d *DB) RecentLoginBonuses(ctx context.Context, childID int64, limit int) ([]domain.LoginBonus, error) {
	rows, err := d.q.QueryContext(ctx,
		`SELECT `+loginBonusColumns+` FROM login_bonuses
		 WHERE child_id = ? ORDER BY login_date DESC LIMIT ?`,
		childID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bonuses []domain.LoginBonus
	for rows.Next() {
		b, err := scanLoginBonus(rows)
		if err != nil {
			return nil, err
		}
		bonuses = append(bonuses, *b)
	}
	return bonuses, rows.Err()
}

func scanLoginBonus(s scanner) (*domain.LoginBonus, error) {
	var b domain.LoginBonus
	var created int64
	err := s.Scan(&b.ID, &b.ChildID, &b.LoginDate, &b.Rank, &b.BasePoints,
		&b.Multiplier, &b.TotalPoints, &b.ConsecutiveDays, &created)
	if err != nil {
		return nil, err
	}
	b.CreatedAt = fromMillis(created)
	return &b, nil
}
