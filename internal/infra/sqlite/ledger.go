package sqlite

import (
	"context"
	"database/sql"

	"github.com/ganbari-quest/ganbari/internal/domain"
)

// ─── Point Ledger ───────────────────────────────────────────────────────────
// Insert-only. There is no UPDATE or DELETE on point_ledger anywhere.

// InsertLedgerEntry appends a point ledger entry.
func (d *DB) InsertLedgerEntry(ctx context.Context, e domain.LedgerEntry) (int64, error) {
	result, err := d.q.ExecContext(ctx,
		`INSERT INTO point_ledger (child_id, amount, type, description, reference_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ChildID, e.Amount, string(e.Type), nullStr(e.Description),
		nullID(e.ReferenceID), millis(e.CreatedAt),
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// PointBalance returns SUM(amount) over a child's entries.
func (d *DB) PointBalance(ctx context.Context, childID int64) (int64, error) {
	var balance sql.NullInt64
	err := d.q.QueryRowContext(ctx,
		`SELECT SUM(amount) FROM point_ledger WHERE child_id = ?`, childID,
	).Scan(&balance)
	if err != nil {
		return 0, err
	}
	return balance.Int64, nil
}

// LedgerEntries returns a page of a child's entries, newest first.
func (d *DB) LedgerEntries(ctx context.Context, childID int64, limit, offset int) ([]domain.LedgerEntry, error) {
	rows, err := d.q.QueryContext(ctx,
		`SELECT id, child_id, amount, type, description, reference_id, created_at
		 FROM point_ledger WHERE child_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		childID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		var typ string
		var desc sql.NullString
		var ref sql.NullInt64
		var created int64
		err := rows.Scan(&e.ID, &e.ChildID, &e.Amount, &typ, &desc, &ref, &created)
		if err != nil {
			return nil, err
		}
		e.Type = domain.LedgerType(typ)
		e.Description = desc.String
		e.ReferenceID = ref.Int64
		e.CreatedAt = fromMillis(created)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
