package domain

import "time"

// LedgerType tags the origin of a point ledger entry.
type LedgerType string

const (
	LedgerActivity    LedgerType = "activity"
	LedgerCancel      LedgerType = "cancel"
	LedgerWeeklyBonus LedgerType = "weekly_bonus"
	LedgerLoginBonus  LedgerType = "login_bonus"
	LedgerConvert     LedgerType = "convert"
)

// PointsPerConvertUnit is the smallest convertible amount.
const PointsPerConvertUnit int64 = 500

// LedgerEntry is an immutable signed point movement.
// Balance is always SUM(amount); corrections are new entries.
type LedgerEntry struct {
	ID          int64      `json:"id"`
	ChildID     int64      `json:"child_id"`
	Amount      int64      `json:"amount"`
	Type        LedgerType `json:"type"`
	Description string     `json:"description"`
	ReferenceID int64      `json:"reference_id,omitempty"` // 0 = none
	CreatedAt   time.Time  `json:"created_at"`
}

// PointBalance is the balance view for a child.
type PointBalance struct {
	ChildID           int64 `json:"child_id"`
	Balance           int64 `json:"balance"`
	ConvertableAmount int64 `json:"convertable_amount"`
	NextConvertAt     int64 `json:"next_convert_at"`
}

// NewPointBalance derives the convert fields from a raw balance.
func NewPointBalance(childID, balance int64) PointBalance {
	unit := PointsPerConvertUnit
	pb := PointBalance{
		ChildID:           childID,
		Balance:           balance,
		ConvertableAmount: 0,
		NextConvertAt:     unit,
	}
	if balance > 0 {
		pb.ConvertableAmount = balance / unit * unit
	}
	if balance >= unit {
		pb.NextConvertAt = balance
	}
	return pb
}
