package domain

import "time"

// ActivityLog is one recorded activity for a child on a calendar day.
// Cancellation flags the row; it is never deleted.
type ActivityLog struct {
	ID           int64     `json:"id"`
	ChildID      int64     `json:"child_id"`
	ActivityID   int64     `json:"activity_id"`
	Points       int       `json:"points"`
	StreakDays   int       `json:"streak_days"`
	StreakBonus  int       `json:"streak_bonus"`
	RecordedDate string    `json:"recorded_date"`
	RecordedAt   time.Time `json:"recorded_at"`
	Cancelled    bool      `json:"cancelled"`
}

// Total is the amount credited to the ledger for this log.
func (l ActivityLog) Total() int {
	return l.Points + l.StreakBonus
}

// ActivityLogView is a log joined with its catalog entry.
type ActivityLogView struct {
	ID           int64     `json:"id"`
	ActivityID   int64     `json:"activity_id"`
	ActivityName string    `json:"activity_name"`
	ActivityIcon string    `json:"activity_icon"`
	Category     Category  `json:"category"`
	Points       int       `json:"points"`
	StreakDays   int       `json:"streak_days"`
	StreakBonus  int       `json:"streak_bonus"`
	RecordedDate string    `json:"recorded_date"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// CategoryTally aggregates non-cancelled logs for one category.
type CategoryTally struct {
	Category Category `json:"category"`
	Count    int      `json:"count"`
	Points   int      `json:"points"`
}

// LastActivity is the most recent non-cancelled day in a category.
type LastActivity struct {
	Category Category
	Day      string
}
