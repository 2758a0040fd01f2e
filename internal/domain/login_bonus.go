package domain

import "time"

// LoginBonus is the once-per-day lottery claim for a child.
type LoginBonus struct {
	ID              int64     `json:"id"`
	ChildID         int64     `json:"child_id"`
	LoginDate       string    `json:"login_date"`
	Rank            string    `json:"rank"`
	BasePoints      int       `json:"base_points"`
	Multiplier      float64   `json:"multiplier"`
	TotalPoints     int       `json:"total_points"`
	ConsecutiveDays int       `json:"consecutive_days"`
	CreatedAt       time.Time `json:"created_at"`
}
