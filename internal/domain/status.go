package domain

import "time"

// ChangeReason tags a status mutation in history.
type ChangeReason string

const (
	ReasonWeeklyEvaluation ChangeReason = "weekly_evaluation"
	ReasonDailyDecay       ChangeReason = "daily_decay"
	ReasonManual           ChangeReason = "manual"
)

// Status bounds.
const (
	StatusMin = 0.0
	StatusMax = 100.0
)

// Status is the stored progress value for one (child, category).
type Status struct {
	ChildID   int64     `json:"child_id"`
	Category  Category  `json:"category"`
	Value     float64   `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusChange is one append-only history row.
type StatusChange struct {
	ID           int64        `json:"id"`
	ChildID      int64        `json:"child_id"`
	Category     Category     `json:"category"`
	Value        float64      `json:"value"`
	ChangeAmount float64      `json:"change_amount"` // raw, unclamped delta
	ChangeType   ChangeReason `json:"change_type"`
	RecordedAt   time.Time    `json:"recorded_at"`
}

// Benchmark is the reference distribution for an age and category.
type Benchmark struct {
	Age      int      `json:"age"`
	Category Category `json:"category"`
	Mean     float64  `json:"mean"`
	StdDev   float64  `json:"std_dev"`
	Source   string   `json:"source,omitempty"`
}

// Trend classifies the most recent status movement.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// CharacterType is the archetype derived from average deviation.
type CharacterType string

const (
	CharacterHero    CharacterType = "hero"
	CharacterNormal  CharacterType = "normal"
	CharacterGanbari CharacterType = "ganbari"
)

// StatusDetail is the presentation view of one category.
type StatusDetail struct {
	Value          float64 `json:"value"`
	DeviationScore int     `json:"deviation_score"`
	Stars          int     `json:"stars"`
	Trend          Trend   `json:"trend"`
}

// ChildStatus is the full status view of a child.
type ChildStatus struct {
	ChildID        int64                     `json:"child_id"`
	Level          int                       `json:"level"`
	LevelTitle     string                    `json:"level_title"`
	ExpToNextLevel float64                   `json:"exp_to_next_level"`
	Statuses       map[Category]StatusDetail `json:"statuses"`
	CharacterType  CharacterType             `json:"character_type"`
}
