package domain

import "time"

// CategoryScore is one category's weekly outcome.
type CategoryScore struct {
	Count          int     `json:"count"`
	Points         int     `json:"points"`
	StatusIncrease float64 `json:"status_increase"`
}

// Evaluation is the immutable weekly snapshot for a child.
type Evaluation struct {
	ID          int64                      `json:"id"`
	ChildID     int64                      `json:"child_id"`
	WeekStart   string                     `json:"week_start"`
	WeekEnd     string                     `json:"week_end"`
	Scores      map[Category]CategoryScore `json:"scores"`
	BonusPoints int                        `json:"bonus_points"`
	CreatedAt   time.Time                  `json:"created_at"`
}

// DecayApplied records one category's decay in a daily run.
type DecayApplied struct {
	Category Category `json:"category"`
	Amount   float64  `json:"amount"`
}

// DecayResult is a child's outcome for one daily decay run.
type DecayResult struct {
	ChildID int64          `json:"child_id"`
	Decays  []DecayApplied `json:"decays"`
}

// JobRun is the audit record of one batch invocation.
type JobRun struct {
	ID         int64     `json:"id"`
	Job        string    `json:"job"`
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Children   int       `json:"children"`
	Error      string    `json:"error,omitempty"`
}
