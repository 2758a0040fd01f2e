package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/ganbari-quest/ganbari/internal/domain"
)

// Period selects the default start of a log query.
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// ParsePeriod accepts week, month or year. Empty means week.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "":
		return PeriodWeek, nil
	case PeriodWeek, PeriodMonth, PeriodYear:
		return Period(s), nil
	}
	return "", fmt.Errorf("%w: period %q", domain.ErrInvalidInput, s)
}

// LogQuery filters Logs. From defaults from Period when empty.
type LogQuery struct {
	Period Period
	From   string
	To     string
}

// CategorySummary totals one category.
type CategorySummary struct {
	Count  int `json:"count"`
	Points int `json:"points"`
}

// LogSummary totals a log listing. Points include streak bonuses.
type LogSummary struct {
	TotalCount  int                                 `json:"total_count"`
	TotalPoints int                                 `json:"total_points"`
	ByCategory  map[domain.Category]CategorySummary `json:"by_category"`
}

// LogsResult is returned by Logs.
type LogsResult struct {
	Logs    []domain.ActivityLogView `json:"logs"`
	Summary LogSummary               `json:"summary"`
}

// PeriodStart resolves the first day of a period relative to now:
// the most recent Sunday, the 1st of the month or January 1st.
func PeriodStart(p Period, now time.Time) string {
	now = now.UTC()
	switch p {
	case PeriodMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).Format(domain.DayLayout)
	case PeriodYear:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC).Format(domain.DayLayout)
	default:
		return now.AddDate(0, 0, -int(now.Weekday())).Format(domain.DayLayout)
	}
}

// Logs lists non-cancelled logs, newest first, with a summary.
func (r *Recorder) Logs(ctx context.Context, childID int64, q LogQuery) (LogsResult, error) {
	for _, d := range []string{q.From, q.To} {
		if d == "" {
			continue
		}
		if _, err := domain.ParseDay(d); err != nil {
			return LogsResult{}, err
		}
	}
	from := q.From
	if from == "" {
		from = PeriodStart(q.Period, r.clock())
	}

	views, err := r.db.ListActivityLogs(ctx, childID, from, q.To)
	if err != nil {
		return LogsResult{}, fmt.Errorf("list activity logs: %w", err)
	}

	summary := LogSummary{ByCategory: make(map[domain.Category]CategorySummary)}
	for _, v := range views {
		total := v.Points + v.StreakBonus
		summary.TotalCount++
		summary.TotalPoints += total
		cs := summary.ByCategory[v.Category]
		cs.Count++
		cs.Points += total
		summary.ByCategory[v.Category] = cs
	}
	if views == nil {
		views = []domain.ActivityLogView{}
	}
	return LogsResult{Logs: views, Summary: summary}, nil
}
