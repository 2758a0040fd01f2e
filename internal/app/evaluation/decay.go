package evaluation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ganbari-quest/ganbari/internal/app/scoring"
	"github.com/ganbari-quest/ganbari/internal/app/status"
	"github.com/ganbari-quest/ganbari/internal/domain"
	"github.com/ganbari-quest/ganbari/internal/infra/jobguard"
	"github.com/ganbari-quest/ganbari/internal/infra/metrics"
	"github.com/ganbari-quest/ganbari/internal/infra/sqlite"
)

// DecayReport summarizes one decay run.
type DecayReport struct {
	RunID   string               `json:"run_id"`
	Day     string               `json:"day"`
	Results []domain.DecayResult `json:"results"`
}

// DecayRunner lowers statuses of categories left idle.
//
// A run recomputes from the live last-activity day, so running twice on the
// same day decays twice. The scheduler must call it once per day; the job
// guard only stops overlapping runs.
type DecayRunner struct {
	runner
	status *status.Manager
	rules  *scoring.Rules
}

// NewDecayRunner creates a decay runner. A nil guard means in-process locking.
func NewDecayRunner(db *sqlite.DB, st *status.Manager, rules *scoring.Rules, guard jobguard.Guard, clock domain.Clock, log *zap.Logger) *DecayRunner {
	if rules == nil {
		rules = scoring.DefaultRules()
	}
	if guard == nil {
		guard = jobguard.NewLocal()
	}
	if clock == nil {
		clock = domain.SystemClock
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &DecayRunner{
		runner: runner{db: db, guard: guard, clock: clock, log: log.Named("decay")},
		status: st,
		rules:  rules,
	}
}

// RunToday runs decay for the clock's current day.
func (d *DecayRunner) RunToday(ctx context.Context) (DecayReport, error) {
	return d.RunForDay(ctx, domain.DayOf(d.clock()))
}

// RunForDay applies decay to every child relative to day.
func (d *DecayRunner) RunForDay(ctx context.Context, day string) (DecayReport, error) {
	if _, err := domain.ParseDay(day); err != nil {
		return DecayReport{}, err
	}
	report := DecayReport{Day: day, Results: []domain.DecayResult{}}

	runID, err := d.run(ctx, JobDailyDecay, func(ctx context.Context) (int, error) {
		children, err := d.db.ListChildren(ctx)
		if err != nil {
			return 0, fmt.Errorf("list children: %w", err)
		}
		for _, c := range children {
			res, err := d.decayChild(ctx, c, day)
			if err != nil {
				return len(report.Results), fmt.Errorf("child %d: %w", c.ID, err)
			}
			report.Results = append(report.Results, res)
		}
		return len(report.Results), nil
	})
	report.RunID = runID
	return report, err
}

func (d *DecayRunner) decayChild(ctx context.Context, c domain.Child, day string) (domain.DecayResult, error) {
	res := domain.DecayResult{ChildID: c.ID, Decays: []domain.DecayApplied{}}

	err := d.db.Tx(ctx, func(tx *sqlite.DB) error {
		last, err := tx.LastActivityByCategory(ctx, c.ID)
		if err != nil {
			return fmt.Errorf("last activity by category: %w", err)
		}
		lastDay := make(map[domain.Category]string, len(last))
		for _, la := range last {
			lastDay[la.Category] = la.Day
		}

		for _, cat := range d.rules.Categories() {
			ld, ok := lastDay[cat]
			if !ok {
				continue
			}
			days, err := domain.DaysBetween(ld, day)
			if err != nil {
				return err
			}
			if days <= 0 {
				continue
			}
			amount := d.rules.Decay(days, c.Age)
			if amount <= 0 {
				continue
			}
			if _, err := d.status.ApplyIn(ctx, tx, c.ID, cat, -amount, domain.ReasonDailyDecay); err != nil {
				return err
			}
			res.Decays = append(res.Decays, domain.DecayApplied{Category: cat, Amount: amount})
		}
		return nil
	})
	if err != nil {
		return domain.DecayResult{}, err
	}

	metrics.StatusChanges.WithLabelValues(string(domain.ReasonDailyDecay)).Add(float64(len(res.Decays)))
	if len(res.Decays) > 0 {
		d.log.Debug("decay applied", zap.Int64("child_id", c.ID), zap.Int("categories", len(res.Decays)))
	}
	return res, nil
}
