package evaluation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ganbari-quest/ganbari/internal/app/ledger"
	"github.com/ganbari-quest/ganbari/internal/app/scoring"
	"github.com/ganbari-quest/ganbari/internal/app/status"
	"github.com/ganbari-quest/ganbari/internal/domain"
	"github.com/ganbari-quest/ganbari/internal/infra/jobguard"
	"github.com/ganbari-quest/ganbari/internal/infra/metrics"
	"github.com/ganbari-quest/ganbari/internal/infra/sqlite"
)

// Evaluation history bounds.
const (
	DefaultEvaluationLimit = 10
	MaxEvaluationLimit     = 100
)

// WeeklyReport summarizes one RunAll.
type WeeklyReport struct {
	RunID     string              `json:"run_id"`
	WeekStart string              `json:"week_start"`
	WeekEnd   string              `json:"week_end"`
	Results   []domain.Evaluation `json:"results"`
	Skipped   []int64             `json:"skipped"`
}

// Evaluator runs the weekly evaluation.
type Evaluator struct {
	runner
	status  *status.Manager
	ledger  *ledger.Service
	workers int
}

// NewEvaluator creates a weekly evaluator. A nil guard means in-process locking.
func NewEvaluator(db *sqlite.DB, st *status.Manager, l *ledger.Service, guard jobguard.Guard, clock domain.Clock, log *zap.Logger) *Evaluator {
	if guard == nil {
		guard = jobguard.NewLocal()
	}
	if clock == nil {
		clock = domain.SystemClock
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Evaluator{
		runner:  runner{db: db, guard: guard, clock: clock, log: log.Named("evaluation")},
		status:  st,
		ledger:  l,
		workers: defaultWorkers,
	}
}

// WeekRange returns the most recently completed Mon-Sun week.
// On a Sunday that is the week ending today.
func WeekRange(now time.Time) (weekStart, weekEnd string) {
	now = now.UTC()
	sunday := now.AddDate(0, 0, -int(now.Weekday()))
	monday := sunday.AddDate(0, 0, -6)
	return monday.Format(domain.DayLayout), sunday.Format(domain.DayLayout)
}

// RunForChild evaluates one child over an inclusive day range in a single
// transaction. A week already evaluated fails with ErrAlreadyEvaluated.
func (e *Evaluator) RunForChild(ctx context.Context, childID int64, weekStart, weekEnd string) (domain.Evaluation, error) {
	if _, err := domain.ParseDay(weekStart); err != nil {
		return domain.Evaluation{}, err
	}
	if _, err := domain.ParseDay(weekEnd); err != nil {
		return domain.Evaluation{}, err
	}

	var eval domain.Evaluation
	var applied int
	err := e.db.Tx(ctx, func(tx *sqlite.DB) error {
		child, err := tx.GetChild(ctx, childID)
		if err != nil {
			return fmt.Errorf("get child: %w", err)
		}
		if child == nil {
			return fmt.Errorf("%w: %d", domain.ErrChildNotFound, childID)
		}
		done, err := tx.EvaluationExists(ctx, childID, weekStart)
		if err != nil {
			return fmt.Errorf("evaluation exists: %w", err)
		}
		if done {
			return fmt.Errorf("%w: child %d week %s", domain.ErrAlreadyEvaluated, childID, weekStart)
		}

		tallies, err := tx.CountByCategory(ctx, childID, weekStart, weekEnd)
		if err != nil {
			return fmt.Errorf("count by category: %w", err)
		}
		byCat := make(map[domain.Category]domain.CategoryTally, len(tallies))
		for _, t := range tallies {
			byCat[t.Category] = t
		}

		scores := make(map[domain.Category]domain.CategoryScore)
		for _, cat := range domain.Categories() {
			t := byCat[cat]
			inc := scoring.StatusIncrease(t.Count)
			scores[cat] = domain.CategoryScore{Count: t.Count, Points: t.Points, StatusIncrease: inc}
			if inc > 0 {
				if _, err := e.status.ApplyIn(ctx, tx, childID, cat, inc, domain.ReasonWeeklyEvaluation); err != nil {
					return err
				}
				applied++
			}
		}

		eval = domain.Evaluation{
			ChildID:     childID,
			WeekStart:   weekStart,
			WeekEnd:     weekEnd,
			Scores:      scores,
			BonusPoints: scoring.EvaluationBonus(scores),
			CreatedAt:   e.clock(),
		}
		id, err := tx.InsertEvaluation(ctx, eval)
		if err != nil {
			if sqlite.IsUniqueViolation(err) {
				return fmt.Errorf("%w: child %d week %s", domain.ErrAlreadyEvaluated, childID, weekStart)
			}
			return fmt.Errorf("insert evaluation: %w", err)
		}
		eval.ID = id

		if eval.BonusPoints > 0 {
			_, err := e.ledger.Post(ctx, tx, domain.LedgerEntry{
				ChildID:     childID,
				Amount:      int64(eval.BonusPoints),
				Type:        domain.LedgerWeeklyBonus,
				Description: fmt.Sprintf("しゅうかんひょうかボーナス +%dP", eval.BonusPoints),
				ReferenceID: id,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Evaluation{}, err
	}

	metrics.StatusChanges.WithLabelValues(string(domain.ReasonWeeklyEvaluation)).Add(float64(applied))
	ledger.Observe(domain.LedgerEntry{Amount: int64(eval.BonusPoints), Type: domain.LedgerWeeklyBonus})
	e.log.Info("child evaluated",
		zap.Int64("child_id", childID),
		zap.String("week_start", weekStart),
		zap.Int("bonus", eval.BonusPoints))
	return eval, nil
}

// RunAll evaluates every child for WeekRange(now).
func (e *Evaluator) RunAll(ctx context.Context) (WeeklyReport, error) {
	return e.RunForWeekOf(ctx, e.clock())
}

// RunForWeekOf evaluates every child for the week WeekRange(at) selects.
// Children already evaluated for that week are skipped.
func (e *Evaluator) RunForWeekOf(ctx context.Context, at time.Time) (WeeklyReport, error) {
	start, end := WeekRange(at)
	report := WeeklyReport{WeekStart: start, WeekEnd: end}

	runID, err := e.run(ctx, JobWeeklyEvaluation, func(ctx context.Context) (int, error) {
		children, err := e.db.ListChildren(ctx)
		if err != nil {
			return 0, fmt.Errorf("list children: %w", err)
		}

		var (
			mu   sync.Mutex
			errs []error
		)
		results := make([]*domain.Evaluation, len(children))
		skipped := make([]bool, len(children))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.workers)
		for i, c := range children {
			g.Go(func() error {
				ev, err := e.RunForChild(gctx, c.ID, start, end)
				switch {
				case err == nil:
					results[i] = &ev
				case errors.Is(err, domain.ErrAlreadyEvaluated):
					skipped[i] = true
					e.log.Info("already evaluated, skipping", zap.Int64("child_id", c.ID), zap.String("week_start", start))
				case gctx.Err() != nil:
					return gctx.Err()
				default:
					mu.Lock()
					errs = append(errs, fmt.Errorf("child %d: %w", c.ID, err))
					mu.Unlock()
				}
				return nil
			})
		}
		waitErr := g.Wait()

		report.Results = []domain.Evaluation{}
		report.Skipped = []int64{}
		for i, c := range children {
			if results[i] != nil {
				report.Results = append(report.Results, *results[i])
			}
			if skipped[i] {
				report.Skipped = append(report.Skipped, c.ID)
			}
		}
		if waitErr != nil {
			return len(report.Results), waitErr
		}
		return len(report.Results), errors.Join(errs...)
	})
	report.RunID = runID
	return report, err
}

// Evaluations returns a child's snapshots, newest week first.
// limit is clamped to 1..100; 0 means 10.
func (e *Evaluator) Evaluations(ctx context.Context, childID int64, limit int) ([]domain.Evaluation, error) {
	child, err := e.db.GetChild(ctx, childID)
	if err != nil {
		return nil, fmt.Errorf("get child: %w", err)
	}
	if child == nil {
		return nil, fmt.Errorf("%w: %d", domain.ErrChildNotFound, childID)
	}
	switch {
	case limit == 0:
		limit = DefaultEvaluationLimit
	case limit < 1:
		limit = 1
	case limit > MaxEvaluationLimit:
		limit = MaxEvaluationLimit
	}
	evals, err := e.db.ListEvaluations(ctx, childID, limit)
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	if evals == nil {
		evals = []domain.Evaluation{}
	}
	return evals, nil
}
