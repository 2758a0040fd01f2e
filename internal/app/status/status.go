// Package status owns the per-category status values of each child and
// derives the presentation view (deviation, stars, trend, level).
package status

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ganbari-quest/ganbari/internal/app/scoring"
	"github.com/ganbari-quest/ganbari/internal/domain"
	"github.com/ganbari-quest/ganbari/internal/infra/metrics"
	"github.com/ganbari-quest/ganbari/internal/infra/sqlite"
)

// trendWindow is how many history rows the trend looks at.
const trendWindow = 2

// Manager reads and mutates statuses. Apply is the only mutation path.
type Manager struct {
	db    *sqlite.DB
	rules *scoring.Rules
	clock domain.Clock
	log   *zap.Logger
}

// NewManager creates a status manager.
func NewManager(db *sqlite.DB, rules *scoring.Rules, clock domain.Clock, log *zap.Logger) *Manager {
	if rules == nil {
		rules = scoring.DefaultRules()
	}
	if clock == nil {
		clock = domain.SystemClock
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{db: db, rules: rules, clock: clock, log: log.Named("status")}
}

// Get builds the full status view of a child.
func (m *Manager) Get(ctx context.Context, childID int64) (domain.ChildStatus, error) {
	child, err := m.db.GetChild(ctx, childID)
	if err != nil {
		return domain.ChildStatus{}, fmt.Errorf("get child: %w", err)
	}
	if child == nil {
		return domain.ChildStatus{}, fmt.Errorf("%w: %d", domain.ErrChildNotFound, childID)
	}

	stored, err := m.db.ListStatuses(ctx, childID)
	if err != nil {
		return domain.ChildStatus{}, fmt.Errorf("list statuses: %w", err)
	}
	values := make(map[domain.Category]float64, len(stored))
	for _, s := range stored {
		values[s.Category] = s.Value
	}

	categories := m.rules.Categories()
	details := make(map[domain.Category]domain.StatusDetail, len(categories))
	var totalValue, totalDeviation float64

	for _, cat := range categories {
		value := values[cat]

		deviation := 50
		bench, err := m.db.GetBenchmark(ctx, child.Age, cat)
		if err != nil {
			return domain.ChildStatus{}, fmt.Errorf("get benchmark: %w", err)
		}
		if bench != nil {
			deviation = scoring.DeviationScore(value, bench.Mean, bench.StdDev)
		}

		history, err := m.db.RecentStatusHistory(ctx, childID, cat, trendWindow)
		if err != nil {
			return domain.ChildStatus{}, fmt.Errorf("status history: %w", err)
		}
		var recent float64
		if len(history) >= trendWindow {
			recent = history[0].ChangeAmount
		}

		details[cat] = domain.StatusDetail{
			Value:          scoring.Round1(value),
			DeviationScore: deviation,
			Stars:          scoring.Stars(deviation),
			Trend:          scoring.Trend(recent),
		}
		totalValue += value
		totalDeviation += float64(deviation)
	}

	avgStatus := totalValue / float64(len(categories))
	avgDeviation := totalDeviation / float64(len(categories))
	tier := m.rules.Level(avgStatus)

	return domain.ChildStatus{
		ChildID:        childID,
		Level:          tier.Level,
		LevelTitle:     tier.Title,
		ExpToNextLevel: scoring.Round1(m.rules.ExpToNextLevel(avgStatus)),
		Statuses:       details,
		CharacterType:  scoring.CharacterType(avgDeviation),
	}, nil
}

// Apply adds delta to a category, clamping to [0,100], and appends a history
// row carrying the raw delta. Runs in its own transaction.
func (m *Manager) Apply(ctx context.Context, childID int64, category domain.Category, delta float64, reason domain.ChangeReason) (domain.Status, error) {
	var out domain.Status
	err := m.db.Tx(ctx, func(tx *sqlite.DB) error {
		var err error
		out, err = m.ApplyIn(ctx, tx, childID, category, delta, reason)
		return err
	})
	if err != nil {
		return domain.Status{}, err
	}
	metrics.StatusChanges.WithLabelValues(string(reason)).Inc()
	m.log.Debug("status applied",
		zap.Int64("child_id", childID),
		zap.String("category", string(category)),
		zap.Float64("delta", delta),
		zap.Float64("value", out.Value),
		zap.String("reason", string(reason)))
	return out, nil
}

// ApplyIn is Apply against a caller-owned transaction.
func (m *Manager) ApplyIn(ctx context.Context, tx *sqlite.DB, childID int64, category domain.Category, delta float64, reason domain.ChangeReason) (domain.Status, error) {
	if !category.Valid() {
		return domain.Status{}, fmt.Errorf("%w: %q", domain.ErrInvalidCategory, category)
	}
	child, err := tx.GetChild(ctx, childID)
	if err != nil {
		return domain.Status{}, fmt.Errorf("get child: %w", err)
	}
	if child == nil {
		return domain.Status{}, fmt.Errorf("%w: %d", domain.ErrChildNotFound, childID)
	}

	var current float64
	cur, err := tx.GetStatus(ctx, childID, category)
	if err != nil {
		return domain.Status{}, fmt.Errorf("get status: %w", err)
	}
	if cur != nil {
		current = cur.Value
	}

	now := m.clock()
	next := domain.Status{
		ChildID:   childID,
		Category:  category,
		Value:     scoring.ClampStatus(current + delta),
		UpdatedAt: now,
	}
	if err := tx.UpsertStatus(ctx, next); err != nil {
		return domain.Status{}, fmt.Errorf("upsert status: %w", err)
	}
	_, err = tx.InsertStatusHistory(ctx, domain.StatusChange{
		ChildID:      childID,
		Category:     category,
		Value:        next.Value,
		ChangeAmount: delta,
		ChangeType:   reason,
		RecordedAt:   now,
	})
	if err != nil {
		return domain.Status{}, fmt.Errorf("insert status history: %w", err)
	}
	return next, nil
}

// UpsertBenchmark stores the reference distribution for an age and category.
func (m *Manager) UpsertBenchmark(ctx context.Context, b domain.Benchmark) error {
	if !b.Category.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidCategory, b.Category)
	}
	if b.Age < 0 || b.StdDev < 0 {
		return fmt.Errorf("%w: benchmark age and std_dev must be non-negative", domain.ErrInvalidInput)
	}
	return m.db.UpsertBenchmark(ctx, b)
}

// DefaultBenchmarks are provisional reference values for four-year-olds.
func DefaultBenchmarks() []domain.Benchmark {
	const src = "provisional"
	return []domain.Benchmark{
		{Age: 4, Category: domain.CategoryPhysical, Mean: 30, StdDev: 10, Source: src},
		{Age: 4, Category: domain.CategoryLearning, Mean: 20, StdDev: 8, Source: src},
		{Age: 4, Category: domain.CategoryDailyLife, Mean: 35, StdDev: 8, Source: src},
		{Age: 4, Category: domain.CategorySocial, Mean: 25, StdDev: 10, Source: src},
		{Age: 4, Category: domain.CategoryCreative, Mean: 25, StdDev: 9, Source: src},
	}
}

// SeedBenchmarks upserts DefaultBenchmarks.
func (m *Manager) SeedBenchmarks(ctx context.Context) (int, error) {
	bs := DefaultBenchmarks()
	for _, b := range bs {
		if err := m.UpsertBenchmark(ctx, b); err != nil {
			return 0, err
		}
	}
	return len(bs), nil
}
