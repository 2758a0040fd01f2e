// Package activity records daily activities, handles the short
// cancellation window and serves the activity catalog.
package activity

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ganbari-quest/ganbari/internal/app/ledger"
	"github.com/ganbari-quest/ganbari/internal/app/scoring"
	"github.com/ganbari-quest/ganbari/internal/domain"
	"github.com/ganbari-quest/ganbari/internal/infra/metrics"
	"github.com/ganbari-quest/ganbari/internal/infra/sqlite"
)

// CancelWindow is how long after recording a log may be cancelled.
const CancelWindow = 5000 * time.Millisecond

// RecordResult is returned by Record.
type RecordResult struct {
	ID              int64     `json:"id"`
	ChildID         int64     `json:"child_id"`
	ActivityID      int64     `json:"activity_id"`
	ActivityName    string    `json:"activity_name"`
	BasePoints      int       `json:"base_points"`
	StreakDays      int       `json:"streak_days"`
	StreakBonus     int       `json:"streak_bonus"`
	TotalPoints     int       `json:"total_points"`
	RecordedAt      time.Time `json:"recorded_at"`
	CancelableUntil time.Time `json:"cancelable_until"`
}

// CancelResult is returned by Cancel.
type CancelResult struct {
	RefundedPoints int `json:"refunded_points"`
}

// Recorder records and cancels activity logs.
type Recorder struct {
	db     *sqlite.DB
	ledger *ledger.Service
	clock  domain.Clock
	log    *zap.Logger
}

// NewRecorder creates an activity recorder.
func NewRecorder(db *sqlite.DB, l *ledger.Service, clock domain.Clock, log *zap.Logger) *Recorder {
	if clock == nil {
		clock = domain.SystemClock
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{db: db, ledger: l, clock: clock, log: log.Named("activity")}
}

// Record logs an activity for today, computes the streak bonus and credits
// the ledger. Everything happens in one transaction.
func (r *Recorder) Record(ctx context.Context, childID, activityID int64) (RecordResult, error) {
	now := r.clock()
	today := domain.DayOf(now)

	var res RecordResult
	var category domain.Category
	err := r.db.Tx(ctx, func(tx *sqlite.DB) error {
		child, err := tx.GetChild(ctx, childID)
		if err != nil {
			return fmt.Errorf("get child: %w", err)
		}
		if child == nil {
			return fmt.Errorf("%w: %d", domain.ErrChildNotFound, childID)
		}
		act, err := tx.GetActivity(ctx, activityID)
		if err != nil {
			return fmt.Errorf("get activity: %w", err)
		}
		if act == nil {
			return fmt.Errorf("%w: %d", domain.ErrActivityNotFound, activityID)
		}
		category = act.Category

		existing, err := tx.FindDailyLog(ctx, childID, activityID, today)
		if err != nil {
			return fmt.Errorf("find daily log: %w", err)
		}
		if existing != nil {
			return domain.ErrAlreadyRecorded
		}

		prior, err := tx.StreakDates(ctx, childID, activityID)
		if err != nil {
			return fmt.Errorf("streak dates: %w", err)
		}
		streak := scoring.StreakDays(prior, today)
		bonus := scoring.StreakBonus(streak)

		log := domain.ActivityLog{
			ChildID:      childID,
			ActivityID:   activityID,
			Points:       act.BasePoints,
			StreakDays:   streak,
			StreakBonus:  bonus,
			RecordedDate: today,
			RecordedAt:   now,
		}
		logID, err := tx.InsertActivityLog(ctx, log)
		if err != nil {
			if sqlite.IsUniqueViolation(err) {
				// Same-day slot still held by a cancelled log.
				return domain.ErrAlreadyRecorded
			}
			return fmt.Errorf("insert activity log: %w", err)
		}

		desc := act.Name
		if bonus > 0 {
			desc = fmt.Sprintf("%s (%d日連続+%d)", act.Name, streak, bonus)
		}
		_, err = r.ledger.Post(ctx, tx, domain.LedgerEntry{
			ChildID:     childID,
			Amount:      int64(log.Total()),
			Type:        domain.LedgerActivity,
			Description: desc,
			ReferenceID: logID,
			CreatedAt:   now,
		})
		if err != nil {
			return err
		}

		res = RecordResult{
			ID:              logID,
			ChildID:         childID,
			ActivityID:      activityID,
			ActivityName:    act.Name,
			BasePoints:      act.BasePoints,
			StreakDays:      streak,
			StreakBonus:     bonus,
			TotalPoints:     log.Total(),
			RecordedAt:      now,
			CancelableUntil: now.Add(CancelWindow),
		}
		return nil
	})
	if err != nil {
		return RecordResult{}, err
	}

	metrics.ActivitiesRecorded.WithLabelValues(string(category)).Inc()
	metrics.StreakLength.Observe(float64(res.StreakDays))
	ledger.Observe(domain.LedgerEntry{Amount: int64(res.TotalPoints), Type: domain.LedgerActivity})
	r.log.Info("activity recorded",
		zap.Int64("child_id", childID),
		zap.Int64("activity_id", activityID),
		zap.Int("streak_days", res.StreakDays),
		zap.Int("total_points", res.TotalPoints))
	return res, nil
}

// Cancel reverses a log recorded within CancelWindow. The row is flagged,
// never deleted, and a compensating ledger entry is appended.
func (r *Recorder) Cancel(ctx context.Context, logID int64) (CancelResult, error) {
	now := r.clock()

	var refund int
	var childID int64
	err := r.db.Tx(ctx, func(tx *sqlite.DB) error {
		l, err := tx.GetActivityLog(ctx, logID)
		if err != nil {
			return fmt.Errorf("get activity log: %w", err)
		}
		if l == nil || l.Cancelled {
			return fmt.Errorf("%w: %d", domain.ErrActivityLogNotFound, logID)
		}
		if now.Sub(l.RecordedAt) > CancelWindow {
			return domain.ErrCancelExpired
		}

		ok, err := tx.MarkActivityLogCancelled(ctx, logID)
		if err != nil {
			return fmt.Errorf("cancel activity log: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: %d", domain.ErrActivityLogNotFound, logID)
		}

		refund = l.Total()
		childID = l.ChildID
		_, err = r.ledger.Post(ctx, tx, domain.LedgerEntry{
			ChildID:     l.ChildID,
			Amount:      -int64(refund),
			Type:        domain.LedgerCancel,
			Description: "キャンセル",
			ReferenceID: logID,
			CreatedAt:   now,
		})
		return err
	})
	if err != nil {
		return CancelResult{}, err
	}

	metrics.ActivitiesCancelled.Inc()
	ledger.Observe(domain.LedgerEntry{Amount: -int64(refund), Type: domain.LedgerCancel})
	r.log.Info("activity cancelled",
		zap.Int64("child_id", childID),
		zap.Int64("log_id", logID),
		zap.Int("refunded", refund))
	return CancelResult{RefundedPoints: refund}, nil
}

// TodayRecordedActivityIDs lists activities already recorded today.
func (r *Recorder) TodayRecordedActivityIDs(ctx context.Context, childID int64) ([]int64, error) {
	ids, err := r.db.ActivityIDsOn(ctx, childID, domain.DayOf(r.clock()))
	if err != nil {
		return nil, fmt.Errorf("today activity ids: %w", err)
	}
	return ids, nil
}
