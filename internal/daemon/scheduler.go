package daemon

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ganbari-quest/ganbari/internal/domain"
)

// schedulerInterval is how often due jobs are checked.
const schedulerInterval = time.Minute

// scheduledJob fires at most once per period. period reports when the
// current period opened and whether the job is due yet; a run that
// started at or after that instant satisfies it. The job_runs table is
// the memory, so restarts and other instances sharing the database do
// not fire it twice.
type scheduledJob struct {
	name   string
	period func(now time.Time) (start time.Time, due bool)
	run    func(ctx context.Context, start time.Time) error
	runs   func(ctx context.Context, limit int) ([]domain.JobRun, error)
}

type scheduler struct {
	jobs     []scheduledJob
	clock    domain.Clock
	interval time.Duration
	log      *zap.Logger
}

func midnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// dailyAt covers one UTC day and is due from hour:00.
func dailyAt(hour int) func(time.Time) (time.Time, bool) {
	return func(now time.Time) (time.Time, bool) {
		return midnight(now), now.UTC().Hour() >= hour
	}
}

// weeklyAt covers the UTC days from the latest day at hour:00 up to the
// next one. It is always due, so a week whose opening day passed while
// the daemon was down is still caught up later in the week.
func weeklyAt(day time.Weekday, hour int) func(time.Time) (time.Time, bool) {
	return func(now time.Time) (time.Time, bool) {
		now = now.UTC()
		back := (int(now.Weekday()) - int(day) + 7) % 7
		open := midnight(now).AddDate(0, 0, -back).Add(time.Duration(hour) * time.Hour)
		if open.After(now) {
			open = open.AddDate(0, 0, -7)
		}
		return midnight(open), true
	}
}

func (s *scheduler) loop(ctx context.Context) {
	s.tick(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *scheduler) tick(ctx context.Context) {
	now := s.clock()
	for _, j := range s.jobs {
		start, due := j.period(now)
		if !due {
			continue
		}
		ran, err := s.ranSince(ctx, j, start)
		if err != nil {
			s.log.Warn("check job history", zap.String("job", j.name), zap.Error(err))
			continue
		}
		if ran {
			continue
		}
		if err := j.run(ctx, start); err != nil {
			if errors.Is(err, domain.ErrJobRunning) {
				s.log.Debug("job already running elsewhere", zap.String("job", j.name))
				continue
			}
			s.log.Error("scheduled job failed", zap.String("job", j.name), zap.Error(err))
		}
	}
}

// ranSince reports whether the job started at or after start, failed or
// not. Failed runs are left for an operator to rerun by hand; decay is
// not safe to repeat blindly.
func (s *scheduler) ranSince(ctx context.Context, j scheduledJob, start time.Time) (bool, error) {
	runs, err := j.runs(ctx, 1)
	if err != nil {
		return false, err
	}
	return len(runs) > 0 && !runs[0].StartedAt.Before(start), nil
}
