package daemon

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ganbari-quest/ganbari/internal/domain"
)

// fakeJob records runs in memory the way job_runs would.
type fakeJob struct {
	history []domain.JobRun
	calls   int
	starts  []time.Time
	err     error
	clock   func() time.Time
}

func (f *fakeJob) run(ctx context.Context, start time.Time) error {
	f.calls++
	f.starts = append(f.starts, start)
	f.history = append([]domain.JobRun{{StartedAt: f.clock()}}, f.history...)
	return f.err
}

func (f *fakeJob) runs(ctx context.Context, limit int) ([]domain.JobRun, error) {
	return f.history[:min(limit, len(f.history))], nil
}

func newTestScheduler(at *time.Time, jobs ...scheduledJob) *scheduler {
	return &scheduler{
		jobs:     jobs,
		clock:    func() time.Time { return *at },
		interval: time.Minute,
		log:      zap.NewNop(),
	}
}

func TestScheduler_DailyOncePerDay(t *testing.T) {
	now := time.Date(2025, 3, 19, 0, 30, 0, 0, time.UTC)
	fj := &fakeJob{clock: func() time.Time { return now }}
	s := newTestScheduler(&now, scheduledJob{name: "decay", period: dailyAt(2), run: fj.run, runs: fj.runs})
	ctx := context.Background()

	s.tick(ctx)
	if fj.calls != 0 {
		t.Fatalf("ran before the hour: calls = %d", fj.calls)
	}

	now = now.Add(2 * time.Hour)
	s.tick(ctx)
	s.tick(ctx)
	if fj.calls != 1 {
		t.Errorf("calls = %d, want 1", fj.calls)
	}

	now = now.Add(24 * time.Hour)
	s.tick(ctx)
	if fj.calls != 2 {
		t.Errorf("next day calls = %d, want 2", fj.calls)
	}
}

func TestScheduler_WeeklyOncePerWeek(t *testing.T) {
	now := time.Date(2025, 3, 16, 5, 0, 0, 0, time.UTC) // Sunday
	fj := &fakeJob{
		clock:   func() time.Time { return now },
		history: []domain.JobRun{{StartedAt: time.Date(2025, 3, 10, 1, 0, 0, 0, time.UTC)}},
	}
	s := newTestScheduler(&now, scheduledJob{name: "weekly", period: weeklyAt(time.Monday, 1), run: fj.run, runs: fj.runs})
	ctx := context.Background()

	s.tick(ctx)
	if fj.calls != 0 {
		t.Fatalf("ran on Sunday after last Monday's run: calls = %d", fj.calls)
	}
	now = time.Date(2025, 3, 17, 0, 30, 0, 0, time.UTC) // Monday before the hour
	s.tick(ctx)
	if fj.calls != 0 {
		t.Fatalf("ran before the hour: calls = %d", fj.calls)
	}
	now = now.Add(5 * time.Hour)
	s.tick(ctx)
	s.tick(ctx)
	now = now.Add(24 * time.Hour) // Tuesday
	s.tick(ctx)

	if fj.calls != 1 {
		t.Errorf("calls = %d, want 1", fj.calls)
	}
	if want := time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC); len(fj.starts) > 0 && !fj.starts[0].Equal(want) {
		t.Errorf("period start = %s, want %s", fj.starts[0], want)
	}
}

func TestScheduler_WeeklyCatchesUpMissedMonday(t *testing.T) {
	// Down for all of Monday; last run was the week before.
	now := time.Date(2025, 3, 20, 9, 0, 0, 0, time.UTC) // Thursday
	fj := &fakeJob{
		clock:   func() time.Time { return now },
		history: []domain.JobRun{{StartedAt: time.Date(2025, 3, 10, 1, 0, 0, 0, time.UTC)}},
	}
	s := newTestScheduler(&now, scheduledJob{name: "weekly", period: weeklyAt(time.Monday, 1), run: fj.run, runs: fj.runs})
	ctx := context.Background()

	s.tick(ctx)
	now = time.Date(2025, 3, 23, 9, 0, 0, 0, time.UTC) // Sunday
	s.tick(ctx)

	if fj.calls != 1 {
		t.Fatalf("calls = %d, want 1", fj.calls)
	}
	if want := time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC); !fj.starts[0].Equal(want) {
		t.Errorf("period start = %s, want Monday %s", fj.starts[0], want)
	}
}

func TestWeeklyAt_Period(t *testing.T) {
	period := weeklyAt(time.Monday, 3)
	cases := []struct {
		now  time.Time
		want time.Time
	}{
		{time.Date(2025, 3, 17, 3, 0, 0, 0, time.UTC), time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)},
		{time.Date(2025, 3, 17, 2, 59, 0, 0, time.UTC), time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)},
		{time.Date(2025, 3, 23, 23, 0, 0, 0, time.UTC), time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		got, due := period(c.now)
		if !due || !got.Equal(c.want) {
			t.Errorf("weeklyAt(%s) = %s %v, want %s true", c.now, got, due, c.want)
		}
	}
}

func TestScheduler_FailedRunNotRepeated(t *testing.T) {
	now := time.Date(2025, 3, 19, 3, 0, 0, 0, time.UTC)
	fj := &fakeJob{clock: func() time.Time { return now }, err: errors.New("disk full")}
	s := newTestScheduler(&now, scheduledJob{name: "decay", period: dailyAt(0), run: fj.run, runs: fj.runs})

	s.tick(context.Background())
	s.tick(context.Background())
	if fj.calls != 1 {
		t.Errorf("calls = %d, want 1", fj.calls)
	}
}

func TestScheduler_RespectsPriorRunFromHistory(t *testing.T) {
	now := time.Date(2025, 3, 19, 3, 0, 0, 0, time.UTC)
	fj := &fakeJob{
		clock:   func() time.Time { return now },
		history: []domain.JobRun{{StartedAt: now.Add(-time.Hour)}},
	}
	s := newTestScheduler(&now, scheduledJob{name: "decay", period: dailyAt(0), run: fj.run, runs: fj.runs})

	s.tick(context.Background())
	if fj.calls != 0 {
		t.Errorf("calls = %d, want 0 after a run earlier today", fj.calls)
	}
}
