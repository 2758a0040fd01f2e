// Package evaluation runs the scheduled batch jobs: the weekly evaluation
// and the daily status decay.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ganbari-quest/ganbari/internal/domain"
	"github.com/ganbari-quest/ganbari/internal/infra/jobguard"
	"github.com/ganbari-quest/ganbari/internal/infra/metrics"
	"github.com/ganbari-quest/ganbari/internal/infra/sqlite"
)

// Job names, used for guard keys, job_runs rows and metric labels.
const (
	JobWeeklyEvaluation = "weekly_evaluation"
	JobDailyDecay       = "daily_decay"
)

// defaultWorkers bounds per-child fan-out. Writes still serialize on the
// single SQLite connection; reads overlap.
const defaultWorkers = 4

// runner wraps a batch body with the job guard, a job_runs audit row and
// metrics. body returns the number of children processed.
type runner struct {
	db    *sqlite.DB
	guard jobguard.Guard
	clock domain.Clock
	log   *zap.Logger
}

func (r *runner) run(ctx context.Context, job string, body func(ctx context.Context) (int, error)) (string, error) {
	release, err := r.guard.Acquire(ctx, job)
	if err != nil {
		if errors.Is(err, jobguard.ErrHeld) {
			metrics.JobRuns.WithLabelValues(job, "skipped").Inc()
			return "", fmt.Errorf("%w: %s", domain.ErrJobRunning, job)
		}
		return "", fmt.Errorf("acquire %s lock: %w", job, err)
	}
	defer release()

	runID := uuid.NewString()
	started := r.clock()
	if _, err := r.db.StartJobRun(ctx, domain.JobRun{Job: job, RunID: runID, StartedAt: started}); err != nil {
		return "", fmt.Errorf("start job run: %w", err)
	}
	log := r.log.With(zap.String("job", job), zap.String("run_id", runID))
	log.Info("job started")

	wall := time.Now()
	n, bodyErr := body(ctx)
	metrics.JobDuration.WithLabelValues(job).Observe(time.Since(wall).Seconds())

	fin := domain.JobRun{FinishedAt: r.clock(), Children: n}
	outcome := "ok"
	if bodyErr != nil {
		fin.Error = bodyErr.Error()
		outcome = "failed"
	}
	metrics.JobRuns.WithLabelValues(job, outcome).Inc()

	// Record the outcome even if the caller's context is gone.
	if err := r.db.FinishJobRun(context.WithoutCancel(ctx), runID, fin); err != nil {
		log.Warn("finish job run", zap.Error(err))
	}
	if bodyErr != nil {
		log.Error("job failed", zap.Int("children", n), zap.Error(bodyErr))
		return runID, bodyErr
	}
	log.Info("job finished", zap.Int("children", n))
	return runID, nil
}

// Job run history bounds.
const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100
)

func (r *runner) recentRuns(ctx context.Context, job string, limit int) ([]domain.JobRun, error) {
	if limit <= 0 {
		limit = defaultRunsLimit
	}
	limit = min(limit, maxRunsLimit)
	runs, err := r.db.RecentJobRuns(ctx, job, limit)
	if err != nil {
		return nil, fmt.Errorf("recent %s runs: %w", job, err)
	}
	return runs, nil
}

// Runs lists recent weekly evaluation runs, newest first.
func (e *Evaluator) Runs(ctx context.Context, limit int) ([]domain.JobRun, error) {
	return e.recentRuns(ctx, JobWeeklyEvaluation, limit)
}

// Runs lists recent decay runs, newest first.
func (d *DecayRunner) Runs(ctx context.Context, limit int) ([]domain.JobRun, error) {
	return d.recentRuns(ctx, JobDailyDecay, limit)
}
