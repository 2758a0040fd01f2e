package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ganbari-quest/ganbari/internal/api"
	"github.com/ganbari-quest/ganbari/internal/app/activity"
	"github.com/ganbari-quest/ganbari/internal/app/evaluation"
	"github.com/ganbari-quest/ganbari/internal/app/ledger"
	"github.com/ganbari-quest/ganbari/internal/app/loginbonus"
	"github.com/ganbari-quest/ganbari/internal/app/scoring"
	"github.com/ganbari-quest/ganbari/internal/app/status"
	"github.com/ganbari-quest/ganbari/internal/domain"
	"github.com/ganbari-quest/ganbari/internal/health"
	"github.com/ganbari-quest/ganbari/internal/infra/jobguard"
	"github.com/ganbari-quest/ganbari/internal/infra/logging"
	"github.com/ganbari-quest/ganbari/internal/infra/sqlite"
)

// Daemon wires the store, services and HTTP server together.
type Daemon struct {
	Config Config
	Log    *zap.Logger
	DB     *sqlite.DB
	Guard  jobguard.Guard
	Rules  *scoring.Rules

	Catalog    *activity.Catalog
	Recorder   *activity.Recorder
	Status     *status.Manager
	Ledger     *ledger.Service
	LoginBonus *loginbonus.Engine
	Evaluator  *evaluation.Evaluator
	Decay      *evaluation.DecayRunner
	Health     *health.Checker
	Server     *api.Server

	redis  *redis.Client
	cancel context.CancelFunc
}

// New loads the configuration and builds a Daemon.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig builds a Daemon from cfg.
func NewWithConfig(cfg Config) (*Daemon, error) {
	log, err := logging.New(logging.Options{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxFiles:  cfg.Logging.MaxFiles,
	})
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	return build(cfg, log, domain.SystemClock)
}

// Open builds a Daemon with a caller-supplied logger. The CLI uses it for
// one-shot commands that should not log at info level.
func Open(cfg Config, log *zap.Logger) (*Daemon, error) {
	return build(cfg, log, domain.SystemClock)
}

func build(cfg Config, log *zap.Logger, clock domain.Clock) (*Daemon, error) {
	db, err := sqlite.Open(cfg.Database.Dir)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	d := &Daemon{Config: cfg, Log: log, DB: db, Rules: scoring.DefaultRules()}

	if cfg.Redis.Addr != "" {
		d.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		d.Guard = jobguard.NewFallback(jobguard.NewRedis(d.redis, 0), jobguard.NewLocal(), jobguard.DefaultBreakerConfig())
		log.Info("job guard: redis", zap.String("addr", cfg.Redis.Addr))
	} else {
		d.Guard = jobguard.NewLocal()
	}

	d.Ledger = ledger.NewService(db, clock, log)
	d.Catalog = activity.NewCatalog(db, clock, log)
	d.Recorder = activity.NewRecorder(db, d.Ledger, clock, log)
	d.Status = status.NewManager(db, d.Rules, clock, log)
	d.LoginBonus = loginbonus.NewEngine(db, d.Ledger, d.Rules, nil, clock, log)
	d.Evaluator = evaluation.NewEvaluator(db, d.Status, d.Ledger, d.Guard, clock, log)
	d.Decay = evaluation.NewDecayRunner(db, d.Status, d.Rules, d.Guard, clock, log)
	d.Health = health.NewChecker(db, cfg.Database.Dir, d.Guard, log)

	d.Server = api.NewServer(api.Services{
		Catalog:    d.Catalog,
		Recorder:   d.Recorder,
		Status:     d.Status,
		Ledger:     d.Ledger,
		LoginBonus: d.LoginBonus,
		Evaluator:  d.Evaluator,
		Decay:      d.Decay,
		Health:     d.Health,
	}, log)
	d.Server.SetRateLimit(cfg.API.RatePerSecond, cfg.API.Burst)
	if cfg.Telemetry.Prometheus {
		d.Server.EnableMetrics()
	}
	return d, nil
}

func (d *Daemon) scheduler() *scheduler {
	return &scheduler{
		clock:    domain.SystemClock,
		interval: schedulerInterval,
		log:      d.Log.Named("scheduler"),
		jobs: []scheduledJob{
			{
				name:   evaluation.JobDailyDecay,
				period: dailyAt(d.Config.Jobs.DecayHour),
				run: func(ctx context.Context, _ time.Time) error {
					_, err := d.Decay.RunToday(ctx)
					return err
				},
				runs: d.Decay.Runs,
			},
			{
				name:   evaluation.JobWeeklyEvaluation,
				period: weeklyAt(time.Monday, d.Config.Jobs.WeeklyHour),
				// The week is pinned to the period's Monday, so a late
				// catch-up still evaluates the week that just closed.
				run: func(ctx context.Context, monday time.Time) error {
					_, err := d.Evaluator.RunForWeekOf(ctx, monday)
					return err
				},
				runs: d.Evaluator.Runs,
			},
		},
	}
}

// Serve starts the HTTP server and background loops and blocks until
// SIGINT/SIGTERM or ctx is done.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	go d.Health.Run(ctx)
	if d.Config.Jobs.Enabled {
		go d.scheduler().loop(ctx)
	}

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           d.Server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	d.Log.Info("serving",
		zap.String("addr", addr),
		zap.Bool("metrics", d.Config.Telemetry.Prometheus),
		zap.Bool("jobs", d.Config.Jobs.Enabled))

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	d.Log.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close releases every resource.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.redis != nil {
		_ = d.redis.Close()
	}
	if d.DB != nil {
		_ = d.DB.Close()
	}
	if d.Log != nil {
		_ = d.Log.Sync()
	}
}
