// Package loginbonus runs the once-a-day omikuji draw with a
// consecutive-login multiplier.
package loginbonus

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ganbari-quest/ganbari/internal/app/ledger"
	"github.com/ganbari-quest/ganbari/internal/app/scoring"
	"github.com/ganbari-quest/ganbari/internal/domain"
	"github.com/ganbari-quest/ganbari/internal/infra/metrics"
	"github.com/ganbari-quest/ganbari/internal/infra/sqlite"
)

// historyWindow bounds the login days scanned for the streak.
const historyWindow = 60

// Status is the claim state for today.
type Status struct {
	ChildID              int64      `json:"child_id"`
	ClaimedToday         bool       `json:"claimed_today"`
	ConsecutiveLoginDays int        `json:"consecutive_login_days"`
	LastClaimedAt        *time.Time `json:"last_claimed_at"`
}

// ClaimResult is returned by Claim.
type ClaimResult struct {
	ChildID              int64   `json:"child_id"`
	Rank                 string  `json:"rank"`
	BasePoints           int     `json:"base_points"`
	ConsecutiveLoginDays int     `json:"consecutive_login_days"`
	Multiplier           float64 `json:"multiplier"`
	TotalPoints          int     `json:"total_points"`
	Message              string  `json:"message"`
}

// Engine draws and records login bonuses.
type Engine struct {
	db     *sqlite.DB
	ledger *ledger.Service
	rules  *scoring.Rules
	clock  domain.Clock
	log    *zap.Logger

	mu  sync.Mutex // guards rng
	rng scoring.Rand
}

// NewEngine creates a login bonus engine. A nil rng uses an unseeded PCG.
func NewEngine(db *sqlite.DB, l *ledger.Service, rules *scoring.Rules, rng scoring.Rand, clock domain.Clock, log *zap.Logger) *Engine {
	if rules == nil {
		rules = scoring.DefaultRules()
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if clock == nil {
		clock = domain.SystemClock
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{db: db, ledger: l, rules: rules, rng: rng, clock: clock, log: log.Named("loginbonus")}
}

// Status reports whether today's bonus was claimed and the current streak.
func (e *Engine) Status(ctx context.Context, childID int64) (Status, error) {
	if err := requireChild(ctx, e.db, childID); err != nil {
		return Status{}, err
	}
	today := domain.DayOf(e.clock())

	claimed, err := e.db.GetLoginBonus(ctx, childID, today)
	if err != nil {
		return Status{}, fmt.Errorf("get login bonus: %w", err)
	}
	recent, err := e.db.RecentLoginBonuses(ctx, childID, historyWindow)
	if err != nil {
		return Status{}, fmt.Errorf("recent login bonuses: %w", err)
	}

	st := Status{ChildID: childID, ClaimedToday: claimed != nil}
	if claimed != nil {
		st.ConsecutiveLoginDays = claimed.ConsecutiveDays
	} else {
		st.ConsecutiveLoginDays = consecutiveDays(recent, today)
	}
	if len(recent) > 0 {
		at := recent[0].CreatedAt
		st.LastClaimedAt = &at
	}
	return st, nil
}

// Claim draws today's omikuji, applies the streak multiplier and credits
// the ledger. A second claim on the same day fails with ErrAlreadyClaimed.
func (e *Engine) Claim(ctx context.Context, childID int64) (ClaimResult, error) {
	now := e.clock()
	today := domain.DayOf(now)

	var res ClaimResult
	err := e.db.Tx(ctx, func(tx *sqlite.DB) error {
		if err := requireChild(ctx, tx, childID); err != nil {
			return err
		}
		existing, err := tx.GetLoginBonus(ctx, childID, today)
		if err != nil {
			return fmt.Errorf("get login bonus: %w", err)
		}
		if existing != nil {
			return domain.ErrAlreadyClaimed
		}

		recent, err := tx.RecentLoginBonuses(ctx, childID, historyWindow)
		if err != nil {
			return fmt.Errorf("recent login bonuses: %w", err)
		}
		days := consecutiveDays(recent, today)
		draw := e.draw()
		mult := e.rules.LoginMultiplier(days)
		total := scoring.LoginBonusPoints(draw.BasePoints, mult)

		bonus := domain.LoginBonus{
			ChildID:         childID,
			LoginDate:       today,
			Rank:            draw.Rank,
			BasePoints:      draw.BasePoints,
			Multiplier:      mult,
			TotalPoints:     total,
			ConsecutiveDays: days,
			CreatedAt:       now,
		}
		id, err := tx.InsertLoginBonus(ctx, bonus)
		if err != nil {
			if sqlite.IsUniqueViolation(err) {
				return domain.ErrAlreadyClaimed
			}
			return fmt.Errorf("insert login bonus: %w", err)
		}

		_, err = e.ledger.Post(ctx, tx, domain.LedgerEntry{
			ChildID:     childID,
			Amount:      int64(total),
			Type:        domain.LedgerLoginBonus,
			Description: fmt.Sprintf("%s！%dポイントゲット！", draw.Rank, total),
			ReferenceID: id,
			CreatedAt:   now,
		})
		if err != nil {
			return err
		}

		res = ClaimResult{
			ChildID:              childID,
			Rank:                 draw.Rank,
			BasePoints:           draw.BasePoints,
			ConsecutiveLoginDays: days,
			Multiplier:           mult,
			TotalPoints:          total,
			Message:              claimMessage(draw.Rank, days, mult, total),
		}
		return nil
	})
	if err != nil {
		return ClaimResult{}, err
	}

	metrics.LoginBonusClaims.WithLabelValues(res.Rank).Inc()
	ledger.Observe(domain.LedgerEntry{Amount: int64(res.TotalPoints), Type: domain.LedgerLoginBonus})
	e.log.Info("login bonus claimed",
		zap.Int64("child_id", childID),
		zap.String("rank", res.Rank),
		zap.Int("consecutive_days", res.ConsecutiveLoginDays),
		zap.Int("total_points", res.TotalPoints))
	return res, nil
}

func (e *Engine) draw() scoring.OmikujiRank {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rules.DrawOmikuji(e.rng)
}

func consecutiveDays(recent []domain.LoginBonus, today string) int {
	dates := make([]string, 0, len(recent))
	for _, b := range recent {
		dates = append(dates, b.LoginDate)
	}
	return scoring.StreakDays(dates, today)
}

func claimMessage(rank string, days int, mult float64, total int) string {
	if mult > 1 {
		return fmt.Sprintf("%s！%dにちれんぞくで%sばい！%dポイントゲット！",
			rank, days, strconv.FormatFloat(mult, 'f', -1, 64), total)
	}
	return fmt.Sprintf("%s！%dポイントゲット！", rank, total)
}

func requireChild(ctx context.Context, db *sqlite.DB, childID int64) error {
	c, err := db.GetChild(ctx, childID)
	if err != nil {
		return fmt.Errorf("get child: %w", err)
	}
	if c == nil {
		return fmt.Errorf("%w: %d", domain.ErrChildNotFound, childID)
	}
	return nil
}
