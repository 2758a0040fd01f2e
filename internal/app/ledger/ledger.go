// Package ledger implements the append-only point ledger.
// Balance is always SUM(amount); corrections are new compensating entries.
package ledger

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ganbari-quest/ganbari/internal/domain"
	"github.com/ganbari-quest/ganbari/internal/infra/metrics"
	"github.com/ganbari-quest/ganbari/internal/infra/sqlite"
)

// History page bounds.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 100
)

// ConvertResult is returned by Convert.
type ConvertResult struct {
	Message          string `json:"message"`
	ConvertedAmount  int64  `json:"converted_amount"`
	RemainingBalance int64  `json:"remaining_balance"`
}

// Service manages the point economy.
type Service struct {
	db    *sqlite.DB
	clock domain.Clock
	log   *zap.Logger
}

// NewService creates a ledger service.
func NewService(db *sqlite.DB, clock domain.Clock, log *zap.Logger) *Service {
	if clock == nil {
		clock = domain.SystemClock
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, clock: clock, log: log.Named("ledger")}
}

// Balance returns the balance view for a child.
func (s *Service) Balance(ctx context.Context, childID int64) (domain.PointBalance, error) {
	if err := requireChild(ctx, s.db, childID); err != nil {
		return domain.PointBalance{}, err
	}
	bal, err := s.db.PointBalance(ctx, childID)
	if err != nil {
		return domain.PointBalance{}, fmt.Errorf("point balance: %w", err)
	}
	return domain.NewPointBalance(childID, bal), nil
}

// History returns a page of ledger entries, newest first.
// limit is clamped to 1..100 (0 means the default); negative offsets are 0.
func (s *Service) History(ctx context.Context, childID int64, limit, offset int) ([]domain.LedgerEntry, error) {
	if err := requireChild(ctx, s.db, childID); err != nil {
		return nil, err
	}
	switch {
	case limit == 0:
		limit = DefaultHistoryLimit
	case limit < 1:
		limit = 1
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	entries, err := s.db.LedgerEntries(ctx, childID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ledger entries: %w", err)
	}
	return entries, nil
}

// Post appends an entry using tx, which may be the service's own DB or a
// transaction opened by the caller. CreatedAt defaults to now.
// Callers report the entry with Observe once their transaction commits.
func (s *Service) Post(ctx context.Context, tx *sqlite.DB, e domain.LedgerEntry) (int64, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock()
	}
	id, err := tx.InsertLedgerEntry(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("insert %s ledger entry: %w", e.Type, err)
	}
	return id, nil
}

// Convert spends amount points for a real-world reward.
// amount must be a positive multiple of the convert unit.
func (s *Service) Convert(ctx context.Context, childID, amount int64) (ConvertResult, error) {
	if amount <= 0 || amount%domain.PointsPerConvertUnit != 0 {
		return ConvertResult{}, fmt.Errorf("%w: got %d", domain.ErrInvalidAmount, amount)
	}

	var res ConvertResult
	entry := domain.LedgerEntry{
		ChildID:     childID,
		Amount:      -amount,
		Type:        domain.LedgerConvert,
		Description: fmt.Sprintf("%dポイントをおこづかいにかえました", amount),
	}
	err := s.db.Tx(ctx, func(tx *sqlite.DB) error {
		if err := requireChild(ctx, tx, childID); err != nil {
			return err
		}
		bal, err := tx.PointBalance(ctx, childID)
		if err != nil {
			return fmt.Errorf("point balance: %w", err)
		}
		if amount > bal {
			return fmt.Errorf("%w: have %d, need %d", domain.ErrInsufficientPoints, bal, amount)
		}
		if _, err := s.Post(ctx, tx, entry); err != nil {
			return err
		}
		res = ConvertResult{
			Message:          entry.Description,
			ConvertedAmount:  amount,
			RemainingBalance: bal - amount,
		}
		return nil
	})
	if err != nil {
		return ConvertResult{}, err
	}

	Observe(entry)
	s.log.Info("points converted",
		zap.Int64("child_id", childID),
		zap.Int64("amount", amount),
		zap.Int64("remaining", res.RemainingBalance))
	return res, nil
}

// Observe reports committed entries to metrics.
func Observe(entries ...domain.LedgerEntry) {
	for _, e := range entries {
		switch {
		case e.Amount > 0:
			metrics.PointsCredited.WithLabelValues(string(e.Type)).Add(float64(e.Amount))
		case e.Amount < 0:
			metrics.PointsDebited.WithLabelValues(string(e.Type)).Add(float64(-e.Amount))
		}
	}
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
