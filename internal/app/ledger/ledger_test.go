package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ganbari-quest/ganbari/internal/domain"
	"github.com/ganbari-quest/ganbari/internal/infra/sqlite"
)

var now = time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return now }

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := sqlite.Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func setup(t *testing.T) (*Service, *sqlite.DB, int64) {
	t.Helper()
	db := newTestDB(t)
	id, err := db.InsertChild(context.Background(), domain.Child{Nickname: "はなこ", Age: 8, CreatedAt: now})
	if err != nil {
		t.Fatalf("InsertChild() error: %v", err)
	}
	return NewService(db, fixedClock, nil), db, id
}

func credit(t *testing.T, svc *Service, db *sqlite.DB, childID, amount int64) {
	t.Helper()
	_, err := svc.Post(context.Background(), db, domain.LedgerEntry{
		ChildID: childID, Amount: amount, Type: domain.LedgerActivity, Description: "test",
	})
	if err != nil {
		t.Fatalf("Post() error: %v", err)
	}
}

// ─── Balance ────────────────────────────────────────────────────────────────

func TestService_InitialBalance(t *testing.T) {
	svc, _, child := setup(t)

	bal, err := svc.Balance(context.Background(), child)
	if err != nil {
		t.Fatalf("Balance() error: %v", err)
	}
	if bal.Balance != 0 || bal.ConvertableAmount != 0 || bal.NextConvertAt != 500 {
		t.Errorf("initial balance = %+v, want 0/0/500", bal)
	}
}

func TestService_BalanceUnknownChild(t *testing.T) {
	svc, _, _ := setup(t)
	_, err := svc.Balance(context.Background(), 999)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Balance(999) error = %v, want ErrNotFound", err)
	}
}

func TestService_BalanceConvertFields(t *testing.T) {
	svc, db, child := setup(t)
	credit(t, svc, db, child, 1234)

	bal, _ := svc.Balance(context.Background(), child)
	if bal.Balance != 1234 {
		t.Errorf("balance = %d, want 1234", bal.Balance)
	}
	if bal.ConvertableAmount != 1000 {
		t.Errorf("convertable = %d, want 1000", bal.ConvertableAmount)
	}
	if bal.NextConvertAt != 1234 {
		t.Errorf("next convert at = %d, want 1234", bal.NextConvertAt)
	}
}

// ─── Convert ────────────────────────────────────────────────────────────────

func TestService_Convert(t *testing.T) {
	svc, db, child := setup(t)
	ctx := context.Background()
	credit(t, svc, db, child, 700)

	res, err := svc.Convert(ctx, child, 500)
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	if res.RemainingBalance != 200 || res.ConvertedAmount != 500 {
		t.Errorf("got %+v, want converted 500 remaining 200", res)
	}
	if res.Message != "500ポイントをおこづかいにかえました" {
		t.Errorf("message = %q", res.Message)
	}

	bal, _ := svc.Balance(ctx, child)
	if bal.Balance != 200 {
		t.Errorf("balance after convert = %d, want 200", bal.Balance)
	}
}

func TestService_ConvertInsufficient(t *testing.T) {
	svc, db, child := setup(t)
	credit(t, svc, db, child, 499)

	_, err := svc.Convert(context.Background(), child, 500)
	if !errors.Is(err, domain.ErrInsufficientPoints) {
		t.Fatalf("Convert() error = %v, want ErrInsufficientPoints", err)
	}
	bal, _ := svc.Balance(context.Background(), child)
	if bal.Balance != 499 {
		t.Errorf("balance changed on failed convert: %d", bal.Balance)
	}
}

func TestService_ConvertExactBalance(t *testing.T) {
	svc, db, child := setup(t)
	credit(t, svc, db, child, 1000)

	res, err := svc.Convert(context.Background(), child, 1000)
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	if res.RemainingBalance != 0 {
		t.Errorf("remaining = %d, want 0", res.RemainingBalance)
	}
}

func TestService_ConvertInvalidAmount(t *testing.T) {
	svc, db, child := setup(t)
	credit(t, svc, db, child, 5000)

	for _, amt := range []int64{0, -500, 250, 501} {
		if _, err := svc.Convert(context.Background(), child, amt); !errors.Is(err, domain.ErrInvalidAmount) {
			t.Errorf("Convert(%d) error = %v, want ErrInvalidAmount", amt, err)
		}
	}
}

// ─── History ────────────────────────────────────────────────────────────────

func TestService_HistoryLimits(t *testing.T) {
	svc, db, child := setup(t)
	ctx := context.Background()
	for i := range 120 {
		_, err := svc.Post(ctx, db, domain.LedgerEntry{
			ChildID: child, Amount: 1, Type: domain.LedgerActivity,
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("Post() error: %v", err)
		}
	}

	def, _ := svc.History(ctx, child, 0, 0)
	if len(def) != DefaultHistoryLimit {
		t.Errorf("default page = %d, want %d", len(def), DefaultHistoryLimit)
	}
	capped, _ := svc.History(ctx, child, 500, 0)
	if len(capped) != MaxHistoryLimit {
		t.Errorf("capped page = %d, want %d", len(capped), MaxHistoryLimit)
	}
	tail, _ := svc.History(ctx, child, 50, 100)
	if len(tail) != 20 {
		t.Errorf("tail page = %d, want 20", len(tail))
	}
}

func TestService_BalanceIsSumOfEntries(t *testing.T) {
	svc, db, child := setup(t)
	ctx := context.Background()

	var sum int64
	for _, a := range []int64{5, 12, -5, 30, 3} {
		credit(t, svc, db, child, a)
		sum += a
	}
	entries, _ := svc.History(ctx, child, 100, 0)
	var fold int64
	for _, e := range entries {
		fold += e.Amount
	}
	bal, _ := svc.Balance(ctx, child)
	if bal.Balance != sum || fold != sum {
		t.Errorf("balance %d, fold %d, want %d", bal.Balance, fold, sum)
	}
}
