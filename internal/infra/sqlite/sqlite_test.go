package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ganbari-quest/ganbari/internal/domain"
)

var testNow = time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedChild(t *testing.T, db *DB, age int) int64 {
	t.Helper()
	id, err := db.InsertChild(context.Background(), domain.Child{Nickname: "たろう", Age: age, CreatedAt: testNow})
	if err != nil {
		t.Fatalf("InsertChild() error: %v", err)
	}
	return id
}

func seedActivity(t *testing.T, db *DB, name string, cat domain.Category) int64 {
	t.Helper()
	id, err := db.InsertActivity(context.Background(), domain.Activity{
		Name: name, Category: cat, Icon: "⭐", BasePoints: 5, Visible: true, CreatedAt: testNow,
	})
	if err != nil {
		t.Fatalf("InsertActivity() error: %v", err)
	}
	return id
}

// ─── Database Lifecycle ─────────────────────────────────────────────────────

func TestOpen_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Join(dir, "ganbari.db")); os.IsNotExist(err) {
		t.Error("ganbari.db should exist")
	}
}

func TestOpen_Reopen(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	db.Close()

	db, err = Open(dir)
	if err != nil {
		t.Fatalf("second Open() error: %v", err)
	}
	db.Close()
}

func TestOpen_Ping(t *testing.T) {
	db := newTestDB(t)
	if err := db.Ping(); err != nil {
		t.Fatalf("Ping() error: %v", err)
	}
}

// ─── Transactions ───────────────────────────────────────────────────────────

func TestTx_RollbackOnError(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.Tx(ctx, func(tx *DB) error {
		if _, err := tx.InsertChild(ctx, domain.Child{Nickname: "a", Age: 5, CreatedAt: testNow}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Tx() error = %v, want boom", err)
	}

	children, err := db.ListChildren(ctx)
	if err != nil {
		t.Fatalf("ListChildren() error: %v", err)
	}
	if len(children) != 0 {
		t.Errorf("got %d children after rollback, want 0", len(children))
	}
}

func TestTx_NestedJoinsOuter(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	err := db.Tx(ctx, func(tx *DB) error {
		return tx.Tx(ctx, func(inner *DB) error {
			_, err := inner.InsertChild(ctx, domain.Child{Nickname: "a", Age: 5, CreatedAt: testNow})
			return err
		})
	})
	if err != nil {
		t.Fatalf("Tx() error: %v", err)
	}
	children, _ := db.ListChildren(ctx)
	if len(children) != 1 {
		t.Errorf("got %d children, want 1", len(children))
	}
}

// ─── Children & Activities ──────────────────────────────────────────────────

func TestChild_InsertGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	id := seedChild(t, db, 4)

	c, err := db.GetChild(ctx, id)
	if err != nil {
		t.Fatalf("GetChild() error: %v", err)
	}
	if c == nil {
		t.Fatal("GetChild() returned nil")
	}
	if c.Age != 4 || c.Theme != "pink" {
		t.Errorf("got age=%d theme=%q, want 4 pink", c.Age, c.Theme)
	}

	missing, err := db.GetChild(ctx, 999)
	if err != nil || missing != nil {
		t.Errorf("GetChild(999) = %v, %v; want nil, nil", missing, err)
	}
}

func TestListActivities_Filters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	seedActivity(t, db, "なわとび", domain.CategoryPhysical)
	seedActivity(t, db, "さんすう", domain.CategoryLearning)
	min7 := 7
	if _, err := db.InsertActivity(ctx, domain.Activity{
		Name: "マラソン", Category: domain.CategoryPhysical, Icon: "🏃", BasePoints: 8,
		AgeMin: &min7, Visible: true, CreatedAt: testNow,
	}); err != nil {
		t.Fatalf("InsertActivity() error: %v", err)
	}
	hidden := seedActivity(t, db, "おえかき", domain.CategoryCreative)
	if err := db.SetActivityVisibility(ctx, hidden, false); err != nil {
		t.Fatalf("SetActivityVisibility() error: %v", err)
	}

	all, _ := db.ListActivities(ctx, domain.ActivityFilter{})
	if len(all) != 3 {
		t.Errorf("visible activities: got %d, want 3", len(all))
	}

	withHidden, _ := db.ListActivities(ctx, domain.ActivityFilter{IncludeHidden: true})
	if len(withHidden) != 4 {
		t.Errorf("all activities: got %d, want 4", len(withHidden))
	}

	age := 5
	young, _ := db.ListActivities(ctx, domain.ActivityFilter{ChildAge: &age, Category: domain.CategoryPhysical})
	if len(young) != 1 || young[0].Name != "なわとび" {
		t.Errorf("age 5 physical: got %+v, want only なわとび", young)
	}
}

func TestUpdateActivity_NotFound(t *testing.T) {
	db := newTestDB(t)
	err := db.UpdateActivity(context.Background(), domain.Activity{ID: 42, Name: "x", Category: domain.CategorySocial})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("UpdateActivity() error = %v, want ErrNotFound", err)
	}
}

// ─── Activity Logs ──────────────────────────────────────────────────────────

func TestActivityLog_UniqueDaily(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	child := seedChild(t, db, 6)
	act := seedActivity(t, db, "なわとび", domain.CategoryPhysical)

	log := domain.ActivityLog{
		ChildID: child, ActivityID: act, Points: 5, StreakDays: 1,
		RecordedDate: "2025-03-12", RecordedAt: testNow,
	}
	id, err := db.InsertActivityLog(ctx, log)
	if err != nil {
		t.Fatalf("InsertActivityLog() error: %v", err)
	}

	_, err = db.InsertActivityLog(ctx, log)
	if !IsUniqueViolation(err) {
		t.Fatalf("second insert error = %v, want UNIQUE violation", err)
	}

	// Cancelled rows still hold the slot.
	ok, err := db.MarkActivityLogCancelled(ctx, id)
	if err != nil || !ok {
		t.Fatalf("MarkActivityLogCancelled() = %v, %v", ok, err)
	}
	if _, err := db.InsertActivityLog(ctx, log); !IsUniqueViolation(err) {
		t.Errorf("insert after cancel error = %v, want UNIQUE violation", err)
	}

	again, _ := db.MarkActivityLogCancelled(ctx, id)
	if again {
		t.Error("second cancel should touch no rows")
	}

	found, err := db.FindDailyLog(ctx, child, act, "2025-03-12")
	if err != nil || found != nil {
		t.Errorf("FindDailyLog() = %v, %v; want nil, nil for cancelled log", found, err)
	}
}

func TestStreakDates_SkipsCancelled(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	child := seedChild(t, db, 6)
	act := seedActivity(t, db, "なわとび", domain.CategoryPhysical)

	var cancelID int64
	for _, day := range []string{"2025-03-10", "2025-03-11", "2025-03-12"} {
		id, err := db.InsertActivityLog(ctx, domain.ActivityLog{
			ChildID: child, ActivityID: act, Points: 5, StreakDays: 1,
			RecordedDate: day, RecordedAt: testNow,
		})
		if err != nil {
			t.Fatalf("InsertActivityLog(%s) error: %v", day, err)
		}
		if day == "2025-03-11" {
			cancelID = id
		}
	}
	db.MarkActivityLogCancelled(ctx, cancelID)

	dates, err := db.StreakDates(ctx, child, act)
	if err != nil {
		t.Fatalf("StreakDates() error: %v", err)
	}
	if len(dates) != 2 || dates[0] != "2025-03-12" || dates[1] != "2025-03-10" {
		t.Errorf("got %v, want [2025-03-12 2025-03-10]", dates)
	}
}

func TestCountByCategory(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	child := seedChild(t, db, 6)
	run := seedActivity(t, db, "なわとび", domain.CategoryPhysical)
	swim := seedActivity(t, db, "すいえい", domain.CategoryPhysical)
	read := seedActivity(t, db, "どくしょ", domain.CategoryLearning)

	insert := func(act int64, day string, points, bonus int) {
		t.Helper()
		_, err := db.InsertActivityLog(ctx, domain.ActivityLog{
			ChildID: child, ActivityID: act, Points: points, StreakDays: 1, StreakBonus: bonus,
			RecordedDate: day, RecordedAt: testNow,
		})
		if err != nil {
			t.Fatalf("InsertActivityLog() error: %v", err)
		}
	}
	insert(run, "2025-03-10", 5, 1)
	insert(swim, "2025-03-11", 8, 0)
	insert(read, "2025-03-12", 5, 0)
	insert(read, "2025-03-20", 5, 0) // outside range

	tallies, err := db.CountByCategory(ctx, child, "2025-03-10", "2025-03-16")
	if err != nil {
		t.Fatalf("CountByCategory() error: %v", err)
	}
	got := map[domain.Category]domain.CategoryTally{}
	for _, tl := range tallies {
		got[tl.Category] = tl
	}
	if p := got[domain.CategoryPhysical]; p.Count != 2 || p.Points != 13 {
		t.Errorf("physical: got %+v, want count 2 points 13", p)
	}
	if l := got[domain.CategoryLearning]; l.Count != 1 || l.Points != 5 {
		t.Errorf("learning: got %+v, want count 1 points 5", l)
	}

	last, err := db.LastActivityByCategory(ctx, child)
	if err != nil {
		t.Fatalf("LastActivityByCategory() error: %v", err)
	}
	for _, la := range last {
		if la.Category == domain.CategoryLearning && la.Day != "2025-03-20" {
			t.Errorf("last learning day = %s, want 2025-03-20", la.Day)
		}
	}

	views, _ := db.ListActivityLogs(ctx, child, "2025-03-11", "")
	if len(views) != 3 {
		t.Errorf("ListActivityLogs(from 03-11): got %d, want 3", len(views))
	}
}

// ─── Ledger ─────────────────────────────────────────────────────────────────

func TestLedger_BalanceIsSum(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	child := seedChild(t, db, 6)

	bal, err := db.PointBalance(ctx, child)
	if err != nil || bal != 0 {
		t.Fatalf("empty PointBalance() = %d, %v; want 0", bal, err)
	}

	amounts := []int64{10, 5, -5, 30}
	for i, a := range amounts {
		_, err := db.InsertLedgerEntry(ctx, domain.LedgerEntry{
			ChildID: child, Amount: a, Type: domain.LedgerActivity,
			CreatedAt: testNow.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("InsertLedgerEntry() error: %v", err)
		}
	}

	bal, _ = db.PointBalance(ctx, child)
	if bal != 40 {
		t.Errorf("got balance %d, want 40", bal)
	}

	page, err := db.LedgerEntries(ctx, child, 2, 0)
	if err != nil {
		t.Fatalf("LedgerEntries() error: %v", err)
	}
	if len(page) != 2 || page[0].Amount != 30 {
		t.Errorf("first page = %+v, want newest entry 30 first", page)
	}
	rest, _ := db.LedgerEntries(ctx, child, 10, 2)
	if len(rest) != 2 {
		t.Errorf("second page: got %d entries, want 2", len(rest))
	}
}

// ─── Statuses & Benchmarks ──────────────────────────────────────────────────

func TestStatus_UpsertAndHistory(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	child := seedChild(t, db, 6)

	s, err := db.GetStatus(ctx, child, domain.CategoryPhysical)
	if err != nil || s != nil {
		t.Fatalf("GetStatus() on empty = %v, %v", s, err)
	}

	for i, v := range []float64{3, 5.5} {
		err := db.UpsertStatus(ctx, domain.Status{ChildID: child, Category: domain.CategoryPhysical, Value: v, UpdatedAt: testNow})
		if err != nil {
			t.Fatalf("UpsertStatus() error: %v", err)
		}
		_, err = db.InsertStatusHistory(ctx, domain.StatusChange{
			ChildID: child, Category: domain.CategoryPhysical, Value: v, ChangeAmount: v,
			ChangeType: domain.ReasonManual, RecordedAt: testNow.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("InsertStatusHistory() error: %v", err)
		}
	}

	s, _ = db.GetStatus(ctx, child, domain.CategoryPhysical)
	if s == nil || s.Value != 5.5 {
		t.Errorf("got status %+v, want 5.5", s)
	}

	hist, _ := db.RecentStatusHistory(ctx, child, domain.CategoryPhysical, 2)
	if len(hist) != 2 || hist[0].Value != 5.5 {
		t.Errorf("history = %+v, want newest 5.5 first", hist)
	}

	all, _ := db.ListStatuses(ctx, child)
	if len(all) != 1 {
		t.Errorf("ListStatuses(): got %d, want 1", len(all))
	}
}

func TestBenchmark_Upsert(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	b := domain.Benchmark{Age: 4, Category: domain.CategoryPhysical, Mean: 30, StdDev: 10}
	if err := db.UpsertBenchmark(ctx, b); err != nil {
		t.Fatalf("UpsertBenchmark() error: %v", err)
	}
	b.Mean = 32
	if err := db.UpsertBenchmark(ctx, b); err != nil {
		t.Fatalf("UpsertBenchmark() replace error: %v", err)
	}

	got, err := db.GetBenchmark(ctx, 4, domain.CategoryPhysical)
	if err != nil || got == nil {
		t.Fatalf("GetBenchmark() = %v, %v", got, err)
	}
	if got.Mean != 32 {
		t.Errorf("got mean %.1f, want 32", got.Mean)
	}
}

// ─── Evaluations & Login Bonuses ────────────────────────────────────────────

func TestEvaluation_OnePerWeek(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	child := seedChild(t, db, 6)

	e := domain.Evaluation{
		ChildID: child, WeekStart: "2025-03-03", WeekEnd: "2025-03-09",
		Scores: map[domain.Category]domain.CategoryScore{
			domain.CategoryPhysical: {Count: 3, Points: 15, StatusIncrease: 1.5},
		},
		BonusPoints: 5, CreatedAt: testNow,
	}
	if _, err := db.InsertEvaluation(ctx, e); err != nil {
		t.Fatalf("InsertEvaluation() error: %v", err)
	}
	if _, err := db.InsertEvaluation(ctx, e); !IsUniqueViolation(err) {
		t.Errorf("duplicate InsertEvaluation() error = %v, want UNIQUE violation", err)
	}

	exists, _ := db.EvaluationExists(ctx, child, "2025-03-03")
	if !exists {
		t.Error("EvaluationExists() = false, want true")
	}

	evals, err := db.ListEvaluations(ctx, child, 10)
	if err != nil {
		t.Fatalf("ListEvaluations() error: %v", err)
	}
	if len(evals) != 1 || evals[0].Scores[domain.CategoryPhysical].Points != 15 {
		t.Errorf("got %+v, want one evaluation with physical 15", evals)
	}
}

func TestLoginBonus_OnePerDay(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	child := seedChild(t, db, 6)

	b := domain.LoginBonus{
		ChildID: child, LoginDate: "2025-03-12", Rank: "吉", BasePoints: 3,
		Multiplier: 1, TotalPoints: 3, ConsecutiveDays: 1, CreatedAt: testNow,
	}
	if _, err := db.InsertLoginBonus(ctx, b); err != nil {
		t.Fatalf("InsertLoginBonus() error: %v", err)
	}
	if _, err := db.InsertLoginBonus(ctx, b); !IsUniqueViolation(err) {
		t.Errorf("duplicate InsertLoginBonus() error = %v, want UNIQUE violation", err)
	}

	got, _ := db.GetLoginBonus(ctx, child, "2025-03-12")
	if got == nil || got.Rank != "吉" {
		t.Errorf("GetLoginBonus() = %+v, want rank 吉", got)
	}
	none, _ := db.GetLoginBonus(ctx, child, "2025-03-13")
	if none != nil {
		t.Errorf("GetLoginBonus(next day) = %+v, want nil", none)
	}

	b.LoginDate = "2025-03-13"
	db.InsertLoginBonus(ctx, b)
	recent, _ := db.RecentLoginBonuses(ctx, child, 60)
	if len(recent) != 2 || recent[0].LoginDate != "2025-03-13" {
		t.Errorf("RecentLoginBonuses() = %+v, want newest first", recent)
	}
}

func TestJobRuns(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	run := domain.JobRun{Job: "daily_decay", RunID: "r-1", StartedAt: testNow}
	if _, err := db.StartJobRun(ctx, run); err != nil {
		t.Fatalf("StartJobRun() error: %v", err)
	}
	run.FinishedAt = testNow.Add(time.Second)
	run.Children = 3
	if err := db.FinishJobRun(ctx, "r-1", run); err != nil {
		t.Fatalf("FinishJobRun() error: %v", err)
	}

	runs, err := db.RecentJobRuns(ctx, "daily_decay", 5)
	if err != nil {
		t.Fatalf("RecentJobRuns() error: %v", err)
	}
	if len(runs) != 1 || runs[0].Children != 3 || runs[0].FinishedAt.IsZero() {
		t.Errorf("got %+v, want one finished run with 3 children", runs)
	}
}
