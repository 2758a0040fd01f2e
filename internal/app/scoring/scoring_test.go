package scoring_test

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/ganbari-quest/ganbari/internal/app/scoring"
	"github.com/ganbari-quest/ganbari/internal/domain"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// ═══════════════════════════════════════════════════════════════════════════
// Streaks
// ═══════════════════════════════════════════════════════════════════════════

func TestStreakBonus(t *testing.T) {
	cases := map[int]int{0: 0, 1: 0, 2: 1, 5: 4, 11: 10, 20: 10, 100: 10}
	for days, want := range cases {
		if got := scoring.StreakBonus(days); got != want {
			t.Errorf("StreakBonus(%d) = %d, want %d", days, got, want)
		}
	}
}

func TestStreakDays_NoHistory(t *testing.T) {
	if got := scoring.StreakDays(nil, "2025-03-20"); got != 1 {
		t.Errorf("got %d, want 1", got)
	}
}

func TestStreakDays_Consecutive(t *testing.T) {
	prior := []string{"2025-03-18", "2025-03-19", "2025-03-20"}
	if got := scoring.StreakDays(prior, "2025-03-20"); got != 3 {
		t.Errorf("got %d, want 3", got)
	}
}

func TestStreakDays_GapResets(t *testing.T) {
	if got := scoring.StreakDays([]string{"2025-03-18"}, "2025-03-21"); got != 1 {
		t.Errorf("got %d, want 1", got)
	}
}

func TestStreakDays_AcrossMonthBoundary(t *testing.T) {
	prior := []string{"2025-02-27", "2025-02-28", "2025-02-25"}
	if got := scoring.StreakDays(prior, "2025-03-01"); got != 3 {
		t.Errorf("got %d, want 3", got)
	}
}

func TestStatusIncrease(t *testing.T) {
	cases := map[int]float64{0: 0, 1: 0.5, 2: 0.5, 3: 1, 4: 1, 5: 2, 6: 2, 7: 3, 14: 3}
	for count, want := range cases {
		if got := scoring.StatusIncrease(count); got != want {
			t.Errorf("StatusIncrease(%d) = %.1f, want %.1f", count, got, want)
		}
	}
}

func TestEvaluationBonus(t *testing.T) {
	scores := map[domain.Category]domain.CategoryScore{}
	for i, c := range domain.Categories() {
		scores[c] = domain.CategoryScore{Count: 1}
		want := []int{0, 0, 5, 10, 20}[i]
		if got := scoring.EvaluationBonus(scores); got != want {
			t.Errorf("%d active categories: got %d, want %d", i+1, got, want)
		}
	}

	scores[domain.CategoryCreative] = domain.CategoryScore{Count: 0}
	if got := scoring.EvaluationBonus(scores); got != 10 {
		t.Errorf("zero-count category counted: got %d, want 10", got)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Decay & Presentation
// ═══════════════════════════════════════════════════════════════════════════

func TestDecay(t *testing.T) {
	r := scoring.DefaultRules()
	cases := []struct {
		days, age int
		want      float64
	}{
		{0, 4, 0},
		{-2, 4, 0},
		{1, 4, 0.03},
		{3, 4, 0.13},
		{5, 15, 0.27},
		{1, 10, 0.05},
		{1, 30, 0.09},
	}
	for _, c := range cases {
		if got := r.Decay(c.days, c.age); math.Abs(got-c.want) > 1e-9 {
			t.Errorf("Decay(%d, %d) = %.4f, want %.2f", c.days, c.age, got, c.want)
		}
	}
}

func TestDeviationScoreAndStars(t *testing.T) {
	if got := scoring.DeviationScore(70, 50, 10); got != 70 {
		t.Errorf("DeviationScore(70,50,10) = %d, want 70", got)
	}
	if got := scoring.Stars(70); got != 5 {
		t.Errorf("Stars(70) = %d, want 5", got)
	}
	for _, x := range []float64{0, 42, 100} {
		if got := scoring.DeviationScore(x, 50, 0); got != 50 {
			t.Errorf("DeviationScore(%.0f,50,0) = %d, want 50", x, got)
		}
	}
	// Halves round up.
	if got := scoring.DeviationScore(0, 25, 10); got != 25 {
		t.Errorf("DeviationScore(0,25,10) = %d, want 25", got)
	}
	if got := scoring.DeviationScore(55, 50, 20); got != 53 {
		t.Errorf("DeviationScore(55,50,20) = %d, want 53", got)
	}

	stars := map[int]int{65: 5, 64: 4, 58: 4, 57: 3, 50: 3, 49: 2, 42: 2, 41: 1, 0: 1}
	for dev, want := range stars {
		if got := scoring.Stars(dev); got != want {
			t.Errorf("Stars(%d) = %d, want %d", dev, got, want)
		}
	}
}

func TestCharacterTypeAndTrend(t *testing.T) {
	if got := scoring.CharacterType(55); got != domain.CharacterHero {
		t.Errorf("CharacterType(55) = %s", got)
	}
	if got := scoring.CharacterType(45); got != domain.CharacterNormal {
		t.Errorf("CharacterType(45) = %s", got)
	}
	if got := scoring.CharacterType(44.9); got != domain.CharacterGanbari {
		t.Errorf("CharacterType(44.9) = %s", got)
	}

	if got := scoring.Trend(0.6); got != domain.TrendUp {
		t.Errorf("Trend(0.6) = %s", got)
	}
	if got := scoring.Trend(0.5); got != domain.TrendStable {
		t.Errorf("Trend(0.5) = %s", got)
	}
	if got := scoring.Trend(-0.6); got != domain.TrendDown {
		t.Errorf("Trend(-0.6) = %s", got)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Levels
// ═══════════════════════════════════════════════════════════════════════════

func TestLevel(t *testing.T) {
	r := scoring.DefaultRules()
	cases := []struct {
		avg   float64
		level int
	}{
		{-5, 1}, {0, 1}, {9, 1}, {9.5, 1}, {10, 2}, {10.3, 2}, {19, 2}, {19.5, 2}, {55, 6}, {89, 9}, {90, 10}, {100, 10}, {150, 10},
	}
	for _, c := range cases {
		if got := r.Level(c.avg); got.Level != c.level {
			t.Errorf("Level(%.1f) = %d, want %d", c.avg, got.Level, c.level)
		}
	}
	if got := r.Level(0).Title; got != "はじめのぼうけんしゃ" {
		t.Errorf("level 1 title = %q", got)
	}
	if got := r.Level(100).Title; got != "かみさまレベル" {
		t.Errorf("level 10 title = %q", got)
	}
}

func TestExpToNextLevel(t *testing.T) {
	r := scoring.DefaultRules()
	if got := r.ExpToNextLevel(0); !approx(got, 10) {
		t.Errorf("ExpToNextLevel(0) = %.2f, want 10", got)
	}
	if got := r.ExpToNextLevel(12.5); !approx(got, 7.5) {
		t.Errorf("ExpToNextLevel(12.5) = %.2f, want 7.5", got)
	}
	// Averages between tiers stay in the lower tier, so exp remains positive.
	if got := r.ExpToNextLevel(19.5); !approx(got, 0.5) {
		t.Errorf("ExpToNextLevel(19.5) = %.2f, want 0.5", got)
	}
	if got := r.ExpToNextLevel(10.3); !approx(got, 9.7) {
		t.Errorf("ExpToNextLevel(10.3) = %.2f, want 9.7", got)
	}
	if got := r.ExpToNextLevel(95); got != 0 {
		t.Errorf("ExpToNextLevel(95) = %.2f, want 0 at max level", got)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Login Bonus
// ═══════════════════════════════════════════════════════════════════════════

func TestLoginMultiplier_Monotonic(t *testing.T) {
	r := scoring.DefaultRules()
	want := map[int]float64{0: 1, 1: 1, 2: 1, 3: 1.5, 6: 1.5, 7: 2, 13: 2, 14: 2.5, 29: 2.5, 30: 3, 365: 3}
	for days, m := range want {
		if got := r.LoginMultiplier(days); got != m {
			t.Errorf("LoginMultiplier(%d) = %.1f, want %.1f", days, got, m)
		}
	}
	prev := 0.0
	for d := 0; d <= 40; d++ {
		m := r.LoginMultiplier(d)
		if m < prev {
			t.Fatalf("multiplier decreased at day %d: %.1f < %.1f", d, m, prev)
		}
		prev = m
	}
}

func TestLoginBonusPoints_Floors(t *testing.T) {
	if got := scoring.LoginBonusPoints(5, 1.5); got != 7 {
		t.Errorf("LoginBonusPoints(5, 1.5) = %d, want 7", got)
	}
	if got := scoring.LoginBonusPoints(3, 2.5); got != 7 {
		t.Errorf("LoginBonusPoints(3, 2.5) = %d, want 7", got)
	}
	if got := scoring.LoginBonusPoints(30, 3); got != 90 {
		t.Errorf("LoginBonusPoints(30, 3) = %d, want 90", got)
	}
}

type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }

func TestDrawOmikuji_Bounds(t *testing.T) {
	r := scoring.DefaultRules()
	if got := r.DrawOmikuji(fixedRand(0)); got.Rank != "大大吉" {
		t.Errorf("roll 0 = %s, want 大大吉", got.Rank)
	}
	if got := r.DrawOmikuji(fixedRand(0.9999999999)); got.Rank != "末吉" {
		t.Errorf("roll ~1 = %s, want 末吉", got.Rank)
	}
	// 1.0 is outside Float64's range but must still land on the last rank.
	if got := r.DrawOmikuji(fixedRand(1.0)); got.Rank != "末吉" {
		t.Errorf("roll 1.0 = %s, want fallback 末吉", got.Rank)
	}
}

func TestDrawOmikuji_Frequencies(t *testing.T) {
	r := scoring.DefaultRules()
	rng := rand.New(rand.NewPCG(20250312, 42))

	const draws = 10000
	counts := map[string]int{}
	for range draws {
		counts[r.DrawOmikuji(rng).Rank]++
	}

	var total float64
	for _, o := range r.OmikujiRanks() {
		total += o.Weight
	}
	if total != 100 {
		t.Fatalf("weights sum to %.0f, want 100", total)
	}

	seen := 0
	for _, o := range r.OmikujiRanks() {
		p := o.Weight / total
		observed := float64(counts[o.Rank]) / draws
		// Five standard deviations of a binomial proportion.
		tol := 5 * math.Sqrt(p*(1-p)/draws)
		if math.Abs(observed-p) > tol {
			t.Errorf("%s: observed %.4f, want %.4f ± %.4f", o.Rank, observed, p, tol)
		}
		seen += counts[o.Rank]
	}
	if seen != draws {
		t.Errorf("%d draws returned an unknown rank", draws-seen)
	}
}
