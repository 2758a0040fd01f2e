// Package scoring holds the pure scoring rules of the engine: streak
// detection, bonuses, decay, deviation, stars, levels and the daily lottery.
// Nothing here touches storage or the clock.
package scoring

import (
	"math"

	"github.com/ganbari-quest/ganbari/internal/domain"
)

// LevelTier is one row of the level table.
type LevelTier struct {
	Level int
	Min   float64
	Max   float64
	Title string
}

// AgeCoefficient scales decay for children up to MaxAge.
type AgeCoefficient struct {
	MaxAge int
	Coeff  float64
}

// MultiplierTier applies Multiplier from MinDays consecutive logins.
type MultiplierTier struct {
	MinDays    int
	Multiplier float64
}

// Rules is the immutable scoring configuration. Build it once with
// DefaultRules and share it; no method mutates it.
type Rules struct {
	levels      []LevelTier
	omikuji     []OmikujiRank
	ageCoeffs   []AgeCoefficient
	oldCoeff    float64
	multipliers []MultiplierTier
}

// DefaultRules returns the production scoring tables.
func DefaultRules() *Rules {
	return &Rules{
		levels: []LevelTier{
			{1, 0, 9, "はじめのぼうけんしゃ"},
			{2, 10, 19, "がんばりルーキー"},
			{3, 20, 29, "わくわくファイター"},
			{4, 30, 39, "つよつよチャレンジャー"},
			{5, 40, 49, "きらきらヒーロー"},
			{6, 50, 59, "すごうでアドベンチャー"},
			{7, 60, 69, "そらとぶチャンピオン"},
			{8, 70, 79, "きせきのマスター"},
			{9, 80, 89, "せかいいちのつわもの"},
			{10, 90, 100, "かみさまレベル"},
		},
		omikuji: []OmikujiRank{
			{Rank: "大大吉", Weight: 1, BasePoints: 30},
			{Rank: "大吉", Weight: 5, BasePoints: 15},
			{Rank: "中吉", Weight: 15, BasePoints: 7},
			{Rank: "小吉", Weight: 25, BasePoints: 5},
			{Rank: "吉", Weight: 34, BasePoints: 3},
			{Rank: "末吉", Weight: 20, BasePoints: 2},
		},
		ageCoeffs: []AgeCoefficient{
			{MaxAge: 6, Coeff: 0.3},
			{MaxAge: 12, Coeff: 0.5},
			{MaxAge: 18, Coeff: 0.7},
		},
		oldCoeff: 0.9,
		multipliers: []MultiplierTier{
			{MinDays: 30, Multiplier: 3.0},
			{MinDays: 14, Multiplier: 2.5},
			{MinDays: 7, Multiplier: 2.0},
			{MinDays: 3, Multiplier: 1.5},
		},
	}
}

// Categories returns the fixed category set.
func (r *Rules) Categories() []domain.Category {
	return domain.Categories()
}

// ─── Streaks & Weekly Scores ────────────────────────────────────────────────

// MaxStreakBonus caps the per-record streak bonus.
const MaxStreakBonus = 10

// StreakBonus returns 0 below two days, else min(days-1, 10).
func StreakBonus(days int) int {
	if days < 2 {
		return 0
	}
	return min(days-1, MaxStreakBonus)
}

// StatusIncrease maps a weekly activity count to a status gain.
func StatusIncrease(weeklyCount int) float64 {
	switch {
	case weeklyCount >= 7:
		return 3.0
	case weeklyCount >= 5:
		return 2.0
	case weeklyCount >= 3:
		return 1.0
	case weeklyCount >= 1:
		return 0.5
	default:
		return 0
	}
}

// EvaluationBonus counts categories with activity and awards 20/10/5 points
// for 5/4/3 or more.
func EvaluationBonus(scores map[domain.Category]domain.CategoryScore) int {
	active := 0
	for _, s := range scores {
		if s.Count > 0 {
			active++
		}
	}
	switch {
	case active >= 5:
		return 20
	case active >= 4:
		return 10
	case active >= 3:
		return 5
	default:
		return 0
	}
}

// ─── Decay ──────────────────────────────────────────────────────────────────

// AgeCoefficient returns the decay coefficient for a child's age.
func (r *Rules) AgeCoefficient(age int) float64 {
	for _, c := range r.ageCoeffs {
		if age <= c.MaxAge {
			return c.Coeff
		}
	}
	return r.oldCoeff
}

// Decay returns the status loss after daysSince idle days:
// coeff*0.1 + 0.05 per day beyond the first.
func (r *Rules) Decay(daysSince, age int) float64 {
	if daysSince <= 0 {
		return 0
	}
	return r.AgeCoefficient(age)*0.1 + 0.05*float64(max(0, daysSince-1))
}

// ─── Presentation ───────────────────────────────────────────────────────────

// DeviationScore normalizes value against a benchmark on a mean-50, sd-10 scale.
// A zero stdDev yields 50.
func DeviationScore(value, mean, stdDev float64) int {
	if stdDev == 0 {
		return 50
	}
	return int(math.Floor((value-mean)/stdDev*10 + 50 + 0.5))
}

// Stars maps a deviation score to a 1-5 rating.
func Stars(deviation int) int {
	switch {
	case deviation >= 65:
		return 5
	case deviation >= 58:
		return 4
	case deviation >= 50:
		return 3
	case deviation >= 42:
		return 2
	default:
		return 1
	}
}

// CharacterType derives the archetype from the average deviation.
func CharacterType(avgDeviation float64) domain.CharacterType {
	switch {
	case avgDeviation >= 55:
		return domain.CharacterHero
	case avgDeviation >= 45:
		return domain.CharacterNormal
	default:
		return domain.CharacterGanbari
	}
}

// Trend classifies the latest status delta.
func Trend(recentDelta float64) domain.Trend {
	switch {
	case recentDelta > 0.5:
		return domain.TrendUp
	case recentDelta < -0.5:
		return domain.TrendDown
	default:
		return domain.TrendStable
	}
}

// ClampStatus bounds v to [StatusMin, StatusMax].
func ClampStatus(v float64) float64 {
	return math.Max(domain.StatusMin, math.Min(domain.StatusMax, v))
}

// Round1 rounds to one decimal place for display.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// ─── Levels ─────────────────────────────────────────────────────────────────

// Level returns the tier covering avgStatus after clamping to [0,100].
// Values between integer tier bounds (e.g. 9.5) fall to the lower tier.
func (r *Rules) Level(avgStatus float64) LevelTier {
	v := ClampStatus(avgStatus)
	for i := len(r.levels) - 1; i >= 0; i-- {
		if v >= r.levels[i].Min {
			return r.levels[i]
		}
	}
	return r.levels[0]
}

// ExpToNextLevel is the distance to the next tier's floor, 0 at max level.
func (r *Rules) ExpToNextLevel(avgStatus float64) float64 {
	cur := r.Level(avgStatus)
	if cur.Level >= r.levels[len(r.levels)-1].Level {
		return 0
	}
	next := r.levels[cur.Level]
	return math.Max(0, next.Min-avgStatus)
}

// ─── Login Bonus ────────────────────────────────────────────────────────────

// LoginMultiplier returns the first threshold multiplier met by days.
func (r *Rules) LoginMultiplier(consecutiveDays int) float64 {
	for _, m := range r.multipliers {
		if consecutiveDays >= m.MinDays {
			return m.Multiplier
		}
	}
	return 1.0
}

// LoginBonusPoints floors base*multiplier.
func LoginBonusPoints(base int, multiplier float64) int {
	return int(math.Floor(float64(base) * multiplier))
}
