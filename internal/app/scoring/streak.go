package scoring

import "github.com/ganbari-quest/ganbari/internal/domain"

// StreakDays counts consecutive days ending today. prior holds earlier
// recorded days (any order, duplicates allowed); today itself is always
// counted. Walking starts at yesterday and stops at the first gap.
func StreakDays(prior []string, today string) int {
	if len(prior) == 0 {
		return 1
	}
	seen := make(map[string]struct{}, len(prior))
	for _, d := range prior {
		seen[d] = struct{}{}
	}

	streak := 1
	day := domain.AddDays(today, -1)
	for day != "" {
		if _, ok := seen[day]; !ok {
			break
		}
		streak++
		day = domain.AddDays(day, -1)
	}
	return streak
}
