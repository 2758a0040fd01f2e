package activity

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ganbari-quest/ganbari/internal/domain"
)

type seedActivity struct {
	name   string
	cat    domain.Category
	icon   string
	points int
	ageMin *int
	ageMax *int
}

func age(n int) *int { return &n }

// starterActivities is the catalog a fresh household starts with.
var starterActivities = []seedActivity{
	{"たいそうした", domain.CategoryPhysical, "🤸", 5, nil, nil},
	{"おそとであそんだ", domain.CategoryPhysical, "🏃", 5, nil, nil},
	{"すいみんぐ", domain.CategoryPhysical, "🏊", 10, age(3), nil},
	{"ひらがなれんしゅう", domain.CategoryLearning, "✏️", 5, age(3), nil},
	{"すうじをかぞえた", domain.CategoryLearning, "🔢", 5, age(3), nil},
	{"えほんをよんだ", domain.CategoryLearning, "📖", 5, nil, nil},
	{"としょかんにいった", domain.CategoryLearning, "🏛️", 10, nil, nil},
	{"しょっきをはこんだ", domain.CategoryDailyLife, "🍽️", 5, age(3), nil},
	{"かたづけた", domain.CategoryDailyLife, "🧹", 5, nil, nil},
	{"おきがえした", domain.CategoryDailyLife, "👗", 3, age(3), nil},
	{"はみがきした", domain.CategoryDailyLife, "🪥", 3, nil, nil},
	{"ごはんをぜんぶたべた", domain.CategoryDailyLife, "🍚", 3, age(1), age(6)},
	{"ともだちとあそんだ", domain.CategorySocial, "🤝", 5, age(3), nil},
	{"あいさつした", domain.CategorySocial, "👋", 3, nil, nil},
	{"はっぴょうかいでがんばった", domain.CategorySocial, "🎤", 20, age(3), nil},
	{"おえかきした", domain.CategoryCreative, "🎨", 5, nil, nil},
	{"うたをうたった", domain.CategoryCreative, "🎵", 3, nil, nil},
	{"こうさくした", domain.CategoryCreative, "✂️", 5, age(3), nil},
}

// SeedActivities fills an empty catalog with the starter activities and
// returns how many were created. A non-empty catalog is left alone.
func (c *Catalog) SeedActivities(ctx context.Context) (int, error) {
	existing, err := c.db.ListActivities(ctx, domain.ActivityFilter{IncludeHidden: true})
	if err != nil {
		return 0, fmt.Errorf("list activities: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	for i, s := range starterActivities {
		a := domain.Activity{
			Name:       s.name,
			Category:   s.cat,
			Icon:       s.icon,
			BasePoints: s.points,
			AgeMin:     s.ageMin,
			AgeMax:     s.ageMax,
			Visible:    true,
			SortOrder:  i + 1,
			CreatedAt:  c.clock(),
		}
		if _, err := c.db.InsertActivity(ctx, a); err != nil {
			return i, fmt.Errorf("insert %s: %w", s.name, err)
		}
	}
	c.log.Info("catalog seeded", zap.Int("activities", len(starterActivities)))
	return len(starterActivities), nil
}
