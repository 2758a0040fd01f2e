// Package domain holds the pure types of the ganbari scoring engine.
// No package here touches storage, the network, or the wall clock.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// ─── Categories ─────────────────────────────────────────────────────────────

// Category partitions activities into status domains.
type Category string

const (
	CategoryPhysical  Category = "physical"
	CategoryLearning  Category = "learning"
	CategoryDailyLife Category = "daily_life"
	CategorySocial    Category = "social"
	CategoryCreative  Category = "creative"
)

var categoryLabels = map[Category]string{
	CategoryPhysical:  "うんどう",
	CategoryLearning:  "べんきょう",
	CategoryDailyLife: "せいかつ",
	CategorySocial:    "こうりゅう",
	CategoryCreative:  "そうぞう",
}

// Categories returns the fixed category set in display order.
func Categories() []Category {
	return []Category{
		CategoryPhysical,
		CategoryLearning,
		CategoryDailyLife,
		CategorySocial,
		CategoryCreative,
	}
}

// Valid reports whether c is one of the fixed categories.
func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Label returns the child-facing name of the category.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// ParseCategory accepts either the identifier or the child-facing label.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	if c := Category(s); c.Valid() {
		return c, nil
	}
	for c, label := range categoryLabels {
		if label == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

// ─── Children & Activities ──────────────────────────────────────────────────

// Child is a participant. Age drives benchmarks and decay speed.
type Child struct {
	ID        int64     `json:"id"`
	Nickname  string    `json:"nickname"`
	Age       int       `json:"age"`
	Theme     string    `json:"theme"`
	CreatedAt time.Time `json:"created_at"`
}

// Activity is a recordable catalog entry.
type Activity struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Category   Category  `json:"category"`
	Icon       string    `json:"icon"`
	BasePoints int       `json:"base_points"`
	AgeMin     *int      `json:"age_min"`
	AgeMax     *int      `json:"age_max"`
	Visible    bool      `json:"is_visible"`
	SortOrder  int       `json:"sort_order"`
	CreatedAt  time.Time `json:"created_at"`
}

// ActivityFilter narrows catalog listings.
type ActivityFilter struct {
	ChildAge      *int
	Category      Category
	IncludeHidden bool
}
