package activity

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ganbari-quest/ganbari/internal/domain"
	"github.com/ganbari-quest/ganbari/internal/infra/sqlite"
)

// Validation bounds for catalog input.
const (
	MaxNameLength = 50
	MinBasePoints = 1
	MaxBasePoints = 100
	MaxAge        = 20
)

// ActivityInput creates or patches an activity. Nil fields are left
// unchanged on update.
type ActivityInput struct {
	Name       *string          `json:"name"`
	Category   *domain.Category `json:"category"`
	Icon       *string          `json:"icon"`
	BasePoints *int             `json:"base_points"`
	AgeMin     *int             `json:"age_min"`
	AgeMax     *int             `json:"age_max"`
	SortOrder  *int             `json:"sort_order"`
}

// ChildInput creates a child.
type ChildInput struct {
	Nickname string `json:"nickname"`
	Age      int    `json:"age"`
	Theme    string `json:"theme"`
}

// Catalog manages activities and children.
type Catalog struct {
	db    *sqlite.DB
	clock domain.Clock
	log   *zap.Logger
}

// NewCatalog creates a catalog service.
func NewCatalog(db *sqlite.DB, clock domain.Clock, log *zap.Logger) *Catalog {
	if clock == nil {
		clock = domain.SystemClock
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Catalog{db: db, clock: clock, log: log.Named("catalog")}
}

// ─── Activities ─────────────────────────────────────────────────────────────

// ListActivities returns catalog entries matching the filter.
func (c *Catalog) ListActivities(ctx context.Context, f domain.ActivityFilter) ([]domain.Activity, error) {
	if f.Category != "" && !f.Category.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidCategory, f.Category)
	}
	acts, err := c.db.ListActivities(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	if acts == nil {
		acts = []domain.Activity{}
	}
	return acts, nil
}

// GetActivity returns an activity or ErrActivityNotFound.
func (c *Catalog) GetActivity(ctx context.Context, id int64) (domain.Activity, error) {
	a, err := c.db.GetActivity(ctx, id)
	if err != nil {
		return domain.Activity{}, fmt.Errorf("get activity: %w", err)
	}
	if a == nil {
		return domain.Activity{}, fmt.Errorf("%w: %d", domain.ErrActivityNotFound, id)
	}
	return *a, nil
}

// CreateActivity validates and stores a new visible activity.
func (c *Catalog) CreateActivity(ctx context.Context, in ActivityInput) (domain.Activity, error) {
	if in.Name == nil || in.Category == nil || in.Icon == nil || in.BasePoints == nil {
		return domain.Activity{}, fmt.Errorf("%w: name, category, icon and base_points are required", domain.ErrInvalidInput)
	}
	var a domain.Activity
	a.Visible = true
	a.CreatedAt = c.clock()
	if err := applyInput(&a, in); err != nil {
		return domain.Activity{}, err
	}

	id, err := c.db.InsertActivity(ctx, a)
	if err != nil {
		return domain.Activity{}, fmt.Errorf("insert activity: %w", err)
	}
	a.ID = id
	c.log.Info("activity created", zap.Int64("id", id), zap.String("name", a.Name))
	return a, nil
}

// UpdateActivity patches an activity with the non-nil input fields.
func (c *Catalog) UpdateActivity(ctx context.Context, id int64, in ActivityInput) (domain.Activity, error) {
	var out domain.Activity
	err := c.db.Tx(ctx, func(tx *sqlite.DB) error {
		a, err := tx.GetActivity(ctx, id)
		if err != nil {
			return fmt.Errorf("get activity: %w", err)
		}
		if a == nil {
			return fmt.Errorf("%w: %d", domain.ErrActivityNotFound, id)
		}
		if err := applyInput(a, in); err != nil {
			return err
		}
		if err := tx.UpdateActivity(ctx, *a); err != nil {
			return err
		}
		out = *a
		return nil
	})
	return out, err
}

// SetVisibility shows or hides an activity. Hiding is the only delete.
func (c *Catalog) SetVisibility(ctx context.Context, id int64, visible bool) (domain.Activity, error) {
	if err := c.db.SetActivityVisibility(ctx, id, visible); err != nil {
		return domain.Activity{}, err
	}
	return c.GetActivity(ctx, id)
}

func applyInput(a *domain.Activity, in ActivityInput) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if n := utf8.RuneCountInString(name); n < 1 || n > MaxNameLength {
			return fmt.Errorf("%w: name must be 1-%d characters", domain.ErrInvalidInput, MaxNameLength)
		}
		a.Name = name
	}
	if in.Category != nil {
		cat, err := domain.ParseCategory(string(*in.Category))
		if err != nil {
			return err
		}
		a.Category = cat
	}
	if in.Icon != nil {
		if strings.TrimSpace(*in.Icon) == "" {
			return fmt.Errorf("%w: icon is required", domain.ErrInvalidInput)
		}
		a.Icon = *in.Icon
	}
	if in.BasePoints != nil {
		if *in.BasePoints < MinBasePoints || *in.BasePoints > MaxBasePoints {
			return fmt.Errorf("%w: base_points must be %d-%d", domain.ErrInvalidInput, MinBasePoints, MaxBasePoints)
		}
		a.BasePoints = *in.BasePoints
	}
	if in.AgeMin != nil {
		if *in.AgeMin < 0 || *in.AgeMin > MaxAge {
			return fmt.Errorf("%w: age_min must be 0-%d", domain.ErrInvalidInput, MaxAge)
		}
		a.AgeMin = in.AgeMin
	}
	if in.AgeMax != nil {
		if *in.AgeMax < 0 || *in.AgeMax > MaxAge {
			return fmt.Errorf("%w: age_max must be 0-%d", domain.ErrInvalidInput, MaxAge)
		}
		a.AgeMax = in.AgeMax
	}
	if a.AgeMin != nil && a.AgeMax != nil && *a.AgeMin > *a.AgeMax {
		return fmt.Errorf("%w: age_min exceeds age_max", domain.ErrInvalidInput)
	}
	if in.SortOrder != nil {
		a.SortOrder = *in.SortOrder
	}
	return nil
}

// ─── Children ───────────────────────────────────────────────────────────────

// CreateChild validates and stores a child.
func (c *Catalog) CreateChild(ctx context.Context, in ChildInput) (domain.Child, error) {
	nick := strings.TrimSpace(in.Nickname)
	if n := utf8.RuneCountInString(nick); n < 1 || n > MaxNameLength {
		return domain.Child{}, fmt.Errorf("%w: nickname must be 1-%d characters", domain.ErrInvalidInput, MaxNameLength)
	}
	if in.Age < 0 || in.Age > MaxAge {
		return domain.Child{}, fmt.Errorf("%w: age must be 0-%d", domain.ErrInvalidInput, MaxAge)
	}
	child := domain.Child{Nickname: nick, Age: in.Age, Theme: in.Theme, CreatedAt: c.clock()}
	if child.Theme == "" {
		child.Theme = "pink"
	}
	id, err := c.db.InsertChild(ctx, child)
	if err != nil {
		return domain.Child{}, fmt.Errorf("insert child: %w", err)
	}
	child.ID = id
	c.log.Info("child created", zap.Int64("id", id), zap.Int("age", child.Age))
	return child, nil
}

// GetChild returns a child or ErrChildNotFound.
func (c *Catalog) GetChild(ctx context.Context, id int64) (domain.Child, error) {
	child, err := c.db.GetChild(ctx, id)
	if err != nil {
		return domain.Child{}, fmt.Errorf("get child: %w", err)
	}
	if child == nil {
		return domain.Child{}, fmt.Errorf("%w: %d", domain.ErrChildNotFound, id)
	}
	return *child, nil
}

// ListChildren returns every child.
func (c *Catalog) ListChildren(ctx context.Context) ([]domain.Child, error) {
	children, err := c.db.ListChildren(ctx)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	if children == nil {
		children = []domain.Child{}
	}
	return children, nil
}
