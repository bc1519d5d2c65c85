package mealplan

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"canteen/internal/meal"
)

// Plan schedules a dish for a meal on a date with a planned quantity.
type Plan struct {
	ID         string    `json:"id"`
	PlanDate   time.Time `json:"plan_date"`
	MealType   meal.Type `json:"meal_type"`
	DishID     string    `json:"dish_id"`
	DishName   string    `json:"dish_name,omitempty"`
	PlannedQty int       `json:"planned_qty"`
}

// Repository persists meal plans in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Upsert schedules or updates a dish for a date and meal.
func (r *Repository) Upsert(ctx context.Context, p Plan) (Plan, error) {
	if p.DishID == "" || p.MealType == "" {
		return Plan{}, errors.New("dish and meal type required")
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.PlanDate = dateOnly(p.PlanDate)
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO meal_plans (id, plan_date, meal_type, dish_id, planned_qty)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (plan_date, meal_type, dish_id)
		DO UPDATE SET planned_qty = EXCLUDED.planned_qty
		RETURNING id
	`, p.ID, p.PlanDate, p.MealType, p.DishID, p.PlannedQty)
	if err := row.Scan(&p.ID); err != nil {
		return Plan{}, err
	}
	return p, nil
}

// ListByDate returns the plans for a day in serving order.
func (r *Repository) ListByDate(ctx context.Context, day time.Time) ([]Plan, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT mp.id, mp.plan_date, mp.meal_type, mp.dish_id, d.name, mp.planned_qty
		FROM meal_plans mp JOIN dishes d ON d.id = mp.dish_id
		WHERE mp.plan_date = $1
		ORDER BY mp.meal_type, d.name
	`, dateOnly(day))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Plan
	for rows.Next() {
		var p Plan
		if err := rows.Scan(&p.ID, &p.PlanDate, &p.MealType, &p.DishID, &p.DishName, &p.PlannedQty); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Delete removes a plan row.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM meal_plans WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New("meal plan not found")
	}
	return nil
}

// HeadcountSource provides per-meal active subscription counts for a day.
type HeadcountSource interface {
	CountActiveByMeal(ctx context.Context, day time.Time) (map[meal.Type]int, error)
}

// Service computes planned headcount from active subscriptions.
type Service struct {
	repo *Repository
	subs HeadcountSource
}

// NewService creates a meal planning service.
func NewService(repo *Repository, subs HeadcountSource) *Service {
	return &Service{repo: repo, subs: subs}
}

// PlannedHeadcount returns, per meal, how many subscribers are expected on
// the day.
func (s *Service) PlannedHeadcount(ctx context.Context, day time.Time) (map[meal.Type]int, error) {
	return s.subs.CountActiveByMeal(ctx, day)
}
