package billing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"canteen/internal/meal"
)

// ErrNotFound is returned when no subscription or package matches.
var ErrNotFound = errors.New("billing: not found")

// Repository persists packages and subscriptions in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreatePackage inserts a package.
func (r *Repository) CreatePackage(ctx context.Context, name string, durationDays int, price float64, meals meal.Set) (Package, error) {
	if name == "" || durationDays <= 0 {
		return Package{}, errors.New("package name and positive duration required")
	}
	if len(meals) == 0 {
		return Package{}, errors.New("package must include at least one meal")
	}
	p := Package{
		ID:           uuid.NewString(),
		Name:         name,
		DurationDays: durationDays,
		Price:        price,
		Meals:        meals,
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO packages (id, name, duration_days, price, meals_included)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at
	`, p.ID, p.Name, p.DurationDays, p.Price, p.Meals.String())
	if err := row.Scan(&p.CreatedAt); err != nil {
		return Package{}, err
	}
	return p, nil
}

// ListPackages returns all packages.
func (r *Repository) ListPackages(ctx context.Context) ([]Package, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, duration_days, price, meals_included, created_at
		FROM packages ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Package
	for rows.Next() {
		var p Package
		var csv string
		if err := rows.Scan(&p.ID, &p.Name, &p.DurationDays, &p.Price, &csv, &p.CreatedAt); err != nil {
			return nil, err
		}
		if p.Meals, err = meal.ParseSet(csv); err != nil {
			return nil, fmt.Errorf("package %s: %w", p.ID, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetPackage returns one package.
func (r *Repository) GetPackage(ctx context.Context, id string) (Package, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, duration_days, price, meals_included, created_at
		FROM packages WHERE id = $1
	`, id)
	var p Package
	var csv string
	if err := row.Scan(&p.ID, &p.Name, &p.DurationDays, &p.Price, &csv, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Package{}, ErrNotFound
		}
		return Package{}, err
	}
	var err error
	if p.Meals, err = meal.ParseSet(csv); err != nil {
		return Package{}, err
	}
	return p, nil
}

const subCols = `s.id, s.student_id, s.package_id, s.facility, s.start_date, s.end_date, s.status,
	p.meals_included, s.created_at, s.updated_at`

func scanSub(row interface{ Scan(...any) error }) (Subscription, error) {
	var s Subscription
	var csv string
	if err := row.Scan(&s.ID, &s.StudentID, &s.PackageID, &s.Facility, &s.StartDate, &s.EndDate,
		&s.Status, &csv, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return Subscription{}, err
	}
	var err error
	s.Meals, err = meal.ParseSet(csv)
	return s, err
}

// CreateSubscription enrols a student onto a package starting at startDate;
// the end date is derived from the package duration, inclusive.
func (r *Repository) CreateSubscription(ctx context.Context, studentID, packageID, facility string, startDate time.Time) (Subscription, error) {
	pkg, err := r.GetPackage(ctx, packageID)
	if err != nil {
		return Subscription{}, err
	}
	start := dateOnly(startDate)
	end := start.AddDate(0, 0, pkg.DurationDays-1)

	s := Subscription{
		ID:        uuid.NewString(),
		StudentID: studentID,
		PackageID: packageID,
		Facility:  facility,
		StartDate: start,
		EndDate:   end,
		Status:    StatusActive,
		Meals:     pkg.Meals,
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO subscriptions (id, student_id, package_id, facility, start_date, end_date, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at
	`, s.ID, s.StudentID, s.PackageID, s.Facility, s.StartDate, s.EndDate, s.Status)
	if err := row.Scan(&s.CreatedAt, &s.UpdatedAt); err != nil {
		return Subscription{}, err
	}
	return s, nil
}

// GetSubscription returns one subscription with its package meals.
func (r *Repository) GetSubscription(ctx context.Context, id string) (Subscription, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+subCols+`
		FROM subscriptions s JOIN packages p ON p.id = s.package_id
		WHERE s.id = $1
	`, id)
	s, err := scanSub(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Subscription{}, ErrNotFound
	}
	return s, err
}

// ActiveCovering returns the ACTIVE subscription for a student covering the
// day, or nil. When several overlap the most recently created wins.
func (r *Repository) ActiveCovering(ctx context.Context, studentID string, day time.Time) (*Subscription, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+subCols+`
		FROM subscriptions s JOIN packages p ON p.id = s.package_id
		WHERE s.student_id = $1 AND s.status = 'ACTIVE'
		  AND s.start_date <= $2 AND s.end_date >= $2
		ORDER BY s.created_at DESC
		LIMIT 1
	`, studentID, dateOnly(day))
	s, err := scanSub(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSubscriptions returns subscriptions, optionally filtered by status.
func (r *Repository) ListSubscriptions(ctx context.Context, status Status, limit, offset int) ([]Subscription, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + subCols + `
		FROM subscriptions s JOIN packages p ON p.id = s.package_id`
	args := []any{}
	if status != "" {
		query += ` WHERE s.status = $1`
		args = append(args, status)
	}
	query += fmt.Sprintf(` ORDER BY s.created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Subscription
	for rows.Next() {
		s, err := scanSub(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SetStatus applies a lifecycle transition, enforcing the transition table.
func (r *Repository) SetStatus(ctx context.Context, id string, to Status) (Subscription, error) {
	sub, err := r.GetSubscription(ctx, id)
	if err != nil {
		return Subscription{}, err
	}
	if !CanTransition(sub.Status, to) {
		return Subscription{}, fmt.Errorf("%w: %s -> %s", ErrBadTransition, sub.Status, to)
	}
	// guard the transition in SQL too: a concurrent change loses
	res, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
	`, id, to, sub.Status)
	if err != nil {
		return Subscription{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Subscription{}, ErrBadTransition
	}
	sub.Status = to
	return sub, nil
}

// ExpireOverdue sweeps ACTIVE subscriptions whose end date has passed.
func (r *Repository) ExpireOverdue(ctx context.Context, today time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions SET status = 'EXPIRED', updated_at = NOW()
		WHERE status = 'ACTIVE' AND end_date < $1
	`, dateOnly(today))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountByStatus returns subscription totals per lifecycle state.
func (r *Repository) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM subscriptions GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[Status]int{}
	for rows.Next() {
		var st Status
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		out[st] = n
	}
	return out, rows.Err()
}

// CountActiveByMeal returns, per meal type, how many ACTIVE subscriptions
// cover the day. Feeds planned headcount.
func (r *Repository) CountActiveByMeal(ctx context.Context, day time.Time) (map[meal.Type]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.meals_included, COUNT(*)
		FROM subscriptions s JOIN packages p ON p.id = s.package_id
		WHERE s.status = 'ACTIVE' AND s.start_date <= $1 AND s.end_date >= $1
		GROUP BY p.meals_included
	`, dateOnly(day))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := map[meal.Type]int{}
	for rows.Next() {
		var csv string
		var n int
		if err := rows.Scan(&csv, &n); err != nil {
			return nil, err
		}
		set, err := meal.ParseSet(csv)
		if err != nil {
			return nil, err
		}
		for m := range set {
			counts[m] += n
		}
	}
	return counts, rows.Err()
}
