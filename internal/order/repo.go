package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"canteen/internal/meal"
)

// Repository persists orders in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a PENDING order with its line items in one transaction.
func (r *Repository) Create(ctx context.Context, mealType meal.Type, items []Item) (Order, error) {
	if len(items) == 0 {
		return Order{}, errors.New("order needs at least one item")
	}
	o := Order{
		ID:            uuid.NewString(),
		OrderNumber:   "ORD-" + time.Now().UTC().Format("20060102") + "-" + uuid.NewString()[:8],
		MealType:      mealType,
		Status:        StatusPending,
		PaymentStatus: PaymentUnpaid,
		Items:         items,
	}
	for _, it := range items {
		if it.Qty <= 0 {
			return Order{}, fmt.Errorf("bad quantity for %q", it.MenuItem)
		}
		o.Total += float64(it.Qty) * it.Price
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		INSERT INTO orders (id, order_number, meal_type, status, payment_status, total)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at
	`, o.ID, o.OrderNumber, o.MealType, o.Status, o.PaymentStatus, o.Total)
	if err := row.Scan(&o.CreatedAt, &o.UpdatedAt); err != nil {
		return Order{}, err
	}
	for _, it := range items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, menu_item, qty, price) VALUES ($1,$2,$3,$4)
		`, o.ID, it.MenuItem, it.Qty, it.Price); err != nil {
			return Order{}, err
		}
	}
	return o, tx.Commit()
}

const orderCols = `id, order_number, COALESCE(coupon_code, ''), meal_type, status, payment_status, total, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.CouponCode, &o.MealType, &o.Status, &o.PaymentStatus,
		&o.Total, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func (r *Repository) loadItems(ctx context.Context, o *Order) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT menu_item, qty, price FROM order_items WHERE order_id = $1 ORDER BY id
	`, o.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.MenuItem, &it.Qty, &it.Price); err != nil {
			return err
		}
		o.Items = append(o.Items, it)
	}
	return rows.Err()
}

// Get returns an order with its items.
func (r *Repository) Get(ctx context.Context, id string) (Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderCols+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	return o, r.loadItems(ctx, &o)
}

// FindByCoupon resolves a scanned coupon code to its order.
func (r *Repository) FindByCoupon(ctx context.Context, coupon string) (*Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderCols+` FROM orders WHERE coupon_code = $1`, coupon)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// List returns recent orders.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]Order, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+orderCols+` FROM orders ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Transition moves an order one step up the ladder (or cancels it). The
// status guard in SQL keeps concurrent updates from double-applying.
// Confirming a paid order mints the coupon code.
func (r *Repository) Transition(ctx context.Context, id string, to Status) (Order, error) {
	o, err := r.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if !CanTransition(o.Status, to) {
		return Order{}, fmt.Errorf("%w: %s -> %s", ErrBadTransition, o.Status, to)
	}

	coupon := o.CouponCode
	if to == StatusConfirmed && coupon == "" {
		coupon = uuid.NewString()
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $2, coupon_code = NULLIF($3, ''), updated_at = NOW()
		WHERE id = $1 AND status = $4
	`, id, to, coupon, o.Status)
	if err != nil {
		return Order{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Order{}, ErrBadTransition
	}
	o.Status = to
	o.CouponCode = coupon
	return o, nil
}

// MarkPaid flips payment status.
func (r *Repository) MarkPaid(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET payment_status = 'PAID', updated_at = NOW() WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ServeByCoupon transitions a CONFIRMED or PREPARED order to SERVED as a
// single conditional update; the second redeem attempt affects zero rows.
func (r *Repository) ServeByCoupon(ctx context.Context, coupon string) (served bool, err error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = 'SERVED', updated_at = NOW()
		WHERE coupon_code = $1 AND status IN ('CONFIRMED', 'PREPARED')
	`, coupon)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
