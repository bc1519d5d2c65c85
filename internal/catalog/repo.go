package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"canteen/internal/meal"
)

// Repository persists catalog data in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// UpsertUnit ensures a measurement unit exists; used by seeding.
func (r *Repository) UpsertUnit(ctx context.Context, name, abbreviation string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO units (name, abbreviation) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET abbreviation = EXCLUDED.abbreviation
	`, name, abbreviation)
	return err
}

// UpsertCategory ensures a category exists; used by seeding.
func (r *Repository) UpsertCategory(ctx context.Context, name string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (name) VALUES ($1) ON CONFLICT (name) DO NOTHING
	`, name)
	return err
}

// UpsertVendor creates or updates a vendor by name.
func (r *Repository) UpsertVendor(ctx context.Context, v Vendor) (Vendor, error) {
	if v.Name == "" {
		return Vendor{}, errors.New("vendor name required")
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO vendors (id, name, contact, email, address)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (name) DO UPDATE SET
			contact = EXCLUDED.contact, email = EXCLUDED.email, address = EXCLUDED.address
		RETURNING id, created_at
	`, v.ID, v.Name, v.Contact, v.Email, v.Address)
	if err := row.Scan(&v.ID, &v.CreatedAt); err != nil {
		return Vendor{}, err
	}
	return v, nil
}

// ListVendors returns all vendors.
func (r *Repository) ListVendors(ctx context.Context) ([]Vendor, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, contact, email, address, created_at FROM vendors ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Vendor
	for rows.Next() {
		var v Vendor
		if err := rows.Scan(&v.ID, &v.Name, &v.Contact, &v.Email, &v.Address, &v.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

const itemCols = `i.id, i.name, COALESCE(u.name, ''), COALESCE(c.name, ''), COALESCE(i.vendor_id, ''),
	i.stock_qty, i.reorder_level, i.price, i.created_at, i.updated_at`

const itemFrom = ` FROM items i
	LEFT JOIN units u ON u.id = i.unit_id
	LEFT JOIN categories c ON c.id = i.category_id`

func scanItem(row interface{ Scan(...any) error }) (Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.Name, &it.Unit, &it.Category, &it.VendorID,
		&it.StockQty, &it.ReorderLevel, &it.Price, &it.CreatedAt, &it.UpdatedAt)
	return it, err
}

// UpsertItem creates or updates a stock item by name; unit and category are
// referenced by name and must already exist.
func (r *Repository) UpsertItem(ctx context.Context, it Item) (Item, error) {
	if it.Name == "" {
		return Item{}, errors.New("item name required")
	}
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO items (id, name, unit_id, category_id, vendor_id, stock_qty, reorder_level, price)
		VALUES ($1, $2,
			(SELECT id FROM units WHERE name = $3),
			(SELECT id FROM categories WHERE name = $4),
			NULLIF($5, ''), $6, $7, $8)
		ON CONFLICT (name) DO UPDATE SET
			unit_id = EXCLUDED.unit_id, category_id = EXCLUDED.category_id,
			vendor_id = EXCLUDED.vendor_id, reorder_level = EXCLUDED.reorder_level,
			price = EXCLUDED.price, updated_at = NOW()
		RETURNING id, created_at, updated_at
	`, it.ID, it.Name, it.Unit, it.Category, it.VendorID, it.StockQty, it.ReorderLevel, it.Price)
	if err := row.Scan(&it.ID, &it.CreatedAt, &it.UpdatedAt); err != nil {
		return Item{}, err
	}
	return it, nil
}

// GetItem returns one item.
func (r *Repository) GetItem(ctx context.Context, id string) (Item, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+itemCols+itemFrom+` WHERE i.id = $1`, id)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Item{}, ErrNotFound
	}
	return it, err
}

// ListItems returns items, optionally only those at or below reorder level.
func (r *Repository) ListItems(ctx context.Context, lowStockOnly bool) ([]Item, error) {
	query := `SELECT ` + itemCols + itemFrom
	if lowStockOnly {
		query += ` WHERE i.stock_qty <= i.reorder_level`
	}
	query += ` ORDER BY i.name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// AdjustStock applies a signed stock delta (positive for purchase receipts,
// negative for consumption) and refuses to go below zero.
func (r *Repository) AdjustStock(ctx context.Context, itemID string, delta float64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE items SET stock_qty = stock_qty + $2, updated_at = NOW()
		WHERE id = $1 AND stock_qty + $2 >= 0
	`, itemID, delta)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("stock adjustment rejected for item %s", itemID)
	}
	return nil
}

// UpsertDish creates or replaces a dish and its recipe in one transaction.
func (r *Repository) UpsertDish(ctx context.Context, name string, mealType meal.Type, servingSize string, recipe []RecipeLine) (Dish, error) {
	if name == "" {
		return Dish{}, errors.New("dish name required")
	}
	d := Dish{ID: uuid.NewString(), Name: name, MealType: mealType, ServingSize: servingSize}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Dish{}, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		INSERT INTO dishes (id, name, meal_type, serving_size)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (name) DO UPDATE SET meal_type = EXCLUDED.meal_type, serving_size = EXCLUDED.serving_size
		RETURNING id, created_at
	`, d.ID, d.Name, d.MealType, d.ServingSize)
	if err := row.Scan(&d.ID, &d.CreatedAt); err != nil {
		return Dish{}, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM recipe_items WHERE dish_id = $1`, d.ID); err != nil {
		return Dish{}, err
	}
	for _, line := range recipe {
		if line.Qty <= 0 {
			return Dish{}, fmt.Errorf("bad recipe quantity for item %s", line.ItemID)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO recipe_items (dish_id, item_id, qty) VALUES ($1,$2,$3)
		`, d.ID, line.ItemID, line.Qty); err != nil {
			return Dish{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return Dish{}, err
	}
	d.Recipe = recipe
	return d, nil
}

// GetDish returns a dish with its priced recipe lines.
func (r *Repository) GetDish(ctx context.Context, id string) (Dish, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, meal_type, serving_size, created_at FROM dishes WHERE id = $1
	`, id)
	var d Dish
	if err := row.Scan(&d.ID, &d.Name, &d.MealType, &d.ServingSize, &d.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Dish{}, ErrNotFound
		}
		return Dish{}, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT ri.item_id, i.name, ri.qty, i.price
		FROM recipe_items ri JOIN items i ON i.id = ri.item_id
		WHERE ri.dish_id = $1 ORDER BY i.name
	`, d.ID)
	if err != nil {
		return Dish{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line RecipeLine
		if err := rows.Scan(&line.ItemID, &line.ItemName, &line.Qty, &line.Price); err != nil {
			return Dish{}, err
		}
		d.Recipe = append(d.Recipe, line)
	}
	return d, rows.Err()
}

// ListDishes returns all dishes without recipes.
func (r *Repository) ListDishes(ctx context.Context) ([]Dish, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, meal_type, serving_size, created_at FROM dishes ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Dish
	for rows.Next() {
		var d Dish
		if err := rows.Scan(&d.ID, &d.Name, &d.MealType, &d.ServingSize, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
