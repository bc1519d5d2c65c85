package catalog

import (
	"errors"
	"time"

	"canteen/internal/meal"
)

// ErrNotFound is returned when a catalog record is missing.
var ErrNotFound = errors.New("catalog: not found")

// Vendor supplies stock items.
type Vendor struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Contact   string    `json:"contact"`
	Email     string    `json:"email"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

// Item is a stocked ingredient.
type Item struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Unit         string    `json:"unit"`
	Category     string    `json:"category"`
	VendorID     string    `json:"vendor_id,omitempty"`
	StockQty     float64   `json:"stock_qty"`
	ReorderLevel float64   `json:"reorder_level"`
	Price        float64   `json:"price"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// LowStock reports whether the item is at or below its reorder level.
func (i Item) LowStock() bool { return i.StockQty <= i.ReorderLevel }

// RecipeLine is one ingredient of a dish.
type RecipeLine struct {
	ItemID   string  `json:"item_id"`
	ItemName string  `json:"item_name,omitempty"`
	Qty      float64 `json:"qty"`
	Price    float64 `json:"price,omitempty"`
}

// Dish is a prepared menu entry with a recipe.
type Dish struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	MealType    meal.Type    `json:"meal_type"`
	ServingSize string       `json:"serving_size"`
	Recipe      []RecipeLine `json:"recipe,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Cost sums ingredient price times quantity across the recipe.
func (d Dish) Cost() float64 {
	var total float64
	for _, line := range d.Recipe {
		total += line.Qty * line.Price
	}
	return total
}
