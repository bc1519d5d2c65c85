package catalog

import "testing"

func TestDishCost(t *testing.T) {
	d := Dish{Recipe: []RecipeLine{
		{ItemID: "rice", Qty: 0.2, Price: 60},   // 12.00
		{ItemID: "dal", Qty: 0.05, Price: 120},  // 6.00
		{ItemID: "ghee", Qty: 0.01, Price: 600}, // 6.00
	}}
	if got, want := d.Cost(), 24.0; got != want {
		t.Errorf("Cost() = %v, want %v", got, want)
	}
	if got := (Dish{}).Cost(); got != 0 {
		t.Errorf("empty recipe Cost() = %v, want 0", got)
	}
}

func TestItemLowStock(t *testing.T) {
	tests := []struct {
		stock, reorder float64
		want           bool
	}{
		{10, 5, false},
		{5, 5, true},
		{2, 5, true},
		{0, 0, true},
	}
	for _, tt := range tests {
		it := Item{StockQty: tt.stock, ReorderLevel: tt.reorder}
		if got := it.LowStock(); got != tt.want {
			t.Errorf("LowStock(stock=%v reorder=%v) = %v, want %v", tt.stock, tt.reorder, got, tt.want)
		}
	}
}
