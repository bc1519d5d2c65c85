package main

import (
	"context"
	"errors"
	"os"
	"time"

	"canteen/internal/auth"
	"canteen/internal/billing"
	"canteen/internal/catalog"
	"canteen/internal/config"
	"canteen/internal/logger"
	"canteen/internal/meal"
	"canteen/internal/store"
	"canteen/internal/student"
	"canteen/internal/sysconfig"
)

// Seed loads demo data: staff accounts, measurement units, a vendor with
// stocked items, dishes with recipes, meal packages, and a few students.
// Every write is an upsert or existence-checked, so reruns are safe.
func main() {
	cfg, err := config.Load(os.Getenv("CANTEEN_CONFIG"))
	if err != nil {
		panic(err)
	}
	log := logger.New(cfg.Env)

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		log.Error("migrate failed", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := seed(ctx, db); err != nil {
		log.Error("seed failed", "err", err)
		os.Exit(1)
	}
	log.Info("seed complete")
}

func seed(ctx context.Context, db *store.DB) error {
	authRepo := auth.NewRepository(db.Client)
	catalogRepo := catalog.NewRepository(db.Client)
	billingRepo := billing.NewRepository(db.Client)
	students := student.NewRepository(db.Client)
	configRepo := sysconfig.NewRepository(db.Client)

	users := []struct {
		name     string
		password string
		role     auth.Role
	}{
		{"admin", "admin123", auth.RoleAdmin},
		{"chef", "chef123", auth.RoleChef},
		{"store", "store123", auth.RoleStore},
		{"cook", "cook123", auth.RoleCook},
		{"fnb", "fnb123", auth.RoleFnbManager},
	}
	for _, u := range users {
		if err := authRepo.CreateUser(ctx, u.name, u.password, u.role); err != nil {
			return err
		}
	}

	units := []struct{ name, abbr string }{
		{"kilogram", "kg"}, {"gram", "g"}, {"litre", "l"}, {"millilitre", "ml"}, {"piece", "pc"},
	}
	for _, u := range units {
		if err := catalogRepo.UpsertUnit(ctx, u.name, u.abbr); err != nil {
			return err
		}
	}
	for _, c := range []string{"grains", "vegetables", "dairy", "spices", "oil"} {
		if err := catalogRepo.UpsertCategory(ctx, c); err != nil {
			return err
		}
	}

	vendor, err := catalogRepo.UpsertVendor(ctx, catalog.Vendor{
		Name:    "Fresh Farms Co",
		Contact: "9876543210",
		Email:   "orders@freshfarms.example",
		Address: "12 Market Road",
	})
	if err != nil {
		return err
	}

	items := []catalog.Item{
		{Name: "Rice", Unit: "kilogram", Category: "grains", VendorID: vendor.ID, StockQty: 200, ReorderLevel: 50, Price: 55},
		{Name: "Toor Dal", Unit: "kilogram", Category: "grains", VendorID: vendor.ID, StockQty: 80, ReorderLevel: 20, Price: 140},
		{Name: "Potato", Unit: "kilogram", Category: "vegetables", VendorID: vendor.ID, StockQty: 120, ReorderLevel: 30, Price: 32},
		{Name: "Milk", Unit: "litre", Category: "dairy", VendorID: vendor.ID, StockQty: 60, ReorderLevel: 25, Price: 52},
		{Name: "Sunflower Oil", Unit: "litre", Category: "oil", VendorID: vendor.ID, StockQty: 40, ReorderLevel: 10, Price: 130},
	}
	byName := map[string]string{}
	for _, it := range items {
		saved, err := catalogRepo.UpsertItem(ctx, it)
		if err != nil {
			return err
		}
		byName[saved.Name] = saved.ID
	}

	dishes := []struct {
		name    string
		mt      meal.Type
		serving string
		recipe  []catalog.RecipeLine
	}{
		{"Idli Sambar", meal.Breakfast, "4 pieces", []catalog.RecipeLine{
			{ItemID: byName["Rice"], Qty: 0.1}, {ItemID: byName["Toor Dal"], Qty: 0.05},
		}},
		{"Veg Meals", meal.Lunch, "1 plate", []catalog.RecipeLine{
			{ItemID: byName["Rice"], Qty: 0.25}, {ItemID: byName["Toor Dal"], Qty: 0.06}, {ItemID: byName["Potato"], Qty: 0.1},
		}},
		{"Masala Chai", meal.Snacks, "1 cup", []catalog.RecipeLine{
			{ItemID: byName["Milk"], Qty: 0.15},
		}},
		{"Chapati Curry", meal.Dinner, "3 pieces", []catalog.RecipeLine{
			{ItemID: byName["Potato"], Qty: 0.12}, {ItemID: byName["Sunflower Oil"], Qty: 0.02},
		}},
	}
	for _, d := range dishes {
		if _, err := catalogRepo.UpsertDish(ctx, d.name, d.mt, d.serving, d.recipe); err != nil {
			return err
		}
	}

	packages := []struct {
		name  string
		days  int
		price float64
		meals meal.Set
	}{
		{"Full Board Monthly", 30, 3600, meal.Set{meal.Breakfast: true, meal.Lunch: true, meal.Snacks: true, meal.Dinner: true}},
		{"Lunch Only Monthly", 30, 1500, meal.Set{meal.Lunch: true}},
		{"Weekly Trial", 7, 950, meal.Set{meal.Breakfast: true, meal.Lunch: true, meal.Dinner: true}},
	}
	existing, err := billingRepo.ListPackages(ctx)
	if err != nil {
		return err
	}
	have := map[string]bool{}
	for _, p := range existing {
		have[p.Name] = true
	}
	for _, p := range packages {
		if have[p.name] {
			continue
		}
		if _, err := billingRepo.CreatePackage(ctx, p.name, p.days, p.price, p.meals); err != nil {
			return err
		}
	}

	demo := []struct {
		reg, name, dept string
	}{
		{"21CS001", "Asha Nair", "Computer Science"},
		{"21ME014", "Ravi Kumar", "Mechanical"},
		{"22EC042", "Priya Sharma", "Electronics"},
	}
	for _, s := range demo {
		if _, err := students.Create(ctx, s.reg, s.name, student.TypeStudent, s.dept, ""); err != nil {
			if errors.Is(err, student.ErrDuplicate) {
				continue
			}
			return err
		}
	}

	seedConfig := map[string]string{
		"breakfast_start":      "07:00",
		"breakfast_end":        "09:30",
		"lunch_start":          "12:00",
		"lunch_end":            "14:30",
		"snacks_start":         "16:30",
		"snacks_end":           "18:00",
		"dinner_start":         "19:00",
		"dinner_end":           "21:30",
		"auto_mark_attendance": "true",
		"qr_code_expiry_hours": "24",
	}
	for k, v := range seedConfig {
		if err := configRepo.Set(ctx, k, v); err != nil {
			return err
		}
	}
	return nil
}
