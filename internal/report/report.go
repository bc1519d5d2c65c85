package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"canteen/internal/billing"
	"canteen/internal/catalog"
	"canteen/internal/meal"
	"canteen/internal/scanner"
)

// Dashboard aggregates today's numbers for the admin landing page.
type Dashboard struct {
	Date                string            `json:"date"`
	PlannedHeadcount    map[meal.Type]int `json:"planned_headcount"`
	Served              map[meal.Type]int `json:"served"`
	LowStockItems       int               `json:"low_stock_items"`
	ActiveSubscriptions int               `json:"active_subscriptions"`
}

// Service computes dashboard aggregates and spreadsheet exports.
type Service struct {
	catalog *catalog.Repository
	billing *billing.Repository
	scans   *scanner.Repository
}

// NewService creates a report service.
func NewService(cat *catalog.Repository, bil *billing.Repository, scans *scanner.Repository) *Service {
	return &Service{catalog: cat, billing: bil, scans: scans}
}

// Dashboard assembles the aggregate view for a day.
func (s *Service) Dashboard(ctx context.Context, day time.Time) (Dashboard, error) {
	d := Dashboard{Date: day.Format("2006-01-02")}

	planned, err := s.billing.CountActiveByMeal(ctx, day)
	if err != nil {
		return Dashboard{}, fmt.Errorf("planned headcount: %w", err)
	}
	d.PlannedHeadcount = planned

	served, err := s.scans.Tallies(ctx, day)
	if err != nil {
		return Dashboard{}, fmt.Errorf("tallies: %w", err)
	}
	d.Served = served

	low, err := s.catalog.ListItems(ctx, true)
	if err != nil {
		return Dashboard{}, fmt.Errorf("low stock: %w", err)
	}
	d.LowStockItems = len(low)

	byStatus, err := s.billing.CountByStatus(ctx)
	if err != nil {
		return Dashboard{}, fmt.Errorf("subscription counts: %w", err)
	}
	d.ActiveSubscriptions = byStatus[billing.StatusActive]
	return d, nil
}

// Attendance returns the day's scan rows for export.
func (s *Service) Attendance(ctx context.Context, day time.Time) ([]scanner.Log, error) {
	return s.scans.ListByDate(ctx, day)
}

var attendanceHeader = []string{"Scanned At", "Student", "Order", "Meal", "Result", "Granted", "Device", "Message"}

// WriteAttendanceXLSX renders scan rows as a spreadsheet.
func WriteAttendanceXLSX(w io.Writer, day time.Time, logs []scanner.Log) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const sheet = "Attendance"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, "A1", &attendanceHeader); err != nil {
		return err
	}

	for i, l := range logs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		granted := "no"
		if l.AccessGranted {
			granted = "yes"
		}
		row := []any{
			l.ScannedAt.Format("2006-01-02 15:04:05"),
			l.StudentName,
			l.OrderID,
			string(l.MealType),
			string(l.Result),
			granted,
			l.DeviceID,
			l.Message,
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	if err := f.SetCellValue(sheet, "J1", "Report date"); err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, "K1", day.Format("2006-01-02")); err != nil {
		return err
	}
	return f.Write(w)
}
