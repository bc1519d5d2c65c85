package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"canteen/internal/meal"
	"canteen/internal/scanner"
)

func TestWriteAttendanceXLSX(t *testing.T) {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	logs := []scanner.Log{
		{
			StudentName:   "Asha",
			MealType:      meal.Lunch,
			Result:        scanner.ResultSuccess,
			AccessGranted: true,
			DeviceID:      "gate-1",
			ScannedAt:     time.Date(2024, 1, 15, 12, 30, 0, 0, time.UTC),
		},
		{
			StudentName: "Ravi",
			MealType:    meal.Lunch,
			Result:      scanner.ResultDuplicate,
			DeviceID:    "gate-1",
			Message:     "already scanned",
			ScannedAt:   time.Date(2024, 1, 15, 12, 45, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	if err := WriteAttendanceXLSX(&buf, day, logs); err != nil {
		t.Fatalf("WriteAttendanceXLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	got, err := f.GetCellValue("Attendance", "B2")
	if err != nil {
		t.Fatalf("GetCellValue() error = %v", err)
	}
	if got != "Asha" {
		t.Errorf("B2 = %q, want Asha", got)
	}
	if got, _ := f.GetCellValue("Attendance", "E3"); got != "DUPLICATE" {
		t.Errorf("E3 = %q, want DUPLICATE", got)
	}
	if got, _ := f.GetCellValue("Attendance", "F2"); got != "yes" {
		t.Errorf("F2 = %q, want yes", got)
	}
	if got, _ := f.GetCellValue("Attendance", "K1"); got != "2024-01-15" {
		t.Errorf("K1 = %q, want report date", got)
	}
}
