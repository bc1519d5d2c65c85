package scanner

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"canteen/internal/meal"
)

// Repository persists scan logs and daily tallies in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// InsertGrant writes a granted scan row as a conditional insert against the
// partial unique index on (student_id, meal_type, scan_date). Zero rows
// inserted means another grant already exists for the triple.
func (r *Repository) InsertGrant(ctx context.Context, log Log) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO scan_logs (id, student_id, order_id, meal_type, scan_date, result, access_granted, device_id, message, scanned_at)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6, TRUE, $7, $8, $9)
		ON CONFLICT (student_id, meal_type, scan_date) WHERE access_granted AND student_id IS NOT NULL
		DO NOTHING
	`, log.ID, log.StudentID, log.OrderID, log.MealType, log.ScanDate, log.Result, log.DeviceID, log.Message, log.ScannedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Insert appends a non-granting audit row (denial or duplicate attempt).
func (r *Repository) Insert(ctx context.Context, log Log) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO scan_logs (id, student_id, order_id, meal_type, scan_date, result, access_granted, device_id, message, scanned_at)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10)
	`, log.ID, log.StudentID, log.OrderID, log.MealType, log.ScanDate, log.Result, log.AccessGranted, log.DeviceID, log.Message, log.ScannedAt)
	return err
}

// Get returns one scan log row by id.
func (r *Repository) Get(ctx context.Context, id string) (Log, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, COALESCE(student_id, ''), COALESCE(order_id, ''), meal_type, scan_date,
			result, access_granted, device_id, message, scanned_at
		FROM scan_logs WHERE id = $1
	`, id)
	var l Log
	err := row.Scan(&l.ID, &l.StudentID, &l.OrderID, &l.MealType, &l.ScanDate,
		&l.Result, &l.AccessGranted, &l.DeviceID, &l.Message, &l.ScannedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Log{}, errors.New("scan log not found")
	}
	return l, err
}

// Recent returns the newest scan rows with student names for display.
func (r *Repository) Recent(ctx context.Context, limit int) ([]Log, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT sl.id, COALESCE(sl.student_id, ''), COALESCE(s.name, ''), COALESCE(sl.order_id, ''),
			sl.meal_type, sl.scan_date, sl.result, sl.access_granted, sl.device_id, sl.message, sl.scanned_at
		FROM scan_logs sl LEFT JOIN students s ON s.id = sl.student_id
		ORDER BY sl.scanned_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Log
	for rows.Next() {
		var l Log
		if err := rows.Scan(&l.ID, &l.StudentID, &l.StudentName, &l.OrderID, &l.MealType, &l.ScanDate,
			&l.Result, &l.AccessGranted, &l.DeviceID, &l.Message, &l.ScannedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// ListByDate returns every scan row for a day in chronological order;
// feeds the attendance export.
func (r *Repository) ListByDate(ctx context.Context, day time.Time) ([]Log, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT sl.id, COALESCE(sl.student_id, ''), COALESCE(s.name, ''), COALESCE(sl.order_id, ''),
			sl.meal_type, sl.scan_date, sl.result, sl.access_granted, sl.device_id, sl.message, sl.scanned_at
		FROM scan_logs sl LEFT JOIN students s ON s.id = sl.student_id
		WHERE sl.scan_date = $1
		ORDER BY sl.scanned_at
	`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Log
	for rows.Next() {
		var l Log
		if err := rows.Scan(&l.ID, &l.StudentID, &l.StudentName, &l.OrderID, &l.MealType, &l.ScanDate,
			&l.Result, &l.AccessGranted, &l.DeviceID, &l.Message, &l.ScannedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// GrantedCount counts granted scans for a meal and day.
func (r *Repository) GrantedCount(ctx context.Context, day time.Time, m meal.Type) (int, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM scan_logs WHERE scan_date = $1 AND meal_type = $2 AND access_granted
	`, day, m)
	var n int
	err := row.Scan(&n)
	return n, err
}

// BumpTally increments the served tally for a meal and day; used by the
// worker when it consumes scan events.
func (r *Repository) BumpTally(ctx context.Context, day time.Time, m meal.Type) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO daily_tallies (tally_date, meal_type, served)
		VALUES ($1, $2, 1)
		ON CONFLICT (tally_date, meal_type) DO UPDATE SET served = daily_tallies.served + 1
	`, day, m)
	return err
}

// Tallies returns the served counts per meal for a day.
func (r *Repository) Tallies(ctx context.Context, day time.Time) (map[meal.Type]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT meal_type, served FROM daily_tallies WHERE tally_date = $1
	`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[meal.Type]int{}
	for rows.Next() {
		var m meal.Type
		var n int
		if err := rows.Scan(&m, &n); err != nil {
			return nil, err
		}
		out[m] = n
	}
	return out, rows.Err()
}
