package student

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UserType distinguishes students from mess employees.
type UserType string

const (
	TypeStudent  UserType = "STUDENT"
	TypeEmployee UserType = "EMPLOYEE"
)

var (
	// ErrNotFound is returned when no student matches.
	ErrNotFound = errors.New("student not found")
	// ErrDuplicate is returned when register number already exists.
	ErrDuplicate = errors.New("register number already enrolled")
)

// Student is an enrolled diner. QRCode is assigned once at enrollment and
// never changes.
type Student struct {
	ID             string    `json:"id"`
	RegisterNumber string    `json:"register_number"`
	Name           string    `json:"name"`
	UserType       UserType  `json:"user_type"`
	Department     string    `json:"department"`
	QRCode         string    `json:"qr_code"`
	PhotoURL       string    `json:"photo_url"`
	CreatedAt      time.Time `json:"created_at"`
}

// Repository persists students in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const studentCols = `id, register_number, name, user_type, department, qr_code, photo_url, created_at`

func scanStudent(row interface{ Scan(...any) error }) (Student, error) {
	var s Student
	err := row.Scan(&s.ID, &s.RegisterNumber, &s.Name, &s.UserType, &s.Department, &s.QRCode, &s.PhotoURL, &s.CreatedAt)
	return s, err
}

// Create enrolls a student, minting the immutable QR token.
func (r *Repository) Create(ctx context.Context, registerNumber, name string, userType UserType, department, photoURL string) (Student, error) {
	if registerNumber == "" || name == "" {
		return Student{}, errors.New("register number and name required")
	}
	if userType != TypeEmployee {
		userType = TypeStudent
	}
	s := Student{
		ID:             uuid.NewString(),
		RegisterNumber: registerNumber,
		Name:           name,
		UserType:       userType,
		Department:     department,
		QRCode:         uuid.NewString(),
		PhotoURL:       photoURL,
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO students (id, register_number, name, user_type, department, qr_code, photo_url)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at
	`, s.ID, s.RegisterNumber, s.Name, s.UserType, s.Department, s.QRCode, s.PhotoURL)
	if err := row.Scan(&s.CreatedAt); err != nil {
		if strings.Contains(err.Error(), "students_register_number_key") {
			return Student{}, ErrDuplicate
		}
		return Student{}, err
	}
	return s, nil
}

// Get returns a student by id.
func (r *Repository) Get(ctx context.Context, id string) (Student, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+studentCols+` FROM students WHERE id = $1`, id)
	s, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Student{}, ErrNotFound
	}
	return s, err
}

// FindByQRCode resolves a scanned code to a student.
func (r *Repository) FindByQRCode(ctx context.Context, code string) (*Student, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+studentCols+` FROM students WHERE qr_code = $1`, code)
	s, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateProfile mutates profile fields only; register number and QR token
// stay fixed.
func (r *Repository) UpdateProfile(ctx context.Context, id, name, department, photoURL string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE students SET name = $2, department = $3, photo_url = $4 WHERE id = $1
	`, id, name, department, photoURL)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns students ordered by register number.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]Student, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+studentCols+` FROM students ORDER BY register_number LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
