package scanner

import (
	"context"
	"time"

	"canteen/internal/auth"
	"canteen/internal/billing"
	"canteen/internal/meal"
	"canteen/internal/order"
	"canteen/internal/student"
	"canteen/internal/sysconfig"
)

// Result classifies a scan attempt.
type Result string

const (
	ResultSuccess   Result = "SUCCESS"
	ResultDuplicate Result = "DUPLICATE"
	ResultDenied    Result = "DENIED"
	// ResultPending is a response-only state; scan logs never carry it.
	ResultPending Result = "PENDING"
)

// Request is one scan from a station.
type Request struct {
	Code     string
	DeviceID string
	Role     auth.Role
	At       time.Time
}

// Response is the decision for a scan. Business outcomes (invalid code, no
// subscription, duplicate, out of window) are reported here, never as
// errors.
type Response struct {
	Result           Result           `json:"result"`
	AccessGranted    bool             `json:"access_granted"`
	DuplicateScan    bool             `json:"duplicate_scan,omitempty"`
	RequiresApproval bool             `json:"requires_approval,omitempty"`
	ApprovalToken    string           `json:"approval_token,omitempty"`
	MealType         meal.Type        `json:"meal_type,omitempty"`
	Message          string           `json:"message,omitempty"`
	Student          *student.Student `json:"student,omitempty"`
	Order            *order.Order     `json:"order,omitempty"`
	LogID            string           `json:"-"`
}

// Log is an append-only scan audit row.
type Log struct {
	ID            string    `json:"id"`
	StudentID     string    `json:"student_id,omitempty"`
	StudentName   string    `json:"student_name,omitempty"`
	OrderID       string    `json:"order_id,omitempty"`
	MealType      meal.Type `json:"meal_type"`
	ScanDate      time.Time `json:"scan_date"`
	Result        Result    `json:"result"`
	AccessGranted bool      `json:"access_granted"`
	DeviceID      string    `json:"device_id"`
	Message       string    `json:"message,omitempty"`
	ScannedAt     time.Time `json:"scanned_at"`
}

// Pending is a server-held approval awaiting an operator decision.
type Pending struct {
	Token       string    `json:"token"`
	StudentID   string    `json:"student_id,omitempty"`
	OrderCoupon string    `json:"order_coupon,omitempty"`
	DeviceID    string    `json:"device_id"`
	RequestedAt time.Time `json:"requested_at"`
}

// StudentResolver resolves QR tokens to students.
type StudentResolver interface {
	FindByQRCode(ctx context.Context, code string) (*student.Student, error)
	Get(ctx context.Context, id string) (student.Student, error)
}

// OrderStore resolves and redeems coupon orders.
type OrderStore interface {
	FindByCoupon(ctx context.Context, coupon string) (*order.Order, error)
	ServeByCoupon(ctx context.Context, coupon string) (bool, error)
}

// EntitlementSource finds the honourable subscription for a student and day.
type EntitlementSource interface {
	ActiveCovering(ctx context.Context, studentID string, day time.Time) (*billing.Subscription, error)
}

// ConfigSource supplies the typed config snapshot.
type ConfigSource interface {
	Snapshot(ctx context.Context) (sysconfig.Snapshot, error)
}

// LogStore persists scan logs. InsertGrant must be atomic: when a granted
// row for the same (student, meal, date) already exists it inserts nothing
// and reports false.
type LogStore interface {
	InsertGrant(ctx context.Context, log Log) (granted bool, err error)
	Insert(ctx context.Context, log Log) error
	Recent(ctx context.Context, limit int) ([]Log, error)
	GrantedCount(ctx context.Context, day time.Time, m meal.Type) (int, error)
}

// ApprovalStore holds pending approvals with an expiry; Take consumes a
// record at most once.
type ApprovalStore interface {
	Put(ctx context.Context, p Pending) error
	Take(ctx context.Context, token string) (*Pending, error)
}
