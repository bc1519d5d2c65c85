package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"canteen/internal/auth"
	"canteen/internal/billing"
	"canteen/internal/meal"
	"canteen/internal/metrics"
	"canteen/internal/order"
	"canteen/internal/student"
	"canteen/internal/sysconfig"
)

// Service decides access for scanned codes.
type Service struct {
	students  StudentResolver
	orders    OrderStore
	subs      EntitlementSource
	cfg       ConfigSource
	logs      LogStore
	pending   ApprovalStore
	headcount HeadcountSource
}

// NewService wires the scan workflow.
func NewService(students StudentResolver, orders OrderStore, subs EntitlementSource, cfg ConfigSource, logs LogStore, pending ApprovalStore, headcount HeadcountSource) *Service {
	return &Service{students: students, orders: orders, subs: subs, cfg: cfg, logs: logs, pending: pending, headcount: headcount}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// deny writes a refused-attempt log row and builds the response.
func (s *Service) deny(ctx context.Context, req Request, m meal.Type, studentID, orderID, message string) (Response, error) {
	log := Log{
		ID:        uuid.NewString(),
		StudentID: studentID,
		OrderID:   orderID,
		MealType:  m,
		ScanDate:  dateOnly(req.At),
		Result:    ResultDenied,
		DeviceID:  req.DeviceID,
		Message:   message,
		ScannedAt: req.At,
	}
	if err := s.logs.Insert(ctx, log); err != nil {
		return Response{}, fmt.Errorf("write scan log: %w", err)
	}
	metrics.Scans.WithLabelValues(string(ResultDenied), string(m)).Inc()
	return Response{Result: ResultDenied, MealType: m, Message: message}, nil
}

// Scan runs the validation workflow for a scanned code. The returned error
// is reserved for infrastructure failures; every business outcome is a
// Response value.
func (s *Service) Scan(ctx context.Context, req Request) (Response, error) {
	if req.At.IsZero() {
		req.At = time.Now().UTC()
	}
	if req.Code == "" {
		return s.deny(ctx, req, "", "", "", "Invalid QR code")
	}

	snap, err := s.cfg.Snapshot(ctx)
	if err != nil {
		return Response{}, err
	}

	// resolve the code before the window check so unknown codes are always
	// a hard denial, never a pending approval
	stu, err := s.students.FindByQRCode(ctx, req.Code)
	if err != nil {
		return Response{}, fmt.Errorf("resolve student: %w", err)
	}
	if stu == nil {
		ord, err := s.orders.FindByCoupon(ctx, req.Code)
		if err != nil {
			return Response{}, fmt.Errorf("resolve order: %w", err)
		}
		if ord == nil {
			return s.deny(ctx, req, "", "", "", "Invalid QR code")
		}
		return s.scanOrder(ctx, req, snap, ord)
	}

	currentMeal, inWindow := snap.MealWindowAt(req.At)
	if !inWindow {
		return s.outsideWindow(ctx, req, Pending{StudentID: stu.ID}, stu, nil)
	}
	return s.grantStudent(ctx, req, stu.ID, currentMeal)
}

// outsideWindow either queues a pending approval or denies outright,
// depending on the device role.
func (s *Service) outsideWindow(ctx context.Context, req Request, p Pending, stu *student.Student, ord *order.Order) (Response, error) {
	if !auth.Can(req.Role, auth.CapApproveScan) {
		return s.deny(ctx, req, "", p.StudentID, orderID(ord), "Outside meal hours")
	}
	p.Token = uuid.NewString()
	p.DeviceID = req.DeviceID
	p.RequestedAt = req.At
	if err := s.pending.Put(ctx, p); err != nil {
		return Response{}, fmt.Errorf("store pending approval: %w", err)
	}
	return Response{
		Result:           ResultPending,
		RequiresApproval: true,
		ApprovalToken:    p.Token,
		Message:          "Outside meal hours, approval required",
		Student:          stu,
		Order:            ord,
	}, nil
}

func orderID(o *order.Order) string {
	if o == nil {
		return ""
	}
	return o.ID
}

// grantStudent runs the entitlement check and the atomic grant for a
// student scan. Shared by the direct path and manual approval.
func (s *Service) grantStudent(ctx context.Context, req Request, studentID string, m meal.Type) (Response, error) {
	sub, err := s.subs.ActiveCovering(ctx, studentID, req.At)
	if err != nil {
		return Response{}, fmt.Errorf("lookup subscription: %w", err)
	}
	if sub == nil || !billing.Entitled(*sub, m, req.At) {
		return s.deny(ctx, req, m, studentID, "", "No active subscription for this meal")
	}

	log := Log{
		ID:            uuid.NewString(),
		StudentID:     studentID,
		MealType:      m,
		ScanDate:      dateOnly(req.At),
		Result:        ResultSuccess,
		AccessGranted: true,
		DeviceID:      req.DeviceID,
		ScannedAt:     req.At,
	}
	granted, err := s.logs.InsertGrant(ctx, log)
	if err != nil {
		return Response{}, fmt.Errorf("write scan log: %w", err)
	}
	if !granted {
		// already scanned for this meal today; still record the attempt
		dup := log
		dup.ID = uuid.NewString()
		dup.Result = ResultDuplicate
		dup.AccessGranted = false
		dup.Message = "already scanned"
		if err := s.logs.Insert(ctx, dup); err != nil {
			return Response{}, fmt.Errorf("write scan log: %w", err)
		}
		metrics.Scans.WithLabelValues(string(ResultDuplicate), string(m)).Inc()
		return Response{Result: ResultDuplicate, DuplicateScan: true, MealType: m, Message: "already scanned"}, nil
	}

	stu, err := s.students.Get(ctx, studentID)
	if err != nil {
		return Response{}, fmt.Errorf("load student: %w", err)
	}
	metrics.Scans.WithLabelValues(string(ResultSuccess), string(m)).Inc()
	return Response{
		Result:        ResultSuccess,
		AccessGranted: true,
		MealType:      m,
		Student:       &stu,
		LogID:         log.ID,
	}, nil
}

// scanOrder redeems a coupon order. Serving is a single conditional update
// in the store, so a coupon redeems exactly once.
func (s *Service) scanOrder(ctx context.Context, req Request, snap sysconfig.Snapshot, ord *order.Order) (Response, error) {
	if h := snap.QRCodeExpiryHours; h > 0 && req.At.Sub(ord.CreatedAt) > time.Duration(h)*time.Hour {
		return s.deny(ctx, req, ord.MealType, "", ord.ID, "Coupon expired")
	}
	if _, inWindow := snap.MealWindowAt(req.At); !inWindow {
		return s.outsideWindow(ctx, req, Pending{OrderCoupon: ord.CouponCode}, nil, ord)
	}
	return s.serveOrder(ctx, req, ord)
}

func (s *Service) serveOrder(ctx context.Context, req Request, ord *order.Order) (Response, error) {
	served, err := s.orders.ServeByCoupon(ctx, ord.CouponCode)
	if err != nil {
		return Response{}, fmt.Errorf("serve order: %w", err)
	}
	if !served {
		return s.deny(ctx, req, ord.MealType, "", ord.ID, "Order already served or cancelled")
	}

	log := Log{
		ID:            uuid.NewString(),
		OrderID:       ord.ID,
		MealType:      ord.MealType,
		ScanDate:      dateOnly(req.At),
		Result:        ResultSuccess,
		AccessGranted: true,
		DeviceID:      req.DeviceID,
		ScannedAt:     req.At,
	}
	if err := s.logs.Insert(ctx, log); err != nil {
		return Response{}, fmt.Errorf("write scan log: %w", err)
	}
	ord.Status = order.StatusServed
	metrics.Scans.WithLabelValues(string(ResultSuccess), string(ord.MealType)).Inc()
	metrics.OrdersServed.Inc()
	return Response{
		Result:        ResultSuccess,
		AccessGranted: true,
		MealType:      ord.MealType,
		Order:         ord,
		LogID:         log.ID,
	}, nil
}

// Approval is an operator decision on a pending out-of-window scan.
type Approval struct {
	Token    string
	Approved bool
	MealType meal.Type
	DeviceID string
	Role     auth.Role
	At       time.Time
}

// Approve consumes a pending approval exactly once. An expired or unknown
// token is a reported outcome; the grant itself reuses the normal paths so
// duplicate and entitlement rules still hold.
func (s *Service) Approve(ctx context.Context, a Approval) (Response, error) {
	if a.At.IsZero() {
		a.At = time.Now().UTC()
	}
	p, err := s.pending.Take(ctx, a.Token)
	if err != nil {
		return Response{}, fmt.Errorf("take pending approval: %w", err)
	}
	if p == nil {
		return Response{Result: ResultDenied, Message: "Approval expired or unknown"}, nil
	}

	req := Request{DeviceID: a.DeviceID, Role: a.Role, At: a.At}
	if !a.Approved {
		return s.deny(ctx, req, a.MealType, p.StudentID, "", "Approval refused")
	}

	if p.OrderCoupon != "" {
		ord, err := s.orders.FindByCoupon(ctx, p.OrderCoupon)
		if err != nil {
			return Response{}, fmt.Errorf("resolve order: %w", err)
		}
		if ord == nil {
			return s.deny(ctx, req, a.MealType, "", "", "Invalid QR code")
		}
		return s.serveOrder(ctx, req, ord)
	}
	if a.MealType == "" {
		// restore the record so the operator can retry with a meal type
		if err := s.pending.Put(ctx, *p); err != nil {
			return Response{}, fmt.Errorf("restore pending approval: %w", err)
		}
		return Response{Result: ResultDenied, Message: "Meal type required for approval"}, nil
	}
	return s.grantStudent(ctx, req, p.StudentID, a.MealType)
}

// RecentStats summarises today's current meal for the scanner screen.
type RecentStats struct {
	MealType       meal.Type `json:"meal_type,omitempty"`
	ExpectedToCome int       `json:"expected_to_come"`
	Served         int       `json:"served"`
}

// HeadcountSource provides expected diner counts per meal.
type HeadcountSource interface {
	CountActiveByMeal(ctx context.Context, day time.Time) (map[meal.Type]int, error)
}

// RecentScans returns the latest scan rows plus live stats for the meal in
// progress.
func (s *Service) RecentScans(ctx context.Context, limit int, now time.Time) ([]Log, RecentStats, error) {
	logs, err := s.logs.Recent(ctx, limit)
	if err != nil {
		return nil, RecentStats{}, err
	}

	snap, err := s.cfg.Snapshot(ctx)
	if err != nil {
		return nil, RecentStats{}, err
	}
	stats := RecentStats{}
	if m, ok := snap.MealWindowAt(now); ok {
		stats.MealType = m
		served, err := s.logs.GrantedCount(ctx, dateOnly(now), m)
		if err != nil {
			return nil, RecentStats{}, err
		}
		stats.Served = served
		counts, err := s.headcount.CountActiveByMeal(ctx, now)
		if err != nil {
			return nil, RecentStats{}, err
		}
		if expected := counts[m] - served; expected > 0 {
			stats.ExpectedToCome = expected
		}
	}
	return logs, stats, nil
}
