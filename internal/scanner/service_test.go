package scanner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"canteen/internal/billing"
	"canteen/internal/meal"
	"canteen/internal/order"
	"canteen/internal/student"
	"canteen/internal/sysconfig"
)

type fakeStudents struct {
	byCode map[string]student.Student
}

func (f *fakeStudents) FindByQRCode(_ context.Context, code string) (*student.Student, error) {
	if s, ok := f.byCode[code]; ok {
		return &s, nil
	}
	return nil, nil
}

func (f *fakeStudents) Get(_ context.Context, id string) (student.Student, error) {
	for _, s := range f.byCode {
		if s.ID == id {
			return s, nil
		}
	}
	return student.Student{}, errors.New("student not found")
}

type fakeOrders struct {
	mu       sync.Mutex
	byCoupon map[string]*order.Order
}

func (f *fakeOrders) FindByCoupon(_ context.Context, coupon string) (*order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.byCoupon[coupon]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeOrders) ServeByCoupon(_ context.Context, coupon string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.byCoupon[coupon]
	if !ok || (o.Status != order.StatusConfirmed && o.Status != order.StatusPrepared) {
		return false, nil
	}
	o.Status = order.StatusServed
	return true, nil
}

type fakeSubs struct {
	subs []billing.Subscription
}

func (f *fakeSubs) ActiveCovering(_ context.Context, studentID string, day time.Time) (*billing.Subscription, error) {
	var best *billing.Subscription
	for i := range f.subs {
		s := f.subs[i]
		if s.StudentID != studentID || s.Status != billing.StatusActive || !s.Covers(day) {
			continue
		}
		if best == nil || s.CreatedAt.After(best.CreatedAt) {
			best = &f.subs[i]
		}
	}
	return best, nil
}

type fakeConfig struct {
	snap sysconfig.Snapshot
}

func (f *fakeConfig) Snapshot(context.Context) (sysconfig.Snapshot, error) { return f.snap, nil }

// fakeLogs honours the LogStore contract: InsertGrant refuses a second
// granted row for the same (student, meal, date) under a lock, the same
// guarantee the partial unique index gives the real store.
type fakeLogs struct {
	mu   sync.Mutex
	rows []Log
}

func (f *fakeLogs) key(l Log) string {
	return l.StudentID + "|" + string(l.MealType) + "|" + l.ScanDate.Format("2006-01-02")
}

func (f *fakeLogs) InsertGrant(_ context.Context, log Log) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.AccessGranted && r.StudentID != "" && f.key(r) == f.key(log) {
			return false, nil
		}
	}
	log.AccessGranted = true
	f.rows = append(f.rows, log)
	return true, nil
}

func (f *fakeLogs) Insert(_ context.Context, log Log) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, log)
	return nil
}

func (f *fakeLogs) Recent(_ context.Context, limit int) ([]Log, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]Log(nil), f.rows...)
	if len(out) > limit && limit > 0 {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *fakeLogs) GrantedCount(_ context.Context, day time.Time, m meal.Type) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.rows {
		if r.AccessGranted && r.MealType == m && r.ScanDate.Equal(day) {
			n++
		}
	}
	return n, nil
}

func (f *fakeLogs) grants() []Log {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Log
	for _, r := range f.rows {
		if r.AccessGranted {
			out = append(out, r)
		}
	}
	return out
}

type fakeApprovals struct {
	mu    sync.Mutex
	store map[string]Pending
}

func (f *fakeApprovals) Put(_ context.Context, p Pending) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.store == nil {
		f.store = map[string]Pending{}
	}
	f.store[p.Token] = p
	return nil
}

func (f *fakeApprovals) Take(_ context.Context, token string) (*Pending, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.store[token]
	if !ok {
		return nil, nil
	}
	delete(f.store, token)
	return &p, nil
}

func testSnapshot() sysconfig.Snapshot {
	return sysconfig.Snapshot{Windows: map[meal.Type]sysconfig.Window{
		meal.Breakfast: {Start: 7 * 60, End: 9*60 + 30},
		meal.Lunch:     {Start: 12 * 60, End: 14*60 + 30},
		meal.Snacks:    {Start: 16*60 + 30, End: 18 * 60},
		meal.Dinner:    {Start: 19 * 60, End: 21*60 + 30},
	}}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fixture struct {
	svc      *Service
	students *fakeStudents
	orders   *fakeOrders
	subs     *fakeSubs
	logs     *fakeLogs
	pending  *fakeApprovals
}

func newFixture() *fixture {
	f := &fixture{
		students: &fakeStudents{byCode: map[string]student.Student{}},
		orders:   &fakeOrders{byCoupon: map[string]*order.Order{}},
		subs:     &fakeSubs{},
		logs:     &fakeLogs{},
		pending:  &fakeApprovals{},
	}
	f.svc = NewService(f.students, f.orders, f.subs, &fakeConfig{snap: testSnapshot()}, f.logs, f.pending, headcountFromSubs{f.subs})
	return f
}

func (f *fixture) addStudent(id, code string) {
	f.students.byCode[code] = student.Student{ID: id, RegisterNumber: "R-" + id, Name: "Student " + id, QRCode: code}
}

func (f *fixture) addSubscription(studentID string, start, end time.Time, meals meal.Set) {
	f.subs.subs = append(f.subs.subs, billing.Subscription{
		ID: "sub-" + studentID, StudentID: studentID,
		StartDate: start, EndDate: end,
		Status: billing.StatusActive, Meals: meals,
		CreatedAt: time.Now(),
	})
}

func lunchTime(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 30, 0, 0, time.UTC)
}

func TestScanInvalidCode(t *testing.T) {
	f := newFixture()
	resp, err := f.svc.Scan(context.Background(), Request{Code: "nope", DeviceID: "gate-1", At: lunchTime(2024, 1, 15)})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if resp.Result != ResultDenied || resp.AccessGranted {
		t.Errorf("resp = %+v, want DENIED", resp)
	}
	if resp.Message != "Invalid QR code" {
		t.Errorf("message = %q", resp.Message)
	}
	if len(f.logs.rows) != 1 || f.logs.rows[0].AccessGranted {
		t.Errorf("want exactly one ungranted log row, got %+v", f.logs.rows)
	}
}

func TestScanNoSubscription(t *testing.T) {
	f := newFixture()
	f.addStudent("s1", "qr-1")
	resp, err := f.svc.Scan(context.Background(), Request{Code: "qr-1", DeviceID: "gate-1", At: lunchTime(2024, 1, 15)})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if resp.Result != ResultDenied || resp.AccessGranted {
		t.Errorf("resp = %+v, want DENIED", resp)
	}
	if resp.Message != "No active subscription for this meal" {
		t.Errorf("message = %q", resp.Message)
	}
	if len(f.logs.rows) != 1 || f.logs.rows[0].AccessGranted {
		t.Errorf("want one ungranted log row, got %+v", f.logs.rows)
	}
}

func TestScanGrantThenDuplicate(t *testing.T) {
	f := newFixture()
	f.addStudent("s1", "qr-1")
	f.addSubscription("s1", day(2024, 1, 1), day(2024, 1, 31), meal.Set{meal.Lunch: true, meal.Dinner: true})

	first, err := f.svc.Scan(context.Background(), Request{Code: "qr-1", DeviceID: "gate-1", At: lunchTime(2024, 1, 15)})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if !first.AccessGranted || first.Result != ResultSuccess || first.MealType != meal.Lunch {
		t.Fatalf("first = %+v, want granted LUNCH", first)
	}
	if first.Student == nil || first.Student.ID != "s1" {
		t.Errorf("first.Student = %+v", first.Student)
	}

	second, err := f.svc.Scan(context.Background(), Request{Code: "qr-1", DeviceID: "gate-1", At: time.Date(2024, 1, 15, 12, 45, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if second.Result != ResultDuplicate || !second.DuplicateScan || second.AccessGranted {
		t.Errorf("second = %+v, want DUPLICATE", second)
	}

	if got := len(f.logs.grants()); got != 1 {
		t.Errorf("granted rows = %d, want 1", got)
	}
	if got := len(f.logs.rows); got != 2 {
		t.Errorf("total rows = %d, want 2 (grant + duplicate attempt)", got)
	}
}

func TestScanMealNotInPackage(t *testing.T) {
	f := newFixture()
	f.addStudent("s1", "qr-1")
	f.addSubscription("s1", day(2024, 1, 1), day(2024, 1, 31), meal.Set{meal.Lunch: true, meal.Dinner: true})

	resp, err := f.svc.Scan(context.Background(), Request{Code: "qr-1", DeviceID: "gate-1", At: time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if resp.AccessGranted || resp.Result != ResultDenied {
		t.Errorf("breakfast scan = %+v, want DENIED", resp)
	}
}

func TestScanEndDateInclusive(t *testing.T) {
	f := newFixture()
	f.addStudent("s1", "qr-1")
	f.addSubscription("s1", day(2024, 1, 1), day(2024, 1, 31), meal.Set{meal.Lunch: true})

	onEnd, err := f.svc.Scan(context.Background(), Request{Code: "qr-1", At: lunchTime(2024, 1, 31)})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if !onEnd.AccessGranted {
		t.Errorf("scan on end date = %+v, want granted", onEnd)
	}

	after, err := f.svc.Scan(context.Background(), Request{Code: "qr-1", At: lunchTime(2024, 2, 1)})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if after.AccessGranted {
		t.Errorf("scan after end date = %+v, want denied", after)
	}
}

func TestScanConcurrentSingleGrant(t *testing.T) {
	f := newFixture()
	f.addStudent("s1", "qr-1")
	f.addSubscription("s1", day(2024, 1, 1), day(2024, 1, 31), meal.Set{meal.Lunch: true})

	const workers = 16
	var wg sync.WaitGroup
	granted := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := f.svc.Scan(context.Background(), Request{Code: "qr-1", At: lunchTime(2024, 1, 15)})
			if err != nil {
				t.Errorf("Scan() error = %v", err)
				return
			}
			granted <- resp.AccessGranted
		}()
	}
	wg.Wait()
	close(granted)

	grants := 0
	for g := range granted {
		if g {
			grants++
		}
	}
	if grants != 1 {
		t.Errorf("concurrent grants = %d, want exactly 1", grants)
	}
	if got := len(f.logs.grants()); got != 1 {
		t.Errorf("granted log rows = %d, want 1", got)
	}
}

func TestScanOrderServeExactlyOnce(t *testing.T) {
	f := newFixture()
	f.orders.byCoupon["coupon-1"] = &order.Order{
		ID: "o1", CouponCode: "coupon-1", MealType: meal.Lunch,
		Status: order.StatusConfirmed, CreatedAt: lunchTime(2024, 1, 15).Add(-time.Hour),
	}

	first, err := f.svc.Scan(context.Background(), Request{Code: "coupon-1", At: lunchTime(2024, 1, 15)})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if !first.AccessGranted || first.Order == nil || first.Order.Status != order.StatusServed {
		t.Fatalf("first = %+v, want granted and SERVED", first)
	}

	second, err := f.svc.Scan(context.Background(), Request{Code: "coupon-1", At: lunchTime(2024, 1, 15)})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if second.AccessGranted || second.Result != ResultDenied {
		t.Errorf("second = %+v, want DENIED", second)
	}
}

func TestScanOrderTerminalStatesDenied(t *testing.T) {
	for _, status := range []order.Status{order.StatusServed, order.StatusCancelled, order.StatusPending} {
		f := newFixture()
		f.orders.byCoupon["c"] = &order.Order{
			ID: "o1", CouponCode: "c", MealType: meal.Lunch,
			Status: status, CreatedAt: lunchTime(2024, 1, 15).Add(-time.Hour),
		}
		resp, err := f.svc.Scan(context.Background(), Request{Code: "c", At: lunchTime(2024, 1, 15)})
		if err != nil {
			t.Fatalf("Scan() error = %v", err)
		}
		if resp.AccessGranted {
			t.Errorf("status %s: granted, want denied", status)
		}
	}
}

func TestScanOrderCouponExpiry(t *testing.T) {
	f := newFixture()
	snap := testSnapshot()
	snap.QRCodeExpiryHours = 2
	f.svc = NewService(f.students, f.orders, f.subs, &fakeConfig{snap: snap}, f.logs, f.pending, headcountFromSubs{f.subs})
	f.orders.byCoupon["c"] = &order.Order{
		ID: "o1", CouponCode: "c", MealType: meal.Lunch,
		Status: order.StatusConfirmed, CreatedAt: lunchTime(2024, 1, 15).Add(-3 * time.Hour),
	}
	resp, err := f.svc.Scan(context.Background(), Request{Code: "c", At: lunchTime(2024, 1, 15)})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if resp.AccessGranted || resp.Message != "Coupon expired" {
		t.Errorf("resp = %+v, want expired denial", resp)
	}
}

func TestScanOutsideWindow(t *testing.T) {
	f := newFixture()
	f.addStudent("s1", "qr-1")
	f.addSubscription("s1", day(2024, 1, 1), day(2024, 1, 31), meal.Set{meal.Lunch: true})
	deadTime := time.Date(2024, 1, 15, 15, 0, 0, 0, time.UTC)

	// plain scanner station: outright denial
	resp, err := f.svc.Scan(context.Background(), Request{Code: "qr-1", Role: "SCANNER", At: deadTime})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if resp.RequiresApproval || resp.AccessGranted || resp.Result != ResultDenied {
		t.Errorf("scanner role = %+v, want plain denial", resp)
	}

	// manager device: pending approval with a token
	resp, err = f.svc.Scan(context.Background(), Request{Code: "qr-1", Role: "FNB_MANAGER", At: deadTime})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if !resp.RequiresApproval || resp.ApprovalToken == "" || resp.AccessGranted {
		t.Fatalf("manager role = %+v, want requires_approval", resp)
	}

	// approving grants through the normal entitlement path
	out, err := f.svc.Approve(context.Background(), Approval{
		Token: resp.ApprovalToken, Approved: true, MealType: meal.Lunch,
		Role: "FNB_MANAGER", At: deadTime,
	})
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if !out.AccessGranted {
		t.Errorf("approved = %+v, want granted", out)
	}

	// the token is consumed: a second decision reports expiry
	again, err := f.svc.Approve(context.Background(), Approval{Token: resp.ApprovalToken, Approved: true, MealType: meal.Lunch, At: deadTime})
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if again.AccessGranted || again.Message != "Approval expired or unknown" {
		t.Errorf("second approve = %+v, want expiry outcome", again)
	}
}

func TestApproveMissingMealTypeKeepsToken(t *testing.T) {
	f := newFixture()
	f.addStudent("s1", "qr-1")
	f.addSubscription("s1", day(2024, 1, 1), day(2024, 1, 31), meal.Set{meal.Lunch: true})
	deadTime := time.Date(2024, 1, 15, 15, 0, 0, 0, time.UTC)

	resp, err := f.svc.Scan(context.Background(), Request{Code: "qr-1", Role: "ADMIN", At: deadTime})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	// forgetting the meal type must not burn the token
	out, err := f.svc.Approve(context.Background(), Approval{Token: resp.ApprovalToken, Approved: true, At: deadTime})
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if out.AccessGranted || out.Message != "Meal type required for approval" {
		t.Fatalf("approve without meal type = %+v", out)
	}

	retry, err := f.svc.Approve(context.Background(), Approval{Token: resp.ApprovalToken, Approved: true, MealType: meal.Lunch, At: deadTime})
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if !retry.AccessGranted {
		t.Errorf("retry with meal type = %+v, want granted", retry)
	}
}

func TestApproveRefusedLogsDenial(t *testing.T) {
	f := newFixture()
	f.addStudent("s1", "qr-1")
	f.addSubscription("s1", day(2024, 1, 1), day(2024, 1, 31), meal.Set{meal.Lunch: true})
	deadTime := time.Date(2024, 1, 15, 15, 0, 0, 0, time.UTC)

	resp, err := f.svc.Scan(context.Background(), Request{Code: "qr-1", Role: "ADMIN", At: deadTime})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	out, err := f.svc.Approve(context.Background(), Approval{Token: resp.ApprovalToken, Approved: false, MealType: meal.Lunch, At: deadTime})
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if out.AccessGranted || out.Result != ResultDenied {
		t.Errorf("refused = %+v, want denial", out)
	}
	if len(f.logs.rows) != 1 || f.logs.rows[0].AccessGranted {
		t.Errorf("want one ungranted denial row, got %+v", f.logs.rows)
	}
}

func TestRecentScansStats(t *testing.T) {
	f := newFixture()
	f.addStudent("s1", "qr-1")
	f.addStudent("s2", "qr-2")
	f.addSubscription("s1", day(2024, 1, 1), day(2024, 1, 31), meal.Set{meal.Lunch: true})
	f.addSubscription("s2", day(2024, 1, 1), day(2024, 1, 31), meal.Set{meal.Lunch: true})

	at := lunchTime(2024, 1, 15)
	if _, err := f.svc.Scan(context.Background(), Request{Code: "qr-1", At: at}); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	logs, stats, err := f.svc.RecentScans(context.Background(), 10, at)
	if err != nil {
		t.Fatalf("RecentScans() error = %v", err)
	}
	if len(logs) != 1 {
		t.Errorf("logs = %d, want 1", len(logs))
	}
	if stats.MealType != meal.Lunch || stats.Served != 1 || stats.ExpectedToCome != 1 {
		t.Errorf("stats = %+v, want lunch served=1 expected=1", stats)
	}
}

// headcountFromSubs adapts fakeSubs to the HeadcountSource interface.
type headcountFromSubs struct {
	subs *fakeSubs
}

func (h headcountFromSubs) CountActiveByMeal(_ context.Context, dayAt time.Time) (map[meal.Type]int, error) {
	counts := map[meal.Type]int{}
	for _, s := range h.subs.subs {
		if s.Status != billing.StatusActive || !s.Covers(dayAt) {
			continue
		}
		for m := range s.Meals {
			counts[m]++
		}
	}
	return counts, nil
}
