package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"canteen/internal/auth"
	"canteen/internal/billing"
	"canteen/internal/config"
	"canteen/internal/meal"
	"canteen/internal/order"
	"canteen/internal/queue"
	"canteen/internal/scanner"
	"canteen/internal/student"
	"canteen/internal/sysconfig"
)

type stubStudents struct{}

func (stubStudents) FindByQRCode(context.Context, string) (*student.Student, error) {
	return nil, nil
}
func (stubStudents) Get(context.Context, string) (student.Student, error) {
	return student.Student{}, nil
}

type stubOrders struct{}

func (stubOrders) FindByCoupon(context.Context, string) (*order.Order, error) { return nil, nil }
func (stubOrders) ServeByCoupon(context.Context, string) (bool, error)        { return false, nil }

type stubSubs struct{}

func (stubSubs) ActiveCovering(context.Context, string, time.Time) (*billing.Subscription, error) {
	return nil, nil
}
func (stubSubs) CountActiveByMeal(context.Context, time.Time) (map[meal.Type]int, error) {
	return map[meal.Type]int{}, nil
}

type stubConfig struct{}

func (stubConfig) Snapshot(context.Context) (sysconfig.Snapshot, error) {
	return sysconfig.Snapshot{Windows: map[meal.Type]sysconfig.Window{}}, nil
}

type stubLogs struct{}

func (stubLogs) InsertGrant(context.Context, scanner.Log) (bool, error) { return true, nil }
func (stubLogs) Insert(context.Context, scanner.Log) error              { return nil }
func (stubLogs) Recent(context.Context, int) ([]scanner.Log, error)     { return nil, nil }
func (stubLogs) GrantedCount(context.Context, time.Time, meal.Type) (int, error) {
	return 0, nil
}

type stubApprovals struct{}

func (stubApprovals) Put(context.Context, scanner.Pending) error { return nil }
func (stubApprovals) Take(context.Context, string) (*scanner.Pending, error) {
	return nil, nil
}

func testRouter(t *testing.T) (*gin.Engine, config.App) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}

	scans := scanner.NewService(stubStudents{}, stubOrders{}, stubSubs{}, stubConfig{}, stubLogs{}, stubApprovals{}, stubSubs{})
	h := New(Deps{
		Cfg:   cfg,
		Log:   slog.New(slog.DiscardHandler),
		Queue: queue.NewInMemory(4),
		Scans: scans,
	})
	return h.Router(), cfg
}

func scanAs(t *testing.T, r *gin.Engine, cfg config.App, role auth.Role) int {
	t.Helper()
	pair, err := auth.Issue("device-1", role, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	body := `{"qr_code":"unknown-code","device_id":"device-1"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/scanner/scan", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

// Every role the approval workflow names must get through the scan route;
// a manager device that can approve out-of-window scans has to be able to
// submit the scan in the first place.
func TestScanRouteRoleAccess(t *testing.T) {
	r, cfg := testRouter(t)

	tests := []struct {
		role auth.Role
		want int
	}{
		{auth.RoleScanner, http.StatusOK},
		{auth.RoleFnbManager, http.StatusOK},
		{auth.RoleAdmin, http.StatusOK},
		{auth.RoleViewer, http.StatusForbidden},
		{auth.RoleChef, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			if got := scanAs(t, r, cfg, tt.role); got != tt.want {
				t.Errorf("scan as %s = %d, want %d", tt.role, got, tt.want)
			}
		})
	}
}

func TestScanRouteRejectsMissingToken(t *testing.T) {
	r, _ := testRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/scanner/scan", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}
