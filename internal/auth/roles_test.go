package auth

import "testing"

func TestCan(t *testing.T) {
	tests := []struct {
		role Role
		cap  Capability
		want bool
	}{
		{RoleAdmin, CapManageConfig, true},
		{RoleAdmin, CapScan, true},
		{RoleScanner, CapScan, true},
		{RoleScanner, CapApproveScan, false},
		{RoleFnbManager, CapApproveScan, true},
		{RoleFnbManager, CapScan, true},
		{RoleFnbManager, CapManageBilling, true},
		{RoleFnbManager, CapManageConfig, false},
		{RoleChef, CapManageCatalog, true},
		{RoleChef, CapManageBilling, false},
		{RoleViewer, CapViewReports, true},
		{RoleViewer, CapManageOrders, false},
		{Role("NOPE"), CapScan, false},
	}
	for _, tt := range tests {
		if got := Can(tt.role, tt.cap); got != tt.want {
			t.Errorf("Can(%s, %s) = %v, want %v", tt.role, tt.cap, got, tt.want)
		}
	}
}

func TestParseRole(t *testing.T) {
	if got := ParseRole(" fnb_manager "); got != RoleFnbManager {
		t.Errorf("ParseRole() = %v, want FNB_MANAGER", got)
	}
	if got := ParseRole("superuser"); got != RoleViewer {
		t.Errorf("ParseRole() = %v, want VIEWER fallback", got)
	}
}

func TestIssueParseRoundTrip(t *testing.T) {
	pair, err := Issue("device-1", RoleScanner, "canteen", "secret", 60e9, 120e9)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	claims, err := Parse(pair.AccessToken, "secret", "canteen")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.Subject != "device-1" || claims.Role != RoleScanner {
		t.Errorf("claims = %+v, want subject device-1 role SCANNER", claims)
	}
	if _, err := Parse(pair.AccessToken, "wrong", "canteen"); err == nil {
		t.Error("want error for wrong signing key")
	}
	if _, err := Parse(pair.AccessToken, "secret", "other"); err == nil {
		t.Error("want error for issuer mismatch")
	}
}
