package site

import (
	"strings"
	"testing"

	"github.com/hitoshi/be4breach/internal/model"
)

func TestServices_ReturnsCopy(t *testing.T) {
	got := Services()
	if len(got) != 4 {
		t.Fatalf("len(Services()) = %d, want 4", len(got))
	}

	got[0].Name = "changed"
	if Services()[0].Name == "changed" {
		t.Error("Services() should return a copy")
	}
}

func TestMemberServices_HaveIDs(t *testing.T) {
	for _, s := range MemberServices() {
		if s.ID == "" || s.Name == "" || s.Description == "" {
			t.Errorf("incomplete service entry: %+v", s)
		}
	}
}

func TestDashboardFor_PerRole(t *testing.T) {
	tests := []struct {
		role    model.Role
		message string
	}{
		{model.RoleUser, "User dashboard"},
		{model.RoleAdmin, "Admin dashboard"},
	}

	for _, tt := range tests {
		d := DashboardFor(tt.role, "someone@example.com")
		if d.Role != tt.role {
			t.Errorf("Role = %q, want %q", d.Role, tt.role)
		}
		if d.Welcome != "Welcome back, someone@example.com." {
			t.Errorf("Welcome = %q", d.Welcome)
		}
		if len(d.Highlights) != 3 {
			t.Errorf("%s highlights = %d, want 3", tt.role, len(d.Highlights))
		}
		if !strings.HasPrefix(d.Message, tt.message) {
			t.Errorf("Message = %q, want prefix %q", d.Message, tt.message)
		}
		if d.Status != "pending" {
			t.Errorf("Status = %q, want pending", d.Status)
		}
	}
}

func TestDashboardSummaries(t *testing.T) {
	if s := UserDashboardSummary(); s.MonitoringStatus != "Standby" || s.Alerts != 0 {
		t.Errorf("UserDashboardSummary() = %+v", s)
	}
	if s := AdminDashboardSummary(7); s.ActiveClients != 7 || s.Incidents != 0 {
		t.Errorf("AdminDashboardSummary(7) = %+v", s)
	}
}

func TestContactMessage_IncludesEmail(t *testing.T) {
	if !strings.Contains(ContactMessage, ContactEmail) {
		t.Errorf("ContactMessage = %q should include %q", ContactMessage, ContactEmail)
	}
}
