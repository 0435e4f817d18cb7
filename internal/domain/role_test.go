package domain

import "testing"

func TestParseRole(t *testing.T) {
	for _, valid := range []string{"employee", "manager", "hr_admin", "system_admin"} {
		if _, err := ParseRole(valid); err != nil {
			t.Fatalf("expected %q to parse: %v", valid, err)
		}
	}
	for _, invalid := range []string{"", "admin", "EMPLOYEE", "root"} {
		if _, err := ParseRole(invalid); err == nil {
			t.Fatalf("expected %q to be rejected", invalid)
		}
	}
}

func TestRoleOrdering(t *testing.T) {
	order := []Role{RoleEmployee, RoleManager, RoleHRAdmin, RoleSystemAdmin}
	for i := 1; i < len(order); i++ {
		if order[i].Rank() <= order[i-1].Rank() {
			t.Fatalf("%s must outrank %s", order[i], order[i-1])
		}
	}
	if Role("ghost").Rank() != -1 {
		t.Fatal("unknown roles must rank below employee")
	}
}

func TestGrantsExpandsHierarchy(t *testing.T) {
	if !RoleSystemAdmin.Grants(RoleEmployee) {
		t.Fatal("system_admin should satisfy an employee guard")
	}
	if !RoleHRAdmin.Grants(RoleManager) {
		t.Fatal("hr_admin should satisfy a manager guard")
	}
	if RoleEmployee.Grants(RoleManager) {
		t.Fatal("employee must not satisfy a manager guard")
	}
	if Role("ghost").Grants(RoleEmployee) {
		t.Fatal("unknown role must never pass a guard")
	}
}

func TestExpandReturnsDownwardClosure(t *testing.T) {
	got := RoleHRAdmin.Expand()
	want := map[Role]bool{RoleEmployee: true, RoleManager: true, RoleHRAdmin: true}
	if len(got) != len(want) {
		t.Fatalf("expected %d roles, got %v", len(want), got)
	}
	for _, r := range got {
		if !want[r] {
			t.Fatalf("unexpected role %q in expansion", r)
		}
	}
}

// Permission checks are literal, not hierarchy-expanded. A system_admin
// outranks an hr_admin on every role guard yet does not hold hr_admin's
// payroll permission.
func TestPermissionsAreNotInherited(t *testing.T) {
	if !RoleHRAdmin.HasPermission("payroll:read") {
		t.Fatal("hr_admin should hold payroll:read")
	}
	if RoleSystemAdmin.HasPermission("payroll:read") {
		t.Fatal("system_admin must not inherit payroll:read")
	}
	if !RoleSystemAdmin.Grants(RoleHRAdmin) {
		t.Fatal("system_admin should still pass hr_admin role guards")
	}
	if RoleManager.HasPermission("employees:write") {
		t.Fatal("manager must not hold employees:write")
	}
}

func TestPermissionsReturnsCopy(t *testing.T) {
	perms := RoleEmployee.Permissions()
	if len(perms) == 0 {
		t.Fatal("employee should hold base permissions")
	}
	perms[0] = "mutated"
	if RoleEmployee.Permissions()[0] == "mutated" {
		t.Fatal("Permissions must return a defensive copy")
	}
}

func TestHighestRole(t *testing.T) {
	if got := HighestRole(nil); got != RoleEmployee {
		t.Fatalf("empty list should default to employee, got %q", got)
	}
	got := HighestRole([]Role{RoleManager, RoleSystemAdmin, RoleEmployee})
	if got != RoleSystemAdmin {
		t.Fatalf("expected system_admin, got %q", got)
	}
}
