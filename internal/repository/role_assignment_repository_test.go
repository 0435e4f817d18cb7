package repository

import (
	"errors"
	"testing"

	"github.com/veridianhq/hr-api/internal/domain"
)

func TestRoleAssignmentGrantAndList(t *testing.T) {
	repo := NewRoleAssignmentRepository(newTestDB(t))

	if _, err := repo.Grant(1, domain.RoleManager); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if _, err := repo.Grant(1, domain.RoleHRAdmin); err != nil {
		t.Fatalf("grant second role: %v", err)
	}

	assignments, err := repo.ListActiveByEmployee(1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(assignments) != 2 {
		t.Fatalf("expected 2 active assignments, got %d", len(assignments))
	}
}

func TestRoleAssignmentGrantRejectsDuplicate(t *testing.T) {
	repo := NewRoleAssignmentRepository(newTestDB(t))

	if _, err := repo.Grant(1, domain.RoleManager); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if _, err := repo.Grant(1, domain.RoleManager); !errors.Is(err, ErrRoleAlreadyGranted) {
		t.Fatalf("expected ErrRoleAlreadyGranted, got %v", err)
	}
}

func TestRoleAssignmentRevokeIsSoftDelete(t *testing.T) {
	db := newTestDB(t)
	repo := NewRoleAssignmentRepository(db)

	if _, err := repo.Grant(1, domain.RoleManager); err != nil {
		t.Fatalf("grant: %v", err)
	}
	changed, err := repo.Revoke(1, domain.RoleManager)
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if !changed {
		t.Fatal("revoke should report a change")
	}

	active, err := repo.ListActiveByEmployee(1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("revoked assignment must not list as active: %+v", active)
	}

	// The row survives for history, with revoked_at stamped.
	var all []domain.RoleAssignment
	if err := db.Find(&all).Error; err != nil {
		t.Fatalf("load rows: %v", err)
	}
	if len(all) != 1 || all[0].RevokedAt == nil {
		t.Fatalf("expected one retained row with revoked_at, got %+v", all)
	}

	// Revoking again reports no change; re-granting works.
	changed, err = repo.Revoke(1, domain.RoleManager)
	if err != nil {
		t.Fatalf("second revoke: %v", err)
	}
	if changed {
		t.Fatal("second revoke should be a no-op")
	}
	if _, err := repo.Grant(1, domain.RoleManager); err != nil {
		t.Fatalf("re-grant after revoke: %v", err)
	}
}
