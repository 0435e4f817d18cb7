package service

import (
	"context"
	"fmt"

	"github.com/veridianhq/hr-api/internal/domain"
	"github.com/veridianhq/hr-api/internal/observability"
	"github.com/veridianhq/hr-api/internal/repository"
)

// RoleService resolves the effective role of an employee and administers
// role assignments.
type RoleService struct {
	assignments repository.RoleAssignmentRepository
}

func NewRoleService(assignments repository.RoleAssignmentRepository) *RoleService {
	return &RoleService{assignments: assignments}
}

// HighestActiveRole returns the most privileged role among the employee's
// active assignments, defaulting to employee when none exist.
func (s *RoleService) HighestActiveRole(employeeID uint) (domain.Role, error) {
	assignments, err := s.assignments.ListActiveByEmployee(employeeID)
	if err != nil {
		return "", err
	}
	roles := make([]domain.Role, 0, len(assignments))
	for _, a := range assignments {
		if a.Role.Valid() {
			roles = append(roles, a.Role)
		}
	}
	return domain.HighestRole(roles), nil
}

func (s *RoleService) Grant(ctx context.Context, actorID, employeeID uint, role domain.Role) (*domain.RoleAssignment, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("unknown role: %q", role)
	}
	assignment, err := s.assignments.Grant(employeeID, role)
	if err != nil {
		return nil, err
	}
	observability.Audit(ctx, "role_granted", "actor_id", actorID, "employee_id", employeeID, "role", string(role))
	return assignment, nil
}

func (s *RoleService) Revoke(ctx context.Context, actorID, employeeID uint, role domain.Role) (bool, error) {
	if !role.Valid() {
		return false, fmt.Errorf("unknown role: %q", role)
	}
	changed, err := s.assignments.Revoke(employeeID, role)
	if err != nil {
		return false, err
	}
	if changed {
		observability.Audit(ctx, "role_revoked", "actor_id", actorID, "employee_id", employeeID, "role", string(role))
	}
	return changed, nil
}
