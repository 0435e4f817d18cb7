package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/veridianhq/hr-api/internal/domain"
	"github.com/veridianhq/hr-api/internal/observability"
)

var ErrRoleAlreadyGranted = errors.New("role already granted")

type RoleAssignmentRepository interface {
	ListActiveByEmployee(employeeID uint) ([]domain.RoleAssignment, error)
	Grant(employeeID uint, role domain.Role) (*domain.RoleAssignment, error)
	Revoke(employeeID uint, role domain.Role) (bool, error)
}

type GormRoleAssignmentRepository struct{ db *gorm.DB }

func NewRoleAssignmentRepository(db *gorm.DB) RoleAssignmentRepository {
	return &GormRoleAssignmentRepository{db: db}
}

func (r *GormRoleAssignmentRepository) ListActiveByEmployee(employeeID uint) ([]domain.RoleAssignment, error) {
	var assignments []domain.RoleAssignment
	err := r.db.Where("employee_id = ? AND is_active = ?", employeeID, true).
		Find(&assignments).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "role_assignment", "list_active_by_employee", "error")
		return assignments, err
	}
	observability.RecordRepositoryOperation(context.Background(), "role_assignment", "list_active_by_employee", "success")
	return assignments, nil
}

// Grant inserts a new active assignment. The transaction enforces the
// invariant of at most one active assignment per (employee, role) pair.
func (r *GormRoleAssignmentRepository) Grant(employeeID uint, role domain.Role) (*domain.RoleAssignment, error) {
	assignment := &domain.RoleAssignment{EmployeeID: employeeID, Role: role, IsActive: true}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.RoleAssignment{}).
			Where("employee_id = ? AND role = ? AND is_active = ?", employeeID, role, true).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrRoleAlreadyGranted
		}
		return tx.Create(assignment).Error
	})
	if err != nil {
		if errors.Is(err, ErrRoleAlreadyGranted) {
			observability.RecordRepositoryOperation(context.Background(), "role_assignment", "grant", "conflict")
		} else {
			observability.RecordRepositoryOperation(context.Background(), "role_assignment", "grant", "error")
		}
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "role_assignment", "grant", "success")
	return assignment, nil
}

// Revoke soft-deletes the active assignment, preserving the audit history.
func (r *GormRoleAssignmentRepository) Revoke(employeeID uint, role domain.Role) (bool, error) {
	now := time.Now().UTC()
	res := r.db.Model(&domain.RoleAssignment{}).
		Where("employee_id = ? AND role = ? AND is_active = ?", employeeID, role, true).
		Updates(map[string]any{"is_active": false, "revoked_at": now})
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "role_assignment", "revoke", "error")
		return false, res.Error
	}
	observability.RecordRepositoryOperation(context.Background(), "role_assignment", "revoke", "success")
	return res.RowsAffected > 0, nil
}
