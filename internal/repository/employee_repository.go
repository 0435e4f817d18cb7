package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/veridianhq/hr-api/internal/domain"
	"github.com/veridianhq/hr-api/internal/observability"
)

var ErrEmployeeNotFound = errors.New("employee not found")

type EmployeeRepository interface {
	FindByID(id uint) (*domain.Employee, error)
	FindActiveByEmail(email string) (*domain.Employee, error)
	List() ([]domain.Employee, error)
	Create(e *domain.Employee) error
	LinkProviderSubject(employeeID uint, subjectID string) error
	SetProfilePicture(employeeID uint, url string) error
	CountDirectReports(managerID uint) (int64, error)
}

type GormEmployeeRepository struct{ db *gorm.DB }

func NewEmployeeRepository(db *gorm.DB) EmployeeRepository { return &GormEmployeeRepository{db: db} }

func (r *GormEmployeeRepository) FindByID(id uint) (*domain.Employee, error) {
	var e domain.Employee
	err := r.db.Preload("Department").Preload("Location").First(&e, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "employee", "find_by_id", "not_found")
			return nil, ErrEmployeeNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "employee", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "employee", "find_by_id", "success")
	return &e, nil
}

func (r *GormEmployeeRepository) FindActiveByEmail(email string) (*domain.Employee, error) {
	var e domain.Employee
	err := r.db.Preload("Department").Preload("Location").
		Where("email = ? AND is_active = ?", strings.ToLower(email), true).
		First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "employee", "find_active_by_email", "not_found")
			return nil, ErrEmployeeNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "employee", "find_active_by_email", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "employee", "find_active_by_email", "success")
	return &e, nil
}

func (r *GormEmployeeRepository) List() ([]domain.Employee, error) {
	var employees []domain.Employee
	err := r.db.Preload("Department").Preload("Location").
		Order("employee_number ASC").
		Find(&employees).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "employee", "list", "error")
		return employees, err
	}
	observability.RecordRepositoryOperation(context.Background(), "employee", "list", "success")
	return employees, nil
}

func (r *GormEmployeeRepository) Create(e *domain.Employee) error {
	e.Email = strings.ToLower(e.Email)
	if err := r.db.Create(e).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "employee", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "employee", "create", "success")
	return nil
}

// LinkProviderSubject stores the identity provider's subject id on first
// login. The condition keeps it an idempotent upsert: an already linked
// subject is never overwritten.
func (r *GormEmployeeRepository) LinkProviderSubject(employeeID uint, subjectID string) error {
	err := r.db.Model(&domain.Employee{}).
		Where("id = ? AND (provider_subject_id IS NULL OR provider_subject_id = '')", employeeID).
		Update("provider_subject_id", subjectID).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "employee", "link_provider_subject", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "employee", "link_provider_subject", "success")
	return nil
}

// SetProfilePicture fills in a provider-supplied picture only when none is
// stored yet; explicitly set pictures win.
func (r *GormEmployeeRepository) SetProfilePicture(employeeID uint, url string) error {
	err := r.db.Model(&domain.Employee{}).
		Where("id = ? AND (profile_picture_url IS NULL OR profile_picture_url = '')", employeeID).
		Update("profile_picture_url", url).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "employee", "set_profile_picture", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "employee", "set_profile_picture", "success")
	return nil
}

func (r *GormEmployeeRepository) CountDirectReports(managerID uint) (int64, error) {
	var count int64
	err := r.db.Model(&domain.Employee{}).
		Where("manager_id = ? AND is_active = ?", managerID, true).
		Count(&count).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "employee", "count_direct_reports", "error")
		return 0, err
	}
	observability.RecordRepositoryOperation(context.Background(), "employee", "count_direct_reports", "success")
	return count, nil
}
