package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/veridianhq/hr-api/internal/domain"
	"github.com/veridianhq/hr-api/internal/observability"
)

type AuditRepository interface {
	Record(rec *domain.AuditRecord) error
}

type GormAuditRepository struct{ db *gorm.DB }

func NewAuditRepository(db *gorm.DB) AuditRepository { return &GormAuditRepository{db: db} }

func (r *GormAuditRepository) Record(rec *domain.AuditRecord) error {
	if err := r.db.Create(rec).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "audit", "record", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "audit", "record", "success")
	return nil
}
