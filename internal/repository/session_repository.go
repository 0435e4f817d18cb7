package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/veridianhq/hr-api/internal/domain"
	"github.com/veridianhq/hr-api/internal/observability"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRepository is the sole writer of session lifecycle transitions.
// A session only ever moves ACTIVE -> REVOKED; rows are never deleted.
type SessionRepository interface {
	Create(s *domain.Session) error
	FindLiveByAccessHash(hash string) (*domain.Session, error)
	FindByRefreshHash(hash string) (*domain.Session, error)
	FindByIDForEmployee(employeeID, sessionID uint) (*domain.Session, error)
	ListActiveByEmployee(employeeID uint) ([]domain.Session, error)
	Rotate(oldRefreshHash string, next *domain.Session) (*domain.Session, error)
	MarkReuseDetected(refreshHash string) error
	RevokeByAccessHash(hash, reason string) error
	RevokeByIDForEmployee(employeeID, sessionID uint, reason string) (bool, error)
	RevokeOthersByEmployee(employeeID, keepSessionID uint, reason string) (int64, error)
	RevokeAllByEmployee(employeeID uint, reason string) (int64, error)
}

type GormSessionRepository struct{ db *gorm.DB }

func NewSessionRepository(db *gorm.DB) SessionRepository { return &GormSessionRepository{db: db} }

func (r *GormSessionRepository) Create(s *domain.Session) error {
	if err := r.db.Create(s).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "session", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "create", "success")
	return nil
}

// FindLiveByAccessHash is the validation query for access-token use: the
// session must exist, not be revoked, and not be past its expiry.
func (r *GormSessionRepository) FindLiveByAccessHash(hash string) (*domain.Session, error) {
	var s domain.Session
	err := r.db.Where("access_token_hash = ? AND is_revoked = ? AND expires_at > ?", hash, false, time.Now()).
		First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "session", "find_live_by_access_hash", "not_found")
			return nil, ErrSessionNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "session", "find_live_by_access_hash", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "find_live_by_access_hash", "success")
	return &s, nil
}

func (r *GormSessionRepository) FindByRefreshHash(hash string) (*domain.Session, error) {
	var s domain.Session
	err := r.db.Where("refresh_token_hash = ?", hash).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "session", "find_by_refresh_hash", "not_found")
			return nil, ErrSessionNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "session", "find_by_refresh_hash", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "find_by_refresh_hash", "success")
	return &s, nil
}

func (r *GormSessionRepository) FindByIDForEmployee(employeeID, sessionID uint) (*domain.Session, error) {
	var s domain.Session
	err := r.db.Where("employee_id = ? AND id = ?", employeeID, sessionID).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "session", "find_by_id_for_employee", "not_found")
			return nil, ErrSessionNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "session", "find_by_id_for_employee", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "find_by_id_for_employee", "success")
	return &s, nil
}

func (r *GormSessionRepository) ListActiveByEmployee(employeeID uint) ([]domain.Session, error) {
	var sessions []domain.Session
	err := r.db.Where("employee_id = ? AND is_revoked = ? AND expires_at > ?", employeeID, false, time.Now()).
		Order("created_at DESC").
		Find(&sessions).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "session", "list_active_by_employee", "error")
		return sessions, err
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "list_active_by_employee", "success")
	return sessions, nil
}

// Rotate revokes the session owning oldRefreshHash and inserts its successor
// in one transaction. The row lock plus the is_revoked = false condition is
// the reuse-detection boundary: of two concurrent rotations presenting the
// same refresh token, exactly one finds the live row; the loser gets
// ErrSessionNotFound and the caller classifies it against the revoked row.
func (r *GormSessionRepository) Rotate(oldRefreshHash string, next *domain.Session) (*domain.Session, error) {
	var rotated *domain.Session
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var s domain.Session
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("refresh_token_hash = ? AND is_revoked = ? AND expires_at > ?", oldRefreshHash, false, time.Now()).
			First(&s).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSessionNotFound
			}
			return err
		}
		reason := domain.RevokeReasonRotated
		if err := tx.Model(&domain.Session{}).
			Where("id = ?", s.ID).
			Updates(map[string]any{"is_revoked": true, "revoked_reason": reason}).Error; err != nil {
			return err
		}
		if err := tx.Create(next).Error; err != nil {
			return err
		}
		s.IsRevoked = true
		s.RevokedReason = &reason
		rotated = &s
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "session", "rotate", "not_found")
		} else {
			observability.RecordRepositoryOperation(context.Background(), "session", "rotate", "error")
		}
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "rotate", "success")
	return rotated, nil
}

func (r *GormSessionRepository) MarkReuseDetected(refreshHash string) error {
	now := time.Now().UTC()
	err := r.db.Model(&domain.Session{}).
		Where("refresh_token_hash = ?", refreshHash).
		Update("reuse_detected_at", now).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "session", "mark_reuse_detected", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "mark_reuse_detected", "success")
	return nil
}

// RevokeByAccessHash backs logout. Revoking an already revoked or unknown
// session is a no-op success, which makes logout idempotent.
func (r *GormSessionRepository) RevokeByAccessHash(hash, reason string) error {
	err := r.db.Model(&domain.Session{}).
		Where("access_token_hash = ? AND is_revoked = ?", hash, false).
		Updates(map[string]any{"is_revoked": true, "revoked_reason": reason}).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "session", "revoke_by_access_hash", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "revoke_by_access_hash", "success")
	return nil
}

func (r *GormSessionRepository) RevokeByIDForEmployee(employeeID, sessionID uint, reason string) (bool, error) {
	res := r.db.Model(&domain.Session{}).
		Where("employee_id = ? AND id = ? AND is_revoked = ?", employeeID, sessionID, false).
		Updates(map[string]any{"is_revoked": true, "revoked_reason": reason})
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "session", "revoke_by_id_for_employee", "error")
		return false, res.Error
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "revoke_by_id_for_employee", "success")
	return res.RowsAffected > 0, nil
}

func (r *GormSessionRepository) RevokeOthersByEmployee(employeeID, keepSessionID uint, reason string) (int64, error) {
	res := r.db.Model(&domain.Session{}).
		Where("employee_id = ? AND id <> ? AND is_revoked = ?", employeeID, keepSessionID, false).
		Updates(map[string]any{"is_revoked": true, "revoked_reason": reason})
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "session", "revoke_others_by_employee", "error")
		return res.RowsAffected, res.Error
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "revoke_others_by_employee", "success")
	return res.RowsAffected, nil
}

// RevokeAllByEmployee is the reuse-detection cascade: once a consumed
// refresh token shows up again, every live session of that employee is
// treated as potentially stolen.
func (r *GormSessionRepository) RevokeAllByEmployee(employeeID uint, reason string) (int64, error) {
	res := r.db.Model(&domain.Session{}).
		Where("employee_id = ? AND is_revoked = ?", employeeID, false).
		Updates(map[string]any{"is_revoked": true, "revoked_reason": reason})
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "session", "revoke_all_by_employee", "error")
		return res.RowsAffected, res.Error
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "revoke_all_by_employee", "success")
	return res.RowsAffected, nil
}
