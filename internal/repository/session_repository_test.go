package repository

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/veridianhq/hr-api/internal/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.Session{}, &domain.Employee{}, &domain.RoleAssignment{}, &domain.AuditRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func strPtr(s string) *string { return &s }

func newSession(employeeID uint, accessHash, refreshHash string, expiresAt time.Time) *domain.Session {
	return &domain.Session{
		EmployeeID:       employeeID,
		AccessTokenHash:  accessHash,
		RefreshTokenHash: strPtr(refreshHash),
		ExpiresAt:        expiresAt,
	}
}

func TestSessionRepositoryFindLiveByAccessHash(t *testing.T) {
	repo := NewSessionRepository(newTestDB(t))

	live := newSession(1, "a-live", "r-live", time.Now().Add(time.Hour))
	expired := newSession(1, "a-expired", "r-expired", time.Now().Add(-time.Hour))
	revoked := newSession(1, "a-revoked", "r-revoked", time.Now().Add(time.Hour))
	revoked.IsRevoked = true

	for _, s := range []*domain.Session{live, expired, revoked} {
		if err := repo.Create(s); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	got, err := repo.FindLiveByAccessHash("a-live")
	if err != nil {
		t.Fatalf("find live: %v", err)
	}
	if got.ID != live.ID {
		t.Fatalf("expected session %d, got %d", live.ID, got.ID)
	}
	if _, err := repo.FindLiveByAccessHash("a-expired"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expired session should not validate, got %v", err)
	}
	if _, err := repo.FindLiveByAccessHash("a-revoked"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("revoked session should not validate, got %v", err)
	}
	if _, err := repo.FindLiveByAccessHash("a-unknown"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("unknown hash should not validate, got %v", err)
	}
}

func TestSessionRepositoryRotateConsumesTokenExactlyOnce(t *testing.T) {
	repo := NewSessionRepository(newTestDB(t))

	original := newSession(1, "a-1", "r-1", time.Now().Add(time.Hour))
	if err := repo.Create(original); err != nil {
		t.Fatalf("create: %v", err)
	}

	next := newSession(1, "a-2", "r-2", time.Now().Add(time.Hour))
	rotated, err := repo.Rotate("r-1", next)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if !rotated.IsRevoked || rotated.RevokedReason == nil || *rotated.RevokedReason != domain.RevokeReasonRotated {
		t.Fatalf("rotated session should be revoked with reason rotated: %+v", rotated)
	}

	// The successor is immediately usable.
	if _, err := repo.FindLiveByAccessHash("a-2"); err != nil {
		t.Fatalf("successor should be live: %v", err)
	}
	// The old access token stops working the moment rotation commits.
	if _, err := repo.FindLiveByAccessHash("a-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("rotated session should no longer validate, got %v", err)
	}

	// A second rotation of the same refresh hash finds no live row.
	if _, err := repo.Rotate("r-1", newSession(1, "a-3", "r-3", time.Now().Add(time.Hour))); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound on second rotation, got %v", err)
	}
}

func TestSessionRepositoryRotateRejectsExpired(t *testing.T) {
	repo := NewSessionRepository(newTestDB(t))

	stale := newSession(1, "a-old", "r-old", time.Now().Add(-time.Minute))
	if err := repo.Create(stale); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := repo.Rotate("r-old", newSession(1, "a-new", "r-new", time.Now().Add(time.Hour)))
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expired session must not rotate, got %v", err)
	}
}

func TestSessionRepositoryRevokeByAccessHashIsIdempotent(t *testing.T) {
	repo := NewSessionRepository(newTestDB(t))

	s := newSession(1, "a-1", "r-1", time.Now().Add(time.Hour))
	if err := repo.Create(s); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.RevokeByAccessHash("a-1", domain.RevokeReasonLogout); err != nil {
		t.Fatalf("first revoke: %v", err)
	}
	if err := repo.RevokeByAccessHash("a-1", domain.RevokeReasonLogout); err != nil {
		t.Fatalf("second revoke should be a no-op success: %v", err)
	}
	if err := repo.RevokeByAccessHash("a-unknown", domain.RevokeReasonLogout); err != nil {
		t.Fatalf("unknown hash should be a no-op success: %v", err)
	}
	if _, err := repo.FindLiveByAccessHash("a-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("session should stay revoked, got %v", err)
	}
}

func TestSessionRepositoryRevokeAllByEmployee(t *testing.T) {
	repo := NewSessionRepository(newTestDB(t))

	for i := 0; i < 3; i++ {
		s := newSession(1, fmt.Sprintf("a-%d", i), fmt.Sprintf("r-%d", i), time.Now().Add(time.Hour))
		if err := repo.Create(s); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	other := newSession(2, "a-other", "r-other", time.Now().Add(time.Hour))
	if err := repo.Create(other); err != nil {
		t.Fatalf("create other: %v", err)
	}

	n, err := repo.RevokeAllByEmployee(1, domain.RevokeReasonReuseCascade)
	if err != nil {
		t.Fatalf("revoke all: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 revocations, got %d", n)
	}
	if _, err := repo.FindLiveByAccessHash("a-other"); err != nil {
		t.Fatalf("other employee's session must survive the cascade: %v", err)
	}
}

func TestSessionRepositoryRevokeOthersKeepsCurrent(t *testing.T) {
	repo := NewSessionRepository(newTestDB(t))

	current := newSession(1, "a-current", "r-current", time.Now().Add(time.Hour))
	older := newSession(1, "a-older", "r-older", time.Now().Add(time.Hour))
	for _, s := range []*domain.Session{current, older} {
		if err := repo.Create(s); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	n, err := repo.RevokeOthersByEmployee(1, current.ID, domain.RevokeReasonAdmin)
	if err != nil {
		t.Fatalf("revoke others: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 revocation, got %d", n)
	}
	if _, err := repo.FindLiveByAccessHash("a-current"); err != nil {
		t.Fatalf("current session must stay live: %v", err)
	}
	if _, err := repo.FindLiveByAccessHash("a-older"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("older session should be revoked, got %v", err)
	}
}

func TestSessionRepositoryMarkReuseDetected(t *testing.T) {
	repo := NewSessionRepository(newTestDB(t))

	s := newSession(1, "a-1", "r-1", time.Now().Add(time.Hour))
	if err := repo.Create(s); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.MarkReuseDetected("r-1"); err != nil {
		t.Fatalf("mark reuse: %v", err)
	}
	got, err := repo.FindByRefreshHash("r-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.ReuseDetectedAt == nil {
		t.Fatal("reuse_detected_at should be set")
	}
}

func TestSessionRepositoryScopedLookups(t *testing.T) {
	repo := NewSessionRepository(newTestDB(t))

	mine := newSession(1, "a-mine", "r-mine", time.Now().Add(time.Hour))
	theirs := newSession(2, "a-theirs", "r-theirs", time.Now().Add(time.Hour))
	for _, s := range []*domain.Session{mine, theirs} {
		if err := repo.Create(s); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	if _, err := repo.FindByIDForEmployee(1, mine.ID); err != nil {
		t.Fatalf("own session should be visible: %v", err)
	}
	if _, err := repo.FindByIDForEmployee(1, theirs.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("foreign session must be invisible, got %v", err)
	}

	changed, err := repo.RevokeByIDForEmployee(1, theirs.ID, domain.RevokeReasonAdmin)
	if err != nil {
		t.Fatalf("revoke foreign: %v", err)
	}
	if changed {
		t.Fatal("revoking a foreign session must not change anything")
	}
}
