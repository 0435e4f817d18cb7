package service

import (
	"context"
	"time"

	"github.com/veridianhq/hr-api/internal/domain"
	"github.com/veridianhq/hr-api/internal/repository"
)

// SessionView is what an employee sees when listing their own sessions.
type SessionView struct {
	ID        uint      `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	UserAgent string    `json:"user_agent"`
	IP        string    `json:"ip"`
	IsCurrent bool      `json:"is_current"`
}

// SessionService backs the self-service session management endpoints.
type SessionService struct {
	sessions repository.SessionRepository
}

func NewSessionService(sessions repository.SessionRepository) *SessionService {
	return &SessionService{sessions: sessions}
}

func (s *SessionService) ListActiveSessions(ctx context.Context, employeeID, currentSessionID uint) ([]SessionView, error) {
	sessions, err := s.sessions.ListActiveByEmployee(employeeID)
	if err != nil {
		return nil, err
	}
	views := make([]SessionView, 0, len(sessions))
	for _, session := range sessions {
		views = append(views, SessionView{
			ID:        session.ID,
			CreatedAt: session.CreatedAt,
			ExpiresAt: session.ExpiresAt,
			UserAgent: session.UserAgent,
			IP:        session.IP,
			IsCurrent: session.ID == currentSessionID,
		})
	}
	return views, nil
}

// RevokeSession revokes one of the employee's own sessions. Revoking an
// already-revoked session reports "already_revoked" without erroring.
func (s *SessionService) RevokeSession(ctx context.Context, employeeID, sessionID uint) (string, error) {
	if _, err := s.sessions.FindByIDForEmployee(employeeID, sessionID); err != nil {
		return "", err
	}
	changed, err := s.sessions.RevokeByIDForEmployee(employeeID, sessionID, domain.RevokeReasonAdmin)
	if err != nil {
		return "", err
	}
	if !changed {
		return "already_revoked", nil
	}
	return "revoked", nil
}

func (s *SessionService) RevokeOtherSessions(ctx context.Context, employeeID, currentSessionID uint) (int64, error) {
	return s.sessions.RevokeOthersByEmployee(employeeID, currentSessionID, domain.RevokeReasonAdmin)
}
