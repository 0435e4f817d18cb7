package service

import (
	"context"
	"errors"
	"time"

	"github.com/veridianhq/hr-api/internal/domain"
	"github.com/veridianhq/hr-api/internal/observability"
	"github.com/veridianhq/hr-api/internal/repository"
	"github.com/veridianhq/hr-api/internal/security"
)

var (
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	ErrRefreshTokenReused  = errors.New("refresh token reuse detected")
	ErrSessionInvalid      = errors.New("session invalid")
)

// IssuedPair is one freshly minted access/refresh pair and the session row
// that anchors it.
type IssuedPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
	Session      *domain.Session
}

// TokenService owns issuance, rotation and revocation of token pairs. It is
// the only code path that writes session lifecycle transitions.
type TokenService struct {
	codec      *security.TokenCodec
	sessions   repository.SessionRepository
	pepper     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenService(codec *security.TokenCodec, sessions repository.SessionRepository, pepper string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{codec: codec, sessions: sessions, pepper: pepper, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// Issue mints a token pair for the employee and persists a new session
// holding only the hashes. The session expiry bounds the refresh token's
// validity window; the access token carries its own shorter expiry.
func (s *TokenService) Issue(ctx context.Context, employeeID uint, role domain.Role, ua, ip string) (*IssuedPair, error) {
	access, err := s.codec.IssueAccessToken(employeeID, role, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.codec.IssueRefreshToken(employeeID, role, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	refreshHash := security.HashToken(refresh, s.pepper)
	session := &domain.Session{
		EmployeeID:       employeeID,
		AccessTokenHash:  security.HashToken(access, s.pepper),
		RefreshTokenHash: &refreshHash,
		UserAgent:        ua,
		IP:               ip,
		ExpiresAt:        time.Now().Add(s.refreshTTL),
	}
	if err := s.sessions.Create(session); err != nil {
		return nil, err
	}
	return &IssuedPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
		Session:      session,
	}, nil
}

// Rotate exchanges a valid, not-yet-consumed refresh token for a new pair
// and revokes the session that owned it. Presenting an already-consumed
// token is classified as reuse, revokes every live session of the employee,
// and surfaces ErrRefreshTokenReused so callers can tell it apart from a
// token that was simply never issued or has expired. The employee id is
// returned whenever the token decoded, even on failure, so callers can
// attribute the attempt.
func (s *TokenService) Rotate(ctx context.Context, refreshToken string, roleResolver func(employeeID uint) (domain.Role, error), ua, ip string) (*IssuedPair, uint, error) {
	claims, err := s.codec.DecodeRefreshToken(refreshToken)
	if err != nil {
		return nil, 0, ErrInvalidRefreshToken
	}
	employeeID, err := claims.EmployeeID()
	if err != nil {
		return nil, 0, ErrInvalidRefreshToken
	}
	hash := security.HashToken(refreshToken, s.pepper)
	session, err := s.sessions.FindByRefreshHash(hash)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, 0, ErrInvalidRefreshToken
		}
		return nil, 0, err
	}
	if session.EmployeeID != employeeID {
		return nil, 0, ErrInvalidRefreshToken
	}
	if session.IsRevoked {
		return nil, employeeID, s.flagReuse(ctx, hash, employeeID)
	}
	if session.ExpiresAt.Before(time.Now()) {
		return nil, employeeID, ErrInvalidRefreshToken
	}

	// Role is re-derived from storage at rotation time so a refresh picks up
	// grants and revocations made since the last issuance.
	role, err := roleResolver(employeeID)
	if err != nil {
		return nil, employeeID, err
	}
	access, err := s.codec.IssueAccessToken(employeeID, role, s.accessTTL)
	if err != nil {
		return nil, employeeID, err
	}
	refresh, err := s.codec.IssueRefreshToken(employeeID, role, s.refreshTTL)
	if err != nil {
		return nil, employeeID, err
	}
	newRefreshHash := security.HashToken(refresh, s.pepper)
	next := &domain.Session{
		EmployeeID:       employeeID,
		AccessTokenHash:  security.HashToken(access, s.pepper),
		RefreshTokenHash: &newRefreshHash,
		UserAgent:        ua,
		IP:               ip,
		ExpiresAt:        time.Now().Add(s.refreshTTL),
	}
	if _, err := s.sessions.Rotate(hash, next); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			// Lost the race against a concurrent rotation of the same token.
			// Re-read to classify: a now-revoked row means this presentation
			// is a reuse, not an unknown token.
			current, ferr := s.sessions.FindByRefreshHash(hash)
			if ferr == nil && current.IsRevoked {
				return nil, employeeID, s.flagReuse(ctx, hash, employeeID)
			}
			return nil, employeeID, ErrInvalidRefreshToken
		}
		return nil, employeeID, err
	}
	return &IssuedPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
		Session:      next,
	}, employeeID, nil
}

func (s *TokenService) flagReuse(ctx context.Context, refreshHash string, employeeID uint) error {
	observability.RecordReuseDetection(ctx)
	_ = s.sessions.MarkReuseDetected(refreshHash)
	if _, err := s.sessions.RevokeAllByEmployee(employeeID, domain.RevokeReasonReuseCascade); err != nil {
		observability.Audit(ctx, "reuse_cascade_failed", "employee_id", employeeID, "error", err.Error())
	}
	return ErrRefreshTokenReused
}

// ValidateAccess checks a raw access token against both the codec and the
// session store. Role freshness is deliberately not re-checked here.
func (s *TokenService) ValidateAccess(ctx context.Context, rawToken string) (*security.Claims, *domain.Session, error) {
	claims, err := s.codec.DecodeAccessToken(rawToken)
	if err != nil {
		return nil, nil, err
	}
	session, err := s.sessions.FindLiveByAccessHash(security.HashToken(rawToken, s.pepper))
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, nil, ErrSessionInvalid
		}
		return nil, nil, err
	}
	return claims, session, nil
}

// RevokeByAccessToken backs logout. The token must verify against the codec
// (signature, expiry, type), but the session it names may already be revoked
// or gone: those count as success so repeated logouts stay idempotent. The
// decoded claims come back for audit attribution.
func (s *TokenService) RevokeByAccessToken(ctx context.Context, rawToken string) (*security.Claims, error) {
	claims, err := s.codec.DecodeAccessToken(rawToken)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.RevokeByAccessHash(security.HashToken(rawToken, s.pepper), domain.RevokeReasonLogout); err != nil {
		return nil, err
	}
	return claims, nil
}
