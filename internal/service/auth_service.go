package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/veridianhq/hr-api/internal/domain"
	"github.com/veridianhq/hr-api/internal/observability"
	"github.com/veridianhq/hr-api/internal/repository"
	"github.com/veridianhq/hr-api/internal/security"
)

var (
	ErrProviderRejected = errors.New("identity provider rejected the credential")
	ErrDomainNotAllowed = errors.New("email domain not allowed")
	ErrNoSuchAccount    = errors.New("no such account")
	ErrUnauthenticated  = errors.New("unauthenticated")
)

// EmployeeSummary is the user shape returned by sign-in and current-user.
type EmployeeSummary struct {
	ID                uint        `json:"id"`
	EmployeeNumber    string      `json:"employee_number"`
	DisplayName       string      `json:"display_name"`
	Email             string      `json:"email"`
	Role              domain.Role `json:"role"`
	ProfilePictureURL string      `json:"profile_picture_url,omitempty"`
	Department        string      `json:"department,omitempty"`
	Location          string      `json:"location,omitempty"`
}

type LoginResult struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	TokenType    string          `json:"token_type"`
	ExpiresIn    int64           `json:"expires_in"`
	User         EmployeeSummary `json:"user"`
}

type RefreshResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// AuthContext is the per-request authentication state attached to the
// request context by the authorization guard. Role comes from the token
// snapshot, not a fresh database read.
type AuthContext struct {
	Employee *domain.Employee
	Claims   *security.Claims
	Session  *domain.Session
	Role     domain.Role
}

// AuthService orchestrates sign-in, refresh, logout and per-request
// authentication on top of the provider, the identity store and the
// token service.
type AuthService struct {
	provider      OAuthProvider
	employees     repository.EmployeeRepository
	roles         *RoleService
	tokens        *TokenService
	audits        repository.AuditRepository
	misses        LoginMissCache
	allowedDomain string
	oauthTimeout  time.Duration
}

func NewAuthService(
	provider OAuthProvider,
	employees repository.EmployeeRepository,
	roles *RoleService,
	tokens *TokenService,
	audits repository.AuditRepository,
	allowedDomain string,
	oauthTimeout time.Duration,
) *AuthService {
	return &AuthService{
		provider:      provider,
		employees:     employees,
		roles:         roles,
		tokens:        tokens,
		audits:        audits,
		allowedDomain: strings.ToLower(strings.TrimSpace(allowedDomain)),
		oauthTimeout:  oauthTimeout,
	}
}

// SetLoginMissCache installs an optional cache of recent no-account sign-in
// attempts. Without it every attempt hits the employee store.
func (s *AuthService) SetLoginMissCache(cache LoginMissCache) {
	s.misses = cache
}

func (s *AuthService) LoginURL(state string) string {
	return s.provider.AuthCodeURL(state)
}

// Login runs the sign-in exchange end to end: verify the code with the
// provider, gate on the organizational domain, resolve the employee,
// enrich the record on first login, resolve the effective role and issue
// a session-backed token pair.
func (s *AuthService) Login(ctx context.Context, code, redirectURI, ua, ip string) (*LoginResult, error) {
	vctx, cancel := context.WithTimeout(ctx, s.oauthTimeout)
	defer cancel()
	token, err := s.provider.Exchange(vctx, code, redirectURI)
	if err != nil {
		observability.RecordAuthLogin(ctx, "provider_rejected")
		return nil, fmt.Errorf("%w: %v", ErrProviderRejected, err)
	}
	info, err := s.provider.FetchUserInfo(vctx, token)
	if err != nil {
		observability.RecordAuthLogin(ctx, "provider_rejected")
		return nil, fmt.Errorf("%w: %v", ErrProviderRejected, err)
	}
	if !info.EmailVerified {
		observability.RecordAuthLogin(ctx, "provider_rejected")
		return nil, fmt.Errorf("%w: email not verified", ErrProviderRejected)
	}

	email := strings.ToLower(strings.TrimSpace(info.Email))
	if emailDomain(email) != s.allowedDomain {
		observability.RecordAuthLogin(ctx, "domain_rejected")
		return nil, fmt.Errorf("%w: accounts must belong to %s", ErrDomainNotAllowed, s.allowedDomain)
	}

	if s.misses != nil {
		if hit, err := s.misses.Contains(ctx, email); err == nil && hit {
			observability.RecordAuthLogin(ctx, "no_account_cached")
			return nil, ErrNoSuchAccount
		}
	}
	employee, err := s.employees.FindActiveByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrEmployeeNotFound) {
			if s.misses != nil {
				_ = s.misses.Remember(ctx, email)
			}
			observability.RecordAuthLogin(ctx, "no_account")
			return nil, ErrNoSuchAccount
		}
		return nil, err
	}

	if err := s.enrich(employee, info); err != nil {
		return nil, err
	}

	role, err := s.roles.HighestActiveRole(employee.ID)
	if err != nil {
		return nil, err
	}
	pair, err := s.tokens.Issue(ctx, employee.ID, role, ua, ip)
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, "login", employee.ID, "session", pair.Session.ID, map[string]string{"ip": ip, "user_agent": ua})
	observability.RecordAuthLogin(ctx, "success")

	return &LoginResult{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "bearer",
		ExpiresIn:    pair.ExpiresIn,
		User:         summarize(employee, role),
	}, nil
}

// enrich fills provider-sourced fields the employee record is still missing.
// Upserts are idempotent and never overwrite existing values; the in-memory
// record is updated alongside the store.
func (s *AuthService) enrich(employee *domain.Employee, info *OAuthUserInfo) error {
	if employee.ProviderSubjectID == nil || *employee.ProviderSubjectID == "" {
		if err := s.employees.LinkProviderSubject(employee.ID, info.ProviderSubjectID); err != nil {
			return err
		}
		subject := info.ProviderSubjectID
		employee.ProviderSubjectID = &subject
	}
	if (employee.ProfilePictureURL == nil || *employee.ProfilePictureURL == "") && info.Picture != "" {
		if err := s.employees.SetProfilePicture(employee.ID, info.Picture); err != nil {
			return err
		}
		picture := info.Picture
		employee.ProfilePictureURL = &picture
	}
	return nil
}

// Refresh rotates a refresh token into a new pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken, ua, ip string) (*RefreshResult, error) {
	pair, employeeID, err := s.tokens.Rotate(ctx, refreshToken, s.roles.HighestActiveRole, ua, ip)
	if err != nil {
		if errors.Is(err, ErrRefreshTokenReused) {
			observability.RecordAuthRefresh(ctx, "reuse_detected")
			s.recordAudit(ctx, "refresh_reuse_detected", employeeID, "", 0, map[string]string{"ip": ip, "user_agent": ua})
		} else {
			observability.RecordAuthRefresh(ctx, "rejected")
		}
		return nil, err
	}
	observability.RecordAuthRefresh(ctx, "success")
	return &RefreshResult{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}, nil
}

// Logout revokes the session behind the presented access token. The token
// only has to verify against the codec; the session it names may already be
// revoked or gone, so logging out twice with the same token succeeds both
// times.
func (s *AuthService) Logout(ctx context.Context, rawToken string) error {
	claims, err := s.tokens.RevokeByAccessToken(ctx, rawToken)
	if err != nil {
		if errors.Is(err, security.ErrInvalidToken) || errors.Is(err, security.ErrExpiredToken) || errors.Is(err, security.ErrWrongTokenType) {
			observability.RecordAuthLogout(ctx, "rejected")
			return fmt.Errorf("%w: %v", ErrUnauthenticated, err)
		}
		observability.RecordAuthLogout(ctx, "error")
		return err
	}
	if employeeID, err := claims.EmployeeID(); err == nil {
		s.recordAudit(ctx, "logout", employeeID, "", 0, nil)
	}
	observability.RecordAuthLogout(ctx, "success")
	return nil
}

// Authenticate validates a raw bearer token against the codec, the session
// store and the employee record. Every failure collapses into
// ErrUnauthenticated; callers must not leak which check failed.
func (s *AuthService) Authenticate(ctx context.Context, rawToken string) (*AuthContext, error) {
	claims, session, err := s.tokens.ValidateAccess(ctx, rawToken)
	if err != nil {
		observability.RecordAccessTokenValidation(ctx, "rejected")
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	employeeID, err := claims.EmployeeID()
	if err != nil {
		observability.RecordAccessTokenValidation(ctx, "rejected")
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	employee, err := s.employees.FindByID(employeeID)
	if err != nil || !employee.IsActive {
		observability.RecordAccessTokenValidation(ctx, "rejected")
		return nil, fmt.Errorf("%w: unknown or inactive employee", ErrUnauthenticated)
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		observability.RecordAccessTokenValidation(ctx, "rejected")
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	observability.RecordAccessTokenValidation(ctx, "valid")
	return &AuthContext{
		Employee: employee,
		Claims:   claims,
		Session:  session,
		Role:     role,
	}, nil
}

// recordAudit writes the durable audit row and the log event. Both are
// best-effort: a failed audit never rolls back the operation it describes.
func (s *AuthService) recordAudit(ctx context.Context, action string, actorID uint, entityType string, entityID uint, payload map[string]string) {
	var body string
	if len(payload) > 0 {
		if b, err := json.Marshal(payload); err == nil {
			body = string(b)
		}
	}
	if s.audits != nil {
		if err := s.audits.Record(&domain.AuditRecord{
			Action:     action,
			ActorID:    actorID,
			EntityType: entityType,
			EntityID:   entityID,
			Payload:    body,
		}); err != nil {
			observability.Audit(ctx, "audit_write_failed", "action", action, "error", err.Error())
		}
	}
	observability.Audit(ctx, action, "actor_id", actorID, "entity_type", entityType, "entity_id", entityID)
}

func summarize(e *domain.Employee, role domain.Role) EmployeeSummary {
	s := EmployeeSummary{
		ID:             e.ID,
		EmployeeNumber: e.EmployeeNumber,
		DisplayName:    e.DisplayName,
		Email:          e.Email,
		Role:           role,
	}
	if e.ProfilePictureURL != nil {
		s.ProfilePictureURL = *e.ProfilePictureURL
	}
	if e.Department != nil {
		s.Department = e.Department.Name
	}
	if e.Location != nil {
		s.Location = e.Location.Name
	}
	return s
}

func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return email[at+1:]
}
