package service

import "context"

// AuthServiceInterface is the surface the HTTP layer programs against.
type AuthServiceInterface interface {
	LoginURL(state string) string
	Login(ctx context.Context, code, redirectURI, ua, ip string) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken, ua, ip string) (*RefreshResult, error)
	Logout(ctx context.Context, rawToken string) error
	Authenticate(ctx context.Context, rawToken string) (*AuthContext, error)
}
