package handler

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/veridianhq/hr-api/internal/http/middleware"
	"github.com/veridianhq/hr-api/internal/http/response"
	"github.com/veridianhq/hr-api/internal/service"
)

// AuthHandler exposes the sign-in exchange, refresh rotation and logout.
type AuthHandler struct {
	auth service.AuthServiceInterface
}

func NewAuthHandler(auth service.AuthServiceInterface) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type loginRequest struct {
	Code        string `json:"code" validate:"required"`
	RedirectURI string `json:"redirect_uri" validate:"omitempty,url"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// GoogleLoginURL hands the client a provider consent URL with a fresh
// opaque state value. The client echoes the state back on callback.
func (h *AuthHandler) GoogleLoginURL(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	response.JSON(w, r, http.StatusOK, map[string]string{
		"auth_url": h.auth.LoginURL(state),
		"state":    state,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	result, err := h.auth.Login(r.Context(), req.Code, req.RedirectURI, r.UserAgent(), clientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProviderRejected):
			response.Error(w, r, http.StatusForbidden, response.CodeForbidden, "identity provider rejected the sign-in credential", nil)
		case errors.Is(err, service.ErrDomainNotAllowed):
			response.Error(w, r, http.StatusForbidden, response.CodeForbidden, err.Error(), nil)
		case errors.Is(err, service.ErrNoSuchAccount):
			response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "no account exists for this identity", nil)
		default:
			response.Error(w, r, http.StatusInternalServerError, response.CodeInternal, "sign-in failed", nil)
		}
		return
	}
	response.JSON(w, r, http.StatusOK, result)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	result, err := h.auth.Refresh(r.Context(), req.RefreshToken, r.UserAgent(), clientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRefreshTokenReused):
			response.Error(w, r, http.StatusForbidden, response.CodeForbidden, "refresh token reuse detected, all sessions revoked", nil)
		case errors.Is(err, service.ErrInvalidRefreshToken):
			response.Error(w, r, http.StatusForbidden, response.CodeForbidden, "refresh token is invalid or expired", nil)
		default:
			response.Error(w, r, http.StatusInternalServerError, response.CodeInternal, "refresh failed", nil)
		}
		return
	}
	response.JSON(w, r, http.StatusOK, result)
}

// Logout sits outside the session-liveness guard on purpose: the token only
// has to verify, so a second logout with the same token is 200, not 401.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	raw := middleware.BearerToken(r)
	if raw == "" {
		response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "missing bearer token", nil)
		return
	}
	if err := h.auth.Logout(r.Context(), raw); err != nil {
		if errors.Is(err, service.ErrUnauthenticated) {
			response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "invalid or expired credentials", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, response.CodeInternal, "logout failed", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "logged_out"})
}
