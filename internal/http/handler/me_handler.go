package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/veridianhq/hr-api/internal/http/middleware"
	"github.com/veridianhq/hr-api/internal/http/response"
	"github.com/veridianhq/hr-api/internal/repository"
	"github.com/veridianhq/hr-api/internal/service"
)

// MeHandler serves the authenticated employee's own profile and sessions.
type MeHandler struct {
	employees repository.EmployeeRepository
	sessions  *service.SessionService
}

func NewMeHandler(employees repository.EmployeeRepository, sessions *service.SessionService) *MeHandler {
	return &MeHandler{employees: employees, sessions: sessions}
}

type meResponse struct {
	ID                 uint     `json:"id"`
	EmployeeNumber     string   `json:"employee_number"`
	DisplayName        string   `json:"display_name"`
	Email              string   `json:"email"`
	Role               string   `json:"role"`
	Permissions        []string `json:"permissions"`
	ProfilePictureURL  string   `json:"profile_picture_url,omitempty"`
	Department         string   `json:"department,omitempty"`
	Location           string   `json:"location,omitempty"`
	DirectReportsCount int64    `json:"direct_reports_count"`
}

func (h *MeHandler) Me(w http.ResponseWriter, r *http.Request) {
	ac, ok := middleware.AuthFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "missing bearer token", nil)
		return
	}
	reports, err := h.employees.CountDirectReports(ac.Employee.ID)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, response.CodeInternal, "profile lookup failed", nil)
		return
	}
	out := meResponse{
		ID:                 ac.Employee.ID,
		EmployeeNumber:     ac.Employee.EmployeeNumber,
		DisplayName:        ac.Employee.DisplayName,
		Email:              ac.Employee.Email,
		Role:               string(ac.Role),
		Permissions:        ac.Role.Permissions(),
		DirectReportsCount: reports,
	}
	if ac.Employee.ProfilePictureURL != nil {
		out.ProfilePictureURL = *ac.Employee.ProfilePictureURL
	}
	if ac.Employee.Department != nil {
		out.Department = ac.Employee.Department.Name
	}
	if ac.Employee.Location != nil {
		out.Location = ac.Employee.Location.Name
	}
	response.JSON(w, r, http.StatusOK, out)
}

func (h *MeHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	ac, ok := middleware.AuthFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "missing bearer token", nil)
		return
	}
	views, err := h.sessions.ListActiveSessions(r.Context(), ac.Employee.ID, ac.Session.ID)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, response.CodeInternal, "session list failed", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"sessions": views})
}

func (h *MeHandler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	ac, ok := middleware.AuthFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "missing bearer token", nil)
		return
	}
	sessionID, err := strconv.ParseUint(chi.URLParam(r, "sessionID"), 10, 64)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, response.CodeValidationError, "invalid session id", nil)
		return
	}
	status, err := h.sessions.RevokeSession(r.Context(), ac.Employee.ID, uint(sessionID))
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			response.Error(w, r, http.StatusNotFound, response.CodeNotFound, "session not found", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, response.CodeInternal, "session revocation failed", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]string{"status": status})
}

func (h *MeHandler) RevokeOtherSessions(w http.ResponseWriter, r *http.Request) {
	ac, ok := middleware.AuthFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "missing bearer token", nil)
		return
	}
	revoked, err := h.sessions.RevokeOtherSessions(r.Context(), ac.Employee.ID, ac.Session.ID)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, response.CodeInternal, "session revocation failed", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"revoked": revoked})
}
