package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/veridianhq/hr-api/internal/domain"
	"github.com/veridianhq/hr-api/internal/http/middleware"
	"github.com/veridianhq/hr-api/internal/http/response"
	"github.com/veridianhq/hr-api/internal/repository"
	"github.com/veridianhq/hr-api/internal/service"
)

// DirectoryHandler serves the employee directory and role administration.
type DirectoryHandler struct {
	employees repository.EmployeeRepository
	roles     *service.RoleService
}

func NewDirectoryHandler(employees repository.EmployeeRepository, roles *service.RoleService) *DirectoryHandler {
	return &DirectoryHandler{employees: employees, roles: roles}
}

type directoryEntry struct {
	ID             uint   `json:"id"`
	EmployeeNumber string `json:"employee_number"`
	DisplayName    string `json:"display_name"`
	Email          string `json:"email"`
	Department     string `json:"department,omitempty"`
	Location       string `json:"location,omitempty"`
	IsActive       bool   `json:"is_active"`
}

type grantRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

func (h *DirectoryHandler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.employees.List()
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, response.CodeInternal, "directory lookup failed", nil)
		return
	}
	entries := make([]directoryEntry, 0, len(employees))
	for _, e := range employees {
		entry := directoryEntry{
			ID:             e.ID,
			EmployeeNumber: e.EmployeeNumber,
			DisplayName:    e.DisplayName,
			Email:          e.Email,
			IsActive:       e.IsActive,
		}
		if e.Department != nil {
			entry.Department = e.Department.Name
		}
		if e.Location != nil {
			entry.Location = e.Location.Name
		}
		entries = append(entries, entry)
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"employees": entries})
}

func (h *DirectoryHandler) GrantRole(w http.ResponseWriter, r *http.Request) {
	ac, ok := middleware.AuthFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "missing bearer token", nil)
		return
	}
	employeeID, err := strconv.ParseUint(chi.URLParam(r, "employeeID"), 10, 64)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, response.CodeValidationError, "invalid employee id", nil)
		return
	}
	var req grantRoleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		response.Error(w, r, http.StatusUnprocessableEntity, response.CodeValidationError, err.Error(), nil)
		return
	}
	if _, err := h.employees.FindByID(uint(employeeID)); err != nil {
		if errors.Is(err, repository.ErrEmployeeNotFound) {
			response.Error(w, r, http.StatusNotFound, response.CodeNotFound, "employee not found", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, response.CodeInternal, "role grant failed", nil)
		return
	}
	assignment, err := h.roles.Grant(r.Context(), ac.Employee.ID, uint(employeeID), role)
	if err != nil {
		if errors.Is(err, repository.ErrRoleAlreadyGranted) {
			response.Error(w, r, http.StatusConflict, response.CodeConflict, "role already granted", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, response.CodeInternal, "role grant failed", nil)
		return
	}
	response.JSON(w, r, http.StatusCreated, map[string]any{
		"employee_id": assignment.EmployeeID,
		"role":        assignment.Role,
		"granted_at":  assignment.CreatedAt,
	})
}

func (h *DirectoryHandler) RevokeRole(w http.ResponseWriter, r *http.Request) {
	ac, ok := middleware.AuthFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "missing bearer token", nil)
		return
	}
	employeeID, err := strconv.ParseUint(chi.URLParam(r, "employeeID"), 10, 64)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, response.CodeValidationError, "invalid employee id", nil)
		return
	}
	role, err := domain.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		response.Error(w, r, http.StatusUnprocessableEntity, response.CodeValidationError, err.Error(), nil)
		return
	}
	changed, err := h.roles.Revoke(r.Context(), ac.Employee.ID, uint(employeeID), role)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, response.CodeInternal, "role revocation failed", nil)
		return
	}
	if !changed {
		response.Error(w, r, http.StatusNotFound, response.CodeNotFound, "no active assignment for that role", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "revoked"})
}
