package domain

import (
	"fmt"
	"time"
)

// Role is the closed set of access levels an employee can hold. Roles are
// totally ordered; a higher role passes every role guard a lower role passes.
type Role string

const (
	RoleEmployee    Role = "employee"
	RoleManager     Role = "manager"
	RoleHRAdmin     Role = "hr_admin"
	RoleSystemAdmin Role = "system_admin"
)

var roleRanks = map[Role]int{
	RoleEmployee:    0,
	RoleManager:     1,
	RoleHRAdmin:     2,
	RoleSystemAdmin: 3,
}

// rolePermissions maps each role to its literal permission set. Permission
// guards consult only this set for the caller's exact role; they do not
// inherit permissions from lower roles the way role guards do. Keeping the
// two mechanisms independent is a product decision, not an oversight.
var rolePermissions = map[Role][]string{
	RoleEmployee: {
		"profile:read",
		"attendance:write",
		"leave:request",
		"expense:submit",
		"helpdesk:create",
	},
	RoleManager: {
		"profile:read",
		"attendance:write",
		"attendance:review",
		"leave:request",
		"leave:approve",
		"expense:submit",
		"helpdesk:create",
		"team:read",
	},
	RoleHRAdmin: {
		"profile:read",
		"employees:read",
		"employees:write",
		"roles:read",
		"roles:write",
		"payroll:read",
		"settlement:write",
	},
	RoleSystemAdmin: {
		"profile:read",
		"employees:read",
		"roles:read",
		"roles:write",
		"system:configure",
		"audit:read",
	},
}

// ParseRole validates a role string coming from storage or a token claim.
func ParseRole(v string) (Role, error) {
	r := Role(v)
	if _, ok := roleRanks[r]; !ok {
		return "", fmt.Errorf("unknown role: %q", v)
	}
	return r, nil
}

// Rank returns the role's position in the total order. Unknown roles rank
// below employee so a corrupted value never gains privilege.
func (r Role) Rank() int {
	rank, ok := roleRanks[r]
	if !ok {
		return -1
	}
	return rank
}

func (r Role) Valid() bool { return r.Rank() >= 0 }

// Expand returns the downward closure of r: the role itself plus every role
// below it in the hierarchy. Role guards authorize against this set.
func (r Role) Expand() []Role {
	rank := r.Rank()
	if rank < 0 {
		return nil
	}
	out := make([]Role, 0, rank+1)
	for role, rr := range roleRanks {
		if rr <= rank {
			out = append(out, role)
		}
	}
	return out
}

// Grants reports whether r satisfies a guard requiring any of the given
// roles, expanding r through the hierarchy first.
func (r Role) Grants(allowed ...Role) bool {
	rank := r.Rank()
	if rank < 0 {
		return false
	}
	for _, a := range allowed {
		if ar := a.Rank(); ar >= 0 && ar <= rank {
			return true
		}
	}
	return false
}

// Permissions returns the literal permission set for r, without hierarchy
// expansion.
func (r Role) Permissions() []string {
	perms := rolePermissions[r]
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

// HasPermission is a direct membership test against the literal set.
func (r Role) HasPermission(permission string) bool {
	for _, p := range rolePermissions[r] {
		if p == permission {
			return true
		}
	}
	return false
}

// HighestRole picks the most privileged role from a list of role values,
// defaulting to employee when the list is empty.
func HighestRole(roles []Role) Role {
	highest := RoleEmployee
	for _, r := range roles {
		if r.Rank() > highest.Rank() {
			highest = r
		}
	}
	return highest
}

// RoleAssignment links an employee to one role. Revocation is a soft delete:
// the row keeps its history, only is_active and revoked_at change. At most
// one active assignment may exist per (employee, role) pair.
type RoleAssignment struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	EmployeeID uint       `gorm:"index:idx_role_assignment_employee;not null" json:"employee_id"`
	Role       Role       `gorm:"size:32;index:idx_role_assignment_employee;not null" json:"role"`
	IsActive   bool       `gorm:"index;not null;default:true" json:"is_active"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
