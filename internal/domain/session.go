package domain

import "time"

// Session revocation reasons recorded on the row for forensics.
const (
	RevokeReasonLogout       = "logout"
	RevokeReasonRotated      = "rotated"
	RevokeReasonReuseCascade = "reuse_cascade"
	RevokeReasonAdmin        = "admin_revoked"
)

// Session binds one issued token pair to an employee. Only one-way hashes of
// the tokens are stored; a database read can never reconstruct a usable
// credential. Rows are never deleted: revocation flips is_revoked and the
// audit trail stays intact.
type Session struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	EmployeeID       uint       `gorm:"index;not null" json:"employee_id"`
	AccessTokenHash  string     `gorm:"size:128;uniqueIndex;not null" json:"-"`
	RefreshTokenHash *string    `gorm:"size:128;uniqueIndex" json:"-"`
	IP               string     `gorm:"size:64" json:"ip"`
	UserAgent        string     `gorm:"size:512" json:"user_agent"`
	ExpiresAt        time.Time  `gorm:"index;not null" json:"expires_at"`
	IsRevoked        bool       `gorm:"index;not null;default:false" json:"is_revoked"`
	RevokedReason    *string    `gorm:"size:64" json:"revoked_reason,omitempty"`
	ReuseDetectedAt  *time.Time `gorm:"index" json:"reuse_detected_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Live reports whether the session can still authenticate requests.
func (s *Session) Live(now time.Time) bool {
	return !s.IsRevoked && s.ExpiresAt.After(now)
}
