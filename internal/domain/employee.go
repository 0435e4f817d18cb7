package domain

import "time"

// Employee is the HR master record. The auth core reads it to resolve
// identities and only ever writes the provider linkage fields
// (ProviderSubjectID, ProfilePictureURL) during first-login enrichment.
type Employee struct {
	ID                uint        `gorm:"primaryKey" json:"id"`
	EmployeeNumber    string      `gorm:"size:32;uniqueIndex;not null" json:"employee_number"`
	Email             string      `gorm:"size:255;uniqueIndex;not null" json:"email"`
	DisplayName       string      `gorm:"size:255;not null" json:"display_name"`
	IsActive          bool        `gorm:"index;not null;default:true" json:"is_active"`
	ProviderSubjectID *string     `gorm:"size:128;index" json:"-"`
	ProfilePictureURL *string     `gorm:"size:512" json:"profile_picture_url,omitempty"`
	DepartmentID      *uint       `gorm:"index" json:"department_id,omitempty"`
	Department        *Department `json:"department,omitempty"`
	LocationID        *uint       `gorm:"index" json:"location_id,omitempty"`
	Location          *Location   `json:"location,omitempty"`
	ManagerID         *uint       `gorm:"index" json:"manager_id,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

type Department struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:128;uniqueIndex;not null" json:"name"`
}

type Location struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:128;uniqueIndex;not null" json:"name"`
	City string `gorm:"size:128" json:"city,omitempty"`
}
