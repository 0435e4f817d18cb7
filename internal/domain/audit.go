package domain

import "time"

// AuditRecord is a best-effort trail of security-relevant actions. Writes
// must never fail the request that produced them.
type AuditRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Action     string    `gorm:"size:64;index;not null" json:"action"`
	ActorID    uint      `gorm:"index" json:"actor_id"`
	EntityType string    `gorm:"size:64" json:"entity_type"`
	EntityID   uint      `json:"entity_id"`
	Payload    string    `gorm:"type:text" json:"payload,omitempty"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}
