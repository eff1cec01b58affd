package models

// AuditLog records who linked, assigned or deleted what within a partnership.
type AuditLog struct {
	Base
	PartnershipID string `gorm:"type:uuid;not null;index" json:"partnership_id"`
	Actor         string `gorm:"not null" json:"actor"`
	Action        string `gorm:"not null" json:"action"`
	ResourceType  string `gorm:"not null" json:"resource_type"`
	ResourceID    string `json:"resource_id"`
	Changes       string `json:"changes,omitempty"`
}
