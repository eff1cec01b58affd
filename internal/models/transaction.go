package models

import (
	"time"

	"piggyback/internal/calendar"
	"piggyback/internal/uuid"

	"gorm.io/gorm"
)

// Transaction is an immutable bank-feed event. Rows are never updated once
// ingested, so there is no Base embed and no soft delete.
type Transaction struct {
	ID            string     `gorm:"type:uuid;primaryKey" json:"id"`
	PartnershipID string     `gorm:"type:uuid;not null;uniqueIndex:uq_transactions_external" json:"partnership_id"`
	ExternalID    string     `gorm:"not null;uniqueIndex:uq_transactions_external" json:"external_id"`
	Amount        int64      `gorm:"type:bigint;not null" json:"amount"`
	Description   string     `json:"description"`
	SettledAt     *time.Time `json:"settled_at,omitempty"`
	CreatedAt     time.Time  `gorm:"not null" json:"created_at"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New()
	}
	return nil
}

// EffectiveDate is the date the transaction counts on: settled_at when the
// bank has settled it, created_at otherwise.
func (t *Transaction) EffectiveDate() calendar.Date {
	if t.SettledAt != nil && !t.SettledAt.IsZero() {
		return calendar.DateOf(*t.SettledAt)
	}
	return calendar.DateOf(t.CreatedAt)
}

// AbsAmount returns the magnitude of the amount in minor units.
func (t *Transaction) AbsAmount() int64 {
	if t.Amount < 0 {
		return -t.Amount
	}
	return t.Amount
}
