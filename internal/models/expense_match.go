package models

import (
	"time"

	"piggyback/internal/calendar"
	"piggyback/internal/uuid"

	"gorm.io/gorm"
)

// MatchedBySystem marks matches created without a user action.
const MatchedBySystem = "system"

// ExpenseMatch links exactly one transaction to one expense definition for
// one period. Matches are immutable; a transaction can be linked at most once.
type ExpenseMatch struct {
	ID                  string         `gorm:"type:uuid;primaryKey" json:"id"`
	ExpenseDefinitionID string         `gorm:"type:uuid;not null;index:idx_expense_matches_period" json:"expense_definition_id"`
	TransactionID       string         `gorm:"type:uuid;not null;uniqueIndex" json:"transaction_id"`
	MatchConfidence     float64        `gorm:"not null;default:1" json:"match_confidence"`
	MatchedBy           string         `gorm:"not null" json:"matched_by"`
	ForPeriod           *calendar.Date `gorm:"type:date;index:idx_expense_matches_period" json:"for_period"`
	MatchedAt           time.Time      `gorm:"not null" json:"matched_at"`

	Transaction *Transaction `gorm:"foreignKey:TransactionID" json:"transaction,omitempty"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (m *ExpenseMatch) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New()
	}
	return nil
}

// PeriodDate returns the bucket the match counts in. Legacy rows without a
// for_period fall back to the linked transaction's effective date; ok is
// false when neither is available.
func (m *ExpenseMatch) PeriodDate() (calendar.Date, bool) {
	if m.ForPeriod != nil && !m.ForPeriod.IsZero() {
		return *m.ForPeriod, true
	}
	if m.Transaction != nil {
		return m.Transaction.EffectiveDate(), true
	}
	return calendar.Date{}, false
}
