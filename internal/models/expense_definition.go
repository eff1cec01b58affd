package models

import "piggyback/internal/calendar"

// RecurrenceType is how often an expected expense falls due.
type RecurrenceType string

const (
	RecurrenceWeekly      RecurrenceType = "weekly"
	RecurrenceFortnightly RecurrenceType = "fortnightly"
	RecurrenceMonthly     RecurrenceType = "monthly"
	RecurrenceQuarterly   RecurrenceType = "quarterly"
	RecurrenceYearly      RecurrenceType = "yearly"
	RecurrenceOneTime     RecurrenceType = "one-time"
)

// RecurrenceTypes lists every supported recurrence type.
var RecurrenceTypes = []RecurrenceType{
	RecurrenceWeekly,
	RecurrenceFortnightly,
	RecurrenceMonthly,
	RecurrenceQuarterly,
	RecurrenceYearly,
	RecurrenceOneTime,
}

// IsValid reports whether r is a known recurrence type.
func (r RecurrenceType) IsValid() bool {
	for _, known := range RecurrenceTypes {
		if r == known {
			return true
		}
	}
	return false
}

// ExpenseDefinition is a recurring or one-off expected expense.
// Definitions are deactivated, never hard-deleted while matches reference them.
type ExpenseDefinition struct {
	Base
	PartnershipID       string         `gorm:"type:uuid;not null;index" json:"partnership_id"`
	Name                string         `gorm:"not null" json:"name"`
	CategoryName        string         `gorm:"not null" json:"category_name"`
	ExpectedAmount      int64          `gorm:"type:bigint;not null" json:"expected_amount"`
	RecurrenceType      RecurrenceType `gorm:"not null" json:"recurrence_type"`
	NextDueDate         calendar.Date  `gorm:"type:date;not null" json:"next_due_date"`
	IsActive            bool           `gorm:"not null;default:true" json:"is_active"`
	MatchPattern        string         `json:"match_pattern,omitempty"`
	LinkedTransactionID *string        `gorm:"type:uuid" json:"linked_transaction_id,omitempty"`
	Notes               string         `json:"notes,omitempty"`

	Matches []ExpenseMatch `gorm:"foreignKey:ExpenseDefinitionID" json:"matches,omitempty"`
}
