package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"piggyback/internal/calendar"
	"piggyback/internal/models"
	"piggyback/internal/uuid"

	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// NewPartnershipID returns a fresh partnership id.
func NewPartnershipID() string {
	return uuid.New()
}

// CreateTestExpense creates an active expense due on nextDue ("2006-01-02").
func CreateTestExpense(t *testing.T, db *gorm.DB, partnershipID string, recurrence models.RecurrenceType, nextDue string) *models.ExpenseDefinition {
	t.Helper()

	expense := &models.ExpenseDefinition{
		PartnershipID:  partnershipID,
		Name:           fmt.Sprintf("Expense %d", nextID()),
		CategoryName:   "Housing",
		ExpectedAmount: 200000,
		RecurrenceType: recurrence,
		NextDueDate:    calendar.MustParseDate(nextDue),
		IsActive:       true,
	}
	if err := db.Create(expense).Error; err != nil {
		t.Fatalf("failed to create test expense: %v", err)
	}
	return expense
}

// CreateTestTransaction creates a transaction settled at 10:00 UTC on
// settled ("2006-01-02").
func CreateTestTransaction(t *testing.T, db *gorm.DB, partnershipID string, amount int64, settled string) *models.Transaction {
	t.Helper()

	at := calendar.MustParseDate(settled).Add(10 * time.Hour)
	return CreateTestTransactionAt(t, db, partnershipID, amount, &at, at)
}

// CreateTestTransactionAt creates a transaction with explicit timestamps.
// A nil settledAt leaves the transaction pending.
func CreateTestTransactionAt(t *testing.T, db *gorm.DB, partnershipID string, amount int64, settledAt *time.Time, createdAt time.Time) *models.Transaction {
	t.Helper()

	txn := &models.Transaction{
		PartnershipID: partnershipID,
		ExternalID:    fmt.Sprintf("ext-%d", nextID()),
		Amount:        amount,
		Description:   "TEST MERCHANT",
		SettledAt:     settledAt,
		CreatedAt:     createdAt,
	}
	if err := db.Create(txn).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return txn
}

// CreateTestMatch links a transaction to an expense. A nil forPeriod creates
// a legacy row without a bucket.
func CreateTestMatch(t *testing.T, db *gorm.DB, expenseID, transactionID string, forPeriod *calendar.Date) *models.ExpenseMatch {
	t.Helper()

	match := &models.ExpenseMatch{
		ExpenseDefinitionID: expenseID,
		TransactionID:       transactionID,
		MatchConfidence:     1,
		MatchedBy:           models.MatchedBySystem,
		ForPeriod:           forPeriod,
		MatchedAt:           time.Now().UTC(),
	}
	if err := db.Create(match).Error; err != nil {
		t.Fatalf("failed to create test match: %v", err)
	}
	return match
}

// CategoryKey returns the assignment key for a category target in the
// default budget.
func CategoryKey(partnershipID, period, category string, view models.BudgetView) models.AssignmentKey {
	return models.AssignmentKey{
		PartnershipID: partnershipID,
		Period:        period,
		View:          view,
		Target:        models.CategoryTarget{Name: category},
	}
}

// CreateTestAssignment inserts an assignment row for key with version 1.
func CreateTestAssignment(t *testing.T, db *gorm.DB, key models.AssignmentKey, amount int64) *models.BudgetAssignment {
	t.Helper()

	row := key.NewRow(amount, "test-user")
	if err := db.Create(row).Error; err != nil {
		t.Fatalf("failed to create test assignment: %v", err)
	}
	return row
}
