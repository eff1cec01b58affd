package services

import (
	"context"
	"time"

	"piggyback/internal/calendar"
	"piggyback/internal/models"
	"piggyback/internal/pagination"
)

// CreateExpenseInput holds the fields needed to define an expected expense.
type CreateExpenseInput struct {
	PartnershipID  string                `validate:"required,uuid"`
	Name           string                `validate:"required,max=255"`
	CategoryName   string                `validate:"required,max=255"`
	ExpectedAmount int64                 `validate:"gte=0"`
	RecurrenceType models.RecurrenceType `validate:"required,recurrence_type"`
	NextDueDate    calendar.Date
	MatchPattern   string `validate:"max=255"`
	Notes          string
	Actor          string `validate:"required"`
}

// ExpenseServicer defines the contract for expense definition management.
type ExpenseServicer interface {
	CreateExpense(ctx context.Context, in CreateExpenseInput) (*models.ExpenseDefinition, error)
	GetExpense(ctx context.Context, partnershipID, id string) (*models.ExpenseDefinition, error)
	ListActiveExpenses(ctx context.Context, partnershipID string) ([]models.ExpenseDefinition, error)
	DeactivateExpense(ctx context.Context, partnershipID, id, actor string) error
}

// RecordTransactionInput is one bank-feed event as delivered by ingestion.
type RecordTransactionInput struct {
	PartnershipID string `validate:"required,uuid"`
	ExternalID    string `validate:"required,max=255"`
	Amount        int64
	Description   string
	SettledAt     *time.Time
	CreatedAt     time.Time
}

// TransactionServicer defines the contract for transaction ingestion.
type TransactionServicer interface {
	RecordTransaction(ctx context.Context, in RecordTransactionInput) (*models.Transaction, error)
	GetTransaction(ctx context.Context, partnershipID, id string) (*models.Transaction, error)
}

// MatchOutcome says what a match attempt did.
type MatchOutcome string

const (
	// MatchOutcomeCreated means a new link was written.
	MatchOutcomeCreated MatchOutcome = "created"
	// MatchOutcomeExisting means the transaction was already linked to the
	// same expense; the call was an idempotent replay.
	MatchOutcomeExisting MatchOutcome = "existing"
	// MatchOutcomeAlreadyLinked means the transaction belongs to a different
	// expense. Nothing was written.
	MatchOutcomeAlreadyLinked MatchOutcome = "already_linked"
)

// MatchResult describes the outcome of linking a transaction to an expense.
type MatchResult struct {
	Outcome MatchOutcome
	// Created is true only when this call inserted the match.
	Created bool
	// ForPeriod is the bucket of the transaction's match.
	ForPeriod calendar.Date
	// Match is the persisted link (the pre-existing one when not Created).
	Match *models.ExpenseMatch
	// NextDueDate is the expense's due date after the call.
	NextDueDate calendar.Date
}

// MatchInput identifies a transaction and the expense it should be linked to.
type MatchInput struct {
	PartnershipID string  `json:"partnership_id" validate:"required,uuid"`
	TransactionID string  `json:"transaction_id" validate:"required,uuid"`
	ExpenseID     string  `json:"expense_id" validate:"required,uuid"`
	Actor         string  `json:"actor"`
	Confidence    float64 `json:"confidence" validate:"confidence"`
}

// MatcherServicer defines the contract for linking transactions to expenses.
type MatcherServicer interface {
	Match(ctx context.Context, txn *models.Transaction, expense *models.ExpenseDefinition, actor string) (*MatchResult, error)
	MatchTransaction(ctx context.Context, in MatchInput) (*MatchResult, error)
	ListMatchesInWindow(ctx context.Context, partnershipID string, from, to calendar.Date) ([]models.ExpenseMatch, error)
	UnlinkTransaction(ctx context.Context, partnershipID, transactionID, actor string) error
}

// AssignmentServicer defines the contract for the budget assignment ledger.
type AssignmentServicer interface {
	// Assign sets the allocation for key. With a nil expectedVersion the
	// write is last-write-wins; otherwise it fails with ErrConflict unless
	// the stored row still carries that version.
	Assign(ctx context.Context, key models.AssignmentKey, amount int64, expectedVersion *int64, actor string) (*models.BudgetAssignment, error)
	GetAssignment(ctx context.Context, key models.AssignmentKey) (*models.BudgetAssignment, error)
	ListAssignments(ctx context.Context, partnershipID, period string, view *models.BudgetView, page pagination.PageRequest) (*pagination.PageResponse[models.BudgetAssignment], error)
	DeleteAssignment(ctx context.Context, partnershipID, id, actor string) error
}

// PaidInstance is one in-window payment of an expense.
type PaidInstance struct {
	ExpenseID      string        `json:"expense_id"`
	Name           string        `json:"name"`
	CategoryName   string        `json:"category_name"`
	ExpectedAmount int64         `json:"expected_amount"`
	Amount         int64         `json:"amount"`
	MatchedDate    calendar.Date `json:"matched_date"`
	ForPeriod      calendar.Date `json:"for_period"`
	MatchID        string        `json:"match_id"`
	TransactionID  string        `json:"transaction_id"`
}

// UnpaidInstance is an expense with no payment in the window.
type UnpaidInstance struct {
	ExpenseID      string                `json:"expense_id"`
	Name           string                `json:"name"`
	CategoryName   string                `json:"category_name"`
	ExpectedAmount int64                 `json:"expected_amount"`
	RecurrenceType models.RecurrenceType `json:"recurrence_type"`
	DueDate        calendar.Date         `json:"due_date"`
}

// Projection is the paid/unpaid view of a window. Paid is ordered by matched
// date, most recent first; Unpaid by due date, soonest first.
type Projection struct {
	Paid   []PaidInstance   `json:"paid"`
	Unpaid []UnpaidInstance `json:"unpaid"`
}

// PeriodInstanceServicer defines the contract for window projections.
type PeriodInstanceServicer interface {
	ProjectWindow(ctx context.Context, partnershipID string, from, to calendar.Date) (*Projection, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(partnershipID, actor, action, resourceType, resourceID string, changes map[string]any)
}
