package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"piggyback/internal/calendar"
	apperrors "piggyback/internal/errors"
	"piggyback/internal/logger"
	"piggyback/internal/models"
	"piggyback/internal/recurrence"
	"piggyback/internal/repository"
	"piggyback/internal/validator"
)

// matcherService links transactions to expense definitions.
type matcherService struct {
	expenses     repository.ExpenseRepo
	transactions repository.TransactionRepo
	matches      repository.MatchRepo
	audit        AuditServicer
	now          func() time.Time
}

// NewMatcherService creates a new MatcherServicer.
func NewMatcherService(db *gorm.DB, audit AuditServicer) MatcherServicer {
	return newMatcherService(
		repository.NewExpenseRepo(db),
		repository.NewTransactionRepo(db),
		repository.NewMatchRepo(db),
		audit,
	)
}

func newMatcherService(expenses repository.ExpenseRepo, transactions repository.TransactionRepo, matches repository.MatchRepo, audit AuditServicer) *matcherService {
	return &matcherService{
		expenses:     expenses,
		transactions: transactions,
		matches:      matches,
		audit:        audit,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Match links txn to expense for the period its effective date falls in and
// advances the expense's due date past that date.
//
// A transaction is linked at most once. Re-matching it to the same expense
// returns the existing link and re-runs the advance, so a replay after a
// partial failure converges. Matching it to a different expense changes
// nothing and reports MatchOutcomeAlreadyLinked.
func (s *matcherService) Match(ctx context.Context, txn *models.Transaction, expense *models.ExpenseDefinition, actor string) (*MatchResult, error) {
	return s.match(ctx, txn, expense, actor, 1)
}

// MatchTransaction loads the transaction and expense by id and runs Match.
func (s *matcherService) MatchTransaction(ctx context.Context, in MatchInput) (*MatchResult, error) {
	if err := validator.Struct(in); err != nil {
		return nil, err
	}

	txn, err := s.transactions.FindByID(ctx, in.PartnershipID, in.TransactionID)
	if err != nil {
		return nil, storeError(err, apperrors.ErrTransactionNotFound)
	}
	expense, err := s.expenses.FindByID(ctx, in.PartnershipID, in.ExpenseID)
	if err != nil {
		return nil, storeError(err, apperrors.ErrExpenseNotFound)
	}

	confidence := in.Confidence
	if confidence == 0 {
		confidence = 1
	}
	return s.match(ctx, txn, expense, in.Actor, confidence)
}

func (s *matcherService) match(ctx context.Context, txn *models.Transaction, expense *models.ExpenseDefinition, actor string, confidence float64) (*MatchResult, error) {
	if txn == nil || expense == nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "transaction and expense are required")
	}
	if txn.PartnershipID != expense.PartnershipID {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "transaction and expense belong to different partnerships")
	}
	if !expense.IsActive {
		return nil, apperrors.ErrExpenseInactive
	}
	if actor == "" {
		actor = models.MatchedBySystem
	}

	effective := txn.EffectiveDate()
	forPeriod, err := recurrence.PeriodFor(effective, expense.RecurrenceType, expense.NextDueDate)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, err)
	}

	match := &models.ExpenseMatch{
		ExpenseDefinitionID: expense.ID,
		TransactionID:       txn.ID,
		MatchConfidence:     confidence,
		MatchedBy:           actor,
		ForPeriod:           &forPeriod,
		MatchedAt:           s.now(),
	}
	created, err := s.matches.InsertIfUnlinked(ctx, match)
	if err != nil {
		return nil, storeError(err, nil)
	}

	result := &MatchResult{
		Outcome:     MatchOutcomeCreated,
		Created:     created,
		ForPeriod:   forPeriod,
		Match:       match,
		NextDueDate: expense.NextDueDate,
	}

	if !created {
		existing, err := s.matches.FindByTransactionID(ctx, txn.ID)
		if err != nil {
			// The link we collided with was removed in between.
			return nil, storeError(fmt.Errorf("transaction %s link vanished: %w", txn.ID, err), nil)
		}
		existing.Transaction = txn
		if period, ok := existing.PeriodDate(); ok {
			result.ForPeriod = period
		}
		result.Match = existing

		if existing.ExpenseDefinitionID != expense.ID {
			result.Outcome = MatchOutcomeAlreadyLinked
			logger.Named("matcher").Infow("transaction already linked to another expense",
				"transaction_id", txn.ID,
				"expense_id", expense.ID,
				"linked_expense_id", existing.ExpenseDefinitionID,
			)
			return result, nil
		}
		result.Outcome = MatchOutcomeExisting
	} else {
		s.warnOnDuplicatePeriod(ctx, expense.ID, txn.ID, forPeriod)
		s.audit.Log(expense.PartnershipID, actor, AuditLinkTransaction, "expense_match", match.ID, map[string]any{
			"expense_id":     expense.ID,
			"transaction_id": txn.ID,
			"for_period":     forPeriod.String(),
			"confidence":     confidence,
		})
	}

	if expense.RecurrenceType == models.RecurrenceOneTime {
		return result, nil
	}

	next, err := s.advanceDueDate(ctx, expense, effective)
	if err != nil {
		return nil, err
	}
	result.NextDueDate = next
	return result, nil
}

// advanceDueDate moves the persisted next_due_date past effective. The
// advance is computed from the stored value, not the caller's copy, and the
// write only lands if it moves the date forward.
func (s *matcherService) advanceDueDate(ctx context.Context, expense *models.ExpenseDefinition, effective calendar.Date) (calendar.Date, error) {
	current, err := s.expenses.FindByID(ctx, expense.PartnershipID, expense.ID)
	if err != nil {
		return calendar.Date{}, storeError(err, apperrors.ErrExpenseNotFound)
	}

	next, err := recurrence.AdvancePastDate(current.NextDueDate, current.RecurrenceType, effective)
	if err != nil {
		return calendar.Date{}, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if next.Equal(current.NextDueDate) {
		return next, nil
	}

	applied, err := s.expenses.AdvanceDueDate(ctx, expense.ID, next)
	if err != nil {
		return calendar.Date{}, storeError(err, nil)
	}
	if applied {
		logger.Named("matcher").Debugw("advanced due date",
			"expense_id", expense.ID,
			"from", current.NextDueDate.String(),
			"to", next.String(),
		)
		return next, nil
	}

	// A concurrent match already advanced at least as far.
	latest, err := s.expenses.FindByID(ctx, expense.PartnershipID, expense.ID)
	if err != nil {
		return calendar.Date{}, storeError(err, apperrors.ErrExpenseNotFound)
	}
	return latest.NextDueDate, nil
}

func (s *matcherService) warnOnDuplicatePeriod(ctx context.Context, expenseID, transactionID string, forPeriod calendar.Date) {
	n, err := s.matches.CountForPeriod(ctx, expenseID, forPeriod, transactionID)
	if err != nil {
		logger.Named("matcher").Warnw("failed to check period duplicates", "error", err, "expense_id", expenseID)
		return
	}
	if n > 0 {
		logger.Named("matcher").Warnw("expense has more than one match for period",
			"expense_id", expenseID,
			"for_period", forPeriod.String(),
			"other_matches", n,
		)
	}
}

// ListMatchesInWindow returns the partnership's matches bucketed in [from, to].
func (s *matcherService) ListMatchesInWindow(ctx context.Context, partnershipID string, from, to calendar.Date) ([]models.ExpenseMatch, error) {
	if from.After(to) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "window start must not be after window end")
	}
	matches, err := s.matches.ListInWindow(ctx, partnershipID, from, to)
	if err != nil {
		return nil, storeError(err, nil)
	}
	return matches, nil
}

// UnlinkTransaction removes a transaction's match. The expense's due date is
// left where it is.
func (s *matcherService) UnlinkTransaction(ctx context.Context, partnershipID, transactionID, actor string) error {
	ok, err := s.matches.DeleteByTransactionID(ctx, partnershipID, transactionID)
	if err != nil {
		return storeError(err, nil)
	}
	if !ok {
		return apperrors.ErrMatchNotFound
	}

	s.audit.Log(partnershipID, actor, AuditUnlinkTransaction, "expense_match", transactionID, nil)
	return nil
}

