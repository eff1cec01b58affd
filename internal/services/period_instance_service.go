package services

import (
	"context"
	"sort"

	"gorm.io/gorm"

	"piggyback/internal/calendar"
	apperrors "piggyback/internal/errors"
	"piggyback/internal/models"
	"piggyback/internal/repository"
)

// periodInstanceService builds paid/unpaid projections from stored data.
type periodInstanceService struct {
	expenses repository.ExpenseRepo
	matches  repository.MatchRepo
}

// NewPeriodInstanceService creates a new PeriodInstanceServicer.
func NewPeriodInstanceService(db *gorm.DB) PeriodInstanceServicer {
	return &periodInstanceService{
		expenses: repository.NewExpenseRepo(db),
		matches:  repository.NewMatchRepo(db),
	}
}

// ProjectWindow loads the partnership's active expenses and in-window matches
// and projects them over [from, to].
func (s *periodInstanceService) ProjectWindow(ctx context.Context, partnershipID string, from, to calendar.Date) (*Projection, error) {
	if from.IsZero() || to.IsZero() || from.After(to) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "window must have a start on or before its end")
	}

	expenses, err := s.expenses.ListActive(ctx, partnershipID)
	if err != nil {
		return nil, storeError(err, nil)
	}
	matches, err := s.matches.ListInWindow(ctx, partnershipID, from, to)
	if err != nil {
		return nil, storeError(err, nil)
	}

	byExpense := make(map[string][]models.ExpenseMatch, len(expenses))
	for _, m := range matches {
		byExpense[m.ExpenseDefinitionID] = append(byExpense[m.ExpenseDefinitionID], m)
	}

	p := Project(expenses, byExpense, from, to)
	return &p, nil
}

// Project splits expenses into paid and unpaid instances for [from, to].
//
// A match is in the window when its period date (for_period, or the linked
// transaction's effective date for legacy rows) lies within the inclusive
// window. Each in-window match yields one paid instance; an expense with none
// yields a single unpaid instance at its next due date.
func Project(expenses []models.ExpenseDefinition, matchesByExpense map[string][]models.ExpenseMatch, from, to calendar.Date) Projection {
	p := Projection{
		Paid:   []PaidInstance{},
		Unpaid: []UnpaidInstance{},
	}

	for i := range expenses {
		e := &expenses[i]
		paid := 0
		for j := range matchesByExpense[e.ID] {
			m := &matchesByExpense[e.ID][j]
			period, ok := m.PeriodDate()
			if !ok || !period.Between(from, to) {
				continue
			}
			p.Paid = append(p.Paid, paidInstance(e, m, period))
			paid++
		}
		if paid == 0 {
			p.Unpaid = append(p.Unpaid, UnpaidInstance{
				ExpenseID:      e.ID,
				Name:           e.Name,
				CategoryName:   e.CategoryName,
				ExpectedAmount: e.ExpectedAmount,
				RecurrenceType: e.RecurrenceType,
				DueDate:        e.NextDueDate,
			})
		}
	}

	sort.SliceStable(p.Paid, func(i, j int) bool {
		a, b := p.Paid[i], p.Paid[j]
		if !a.MatchedDate.Equal(b.MatchedDate) {
			return a.MatchedDate.After(b.MatchedDate)
		}
		return a.MatchID < b.MatchID
	})
	sort.SliceStable(p.Unpaid, func(i, j int) bool {
		a, b := p.Unpaid[i], p.Unpaid[j]
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		return a.ExpenseID < b.ExpenseID
	})
	return p
}

func paidInstance(e *models.ExpenseDefinition, m *models.ExpenseMatch, period calendar.Date) PaidInstance {
	inst := PaidInstance{
		ExpenseID:      e.ID,
		Name:           e.Name,
		CategoryName:   e.CategoryName,
		ExpectedAmount: e.ExpectedAmount,
		Amount:         e.ExpectedAmount,
		MatchedDate:    period,
		ForPeriod:      period,
		MatchID:        m.ID,
		TransactionID:  m.TransactionID,
	}
	if m.Transaction != nil {
		inst.Amount = m.Transaction.AbsAmount()
		inst.MatchedDate = m.Transaction.EffectiveDate()
	}
	return inst
}
