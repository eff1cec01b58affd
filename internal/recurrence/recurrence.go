// Package recurrence advances recurring-expense due dates and resolves the
// period bucket a payment belongs to. Everything here is pure: the reference
// date is always passed in, never read from a clock.
package recurrence

import (
	"errors"
	"fmt"

	"piggyback/internal/calendar"
	"piggyback/internal/models"
)

// MaxAdvanceSteps bounds AdvancePastDate. Every interval is at least seven
// days, so hitting this means the step function is broken.
const MaxAdvanceSteps = 10000

var (
	// ErrOneTime is returned when asked to advance a one-time expense.
	ErrOneTime = errors.New("one-time expenses do not recur")
	// ErrUnknownRecurrence is returned for recurrence types with no step.
	ErrUnknownRecurrence = errors.New("unknown recurrence type")
	// ErrAdvanceLimit is returned when AdvancePastDate fails to pass the
	// reference date within MaxAdvanceSteps.
	ErrAdvanceLimit = errors.New("due date advance did not converge")
)

// step moves a date forward by one occurrence.
type step func(calendar.Date) calendar.Date

var steps = map[models.RecurrenceType]step{
	models.RecurrenceWeekly:      func(d calendar.Date) calendar.Date { return d.AddDays(7) },
	models.RecurrenceFortnightly: func(d calendar.Date) calendar.Date { return d.AddDays(14) },
	models.RecurrenceMonthly:     func(d calendar.Date) calendar.Date { return d.AddMonthsClamped(1) },
	models.RecurrenceQuarterly:   func(d calendar.Date) calendar.Date { return d.AddMonthsClamped(3) },
	models.RecurrenceYearly:      func(d calendar.Date) calendar.Date { return d.AddMonthsClamped(12) },
}

func stepFor(r models.RecurrenceType) (step, error) {
	if r == models.RecurrenceOneTime {
		return nil, ErrOneTime
	}
	s, ok := steps[r]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRecurrence, r)
	}
	return s, nil
}

// NextOccurrence returns the occurrence after d.
func NextOccurrence(d calendar.Date, r models.RecurrenceType) (calendar.Date, error) {
	s, err := stepFor(r)
	if err != nil {
		return calendar.Date{}, err
	}
	return s(d), nil
}

// AdvancePastDate applies NextOccurrence starting at currentDue until the
// result is strictly after reference. A currentDue already after reference
// is returned unchanged.
func AdvancePastDate(currentDue calendar.Date, r models.RecurrenceType, reference calendar.Date) (calendar.Date, error) {
	s, err := stepFor(r)
	if err != nil {
		return calendar.Date{}, err
	}

	next := currentDue
	for i := 0; !next.After(reference); i++ {
		if i >= MaxAdvanceSteps {
			return calendar.Date{}, fmt.Errorf("%w: %s from %s past %s", ErrAdvanceLimit, r, currentDue, reference)
		}
		advanced := s(next)
		if !advanced.After(next) {
			return calendar.Date{}, fmt.Errorf("%w: %s step from %s did not move forward", ErrAdvanceLimit, r, next)
		}
		next = advanced
	}
	return next, nil
}
