package recurrence

import (
	"fmt"

	"piggyback/internal/calendar"
	"piggyback/internal/models"
)

// PeriodFor returns the canonical for_period bucket of a payment made on
// effective for an expense with the given recurrence and anchor due date.
//
// Weekly and fortnightly buckets are 7/14-day windows anchored on the
// expense's due date, so two weekly expenses on different weekdays never
// share a bucket. Advancing the due date moves it by whole windows, which
// keeps the anchor phase stable. Monthly, quarterly and yearly buckets are
// calendar-aligned and ignore the anchor. One-time expenses bucket on their
// due date.
func PeriodFor(effective calendar.Date, r models.RecurrenceType, anchor calendar.Date) (calendar.Date, error) {
	switch r {
	case models.RecurrenceWeekly:
		return anchoredWindowStart(effective, anchor, 7), nil
	case models.RecurrenceFortnightly:
		return anchoredWindowStart(effective, anchor, 14), nil
	case models.RecurrenceMonthly:
		return effective.MonthStart(), nil
	case models.RecurrenceQuarterly:
		return effective.QuarterStart(), nil
	case models.RecurrenceYearly:
		return effective.YearStart(), nil
	case models.RecurrenceOneTime:
		return anchor, nil
	default:
		return calendar.Date{}, fmt.Errorf("%w: %q", ErrUnknownRecurrence, r)
	}
}

// anchoredWindowStart returns the start of the length-day window, aligned to
// anchor, that contains d. Works on both sides of the anchor.
func anchoredWindowStart(d, anchor calendar.Date, length int) calendar.Date {
	offset := d.DaysSince(anchor)
	windows := offset / length
	if offset%length != 0 && offset < 0 {
		windows--
	}
	return anchor.AddDays(windows * length)
}
