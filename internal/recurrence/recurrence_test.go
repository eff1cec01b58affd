package recurrence

import (
	"errors"
	"math/rand"
	"testing"

	"piggyback/internal/calendar"
	"piggyback/internal/models"
)

func d(s string) calendar.Date { return calendar.MustParseDate(s) }

func TestNextOccurrence(t *testing.T) {
	tests := []struct {
		name string
		from string
		r    models.RecurrenceType
		want string
	}{
		{"weekly", "2026-01-08", models.RecurrenceWeekly, "2026-01-15"},
		{"weekly_crosses_year", "2025-12-29", models.RecurrenceWeekly, "2026-01-05"},
		{"fortnightly", "2026-01-08", models.RecurrenceFortnightly, "2026-01-22"},
		{"monthly", "2026-01-01", models.RecurrenceMonthly, "2026-02-01"},
		{"monthly_clamps_jan_31", "2026-01-31", models.RecurrenceMonthly, "2026-02-28"},
		{"monthly_clamps_leap_year", "2028-01-31", models.RecurrenceMonthly, "2028-02-29"},
		{"quarterly", "2026-11-30", models.RecurrenceQuarterly, "2027-02-28"},
		{"yearly", "2026-03-15", models.RecurrenceYearly, "2027-03-15"},
		{"yearly_from_leap_day", "2028-02-29", models.RecurrenceYearly, "2029-02-28"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextOccurrence(d(tt.from), tt.r)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("NextOccurrence(%s, %s) = %s, want %s", tt.from, tt.r, got, tt.want)
			}
		})
	}
}

func TestNextOccurrenceRejects(t *testing.T) {
	t.Run("one_time", func(t *testing.T) {
		_, err := NextOccurrence(d("2026-01-01"), models.RecurrenceOneTime)
		if !errors.Is(err, ErrOneTime) {
			t.Errorf("expected ErrOneTime, got %v", err)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := NextOccurrence(d("2026-01-01"), models.RecurrenceType("daily"))
		if !errors.Is(err, ErrUnknownRecurrence) {
			t.Errorf("expected ErrUnknownRecurrence, got %v", err)
		}
	})
}

func TestAdvancePastDate(t *testing.T) {
	tests := []struct {
		name      string
		due       string
		r         models.RecurrenceType
		reference string
		want      string
	}{
		{"rent_paid_after_due", "2026-01-01", models.RecurrenceMonthly, "2026-01-05", "2026-02-01"},
		{"rent_second_payment", "2026-02-01", models.RecurrenceMonthly, "2026-02-03", "2026-03-01"},
		{"paid_on_due_date", "2026-01-01", models.RecurrenceMonthly, "2026-01-01", "2026-02-01"},
		{"already_ahead", "2026-03-01", models.RecurrenceMonthly, "2026-02-10", "2026-03-01"},
		{"weekly_catches_up", "2026-01-01", models.RecurrenceWeekly, "2026-01-22", "2026-01-29"},
		{"fortnightly_skips_windows", "2026-01-08", models.RecurrenceFortnightly, "2026-03-01", "2026-03-05"},
		{"quarterly", "2026-01-15", models.RecurrenceQuarterly, "2026-05-01", "2026-07-15"},
		{"yearly_many_years", "2020-06-30", models.RecurrenceYearly, "2026-06-30", "2027-06-30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AdvancePastDate(d(tt.due), tt.r, d(tt.reference))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("AdvancePastDate(%s, %s, %s) = %s, want %s", tt.due, tt.r, tt.reference, got, tt.want)
			}
		})
	}
}

func TestAdvancePastDateOneTime(t *testing.T) {
	_, err := AdvancePastDate(d("2026-01-01"), models.RecurrenceOneTime, d("2026-02-01"))
	if !errors.Is(err, ErrOneTime) {
		t.Errorf("expected ErrOneTime, got %v", err)
	}
}

func TestAdvancePastDateLimit(t *testing.T) {
	steps["test-zero-step"] = func(d calendar.Date) calendar.Date { return d }
	defer delete(steps, "test-zero-step")

	_, err := AdvancePastDate(d("2026-01-01"), "test-zero-step", d("2026-02-01"))
	if !errors.Is(err, ErrAdvanceLimit) {
		t.Errorf("expected ErrAdvanceLimit, got %v", err)
	}
}

// For any reference on or after the due date the result is strictly after
// the reference, and stepping back one occurrence lands on or before it.
func TestAdvancePastDateIsSmallestStrictlyAfter(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	recurring := []models.RecurrenceType{
		models.RecurrenceWeekly,
		models.RecurrenceFortnightly,
		models.RecurrenceMonthly,
		models.RecurrenceQuarterly,
		models.RecurrenceYearly,
	}
	base := d("2024-01-01")

	for i := 0; i < 500; i++ {
		r := recurring[rng.Intn(len(recurring))]
		due := base.AddDays(rng.Intn(1000))
		reference := due.AddDays(rng.Intn(800))

		got, err := AdvancePastDate(due, r, reference)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !got.After(reference) {
			t.Fatalf("%s from %s past %s: %s is not after reference", r, due, reference, got)
		}

		// Replay the chain to find the predecessor of got.
		prev := due
		for {
			next, _ := NextOccurrence(prev, r)
			if next.Equal(got) {
				break
			}
			if next.After(got) {
				t.Fatalf("%s from %s: %s is not on the occurrence chain", r, due, got)
			}
			prev = next
		}
		if prev.After(reference) {
			t.Fatalf("%s from %s past %s: predecessor %s already after reference, %s is not smallest", r, due, reference, prev, got)
		}
	}
}
