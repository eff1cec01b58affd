package recurrence

import (
	"errors"
	"testing"

	"piggyback/internal/models"
)

func TestPeriodForWeeklyIsAnchored(t *testing.T) {
	anchor := d("2026-01-08") // Thursday

	sameDay, err := PeriodFor(d("2026-01-08"), models.RecurrenceWeekly, anchor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wednesday, _ := PeriodFor(d("2026-01-14"), models.RecurrenceWeekly, anchor)
	nextThursday, _ := PeriodFor(d("2026-01-15"), models.RecurrenceWeekly, anchor)

	if !sameDay.Equal(wednesday) {
		t.Errorf("2026-01-08 and 2026-01-14 should share a bucket, got %s and %s", sameDay, wednesday)
	}
	if sameDay.Equal(nextThursday) {
		t.Errorf("2026-01-15 should start a new bucket, got %s", nextThursday)
	}
	if sameDay.String() != "2026-01-08" || nextThursday.String() != "2026-01-15" {
		t.Errorf("unexpected bucket starts %s, %s", sameDay, nextThursday)
	}
}

func TestPeriodForAnchoredWindows(t *testing.T) {
	tests := []struct {
		name      string
		effective string
		r         models.RecurrenceType
		anchor    string
		want      string
	}{
		{"weekly_before_anchor", "2026-01-14", models.RecurrenceWeekly, "2026-02-05", "2026-01-08"},
		{"weekly_day_before_anchor", "2026-02-04", models.RecurrenceWeekly, "2026-02-05", "2026-01-29"},
		{"fortnightly_inside_window", "2026-01-21", models.RecurrenceFortnightly, "2026-01-08", "2026-01-08"},
		{"fortnightly_next_window", "2026-01-22", models.RecurrenceFortnightly, "2026-01-08", "2026-01-22"},
		{"fortnightly_before_anchor", "2026-01-07", models.RecurrenceFortnightly, "2026-01-08", "2025-12-25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PeriodFor(d(tt.effective), tt.r, d(tt.anchor))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("PeriodFor(%s, %s, %s) = %s, want %s", tt.effective, tt.r, tt.anchor, got, tt.want)
			}
		})
	}
}

func TestPeriodForWeeklyAnchorsDoNotCollide(t *testing.T) {
	paid := d("2026-01-14")
	a, _ := PeriodFor(paid, models.RecurrenceWeekly, d("2026-01-08"))
	b, _ := PeriodFor(paid, models.RecurrenceWeekly, d("2026-01-12"))
	if a.Equal(b) {
		t.Errorf("expenses anchored on different weekdays should bucket differently, both got %s", a)
	}
}

func TestPeriodForAnchorAdvanceKeepsBuckets(t *testing.T) {
	paid := d("2026-03-19")
	original, _ := PeriodFor(paid, models.RecurrenceFortnightly, d("2026-01-08"))
	advanced, _ := AdvancePastDate(d("2026-01-08"), models.RecurrenceFortnightly, d("2026-04-01"))
	later, _ := PeriodFor(paid, models.RecurrenceFortnightly, advanced)
	if !original.Equal(later) {
		t.Errorf("bucket moved after advancing anchor: %s vs %s", original, later)
	}
}

func TestPeriodForCalendarAligned(t *testing.T) {
	anchor := d("2026-01-20")
	tests := []struct {
		name      string
		effective string
		r         models.RecurrenceType
		want      string
	}{
		{"monthly", "2026-01-05", models.RecurrenceMonthly, "2026-01-01"},
		{"monthly_end_of_month", "2026-01-31", models.RecurrenceMonthly, "2026-01-01"},
		{"quarterly", "2026-05-17", models.RecurrenceQuarterly, "2026-04-01"},
		{"quarterly_q4", "2026-12-31", models.RecurrenceQuarterly, "2026-10-01"},
		{"yearly", "2026-09-09", models.RecurrenceYearly, "2026-01-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PeriodFor(d(tt.effective), tt.r, anchor)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("PeriodFor(%s, %s) = %s, want %s", tt.effective, tt.r, got, tt.want)
			}
		})
	}
}

func TestPeriodForOneTimeUsesDueDate(t *testing.T) {
	got, err := PeriodFor(d("2026-04-02"), models.RecurrenceOneTime, d("2026-03-30"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.String() != "2026-03-30" {
		t.Errorf("expected due date 2026-03-30, got %s", got)
	}
}

func TestPeriodForUnknown(t *testing.T) {
	_, err := PeriodFor(d("2026-04-02"), "daily", d("2026-03-30"))
	if !errors.Is(err, ErrUnknownRecurrence) {
		t.Errorf("expected ErrUnknownRecurrence, got %v", err)
	}
}
