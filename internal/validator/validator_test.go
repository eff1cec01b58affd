package validator

import (
	"strings"
	"testing"

	apperrors "piggyback/internal/errors"
	"piggyback/internal/testutil"
)

type sample struct {
	Recurrence string  `validate:"required,recurrence_type"`
	View       string  `validate:"required,budget_view"`
	Period     string  `validate:"required,period_key"`
	Confidence float64 `validate:"confidence"`
	Name       string  `validate:"required,max=5"`
	OwnerID    string  `validate:"required,uuid"`
}

func TestStruct(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		err := Struct(sample{Recurrence: "one-time", View: "shared", Period: "2026-12", Confidence: 0.5, Name: "Rent", OwnerID: "0190f3c4-5e2a-7b8c-9d0e-1f2a3b4c5d6e"})
		testutil.AssertNoError(t, err)
	})

	t.Run("invalid_fields_reported", func(t *testing.T) {
		err := Struct(sample{Recurrence: "daily", View: "joint", Period: "2026-13", Confidence: 1.5, Name: "Electricity", OwnerID: "txn-42"})
		testutil.AssertAppError(t, err, apperrors.ErrInvalidInput.Code)

		msg := err.Error()
		for _, want := range []string{"Recurrence", "View", "Period", "Confidence", "Name", "OwnerID must be a UUID"} {
			if !strings.Contains(msg, want) {
				t.Errorf("expected %q in message %q", want, msg)
			}
		}
	})
}

func TestIsPeriodKey(t *testing.T) {
	for _, s := range []string{"2026-01", "1999-12"} {
		if !IsPeriodKey(s) {
			t.Errorf("%q should be a period key", s)
		}
	}
	for _, s := range []string{"2026-1", "2026-00", "2026-13", "202601", "2026-01-01"} {
		if IsPeriodKey(s) {
			t.Errorf("%q should not be a period key", s)
		}
	}
}
