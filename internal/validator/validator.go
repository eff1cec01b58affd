// Package validator wraps go-playground/validator with the engine's custom
// rules and converts failures into INVALID_INPUT app errors.
package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	apperrors "piggyback/internal/errors"
	"piggyback/internal/models"
)

var periodKeyRegex = regexp.MustCompile(`^[0-9]{4}-(0[1-9]|1[0-2])$`)

var (
	instance *validator.Validate
	once     sync.Once
)

// Get returns the shared validator with all custom rules registered.
func Get() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		_ = v.RegisterValidation("recurrence_type", validateRecurrenceType)
		_ = v.RegisterValidation("budget_view", validateBudgetView)
		_ = v.RegisterValidation("period_key", validatePeriodKey)
		_ = v.RegisterValidation("confidence", validateConfidence)
		instance = v
	})
	return instance
}

// Struct validates s and returns an ErrInvalidInput describing every failed
// field, or nil.
func Struct(s any) error {
	err := Get().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.Wrap(apperrors.ErrInvalidInput, err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}
	return apperrors.WithMessage(apperrors.ErrInvalidInput, strings.Join(msgs, "; "))
}

// IsPeriodKey reports whether s looks like "2026-01".
func IsPeriodKey(s string) bool {
	return periodKeyRegex.MatchString(s)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "recurrence_type":
		return fmt.Sprintf("%s must be one of weekly, fortnightly, monthly, quarterly, yearly, one-time", fe.Field())
	case "budget_view":
		return fmt.Sprintf("%s must be individual or shared", fe.Field())
	case "period_key":
		return fmt.Sprintf("%s must look like 2026-01", fe.Field())
	case "confidence":
		return fmt.Sprintf("%s must be between 0 and 1", fe.Field())
	case "uuid":
		return fmt.Sprintf("%s must be a UUID", fe.Field())
	default:
		if fe.Param() != "" {
			return fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param())
		}
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}

func validateRecurrenceType(fl validator.FieldLevel) bool {
	return models.RecurrenceType(fl.Field().String()).IsValid()
}

func validateBudgetView(fl validator.FieldLevel) bool {
	switch models.BudgetView(fl.Field().String()) {
	case models.BudgetViewIndividual, models.BudgetViewShared:
		return true
	}
	return false
}

func validatePeriodKey(fl validator.FieldLevel) bool {
	return IsPeriodKey(fl.Field().String())
}

func validateConfidence(fl validator.FieldLevel) bool {
	c := fl.Field().Float()
	return c >= 0 && c <= 1
}
