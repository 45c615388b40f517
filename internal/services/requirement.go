package services

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/harshaldxb/leadengine/internal/apperr"
	"github.com/harshaldxb/leadengine/internal/models"
)

// newStructValidator reports failures by json field name.
func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

var requirementValidator = newStructValidator()

// NormalizeRequirement validates req and returns it with its location
// normalized. Budget bounds must satisfy 0 <= min <= max and max > 0.
func NormalizeRequirement(req models.Requirement) (models.Requirement, error) {
	req.ClientID = strings.TrimSpace(req.ClientID)
	req.Location = models.NormalizeLocation(req.Location)
	if err := requirementValidator.Struct(req); err != nil {
		var ves validator.ValidationErrors
		if errors.As(err, &ves) && len(ves) > 0 {
			fe := ves[0]
			return req, apperr.NewValidation(fe.Field(), "failed "+fe.Tag()+" check")
		}
		return req, apperr.NewValidation("", err.Error())
	}
	switch {
	case req.BudgetMin.IsNegative():
		return req, apperr.NewValidation("budget_min", "must not be negative")
	case !req.BudgetMax.IsPositive():
		return req, apperr.NewValidation("budget_max", "must be positive")
	case req.BudgetMin.GreaterThan(req.BudgetMax):
		return req, apperr.NewValidation("budget_min", "exceeds budget_max")
	}
	return req, nil
}
