package models

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report violations under their persisted field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateRecord checks score ranges, closed-set membership and identity
// fields. Every violation is reported, not just the first.
func ValidateRecord(rec Record) error {
	var violations []Violation
	if err := validate.Struct(rec); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return &ValidationError{Violations: []Violation{{Field: "record", Rule: err.Error()}}}
		}
		for _, fe := range fieldErrs {
			rule := fe.Tag()
			if fe.Param() != "" {
				rule += "=" + fe.Param()
			}
			violations = append(violations, Violation{Field: fe.Field(), Value: fe.Value(), Rule: rule})
		}
	}
	if rec.Timestamp.IsZero() {
		violations = append(violations, Violation{Field: "timestamp", Value: rec.Timestamp, Rule: "required"})
	}
	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: violations}
}
