package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/gema-checker-api/internal/dto"
)

// ErrMissingField is matched by every MissingFieldError via errors.Is.
var ErrMissingField = errors.New("missing field")

// MissingFieldError reports the first required field that is empty after trimming.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field: %s", e.Field)
}

// Is allows errors.Is(err, ErrMissingField).
func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}

// requiredFieldNames maps struct fields onto the names reported to callers.
var requiredFieldNames = map[string]string{
	"UserCode":   "userCode",
	"Tests":      "tests",
	"ExerciseID": "exerciseId",
}

// NewValidator returns a validator with the custom tags used by request DTOs.
func NewValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	registerValidations(validate)
	return validate
}

func registerValidations(validate *validator.Validate) {
	// Only fails for an empty tag or nil func.
	_ = validate.RegisterValidation("notblank", notBlank)
}

func notBlank(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return !field.IsZero()
	}
	return strings.TrimSpace(field.String()) != ""
}

// missingFieldFromValidation converts the first validation failure into a MissingFieldError.
func missingFieldFromValidation(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return err
	}

	first := validationErrors[0]
	name, ok := requiredFieldNames[first.StructField()]
	if !ok {
		name = first.Field()
	}
	return &MissingFieldError{Field: name}
}

// ValidateRunRequest rejects submissions whose user code, tests or exercise id
// are blank, reporting only the first offending field. Optional fields are
// never checked.
func ValidateRunRequest(validate *validator.Validate, payload dto.RunTestsRequest) error {
	if err := validate.Struct(payload); err != nil {
		return missingFieldFromValidation(err)
	}
	return nil
}
