package core

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"ferrycast/internal/types"
)

// ValidationCoder lets a request type map a failed field onto its own error
// code and message. The first failing field wins; types without the mapping
// fall back to the generic missing-field code.
type ValidationCoder interface {
	ValidationCode(field string) (types.ErrorCode, string)
}

// Validator wraps go-playground/validator for request payloads. Rules live
// in validate struct tags; failures come back as AppErrors ready for Error.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a Validator and registers the domain tags.
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New()

	// outcome: the value is a recognized observed outcome.
	if err := v.RegisterValidation("outcome", func(fl validator.FieldLevel) bool {
		return types.ObservedOutcome(fl.Field().String()).Valid()
	}); err != nil {
		panic(err)
	}

	return &Validator{validate: v, logger: logger}
}

// ValidateStruct runs the tag rules on s and converts the first failure
// into an AppError.
func (v *Validator) ValidateStruct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		v.logger.Error("struct validation failed", "error", err)
		return types.NewAppError(types.ErrCodeValidationMissingField, "request failed validation", err)
	}

	fe := verrs[0]
	if coder, ok := s.(ValidationCoder); ok {
		if code, msg := coder.ValidationCode(fe.StructField()); code != "" {
			return types.NewAppError(code, msg, nil)
		}
	}
	return types.NewAppError(types.ErrCodeValidationMissingField,
		fmt.Sprintf("%s failed the %s rule", strings.ToLower(fe.StructField()), fe.Tag()), nil)
}
