package services

import (
	"errors"
	"fmt"

	apperrors "github.com/talentflow/questionnaire-service/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrValidationFailed = errors.New("validation failed")
	ErrInternalError    = errors.New("internal server error")
	ErrConflict         = errors.New("resource conflict")

	// Template specific errors
	ErrTemplateNotFound      = errors.New("template not found")
	ErrTemplateVersionExists = errors.New("template version already exists")

	// Question / option specific errors
	ErrQuestionNotFound = errors.New("question not found")
	ErrOptionNotFound   = errors.New("option not found")
	ErrOptionNameEmpty  = errors.New("option name cannot be empty")

	// Submission specific errors
	ErrSubmissionNotFound      = errors.New("submission not found")
	ErrSubmissionAlreadyFinal  = errors.New("submission has already been submitted and cannot be modified")
	ErrSubmissionTimeExpired   = errors.New("time limit for this questionnaire has expired")
	ErrStepNotFound            = errors.New("job application step not found")
	ErrStepTemplateNotAssigned = errors.New("job application step has no questionnaire template assigned")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// InvariantViolationError marks a structural change attempted on in-use
// content. It is always fatal and never retried; callers must fork first.
type InvariantViolationError struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

func (ive *InvariantViolationError) Error() string {
	return fmt.Sprintf("invariant violation (%s): %s", ive.Rule, ive.Message)
}

func NewInvariantViolation(rule, message string) *InvariantViolationError {
	return &InvariantViolationError{Rule: rule, Message: message}
}

// ===== ERROR HELPERS =====

// NewValidationError creates a new validation error using the shared type
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrTemplateNotFound) ||
		errors.Is(err, ErrQuestionNotFound) ||
		errors.Is(err, ErrOptionNotFound) ||
		errors.Is(err, ErrSubmissionNotFound) ||
		errors.Is(err, ErrStepNotFound)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) {
		return true
	}
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}

// IsInvariantViolation checks if error represents a structural change blocked
// by the in-use rule
func IsInvariantViolation(err error) bool {
	var ive *InvariantViolationError
	return errors.As(err, &ive)
}

// IsConflict checks if error represents a resource conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrTemplateVersionExists) ||
		errors.Is(err, ErrSubmissionAlreadyFinal)
}
