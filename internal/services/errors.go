package services

import (
	"errors"
	"fmt"

	apperrors "github.com/SAP-F-2025/answersheet-service/internal/errors"
	"github.com/SAP-F-2025/answersheet-service/internal/repositories"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrValidationFailed = errors.New("validation failed")

	// Answer sheet specific errors
	ErrQuestionNotFound = errors.New("question not found")
	ErrModuleNotFound   = errors.New("module not found")
	ErrRowNotFound      = errors.New("row not found")
	// ErrLastRow aborts a row deletion transaction; DeleteRow reports it as not deleted.
	ErrLastRow            = errors.New("a module keeps at least one row")
	ErrInvalidReorderKind = errors.New("invalid reorder kind")
	ErrUnsupportedFormat  = errors.New("unsupported import format")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

type BusinessRuleError struct {
	Rule    string                 `json:"rule"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func (bre *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule violation (%s): %s", bre.Rule, bre.Message)
}

// ===== ERROR HELPERS =====

// NewValidationError creates a new validation error using the shared type
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
		Context: context,
	}
}

// notFound maps a repository miss onto the service sentinel for the entity.
func notFound(err error, sentinel error, id uint) error {
	if repositories.IsNotFoundError(err) {
		return fmt.Errorf("%w: %d", sentinel, id)
	}
	return err
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrQuestionNotFound) ||
		errors.Is(err, ErrModuleNotFound) ||
		errors.Is(err, ErrRowNotFound) ||
		repositories.IsNotFoundError(err)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) ||
		errors.Is(err, ErrInvalidReorderKind) ||
		errors.Is(err, ErrUnsupportedFormat) ||
		apperrors.IsInvalidArgument(err) {
		return true
	}
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}

// IsBusinessRule checks if error represents a business rule violation
func IsBusinessRule(err error) bool {
	var bre *BusinessRuleError
	return errors.As(err, &bre)
}
