package validator

import (
	"reflect"
	"strings"

	apperrors "github.com/SAP-F-2025/answersheet-service/internal/errors"
	"github.com/SAP-F-2025/answersheet-service/internal/models"
	"github.com/SAP-F-2025/answersheet-service/internal/schema"
	"github.com/go-playground/validator/v10"
)

// Validator is the main validator instance that combines all validation types
type Validator struct {
	structValidator   *validator.Validate
	documentValidator *DocumentValidator
}

// New creates a new centralized validator instance
func New() *Validator {
	structValidator := validator.New()

	// Register all custom validators once
	registerCustomValidators(structValidator)

	return &Validator{
		structValidator:   structValidator,
		documentValidator: NewDocumentValidator(),
	}
}

// ValidateStruct validates struct tags only
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.structValidator.Struct(s)
}

// ValidateVar validates a single value against a tag
func (v *Validator) ValidateVar(field interface{}, tag string) error {
	return v.structValidator.Var(field, tag)
}

// ValidateDocument checks the struct tags of every module, row and cell of a
// document and then its business rules.
func (v *Validator) ValidateDocument(doc models.Document) error {
	if err := v.structValidator.Var(doc, "dive"); err != nil {
		return err
	}
	if errs := v.documentValidator.Validate(doc); len(errs) > 0 {
		return errs
	}
	return nil
}

// ToValidationErrors flattens struct tag failures and document rule failures into one list.
func ToValidationErrors(err error) apperrors.ValidationErrors {
	return apperrors.ToValidationErrors(err)
}

// Document returns the document validator
func (v *Validator) Document() *DocumentValidator {
	return v.documentValidator
}

// registerCustomValidators registers all custom validation functions
func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("answer_kind", validateAnswerKind)
	validate.RegisterValidation("column_name", validateColumnName)
	validate.RegisterValidation("reorder_kind", validateReorderKind)

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Custom validation functions
func validateAnswerKind(fl validator.FieldLevel) bool {
	switch fl.Field().Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return models.AnswerKind(fl.Field().Int()).Valid()
	case reflect.String:
		_, err := models.ParseAnswerKind(fl.Field().String())
		return err == nil
	}
	return false
}

func validateColumnName(fl validator.FieldLevel) bool {
	return schema.IsColumn(fl.Field().String())
}

func validateReorderKind(fl validator.FieldLevel) bool {
	return models.ReorderKind(fl.Field().String()).Valid()
}
