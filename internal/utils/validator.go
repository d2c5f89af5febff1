package utils

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/talentflow/questionnaire-service/internal/models"
)

// Custom validation functions

func ValidateTemplateType(fl validator.FieldLevel) bool {
	validTypes := []models.TemplateType{
		models.TemplateForm,
		models.TemplateQuiz,
		models.TemplatePersonality,
	}

	value := fl.Field().String()
	for _, validType := range validTypes {
		if string(validType) == value {
			return true
		}
	}
	return false
}

func ValidateQuestionType(fl validator.FieldLevel) bool {
	validTypes := []models.QuestionType{
		models.QuestionText,
		models.QuestionTextarea,
		models.QuestionSingleChoice,
		models.QuestionMultiChoice,
		models.QuestionLikert,
		models.QuestionRadio,
		models.QuestionCheckbox,
		models.QuestionDropdown,
	}

	value := fl.Field().String()
	for _, validType := range validTypes {
		if string(validType) == value {
			return true
		}
	}
	return false
}

func ValidateSubmissionStatus(fl validator.FieldLevel) bool {
	validStatuses := []models.SubmissionStatus{
		models.SubmissionStatusDraft,
		models.SubmissionStatusSubmitted,
		models.SubmissionStatusAutoScored,
		models.SubmissionStatusReviewed,
	}

	value := fl.Field().String()
	for _, validStatus := range validStatuses {
		if string(validStatus) == value {
			return true
		}
	}
	return false
}

// RegisterCustomValidators registers all custom validators
func RegisterCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("template_type", ValidateTemplateType)
	validate.RegisterValidation("question_type", ValidateQuestionType)
	validate.RegisterValidation("submission_status", ValidateSubmissionStatus)

	// Register custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// NewValidator returns a validator with all custom rules registered.
func NewValidator() *validator.Validate {
	validate := validator.New()
	RegisterCustomValidators(validate)
	return validate
}
