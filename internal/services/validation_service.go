package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	apperrors "github.com/talentflow/questionnaire-service/internal/errors"
	"github.com/talentflow/questionnaire-service/internal/models"
	"github.com/talentflow/questionnaire-service/internal/utils"
)

// InputValidationService checks an edit payload before it reaches the sync
// cascade or the factory. It covers what struct tags cannot: cross-field
// rules inside one template graph.
type InputValidationService interface {
	// ValidateTemplateInput validates a full template payload. Returns
	// ValidationErrors listing every problem found, or nil.
	ValidateTemplateInput(ctx context.Context, input TemplateInput) error

	// ValidateSections validates a section payload against the rules of the
	// given template type, for callers that edit below the template level.
	ValidateSections(ctx context.Context, templateType models.TemplateType, sections []SectionInput) error
}

type inputValidationService struct {
	validate *validator.Validate
}

func NewInputValidationService() InputValidationService {
	return &inputValidationService{validate: utils.NewValidator()}
}

func (s *inputValidationService) ValidateTemplateInput(ctx context.Context, input TemplateInput) error {
	if err := s.validate.StructCtx(ctx, input); err != nil {
		return apperrors.ToValidationErrors(err)
	}

	templateType := models.TemplateForm
	if input.TemplateType != "" {
		templateType = models.TemplateType(input.TemplateType)
	}

	if errs := s.checkSections(templateType, input.Sections); len(errs) > 0 {
		return errs
	}
	return nil
}

func (s *inputValidationService) ValidateSections(ctx context.Context, templateType models.TemplateType, sections []SectionInput) error {
	for i := range sections {
		if err := s.validate.StructCtx(ctx, sections[i]); err != nil {
			return apperrors.ToValidationErrors(err)
		}
	}
	if errs := s.checkSections(templateType, sections); len(errs) > 0 {
		return errs
	}
	return nil
}

func (s *inputValidationService) checkSections(templateType models.TemplateType, sections []SectionInput) ValidationErrors {
	var errs ValidationErrors

	seenSectionOrder := make(map[int]bool, len(sections))
	seenQuestionName := make(map[string]bool)

	for _, section := range sections {
		field := fmt.Sprintf("sections[%d]", section.Order)

		if section.Order < 1 {
			errs = append(errs, ValidationError{
				Field: field + ".order", Rule: "min",
				Message: "section order must be at least 1",
				Value:   section.Order,
			})
		}
		if seenSectionOrder[section.Order] {
			errs = append(errs, ValidationError{
				Field: field + ".order", Rule: "unique",
				Message: fmt.Sprintf("duplicate section order %d", section.Order),
				Value:   section.Order,
			})
		}
		seenSectionOrder[section.Order] = true

		seenQuestionOrder := make(map[int]bool, len(section.Questions))
		for _, question := range section.Questions {
			qField := fmt.Sprintf("%s.questions[%d]", field, question.Order)

			if seenQuestionOrder[question.Order] {
				errs = append(errs, ValidationError{
					Field: qField + ".order", Rule: "unique",
					Message: fmt.Sprintf("duplicate question order %d in section %d", question.Order, section.Order),
					Value:   question.Order,
				})
			}
			seenQuestionOrder[question.Order] = true

			name := strings.ToLower(strings.TrimSpace(question.Name))
			if name != "" {
				if seenQuestionName[name] {
					errs = append(errs, ValidationError{
						Field: qField + ".name", Rule: "unique",
						Message: fmt.Sprintf("question name %q appears more than once", question.Name),
						Value:   question.Name,
					})
				}
				seenQuestionName[name] = true
			}

			errs = append(errs, s.checkQuestion(templateType, qField, question)...)
		}
	}

	return errs
}

func (s *inputValidationService) checkQuestion(templateType models.TemplateType, field string, question QuestionInput) ValidationErrors {
	var errs ValidationErrors

	questionType := models.QuestionType(question.QuestionType)

	switch templateType {
	case models.TemplateQuiz:
		if question.QuestionType != "" && questionType != models.QuestionSingleChoice && questionType != models.QuestionMultiChoice {
			errs = append(errs, ValidationError{
				Field: field + ".question_type", Rule: "template_compat",
				Message: fmt.Sprintf("quiz templates allow only SingleChoice and MultiChoice questions, got %q", question.QuestionType),
				Value:   question.QuestionType,
			})
		}
	case models.TemplatePersonality:
		if question.QuestionType != "" && questionType != models.QuestionLikert {
			errs = append(errs, ValidationError{
				Field: field + ".question_type", Rule: "template_compat",
				Message: fmt.Sprintf("personality templates allow only Likert questions, got %q", question.QuestionType),
				Value:   question.QuestionType,
			})
		}
	}

	if questionType == models.QuestionLikert {
		if question.TraitKey == nil || strings.TrimSpace(*question.TraitKey) == "" {
			errs = append(errs, ValidationError{
				Field: field + ".trait_key", Rule: "required",
				Message: "Likert questions require a trait key",
			})
		}
		if question.Ws == nil {
			errs = append(errs, ValidationError{
				Field: field + ".ws", Rule: "required",
				Message: "Likert questions require a question weight (Ws)",
			})
		}
	}

	if questionType.IsOptionBased() && len(question.Options) < 2 {
		errs = append(errs, ValidationError{
			Field: field + ".options", Rule: "min",
			Message: "option based questions require at least two options",
			Value:   len(question.Options),
		})
	}

	seenOptionOrder := make(map[int]bool, len(question.Options))
	for _, option := range question.Options {
		oField := fmt.Sprintf("%s.options[%d]", field, option.Order)

		if seenOptionOrder[option.Order] {
			errs = append(errs, ValidationError{
				Field: oField + ".order", Rule: "unique",
				Message: fmt.Sprintf("duplicate option order %d", option.Order),
				Value:   option.Order,
			})
		}
		seenOptionOrder[option.Order] = true

		if questionType == models.QuestionLikert && option.Wa == nil {
			errs = append(errs, ValidationError{
				Field: oField + ".wa", Rule: "required",
				Message: "Likert options require an anchor value (Wa)",
			})
		}
	}

	return errs
}
