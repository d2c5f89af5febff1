package services

import (
	"fmt"
	"sort"
	"time"

	"github.com/talentflow/questionnaire-service/internal/models"
)

// SubmissionValidator checks a submit payload against the pinned template
// version before anything is written. A failed validation leaves no partial
// answer rows behind.
type SubmissionValidator interface {
	// ValidateRequest returns every detected problem as ValidationErrors, or
	// nil when the payload is acceptable.
	ValidateRequest(template *models.Template, request SubmitRequest) error

	// ValidateSubmissionStatus rejects re-submission of a finalized
	// submission and submissions past the template's time limit.
	ValidateSubmissionStatus(submission *models.Submission, template *models.Template, now time.Time) error
}

type submissionValidator struct{}

func NewSubmissionValidator() SubmissionValidator {
	return &submissionValidator{}
}

func (v *submissionValidator) ValidateRequest(template *models.Template, request SubmitRequest) error {
	questionsByKey := template.QuestionsByKey()

	// duplicate answers for the same question resolve last-wins
	answersByKey := make(map[models.VersionKey]AnswerInput, len(request.Answers))
	for _, answer := range request.Answers {
		answersByKey[models.VersionKey{Name: answer.QuestionName, Version: answer.QuestionVersion}] = answer
	}

	var errs ValidationErrors
	errs = append(errs, v.checkRequiredQuestions(template, answersByKey)...)
	errs = append(errs, v.checkAnswers(request.Answers, questionsByKey)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *submissionValidator) checkRequiredQuestions(template *models.Template, answersByKey map[models.VersionKey]AnswerInput) ValidationErrors {
	var errs ValidationErrors
	for _, question := range requiredQuestionsInOrder(template) {
		answer, answered := answersByKey[question.Key()]
		if question.QuestionType.IsOptionBased() {
			if !answered || len(answer.SelectedOptions) == 0 {
				errs = append(errs, ValidationError{
					Field:   question.Name,
					Message: "is required and must have at least one selected option",
					Rule:    "required",
				})
			}
			continue
		}
		if !answered || normalizeAnswerText(answer.AnswerText) == nil {
			errs = append(errs, ValidationError{
				Field:   question.Name,
				Message: "is required and must have a non-empty answer",
				Rule:    "required",
			})
		}
	}
	return errs
}

// checkAnswers stops at the first malformed answer: once one reference is
// broken the rest of the payload is not trustworthy.
func (v *submissionValidator) checkAnswers(answers []AnswerInput, questionsByKey map[models.VersionKey]*models.Question) ValidationErrors {
	var errs ValidationErrors
	for _, answer := range answers {
		key := models.VersionKey{Name: answer.QuestionName, Version: answer.QuestionVersion}
		question, ok := questionsByKey[key]
		if !ok {
			errs = append(errs, ValidationError{
				Field:   answer.QuestionName,
				Message: fmt.Sprintf("references unknown question %s", key),
				Rule:    "question_ref",
			})
			break
		}

		if dup := firstDuplicateSelection(answer.SelectedOptions); dup != nil {
			errs = append(errs, ValidationError{
				Field:   question.Name,
				Message: fmt.Sprintf("selects option %s more than once", *dup),
				Rule:    "duplicate_selection",
			})
			return errs
		}

		if !question.QuestionType.IsOptionBased() {
			if len(answer.SelectedOptions) > 0 {
				errs = append(errs, ValidationError{
					Field:   question.Name,
					Message: "is a text question and cannot have selected options",
					Rule:    "selection_not_allowed",
				})
				return errs
			}
			continue
		}

		if question.QuestionType.IsSingleSelect() && len(answer.SelectedOptions) > 1 {
			errs = append(errs, ValidationError{
				Field:   question.Name,
				Message: "allows only one selected option",
				Rule:    "single_select",
			})
			return errs
		}

		optionsByKey := question.OptionsByKey()
		for _, ref := range answer.SelectedOptions {
			optKey := models.VersionKey{Name: ref.OptionName, Version: ref.OptionVersion}
			if _, ok := optionsByKey[optKey]; !ok {
				errs = append(errs, ValidationError{
					Field:   question.Name,
					Message: fmt.Sprintf("references unknown option %s", optKey),
					Rule:    "option_ref",
				})
				return errs
			}
		}
	}
	return errs
}

func (v *submissionValidator) ValidateSubmissionStatus(submission *models.Submission, template *models.Template, now time.Time) error {
	if submission.Status.IsFinal() {
		return ErrSubmissionAlreadyFinal
	}

	if template.TimeLimitSeconds != nil && submission.StartedAt != nil {
		limit := time.Duration(*template.TimeLimitSeconds) * time.Second
		if now.Sub(*submission.StartedAt) > limit {
			return ErrSubmissionTimeExpired
		}
	}
	return nil
}

func requiredQuestionsInOrder(template *models.Template) []*models.Question {
	var required []*models.Question
	for i := range template.Sections {
		section := &template.Sections[i]
		for j := range section.Questions {
			if section.Questions[j].IsRequired {
				required = append(required, &section.Questions[j])
			}
		}
	}
	sort.Slice(required, func(i, j int) bool {
		return required[i].Order < required[j].Order
	})
	return required
}

func firstDuplicateSelection(refs []OptionRef) *string {
	seen := make(map[models.VersionKey]bool, len(refs))
	for _, ref := range refs {
		key := models.VersionKey{Name: ref.OptionName, Version: ref.OptionVersion}
		if seen[key] {
			name := ref.OptionName
			return &name
		}
		seen[key] = true
	}
	return nil
}
