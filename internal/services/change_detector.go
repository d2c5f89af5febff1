package services

import (
	"strings"

	"github.com/talentflow/questionnaire-service/internal/models"
)

// Change detection is pure and side-effect free so that re-running a sync
// with identical input is a no-op. Strings compare trimmed; nullable numerics
// compare nil-safe.

func hasQuestionChanged(question *models.Question, input QuestionInput) bool {
	if question.Order != input.Order {
		return true
	}
	if strings.TrimSpace(input.QuestionType) != "" &&
		question.QuestionType != parseQuestionType(input.QuestionType) {
		return true
	}
	if question.QuestionText != strings.TrimSpace(input.QuestionText) {
		return true
	}
	if question.IsRequired != input.IsRequired {
		return true
	}
	if !stringPtrEqual(question.TraitKey, input.TraitKey) {
		return true
	}
	if !floatPtrEqual(question.Ws, input.Ws) {
		return true
	}
	return false
}

func hasOptionChanged(option *models.Option, input OptionInput) bool {
	if option.Order != input.Order {
		return true
	}
	if option.Label != strings.TrimSpace(input.Label) {
		return true
	}
	if !boolPtrEqual(option.IsCorrect, input.IsCorrect) {
		return true
	}
	if !floatPtrEqual(option.Score, input.Score) {
		return true
	}
	if !floatPtrEqual(option.Weight, input.Weight) {
		return true
	}
	if !floatPtrEqual(option.Wa, input.Wa) {
		return true
	}
	return false
}

func stringPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func boolPtrEqual(a, b *bool) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
