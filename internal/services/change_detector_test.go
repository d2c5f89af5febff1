package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/talentflow/questionnaire-service/internal/models"
)

func baseQuestion() *models.Question {
	return &models.Question{
		Name:         "survey_q1",
		Version:      1,
		Order:        1,
		QuestionType: models.QuestionSingleChoice,
		QuestionText: "How was it?",
		IsRequired:   true,
	}
}

func baseQuestionInput() QuestionInput {
	return QuestionInput{
		Name:         "survey_q1",
		Version:      1,
		Order:        1,
		QuestionType: "SingleChoice",
		QuestionText: "How was it?",
		IsRequired:   true,
	}
}

func TestHasQuestionChanged(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(q *models.Question, in *QuestionInput)
		changed bool
	}{
		{"identical", func(q *models.Question, in *QuestionInput) {}, false},
		{"blank type in input is ignored", func(q *models.Question, in *QuestionInput) {
			in.QuestionType = ""
		}, false},
		{"type spelled differently but same", func(q *models.Question, in *QuestionInput) {
			in.QuestionType = "single_choice"
		}, false},
		{"text compared trimmed", func(q *models.Question, in *QuestionInput) {
			in.QuestionText = "  How was it?  "
		}, false},
		{"order changed", func(q *models.Question, in *QuestionInput) {
			in.Order = 2
		}, true},
		{"text changed", func(q *models.Question, in *QuestionInput) {
			in.QuestionText = "How was it really?"
		}, true},
		{"required flipped", func(q *models.Question, in *QuestionInput) {
			in.IsRequired = false
		}, true},
		{"type changed", func(q *models.Question, in *QuestionInput) {
			in.QuestionType = "MultiChoice"
		}, true},
		{"trait key added", func(q *models.Question, in *QuestionInput) {
			in.TraitKey = strPtr("openness")
		}, true},
		{"ws added", func(q *models.Question, in *QuestionInput) {
			in.Ws = floatPtr(1.5)
		}, true},
		{"ws equal pointers", func(q *models.Question, in *QuestionInput) {
			q.Ws = floatPtr(2)
			in.Ws = floatPtr(2)
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			question := baseQuestion()
			input := baseQuestionInput()
			tt.mutate(question, &input)
			assert.Equal(t, tt.changed, hasQuestionChanged(question, input))
		})
	}
}

func TestHasOptionChanged(t *testing.T) {
	base := func() *models.Option {
		return &models.Option{
			Name:    "survey_q1_a",
			Version: 1,
			Order:   1,
			Label:   "Great",
			Score:   floatPtr(10),
		}
	}
	baseInput := func() OptionInput {
		return OptionInput{
			Name:  "survey_q1_a",
			Order: 1,
			Label: "Great",
			Score: floatPtr(10),
		}
	}

	tests := []struct {
		name    string
		mutate  func(o *models.Option, in *OptionInput)
		changed bool
	}{
		{"identical", func(o *models.Option, in *OptionInput) {}, false},
		{"label compared trimmed", func(o *models.Option, in *OptionInput) {
			in.Label = " Great "
		}, false},
		{"label changed", func(o *models.Option, in *OptionInput) {
			in.Label = "Good"
		}, true},
		{"order changed", func(o *models.Option, in *OptionInput) {
			in.Order = 3
		}, true},
		{"score cleared", func(o *models.Option, in *OptionInput) {
			in.Score = nil
		}, true},
		{"score changed", func(o *models.Option, in *OptionInput) {
			in.Score = floatPtr(7)
		}, true},
		{"correctness added", func(o *models.Option, in *OptionInput) {
			in.IsCorrect = boolPtr(true)
		}, true},
		{"correctness equal", func(o *models.Option, in *OptionInput) {
			o.IsCorrect = boolPtr(true)
			in.IsCorrect = boolPtr(true)
		}, false},
		{"weight added", func(o *models.Option, in *OptionInput) {
			in.Weight = floatPtr(0.5)
		}, true},
		{"anchor value added", func(o *models.Option, in *OptionInput) {
			in.Wa = floatPtr(3)
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			option := base()
			input := baseInput()
			tt.mutate(option, &input)
			assert.Equal(t, tt.changed, hasOptionChanged(option, input))
		})
	}
}
