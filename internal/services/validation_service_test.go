package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talentflow/questionnaire-service/internal/models"
)

func validQuizInput() TemplateInput {
	return TemplateInput{
		Name:         "quiz",
		TemplateType: "Quiz",
		Title:        "Quiz",
		Sections: []SectionInput{{
			Order: 1,
			Title: "Basics",
			Questions: []QuestionInput{{
				Name:         "quiz_q1",
				Order:        1,
				QuestionType: "SingleChoice",
				QuestionText: "Pick one",
				Options: []OptionInput{
					{Order: 1, Label: "A", Score: floatPtr(10)},
					{Order: 2, Label: "B", Score: floatPtr(0)},
				},
			}},
		}},
	}
}

func ruleOn(t *testing.T, err error, fieldSuffix, rule string) {
	t.Helper()
	require.Error(t, err)
	var errs ValidationErrors
	require.True(t, errors.As(err, &errs), "expected validation errors, got %v", err)
	for _, e := range errs {
		if e.Rule == rule && strings.HasSuffix(e.Field, fieldSuffix) {
			return
		}
	}
	t.Fatalf("no %q error on field ending %q in %v", rule, fieldSuffix, errs)
}

func TestValidateTemplateInputAcceptsValidPayload(t *testing.T) {
	svc := NewInputValidationService()
	assert.NoError(t, svc.ValidateTemplateInput(context.Background(), validQuizInput()))
}

func TestValidateTemplateInputRequiresName(t *testing.T) {
	svc := NewInputValidationService()
	input := validQuizInput()
	input.Name = ""
	err := svc.ValidateTemplateInput(context.Background(), input)
	// field names come from the json tags via the registered tag name function
	ruleOn(t, err, "name", "required")
}

func TestValidateTemplateInputRejectsUnknownType(t *testing.T) {
	svc := NewInputValidationService()
	input := validQuizInput()
	input.TemplateType = "Exam"
	err := svc.ValidateTemplateInput(context.Background(), input)
	ruleOn(t, err, "template_type", "template_type")
}

func TestValidateTemplateInputStructuralRules(t *testing.T) {
	svc := NewInputValidationService()
	ctx := context.Background()

	tests := []struct {
		name        string
		mutate      func(in *TemplateInput)
		fieldSuffix string
		rule        string
	}{
		{"section order below one", func(in *TemplateInput) {
			in.Sections[0].Order = 0
		}, ".order", "min"},
		{"duplicate section order", func(in *TemplateInput) {
			extra := in.Sections[0]
			extra.Questions = []QuestionInput{{
				Name: "quiz_q2", Order: 2, QuestionType: "SingleChoice",
				Options: []OptionInput{{Order: 1, Label: "X"}, {Order: 2, Label: "Y"}},
			}}
			in.Sections = append(in.Sections, extra)
		}, ".order", "unique"},
		{"duplicate question name across sections", func(in *TemplateInput) {
			in.Sections = append(in.Sections, SectionInput{
				Order: 2,
				Questions: []QuestionInput{{
					Name: "QUIZ_Q1", Order: 2, QuestionType: "SingleChoice",
					Options: []OptionInput{{Order: 1, Label: "X"}, {Order: 2, Label: "Y"}},
				}},
			})
		}, ".name", "unique"},
		{"duplicate question order in section", func(in *TemplateInput) {
			in.Sections[0].Questions = append(in.Sections[0].Questions, QuestionInput{
				Name: "quiz_q2", Order: 1, QuestionType: "SingleChoice",
				Options: []OptionInput{{Order: 1, Label: "X"}, {Order: 2, Label: "Y"}},
			})
		}, ".order", "unique"},
		{"too few options", func(in *TemplateInput) {
			in.Sections[0].Questions[0].Options = in.Sections[0].Questions[0].Options[:1]
		}, ".options", "min"},
		{"duplicate option order", func(in *TemplateInput) {
			in.Sections[0].Questions[0].Options[1].Order = 1
		}, ".order", "unique"},
		{"text question on quiz", func(in *TemplateInput) {
			in.Sections[0].Questions[0].QuestionType = "Text"
			in.Sections[0].Questions[0].Options = nil
		}, ".question_type", "template_compat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validQuizInput()
			tt.mutate(&input)
			err := svc.ValidateTemplateInput(ctx, input)
			ruleOn(t, err, tt.fieldSuffix, tt.rule)
		})
	}
}

func TestValidateTemplateInputLikertRules(t *testing.T) {
	svc := NewInputValidationService()
	ctx := context.Background()

	base := func() TemplateInput {
		return TemplateInput{
			Name:         "style",
			TemplateType: "Personality",
			Sections: []SectionInput{{
				Order: 1,
				Questions: []QuestionInput{{
					Name:         "style_q1",
					Order:        1,
					QuestionType: "Likert",
					TraitKey:     strPtr("teamwork"),
					Ws:           floatPtr(2),
					Options: []OptionInput{
						{Order: 1, Label: "Agree", Wa: floatPtr(4)},
						{Order: 2, Label: "Disagree", Wa: floatPtr(1)},
					},
				}},
			}},
		}
	}

	assert.NoError(t, svc.ValidateTemplateInput(ctx, base()))

	input := base()
	input.Sections[0].Questions[0].TraitKey = nil
	ruleOn(t, svc.ValidateTemplateInput(ctx, input), ".trait_key", "required")

	input = base()
	input.Sections[0].Questions[0].Ws = nil
	ruleOn(t, svc.ValidateTemplateInput(ctx, input), ".ws", "required")

	input = base()
	input.Sections[0].Questions[0].Options[0].Wa = nil
	ruleOn(t, svc.ValidateTemplateInput(ctx, input), ".wa", "required")

	input = base()
	input.Sections[0].Questions[0].QuestionType = "SingleChoice"
	ruleOn(t, svc.ValidateTemplateInput(ctx, input), ".question_type", "template_compat")
}

func TestValidateSections(t *testing.T) {
	svc := NewInputValidationService()
	ctx := context.Background()

	sections := validQuizInput().Sections
	assert.NoError(t, svc.ValidateSections(ctx, models.TemplateQuiz, sections))

	sections[0].Questions[0].QuestionType = "Likert"
	sections[0].Questions[0].TraitKey = strPtr("focus")
	sections[0].Questions[0].Ws = floatPtr(1)
	sections[0].Questions[0].Options[0].Wa = floatPtr(1)
	sections[0].Questions[0].Options[1].Wa = floatPtr(2)
	err := svc.ValidateSections(ctx, models.TemplateQuiz, sections)
	ruleOn(t, err, ".question_type", "template_compat")
}
