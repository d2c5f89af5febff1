package services

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/talentflow/questionnaire-service/internal/models"
)

// EntityFactory builds questionnaire entities from edit inputs. New questions
// and options always start at version 1; forks go through VersioningService.
type EntityFactory interface {
	CreateTemplate(input TemplateInput, version int) *models.Template
	CreateTemplateFromExisting(existing *models.Template, version int) *models.Template
	CreateSection(input SectionInput, templateName string, templateVersion int) *models.Section
	CreateQuestion(input QuestionInput, sectionID uuid.UUID) *models.Question
	CreateOption(input OptionInput, question *models.Question) *models.Option
}

type entityFactory struct {
	normalizer OptionNameNormalizer
}

func NewEntityFactory(normalizer OptionNameNormalizer) EntityFactory {
	return &entityFactory{normalizer: normalizer}
}

func (f *entityFactory) CreateTemplate(input TemplateInput, version int) *models.Template {
	now := time.Now().UTC()
	return &models.Template{
		Name:             input.Name,
		Version:          version,
		TemplateType:     parseTemplateType(input.TemplateType),
		Status:           models.TemplateStatusDraft,
		Title:            input.Title,
		Description:      input.Description,
		TimeLimitSeconds: input.TimeLimitSeconds,
		PublishedAt:      nil,
		CreatedAt:        now,
		UpdatedAt:        now,
		Sections:         []models.Section{},
	}
}

func (f *entityFactory) CreateTemplateFromExisting(existing *models.Template, version int) *models.Template {
	now := time.Now().UTC()
	return &models.Template{
		Name:             existing.Name,
		Version:          version,
		TemplateType:     existing.TemplateType,
		Status:           models.TemplateStatusDraft,
		Title:            existing.Title,
		Description:      existing.Description,
		TimeLimitSeconds: existing.TimeLimitSeconds,
		PublishedAt:      nil,
		CreatedAt:        now,
		UpdatedAt:        now,
		Sections:         []models.Section{},
	}
}

func (f *entityFactory) CreateSection(input SectionInput, templateName string, templateVersion int) *models.Section {
	id := input.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	now := time.Now().UTC()
	return &models.Section{
		ID:              id,
		TemplateName:    templateName,
		TemplateVersion: templateVersion,
		Order:           input.Order,
		Title:           strings.TrimSpace(input.Title),
		Description:     input.Description,
		CreatedAt:       now,
		UpdatedAt:       now,
		Questions:       []models.Question{},
	}
}

func (f *entityFactory) CreateQuestion(input QuestionInput, sectionID uuid.UUID) *models.Question {
	now := time.Now().UTC()
	return &models.Question{
		Name:         input.Name,
		Version:      1,
		SectionID:    sectionID,
		Order:        input.Order,
		IsActive:     true,
		QuestionType: parseQuestionType(input.QuestionType),
		QuestionText: strings.TrimSpace(input.QuestionText),
		IsRequired:   input.IsRequired,
		Ws:           input.Ws,
		TraitKey:     input.TraitKey,
		CreatedAt:    now,
		UpdatedAt:    now,
		Options:      []models.Option{},
	}
}

func (f *entityFactory) CreateOption(input OptionInput, question *models.Question) *models.Option {
	name := f.normalizer.NormalizeOptionName(input, question)
	now := time.Now().UTC()
	return &models.Option{
		Name:            name,
		Version:         1,
		QuestionName:    question.Name,
		QuestionVersion: question.Version,
		Order:           input.Order,
		Label:           strings.TrimSpace(input.Label),
		IsCorrect:       input.IsCorrect,
		Score:           input.Score,
		Weight:          input.Weight,
		Wa:              input.Wa,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func parseTemplateType(value string) models.TemplateType {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "quiz":
		return models.TemplateQuiz
	case "personality":
		return models.TemplatePersonality
	default:
		return models.TemplateForm
	}
}

func parseQuestionType(value string) models.QuestionType {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "textarea":
		return models.QuestionTextarea
	case "singlechoice", "single_choice":
		return models.QuestionSingleChoice
	case "multichoice", "multi_choice":
		return models.QuestionMultiChoice
	case "likert":
		return models.QuestionLikert
	case "radio":
		return models.QuestionRadio
	case "checkbox":
		return models.QuestionCheckbox
	case "dropdown":
		return models.QuestionDropdown
	default:
		return models.QuestionText
	}
}

// applyQuestionInput copies all externally editable fields onto a question.
func applyQuestionInput(question *models.Question, input QuestionInput) {
	question.Order = input.Order
	if strings.TrimSpace(input.QuestionType) != "" {
		question.QuestionType = parseQuestionType(input.QuestionType)
	}
	question.QuestionText = strings.TrimSpace(input.QuestionText)
	question.IsRequired = input.IsRequired
	question.TraitKey = input.TraitKey
	question.Ws = input.Ws
	question.UpdatedAt = time.Now().UTC()
}

// applyOptionInput copies all externally editable fields onto an option.
func applyOptionInput(option *models.Option, input OptionInput) {
	option.Order = input.Order
	option.Label = strings.TrimSpace(input.Label)
	option.IsCorrect = input.IsCorrect
	option.Score = input.Score
	option.Weight = input.Weight
	option.Wa = input.Wa
	option.UpdatedAt = time.Now().UTC()
}
