package models

import (
	"time"

	"github.com/google/uuid"
)

type TemplateType string

const (
	TemplateForm        TemplateType = "Form"
	TemplateQuiz        TemplateType = "Quiz"
	TemplatePersonality TemplateType = "Personality"
)

type TemplateStatus string

const (
	TemplateStatusDraft     TemplateStatus = "Draft"
	TemplateStatusPublished TemplateStatus = "Published"
	TemplateStatusArchived  TemplateStatus = "Archived"
)

// Template is the root questionnaire definition. Identity is (Name, Version):
// Name is stable across the lineage, Version increments monotonically and a
// version is never mutated once a submission references it.
type Template struct {
	Name         string         `json:"name" gorm:"primaryKey;size:255" validate:"required,min=1,max=255"`
	Version      int            `json:"version" gorm:"primaryKey" validate:"min=1"`
	TemplateType TemplateType   `json:"template_type" gorm:"not null;default:Form" validate:"omitempty,template_type"`
	Status       TemplateStatus `json:"status" gorm:"default:Draft;index" validate:"omitempty,oneof=Draft Published Archived"`
	Title        string         `json:"title" gorm:"size:255" validate:"omitempty,max=255"`
	Description  *string        `json:"description" gorm:"type:text" validate:"omitempty,max=2000"`

	// TimeLimitSeconds bounds the time between StartedAt and submission.
	TimeLimitSeconds *int       `json:"time_limit_seconds" validate:"omitempty,min=30,max=86400"`
	PublishedAt      *time.Time `json:"published_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Sections []Section `json:"sections" gorm:"foreignKey:TemplateName,TemplateVersion;references:Name,Version"`
}

// Section belongs to exactly one template version and is not independently
// versioned: its identity is (TemplateName, TemplateVersion, Order).
type Section struct {
	ID              uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	TemplateName    string    `json:"template_name" gorm:"size:255;index:idx_sections_template"`
	TemplateVersion int       `json:"template_version" gorm:"index:idx_sections_template"`
	Order           int       `json:"order" gorm:"not null"`
	Title           string    `json:"title" gorm:"size:255"`
	Description     *string   `json:"description" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Questions []Question `json:"questions" gorm:"foreignKey:SectionID"`
}

func (Template) TableName() string {
	return "questionnaire_templates"
}

func (Section) TableName() string {
	return "questionnaire_sections"
}

// Key returns the typed snapshot key of this template version.
func (t *Template) Key() VersionKey {
	return VersionKey{Name: t.Name, Version: t.Version}
}

// QuestionsByKey flattens the section graph into a (name, version) lookup.
// Both the answer builder and the submission validator resolve answers
// against this map so scoring stays pinned to the loaded template version.
func (t *Template) QuestionsByKey() map[VersionKey]*Question {
	byKey := make(map[VersionKey]*Question)
	for si := range t.Sections {
		section := &t.Sections[si]
		for qi := range section.Questions {
			q := &section.Questions[qi]
			byKey[q.Key()] = q
		}
	}
	return byKey
}
