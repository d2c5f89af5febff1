package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type QuestionType string

const (
	QuestionText         QuestionType = "Text"
	QuestionTextarea     QuestionType = "Textarea"
	QuestionSingleChoice QuestionType = "SingleChoice"
	QuestionMultiChoice  QuestionType = "MultiChoice"
	QuestionLikert       QuestionType = "Likert"
	QuestionRadio        QuestionType = "Radio"
	QuestionCheckbox     QuestionType = "Checkbox"
	QuestionDropdown     QuestionType = "Dropdown"
)

// IsOptionBased reports whether answers to this type are option selections
// rather than free text.
func (qt QuestionType) IsOptionBased() bool {
	switch qt {
	case QuestionSingleChoice, QuestionMultiChoice, QuestionLikert,
		QuestionRadio, QuestionCheckbox, QuestionDropdown:
		return true
	}
	return false
}

// IsSingleSelect reports whether the type allows at most one selection.
// Likert is single-select: one anchor per statement.
func (qt QuestionType) IsSingleSelect() bool {
	switch qt {
	case QuestionSingleChoice, QuestionRadio, QuestionDropdown, QuestionLikert:
		return true
	}
	return false
}

// IsMultiSelect reports whether the type allows several selections.
func (qt QuestionType) IsMultiSelect() bool {
	return qt == QuestionMultiChoice || qt == QuestionCheckbox
}

// Question is a versioned row: one active (IsActive) row per (section, order)
// lineage. Forking marks the predecessor inactive and inserts Version+1.
type Question struct {
	Name         string       `json:"name" gorm:"primaryKey;size:255" validate:"required,min=1,max=255"`
	Version      int          `json:"version" gorm:"primaryKey" validate:"min=1"`
	SectionID    uuid.UUID    `json:"section_id" gorm:"type:uuid;index"`
	Order        int          `json:"order" gorm:"not null"`
	IsActive     bool         `json:"is_active" gorm:"default:true;index"`
	QuestionType QuestionType `json:"question_type" gorm:"not null" validate:"omitempty,question_type"`
	QuestionText string       `json:"question_text" gorm:"type:text"`
	IsRequired   bool         `json:"is_required" gorm:"default:false"`

	// Ws is the question weight applied to Likert anchor values (WaSum = Wa * Ws).
	Ws       *float64 `json:"ws"`
	TraitKey *string  `json:"trait_key" gorm:"size:100"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Options []Option `json:"options" gorm:"foreignKey:QuestionName,QuestionVersion;references:Name,Version"`
}

// Option is a versioned row pinned to one question version.
type Option struct {
	Name            string `json:"name" gorm:"primaryKey;size:255" validate:"required,min=1,max=255"`
	Version         int    `json:"version" gorm:"primaryKey" validate:"min=1"`
	QuestionName    string `json:"question_name" gorm:"size:255;index:idx_options_question"`
	QuestionVersion int    `json:"question_version" gorm:"index:idx_options_question"`
	Order           int    `json:"order" gorm:"not null"`
	Label           string `json:"label" gorm:"size:500"`

	// IsCorrect is tri-state: nil means correctness was never configured and
	// quiz scoring falls back to Score > 0.
	IsCorrect *bool    `json:"is_correct"`
	Score     *float64 `json:"score"`
	Weight    *float64 `json:"weight"`
	// Wa is the Likert scale anchor value used for weighted trait scoring.
	Wa *float64 `json:"wa"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Question) TableName() string {
	return "questionnaire_questions"
}

func (Option) TableName() string {
	return "questionnaire_question_options"
}

func (q *Question) Key() VersionKey {
	return VersionKey{Name: q.Name, Version: q.Version}
}

func (o *Option) Key() VersionKey {
	return VersionKey{Name: o.Name, Version: o.Version}
}

// OptionsByKey indexes the question's options by (name, version).
func (q *Question) OptionsByKey() map[VersionKey]*Option {
	byKey := make(map[VersionKey]*Option, len(q.Options))
	for i := range q.Options {
		byKey[q.Options[i].Key()] = &q.Options[i]
	}
	return byKey
}
