package services

import (
	"time"

	"github.com/google/uuid"
)

// ===== TEMPLATE EDIT INPUTS =====

// TemplateInput is the full edited payload for one template lineage. Version
// carries the version the editor loaded, not the version that will be written.
type TemplateInput struct {
	Name             string         `json:"name" validate:"required,min=1,max=255"`
	Version          int            `json:"version" validate:"omitempty,min=1"`
	TemplateType     string         `json:"template_type" validate:"omitempty,template_type"`
	Title            string         `json:"title" validate:"omitempty,max=255"`
	Description      *string        `json:"description" validate:"omitempty,max=2000"`
	TimeLimitSeconds *int           `json:"time_limit_seconds" validate:"omitempty,min=30,max=86400"`
	Sections         []SectionInput `json:"sections" validate:"dive"`
}

type SectionInput struct {
	ID          uuid.UUID       `json:"id"`
	Order       int             `json:"order"`
	Title       string          `json:"title" validate:"omitempty,max=255"`
	Description *string         `json:"description"`
	Questions   []QuestionInput `json:"questions" validate:"dive"`
}

type QuestionInput struct {
	Name         string        `json:"name" validate:"required,min=1,max=255"`
	Version      int           `json:"version" validate:"omitempty,min=1"`
	Order        int           `json:"order"`
	QuestionType string        `json:"question_type" validate:"omitempty,question_type"`
	QuestionText string        `json:"question_text"`
	IsRequired   bool          `json:"is_required"`
	Ws           *float64      `json:"ws"`
	TraitKey     *string       `json:"trait_key" validate:"omitempty,max=100"`
	Options      []OptionInput `json:"options" validate:"dive"`
}

type OptionInput struct {
	Name      string   `json:"name" validate:"omitempty,max=255"`
	Version   int      `json:"version"`
	Order     int      `json:"order"`
	Label     string   `json:"label" validate:"omitempty,max=500"`
	IsCorrect *bool    `json:"is_correct"`
	Score     *float64 `json:"score"`
	Weight    *float64 `json:"weight"`
	Wa        *float64 `json:"wa"`
}

// ===== SUBMISSION INPUTS =====

type SubmitRequest struct {
	Answers []AnswerInput `json:"answers" validate:"dive"`
}

type AnswerInput struct {
	QuestionName    string      `json:"question_name" validate:"required"`
	QuestionVersion int         `json:"question_version" validate:"min=1"`
	AnswerText      *string     `json:"answer_text"`
	SelectedOptions []OptionRef `json:"selected_options" validate:"dive"`
}

// OptionRef pins one selection to the exact option version shown to the
// candidate.
type OptionRef struct {
	OptionName    string `json:"option_name" validate:"required"`
	OptionVersion int    `json:"option_version" validate:"min=1"`
}

type SubmitResponse struct {
	SubmissionID uuid.UUID  `json:"submission_id"`
	Status       string     `json:"status"`
	SubmittedAt  *time.Time `json:"submitted_at"`
}

type StartSubmissionResponse struct {
	SubmissionID     uuid.UUID  `json:"submission_id"`
	Status           string     `json:"status"`
	StartedAt        *time.Time `json:"started_at"`
	TimeLimitSeconds *int       `json:"time_limit_seconds,omitempty"`
}
