package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type SubmissionStatus string

const (
	SubmissionStatusDraft      SubmissionStatus = "Draft"
	SubmissionStatusSubmitted  SubmissionStatus = "Submitted"
	SubmissionStatusAutoScored SubmissionStatus = "AutoScored"
	SubmissionStatusReviewed   SubmissionStatus = "Reviewed"
)

// IsFinal reports whether the status freezes the submission. A submission in
// a final status can never be modified or resubmitted.
func (s SubmissionStatus) IsFinal() bool {
	return s == SubmissionStatusSubmitted ||
		s == SubmissionStatusAutoScored ||
		s == SubmissionStatusReviewed
}

// Submission is one candidate's response set for one job application step.
// TemplateName/TemplateVersion pin the exact template revision that was
// answered; TemplateType is snapshotted so scoring semantics survive
// template-type edits on later versions.
type Submission struct {
	ID                   uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey"`
	JobApplicationStepID uuid.UUID        `json:"job_application_step_id" gorm:"type:uuid;uniqueIndex"`
	TemplateName         string           `json:"template_name" gorm:"size:255;index:idx_submissions_template"`
	TemplateVersion      int              `json:"template_version" gorm:"index:idx_submissions_template"`
	TemplateType         TemplateType     `json:"template_type"`
	Status               SubmissionStatus `json:"status" gorm:"default:Draft;index" validate:"omitempty,submission_status"`

	StartedAt   *time.Time `json:"started_at"`
	SubmittedAt *time.Time `json:"submitted_at"`
	LastSavedAt *time.Time `json:"last_saved_at"`

	TotalScore *float64 `json:"total_score"`
	MaxScore   *float64 `json:"max_score"`

	// PersonalityResult holds the trait payload produced by the pluggable
	// personality calculator, stored as-is.
	PersonalityResult datatypes.JSON `json:"personality_result" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Answers []Answer `json:"answers" gorm:"foreignKey:SubmissionID"`
}

// Answer snapshots one answered question at (QuestionName, QuestionVersion).
type Answer struct {
	ID              uuid.UUID    `json:"id" gorm:"type:uuid;primaryKey"`
	SubmissionID    uuid.UUID    `json:"submission_id" gorm:"type:uuid;index"`
	QuestionName    string       `json:"question_name" gorm:"size:255"`
	QuestionVersion int          `json:"question_version"`
	QuestionType    QuestionType `json:"question_type"`
	QuestionOrder   int          `json:"question_order"`

	AnswerText   *string  `json:"answer_text" gorm:"type:text"`
	ScoreAwarded *float64 `json:"score_awarded"`
	// WaSum is the weighted Likert anchor (Wa * Ws), averaged across
	// selections for multi-select questions.
	WaSum *float64 `json:"wa_sum"`

	AnsweredAt time.Time `json:"answered_at"`

	SelectedOptions []AnswerOption `json:"selected_options" gorm:"foreignKey:AnswerID"`
}

// AnswerOption snapshots one selected option with its scoring fields as they
// were at selection time.
type AnswerOption struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	AnswerID      uuid.UUID `json:"answer_id" gorm:"type:uuid;index"`
	OptionName    string    `json:"option_name" gorm:"size:255"`
	OptionVersion int       `json:"option_version"`

	IsCorrect *bool    `json:"is_correct"`
	Score     *float64 `json:"score"`
	Wa        *float64 `json:"wa"`
}

func (Submission) TableName() string {
	return "questionnaire_candidate_submissions"
}

func (Answer) TableName() string {
	return "questionnaire_submission_answers"
}

func (AnswerOption) TableName() string {
	return "questionnaire_submission_answer_options"
}

func (a *Answer) QuestionKey() VersionKey {
	return VersionKey{Name: a.QuestionName, Version: a.QuestionVersion}
}
