package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents different types of questionnaire events
type EventType string

const (
	// Template events
	EventTemplateForked   EventType = "template.forked"
	EventTemplateImported EventType = "template.imported"

	// Submission events
	EventSubmissionStarted   EventType = "submission.started"
	EventSubmissionCompleted EventType = "submission.completed"
)

// QuestionnaireEvent is the base event structure for all questionnaire events
type QuestionnaireEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewQuestionnaireEvent creates a new questionnaire event with the given type and payload
func NewQuestionnaireEvent(eventType EventType, data interface{}) *QuestionnaireEvent {
	return &QuestionnaireEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Source:    "questionnaire-service",
		Version:   "1.0",
		Data:      data,
	}
}

// Template event payloads

type TemplateForkedEvent struct {
	TemplateName string    `json:"template_name"`
	FromVersion  int       `json:"from_version"`
	ToVersion    int       `json:"to_version"`
	Reason       string    `json:"reason"` // "template_edit", "question_edit"
	ForkedAt     time.Time `json:"forked_at"`
}

type TemplateImportedEvent struct {
	TemplateName    string    `json:"template_name"`
	TemplateVersion int       `json:"template_version"`
	Scope           string    `json:"scope"`
	SectionCount    int       `json:"section_count"`
	QuestionCount   int       `json:"question_count"`
	ImportedAt      time.Time `json:"imported_at"`
}

// Submission event payloads

type SubmissionStartedEvent struct {
	SubmissionID         uuid.UUID `json:"submission_id"`
	JobApplicationStepID uuid.UUID `json:"job_application_step_id"`
	TemplateName         string    `json:"template_name"`
	TemplateVersion      int       `json:"template_version"`
	StartedAt            time.Time `json:"started_at"`
	TimeLimitSeconds     *int      `json:"time_limit_seconds,omitempty"`
}

type SubmissionCompletedEvent struct {
	SubmissionID         uuid.UUID `json:"submission_id"`
	JobApplicationStepID uuid.UUID `json:"job_application_step_id"`
	TemplateName         string    `json:"template_name"`
	TemplateVersion      int       `json:"template_version"`
	Status               string    `json:"status"`
	SubmittedAt          time.Time `json:"submitted_at"`
	TotalScore           *float64  `json:"total_score,omitempty"`
	MaxScore             *float64  `json:"max_score,omitempty"`
}
