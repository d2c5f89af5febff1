package models

import (
	"time"

	"github.com/google/uuid"
)

type StepStatus string

const (
	StepStatusPending    StepStatus = "Pending"
	StepStatusInProgress StepStatus = "InProgress"
	StepStatusCompleted  StepStatus = "Completed"
	StepStatusSkipped    StepStatus = "Skipped"
)

// JobApplicationStep is the pipeline stage a submission fulfils. The
// questionnaire engine only reads the template binding and flips Status to
// Completed after a successful submission; everything else about the hiring
// pipeline lives outside this service.
type JobApplicationStep struct {
	ID               uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	JobApplicationID uuid.UUID  `json:"job_application_id" gorm:"type:uuid;index"`
	Status           StepStatus `json:"status" gorm:"default:Pending;index"`
	Order            int        `json:"order" gorm:"not null"`

	// TemplateName binds the step to a questionnaire lineage; the concrete
	// version is resolved when the candidate starts the submission.
	TemplateName    *string `json:"template_name" gorm:"size:255"`
	TemplateVersion *int    `json:"template_version"`

	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (JobApplicationStep) TableName() string {
	return "job_application_steps"
}
