package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/talentflow/questionnaire-service/internal/models"
)

// ===== TEMPLATE REPOSITORY =====

type TemplateRepository interface {
	Create(ctx context.Context, template *models.Template) error
	Update(ctx context.Context, template *models.Template) error

	// GetByKey loads one template version with its full section/question/option
	// graph, ordered by display order. Inactive questions are excluded.
	GetByKey(ctx context.Context, name string, version int) (*models.Template, error)

	// GetLatest loads the highest version of the lineage with its full graph.
	GetLatest(ctx context.Context, name string) (*models.Template, error)

	// LatestVersion returns the highest version number in the lineage,
	// 0 when the lineage does not exist.
	LatestVersion(ctx context.Context, name string) (int, error)

	ListVersions(ctx context.Context, name string) ([]models.Template, error)
	List(ctx context.Context, filters TemplateFilters) ([]models.Template, int64, error)
	Exists(ctx context.Context, name string) (bool, error)
}

type SectionRepository interface {
	Create(ctx context.Context, section *models.Section) error
	Update(ctx context.Context, section *models.Section) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Section, error)
	GetByTemplate(ctx context.Context, templateName string, templateVersion int) ([]models.Section, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type QuestionRepository interface {
	Create(ctx context.Context, question *models.Question) error
	Update(ctx context.Context, question *models.Question) error

	// Deactivate clears IsActive on one question version. The row stays in
	// place so pinned submissions keep resolving against it.
	Deactivate(ctx context.Context, name string, version int) error

	GetByKey(ctx context.Context, name string, version int) (*models.Question, error)
	GetBySection(ctx context.Context, sectionID uuid.UUID) ([]models.Question, error)

	// LatestVersion returns the highest version number across the question
	// lineage, 0 when no row exists.
	LatestVersion(ctx context.Context, name string) (int, error)
}

type OptionRepository interface {
	Create(ctx context.Context, option *models.Option) error
	Update(ctx context.Context, option *models.Option) error
	Delete(ctx context.Context, name string, version int) error
	GetByKey(ctx context.Context, name string, version int) (*models.Option, error)
	GetByQuestion(ctx context.Context, questionName string, questionVersion int) ([]models.Option, error)
	LatestVersion(ctx context.Context, name string) (int, error)
}

// ===== SUBMISSION REPOSITORY =====

type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	Update(ctx context.Context, submission *models.Submission) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Submission, error)
	GetByStepID(ctx context.Context, stepID uuid.UUID) (*models.Submission, error)
	List(ctx context.Context, filters SubmissionFilters) ([]models.Submission, int64, error)

	// CountByTemplate counts submissions pinned to one template version.
	// A non-zero count marks the version as in use and therefore immutable.
	CountByTemplate(ctx context.Context, templateName string, templateVersion int) (int64, error)
}

type AnswerRepository interface {
	CreateBatch(ctx context.Context, answers []models.Answer) error
	GetBySubmission(ctx context.Context, submissionID uuid.UUID) ([]models.Answer, error)
	DeleteBySubmission(ctx context.Context, submissionID uuid.UUID) error
}

type StepRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.JobApplicationStep, error)
	Update(ctx context.Context, step *models.JobApplicationStep) error
}

// ===== SHARED FILTER STRUCTS =====

type TemplateFilters struct {
	TemplateType *models.TemplateType   `json:"template_type"`
	Status       *models.TemplateStatus `json:"status"`
	LatestOnly   bool                   `json:"latest_only"`
	Limit        int                    `json:"limit"`
	Offset       int                    `json:"offset"`
	SortBy       string                 `json:"sort_by"`    // "created_at", "name", "version"
	SortOrder    string                 `json:"sort_order"` // "asc", "desc"
}

type SubmissionFilters struct {
	TemplateName    *string                  `json:"template_name"`
	TemplateVersion *int                     `json:"template_version"`
	Status          *models.SubmissionStatus `json:"status"`
	Limit           int                      `json:"limit"`
	Offset          int                      `json:"offset"`
	SortBy          string                   `json:"sort_by"`
	SortOrder       string                   `json:"sort_order"`
}

// ===== AGGREGATE =====

// Repository bundles all stores behind one handle so services can run a
// multi-store cascade inside a single transaction.
type Repository interface {
	Templates() TemplateRepository
	Sections() SectionRepository
	Questions() QuestionRepository
	Options() OptionRepository
	Submissions() SubmissionRepository
	Answers() AnswerRepository
	Steps() StepRepository

	// WithTransaction runs fn against a Repository bound to one database
	// transaction. A non-nil error from fn rolls everything back.
	WithTransaction(ctx context.Context, fn func(Repository) error) error
}
