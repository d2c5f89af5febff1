package postgres

import (
	"context"
	"fmt"

	"github.com/talentflow/questionnaire-service/internal/repositories"
	"gorm.io/gorm"
)

// Repository is the GORM-backed aggregate store. All sub-repositories share
// the same *gorm.DB handle, which is what makes WithTransaction work: the
// transactional copy rebinds every sub-repository to the tx handle.
type Repository struct {
	db *gorm.DB

	templates   repositories.TemplateRepository
	sections    repositories.SectionRepository
	questions   repositories.QuestionRepository
	options     repositories.OptionRepository
	submissions repositories.SubmissionRepository
	answers     repositories.AnswerRepository
	steps       repositories.StepRepository
}

func NewRepository(db *gorm.DB) repositories.Repository {
	return &Repository{
		db:          db,
		templates:   NewTemplatePostgreSQL(db),
		sections:    NewSectionPostgreSQL(db),
		questions:   NewQuestionPostgreSQL(db),
		options:     NewOptionPostgreSQL(db),
		submissions: NewSubmissionPostgreSQL(db),
		answers:     NewAnswerPostgreSQL(db),
		steps:       NewStepPostgreSQL(db),
	}
}

func (r *Repository) Templates() repositories.TemplateRepository     { return r.templates }
func (r *Repository) Sections() repositories.SectionRepository       { return r.sections }
func (r *Repository) Questions() repositories.QuestionRepository     { return r.questions }
func (r *Repository) Options() repositories.OptionRepository         { return r.options }
func (r *Repository) Submissions() repositories.SubmissionRepository { return r.submissions }
func (r *Repository) Answers() repositories.AnswerRepository         { return r.answers }
func (r *Repository) Steps() repositories.StepRepository             { return r.steps }

func (r *Repository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}
	return nil
}
