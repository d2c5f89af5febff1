package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/talentflow/questionnaire-service/internal/models"
	"github.com/talentflow/questionnaire-service/internal/repositories"
	"gorm.io/gorm"
)

type SubmissionPostgreSQL struct {
	db *gorm.DB
}

func NewSubmissionPostgreSQL(db *gorm.DB) repositories.SubmissionRepository {
	return &SubmissionPostgreSQL{db: db}
}

func (s *SubmissionPostgreSQL) Create(ctx context.Context, submission *models.Submission) error {
	if submission.ID == uuid.Nil {
		submission.ID = uuid.New()
	}
	if err := s.db.WithContext(ctx).Create(submission).Error; err != nil {
		return fmt.Errorf("failed to create submission for step %s: %w", submission.JobApplicationStepID, err)
	}
	return nil
}

func (s *SubmissionPostgreSQL) Update(ctx context.Context, submission *models.Submission) error {
	err := s.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: false}).
		Save(submission).Error
	if err != nil {
		return fmt.Errorf("failed to update submission %s: %w", submission.ID, err)
	}
	return nil
}

func (s *SubmissionPostgreSQL) GetByID(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	var submission models.Submission
	err := s.withAnswers(s.db.WithContext(ctx)).
		First(&submission, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

func (s *SubmissionPostgreSQL) GetByStepID(ctx context.Context, stepID uuid.UUID) (*models.Submission, error) {
	var submission models.Submission
	err := s.withAnswers(s.db.WithContext(ctx)).
		First(&submission, "job_application_step_id = ?", stepID).Error
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

func (s *SubmissionPostgreSQL) List(ctx context.Context, filters repositories.SubmissionFilters) ([]models.Submission, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Submission{})

	if filters.TemplateName != nil {
		query = query.Where("template_name = ?", *filters.TemplateName)
	}
	if filters.TemplateVersion != nil {
		query = query.Where("template_version = ?", *filters.TemplateVersion)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count submissions: %w", err)
	}

	query = applySorting(query, filters.SortBy, filters.SortOrder, "created_at")
	query = applyPagination(query, filters.Limit, filters.Offset)

	var submissions []models.Submission
	if err := query.Find(&submissions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list submissions: %w", err)
	}
	return submissions, total, nil
}

func (s *SubmissionPostgreSQL) CountByTemplate(ctx context.Context, templateName string, templateVersion int) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("template_name = ? AND template_version = ?", templateName, templateVersion).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count submissions of %s v%d: %w", templateName, templateVersion, err)
	}
	return count, nil
}

func (s *SubmissionPostgreSQL) withAnswers(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("question_order ASC")
		}).
		Preload("Answers.SelectedOptions")
}
