package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/talentflow/questionnaire-service/internal/models"
	"github.com/talentflow/questionnaire-service/internal/repositories"
	"gorm.io/gorm"
)

type StepPostgreSQL struct {
	db *gorm.DB
}

func NewStepPostgreSQL(db *gorm.DB) repositories.StepRepository {
	return &StepPostgreSQL{db: db}
}

func (s *StepPostgreSQL) GetByID(ctx context.Context, id uuid.UUID) (*models.JobApplicationStep, error) {
	var step models.JobApplicationStep
	if err := s.db.WithContext(ctx).First(&step, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &step, nil
}

func (s *StepPostgreSQL) Update(ctx context.Context, step *models.JobApplicationStep) error {
	if err := s.db.WithContext(ctx).Save(step).Error; err != nil {
		return fmt.Errorf("failed to update job application step %s: %w", step.ID, err)
	}
	return nil
}
