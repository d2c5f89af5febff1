package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/talentflow/questionnaire-service/internal/models"
	"github.com/talentflow/questionnaire-service/internal/repositories"
	"gorm.io/gorm"
)

type QuestionPostgreSQL struct {
	db *gorm.DB
}

func NewQuestionPostgreSQL(db *gorm.DB) repositories.QuestionRepository {
	return &QuestionPostgreSQL{db: db}
}

func (q *QuestionPostgreSQL) Create(ctx context.Context, question *models.Question) error {
	if err := q.db.WithContext(ctx).Create(question).Error; err != nil {
		return fmt.Errorf("failed to create question %s v%d: %w", question.Name, question.Version, err)
	}
	return nil
}

func (q *QuestionPostgreSQL) Update(ctx context.Context, question *models.Question) error {
	err := q.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: false}).
		Save(question).Error
	if err != nil {
		return fmt.Errorf("failed to update question %s v%d: %w", question.Name, question.Version, err)
	}
	return nil
}

func (q *QuestionPostgreSQL) Deactivate(ctx context.Context, name string, version int) error {
	result := q.db.WithContext(ctx).
		Model(&models.Question{}).
		Where("name = ? AND version = ?", name, version).
		Update("is_active", false)
	if result.Error != nil {
		return fmt.Errorf("failed to deactivate question %s v%d: %w", name, version, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (q *QuestionPostgreSQL) GetByKey(ctx context.Context, name string, version int) (*models.Question, error) {
	var question models.Question
	err := q.db.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order(`"order" ASC`)
		}).
		Where("name = ? AND version = ?", name, version).
		First(&question).Error
	if err != nil {
		return nil, err
	}
	return &question, nil
}

func (q *QuestionPostgreSQL) GetBySection(ctx context.Context, sectionID uuid.UUID) ([]models.Question, error) {
	var questions []models.Question
	err := q.db.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order(`"order" ASC`)
		}).
		Where("section_id = ? AND is_active = ?", sectionID, true).
		Order(`"order" ASC`).
		Find(&questions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load questions of section %s: %w", sectionID, err)
	}
	return questions, nil
}

func (q *QuestionPostgreSQL) LatestVersion(ctx context.Context, name string) (int, error) {
	var version *int
	err := q.db.WithContext(ctx).
		Model(&models.Question{}).
		Select("MAX(version)").
		Where("name = ?", name).
		Scan(&version).Error
	if err != nil {
		return 0, fmt.Errorf("failed to resolve latest version of question %s: %w", name, err)
	}
	if version == nil {
		return 0, nil
	}
	return *version, nil
}
