package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/talentflow/questionnaire-service/internal/models"
	"github.com/talentflow/questionnaire-service/internal/repositories"
	"gorm.io/gorm"
)

type SectionPostgreSQL struct {
	db *gorm.DB
}

func NewSectionPostgreSQL(db *gorm.DB) repositories.SectionRepository {
	return &SectionPostgreSQL{db: db}
}

func (s *SectionPostgreSQL) Create(ctx context.Context, section *models.Section) error {
	if section.ID == uuid.Nil {
		section.ID = uuid.New()
	}
	if err := s.db.WithContext(ctx).Create(section).Error; err != nil {
		return fmt.Errorf("failed to create section %q: %w", section.Title, err)
	}
	return nil
}

func (s *SectionPostgreSQL) Update(ctx context.Context, section *models.Section) error {
	if err := s.db.WithContext(ctx).Save(section).Error; err != nil {
		return fmt.Errorf("failed to update section %s: %w", section.ID, err)
	}
	return nil
}

func (s *SectionPostgreSQL) GetByID(ctx context.Context, id uuid.UUID) (*models.Section, error) {
	var section models.Section
	err := s.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).Order(`"order" ASC`)
		}).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order(`"order" ASC`)
		}).
		First(&section, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &section, nil
}

func (s *SectionPostgreSQL) Delete(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Delete(&models.Section{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete section %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *SectionPostgreSQL) GetByTemplate(ctx context.Context, templateName string, templateVersion int) ([]models.Section, error) {
	var sections []models.Section
	err := s.db.WithContext(ctx).
		Where("template_name = ? AND template_version = ?", templateName, templateVersion).
		Order(`"order" ASC`).
		Find(&sections).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load sections of %s v%d: %w", templateName, templateVersion, err)
	}
	return sections, nil
}
