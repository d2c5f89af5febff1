package postgres

import (
	"context"
	"fmt"

	"github.com/talentflow/questionnaire-service/internal/models"
	"github.com/talentflow/questionnaire-service/internal/repositories"
	"gorm.io/gorm"
)

type OptionPostgreSQL struct {
	db *gorm.DB
}

func NewOptionPostgreSQL(db *gorm.DB) repositories.OptionRepository {
	return &OptionPostgreSQL{db: db}
}

func (o *OptionPostgreSQL) Create(ctx context.Context, option *models.Option) error {
	if err := o.db.WithContext(ctx).Create(option).Error; err != nil {
		return fmt.Errorf("failed to create option %s v%d: %w", option.Name, option.Version, err)
	}
	return nil
}

func (o *OptionPostgreSQL) Update(ctx context.Context, option *models.Option) error {
	if err := o.db.WithContext(ctx).Save(option).Error; err != nil {
		return fmt.Errorf("failed to update option %s v%d: %w", option.Name, option.Version, err)
	}
	return nil
}

// Delete soft deletes one option version. Pinned submissions keep their
// answer snapshots, so the row only disappears from template loads.
func (o *OptionPostgreSQL) Delete(ctx context.Context, name string, version int) error {
	result := o.db.WithContext(ctx).
		Where("name = ? AND version = ?", name, version).
		Delete(&models.Option{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete option %s v%d: %w", name, version, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (o *OptionPostgreSQL) GetByKey(ctx context.Context, name string, version int) (*models.Option, error) {
	var option models.Option
	err := o.db.WithContext(ctx).
		Where("name = ? AND version = ?", name, version).
		First(&option).Error
	if err != nil {
		return nil, err
	}
	return &option, nil
}

func (o *OptionPostgreSQL) GetByQuestion(ctx context.Context, questionName string, questionVersion int) ([]models.Option, error) {
	var options []models.Option
	err := o.db.WithContext(ctx).
		Where("question_name = ? AND question_version = ?", questionName, questionVersion).
		Order(`"order" ASC`).
		Find(&options).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load options of question %s v%d: %w", questionName, questionVersion, err)
	}
	return options, nil
}

func (o *OptionPostgreSQL) LatestVersion(ctx context.Context, name string) (int, error) {
	var version *int
	err := o.db.WithContext(ctx).
		Model(&models.Option{}).
		Unscoped().
		Select("MAX(version)").
		Where("name = ?", name).
		Scan(&version).Error
	if err != nil {
		return 0, fmt.Errorf("failed to resolve latest version of option %s: %w", name, err)
	}
	if version == nil {
		return 0, nil
	}
	return *version, nil
}
