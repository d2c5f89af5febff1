package postgres

import (
	"context"
	"fmt"

	"github.com/talentflow/questionnaire-service/internal/models"
	"github.com/talentflow/questionnaire-service/internal/repositories"
	"gorm.io/gorm"
)

type TemplatePostgreSQL struct {
	db *gorm.DB
}

func NewTemplatePostgreSQL(db *gorm.DB) repositories.TemplateRepository {
	return &TemplatePostgreSQL{db: db}
}

// Create inserts a new template version row. Sections and questions riding on
// the struct are inserted through GORM's association handling.
func (t *TemplatePostgreSQL) Create(ctx context.Context, template *models.Template) error {
	if err := t.db.WithContext(ctx).Create(template).Error; err != nil {
		return fmt.Errorf("failed to create template %s v%d: %w", template.Name, template.Version, err)
	}
	return nil
}

func (t *TemplatePostgreSQL) Update(ctx context.Context, template *models.Template) error {
	err := t.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: false}).
		Save(template).Error
	if err != nil {
		return fmt.Errorf("failed to update template %s v%d: %w", template.Name, template.Version, err)
	}
	return nil
}

// GetByKey loads one pinned template version with the full ordered graph.
func (t *TemplatePostgreSQL) GetByKey(ctx context.Context, name string, version int) (*models.Template, error) {
	var template models.Template
	err := t.withGraph(t.db.WithContext(ctx)).
		Where("name = ? AND version = ?", name, version).
		First(&template).Error
	if err != nil {
		return nil, err
	}
	return &template, nil
}

func (t *TemplatePostgreSQL) GetLatest(ctx context.Context, name string) (*models.Template, error) {
	var template models.Template
	err := t.withGraph(t.db.WithContext(ctx)).
		Where("name = ?", name).
		Order("version DESC").
		First(&template).Error
	if err != nil {
		return nil, err
	}
	return &template, nil
}

func (t *TemplatePostgreSQL) LatestVersion(ctx context.Context, name string) (int, error) {
	var version *int
	err := t.db.WithContext(ctx).
		Model(&models.Template{}).
		Select("MAX(version)").
		Where("name = ?", name).
		Scan(&version).Error
	if err != nil {
		return 0, fmt.Errorf("failed to resolve latest version of %s: %w", name, err)
	}
	if version == nil {
		return 0, nil
	}
	return *version, nil
}

func (t *TemplatePostgreSQL) ListVersions(ctx context.Context, name string) ([]models.Template, error) {
	var templates []models.Template
	err := t.db.WithContext(ctx).
		Where("name = ?", name).
		Order("version ASC").
		Find(&templates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list versions of %s: %w", name, err)
	}
	return templates, nil
}

func (t *TemplatePostgreSQL) List(ctx context.Context, filters repositories.TemplateFilters) ([]models.Template, int64, error) {
	query := t.db.WithContext(ctx).Model(&models.Template{})

	if filters.TemplateType != nil {
		query = query.Where("template_type = ?", *filters.TemplateType)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.LatestOnly {
		query = query.Where(`(name, version) IN (
			SELECT name, MAX(version) FROM questionnaire_templates GROUP BY name)`)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count templates: %w", err)
	}

	query = applySorting(query, filters.SortBy, filters.SortOrder, "created_at")
	query = applyPagination(query, filters.Limit, filters.Offset)

	var templates []models.Template
	if err := query.Find(&templates).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, total, nil
}

func (t *TemplatePostgreSQL) Exists(ctx context.Context, name string) (bool, error) {
	var count int64
	err := t.db.WithContext(ctx).
		Model(&models.Template{}).
		Where("name = ?", name).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check template existence: %w", err)
	}
	return count > 0, nil
}

// withGraph preloads sections, active questions and options in display order.
func (t *TemplatePostgreSQL) withGraph(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Sections", func(db *gorm.DB) *gorm.DB {
			return db.Order(`"order" ASC`)
		}).
		Preload("Sections.Questions", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).Order(`"order" ASC`)
		}).
		Preload("Sections.Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order(`"order" ASC`)
		})
}
