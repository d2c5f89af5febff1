package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/talentflow/questionnaire-service/internal/models"
	"github.com/talentflow/questionnaire-service/internal/repositories"
	"gorm.io/gorm"
)

type AnswerPostgreSQL struct {
	db *gorm.DB
}

func NewAnswerPostgreSQL(db *gorm.DB) repositories.AnswerRepository {
	return &AnswerPostgreSQL{db: db}
}

func (a *AnswerPostgreSQL) CreateBatch(ctx context.Context, answers []models.Answer) error {
	if len(answers) == 0 {
		return nil
	}
	for i := range answers {
		if answers[i].ID == uuid.Nil {
			answers[i].ID = uuid.New()
		}
		for j := range answers[i].SelectedOptions {
			if answers[i].SelectedOptions[j].ID == uuid.Nil {
				answers[i].SelectedOptions[j].ID = uuid.New()
			}
			answers[i].SelectedOptions[j].AnswerID = answers[i].ID
		}
	}
	if err := a.db.WithContext(ctx).CreateInBatches(answers, 100).Error; err != nil {
		return fmt.Errorf("failed to create answers: %w", err)
	}
	return nil
}

func (a *AnswerPostgreSQL) GetBySubmission(ctx context.Context, submissionID uuid.UUID) ([]models.Answer, error) {
	var answers []models.Answer
	err := a.db.WithContext(ctx).
		Preload("SelectedOptions").
		Where("submission_id = ?", submissionID).
		Order("question_order ASC").
		Find(&answers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load answers of submission %s: %w", submissionID, err)
	}
	return answers, nil
}

// DeleteBySubmission clears a draft's answers before a re-save replaces them.
func (a *AnswerPostgreSQL) DeleteBySubmission(ctx context.Context, submissionID uuid.UUID) error {
	err := a.db.WithContext(ctx).
		Where("answer_id IN (?)", a.db.Model(&models.Answer{}).
			Select("id").
			Where("submission_id = ?", submissionID)).
		Delete(&models.AnswerOption{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete answer options of submission %s: %w", submissionID, err)
	}

	err = a.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Delete(&models.Answer{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete answers of submission %s: %w", submissionID, err)
	}
	return nil
}
