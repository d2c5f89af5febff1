package services

import (
	"context"

	"github.com/talentflow/questionnaire-service/internal/models"
	"gorm.io/datatypes"
)

// PersonalityScoreCalculator aggregates trait results from a completed
// answer set. The trait math itself lives behind this interface; the
// orchestrator only persists whatever JSON document the calculator returns.
// An empty document means no personality result is stored.
type PersonalityScoreCalculator interface {
	Calculate(ctx context.Context, answers []models.Answer, questionsByKey map[models.VersionKey]*models.Question, templateType models.TemplateType) (datatypes.JSON, error)
}

// noopPersonalityCalculator produces no result for any template. It stands
// in until a concrete trait model is plugged in.
type noopPersonalityCalculator struct{}

func NewNoopPersonalityCalculator() PersonalityScoreCalculator {
	return &noopPersonalityCalculator{}
}

func (c *noopPersonalityCalculator) Calculate(ctx context.Context, answers []models.Answer, questionsByKey map[models.VersionKey]*models.Question, templateType models.TemplateType) (datatypes.JSON, error) {
	return nil, nil
}
