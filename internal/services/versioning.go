package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/talentflow/questionnaire-service/internal/cache"
	"github.com/talentflow/questionnaire-service/internal/models"
	"github.com/talentflow/questionnaire-service/internal/repositories"
	"github.com/talentflow/questionnaire-service/internal/utils"
)

const versionHistoryTTL = 5 * time.Minute

// VersionHistoryItem is one row of a lineage's version timeline.
type VersionHistoryItem struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	IsDeleted bool      `json:"is_deleted"`
}

// VersioningService forks questions and options to the next free version.
// The returned entity is NOT persisted; the caller decides when (and inside
// which transaction) the new row is written.
type VersioningService interface {
	// VersionQuestion clones source at latest-version+1 under newSectionID,
	// with an empty option set for the caller to rebuild.
	VersionQuestion(ctx context.Context, source *models.Question, newSectionID uuid.UUID) (*models.Question, error)

	// VersionOption clones source at latest-version+1, re-parented to the
	// given question version.
	VersionOption(ctx context.Context, source *models.Option, newQuestionName string, newQuestionVersion int) (*models.Option, error)

	// QuestionHistory and OptionHistory list the version timeline of a
	// lineage, newest first. Reads go through the cache.
	QuestionHistory(ctx context.Context, name string) ([]VersionHistoryItem, error)
	OptionHistory(ctx context.Context, name string) ([]VersionHistoryItem, error)
}

type versioningService struct {
	repo   repositories.Repository
	cache  cache.CacheService
	logger utils.Logger
}

func NewVersioningService(repo repositories.Repository, cacheService cache.CacheService, logger utils.Logger) VersioningService {
	return &versioningService{
		repo:   repo,
		cache:  cacheService,
		logger: logger.With("component", "versioning_service"),
	}
}

func (s *versioningService) VersionQuestion(ctx context.Context, source *models.Question, newSectionID uuid.UUID) (*models.Question, error) {
	latest, err := s.repo.Questions().LatestVersion(ctx, source.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to version question %s: %w", source.Name, err)
	}
	nextVersion := nextVersionAfter(latest, source.Version)

	now := time.Now().UTC()
	forked := &models.Question{
		Name:         source.Name,
		Version:      nextVersion,
		SectionID:    newSectionID,
		Order:        source.Order,
		IsActive:     true,
		QuestionType: source.QuestionType,
		QuestionText: source.QuestionText,
		IsRequired:   source.IsRequired,
		Ws:           source.Ws,
		TraitKey:     source.TraitKey,
		CreatedAt:    now,
		UpdatedAt:    now,
		Options:      []models.Option{},
	}

	s.invalidateHistory(ctx, "question", source.Name)
	return forked, nil
}

func (s *versioningService) VersionOption(ctx context.Context, source *models.Option, newQuestionName string, newQuestionVersion int) (*models.Option, error) {
	latest, err := s.repo.Options().LatestVersion(ctx, source.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to version option %s: %w", source.Name, err)
	}
	nextVersion := nextVersionAfter(latest, source.Version)

	now := time.Now().UTC()
	forked := &models.Option{
		Name:            source.Name,
		Version:         nextVersion,
		QuestionName:    newQuestionName,
		QuestionVersion: newQuestionVersion,
		Order:           source.Order,
		Label:           source.Label,
		IsCorrect:       source.IsCorrect,
		Score:           source.Score,
		Weight:          source.Weight,
		Wa:              source.Wa,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	s.invalidateHistory(ctx, "option", source.Name)
	return forked, nil
}

func (s *versioningService) QuestionHistory(ctx context.Context, name string) ([]VersionHistoryItem, error) {
	key := historyCacheKey("question", name)

	var cached []VersionHistoryItem
	err := s.cache.Get(ctx, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.WarnContext(ctx, "version history cache read failed", "key", key, "error", err)
	}

	history, err := s.questionHistoryFromStore(ctx, name)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, history, versionHistoryTTL); err != nil {
		s.logger.WarnContext(ctx, "version history cache write failed", "key", key, "error", err)
	}
	return history, nil
}

func (s *versioningService) OptionHistory(ctx context.Context, name string) ([]VersionHistoryItem, error) {
	key := historyCacheKey("option", name)

	var cached []VersionHistoryItem
	err := s.cache.Get(ctx, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.WarnContext(ctx, "version history cache read failed", "key", key, "error", err)
	}

	history := []VersionHistoryItem{}
	latest, err := s.repo.Options().LatestVersion(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load option history %s: %w", name, err)
	}
	for v := latest; v >= 1; v-- {
		option, err := s.repo.Options().GetByKey(ctx, name, v)
		if err != nil {
			if repositories.IsNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("failed to load option history %s: %w", name, err)
		}
		history = append(history, VersionHistoryItem{
			Version:   option.Version,
			CreatedAt: option.CreatedAt,
			UpdatedAt: option.UpdatedAt,
		})
	}

	if err := s.cache.Set(ctx, key, history, versionHistoryTTL); err != nil {
		s.logger.WarnContext(ctx, "version history cache write failed", "key", key, "error", err)
	}
	return history, nil
}

func (s *versioningService) questionHistoryFromStore(ctx context.Context, name string) ([]VersionHistoryItem, error) {
	history := []VersionHistoryItem{}
	latest, err := s.repo.Questions().LatestVersion(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load question history %s: %w", name, err)
	}
	for v := latest; v >= 1; v-- {
		question, err := s.repo.Questions().GetByKey(ctx, name, v)
		if err != nil {
			if repositories.IsNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("failed to load question history %s: %w", name, err)
		}
		history = append(history, VersionHistoryItem{
			Version:   question.Version,
			CreatedAt: question.CreatedAt,
			UpdatedAt: question.UpdatedAt,
		})
	}
	return history, nil
}

// invalidateHistory is best-effort: a stale history entry expires on its own
// within the TTL.
func (s *versioningService) invalidateHistory(ctx context.Context, entityType, name string) {
	key := historyCacheKey(entityType, name)
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "version history cache invalidation failed", "key", key, "error", err)
	}
}

func historyCacheKey(entityType, name string) string {
	return fmt.Sprintf("version_history:%s:%s", entityType, name)
}

// nextVersionAfter picks the successor of whichever is higher: the stored
// latest version or the version the caller holds.
func nextVersionAfter(latest, current int) int {
	if latest > current {
		return latest + 1
	}
	return current + 1
}
