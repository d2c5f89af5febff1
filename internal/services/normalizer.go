package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/talentflow/questionnaire-service/internal/models"
	"github.com/talentflow/questionnaire-service/internal/repositories"
)

var (
	nonAlphanumericPattern    = regexp.MustCompile(`[^a-z0-9]+`)
	multipleUnderscorePattern = regexp.MustCompile(`_{2,}`)
)

// Slugify converts text to a stable machine name: lowercase, alphanumeric and
// single underscores only.
func Slugify(text string) string {
	slug := strings.TrimSpace(strings.ToLower(text))
	if slug == "" {
		return ""
	}
	if len(slug) > 255 {
		slug = slug[:255]
	}
	slug = nonAlphanumericPattern.ReplaceAllString(slug, "_")
	slug = multipleUnderscorePattern.ReplaceAllString(slug, "_")
	return strings.Trim(slug, "_")
}

// OptionNameNormalizer normalizes option names for consistency and uniqueness.
type OptionNameNormalizer interface {
	// NormalizeOptionName derives the canonical option name for an input.
	// Nameless inputs get "{questionName}_{slug(label)}"; generic names like
	// "option_a" are prefixed with the question name to keep them unique
	// across questions.
	NormalizeOptionName(input OptionInput, question *models.Question) string

	// EnsureUniqueOptionNameV1 resolves collisions against stored version-1
	// rows by appending a numeric suffix.
	EnsureUniqueOptionNameV1(ctx context.Context, desiredName string) (string, error)
}

type optionNameNormalizer struct {
	options repositories.OptionRepository
}

func NewOptionNameNormalizer(options repositories.OptionRepository) OptionNameNormalizer {
	return &optionNameNormalizer{options: options}
}

func (n *optionNameNormalizer) NormalizeOptionName(input OptionInput, question *models.Question) string {
	if strings.TrimSpace(input.Name) == "" {
		label := strings.TrimSpace(input.Label)
		return fmt.Sprintf("%s_%s", question.Name, Slugify(label))
	}

	baseName := strings.TrimSpace(input.Name)
	lower := strings.ToLower(baseName)
	if strings.HasPrefix(lower, "option_") || strings.HasPrefix(lower, "opt_") {
		return fmt.Sprintf("%s_%s", question.Name, baseName)
	}

	return baseName
}

func (n *optionNameNormalizer) EnsureUniqueOptionNameV1(ctx context.Context, desiredName string) (string, error) {
	candidate := strings.TrimSpace(desiredName)
	if candidate == "" {
		return "", ErrOptionNameEmpty
	}

	// Fast path: check if name is available
	taken, err := n.nameTaken(ctx, candidate)
	if err != nil {
		return "", err
	}
	if !taken {
		return candidate, nil
	}

	// Add deterministic suffix until unique
	for i := 2; i <= 50; i++ {
		withSuffix := fmt.Sprintf("%s_%d", candidate, i)
		taken, err = n.nameTaken(ctx, withSuffix)
		if err != nil {
			return "", err
		}
		if !taken {
			return withSuffix, nil
		}
	}

	// Extremely unlikely fallback
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%s", candidate, random), nil
}

func (n *optionNameNormalizer) nameTaken(ctx context.Context, name string) (bool, error) {
	_, err := n.options.GetByKey(ctx, name, 1)
	if err != nil {
		if repositories.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check option name %q: %w", name, err)
	}
	return true, nil
}
