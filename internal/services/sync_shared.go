package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/talentflow/questionnaire-service/internal/models"
	"github.com/talentflow/questionnaire-service/internal/repositories"
)

// isTemplateInUse is the immutability gate: one submission pinned to the
// version freezes its structure. Each exported sync entry point evaluates
// this exactly once and threads the answer down unchanged, so a submission
// arriving mid-cascade cannot flip the decision halfway through.
func isTemplateInUse(ctx context.Context, repo repositories.Repository, name string, version int) (bool, error) {
	count, err := repo.Submissions().CountByTemplate(ctx, name, version)
	if err != nil {
		return false, fmt.Errorf("failed to check template usage for %s v%d: %w", name, version, err)
	}
	return count > 0, nil
}

// resolveLegacyOptionAliases indexes a question's options by name, adding the
// legacy aliases: historical rows were stored with a "{questionName}_" prefix,
// so the bare suffix also resolves when it is not already taken. Lookups are
// case-insensitive; go through lookupOption.
func resolveLegacyOptionAliases(question *models.Question) map[string]*models.Option {
	byName := make(map[string]*models.Option, len(question.Options))
	prefix := strings.ToLower(question.Name) + "_"
	for i := range question.Options {
		opt := &question.Options[i]
		byName[strings.ToLower(opt.Name)] = opt
	}
	for i := range question.Options {
		opt := &question.Options[i]
		lower := strings.ToLower(opt.Name)
		if strings.HasPrefix(lower, prefix) {
			alias := lower[len(prefix):]
			if _, taken := byName[alias]; !taken {
				byName[alias] = opt
			}
		}
	}
	return byName
}

func lookupOption(byName map[string]*models.Option, name string) (*models.Option, bool) {
	opt, ok := byName[strings.ToLower(name)]
	return opt, ok
}

// questionInputFromModel rebuilds the edit payload a question row represents,
// used when a fork has to merge stored state with one changed option.
func questionInputFromModel(question *models.Question, options []OptionInput) QuestionInput {
	return QuestionInput{
		Name:         question.Name,
		Version:      question.Version,
		Order:        question.Order,
		QuestionType: string(question.QuestionType),
		QuestionText: question.QuestionText,
		IsRequired:   question.IsRequired,
		Ws:           question.Ws,
		TraitKey:     question.TraitKey,
		Options:      options,
	}
}

func optionInputFromModel(option *models.Option) OptionInput {
	return OptionInput{
		Name:      option.Name,
		Version:   option.Version,
		Order:     option.Order,
		Label:     option.Label,
		IsCorrect: option.IsCorrect,
		Score:     option.Score,
		Weight:    option.Weight,
		Wa:        option.Wa,
	}
}

func optionInputWithName(source OptionInput, name string) OptionInput {
	source.Name = name
	return source
}
