package services

import (
	"context"
	"fmt"

	"github.com/talentflow/questionnaire-service/internal/models"
	"github.com/talentflow/questionnaire-service/internal/repositories"
)

// forkQuestionWithInput supersedes current with a rebuilt Version+1 row. The
// old row is deactivated but retained, so submissions pinned to it still
// resolve. Incoming options that match a pre-fork option (by exact or
// normalized name) are carried over as option forks; the rest are created
// fresh at version 1.
//
// The writes between deactivation and the last option insert are not
// ctx-polled: a fork is all-or-nothing up to the caller's commit, never an
// orphaned child without its parent.
func forkQuestionWithInput(
	ctx context.Context,
	repo repositories.Repository,
	versioning VersioningService,
	normalizer OptionNameNormalizer,
	factory EntityFactory,
	current *models.Question,
	incoming QuestionInput,
	section *models.Section,
) (*models.Question, error) {
	if err := repo.Questions().Deactivate(ctx, current.Name, current.Version); err != nil {
		return nil, fmt.Errorf("failed to supersede question %s v%d: %w", current.Name, current.Version, err)
	}
	current.IsActive = false

	forked, err := versioning.VersionQuestion(ctx, current, section.ID)
	if err != nil {
		return nil, err
	}
	applyQuestionInput(forked, incoming)

	if err := repo.Questions().Create(ctx, forked); err != nil {
		return nil, err
	}

	preFork := resolveLegacyOptionAliases(current)

	for _, optInput := range incoming.Options {
		normalized := normalizer.NormalizeOptionName(optInput, forked)

		var newOption *models.Option
		match, ok := lookupOption(preFork, optInput.Name)
		if !ok {
			match, ok = lookupOption(preFork, normalized)
		}

		if ok {
			newOption, err = versioning.VersionOption(ctx, match, forked.Name, forked.Version)
			if err != nil {
				return nil, err
			}
			applyOptionInput(newOption, optInput)
		} else {
			uniqueName, err := normalizer.EnsureUniqueOptionNameV1(ctx, normalized)
			if err != nil {
				return nil, err
			}
			newOption = factory.CreateOption(optionInputWithName(optInput, uniqueName), forked)
		}

		if err := repo.Options().Create(ctx, newOption); err != nil {
			return nil, err
		}
		forked.Options = append(forked.Options, *newOption)
	}

	section.Questions = append(section.Questions, *forked)
	return forked, nil
}
