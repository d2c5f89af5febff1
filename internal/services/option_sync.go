package services

import (
	"context"
	"fmt"

	"github.com/talentflow/questionnaire-service/internal/models"
	"github.com/talentflow/questionnaire-service/internal/repositories"
	"github.com/talentflow/questionnaire-service/internal/utils"
)

// OptionSyncHandler reconciles one question's stored options against an
// edited payload.
type OptionSyncHandler interface {
	// SyncOptions applies incoming to question. On an in-use template a
	// changed or new option forks the owning question and the call returns
	// immediately with QuestionForked set; re-invoke until Forked() is false.
	SyncOptions(ctx context.Context, question *models.Question, incoming []OptionInput, section *models.Section, template *models.Template) (OptionSyncOutcome, error)

	// syncOptions is the cascade-internal entry: the caller has already
	// resolved inUse for the whole pass and threads it down unchanged.
	syncOptions(ctx context.Context, question *models.Question, incoming []OptionInput, section *models.Section, inUse bool) (OptionSyncOutcome, error)
}

type optionSyncHandler struct {
	repo       repositories.Repository
	versioning VersioningService
	normalizer OptionNameNormalizer
	factory    EntityFactory
	logger     utils.Logger
}

func NewOptionSyncHandler(
	repo repositories.Repository,
	versioning VersioningService,
	normalizer OptionNameNormalizer,
	factory EntityFactory,
	logger utils.Logger,
) OptionSyncHandler {
	return &optionSyncHandler{
		repo:       repo,
		versioning: versioning,
		normalizer: normalizer,
		factory:    factory,
		logger:     logger.With("component", "option_sync"),
	}
}

type normalizedOption struct {
	input          OptionInput
	normalizedName string
}

func (h *optionSyncHandler) SyncOptions(ctx context.Context, question *models.Question, incoming []OptionInput, section *models.Section, template *models.Template) (OptionSyncOutcome, error) {
	inUse, err := isTemplateInUse(ctx, h.repo, template.Name, template.Version)
	if err != nil {
		return OptionSyncOutcome{}, err
	}
	return h.syncOptions(ctx, question, incoming, section, inUse)
}

func (h *optionSyncHandler) syncOptions(ctx context.Context, question *models.Question, incoming []OptionInput, section *models.Section, inUse bool) (OptionSyncOutcome, error) {
	normalized := h.normalizeIncoming(incoming, question)
	incomingByName := make(map[string]OptionInput, len(normalized))
	for _, item := range normalized {
		incomingByName[item.normalizedName] = item.input
	}
	if err := h.removeOptionsNotInIncoming(ctx, question, incomingByName, inUse); err != nil {
		return OptionSyncOutcome{}, err
	}

	// the delete phase compacts question.Options in place, so pointers into
	// the slice are only taken afterwards
	existingByName := resolveLegacyOptionAliases(question)

	for _, item := range normalized {
		outcome, err := h.processOption(ctx, item, question, section, existingByName, inUse)
		if err != nil {
			return OptionSyncOutcome{}, err
		}
		if outcome.Forked() {
			return outcome, nil
		}
	}

	return OptionSyncOutcome{}, nil
}

func (h *optionSyncHandler) normalizeIncoming(incoming []OptionInput, question *models.Question) []normalizedOption {
	normalized := make([]normalizedOption, 0, len(incoming))
	for _, input := range incoming {
		normalized = append(normalized, normalizedOption{
			input:          input,
			normalizedName: h.normalizer.NormalizeOptionName(input, question),
		})
	}
	return normalized
}

func (h *optionSyncHandler) removeOptionsNotInIncoming(ctx context.Context, question *models.Question, incomingByName map[string]OptionInput, inUse bool) error {
	kept := question.Options[:0]
	for i := range question.Options {
		option := question.Options[i]
		if _, present := incomingByName[option.Name]; present {
			kept = append(kept, option)
			continue
		}
		if inUse {
			return NewInvariantViolation("option_removal_in_use",
				"cannot remove option: template is in use, version the template first")
		}
		if err := h.repo.Options().Delete(ctx, option.Name, option.Version); err != nil {
			return err
		}
	}
	question.Options = kept
	return nil
}

func (h *optionSyncHandler) processOption(ctx context.Context, item normalizedOption, question *models.Question, section *models.Section, existingByName map[string]*models.Option, inUse bool) (OptionSyncOutcome, error) {
	existing, matched := lookupOption(existingByName, item.normalizedName)
	if !matched {
		return h.createNewOption(ctx, item, question, section, inUse)
	}

	if hasOptionChanged(existing, item.input) && inUse {
		if err := h.forkQuestionForOptionChange(ctx, question, item.input, section); err != nil {
			return OptionSyncOutcome{}, err
		}
		return OptionSyncOutcome{QuestionForked: true}, nil
	}

	applyOptionInput(existing, item.input)
	if err := h.repo.Options().Update(ctx, existing); err != nil {
		return OptionSyncOutcome{}, err
	}
	return OptionSyncOutcome{}, nil
}

func (h *optionSyncHandler) createNewOption(ctx context.Context, item normalizedOption, question *models.Question, section *models.Section, inUse bool) (OptionSyncOutcome, error) {
	if inUse {
		// An in-use template cannot take the option in place; the owning
		// question forks and the merged option set moves to the new version.
		if err := h.forkQuestionForNewOption(ctx, question, item.input, section); err != nil {
			return OptionSyncOutcome{}, err
		}
		return OptionSyncOutcome{QuestionForked: true}, nil
	}

	uniqueName, err := h.normalizer.EnsureUniqueOptionNameV1(ctx, item.normalizedName)
	if err != nil {
		return OptionSyncOutcome{}, err
	}
	newOption := h.factory.CreateOption(optionInputWithName(item.input, uniqueName), question)
	if err := h.repo.Options().Create(ctx, newOption); err != nil {
		return OptionSyncOutcome{}, err
	}
	question.Options = append(question.Options, *newOption)
	return OptionSyncOutcome{}, nil
}

func (h *optionSyncHandler) forkQuestionForNewOption(ctx context.Context, question *models.Question, newOption OptionInput, section *models.Section) error {
	merged := make([]OptionInput, 0, len(question.Options)+1)
	for i := range question.Options {
		merged = append(merged, optionInputFromModel(&question.Options[i]))
	}
	merged = append(merged, newOption)

	input := questionInputFromModel(question, merged)
	_, err := forkQuestionWithInput(ctx, h.repo, h.versioning, h.normalizer, h.factory, question, input, section)
	if err != nil {
		return fmt.Errorf("failed to fork question %s for new option: %w", question.Name, err)
	}
	h.logger.InfoContext(ctx, "question forked for new option",
		"question", question.Name, "from_version", question.Version)
	return nil
}

func (h *optionSyncHandler) forkQuestionForOptionChange(ctx context.Context, question *models.Question, changed OptionInput, section *models.Section) error {
	merged := make([]OptionInput, 0, len(question.Options))
	for i := range question.Options {
		merged = append(merged, optionInputFromModel(&question.Options[i]))
	}
	for i := range merged {
		if merged[i].Name == changed.Name {
			merged[i] = changed
			break
		}
	}

	input := questionInputFromModel(question, merged)
	_, err := forkQuestionWithInput(ctx, h.repo, h.versioning, h.normalizer, h.factory, question, input, section)
	if err != nil {
		return fmt.Errorf("failed to fork question %s for option change: %w", question.Name, err)
	}
	h.logger.InfoContext(ctx, "question forked for option change",
		"question", question.Name, "from_version", question.Version, "option", changed.Name)
	return nil
}
