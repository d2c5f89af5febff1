package services

import (
	"context"
	"fmt"

	"github.com/talentflow/questionnaire-service/internal/models"
	"github.com/talentflow/questionnaire-service/internal/repositories"
	"github.com/talentflow/questionnaire-service/internal/utils"
)

// QuestionSyncHandler reconciles one section's question list. Questions match
// by name only: a sync always targets the active row of the lineage, never a
// specific version.
type QuestionSyncHandler interface {
	SyncQuestions(ctx context.Context, section *models.Section, incoming []QuestionInput, template *models.Template) (SyncOutcome, error)

	// syncQuestions is the cascade-internal entry with inUse already resolved.
	syncQuestions(ctx context.Context, section *models.Section, incoming []QuestionInput, inUse bool) (SyncOutcome, error)
}

type questionSyncHandler struct {
	repo       repositories.Repository
	versioning VersioningService
	factory    EntityFactory
	normalizer OptionNameNormalizer
	options    OptionSyncHandler
	logger     utils.Logger
}

func NewQuestionSyncHandler(
	repo repositories.Repository,
	versioning VersioningService,
	factory EntityFactory,
	normalizer OptionNameNormalizer,
	options OptionSyncHandler,
	logger utils.Logger,
) QuestionSyncHandler {
	return &questionSyncHandler{
		repo:       repo,
		versioning: versioning,
		factory:    factory,
		normalizer: normalizer,
		options:    options,
		logger:     logger.With("component", "question_sync"),
	}
}

func (h *questionSyncHandler) SyncQuestions(ctx context.Context, section *models.Section, incoming []QuestionInput, template *models.Template) (SyncOutcome, error) {
	inUse, err := isTemplateInUse(ctx, h.repo, template.Name, template.Version)
	if err != nil {
		return SyncOutcome{}, err
	}
	return h.syncQuestions(ctx, section, incoming, inUse)
}

func (h *questionSyncHandler) syncQuestions(ctx context.Context, section *models.Section, incoming []QuestionInput, inUse bool) (SyncOutcome, error) {
	incomingByName := make(map[string]QuestionInput, len(incoming))
	for _, input := range incoming {
		incomingByName[input.Name] = input
	}
	if err := h.removeQuestionsNotInIncoming(ctx, section, incomingByName, inUse); err != nil {
		return SyncOutcome{}, err
	}

	// the delete phase compacts section.Questions in place, so pointers into
	// the slice are only taken afterwards
	existingByName := make(map[string]*models.Question, len(section.Questions))
	for i := range section.Questions {
		existingByName[section.Questions[i].Name] = &section.Questions[i]
	}

	for _, input := range incoming {
		outcome, err := h.processQuestion(ctx, input, section, existingByName, inUse)
		if err != nil {
			return SyncOutcome{}, err
		}
		if outcome.Forked() {
			return outcome, nil
		}
	}

	return SyncOutcome{}, nil
}

func (h *questionSyncHandler) removeQuestionsNotInIncoming(ctx context.Context, section *models.Section, incomingByName map[string]QuestionInput, inUse bool) error {
	kept := section.Questions[:0]
	for i := range section.Questions {
		question := section.Questions[i]
		if _, present := incomingByName[question.Name]; present {
			kept = append(kept, question)
			continue
		}
		if inUse {
			return NewInvariantViolation("question_removal_in_use",
				"cannot remove question: template is in use, version the template first")
		}
		if err := h.repo.Questions().Deactivate(ctx, question.Name, question.Version); err != nil {
			return err
		}
	}
	section.Questions = kept
	return nil
}

func (h *questionSyncHandler) processQuestion(ctx context.Context, input QuestionInput, section *models.Section, existingByName map[string]*models.Question, inUse bool) (SyncOutcome, error) {
	existing, matched := existingByName[input.Name]
	if !matched {
		if err := h.createNewQuestion(ctx, input, section, inUse); err != nil {
			return SyncOutcome{}, err
		}
		// re-resolve: createNewQuestion appended to section.Questions
		existing = &section.Questions[len(section.Questions)-1]
		existingByName[input.Name] = existing
	}

	if hasQuestionChanged(existing, input) && inUse {
		_, err := forkQuestionWithInput(ctx, h.repo, h.versioning, h.normalizer, h.factory, existing, input, section)
		if err != nil {
			return SyncOutcome{}, fmt.Errorf("failed to fork question %s: %w", input.Name, err)
		}
		h.logger.InfoContext(ctx, "question forked for field change",
			"question", input.Name, "from_version", existing.Version)
		return SyncOutcome{QuestionForked: true}, nil
	}

	applyQuestionInput(existing, input)
	if err := h.repo.Questions().Update(ctx, existing); err != nil {
		return SyncOutcome{}, err
	}

	// Fork signals from the option level propagate upward unchanged.
	optionOutcome, err := h.options.syncOptions(ctx, existing, input.Options, section, inUse)
	if err != nil {
		return SyncOutcome{}, err
	}
	return SyncOutcome{
		ForkedTemplate: optionOutcome.ForkedTemplate,
		QuestionForked: optionOutcome.QuestionForked,
	}, nil
}

// createNewQuestion rejects additions on in-use templates: unlike options,
// new questions never auto-fork, the caller must fork the template first.
func (h *questionSyncHandler) createNewQuestion(ctx context.Context, input QuestionInput, section *models.Section, inUse bool) error {
	if inUse {
		return NewInvariantViolation("question_addition_in_use",
			"cannot add new question: template is in use, version the template first")
	}

	newQuestion := h.factory.CreateQuestion(input, section.ID)
	if err := h.repo.Questions().Create(ctx, newQuestion); err != nil {
		return err
	}
	section.Questions = append(section.Questions, *newQuestion)
	return nil
}
