package services

import (
	"context"
	"strings"

	"github.com/talentflow/questionnaire-service/internal/models"
	"github.com/talentflow/questionnaire-service/internal/repositories"
	"github.com/talentflow/questionnaire-service/internal/utils"
)

// SectionSyncHandler is the entry point of the sync cascade. Sections match
// by Order, not by ID: a reordered payload reads as removals plus additions.
type SectionSyncHandler interface {
	// SyncSections reconciles the template's stored sections against incoming.
	// The first fork anywhere in the cascade stops the pass; callers re-invoke
	// until Forked() is false.
	SyncSections(ctx context.Context, template *models.Template, incoming []SectionInput) (SyncOutcome, error)
}

type sectionSyncHandler struct {
	repo      repositories.Repository
	factory   EntityFactory
	questions QuestionSyncHandler
	logger    utils.Logger
}

func NewSectionSyncHandler(
	repo repositories.Repository,
	factory EntityFactory,
	questions QuestionSyncHandler,
	logger utils.Logger,
) SectionSyncHandler {
	return &sectionSyncHandler{
		repo:      repo,
		factory:   factory,
		questions: questions,
		logger:    logger.With("component", "section_sync"),
	}
}

func (h *sectionSyncHandler) SyncSections(ctx context.Context, template *models.Template, incoming []SectionInput) (SyncOutcome, error) {
	inUse, err := isTemplateInUse(ctx, h.repo, template.Name, template.Version)
	if err != nil {
		return SyncOutcome{}, err
	}
	return h.syncSections(ctx, template, incoming, inUse)
}

func (h *sectionSyncHandler) syncSections(ctx context.Context, template *models.Template, incoming []SectionInput, inUse bool) (SyncOutcome, error) {
	incomingByOrder := make(map[int]SectionInput, len(incoming))
	for _, input := range incoming {
		incomingByOrder[input.Order] = input
	}
	if err := h.removeSectionsNotInIncoming(ctx, template, incomingByOrder, inUse); err != nil {
		return SyncOutcome{}, err
	}

	// the delete phase compacts template.Sections in place, so pointers into
	// the slice are only taken afterwards
	existingByOrder := make(map[int]*models.Section, len(template.Sections))
	for i := range template.Sections {
		existingByOrder[template.Sections[i].Order] = &template.Sections[i]
	}

	for _, input := range incoming {
		outcome, err := h.processSection(ctx, input, template, existingByOrder, inUse)
		if err != nil {
			return SyncOutcome{}, err
		}
		if outcome.Forked() {
			return outcome, nil
		}
	}

	return SyncOutcome{}, nil
}

func (h *sectionSyncHandler) removeSectionsNotInIncoming(ctx context.Context, template *models.Template, incomingByOrder map[int]SectionInput, inUse bool) error {
	kept := template.Sections[:0]
	for i := range template.Sections {
		section := template.Sections[i]
		if _, present := incomingByOrder[section.Order]; present {
			kept = append(kept, section)
			continue
		}
		if inUse {
			return NewInvariantViolation("section_removal_in_use",
				"cannot remove section: template is in use, version the template first")
		}
		for j := range section.Questions {
			question := &section.Questions[j]
			if err := h.repo.Questions().Deactivate(ctx, question.Name, question.Version); err != nil {
				return err
			}
		}
		if err := h.repo.Sections().Delete(ctx, section.ID); err != nil {
			return err
		}
	}
	template.Sections = kept
	return nil
}

func (h *sectionSyncHandler) processSection(ctx context.Context, input SectionInput, template *models.Template, existingByOrder map[int]*models.Section, inUse bool) (SyncOutcome, error) {
	existing, matched := existingByOrder[input.Order]
	if !matched {
		if inUse {
			return SyncOutcome{}, NewInvariantViolation("section_addition_in_use",
				"cannot add new section: template is in use, version the template first")
		}
		created := h.factory.CreateSection(input, template.Name, template.Version)
		if err := h.repo.Sections().Create(ctx, created); err != nil {
			return SyncOutcome{}, err
		}
		template.Sections = append(template.Sections, *created)
		existing = &template.Sections[len(template.Sections)-1]
		existingByOrder[input.Order] = existing
	} else if hasSectionChanged(existing, input) {
		if inUse {
			return SyncOutcome{}, NewInvariantViolation("section_edit_in_use",
				"cannot edit section fields: template is in use, version the template first")
		}
		existing.Title = strings.TrimSpace(input.Title)
		existing.Description = input.Description
		if err := h.repo.Sections().Update(ctx, existing); err != nil {
			return SyncOutcome{}, err
		}
	}

	return h.questions.syncQuestions(ctx, existing, input.Questions, inUse)
}

// hasSectionChanged compares the editable section fields; a textually
// identical payload is not an edit, so it passes the in-use gate.
func hasSectionChanged(section *models.Section, input SectionInput) bool {
	if strings.TrimSpace(input.Title) != section.Title {
		return true
	}
	return !stringPtrEqual(trimPtr(input.Description), trimPtr(section.Description))
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	return &trimmed
}
