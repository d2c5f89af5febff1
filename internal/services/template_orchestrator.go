package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/talentflow/questionnaire-service/internal/events"
	"github.com/talentflow/questionnaire-service/internal/models"
	"github.com/talentflow/questionnaire-service/internal/repositories"
	"github.com/talentflow/questionnaire-service/internal/utils"
)

// TemplateOrchestrator builds the next version of a template lineage. The
// sync cascade refuses structural edits on an in-use template; callers then
// fork through one of these entry points and re-apply the edit against the
// fresh version. Old versions are never touched, submissions pinned to them
// keep resolving.
type TemplateOrchestrator interface {
	// VersionTemplate copies the whole template to the next free version and
	// applies the edit payload in the same pass. Idempotent: when the next
	// version already exists it is returned as-is, so a retried fork does not
	// stack versions.
	VersionTemplate(ctx context.Context, existing *models.Template, input TemplateInput) (*models.Template, error)

	// VersionTemplateForQuestion copies the whole template to the next free
	// version, carrying every question and option over unchanged except the
	// edited question, which absorbs the input. Options named in the input
	// but absent from the stored question are created fresh on the copy.
	VersionTemplateForQuestion(ctx context.Context, template *models.Template, edited *models.Question, input QuestionInput) (*models.Template, error)
}

type templateOrchestrator struct {
	repo       repositories.Repository
	versioning VersioningService
	factory    EntityFactory
	normalizer OptionNameNormalizer
	publisher  events.EventPublisher
	logger     utils.Logger
}

func NewTemplateOrchestrator(
	repo repositories.Repository,
	versioning VersioningService,
	factory EntityFactory,
	normalizer OptionNameNormalizer,
	publisher events.EventPublisher,
	logger utils.Logger,
) TemplateOrchestrator {
	return &templateOrchestrator{
		repo:       repo,
		versioning: versioning,
		factory:    factory,
		normalizer: normalizer,
		publisher:  publisher,
		logger:     logger.With("component", "template_orchestrator"),
	}
}

func (o *templateOrchestrator) VersionTemplate(ctx context.Context, existing *models.Template, input TemplateInput) (*models.Template, error) {
	next, err := o.nextVersion(ctx, existing)
	if err != nil {
		return nil, err
	}
	if already, err := o.existingVersion(ctx, existing.Name, next); err != nil {
		return nil, err
	} else if already != nil {
		return already, nil
	}

	input.Name = existing.Name
	forked := o.factory.CreateTemplate(input, next)
	if err := o.repo.Templates().Create(ctx, forked); err != nil {
		return nil, fmt.Errorf("failed to create template %s v%d: %w", forked.Name, forked.Version, err)
	}

	oldByOrder := make(map[int]*models.Section, len(existing.Sections))
	for i := range existing.Sections {
		oldByOrder[existing.Sections[i].Order] = &existing.Sections[i]
	}

	for _, sectionInput := range input.Sections {
		sectionInput.ID = uuid.Nil
		newSection := o.factory.CreateSection(sectionInput, forked.Name, forked.Version)
		if err := o.repo.Sections().Create(ctx, newSection); err != nil {
			return nil, err
		}

		oldSection := oldByOrder[sectionInput.Order]
		for _, questionInput := range sectionInput.Questions {
			if err := o.versionOrCreateQuestion(ctx, questionInput, oldSection, newSection); err != nil {
				return nil, err
			}
		}
		forked.Sections = append(forked.Sections, *newSection)
	}

	o.publishForked(ctx, forked.Name, existing.Version, forked.Version, "template_edit")
	return forked, nil
}

// versionOrCreateQuestion carries one question input onto the new section:
// a name match in the old section forks the stored question, anything else
// starts a fresh lineage at version 1.
func (o *templateOrchestrator) versionOrCreateQuestion(ctx context.Context, input QuestionInput, oldSection, newSection *models.Section) error {
	var old *models.Question
	if oldSection != nil {
		for i := range oldSection.Questions {
			if oldSection.Questions[i].Name == input.Name {
				old = &oldSection.Questions[i]
				break
			}
		}
	}

	if old == nil {
		created := o.factory.CreateQuestion(input, newSection.ID)
		if err := o.repo.Questions().Create(ctx, created); err != nil {
			return err
		}
		for _, optInput := range input.Options {
			if err := o.createFreshOption(ctx, optInput, created); err != nil {
				return err
			}
		}
		newSection.Questions = append(newSection.Questions, *created)
		return nil
	}

	forked, err := o.versioning.VersionQuestion(ctx, old, newSection.ID)
	if err != nil {
		return err
	}
	applyQuestionInput(forked, input)
	if err := o.repo.Questions().Create(ctx, forked); err != nil {
		return err
	}

	stored := resolveLegacyOptionAliases(old)
	for _, optInput := range input.Options {
		normalized := o.normalizer.NormalizeOptionName(optInput, forked)

		match, ok := lookupOption(stored, optInput.Name)
		if !ok {
			match, ok = lookupOption(stored, normalized)
		}
		if ok {
			newOption, err := o.versioning.VersionOption(ctx, match, forked.Name, forked.Version)
			if err != nil {
				return err
			}
			applyOptionInput(newOption, optInput)
			if err := o.repo.Options().Create(ctx, newOption); err != nil {
				return err
			}
			forked.Options = append(forked.Options, *newOption)
			continue
		}

		if err := o.createFreshOption(ctx, optInput, forked); err != nil {
			return err
		}
	}

	newSection.Questions = append(newSection.Questions, *forked)
	return nil
}

func (o *templateOrchestrator) VersionTemplateForQuestion(ctx context.Context, template *models.Template, edited *models.Question, input QuestionInput) (*models.Template, error) {
	next, err := o.nextVersion(ctx, template)
	if err != nil {
		return nil, err
	}
	if already, err := o.existingVersion(ctx, template.Name, next); err != nil {
		return nil, err
	} else if already != nil {
		return already, nil
	}

	forked := o.factory.CreateTemplateFromExisting(template, next)
	if err := o.repo.Templates().Create(ctx, forked); err != nil {
		return nil, fmt.Errorf("failed to create template %s v%d: %w", forked.Name, forked.Version, err)
	}

	for i := range template.Sections {
		oldSection := &template.Sections[i]
		newSection := o.copySection(oldSection, forked)
		if err := o.repo.Sections().Create(ctx, newSection); err != nil {
			return nil, err
		}

		for j := range oldSection.Questions {
			question := &oldSection.Questions[j]
			isEdited := question.Name == edited.Name
			if err := o.carryQuestionOver(ctx, question, newSection, isEdited, input); err != nil {
				return nil, err
			}
		}
		forked.Sections = append(forked.Sections, *newSection)
	}

	o.publishForked(ctx, forked.Name, template.Version, forked.Version, "question_edit")
	return forked, nil
}

// carryQuestionOver forks one stored question onto the new section. For the
// edited question the input overrides the carried fields and may introduce
// options the stored row never had.
func (o *templateOrchestrator) carryQuestionOver(ctx context.Context, question *models.Question, newSection *models.Section, isEdited bool, input QuestionInput) error {
	forked, err := o.versioning.VersionQuestion(ctx, question, newSection.ID)
	if err != nil {
		return err
	}
	if isEdited {
		applyQuestionInput(forked, input)
	}
	if err := o.repo.Questions().Create(ctx, forked); err != nil {
		return err
	}

	stored := resolveLegacyOptionAliases(question)
	overrides := map[string]OptionInput{}
	matchedInputs := map[int]bool{}
	if isEdited {
		for idx, optInput := range input.Options {
			match, ok := lookupOption(stored, optInput.Name)
			if !ok {
				match, ok = lookupOption(stored, o.normalizer.NormalizeOptionName(optInput, forked))
			}
			if ok {
				overrides[match.Name] = optInput
				matchedInputs[idx] = true
			}
		}
	}

	for k := range question.Options {
		option := &question.Options[k]
		newOption, err := o.versioning.VersionOption(ctx, option, forked.Name, forked.Version)
		if err != nil {
			return err
		}
		if override, ok := overrides[option.Name]; ok {
			applyOptionInput(newOption, override)
		}
		if err := o.repo.Options().Create(ctx, newOption); err != nil {
			return err
		}
		forked.Options = append(forked.Options, *newOption)
	}

	if isEdited {
		for idx, optInput := range input.Options {
			if matchedInputs[idx] {
				continue
			}
			if err := o.createFreshOption(ctx, optInput, forked); err != nil {
				return err
			}
		}
	}

	newSection.Questions = append(newSection.Questions, *forked)
	return nil
}

func (o *templateOrchestrator) createFreshOption(ctx context.Context, input OptionInput, question *models.Question) error {
	normalized := o.normalizer.NormalizeOptionName(input, question)
	uniqueName, err := o.normalizer.EnsureUniqueOptionNameV1(ctx, normalized)
	if err != nil {
		return err
	}
	option := o.factory.CreateOption(optionInputWithName(input, uniqueName), question)
	if err := o.repo.Options().Create(ctx, option); err != nil {
		return err
	}
	question.Options = append(question.Options, *option)
	return nil
}

func (o *templateOrchestrator) copySection(source *models.Section, target *models.Template) *models.Section {
	now := time.Now().UTC()
	return &models.Section{
		ID:              uuid.New(),
		TemplateName:    target.Name,
		TemplateVersion: target.Version,
		Order:           source.Order,
		Title:           source.Title,
		Description:     source.Description,
		CreatedAt:       now,
		UpdatedAt:       now,
		Questions:       []models.Question{},
	}
}

func (o *templateOrchestrator) nextVersion(ctx context.Context, template *models.Template) (int, error) {
	latest, err := o.repo.Templates().LatestVersion(ctx, template.Name)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve latest version of %s: %w", template.Name, err)
	}
	return nextVersionAfter(latest, template.Version), nil
}

func (o *templateOrchestrator) existingVersion(ctx context.Context, name string, version int) (*models.Template, error) {
	template, err := o.repo.Templates().GetByKey(ctx, name, version)
	if err == nil {
		o.logger.InfoContext(ctx, "template version already exists, reusing",
			"template", name, "version", version)
		return template, nil
	}
	if repositories.IsNotFound(err) {
		return nil, nil
	}
	return nil, err
}

// publishForked is best-effort: a lost event never rolls back a fork.
func (o *templateOrchestrator) publishForked(ctx context.Context, name string, from, to int, reason string) {
	event := events.NewQuestionnaireEvent(events.EventTemplateForked, events.TemplateForkedEvent{
		TemplateName: name,
		FromVersion:  from,
		ToVersion:    to,
		Reason:       reason,
		ForkedAt:     time.Now().UTC(),
	})
	if err := o.publisher.PublishQuestionnaireEvent(ctx, event); err != nil {
		o.logger.WarnContext(ctx, "failed to publish template forked event",
			"template", name, "to_version", to, "error", err)
	}
}
