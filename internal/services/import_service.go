package services

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/talentflow/questionnaire-service/internal/events"
	"github.com/talentflow/questionnaire-service/internal/models"
	"github.com/talentflow/questionnaire-service/internal/repositories"
	"github.com/talentflow/questionnaire-service/internal/utils"
)

// ImportRequest carries the import context selected in the caller's UI. The
// sheet itself should only hold section/question/option content; sheet-level
// values are a fallback for older files that embed the context.
type ImportRequest struct {
	Scope              models.ImportScope `json:"scope"`
	TemplateName       string             `json:"template_name"`
	TemplateType       string             `json:"template_type"`
	TemplateVersion    *int               `json:"template_version"`
	Title              string             `json:"title"`
	Description        string             `json:"description"`
	TargetSectionOrder *int               `json:"target_section_order"`
}

// TemplateImportService turns an XLSX import sheet into template content.
// Validate is a dry run; Import persists through the same machinery every
// other edit goes through, so an import against an in-use template forks a
// new version instead of mutating the frozen one.
type TemplateImportService interface {
	ValidateImport(ctx context.Context, reader io.Reader, request ImportRequest) (*models.ImportValidationResult, error)
	ImportTemplate(ctx context.Context, reader io.Reader, request ImportRequest) (*models.ImportResult, error)
}

type templateImportService struct {
	repo         repositories.Repository
	factory      EntityFactory
	normalizer   OptionNameNormalizer
	orchestrator TemplateOrchestrator
	sections     SectionSyncHandler
	inputs       InputValidationService
	publisher    events.EventPublisher
	logger       utils.Logger
}

func NewTemplateImportService(
	repo repositories.Repository,
	factory EntityFactory,
	normalizer OptionNameNormalizer,
	orchestrator TemplateOrchestrator,
	sections SectionSyncHandler,
	inputs InputValidationService,
	publisher events.EventPublisher,
	logger utils.Logger,
) TemplateImportService {
	return &templateImportService{
		repo:         repo,
		factory:      factory,
		normalizer:   normalizer,
		orchestrator: orchestrator,
		sections:     sections,
		inputs:       inputs,
		publisher:    publisher,
		logger:       logger.With("component", "template_import"),
	}
}

func (s *templateImportService) ValidateImport(ctx context.Context, reader io.Reader, request ImportRequest) (*models.ImportValidationResult, error) {
	rows, err := readImportRows(reader)
	if err != nil {
		return nil, err
	}
	applyOverrides(rows, request)
	applyCarryForward(rows)
	return s.validateRows(ctx, rows, request)
}

func (s *templateImportService) ImportTemplate(ctx context.Context, reader io.Reader, request ImportRequest) (*models.ImportResult, error) {
	rows, err := readImportRows(reader)
	if err != nil {
		return nil, err
	}
	applyOverrides(rows, request)
	applyCarryForward(rows)

	validation, err := s.validateRows(ctx, rows, request)
	if err != nil {
		return nil, err
	}
	if !validation.IsValid || validation.Scope == "" || validation.TemplateName == "" || validation.TemplateType == "" {
		return nil, fmt.Errorf("%w: %s", ErrValidationFailed, joinImportErrors(validation.Errors))
	}

	if validation.Scope == models.ImportCreateTemplate {
		return s.executeCreate(ctx, rows, request, validation)
	}
	return s.executeAppend(ctx, rows, request, validation)
}

func (s *templateImportService) executeCreate(ctx context.Context, rows []importRow, request ImportRequest, validation *models.ImportValidationResult) (*models.ImportResult, error) {
	title := strings.TrimSpace(request.Title)
	if title == "" {
		title = firstNonEmpty(rows, func(r *importRow) string { return r.Title })
	}
	description := strings.TrimSpace(request.Description)
	if description == "" {
		description = firstNonEmpty(rows, func(r *importRow) string { return r.Description })
	}

	input := TemplateInput{
		Name:         validation.TemplateName,
		Version:      1,
		TemplateType: validation.TemplateType,
		Title:        title,
	}
	if description != "" {
		input.Description = &description
	}

	var messages []models.ImportValidationError
	applyRowsToInput(&input, models.ImportCreateTemplate, rows, nil, &messages)

	if err := s.inputs.ValidateTemplateInput(ctx, input); err != nil {
		return nil, err
	}

	template, err := s.createTemplateGraph(ctx, input)
	if err != nil {
		return nil, err
	}

	result := &models.ImportResult{
		TemplateName:       template.Name,
		TemplateVersion:    template.Version,
		TemplateType:       string(template.TemplateType),
		Scope:              models.ImportCreateTemplate,
		CreatedNewTemplate: true,
		Messages:           messages,
	}
	fillCounts(result, template)
	s.publishImported(ctx, result)
	return result, nil
}

func (s *templateImportService) executeAppend(ctx context.Context, rows []importRow, request ImportRequest, validation *models.ImportValidationResult) (*models.ImportResult, error) {
	var target *models.Template
	var err error
	if request.TemplateVersion != nil && *request.TemplateVersion > 0 {
		target, err = s.repo.Templates().GetByKey(ctx, validation.TemplateName, *request.TemplateVersion)
	} else {
		target, err = s.repo.Templates().GetLatest(ctx, validation.TemplateName)
	}
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to load template %s: %w", validation.TemplateName, err)
	}

	merged := TemplateInputFromModel(target)
	var messages []models.ImportValidationError
	applyRowsToInput(&merged, validation.Scope, rows, request.TargetSectionOrder, &messages)

	inUse, err := isTemplateInUse(ctx, s.repo, target.Name, target.Version)
	if err != nil {
		return nil, err
	}

	result := &models.ImportResult{
		Scope:    validation.Scope,
		Messages: messages,
	}

	if inUse {
		forked, err := s.orchestrator.VersionTemplate(ctx, target, merged)
		if err != nil {
			return nil, err
		}
		result.CreatedNewVersion = true
		result.TemplateName = forked.Name
		result.TemplateVersion = forked.Version
		result.TemplateType = string(forked.TemplateType)
		fillCounts(result, forked)
	} else {
		if _, err := s.sections.SyncSections(ctx, target, merged.Sections); err != nil {
			return nil, err
		}
		result.TemplateName = target.Name
		result.TemplateVersion = target.Version
		result.TemplateType = string(target.TemplateType)
		fillCounts(result, target)
	}

	s.publishImported(ctx, result)
	return result, nil
}

func (s *templateImportService) createTemplateGraph(ctx context.Context, input TemplateInput) (*models.Template, error) {
	template := s.factory.CreateTemplate(input, 1)
	if err := s.repo.Templates().Create(ctx, template); err != nil {
		return nil, fmt.Errorf("failed to create template %s: %w", template.Name, err)
	}

	for _, sectionInput := range input.Sections {
		section := s.factory.CreateSection(sectionInput, template.Name, template.Version)
		if err := s.repo.Sections().Create(ctx, section); err != nil {
			return nil, err
		}
		for _, questionInput := range sectionInput.Questions {
			question := s.factory.CreateQuestion(questionInput, section.ID)
			if err := s.repo.Questions().Create(ctx, question); err != nil {
				return nil, err
			}
			for _, optionInput := range questionInput.Options {
				normalized := s.normalizer.NormalizeOptionName(optionInput, question)
				uniqueName, err := s.normalizer.EnsureUniqueOptionNameV1(ctx, normalized)
				if err != nil {
					return nil, err
				}
				option := s.factory.CreateOption(optionInputWithName(optionInput, uniqueName), question)
				if err := s.repo.Options().Create(ctx, option); err != nil {
					return nil, err
				}
				question.Options = append(question.Options, *option)
			}
			section.Questions = append(section.Questions, *question)
		}
		template.Sections = append(template.Sections, *section)
	}
	return template, nil
}

func (s *templateImportService) publishImported(ctx context.Context, result *models.ImportResult) {
	event := events.NewQuestionnaireEvent(events.EventTemplateImported, events.TemplateImportedEvent{
		TemplateName:    result.TemplateName,
		TemplateVersion: result.TemplateVersion,
		Scope:           string(result.Scope),
		SectionCount:    result.SectionsCount,
		QuestionCount:   result.QuestionsCount,
		ImportedAt:      time.Now().UTC(),
	})
	if err := s.publisher.PublishQuestionnaireEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish template imported event",
			"template", result.TemplateName, "error", err)
	}
}

func fillCounts(result *models.ImportResult, template *models.Template) {
	result.SectionsCount = len(template.Sections)
	for i := range template.Sections {
		result.QuestionsCount += len(template.Sections[i].Questions)
		for j := range template.Sections[i].Questions {
			result.OptionsCount += len(template.Sections[i].Questions[j].Options)
		}
	}
}

// applyRowsToInput folds the sheet rows into a template input graph. For
// AppendToSection only rows belonging to the selected section are imported;
// rows naming another section are ignored, not remapped.
func applyRowsToInput(target *TemplateInput, scope models.ImportScope, rows []importRow, targetSectionOrder *int, messages *[]models.ImportValidationError) {
	var selectedOrder int
	if scope == models.ImportAppendToSection {
		if targetSectionOrder != nil {
			selectedOrder = *targetSectionOrder
		} else if v, ok := parsePositiveInt(firstNonEmpty(rows, func(r *importRow) string { return r.TargetSectionOrder })); ok {
			selectedOrder = v
		}
	}

	for i := range rows {
		row := &rows[i]

		var sectionOrder int
		if scope == models.ImportAppendToSection && selectedOrder > 0 {
			rowOrder, ok := parsePositiveInt(row.SectionOrder)
			if !ok {
				rowOrder = selectedOrder
			}
			if rowOrder != selectedOrder {
				continue
			}
			sectionOrder = selectedOrder
		} else {
			var ok bool
			sectionOrder, ok = parsePositiveInt(row.SectionOrder)
			if !ok {
				continue
			}
		}

		questionOrder, ok := parsePositiveInt(row.QuestionOrder)
		if !ok {
			continue
		}

		section := findOrCreateSection(target, sectionOrder, row, scope)
		question := resolveQuestion(target, section, sectionOrder, questionOrder, row, messages)
		if question == nil {
			continue
		}

		if !parseQuestionType(question.QuestionType).IsOptionBased() {
			continue
		}
		optionOrder, ok := parsePositiveInt(row.OptionOrder)
		if !ok {
			continue
		}
		applyOptionRow(question, optionOrder, sectionOrder, questionOrder, row, messages)
	}

	sortInputGraph(target)
}

func findOrCreateSection(target *TemplateInput, order int, row *importRow, scope models.ImportScope) *SectionInput {
	for i := range target.Sections {
		if target.Sections[i].Order == order {
			if row.SectionTitle != "" && scope != models.ImportAppendToSection {
				target.Sections[i].Title = strings.TrimSpace(row.SectionTitle)
			}
			return &target.Sections[i]
		}
	}

	title := strings.TrimSpace(row.SectionTitle)
	if title == "" {
		title = fmt.Sprintf("Section %d", order)
	}
	target.Sections = append(target.Sections, SectionInput{
		Order: order,
		Title: title,
	})
	return &target.Sections[len(target.Sections)-1]
}

// resolveQuestion finds the question by order within the section, creating it
// on first sight. Rows whose prompt duplicates another question in the same
// section are skipped with a warning.
func resolveQuestion(target *TemplateInput, section *SectionInput, sectionOrder, questionOrder int, row *importRow, messages *[]models.ImportValidationError) *QuestionInput {
	prompt := strings.TrimSpace(row.QuestionTitle)

	var question *QuestionInput
	for i := range section.Questions {
		if section.Questions[i].Order == questionOrder {
			question = &section.Questions[i]
			break
		}
	}

	if question == nil {
		if prompt != "" && promptTakenBy(section, prompt, 0) {
			warn(messages, row.RowNumber, "QuestionTitle",
				fmt.Sprintf("skipped duplicate question prompt in section %d: %q", sectionOrder, prompt))
			return nil
		}
		// sheet type names are free-form ("single_choice"), inputs carry the
		// canonical spelling
		section.Questions = append(section.Questions, QuestionInput{
			Name:         generateQuestionName(target.Name, target.Version, sectionOrder, questionOrder, prompt),
			Version:      1,
			Order:        questionOrder,
			QuestionType: string(parseQuestionType(row.QuestionType)),
			QuestionText: prompt,
			IsRequired:   parseImportBool(row.IsRequired),
		})
		question = &section.Questions[len(section.Questions)-1]
	} else {
		if prompt != "" && promptTakenBy(section, prompt, questionOrder) {
			warn(messages, row.RowNumber, "QuestionTitle",
				fmt.Sprintf("skipped row: question prompt duplicates another question in section %d: %q", sectionOrder, prompt))
			return nil
		}
		if row.QuestionType != "" {
			question.QuestionType = string(parseQuestionType(row.QuestionType))
		}
		question.IsRequired = parseImportBool(row.IsRequired)
		if prompt != "" {
			question.QuestionText = prompt
		}
	}

	if key := strings.TrimSpace(row.TraitKey); key != "" {
		question.TraitKey = &key
	}
	if ws, ok := parseFloat(row.Ws); ok {
		question.Ws = &ws
	}
	return question
}

func applyOptionRow(question *QuestionInput, optionOrder, sectionOrder, questionOrder int, row *importRow, messages *[]models.ImportValidationError) {
	var option *OptionInput
	for i := range question.Options {
		if question.Options[i].Order == optionOrder {
			option = &question.Options[i]
			break
		}
	}

	if option == nil {
		label := strings.TrimSpace(row.OptionLabel)
		if label != "" {
			for i := range question.Options {
				if strings.EqualFold(strings.TrimSpace(question.Options[i].Label), label) {
					warn(messages, row.RowNumber, "OptionLabel",
						fmt.Sprintf("skipped duplicate option label for section %d, question %d: %q", sectionOrder, questionOrder, label))
					return
				}
			}
		}
		question.Options = append(question.Options, OptionInput{
			Name:    fmt.Sprintf("option_%d", optionOrder),
			Version: 1,
			Order:   optionOrder,
		})
		option = &question.Options[len(question.Options)-1]
	}

	if row.OptionLabel != "" {
		option.Label = strings.TrimSpace(row.OptionLabel)
	}
	option.IsCorrect = parseNullableBool(row.IsCorrect)
	if score, ok := parseFloat(row.Score); ok {
		option.Score = &score
	}
	if wa, ok := parseFloat(row.Wa); ok {
		option.Wa = &wa
	}
}

func promptTakenBy(section *SectionInput, prompt string, exceptOrder int) bool {
	for i := range section.Questions {
		q := &section.Questions[i]
		if q.Order == exceptOrder {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(q.QuestionText), prompt) {
			return true
		}
	}
	return false
}

// generateQuestionName derives a stable lineage name from the question's
// position, so re-importing the same sheet maps onto the same lineages.
func generateQuestionName(templateName string, templateVersion, sectionOrder, questionOrder int, prompt string) string {
	return fmt.Sprintf("%s_v%d_s%d_q%d_%s",
		Slugify(templateName), templateVersion, sectionOrder, questionOrder, Slugify(prompt))
}

func sortInputGraph(target *TemplateInput) {
	sort.Slice(target.Sections, func(i, j int) bool {
		return target.Sections[i].Order < target.Sections[j].Order
	})
	for i := range target.Sections {
		section := &target.Sections[i]
		sort.Slice(section.Questions, func(a, b int) bool {
			return section.Questions[a].Order < section.Questions[b].Order
		})
		for j := range section.Questions {
			question := &section.Questions[j]
			sort.Slice(question.Options, func(a, b int) bool {
				return question.Options[a].Order < question.Options[b].Order
			})
		}
	}
}

// TemplateInputFromModel rebuilds an edit payload from a stored template, the
// starting point for partial edits that must not read as removals.
func TemplateInputFromModel(template *models.Template) TemplateInput {
	input := TemplateInput{
		Name:             template.Name,
		Version:          template.Version,
		TemplateType:     string(template.TemplateType),
		Title:            template.Title,
		Description:      template.Description,
		TimeLimitSeconds: template.TimeLimitSeconds,
	}
	for i := range template.Sections {
		section := &template.Sections[i]
		sectionInput := SectionInput{
			ID:          section.ID,
			Order:       section.Order,
			Title:       section.Title,
			Description: section.Description,
		}
		for j := range section.Questions {
			question := &section.Questions[j]
			options := make([]OptionInput, 0, len(question.Options))
			for k := range question.Options {
				options = append(options, optionInputFromModel(&question.Options[k]))
			}
			sectionInput.Questions = append(sectionInput.Questions, questionInputFromModel(question, options))
		}
		input.Sections = append(input.Sections, sectionInput)
	}
	return input
}

func firstNonEmpty(rows []importRow, pick func(*importRow) string) string {
	for i := range rows {
		if v := strings.TrimSpace(pick(&rows[i])); v != "" {
			return v
		}
	}
	return ""
}

func warn(messages *[]models.ImportValidationError, row int, column, message string) {
	if messages == nil {
		return
	}
	*messages = append(*messages, models.ImportValidationError{
		Row:      row,
		Column:   column,
		Message:  message,
		Severity: models.ImportSeverityWarning,
	})
}

func joinImportErrors(errs []models.ImportValidationError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		if e.IsError() {
			parts = append(parts, fmt.Sprintf("row %d: %s", e.Row, e.Message))
		}
	}
	if len(parts) == 0 {
		return "import file is invalid"
	}
	return strings.Join(parts, "; ")
}
