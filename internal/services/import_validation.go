package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/talentflow/questionnaire-service/internal/models"
	"github.com/talentflow/questionnaire-service/internal/repositories"
)

type sectionQuestionKey struct {
	SectionOrder  int
	QuestionOrder int
}

// validateRows dry-runs the prepared sheet rows against the request context
// and the stored template state. Warnings surface UX hints (rows that will
// be skipped); only Error severity blocks the import.
func (s *templateImportService) validateRows(ctx context.Context, rows []importRow, request ImportRequest) (*models.ImportValidationResult, error) {
	result := &models.ImportValidationResult{TotalRows: len(rows)}

	if len(rows) == 0 {
		result.Errors = append(result.Errors, models.ImportValidationError{
			Row:      1,
			Message:  "the import sheet contains no data rows",
			Severity: models.ImportSeverityError,
		})
		return result, nil
	}
	firstRow := rows[0].RowNumber

	templateName := strings.TrimSpace(request.TemplateName)
	if templateName == "" {
		templateName = firstNonEmpty(rows, func(r *importRow) string { return r.TemplateName })
	}
	templateType := strings.TrimSpace(request.TemplateType)
	if templateType == "" {
		templateType = firstNonEmpty(rows, func(r *importRow) string { return r.TemplateType })
	}
	scopeRaw := string(request.Scope)
	if scopeRaw == "" {
		scopeRaw = firstNonEmpty(rows, func(r *importRow) string { return r.Scope })
	}

	scope, scopeOK := parseImportScope(scopeRaw)
	if !scopeOK {
		result.Errors = append(result.Errors, errRow(firstRow, "Scope",
			"Scope is required and must be CreateTemplate, AppendToTemplate, or AppendToSection"))
	}
	if templateName == "" {
		result.Errors = append(result.Errors, errRow(firstRow, "TemplateName", "TemplateName is required"))
	}

	targetSectionOrderRaw := firstNonEmpty(rows, func(r *importRow) string { return r.TargetSectionOrder })
	if request.TargetSectionOrder != nil {
		targetSectionOrderRaw = strconv.Itoa(*request.TargetSectionOrder)
	}

	if templateType != "" && !isValidTemplateTypeName(templateType) {
		result.Errors = append(result.Errors, errRow(firstRow, "TemplateType",
			"TemplateType must be Quiz, Personality, or Form"))
	} else if templateType == "" && scope == models.ImportCreateTemplate {
		result.Errors = append(result.Errors, errRow(firstRow, "TemplateType",
			"TemplateType is required and must be Quiz, Personality, or Form"))
	}

	isAppend := scope == models.ImportAppendToTemplate || scope == models.ImportAppendToSection

	var existingForAppend *models.Template
	if isAppend {
		if request.TemplateVersion == nil || *request.TemplateVersion <= 0 {
			result.Errors = append(result.Errors, errRow(firstRow, "TemplateVersion",
				"TemplateVersion is required for append imports"))
		} else if templateName != "" {
			var err error
			existingForAppend, err = s.repo.Templates().GetByKey(ctx, templateName, *request.TemplateVersion)
			if err != nil {
				if !repositories.IsNotFound(err) {
					return nil, fmt.Errorf("failed to load template %s v%d: %w", templateName, *request.TemplateVersion, err)
				}
				result.Errors = append(result.Errors, errRow(firstRow, "TemplateVersion",
					fmt.Sprintf("template %q v%d was not found", templateName, *request.TemplateVersion)))
			}
		}

		if existingForAppend != nil {
			if templateType == "" {
				templateType = string(existingForAppend.TemplateType)
			} else if !strings.EqualFold(templateType, string(existingForAppend.TemplateType)) {
				result.Errors = append(result.Errors, errRow(firstRow, "TemplateType",
					fmt.Sprintf("TemplateType %q does not match existing template type %q", templateType, existingForAppend.TemplateType)))
			}

			if scope == models.ImportAppendToSection {
				if targetOrder, ok := parsePositiveInt(targetSectionOrderRaw); ok {
					if !templateHasSection(existingForAppend, targetOrder) {
						result.Errors = append(result.Errors, errRow(firstRow, "TargetSectionOrder",
							fmt.Sprintf("section order %d was not found in template %q v%d", targetOrder, templateName, existingForAppend.Version)))
					}
				}
			}
		}
	}

	if scope == models.ImportAppendToSection {
		if _, ok := parsePositiveInt(targetSectionOrderRaw); !ok {
			result.Errors = append(result.Errors, errRow(firstRow, "TargetSectionOrder",
				"TargetSectionOrder is required for AppendToSection and must be a positive integer"))
		}
	}

	s.validateContentRows(rows, scope, templateType, targetSectionOrderRaw, existingForAppend, result)

	if templateName != "" {
		exists, err := s.repo.Templates().Exists(ctx, templateName)
		if err != nil {
			return nil, fmt.Errorf("failed to check template %s: %w", templateName, err)
		}
		result.TemplateExists = exists
		if exists {
			latest, err := s.repo.Templates().LatestVersion(ctx, templateName)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve latest version of %s: %w", templateName, err)
			}
			if latest > 0 {
				result.ExistingLatestVersion = &latest
				inUse, err := isTemplateInUse(ctx, s.repo, templateName, latest)
				if err != nil {
					return nil, err
				}
				result.ExistingLatestInUse = inUse
			}
			if scope == models.ImportCreateTemplate {
				result.Errors = append(result.Errors, errRow(firstRow, "TemplateName",
					fmt.Sprintf("template %q already exists, use AppendToTemplate or AppendToSection instead", templateName)))
			}
		}
	}

	result.Scope = scope
	result.TemplateName = templateName
	result.TemplateType = templateType
	result.IsValid = !hasImportErrors(result.Errors)
	return result, nil
}

// validateContentRows runs the per-row checks and fills the section /
// question / option counts.
func (s *templateImportService) validateContentRows(rows []importRow, scope models.ImportScope, templateType, targetSectionOrderRaw string, existing *models.Template, result *models.ImportValidationResult) {
	sectionOrders := map[int]bool{}
	questionKeys := map[sectionQuestionKey]bool{}
	seenSectionTitle := map[int]bool{}
	seenQuestionPrompt := map[sectionQuestionKey]string{}
	seenPromptBySection := map[int]map[string]bool{}
	existingPrompts := existingPromptsBySection(existing)

	isAppendToSection := scope == models.ImportAppendToSection
	targetOrder, targetOrderOK := parsePositiveInt(targetSectionOrderRaw)

	for i := range rows {
		row := &rows[i]

		var sectionOrder int
		if isAppendToSection {
			if !targetOrderOK {
				continue
			}
			// rows naming another section are ignored, blank means the
			// selected one
			rowOrder, hasRowOrder := parsePositiveInt(row.SectionOrder)
			if !hasRowOrder {
				rowOrder = targetOrder
			}
			if rowOrder != targetOrder {
				result.Errors = append(result.Errors, models.ImportValidationError{
					Row:      row.RowNumber,
					Column:   "SectionOrder",
					Message:  fmt.Sprintf("row will be ignored because SectionOrder=%d does not match TargetSectionOrder=%d", rowOrder, targetOrder),
					Severity: models.ImportSeverityWarning,
				})
				continue
			}
			sectionOrder = targetOrder
		} else {
			var ok bool
			sectionOrder, ok = parsePositiveInt(row.SectionOrder)
			if !ok {
				result.Errors = append(result.Errors, errRow(row.RowNumber, "SectionOrder",
					"SectionOrder is required and must be a positive integer"))
				continue
			}

			switch {
			case scope == models.ImportCreateTemplate:
				// SectionTitle is required only on the first row of a section
				if !seenSectionTitle[sectionOrder] {
					if row.SectionTitle == "" {
						result.Errors = append(result.Errors, errRow(row.RowNumber, "SectionTitle",
							"SectionTitle is required for the first row of a section"))
					} else {
						seenSectionTitle[sectionOrder] = true
					}
				}
			case scope == models.ImportAppendToTemplate && existing != nil:
				if !templateHasSection(existing, sectionOrder) && row.SectionTitle == "" {
					result.Errors = append(result.Errors, errRow(row.RowNumber, "SectionTitle",
						"SectionTitle is required when adding a new section"))
				}
			case scope == models.ImportAppendToTemplate:
				if row.SectionTitle == "" {
					result.Errors = append(result.Errors, errRow(row.RowNumber, "SectionTitle", "SectionTitle is required"))
				}
			}
		}

		questionOrder, ok := parsePositiveInt(row.QuestionOrder)
		if !ok {
			result.Errors = append(result.Errors, errRow(row.RowNumber, "QuestionOrder",
				"QuestionOrder is required and must be a positive integer"))
			continue
		}

		questionType := strings.TrimSpace(row.QuestionType)
		if questionType == "" || !isValidQuestionTypeName(questionType) {
			result.Errors = append(result.Errors, errRow(row.RowNumber, "QuestionType",
				"QuestionType is required and must be a valid questionnaire question type"))
			continue
		}

		s.checkQuestionPrompt(row, sectionOrder, questionOrder, seenQuestionPrompt, seenPromptBySection, existingPrompts, result)

		if templateType != "" {
			if strings.EqualFold(templateType, "Quiz") && !isQuizQuestionType(questionType) {
				result.Errors = append(result.Errors, errRow(row.RowNumber, "QuestionType",
					fmt.Sprintf("Quiz templates allow only SingleChoice and MultiChoice questions, got %q", questionType)))
			} else if strings.EqualFold(templateType, "Personality") && !strings.EqualFold(questionType, "Likert") {
				result.Errors = append(result.Errors, errRow(row.RowNumber, "QuestionType",
					fmt.Sprintf("Personality templates allow only Likert questions, got %q", questionType)))
			}
		}

		isLikert := strings.EqualFold(questionType, "Likert")
		if isLikert {
			if row.TraitKey == "" {
				result.Errors = append(result.Errors, errRow(row.RowNumber, "TraitKey",
					"TraitKey is required for Likert questions"))
			}
			if _, ok := parseFloat(row.Ws); !ok {
				result.Errors = append(result.Errors, errRow(row.RowNumber, "Ws",
					"Ws is required for Likert questions and must be a number"))
			}
		}

		if parseQuestionType(questionType).IsOptionBased() {
			if _, ok := parsePositiveInt(row.OptionOrder); !ok {
				result.Errors = append(result.Errors, errRow(row.RowNumber, "OptionOrder",
					"OptionOrder is required for option-based question types and must be a positive integer"))
			} else {
				result.OptionsCount++
				if row.OptionLabel == "" {
					result.Errors = append(result.Errors, errRow(row.RowNumber, "OptionLabel",
						"OptionLabel is required for option-based question types"))
				}
				if isLikert {
					if _, ok := parseFloat(row.Wa); !ok {
						result.Errors = append(result.Errors, errRow(row.RowNumber, "Wa",
							"Wa is required for Likert options and must be a number"))
					}
				}
			}
		} else if row.isOptionRow() {
			result.Errors = append(result.Errors, models.ImportValidationError{
				Row:      row.RowNumber,
				Column:   "OptionOrder",
				Message:  "this question type does not support options, remove option columns for this row",
				Severity: models.ImportSeverityWarning,
			})
		}

		sectionOrders[sectionOrder] = true
		questionKeys[sectionQuestionKey{sectionOrder, questionOrder}] = true
	}

	result.SectionsCount = len(sectionOrders)
	result.QuestionsCount = len(questionKeys)
}

// checkQuestionPrompt warns on duplicate prompts within a section (those
// rows will be skipped at execute time) and errors when the same question's
// prompt differs across its option rows.
func (s *templateImportService) checkQuestionPrompt(
	row *importRow,
	sectionOrder, questionOrder int,
	seenQuestionPrompt map[sectionQuestionKey]string,
	seenPromptBySection map[int]map[string]bool,
	existingPrompts map[int]map[string]bool,
	result *models.ImportValidationResult,
) {
	if row.QuestionTitle == "" {
		result.Errors = append(result.Errors, errRow(row.RowNumber, "QuestionTitle", "QuestionTitle is required"))
		return
	}

	prompt := strings.TrimSpace(row.QuestionTitle)
	lowered := strings.ToLower(prompt)
	key := sectionQuestionKey{sectionOrder, questionOrder}

	if first, seen := seenQuestionPrompt[key]; seen {
		// option rows repeat the question; the prompt must stay consistent
		if !strings.EqualFold(first, prompt) {
			result.Errors = append(result.Errors, errRow(row.RowNumber, "QuestionTitle",
				fmt.Sprintf("QuestionTitle differs across rows for section %d, question %d", sectionOrder, questionOrder)))
		}
		return
	}
	seenQuestionPrompt[key] = prompt

	prompts := seenPromptBySection[sectionOrder]
	if prompts == nil {
		prompts = map[string]bool{}
		seenPromptBySection[sectionOrder] = prompts
	}
	if prompts[lowered] {
		result.Errors = append(result.Errors, models.ImportValidationError{
			Row:      row.RowNumber,
			Column:   "QuestionTitle",
			Message:  fmt.Sprintf("duplicate question prompt detected in section %d, it will be skipped during import: %q", sectionOrder, prompt),
			Severity: models.ImportSeverityWarning,
		})
	}
	prompts[lowered] = true

	if existingPrompts != nil && existingPrompts[sectionOrder] != nil && existingPrompts[sectionOrder][lowered] {
		result.Errors = append(result.Errors, models.ImportValidationError{
			Row:      row.RowNumber,
			Column:   "QuestionTitle",
			Message:  fmt.Sprintf("duplicate question prompt already exists in target template section %d, it will be skipped: %q", sectionOrder, prompt),
			Severity: models.ImportSeverityWarning,
		})
	}
}

func existingPromptsBySection(template *models.Template) map[int]map[string]bool {
	if template == nil {
		return nil
	}
	prompts := make(map[int]map[string]bool, len(template.Sections))
	for i := range template.Sections {
		section := &template.Sections[i]
		set := map[string]bool{}
		for j := range section.Questions {
			text := strings.TrimSpace(section.Questions[j].QuestionText)
			if text != "" {
				set[strings.ToLower(text)] = true
			}
		}
		prompts[section.Order] = set
	}
	return prompts
}

func templateHasSection(template *models.Template, order int) bool {
	for i := range template.Sections {
		if template.Sections[i].Order == order {
			return true
		}
	}
	return false
}

func parseImportScope(raw string) (models.ImportScope, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "createtemplate":
		return models.ImportCreateTemplate, true
	case "appendtotemplate":
		return models.ImportAppendToTemplate, true
	case "appendtosection":
		return models.ImportAppendToSection, true
	}
	return "", false
}

func isValidTemplateTypeName(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "form", "quiz", "personality":
		return true
	}
	return false
}

func isValidQuestionTypeName(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "text", "textarea", "radio", "checkbox", "dropdown",
		"singlechoice", "single_choice", "multichoice", "multi_choice", "likert":
		return true
	}
	return false
}

func isQuizQuestionType(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "singlechoice", "single_choice", "multichoice", "multi_choice":
		return true
	}
	return false
}

func errRow(row int, column, message string) models.ImportValidationError {
	return models.ImportValidationError{
		Row:      row,
		Column:   column,
		Message:  message,
		Severity: models.ImportSeverityError,
	}
}

func hasImportErrors(errs []models.ImportValidationError) bool {
	for _, e := range errs {
		if e.IsError() {
			return true
		}
	}
	return false
}
