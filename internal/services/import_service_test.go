package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talentflow/questionnaire-service/internal/events"
	"github.com/talentflow/questionnaire-service/internal/models"
	"github.com/xuri/excelize/v2"
)

var importHeaders = []interface{}{
	"Scope", "TemplateName", "TemplateType", "Title", "TargetSectionOrder",
	"SectionOrder", "SectionTitle",
	"QuestionOrder", "QuestionType", "IsRequired", "QuestionTitle", "TraitKey", "Ws",
	"OptionOrder", "OptionLabel", "IsCorrect", "Score", "Wa",
}

// buildImportSheet writes an Import worksheet the way the template download
// lays it out: row 1 a usage hint, row 2 the header, data from row 3.
func buildImportSheet(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	file := excelize.NewFile()
	defer file.Close()

	_, err := file.NewSheet(importWorksheetName)
	require.NoError(t, err)
	require.NoError(t, file.SetSheetRow(importWorksheetName, "A1",
		&[]interface{}{"Fill in one row per option (or per question for text types)"}))
	require.NoError(t, file.SetSheetRow(importWorksheetName, "A2", &importHeaders))

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+3)
		require.NoError(t, err)
		require.NoError(t, file.SetSheetRow(importWorksheetName, cell, &row))
	}

	buf, err := file.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func newImportService(env *syncEnv) TemplateImportService {
	return NewTemplateImportService(
		env.repo, env.factory, env.normalizer, env.orchestrator, env.sections,
		NewInputValidationService(), env.publisher, testLogger(),
	)
}

func importedEvents(publisher *events.MockEventPublisher) []events.QuestionnaireEvent {
	var out []events.QuestionnaireEvent
	for _, event := range publisher.GetPublishedEvents() {
		if event.Type == events.EventTemplateImported {
			out = append(out, event)
		}
	}
	return out
}

func TestImportTemplateCreateBuildsGraph(t *testing.T) {
	env := newSyncEnv()
	svc := newImportService(env)

	// second row leaves the question cells blank: carry-forward fills them
	sheet := buildImportSheet(t, [][]interface{}{
		{"", "", "", "", "", 1, "Basics", 1, "single_choice", "true", "Pick the right tool", "", "", 1, "Terraform", "true", 10, ""},
		{"", "", "", "", "", "", "", "", "", "", "", "", "", 2, "FTP", "false", 0, ""},
	})

	ctx := context.Background()
	result, err := svc.ImportTemplate(ctx, sheet, ImportRequest{
		Scope:        models.ImportCreateTemplate,
		TemplateName: "devops_screen",
		TemplateType: "Quiz",
		Title:        "DevOps Screening",
	})
	require.NoError(t, err)
	assert.True(t, result.CreatedNewTemplate)
	assert.Equal(t, "devops_screen", result.TemplateName)
	assert.Equal(t, 1, result.TemplateVersion)
	assert.Equal(t, 1, result.SectionsCount)
	assert.Equal(t, 1, result.QuestionsCount)
	assert.Equal(t, 2, result.OptionsCount)

	template, err := env.repo.Templates().GetLatest(ctx, "devops_screen")
	require.NoError(t, err)
	assert.Equal(t, models.TemplateQuiz, template.TemplateType)
	assert.Equal(t, "DevOps Screening", template.Title)

	questionName := "devops_screen_v1_s1_q1_pick_the_right_tool"
	question, err := env.repo.Questions().GetByKey(ctx, questionName, 1)
	require.NoError(t, err)
	assert.Equal(t, models.QuestionSingleChoice, question.QuestionType)
	assert.True(t, question.IsRequired)

	options, err := env.repo.Options().GetByQuestion(ctx, questionName, 1)
	require.NoError(t, err)
	require.Len(t, options, 2)

	assert.Len(t, importedEvents(env.publisher), 1)
}

func TestValidateImportReportsErrors(t *testing.T) {
	env := newSyncEnv()
	svc := newImportService(env)

	sheet := buildImportSheet(t, [][]interface{}{
		{"", "", "", "", "", 1, "Basics", 1, "Essay", "", "Prompt one", "", "", "", "", "", "", ""},
		{"", "", "", "", "", 1, "", 2, "single_choice", "", "", "", "", 1, "A", "", "", ""},
	})

	result, err := svc.ValidateImport(context.Background(), sheet, ImportRequest{
		Scope:        models.ImportCreateTemplate,
		TemplateName: "broken",
		TemplateType: "Quiz",
	})
	require.NoError(t, err)
	assert.False(t, result.IsValid)

	columns := map[string]bool{}
	for _, e := range result.Errors {
		if e.IsError() {
			columns[e.Column] = true
		}
	}
	assert.True(t, columns["QuestionType"], "invalid question type must be flagged")
	assert.True(t, columns["QuestionTitle"], "missing prompt must be flagged")
}

func TestValidateImportRejectsCreateOverExisting(t *testing.T) {
	env := newSyncEnv()
	template := buildQuizTemplate("quiz")
	env.repo.seedTemplate(template)
	env.markInUse(template)
	svc := newImportService(env)

	sheet := buildImportSheet(t, [][]interface{}{
		{"", "", "", "", "", 1, "Basics", 1, "single_choice", "", "Prompt", "", "", 1, "A", "", 1, ""},
		{"", "", "", "", "", "", "", "", "", "", "", "", "", 2, "B", "", 0, ""},
	})

	result, err := svc.ValidateImport(context.Background(), sheet, ImportRequest{
		Scope:        models.ImportCreateTemplate,
		TemplateName: "quiz",
		TemplateType: "Quiz",
	})
	require.NoError(t, err)
	assert.False(t, result.IsValid)
	assert.True(t, result.TemplateExists)
	require.NotNil(t, result.ExistingLatestVersion)
	assert.Equal(t, 1, *result.ExistingLatestVersion)
	assert.True(t, result.ExistingLatestInUse)
}

func TestImportAppendAddsInPlaceWhenNotInUse(t *testing.T) {
	env := newSyncEnv()
	template := buildQuizTemplate("quiz")
	env.repo.seedTemplate(template)
	svc := newImportService(env)

	sheet := buildImportSheet(t, [][]interface{}{
		{"", "", "", "", "", 2, "Advanced", 1, "multi_choice", "", "Select every valid answer", "", "", 1, "One", "true", 5, ""},
		{"", "", "", "", "", "", "", "", "", "", "", "", "", 2, "Two", "false", 0, ""},
	})

	ctx := context.Background()
	result, err := svc.ImportTemplate(ctx, sheet, ImportRequest{
		Scope:           models.ImportAppendToTemplate,
		TemplateName:    "quiz",
		TemplateVersion: intPtr(1),
	})
	require.NoError(t, err)
	assert.False(t, result.CreatedNewVersion)
	assert.Equal(t, 1, result.TemplateVersion)
	assert.Equal(t, 2, result.SectionsCount)
	assert.Equal(t, 2, result.QuestionsCount)

	added, err := env.repo.Questions().GetByKey(ctx, "quiz_v1_s2_q1_select_every_valid_answer", 1)
	require.NoError(t, err)
	assert.Equal(t, models.QuestionMultiChoice, added.QuestionType)

	// the existing question was not forked
	latest, err := env.repo.Questions().LatestVersion(ctx, "quiz_q1")
	require.NoError(t, err)
	assert.Equal(t, 1, latest)
}

func TestImportAppendForksWhenInUse(t *testing.T) {
	env := newSyncEnv()
	template := buildQuizTemplate("quiz")
	env.repo.seedTemplate(template)
	env.markInUse(template)
	svc := newImportService(env)

	sheet := buildImportSheet(t, [][]interface{}{
		{"", "", "", "", "", 2, "Advanced", 1, "single_choice", "", "A new question", "", "", 1, "Yes", "true", 1, ""},
		{"", "", "", "", "", "", "", "", "", "", "", "", "", 2, "No", "false", 0, ""},
	})

	ctx := context.Background()
	result, err := svc.ImportTemplate(ctx, sheet, ImportRequest{
		Scope:           models.ImportAppendToTemplate,
		TemplateName:    "quiz",
		TemplateVersion: intPtr(1),
	})
	require.NoError(t, err)
	assert.True(t, result.CreatedNewVersion)
	assert.Equal(t, 2, result.TemplateVersion)

	forked, err := env.repo.Templates().GetByKey(ctx, "quiz", 2)
	require.NoError(t, err)
	assert.Len(t, forked.Sections, 2)

	// the carried question moved to v2, v1 stays for the pinned submission
	carried, err := env.repo.Questions().GetByKey(ctx, "quiz_q1", 2)
	require.NoError(t, err)
	assert.True(t, carried.IsActive)
	original, err := env.repo.Templates().GetByKey(ctx, "quiz", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, original.Version)
}

func TestImportAppendToSectionTargetsSelectedSection(t *testing.T) {
	env := newSyncEnv()
	template := buildQuizTemplate("quiz")
	env.repo.seedTemplate(template)
	svc := newImportService(env)

	// SectionOrder left blank: the selected target section applies
	sheet := buildImportSheet(t, [][]interface{}{
		{"", "", "", "", "", "", "", 2, "single_choice", "", "Another basic question", "", "", 1, "Left", "true", 2, ""},
		{"", "", "", "", "", "", "", "", "", "", "", "", "", 2, "Right", "false", 0, ""},
	})

	ctx := context.Background()
	result, err := svc.ImportTemplate(ctx, sheet, ImportRequest{
		Scope:              models.ImportAppendToSection,
		TemplateName:       "quiz",
		TemplateVersion:    intPtr(1),
		TargetSectionOrder: intPtr(1),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.SectionsCount)
	assert.Equal(t, 2, result.QuestionsCount)

	added, err := env.repo.Questions().GetByKey(ctx, "quiz_v1_s1_q2_another_basic_question", 1)
	require.NoError(t, err)
	assert.Equal(t, template.Sections[0].ID, added.SectionID)
}

func TestImportAppendMissingVersionFailsValidation(t *testing.T) {
	env := newSyncEnv()
	template := buildQuizTemplate("quiz")
	env.repo.seedTemplate(template)
	svc := newImportService(env)

	sheet := buildImportSheet(t, [][]interface{}{
		{"", "", "", "", "", 2, "Advanced", 1, "single_choice", "", "Prompt", "", "", 1, "A", "", 1, ""},
		{"", "", "", "", "", "", "", "", "", "", "", "", "", 2, "B", "", 0, ""},
	})

	_, err := svc.ImportTemplate(context.Background(), sheet, ImportRequest{
		Scope:        models.ImportAppendToTemplate,
		TemplateName: "quiz",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestParsePositiveInt(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"1", 1, true},
		{" 2 ", 2, true},
		{"3.0", 3, true},
		{"0", 0, false},
		{"-1", 0, false},
		{"2.5", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := parsePositiveInt(tt.in)
		assert.Equal(t, tt.ok, ok, "parsePositiveInt(%q) ok", tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, got, "parsePositiveInt(%q)", tt.in)
		}
	}
}

func TestApplyCarryForwardFillsOptionRows(t *testing.T) {
	rows := []importRow{
		{
			RowNumber: 3, Scope: "CreateTemplate", TemplateName: "t", TemplateType: "Quiz",
			SectionOrder: "1", SectionTitle: "Basics",
			QuestionOrder: "1", QuestionType: "single_choice", QuestionTitle: "Prompt",
			OptionOrder: "1", OptionLabel: "A",
		},
		{RowNumber: 4, OptionOrder: "2", OptionLabel: "B"},
		{RowNumber: 5, SectionOrder: "1", QuestionOrder: "2", QuestionType: "single_choice", QuestionTitle: "Next", OptionOrder: "1", OptionLabel: "C"},
	}
	applyCarryForward(rows)

	assert.Equal(t, "1", rows[1].SectionOrder)
	assert.Equal(t, "1", rows[1].QuestionOrder)
	assert.Equal(t, "single_choice", rows[1].QuestionType)
	assert.Equal(t, "Prompt", rows[1].QuestionTitle)
	assert.Equal(t, "t", rows[1].TemplateName)

	// a first option row never inherits question identity
	assert.Equal(t, "Next", rows[2].QuestionTitle)
	assert.Equal(t, "2", rows[2].QuestionOrder)
}
