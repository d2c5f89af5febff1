package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/talentflow/questionnaire-service/internal/cache"
	"github.com/talentflow/questionnaire-service/internal/events"
	"github.com/talentflow/questionnaire-service/internal/models"
	"github.com/talentflow/questionnaire-service/internal/repositories"
	"github.com/talentflow/questionnaire-service/internal/utils"
	"gorm.io/gorm"
)

// ===== SHARED TEST FIXTURES =====

func testLogger() utils.Logger {
	return utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testSlogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }
func strPtr(v string) *string     { return &v }
func intPtr(v int) *int           { return &v }

// memoryCache is an in-process CacheService for tests.
type memoryCache struct {
	entries map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	payload, ok := c.entries[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = payload
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, key string) error {
	delete(c.entries, key)
	return nil
}

// ===== IN-MEMORY REPOSITORY =====

// fakeRepository keeps every row in maps, mirroring the row-per-version
// storage of the real repositories.
type fakeRepository struct {
	templates   map[string]map[int]*models.Template
	sections    map[uuid.UUID]*models.Section
	questions   map[models.VersionKey]*models.Question
	options     map[models.VersionKey]*models.Option
	submissions map[uuid.UUID]*models.Submission
	answers     map[uuid.UUID][]models.Answer
	steps       map[uuid.UUID]*models.JobApplicationStep

	stepUpdateErr error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		templates:   map[string]map[int]*models.Template{},
		sections:    map[uuid.UUID]*models.Section{},
		questions:   map[models.VersionKey]*models.Question{},
		options:     map[models.VersionKey]*models.Option{},
		submissions: map[uuid.UUID]*models.Submission{},
		answers:     map[uuid.UUID][]models.Answer{},
		steps:       map[uuid.UUID]*models.JobApplicationStep{},
	}
}

// seedTemplate registers a template graph the way migrations plus the factory
// would have: one row per template, section, question and option.
func (r *fakeRepository) seedTemplate(template *models.Template) {
	if r.templates[template.Name] == nil {
		r.templates[template.Name] = map[int]*models.Template{}
	}
	r.templates[template.Name][template.Version] = template
	for i := range template.Sections {
		section := &template.Sections[i]
		sectionRow := *section
		sectionRow.Questions = nil
		r.sections[section.ID] = &sectionRow
		for j := range section.Questions {
			question := &section.Questions[j]
			questionRow := *question
			questionRow.Options = nil
			r.questions[question.Key()] = &questionRow
			for k := range question.Options {
				option := question.Options[k]
				r.options[option.Key()] = &option
			}
		}
	}
}

func (r *fakeRepository) seedSubmission(submission *models.Submission) {
	r.submissions[submission.ID] = submission
}

func (r *fakeRepository) seedStep(step *models.JobApplicationStep) {
	r.steps[step.ID] = step
}

func (r *fakeRepository) Templates() repositories.TemplateRepository     { return &fakeTemplates{r} }
func (r *fakeRepository) Sections() repositories.SectionRepository       { return &fakeSections{r} }
func (r *fakeRepository) Questions() repositories.QuestionRepository     { return &fakeQuestions{r} }
func (r *fakeRepository) Options() repositories.OptionRepository         { return &fakeOptions{r} }
func (r *fakeRepository) Submissions() repositories.SubmissionRepository { return &fakeSubmissions{r} }
func (r *fakeRepository) Answers() repositories.AnswerRepository         { return &fakeAnswers{r} }
func (r *fakeRepository) Steps() repositories.StepRepository             { return &fakeSteps{r} }

func (r *fakeRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(r)
}

type fakeTemplates struct{ r *fakeRepository }

func (f *fakeTemplates) Create(ctx context.Context, template *models.Template) error {
	if f.r.templates[template.Name] == nil {
		f.r.templates[template.Name] = map[int]*models.Template{}
	}
	f.r.templates[template.Name][template.Version] = template
	return nil
}

func (f *fakeTemplates) Update(ctx context.Context, template *models.Template) error {
	versions, ok := f.r.templates[template.Name]
	if !ok || versions[template.Version] == nil {
		return gorm.ErrRecordNotFound
	}
	versions[template.Version] = template
	return nil
}

func (f *fakeTemplates) GetByKey(ctx context.Context, name string, version int) (*models.Template, error) {
	template, ok := f.r.templates[name][version]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return template, nil
}

func (f *fakeTemplates) GetLatest(ctx context.Context, name string) (*models.Template, error) {
	latest, err := f.LatestVersion(ctx, name)
	if err != nil {
		return nil, err
	}
	if latest == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return f.r.templates[name][latest], nil
}

func (f *fakeTemplates) LatestVersion(ctx context.Context, name string) (int, error) {
	latest := 0
	for version := range f.r.templates[name] {
		if version > latest {
			latest = version
		}
	}
	return latest, nil
}

func (f *fakeTemplates) ListVersions(ctx context.Context, name string) ([]models.Template, error) {
	var out []models.Template
	for _, template := range f.r.templates[name] {
		out = append(out, *template)
	}
	return out, nil
}

func (f *fakeTemplates) List(ctx context.Context, filters repositories.TemplateFilters) ([]models.Template, int64, error) {
	var out []models.Template
	for _, versions := range f.r.templates {
		for _, template := range versions {
			out = append(out, *template)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeTemplates) Exists(ctx context.Context, name string) (bool, error) {
	return len(f.r.templates[name]) > 0, nil
}

type fakeSections struct{ r *fakeRepository }

func (f *fakeSections) Create(ctx context.Context, section *models.Section) error {
	row := *section
	row.Questions = nil
	f.r.sections[section.ID] = &row
	return nil
}

func (f *fakeSections) Update(ctx context.Context, section *models.Section) error {
	if _, ok := f.r.sections[section.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	row := *section
	row.Questions = nil
	f.r.sections[section.ID] = &row
	return nil
}

func (f *fakeSections) GetByID(ctx context.Context, id uuid.UUID) (*models.Section, error) {
	section, ok := f.r.sections[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return section, nil
}

func (f *fakeSections) GetByTemplate(ctx context.Context, templateName string, templateVersion int) ([]models.Section, error) {
	var out []models.Section
	for _, section := range f.r.sections {
		if section.TemplateName == templateName && section.TemplateVersion == templateVersion {
			out = append(out, *section)
		}
	}
	return out, nil
}

func (f *fakeSections) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.r.sections[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.r.sections, id)
	return nil
}

type fakeQuestions struct{ r *fakeRepository }

func (f *fakeQuestions) Create(ctx context.Context, question *models.Question) error {
	row := *question
	row.Options = nil
	f.r.questions[question.Key()] = &row
	return nil
}

func (f *fakeQuestions) Update(ctx context.Context, question *models.Question) error {
	if _, ok := f.r.questions[question.Key()]; !ok {
		return gorm.ErrRecordNotFound
	}
	row := *question
	row.Options = nil
	f.r.questions[question.Key()] = &row
	return nil
}

func (f *fakeQuestions) Deactivate(ctx context.Context, name string, version int) error {
	question, ok := f.r.questions[models.VersionKey{Name: name, Version: version}]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	question.IsActive = false
	return nil
}

func (f *fakeQuestions) GetByKey(ctx context.Context, name string, version int) (*models.Question, error) {
	question, ok := f.r.questions[models.VersionKey{Name: name, Version: version}]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return question, nil
}

func (f *fakeQuestions) GetBySection(ctx context.Context, sectionID uuid.UUID) ([]models.Question, error) {
	var out []models.Question
	for _, question := range f.r.questions {
		if question.SectionID == sectionID {
			out = append(out, *question)
		}
	}
	return out, nil
}

func (f *fakeQuestions) LatestVersion(ctx context.Context, name string) (int, error) {
	latest := 0
	for key := range f.r.questions {
		if key.Name == name && key.Version > latest {
			latest = key.Version
		}
	}
	return latest, nil
}

type fakeOptions struct{ r *fakeRepository }

func (f *fakeOptions) Create(ctx context.Context, option *models.Option) error {
	row := *option
	f.r.options[option.Key()] = &row
	return nil
}

func (f *fakeOptions) Update(ctx context.Context, option *models.Option) error {
	if _, ok := f.r.options[option.Key()]; !ok {
		return gorm.ErrRecordNotFound
	}
	row := *option
	f.r.options[option.Key()] = &row
	return nil
}

func (f *fakeOptions) Delete(ctx context.Context, name string, version int) error {
	key := models.VersionKey{Name: name, Version: version}
	if _, ok := f.r.options[key]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.r.options, key)
	return nil
}

func (f *fakeOptions) GetByKey(ctx context.Context, name string, version int) (*models.Option, error) {
	option, ok := f.r.options[models.VersionKey{Name: name, Version: version}]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return option, nil
}

func (f *fakeOptions) GetByQuestion(ctx context.Context, questionName string, questionVersion int) ([]models.Option, error) {
	var out []models.Option
	for _, option := range f.r.options {
		if option.QuestionName == questionName && option.QuestionVersion == questionVersion {
			out = append(out, *option)
		}
	}
	return out, nil
}

func (f *fakeOptions) LatestVersion(ctx context.Context, name string) (int, error) {
	latest := 0
	for key := range f.r.options {
		if key.Name == name && key.Version > latest {
			latest = key.Version
		}
	}
	return latest, nil
}

type fakeSubmissions struct{ r *fakeRepository }

func (f *fakeSubmissions) Create(ctx context.Context, submission *models.Submission) error {
	f.r.submissions[submission.ID] = submission
	return nil
}

func (f *fakeSubmissions) Update(ctx context.Context, submission *models.Submission) error {
	if _, ok := f.r.submissions[submission.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	f.r.submissions[submission.ID] = submission
	return nil
}

func (f *fakeSubmissions) GetByID(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	submission, ok := f.r.submissions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return submission, nil
}

func (f *fakeSubmissions) GetByStepID(ctx context.Context, stepID uuid.UUID) (*models.Submission, error) {
	for _, submission := range f.r.submissions {
		if submission.JobApplicationStepID == stepID {
			return submission, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSubmissions) List(ctx context.Context, filters repositories.SubmissionFilters) ([]models.Submission, int64, error) {
	var out []models.Submission
	for _, submission := range f.r.submissions {
		out = append(out, *submission)
	}
	return out, int64(len(out)), nil
}

func (f *fakeSubmissions) CountByTemplate(ctx context.Context, templateName string, templateVersion int) (int64, error) {
	var count int64
	for _, submission := range f.r.submissions {
		if submission.TemplateName == templateName && submission.TemplateVersion == templateVersion {
			count++
		}
	}
	return count, nil
}

type fakeAnswers struct{ r *fakeRepository }

func (f *fakeAnswers) CreateBatch(ctx context.Context, answers []models.Answer) error {
	for _, answer := range answers {
		f.r.answers[answer.SubmissionID] = append(f.r.answers[answer.SubmissionID], answer)
	}
	return nil
}

func (f *fakeAnswers) GetBySubmission(ctx context.Context, submissionID uuid.UUID) ([]models.Answer, error) {
	return f.r.answers[submissionID], nil
}

func (f *fakeAnswers) DeleteBySubmission(ctx context.Context, submissionID uuid.UUID) error {
	delete(f.r.answers, submissionID)
	return nil
}

type fakeSteps struct{ r *fakeRepository }

func (f *fakeSteps) GetByID(ctx context.Context, id uuid.UUID) (*models.JobApplicationStep, error) {
	step, ok := f.r.steps[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return step, nil
}

func (f *fakeSteps) Update(ctx context.Context, step *models.JobApplicationStep) error {
	if f.r.stepUpdateErr != nil {
		return f.r.stepUpdateErr
	}
	if _, ok := f.r.steps[step.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	f.r.steps[step.ID] = step
	return nil
}

// ===== SERVICE GRAPH =====

// syncEnv wires the full service graph against the in-memory repository.
type syncEnv struct {
	repo         *fakeRepository
	publisher    *events.MockEventPublisher
	normalizer   OptionNameNormalizer
	factory      EntityFactory
	versioning   VersioningService
	options      OptionSyncHandler
	questions    QuestionSyncHandler
	sections     SectionSyncHandler
	orchestrator TemplateOrchestrator
}

func newSyncEnv() *syncEnv {
	repo := newFakeRepository()
	logger := testLogger()
	publisher := events.NewMockEventPublisher(testSlogger())

	normalizer := NewOptionNameNormalizer(repo.Options())
	factory := NewEntityFactory(normalizer)
	versioning := NewVersioningService(repo, newMemoryCache(), logger)
	options := NewOptionSyncHandler(repo, versioning, normalizer, factory, logger)
	questions := NewQuestionSyncHandler(repo, versioning, factory, normalizer, options, logger)
	sections := NewSectionSyncHandler(repo, factory, questions, logger)
	orchestrator := NewTemplateOrchestrator(repo, versioning, factory, normalizer, publisher, logger)

	return &syncEnv{
		repo:         repo,
		publisher:    publisher,
		normalizer:   normalizer,
		factory:      factory,
		versioning:   versioning,
		options:      options,
		questions:    questions,
		sections:     sections,
		orchestrator: orchestrator,
	}
}

// markInUse pins one submission to the template version, freezing it.
func (e *syncEnv) markInUse(template *models.Template) {
	e.repo.seedSubmission(&models.Submission{
		ID:              uuid.New(),
		TemplateName:    template.Name,
		TemplateVersion: template.Version,
		Status:          models.SubmissionStatusSubmitted,
	})
}

// ===== TEMPLATE BUILDERS =====

// buildQuizTemplate is the standard quiz fixture: one section, one graded
// single-choice question with a correct A (10 points) and a wrong B.
func buildQuizTemplate(name string) *models.Template {
	sectionID := uuid.New()
	template := &models.Template{
		Name:         name,
		Version:      1,
		TemplateType: models.TemplateQuiz,
		Status:       models.TemplateStatusPublished,
		Title:        "Engineering Quiz",
	}
	question := models.Question{
		Name:         name + "_q1",
		Version:      1,
		SectionID:    sectionID,
		Order:        1,
		IsActive:     true,
		QuestionType: models.QuestionSingleChoice,
		QuestionText: "Pick the right answer",
		IsRequired:   true,
		Options: []models.Option{
			{
				Name: name + "_q1_a", Version: 1,
				QuestionName: name + "_q1", QuestionVersion: 1,
				Order: 1, Label: "A",
				IsCorrect: boolPtr(true), Score: floatPtr(10),
			},
			{
				Name: name + "_q1_b", Version: 1,
				QuestionName: name + "_q1", QuestionVersion: 1,
				Order: 2, Label: "B",
				IsCorrect: boolPtr(false), Score: floatPtr(5),
			},
		},
	}
	template.Sections = []models.Section{{
		ID:              sectionID,
		TemplateName:    name,
		TemplateVersion: 1,
		Order:           1,
		Title:           "Basics",
		Questions:       []models.Question{question},
	}}
	return template
}

// buildPersonalityTemplate is the standard Likert fixture: one trait-keyed
// statement with two anchors.
func buildPersonalityTemplate(name string) *models.Template {
	sectionID := uuid.New()
	template := &models.Template{
		Name:         name,
		Version:      1,
		TemplateType: models.TemplatePersonality,
		Status:       models.TemplateStatusPublished,
		Title:        "Work Style",
	}
	question := models.Question{
		Name:         name + "_q1",
		Version:      1,
		SectionID:    sectionID,
		Order:        1,
		IsActive:     true,
		QuestionType: models.QuestionLikert,
		QuestionText: "I prefer working in teams",
		IsRequired:   true,
		Ws:           floatPtr(2),
		TraitKey:     strPtr("teamwork"),
		Options: []models.Option{
			{
				Name: name + "_q1_agree", Version: 1,
				QuestionName: name + "_q1", QuestionVersion: 1,
				Order: 1, Label: "Agree", Wa: floatPtr(4),
			},
			{
				Name: name + "_q1_disagree", Version: 1,
				QuestionName: name + "_q1", QuestionVersion: 1,
				Order: 2, Label: "Disagree", Wa: floatPtr(1),
			},
		},
	}
	template.Sections = []models.Section{{
		ID:              sectionID,
		TemplateName:    name,
		TemplateVersion: 1,
		Order:           1,
		Title:           "Style",
		Questions:       []models.Question{question},
	}}
	return template
}

// inputFromTemplate is shorthand for rebuilding the full edit payload.
func inputFromTemplate(template *models.Template) TemplateInput {
	return TemplateInputFromModel(template)
}
