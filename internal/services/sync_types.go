package services

import "github.com/talentflow/questionnaire-service/internal/models"

// SyncOutcome is the tagged result of a sync call. At most one fork surfaces
// per top-level invocation; callers with multi-change payloads re-invoke
// until Forked() reports false, which converges because each pass either
// forks one entity or applies the remaining in-place updates.
type SyncOutcome struct {
	// ForkedTemplate is set when the cascade had to fork the whole template.
	ForkedTemplate *models.Template
	// QuestionForked is set when an in-use edit forked a single question.
	QuestionForked bool
}

func (o SyncOutcome) Forked() bool {
	return o.ForkedTemplate != nil || o.QuestionForked
}

// OptionSyncOutcome extends SyncOutcome with the question-level fork signal:
// an in-use option change forks the owning question, not the template.
type OptionSyncOutcome struct {
	ForkedTemplate *models.Template
	QuestionForked bool
}

func (o OptionSyncOutcome) Forked() bool {
	return o.ForkedTemplate != nil || o.QuestionForked
}
