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

// SubmissionOrchestrator runs the candidate-facing submission flow: starting
// a draft against a job application step and turning a submit payload into a
// scored, finalized submission.
type SubmissionOrchestrator interface {
	// StartSubmission ensures a draft submission exists for the step, pinned
	// to the template version the step resolves to. Calling it again for the
	// same step returns the existing draft without resetting the clock.
	StartSubmission(ctx context.Context, stepID uuid.UUID) (*StartSubmissionResponse, error)

	// ProcessSubmission validates, scores and finalizes the step's
	// submission in one pass. Nothing is written when validation fails.
	ProcessSubmission(ctx context.Context, stepID uuid.UUID, request SubmitRequest) (*SubmitResponse, error)
}

type submissionOrchestrator struct {
	repo        repositories.Repository
	validator   SubmissionValidator
	builder     AnswerBuilder
	personality PersonalityScoreCalculator
	publisher   events.EventPublisher
	logger      utils.Logger
}

func NewSubmissionOrchestrator(
	repo repositories.Repository,
	validator SubmissionValidator,
	builder AnswerBuilder,
	personality PersonalityScoreCalculator,
	publisher events.EventPublisher,
	logger utils.Logger,
) SubmissionOrchestrator {
	return &submissionOrchestrator{
		repo:        repo,
		validator:   validator,
		builder:     builder,
		personality: personality,
		publisher:   publisher,
		logger:      logger.With("component", "submission_orchestrator"),
	}
}

func (o *submissionOrchestrator) StartSubmission(ctx context.Context, stepID uuid.UUID) (*StartSubmissionResponse, error) {
	step, template, err := o.resolveStep(ctx, stepID)
	if err != nil {
		return nil, err
	}

	existing, err := o.repo.Submissions().GetByStepID(ctx, stepID)
	if err != nil && !repositories.IsNotFound(err) {
		return nil, fmt.Errorf("failed to load submission for step %s: %w", stepID, err)
	}
	if existing != nil {
		if existing.Status.IsFinal() {
			return nil, ErrSubmissionAlreadyFinal
		}
		return &StartSubmissionResponse{
			SubmissionID:     existing.ID,
			Status:           string(existing.Status),
			StartedAt:        existing.StartedAt,
			TimeLimitSeconds: template.TimeLimitSeconds,
		}, nil
	}

	now := time.Now().UTC()
	submission := &models.Submission{
		ID:                   uuid.New(),
		JobApplicationStepID: stepID,
		TemplateName:         template.Name,
		TemplateVersion:      template.Version,
		TemplateType:         template.TemplateType,
		Status:               models.SubmissionStatusDraft,
		StartedAt:            &now,
		LastSavedAt:          &now,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := o.repo.Submissions().Create(ctx, submission); err != nil {
		return nil, fmt.Errorf("failed to create submission for step %s: %w", stepID, err)
	}

	if step.Status == models.StepStatusPending {
		step.Status = models.StepStatusInProgress
		if err := o.repo.Steps().Update(ctx, step); err != nil {
			o.logger.WarnContext(ctx, "failed to mark step in progress",
				"step_id", stepID, "error", err)
		}
	}

	o.publishEvent(ctx, events.NewQuestionnaireEvent(events.EventSubmissionStarted, events.SubmissionStartedEvent{
		SubmissionID:         submission.ID,
		JobApplicationStepID: stepID,
		TemplateName:         template.Name,
		TemplateVersion:      template.Version,
		StartedAt:            now,
		TimeLimitSeconds:     template.TimeLimitSeconds,
	}))

	return &StartSubmissionResponse{
		SubmissionID:     submission.ID,
		Status:           string(submission.Status),
		StartedAt:        submission.StartedAt,
		TimeLimitSeconds: template.TimeLimitSeconds,
	}, nil
}

func (o *submissionOrchestrator) ProcessSubmission(ctx context.Context, stepID uuid.UUID, request SubmitRequest) (*SubmitResponse, error) {
	step, template, err := o.resolveStep(ctx, stepID)
	if err != nil {
		return nil, err
	}

	submission, err := o.repo.Submissions().GetByStepID(ctx, stepID)
	if err != nil && !repositories.IsNotFound(err) {
		return nil, fmt.Errorf("failed to load submission for step %s: %w", stepID, err)
	}

	now := time.Now().UTC()

	// an existing submission stays pinned to the version it started on
	if submission != nil {
		template, err = o.repo.Templates().GetByKey(ctx, submission.TemplateName, submission.TemplateVersion)
		if err != nil {
			if repositories.IsNotFound(err) {
				return nil, ErrTemplateNotFound
			}
			return nil, fmt.Errorf("failed to load template %s v%d: %w", submission.TemplateName, submission.TemplateVersion, err)
		}
		if err := o.validator.ValidateSubmissionStatus(submission, template, now); err != nil {
			return nil, err
		}
	}

	if err := o.validator.ValidateRequest(template, request); err != nil {
		return nil, err
	}

	built := o.builder.BuildAnswers(template, request)

	personalityResult, err := o.personality.Calculate(ctx, built.Answers, template.QuestionsByKey(), template.TemplateType)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate personality result: %w", err)
	}

	err = o.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if submission == nil {
			submission = &models.Submission{
				ID:                   uuid.New(),
				JobApplicationStepID: stepID,
				TemplateName:         template.Name,
				TemplateVersion:      template.Version,
				TemplateType:         template.TemplateType,
				Status:               models.SubmissionStatusDraft,
				StartedAt:            &now,
				CreatedAt:            now,
			}
			if err := tx.Submissions().Create(ctx, submission); err != nil {
				return fmt.Errorf("failed to create submission: %w", err)
			}
		}

		if err := tx.Answers().DeleteBySubmission(ctx, submission.ID); err != nil {
			return fmt.Errorf("failed to clear previous answers: %w", err)
		}
		for i := range built.Answers {
			built.Answers[i].SubmissionID = submission.ID
		}
		if err := tx.Answers().CreateBatch(ctx, built.Answers); err != nil {
			return fmt.Errorf("failed to persist answers: %w", err)
		}

		submission.Status = finalStatusFor(template, built)
		if built.HasScoredQuestions {
			total, max := built.TotalScore, built.MaxScore
			submission.TotalScore = &total
			submission.MaxScore = &max
		}
		if len(personalityResult) > 0 {
			submission.PersonalityResult = personalityResult
		}
		submission.SubmittedAt = &now
		submission.LastSavedAt = &now
		submission.UpdatedAt = now

		return tx.Submissions().Update(ctx, submission)
	})
	if err != nil {
		return nil, err
	}

	o.completeStep(ctx, step, now)

	o.publishEvent(ctx, events.NewQuestionnaireEvent(events.EventSubmissionCompleted, events.SubmissionCompletedEvent{
		SubmissionID:         submission.ID,
		JobApplicationStepID: stepID,
		TemplateName:         template.Name,
		TemplateVersion:      template.Version,
		Status:               string(submission.Status),
		SubmittedAt:          now,
		TotalScore:           submission.TotalScore,
		MaxScore:             submission.MaxScore,
	}))

	return &SubmitResponse{
		SubmissionID: submission.ID,
		Status:       string(submission.Status),
		SubmittedAt:  submission.SubmittedAt,
	}, nil
}

// resolveStep loads the step and the template version it points at. A step
// without a version binding resolves to the latest version of its lineage.
func (o *submissionOrchestrator) resolveStep(ctx context.Context, stepID uuid.UUID) (*models.JobApplicationStep, *models.Template, error) {
	step, err := o.repo.Steps().GetByID(ctx, stepID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, nil, ErrStepNotFound
		}
		return nil, nil, fmt.Errorf("failed to load step %s: %w", stepID, err)
	}
	if step.TemplateName == nil {
		return nil, nil, ErrStepTemplateNotAssigned
	}

	var template *models.Template
	if step.TemplateVersion != nil {
		template, err = o.repo.Templates().GetByKey(ctx, *step.TemplateName, *step.TemplateVersion)
	} else {
		template, err = o.repo.Templates().GetLatest(ctx, *step.TemplateName)
	}
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, nil, ErrTemplateNotFound
		}
		return nil, nil, fmt.Errorf("failed to load template for step %s: %w", stepID, err)
	}
	return step, template, nil
}

// completeStep flips the pipeline step to Completed. The submission is
// already finalized at this point, so a failure here is logged and swallowed
// rather than undoing a valid submission.
func (o *submissionOrchestrator) completeStep(ctx context.Context, step *models.JobApplicationStep, now time.Time) {
	step.Status = models.StepStatusCompleted
	step.CompletedAt = &now
	if err := o.repo.Steps().Update(ctx, step); err != nil {
		o.logger.ErrorContext(ctx, "failed to mark step completed",
			"step_id", step.ID, "error", err)
	}
}

func finalStatusFor(template *models.Template, built BuiltAnswers) models.SubmissionStatus {
	if template.TemplateType == models.TemplateQuiz || built.HasScoredQuestions {
		return models.SubmissionStatusAutoScored
	}
	return models.SubmissionStatusSubmitted
}

func (o *submissionOrchestrator) publishEvent(ctx context.Context, event *events.QuestionnaireEvent) {
	if err := o.publisher.PublishQuestionnaireEvent(ctx, event); err != nil {
		o.logger.WarnContext(ctx, "failed to publish event",
			"event_type", event.Type, "error", err)
	}
}
