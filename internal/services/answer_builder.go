package services

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/talentflow/questionnaire-service/internal/models"
)

// BuiltAnswers is the scored answer set of one submission. Totals cover only
// questions that carry scoring data at all; an unscored form yields
// HasScoredQuestions false and the totals stay off the submission.
type BuiltAnswers struct {
	Answers            []models.Answer
	TotalScore         float64
	MaxScore           float64
	HasScoredQuestions bool
}

// AnswerBuilder turns a validated submit payload into answer rows with the
// scores derived from the pinned template version. Pure computation, no
// persistence: the same payload against the same version always scores the
// same.
type AnswerBuilder interface {
	BuildAnswers(template *models.Template, request SubmitRequest) BuiltAnswers
}

type answerBuilder struct{}

func NewAnswerBuilder() AnswerBuilder {
	return &answerBuilder{}
}

func (b *answerBuilder) BuildAnswers(template *models.Template, request SubmitRequest) BuiltAnswers {
	questionsByKey := template.QuestionsByKey()
	isQuiz := template.TemplateType == models.TemplateQuiz
	isPersonality := template.TemplateType == models.TemplatePersonality

	result := BuiltAnswers{Answers: make([]models.Answer, 0, len(request.Answers))}
	now := time.Now().UTC()

	for _, input := range request.Answers {
		key := models.VersionKey{Name: input.QuestionName, Version: input.QuestionVersion}
		question, ok := questionsByKey[key]
		if !ok {
			// answers for questions outside the pinned version are dropped,
			// the validator has already rejected anything that matters
			continue
		}

		answer := models.Answer{
			ID:              uuid.New(),
			QuestionName:    question.Name,
			QuestionVersion: question.Version,
			QuestionType:    question.QuestionType,
			QuestionOrder:   question.Order,
			AnswerText:      normalizeAnswerText(input.AnswerText),
			AnsweredAt:      now,
		}

		scored := b.scoreSelections(question, input.SelectedOptions, isQuiz, isPersonality)
		answer.SelectedOptions = scored.selections
		answer.WaSum = scored.waSum

		if scored.isScoredQuestion {
			awarded := scored.awarded
			answer.ScoreAwarded = &awarded
			result.TotalScore += awarded
			result.MaxScore += maxScoreFor(question, isQuiz)
			result.HasScoredQuestions = true
		}

		result.Answers = append(result.Answers, answer)
	}

	return result
}

type scoredSelections struct {
	selections       []models.AnswerOption
	awarded          float64
	waSum            *float64
	isScoredQuestion bool
}

// scoreSelections resolves and scores one answer's selected options. On a
// quiz with correctness flags configured only correct selections earn their
// score; without flags a positive score doubles as the correctness signal.
func (b *answerBuilder) scoreSelections(question *models.Question, refs []OptionRef, isQuiz, isPersonality bool) scoredSelections {
	optionsByKey := question.OptionsByKey()
	correctnessConfigured := isQuiz && anyCorrectnessConfigured(question)
	isLikert := question.QuestionType == models.QuestionLikert
	ws := 1.0
	if question.Ws != nil {
		ws = *question.Ws
	}

	out := scoredSelections{
		selections:       make([]models.AnswerOption, 0, len(refs)),
		isScoredQuestion: anyOptionScored(question),
	}

	var waValues []float64
	for _, ref := range refs {
		option, ok := optionsByKey[models.VersionKey{Name: ref.OptionName, Version: ref.OptionVersion}]
		if !ok {
			continue
		}

		derived := deriveIsCorrect(option, isQuiz, correctnessConfigured)

		if option.Score != nil {
			counts := !isQuiz || !correctnessConfigured || (derived != nil && *derived)
			if counts {
				out.awarded += *option.Score
			}
		}

		if (isLikert || isPersonality) && option.Wa != nil {
			waValues = append(waValues, *option.Wa*ws)
		}

		out.selections = append(out.selections, models.AnswerOption{
			ID:            uuid.New(),
			OptionName:    option.Name,
			OptionVersion: option.Version,
			IsCorrect:     derived,
			Score:         option.Score,
			Wa:            option.Wa,
		})
	}

	if len(waValues) > 0 {
		var waSum float64
		if question.QuestionType.IsSingleSelect() || len(waValues) == 1 {
			waSum = waValues[0]
		} else {
			for _, v := range waValues {
				waSum += v
			}
			waSum /= float64(len(waValues))
		}
		out.waSum = &waSum
	}

	return out
}

// deriveIsCorrect resolves the correctness snapshot stored on the answer.
// When a quiz has no explicit flags a positive score marks the option
// correct.
func deriveIsCorrect(option *models.Option, isQuiz, correctnessConfigured bool) *bool {
	if correctnessConfigured {
		return option.IsCorrect
	}
	if isQuiz {
		correct := option.Score != nil && *option.Score > 0
		return &correct
	}
	return option.IsCorrect
}

// maxScoreFor computes the best achievable score of one question. Likert
// scales take the highest option score, single selects the best single pick,
// multi selects the sum of everything worth picking. Correctness flags gate
// the max only on quizzes, matching the award path.
func maxScoreFor(question *models.Question, isQuiz bool) float64 {
	correctnessConfigured := isQuiz && anyCorrectnessConfigured(question)

	if question.QuestionType == models.QuestionLikert {
		max := 0.0
		for i := range question.Options {
			if s := question.Options[i].Score; s != nil && *s > max {
				max = *s
			}
		}
		return max
	}

	if question.QuestionType.IsSingleSelect() {
		max := 0.0
		for i := range question.Options {
			opt := &question.Options[i]
			if opt.Score == nil {
				continue
			}
			if correctnessConfigured && (opt.IsCorrect == nil || !*opt.IsCorrect) {
				continue
			}
			if *opt.Score > max {
				max = *opt.Score
			}
		}
		return max
	}

	sum := 0.0
	for i := range question.Options {
		opt := &question.Options[i]
		if opt.Score == nil {
			continue
		}
		if correctnessConfigured {
			if opt.IsCorrect != nil && *opt.IsCorrect {
				sum += *opt.Score
			}
			continue
		}
		if *opt.Score > 0 {
			sum += *opt.Score
		}
	}
	return sum
}

func anyCorrectnessConfigured(question *models.Question) bool {
	for i := range question.Options {
		if question.Options[i].IsCorrect != nil {
			return true
		}
	}
	return false
}

func anyOptionScored(question *models.Question) bool {
	for i := range question.Options {
		if question.Options[i].Score != nil {
			return true
		}
	}
	return false
}

func normalizeAnswerText(text *string) *string {
	if text == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*text)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
