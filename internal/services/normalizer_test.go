package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talentflow/questionnaire-service/internal/models"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello World", "hello_world"},
		{"  Trimmed  ", "trimmed"},
		{"Already_fine", "already_fine"},
		{"Symbols!@#Here", "symbols_here"},
		{"many --- separators", "many_separators"},
		{"___leading and trailing___", "leading_and_trailing"},
		{"UPPER", "upper"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in), "Slugify(%q)", tt.in)
	}
}

func TestNormalizeOptionName(t *testing.T) {
	repo := newFakeRepository()
	normalizer := NewOptionNameNormalizer(repo.Options())
	question := &models.Question{Name: "survey_q1", Version: 1}

	tests := []struct {
		name  string
		input OptionInput
		want  string
	}{
		{"nameless derives from label", OptionInput{Label: "Strongly Agree"}, "survey_q1_strongly_agree"},
		{"generic option prefix", OptionInput{Name: "option_a", Label: "A"}, "survey_q1_option_a"},
		{"generic opt prefix", OptionInput{Name: "opt_1", Label: "One"}, "survey_q1_opt_1"},
		{"explicit name passes through", OptionInput{Name: "survey_q1_custom", Label: "Custom"}, "survey_q1_custom"},
		{"whitespace name treated as empty", OptionInput{Name: "  ", Label: "Agree"}, "survey_q1_agree"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizer.NormalizeOptionName(tt.input, question))
		})
	}
}

func TestEnsureUniqueOptionNameV1(t *testing.T) {
	repo := newFakeRepository()
	normalizer := NewOptionNameNormalizer(repo.Options())
	ctx := context.Background()

	name, err := normalizer.EnsureUniqueOptionNameV1(ctx, "survey_q1_agree")
	require.NoError(t, err)
	assert.Equal(t, "survey_q1_agree", name, "free names pass through unchanged")

	repo.options[models.VersionKey{Name: "survey_q1_agree", Version: 1}] = &models.Option{
		Name: "survey_q1_agree", Version: 1,
	}

	name, err = normalizer.EnsureUniqueOptionNameV1(ctx, "survey_q1_agree")
	require.NoError(t, err)
	assert.Equal(t, "survey_q1_agree_2", name)

	repo.options[models.VersionKey{Name: "survey_q1_agree_2", Version: 1}] = &models.Option{
		Name: "survey_q1_agree_2", Version: 1,
	}

	name, err = normalizer.EnsureUniqueOptionNameV1(ctx, "survey_q1_agree")
	require.NoError(t, err)
	assert.Equal(t, "survey_q1_agree_3", name)

	_, err = normalizer.EnsureUniqueOptionNameV1(ctx, "  ")
	assert.ErrorIs(t, err, ErrOptionNameEmpty)
}
