package validation

import (
	"errors"
	"strings"
	"testing"

	"focusflow/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTask_Valid(t *testing.T) {
	out, err := ValidateTask(TaskInput{
		Title:    "  Estudiar para examen  ",
		Priority: models.PriorityHigh,
		Details:  " capítulos 1-5 ",
		Subtasks: []models.Subtask{
			{ID: "s1", Text: "Leer"},
			{ID: "s2", Text: "   "},
			{ID: "s3", Text: ""},
			{ID: "s4", Text: "Resumir"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Estudiar para examen", out.Title)
	assert.Equal(t, "capítulos 1-5", out.Details)
	require.Len(t, out.Subtasks, 2)
	assert.Equal(t, "s1", out.Subtasks[0].ID)
	assert.Equal(t, "s4", out.Subtasks[1].ID)
}

func TestValidateTask_EmptyTitle(t *testing.T) {
	_, err := ValidateTask(TaskInput{Title: "   "})
	require.ErrorIs(t, err, ErrValidation)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "title is required", ve.Fields["title"])
}

func TestValidateTask_TitleLength(t *testing.T) {
	_, err := ValidateTask(TaskInput{Title: strings.Repeat("a", MaxTitleLength)})
	require.NoError(t, err)

	// characters, not bytes
	_, err = ValidateTask(TaskInput{Title: strings.Repeat("ñ", MaxTitleLength)})
	require.NoError(t, err)

	_, err = ValidateTask(TaskInput{Title: strings.Repeat("a", MaxTitleLength+1)})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields["title"], "200")
}

func TestValidateTask_DefaultsPriority(t *testing.T) {
	out, err := ValidateTask(TaskInput{Title: "x"})
	require.NoError(t, err)
	assert.Equal(t, models.PriorityMedium, out.Priority)
	assert.NotNil(t, out.Subtasks)
}

func TestValidateTask_InvalidPriorityAndDate(t *testing.T) {
	_, err := ValidateTask(TaskInput{Title: "x", Priority: "Urgente", TargetDate: "30/10/2025"})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Fields, 2)
	assert.Contains(t, ve.Fields, "priority")
	assert.Contains(t, ve.Fields, "targetDate")
	assert.Equal(t, "validation failed: priority: priority must be Alta, Media or Baja; targetDate: target date must be YYYY-MM-DD", err.Error())
}

func TestValidateTask_TargetDateOptional(t *testing.T) {
	out, err := ValidateTask(TaskInput{Title: "x", TargetDate: "2025-10-30"})
	require.NoError(t, err)
	assert.Equal(t, "2025-10-30", out.TargetDate)
}
