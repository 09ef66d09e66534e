package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"focusflow/internal/models"

	"github.com/go-playground/validator/v10"
)

// MaxTitleLength is the longest accepted title, in characters.
const MaxTitleLength = 200

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError maps a form field to its message.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// TaskInput is what a user submits when creating or editing a task.
type TaskInput struct {
	Title      string
	Priority   models.Priority
	Details    string
	TargetDate string
	Subtasks   []models.Subtask
	Completed  bool
}

type submission struct {
	Title      string `validate:"required,max=200"`
	Priority   string `validate:"oneof=Alta Media Baja"`
	TargetDate string `validate:"omitempty,datetime=2006-01-02"`
}

var validate = validator.New()

var messages = map[string]map[string]string{
	"title": {
		"required": "title is required",
		"max":      fmt.Sprintf("title must be at most %d characters", MaxTitleLength),
	},
	"priority":   {"oneof": "priority must be Alta, Media or Baja"},
	"targetDate": {"datetime": "target date must be YYYY-MM-DD"},
}

var fieldNames = map[string]string{
	"Title":      "title",
	"Priority":   "priority",
	"TargetDate": "targetDate",
}

// ValidateTask checks a submitted form and returns the cleaned input: title
// and details trimmed, an empty priority defaulted to Media, subtasks with
// blank text dropped. Subtasks are never validated individually.
func ValidateTask(in TaskInput) (TaskInput, error) {
	out := TaskInput{
		Title:      strings.TrimSpace(in.Title),
		Priority:   in.Priority,
		Details:    strings.TrimSpace(in.Details),
		TargetDate: strings.TrimSpace(in.TargetDate),
		Completed:  in.Completed,
		Subtasks:   []models.Subtask{},
	}
	if out.Priority == "" {
		out.Priority = models.PriorityMedium
	}
	for _, s := range in.Subtasks {
		if strings.TrimSpace(s.Text) == "" {
			continue
		}
		out.Subtasks = append(out.Subtasks, s)
	}

	err := validate.Struct(submission{
		Title:      out.Title,
		Priority:   string(out.Priority),
		TargetDate: out.TargetDate,
	})
	if err == nil {
		return out, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return out, err
	}
	ve := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		field := fieldNames[fe.Field()]
		msg, ok := messages[field][fe.Tag()]
		if !ok {
			msg = fmt.Sprintf("%s is invalid", field)
		}
		ve.Fields[field] = msg
	}
	return out, ve
}
