package ids

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var now = time.Now

// NewTaskID returns a task id made of the current unix millis and a random suffix.
func NewTaskID() string {
	return newID("task")
}

// NewSubtaskID returns a subtask id in the same format as NewTaskID.
func NewSubtaskID() string {
	return newID("sub")
}

func newID(prefix string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s-%d-%s", prefix, now().UnixMilli(), suffix)
}
