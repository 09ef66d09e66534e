package models

// Priority represents the priority of a task
type Priority string

const (
	PriorityHigh   Priority = "Alta"
	PriorityMedium Priority = "Media"
	PriorityLow    Priority = "Baja"
)

// Priorities lists every priority from highest to lowest.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Rank orders priorities: 0 is the most urgent. Unknown values sort last.
func (p Priority) Rank() int {
	for i, known := range Priorities {
		if p == known {
			return i
		}
	}
	return len(Priorities)
}

// Subtask is an ordered step owned by a single Task.
type Subtask struct {
	ID        string `json:"id" yaml:"id" gorm:"primaryKey"`
	TaskID    string `json:"-" yaml:"-" gorm:"column:task_id;not null;index:idx_subtasks_task_id"`
	Text      string `json:"text" yaml:"text" gorm:"not null"`
	Completed bool   `json:"completed" yaml:"completed"`
	Position  int    `json:"-" yaml:"-" gorm:"default:0"`
}

// TableName specifies the table name for Subtask Model
func (Subtask) TableName() string {
	return "subtasks"
}

// Task represents a task in the system
type Task struct {
	ID         string    `json:"id" yaml:"id" gorm:"primaryKey"`
	Title      string    `json:"title" yaml:"title" gorm:"not null"`
	Priority   Priority  `json:"priority" yaml:"priority" gorm:"not null"`
	Details    string    `json:"details,omitempty" yaml:"details,omitempty"`
	Subtasks   []Subtask `json:"subtasks" yaml:"subtasks" gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
	Completed  bool      `json:"completed" yaml:"completed"`
	CreatedAt  string    `json:"createdAt" yaml:"createdAt" gorm:"column:created_at;not null;index:idx_tasks_created_at"`
	TargetDate string    `json:"targetDate,omitempty" yaml:"targetDate,omitempty" gorm:"column:target_date;index:idx_tasks_target_date"`
	// Insertion time on the server, used for newest-first listing.
	CreatedTimestamp int64 `json:"-" yaml:"-" gorm:"column:created_timestamp;autoCreateTime:milli"`
}

// TableName specifies the table name for Task Model
func (Task) TableName() string {
	return "tasks"
}

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	if t.Subtasks != nil {
		subs := make([]Subtask, len(t.Subtasks))
		copy(subs, t.Subtasks)
		t.Subtasks = subs
	}
	return t
}

// CloneTasks deep-copies a task slice.
func CloneTasks(tasks []Task) []Task {
	out := make([]Task, len(tasks))
	for i := range tasks {
		out[i] = tasks[i].Clone()
	}
	return out
}

// Normalize replaces a nil subtask list with an empty one so the task
// serializes with "subtasks": [].
func (t *Task) Normalize() {
	if t.Subtasks == nil {
		t.Subtasks = []Subtask{}
	}
}

// AllSubtasksCompleted reports whether the task has subtasks and every one
// of them is completed.
func (t Task) AllSubtasksCompleted() bool {
	if len(t.Subtasks) == 0 {
		return false
	}
	for _, s := range t.Subtasks {
		if !s.Completed {
			return false
		}
	}
	return true
}

// SyncCompletion forces Completed to follow the subtasks when there are any:
// all done marks the task done, any open subtask reopens a done task.
// It reports whether the task changed.
func (t *Task) SyncCompletion() bool {
	if len(t.Subtasks) == 0 {
		return false
	}
	all := t.AllSubtasksCompleted()
	if all && !t.Completed {
		t.Completed = true
		return true
	}
	if !all && t.Completed {
		t.Completed = false
		return true
	}
	return false
}

// SyncAllCompletion applies SyncCompletion across the collection and returns
// the ids of the tasks it changed.
func SyncAllCompletion(tasks []Task) []string {
	var changed []string
	for i := range tasks {
		if tasks[i].SyncCompletion() {
			changed = append(changed, tasks[i].ID)
		}
	}
	return changed
}

// TaskPatch carries a partial task update. Nil fields are left untouched.
// ID and CreatedAt are immutable and cannot be patched.
type TaskPatch struct {
	Title      *string
	Priority   *Priority
	Details    *string
	Subtasks   *[]Subtask
	Completed  *bool
	TargetDate *string
}

// ApplyTo copies the non-nil fields of the patch onto t.
func (p TaskPatch) ApplyTo(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Details != nil {
		t.Details = *p.Details
	}
	if p.Subtasks != nil {
		subs := make([]Subtask, len(*p.Subtasks))
		copy(subs, *p.Subtasks)
		t.Subtasks = subs
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.TargetDate != nil {
		t.TargetDate = *p.TargetDate
	}
}
