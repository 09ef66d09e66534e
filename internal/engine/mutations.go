package engine

import (
	"context"
	"errors"
	"fmt"

	"focusflow/internal/apiclient"
	"focusflow/internal/models"
	"focusflow/internal/validation"
)

// mutation is one user change to the collection. apply captures whatever
// revert needs before touching anything; commit replays the change on the
// remote store using the tasks as they look after the completion pass.
type mutation interface {
	name() string
	apply(tasks []models.Task) ([]models.Task, error)
	targets() []string
	commit(ctx context.Context, r RemoteStore, committed []models.Task) error
	// revert undoes apply. ok is false for mutations that are never undone.
	revert(tasks []models.Task) (out []models.Task, ok bool)
}

func indexOf(tasks []models.Task, id string) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// restoreTask puts a snapshot back in place of the task with the same id.
func restoreTask(tasks []models.Task, before models.Task) ([]models.Task, bool) {
	i := indexOf(tasks, before.ID)
	if i < 0 {
		return tasks, false
	}
	tasks[i] = before.Clone()
	return tasks, true
}

func commitUpdate(ctx context.Context, r RemoteStore, committed []models.Task) error {
	if len(committed) != 1 {
		return fmt.Errorf("expected one task to commit, got %d", len(committed))
	}
	_, err := r.UpdateTask(ctx, committed[0].ID, committed[0])
	return err
}

// toggleTask flips a task and sets every subtask to the task's new value.
type toggleTask struct {
	id     string
	before models.Task
}

func (m *toggleTask) name() string      { return "toggle task" }
func (m *toggleTask) targets() []string { return []string{m.id} }

func (m *toggleTask) apply(tasks []models.Task) ([]models.Task, error) {
	i := indexOf(tasks, m.id)
	if i < 0 {
		return tasks, ErrTaskNotFound
	}
	m.before = tasks[i].Clone()

	t := &tasks[i]
	t.Completed = !t.Completed
	for j := range t.Subtasks {
		t.Subtasks[j].Completed = t.Completed
	}
	return tasks, nil
}

func (m *toggleTask) commit(ctx context.Context, r RemoteStore, committed []models.Task) error {
	return commitUpdate(ctx, r, committed)
}

func (m *toggleTask) revert(tasks []models.Task) ([]models.Task, bool) {
	return restoreTask(tasks, m.before)
}

// toggleSubtask flips one subtask; the parent follows through the completion pass.
type toggleSubtask struct {
	taskID    string
	subtaskID string
	before    models.Task
}

func (m *toggleSubtask) name() string      { return "toggle subtask" }
func (m *toggleSubtask) targets() []string { return []string{m.taskID} }

func (m *toggleSubtask) apply(tasks []models.Task) ([]models.Task, error) {
	i := indexOf(tasks, m.taskID)
	if i < 0 {
		return tasks, ErrTaskNotFound
	}
	subs := tasks[i].Subtasks
	for j := range subs {
		if subs[j].ID == m.subtaskID {
			m.before = tasks[i].Clone()
			subs[j].Completed = !subs[j].Completed
			return tasks, nil
		}
	}
	return tasks, ErrSubtaskNotFound
}

func (m *toggleSubtask) commit(ctx context.Context, r RemoteStore, committed []models.Task) error {
	return commitUpdate(ctx, r, committed)
}

func (m *toggleSubtask) revert(tasks []models.Task) ([]models.Task, bool) {
	return restoreTask(tasks, m.before)
}

// editTask replaces the editable fields and the whole subtask list.
// Completion is kept and then re-derived by the completion pass.
type editTask struct {
	id     string
	input  validation.TaskInput
	before models.Task
}

func (m *editTask) name() string      { return "edit task" }
func (m *editTask) targets() []string { return []string{m.id} }

func (m *editTask) apply(tasks []models.Task) ([]models.Task, error) {
	i := indexOf(tasks, m.id)
	if i < 0 {
		return tasks, ErrTaskNotFound
	}
	m.before = tasks[i].Clone()

	t := &tasks[i]
	t.Title = m.input.Title
	t.Priority = m.input.Priority
	t.Details = m.input.Details
	t.TargetDate = m.input.TargetDate
	t.Subtasks = withSubtaskIDs(m.input.Subtasks)
	return tasks, nil
}

func (m *editTask) commit(ctx context.Context, r RemoteStore, committed []models.Task) error {
	return commitUpdate(ctx, r, committed)
}

func (m *editTask) revert(tasks []models.Task) ([]models.Task, bool) {
	return restoreTask(tasks, m.before)
}

// createTasks adds new tasks at the top of the list. It is never reverted:
// the user already sees what they typed or dictated.
type createTasks struct {
	tasks []models.Task
}

func (m *createTasks) name() string { return "create task" }

func (m *createTasks) targets() []string {
	ids := make([]string, len(m.tasks))
	for i, t := range m.tasks {
		ids[i] = t.ID
	}
	return ids
}

func (m *createTasks) apply(tasks []models.Task) ([]models.Task, error) {
	seen := make(map[string]struct{}, len(m.tasks))
	for _, t := range m.tasks {
		if _, dup := seen[t.ID]; dup || indexOf(tasks, t.ID) >= 0 {
			return tasks, fmt.Errorf("%w: %s", ErrDuplicateTask, t.ID)
		}
		seen[t.ID] = struct{}{}
	}
	out := make([]models.Task, 0, len(tasks)+len(m.tasks))
	out = append(out, models.CloneTasks(m.tasks)...)
	out = append(out, tasks...)
	return out, nil
}

func (m *createTasks) commit(ctx context.Context, r RemoteStore, committed []models.Task) error {
	var errs []error
	for _, t := range committed {
		if _, err := r.CreateTask(ctx, t); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (m *createTasks) revert(tasks []models.Task) ([]models.Task, bool) {
	return tasks, false
}

// deleteTask removes a task; revert puts it back where it was.
type deleteTask struct {
	id     string
	before models.Task
	index  int
}

func (m *deleteTask) name() string      { return "delete task" }
func (m *deleteTask) targets() []string { return []string{m.id} }

func (m *deleteTask) apply(tasks []models.Task) ([]models.Task, error) {
	i := indexOf(tasks, m.id)
	if i < 0 {
		return tasks, ErrTaskNotFound
	}
	m.before = tasks[i].Clone()
	m.index = i
	return append(tasks[:i], tasks[i+1:]...), nil
}

func (m *deleteTask) commit(ctx context.Context, r RemoteStore, _ []models.Task) error {
	err := r.DeleteTask(ctx, m.id)
	if errors.Is(err, apiclient.ErrNotFound) {
		// already gone on the server, which is what we wanted
		return nil
	}
	return err
}

func (m *deleteTask) revert(tasks []models.Task) ([]models.Task, bool) {
	if indexOf(tasks, m.id) >= 0 {
		return tasks, false
	}
	i := m.index
	if i > len(tasks) {
		i = len(tasks)
	}
	out := make([]models.Task, 0, len(tasks)+1)
	out = append(out, tasks[:i]...)
	out = append(out, m.before.Clone())
	out = append(out, tasks[i:]...)
	return out, true
}
