// Package engine keeps the in-memory task list consistent with whichever
// store is authoritative: the remote task server or, when the server cannot
// be reached at startup, the local fallback store.
//
// Every change is applied in memory first and is visible through Tasks()
// before any I/O starts. The change is then committed: to the server in
// remote-authoritative mode (failed toggles, edits and deletes are undone,
// failed creates are kept), or by rewriting the whole local store in
// local-fallback mode. Failures never escape the public operations; they are
// recorded in Status() for the presentation layer.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"focusflow/internal/apiclient"
	"focusflow/internal/ids"
	"focusflow/internal/localstore"
	"focusflow/internal/logging"
	"focusflow/internal/models"
	"focusflow/internal/validation"

	"github.com/sirupsen/logrus"
)

// createdAtLayout matches JavaScript's Date.toISOString output.
const createdAtLayout = "2006-01-02T15:04:05.000Z07:00"

// Mode says which store is the source of truth.
type Mode int

const (
	ModeLocalFallback Mode = iota
	ModeRemoteAuthoritative
)

func (m Mode) String() string {
	if m == ModeRemoteAuthoritative {
		return "remote-authoritative"
	}
	return "local-fallback"
}

// RemoteStore is the task server as seen by the engine. *apiclient.Client implements it.
type RemoteStore interface {
	Health(ctx context.Context) bool
	ListTasks(ctx context.Context) ([]models.Task, error)
	CreateTask(ctx context.Context, task models.Task) (models.Task, error)
	UpdateTask(ctx context.Context, id string, task models.Task) (models.Task, error)
	DeleteTask(ctx context.Context, id string) error
	BulkCreateTasks(ctx context.Context, tasks []models.Task) (apiclient.BulkResult, error)
}

// LocalStore is the device-side fallback. *localstore.Store implements it.
type LocalStore interface {
	GetTasks() []models.Task
	SaveTasks(tasks []models.Task) error
	GetStorageInfo() localstore.StorageInfo
	ClearAll() error
}

var (
	_ RemoteStore = (*apiclient.Client)(nil)
	_ LocalStore  = (*localstore.Store)(nil)
)

// Engine owns the task collection. All methods are safe for concurrent use.
type Engine struct {
	remote RemoteStore
	local  LocalStore
	log    logrus.FieldLogger
	now    func() time.Time

	mu        sync.Mutex
	tasks     []models.Task
	revs      map[string]uint64
	mode      Mode
	migrating bool
	started   bool
	status    Status

	// serializes local writes so the newest collection is always written last
	persistMu sync.Mutex
}

type Option func(*Engine)

// WithClock sets the clock used to stamp createdAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) { e.log = l }
}

func New(remote RemoteStore, local LocalStore, opts ...Option) *Engine {
	e := &Engine{
		remote: remote,
		local:  local,
		log:    logging.Logger.WithField("component", "engine"),
		now:    time.Now,
		tasks:  []models.Task{},
		revs:   make(map[string]uint64),
		mode:   ModeLocalFallback,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start picks the authoritative store and loads the collection. It runs
// once; later calls return immediately.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return
	}
	e.started = true
	e.mu.Unlock()

	if !e.remote.Health(ctx) {
		e.log.Warn("task server unreachable, using local storage")
		e.adoptLocal(newStatus(KindUnreachable, ErrUnreachable, nil))
		return
	}

	remoteTasks, err := e.remote.ListTasks(ctx)
	if err != nil {
		e.log.WithError(err).Error("failed to load tasks from server, using local storage")
		e.adoptLocal(newStatus(KindUnreachable, ErrUnreachable, err))
		return
	}

	if len(remoteTasks) == 0 {
		if localTasks := e.local.GetTasks(); len(localTasks) > 0 {
			e.migrate(ctx, localTasks)
			return
		}
	}

	e.adopt(remoteTasks, ModeRemoteAuthoritative)
	e.log.WithField("count", len(remoteTasks)).Info("loaded tasks from server")
}

// migrate pushes local tasks into an empty server, reloads and clears the
// local store. A failed push keeps the local tasks and stays in local mode.
func (e *Engine) migrate(ctx context.Context, localTasks []models.Task) {
	e.setMigrating(true)
	defer e.setMigrating(false)

	log := e.log.WithField("count", len(localTasks))
	log.Info("migrating local tasks to server")

	res, err := e.remote.BulkCreateTasks(ctx, localTasks)
	if err != nil {
		log.WithError(err).Error("migration failed, keeping local tasks")
		e.adopt(localTasks, ModeLocalFallback)
		e.setStatus(newStatus(KindMigrationFailed, ErrMigrationFailed, err))
		return
	}
	if res.Errors > 0 {
		log.WithFields(logrus.Fields{"success": res.Success, "errors": res.Errors}).Warn("some tasks failed to migrate")
	}

	reloaded, err := e.remote.ListTasks(ctx)
	if err != nil {
		log.WithError(err).Error("failed to reload tasks after migration, using local storage")
		e.adoptLocal(newStatus(KindUnreachable, ErrUnreachable, err))
		return
	}

	if err := e.local.ClearAll(); err != nil {
		log.WithError(err).Error("failed to clear local storage after migration")
	}
	e.adopt(reloaded, ModeRemoteAuthoritative)
	log.WithField("migrated", res.Success).Info("migration complete")
}

func (e *Engine) adoptLocal(st Status) {
	e.adopt(e.local.GetTasks(), ModeLocalFallback)
	e.setStatus(st)
}

func (e *Engine) adopt(tasks []models.Task, mode Mode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tasks = models.CloneTasks(tasks)
	for i := range e.tasks {
		e.tasks[i].Normalize()
	}
	models.SyncAllCompletion(e.tasks)
	e.revs = make(map[string]uint64)
	e.mode = mode
}

// Tasks returns a copy of the collection.
func (e *Engine) Tasks() []models.Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	return models.CloneTasks(e.tasks)
}

// Task returns a copy of one task.
func (e *Engine) Task(id string) (models.Task, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i := indexOf(e.tasks, id); i >= 0 {
		return e.tasks[i].Clone(), true
	}
	return models.Task{}, false
}

func (e *Engine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// Migrating reports whether the startup migration is in progress.
func (e *Engine) Migrating() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.migrating
}

func (e *Engine) setMigrating(v bool) {
	e.mu.Lock()
	e.migrating = v
	e.mu.Unlock()
}

// Status returns the pending error, if any.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// ClearStatus dismisses the pending error.
func (e *Engine) ClearStatus() {
	e.setStatus(Status{})
}

func (e *Engine) setStatus(st Status) {
	e.mu.Lock()
	e.status = st
	e.mu.Unlock()
}

// StorageInfo reports local store usage.
func (e *Engine) StorageInfo() localstore.StorageInfo {
	return e.local.GetStorageInfo()
}

// ClearLocalData wipes the local store. In local-fallback mode the
// collection is emptied too, since the local store is its source of truth.
func (e *Engine) ClearLocalData() error {
	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	if err := e.local.ClearAll(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mode == ModeLocalFallback {
		e.tasks = []models.Task{}
		e.revs = make(map[string]uint64)
	}
	if e.status.Kind == KindQuotaExceeded {
		e.status = Status{}
	}
	return nil
}

// CreateTask validates a form submission and adds it as a new task.
func (e *Engine) CreateTask(ctx context.Context, in validation.TaskInput) (models.Task, error) {
	clean, err := validation.ValidateTask(in)
	if err != nil {
		return models.Task{}, err
	}
	task := models.Task{
		Title:      clean.Title,
		Priority:   clean.Priority,
		Details:    clean.Details,
		TargetDate: clean.TargetDate,
		Subtasks:   clean.Subtasks,
	}
	created, err := e.CreateTasks(ctx, []models.Task{task})
	if err != nil {
		return models.Task{}, err
	}
	if len(created) == 0 {
		return models.Task{}, ErrTaskNotFound
	}
	return created[0], nil
}

// CreateTasks adds a batch of tasks, e.g. the output of the organizer.
// Missing ids and createdAt are filled in.
func (e *Engine) CreateTasks(ctx context.Context, tasks []models.Task) ([]models.Task, error) {
	if len(tasks) == 0 {
		return []models.Task{}, nil
	}
	stamp := e.now().UTC().Format(createdAtLayout)
	prepared := make([]models.Task, len(tasks))
	for i, t := range tasks {
		t = t.Clone()
		if t.ID == "" {
			t.ID = ids.NewTaskID()
		}
		if t.CreatedAt == "" {
			t.CreatedAt = stamp
		}
		t.Subtasks = withSubtaskIDs(t.Subtasks)
		prepared[i] = t
	}

	// The snapshot taken when the batch was applied is returned, so a
	// concurrent delete during the commit cannot shrink the result.
	return e.run(ctx, &createTasks{tasks: prepared})
}

// EditTask validates a form submission and replaces the task's fields and subtasks.
func (e *Engine) EditTask(ctx context.Context, id string, in validation.TaskInput) (models.Task, error) {
	clean, err := validation.ValidateTask(in)
	if err != nil {
		return models.Task{}, err
	}
	edited, err := e.run(ctx, &editTask{id: id, input: clean})
	if err != nil {
		return models.Task{}, err
	}
	if len(edited) == 0 {
		return models.Task{}, ErrTaskNotFound
	}
	return edited[0], nil
}

// ToggleTask flips a task's completion and sets all its subtasks to match.
func (e *Engine) ToggleTask(ctx context.Context, id string) error {
	_, err := e.run(ctx, &toggleTask{id: id})
	return err
}

// ToggleSubtask flips one subtask; the task's completion is re-derived.
func (e *Engine) ToggleSubtask(ctx context.Context, taskID, subtaskID string) error {
	_, err := e.run(ctx, &toggleSubtask{taskID: taskID, subtaskID: subtaskID})
	return err
}

// DeleteTask removes a task.
func (e *Engine) DeleteTask(ctx context.Context, id string) error {
	_, err := e.run(ctx, &deleteTask{id: id})
	return err
}

// run applies m in memory, then commits it to the authoritative store.
// It returns copies of the targeted tasks as they were right after apply.
// Only apply errors (unknown ids, duplicates) are returned.
func (e *Engine) run(ctx context.Context, m mutation) ([]models.Task, error) {
	e.mu.Lock()
	next, err := m.apply(e.tasks)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	e.tasks = next
	models.SyncAllCompletion(e.tasks)

	revs := make(map[string]uint64, len(m.targets()))
	var committed []models.Task
	for _, id := range m.targets() {
		e.revs[id]++
		revs[id] = e.revs[id]
		if i := indexOf(e.tasks, id); i >= 0 {
			committed = append(committed, e.tasks[i].Clone())
		}
	}
	mode := e.mode
	e.mu.Unlock()

	if mode == ModeLocalFallback {
		e.persistLocal()
		return models.CloneTasks(committed), nil
	}

	if err := m.commit(ctx, e.remote, committed); err != nil {
		e.compensate(m, revs, err)
	}
	return models.CloneTasks(committed), nil
}

// compensate undoes a mutation whose commit failed, unless a later
// mutation has touched the same task since; that one owns the state now.
func (e *Engine) compensate(m mutation, revs map[string]uint64, cause error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	log := e.log.WithError(cause).WithField("op", m.name())
	stale := false
	for id, rev := range revs {
		if e.revs[id] != rev {
			stale = true
		}
	}

	switch {
	case stale:
		log.Warn("commit failed, newer change in progress, not reverting")
	default:
		next, reverted := m.revert(e.tasks)
		if reverted {
			e.tasks = next
			models.SyncAllCompletion(e.tasks)
			for id := range revs {
				e.revs[id]++
			}
			log.Warn("commit failed, change reverted")
		} else {
			log.Error("commit failed")
		}
	}
	e.status = newStatus(KindCommitFailed, ErrCommitFailed, cause)
}

// persistLocal writes the current collection to the local store.
func (e *Engine) persistLocal() {
	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	e.mu.Lock()
	snapshot := models.CloneTasks(e.tasks)
	e.mu.Unlock()

	err := e.local.SaveTasks(snapshot)
	if err == nil {
		return
	}
	if errors.Is(err, localstore.ErrQuotaExceeded) {
		e.log.WithError(err).Error("local storage full")
		e.setStatus(newStatus(KindQuotaExceeded, localstore.ErrQuotaExceeded, nil))
		return
	}
	e.log.WithError(err).Error("failed to save tasks locally")
	e.setStatus(newStatus(KindStorageFailed, ErrStorageFailed, err))
}

// withSubtaskIDs copies subs, giving an id to every subtask that lacks one
// or repeats an earlier one.
func withSubtaskIDs(subs []models.Subtask) []models.Subtask {
	out := make([]models.Subtask, 0, len(subs))
	seen := make(map[string]struct{}, len(subs))
	for _, s := range subs {
		if _, dup := seen[s.ID]; s.ID == "" || dup {
			s.ID = ids.NewSubtaskID()
		}
		seen[s.ID] = struct{}{}
		s.TaskID = ""
		s.Position = 0
		out = append(out, s)
	}
	return out
}
