package localstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"focusflow/internal/logging"
	"focusflow/internal/models"

	"github.com/sirupsen/logrus"
)

const (
	// TasksKey holds the JSON-encoded task array.
	TasksKey = "focusflow_tasks"
	// InitializedKey is set to "true" by every successful save, so an
	// explicitly saved empty list differs from a store never written to.
	InitializedKey = "focusflow_initialized"

	// StorageLimit is the byte budget of the store (5 MiB).
	StorageLimit = 5 * 1024 * 1024
	// saveLimit is 95% of StorageLimit; larger payloads are refused before writing.
	saveLimit = StorageLimit * 95 / 100
)

// ErrQuotaExceeded is returned when the task list no longer fits in the budget.
var ErrQuotaExceeded = errors.New("local storage is full: delete old tasks to free space")

// StorageInfo reports how much of the budget the task blob uses.
type StorageInfo struct {
	Used       int     `json:"used"`
	Limit      int     `json:"limit"`
	Percentage float64 `json:"percentage"`
	TaskCount  int     `json:"taskCount"`
}

// Store persists the whole task collection as a single blob. Every mutation
// reads the full list, changes it in memory and writes it back.
type Store struct {
	backend Backend
	log     logrus.FieldLogger
}

type Option func(*Store)

// WithLogger replaces the package logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Store) { s.log = l }
}

func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		log:     logging.Logger.WithField("component", "localstore"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetTasks returns the stored tasks. A blob that does not parse is removed
// and an empty list returned; records missing id, title, priority or a
// subtask list are skipped.
func (s *Store) GetTasks() []models.Task {
	data, ok, err := s.backend.GetItem(TasksKey)
	if err != nil {
		s.log.WithError(err).Error("failed to read tasks")
		return []models.Task{}
	}
	if !ok || data == "" {
		return []models.Task{}
	}

	var records []json.RawMessage
	if err := json.Unmarshal([]byte(data), &records); err != nil {
		s.log.WithError(err).Error("stored tasks are corrupted, clearing them")
		if err := s.backend.RemoveItem(TasksKey); err != nil {
			s.log.WithError(err).Error("failed to clear corrupted tasks")
		}
		return []models.Task{}
	}

	tasks := make([]models.Task, 0, len(records))
	for _, rec := range records {
		var t models.Task
		if err := json.Unmarshal(rec, &t); err != nil || !isValidRecord(t) {
			continue
		}
		tasks = append(tasks, t)
	}
	if dropped := len(records) - len(tasks); dropped > 0 {
		s.log.WithField("dropped", dropped).Warn("filtered out invalid tasks")
	}
	return tasks
}

func isValidRecord(t models.Task) bool {
	return t.ID != "" && t.Title != "" && t.Priority != "" && t.Subtasks != nil
}

// SaveTasks replaces the stored collection. It fails with ErrQuotaExceeded
// when the payload is over 95% of StorageLimit or the backend is full.
func (s *Store) SaveTasks(tasks []models.Task) error {
	if tasks == nil {
		tasks = []models.Task{}
	}
	data, err := encodeTasks(tasks)
	if err != nil {
		return fmt.Errorf("failed to encode tasks: %w", err)
	}
	if len(data) > saveLimit {
		return ErrQuotaExceeded
	}

	if err := s.backend.SetItem(TasksKey, string(data)); err != nil {
		if errors.Is(err, ErrBackendQuota) {
			return ErrQuotaExceeded
		}
		return fmt.Errorf("failed to write tasks: %w", err)
	}
	if err := s.backend.SetItem(InitializedKey, "true"); err != nil {
		if errors.Is(err, ErrBackendQuota) {
			return ErrQuotaExceeded
		}
		return fmt.Errorf("failed to write init marker: %w", err)
	}
	return nil
}

// AddTask appends a task and saves.
func (s *Store) AddTask(task models.Task) error {
	tasks := s.GetTasks()
	tasks = append(tasks, task)
	return s.SaveTasks(tasks)
}

// UpdateTask applies patch to the task with id. An unknown id is logged and ignored.
func (s *Store) UpdateTask(id string, patch models.TaskPatch) error {
	tasks := s.GetTasks()
	for i := range tasks {
		if tasks[i].ID == id {
			patch.ApplyTo(&tasks[i])
			return s.SaveTasks(tasks)
		}
	}
	s.log.WithField("task_id", id).Warn("task not found for update")
	return nil
}

// DeleteTask removes the task with id and saves.
func (s *Store) DeleteTask(id string) error {
	tasks := s.GetTasks()
	kept := tasks[:0]
	for _, t := range tasks {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	return s.SaveTasks(kept)
}

// encodeTasks renders tasks as compact JSON with <, > and & kept literal,
// so the stored size matches what the user typed.
func encodeTasks(tasks []models.Task) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(tasks); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// GetStorageInfo measures the current blob against StorageLimit.
func (s *Store) GetStorageInfo() StorageInfo {
	data, ok, err := s.backend.GetItem(TasksKey)
	if err != nil {
		s.log.WithError(err).Error("failed to read storage info")
		return StorageInfo{Limit: StorageLimit}
	}
	if !ok {
		data = "[]"
	}
	used := len(data)
	pct := float64(used) / float64(StorageLimit) * 100
	return StorageInfo{
		Used:       used,
		Limit:      StorageLimit,
		Percentage: math.Round(pct*10) / 10,
		TaskCount:  len(s.GetTasks()),
	}
}

// IsInitialized reports whether SaveTasks has succeeded since the last ClearAll.
func (s *Store) IsInitialized() bool {
	v, ok, err := s.backend.GetItem(InitializedKey)
	if err != nil {
		s.log.WithError(err).Error("failed to read init marker")
		return false
	}
	return ok && v == "true"
}

// ClearAll removes the task blob and the init marker.
func (s *Store) ClearAll() error {
	if err := s.backend.RemoveItem(TasksKey); err != nil {
		return fmt.Errorf("failed to clear tasks: %w", err)
	}
	if err := s.backend.RemoveItem(InitializedKey); err != nil {
		return fmt.Errorf("failed to clear init marker: %w", err)
	}
	return nil
}
