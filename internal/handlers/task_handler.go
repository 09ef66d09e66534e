package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"focusflow/internal/cache"
	"focusflow/internal/database"
	"focusflow/internal/ids"
	"focusflow/internal/logging"
	"focusflow/internal/models"
	"focusflow/internal/realtime"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SubtaskRequest is a subtask as sent by clients. A missing id is generated.
type SubtaskRequest struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// CreateTaskRequest represents the request payload for creating a task.
// Clients generate the id and createdAt.
type CreateTaskRequest struct {
	ID         string           `json:"id" binding:"required"`
	Title      string           `json:"title" binding:"required"`
	Priority   models.Priority  `json:"priority" binding:"required"`
	Details    string           `json:"details"`
	Completed  bool             `json:"completed"`
	CreatedAt  string           `json:"createdAt" binding:"required"`
	TargetDate string           `json:"targetDate"`
	Subtasks   []SubtaskRequest `json:"subtasks"`
}

// UpdateTaskRequest represents the request payload for updating a task.
// Absent fields are left as they are; a subtask list replaces the stored one.
type UpdateTaskRequest struct {
	Title      *string           `json:"title"`
	Priority   *models.Priority  `json:"priority"`
	Details    *string           `json:"details"`
	Completed  *bool             `json:"completed"`
	TargetDate *string           `json:"targetDate"`
	Subtasks   *[]SubtaskRequest `json:"subtasks"`
}

const taskListKey = "tasks"

var (
	taskListCache    cache.Cache[string, []models.Task] = cache.NewSimpleCache[string, []models.Task]()
	taskListCacheTTL                                    = 30 * time.Second
)

// SetCacheTTL sets how long the task list is served from memory.
func SetCacheTTL(ttl time.Duration) {
	taskListCacheTTL = ttl
	taskListCache.Clear()
}

func invalidateTaskList() {
	taskListCache.Delete(taskListKey)
}

func toSubtasks(reqs []SubtaskRequest) []models.Subtask {
	subs := make([]models.Subtask, 0, len(reqs))
	for _, r := range reqs {
		id := strings.TrimSpace(r.ID)
		if id == "" {
			id = ids.NewSubtaskID()
		}
		subs = append(subs, models.Subtask{ID: id, Text: r.Text, Completed: r.Completed})
	}
	return subs
}

func (r CreateTaskRequest) toTask() models.Task {
	return models.Task{
		ID:         r.ID,
		Title:      r.Title,
		Priority:   r.Priority,
		Details:    r.Details,
		Completed:  r.Completed,
		CreatedAt:  r.CreatedAt,
		TargetDate: r.TargetDate,
		Subtasks:   toSubtasks(r.Subtasks),
	}
}

func (r UpdateTaskRequest) applyTo(t *models.Task) {
	patch := models.TaskPatch{
		Title:      r.Title,
		Priority:   r.Priority,
		Details:    r.Details,
		Completed:  r.Completed,
		TargetDate: r.TargetDate,
	}
	if r.Subtasks != nil {
		subs := toSubtasks(*r.Subtasks)
		patch.Subtasks = &subs
	}
	patch.ApplyTo(t)
}

func broadcast(evt realtime.Event) {
	realtime.GetHub().Broadcast(evt)
}

/*
*
GetTasks handles GET /api/tasks
Returns every task, newest first.
*/
func GetTasks(c *gin.Context) {
	tasks, err := taskListCache.GetOrLoad(taskListKey, taskListCacheTTL, func() ([]models.Task, error) {
		return database.ListTasks(database.GetDB())
	})
	if err != nil {
		logging.Logger.WithError(err).Error("failed to fetch tasks")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to fetch tasks",
		})
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// GetTaskByID handles GET /api/tasks/:id
func GetTaskByID(c *gin.Context) {
	task, err := database.FindTask(database.GetDB(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		} else {
			logging.Logger.WithError(err).Error("failed to fetch task")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch task"})
		}
		return
	}
	c.JSON(http.StatusOK, task)
}

/*
*
CreateTask handles POST /api/tasks
Stores a task whose id and createdAt were chosen by the client.
*/
func CreateTask(c *gin.Context) {
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Missing required fields",
		})
		return
	}
	if !req.Priority.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid priority",
		})
		return
	}

	db := database.GetDB()
	task := req.toTask()
	if err := database.InsertTask(db, task); err != nil {
		if errors.Is(err, database.ErrTaskExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "Task already exists"})
			return
		}
		logging.Logger.WithError(err).WithField("task_id", task.ID).Error("failed to create task")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create task",
		})
		return
	}
	invalidateTaskList()

	created, err := database.FindTask(db, task.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch task"})
		return
	}

	broadcast(realtime.Event{Type: realtime.TaskCreated, TaskID: created.ID})
	c.JSON(http.StatusCreated, created)
}

// UpdateTask handles PUT /api/tasks/:id
func UpdateTask(c *gin.Context) {
	taskID := c.Param("id")
	db := database.GetDB()

	existing, err := database.FindTask(db, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Task not found",
			})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to fetch task",
			})
		}
		return
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}
	if req.Priority != nil && !req.Priority.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid priority"})
		return
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title cannot be empty"})
		return
	}

	req.applyTo(&existing)
	if err := database.SaveTask(db, existing); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// deleted between the read and the write
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		logging.Logger.WithError(err).WithField("task_id", taskID).Error("failed to update task")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to update task",
		})
		return
	}
	invalidateTaskList()

	updated, err := database.FindTask(db, taskID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch task"})
		return
	}

	broadcast(realtime.Event{Type: realtime.TaskUpdated, TaskID: taskID})
	c.JSON(http.StatusOK, updated)
}

// DeleteTask handles DELETE /api/tasks/:id
func DeleteTask(c *gin.Context) {
	taskID := c.Param("id")

	if err := database.DeleteTask(database.GetDB(), taskID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Task not found",
			})
		} else {
			logging.Logger.WithError(err).WithField("task_id", taskID).Error("failed to delete task")
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to delete task",
			})
		}
		return
	}
	invalidateTaskList()

	broadcast(realtime.Event{Type: realtime.TaskDeleted, TaskID: taskID})
	c.JSON(http.StatusOK, gin.H{
		"message": "Task deleted successfully",
		"id":      taskID,
	})
}

/*
*
BulkCreateTasks handles POST /api/tasks/bulk
Upserts every task in the array independently; one bad record does not stop
the others. Used to migrate tasks kept on a device.
*/
func BulkCreateTasks(c *gin.Context) {
	// records are decoded one by one so a malformed entry only fails itself
	var records []json.RawMessage
	if err := c.ShouldBindJSON(&records); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Expected an array of tasks"})
		return
	}

	db := database.GetDB()
	success, failed := 0, 0
	for _, rec := range records {
		var req CreateTaskRequest
		if err := json.Unmarshal(rec, &req); err != nil {
			failed++
			continue
		}
		if req.ID == "" || req.Title == "" || req.CreatedAt == "" || !req.Priority.Valid() {
			logging.Logger.WithField("task_id", req.ID).Warn("skipping invalid task in bulk import")
			failed++
			continue
		}
		if err := database.UpsertTask(db, req.toTask()); err != nil {
			logging.Logger.WithError(err).WithField("task_id", req.ID).Error("failed to import task")
			failed++
			continue
		}
		success++
	}
	invalidateTaskList()

	if success > 0 {
		broadcast(realtime.Event{Type: realtime.TasksImported, Count: success})
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Bulk import completed",
		"success": success,
		"errors":  failed,
	})
}

// GetStats handles GET /api/stats
func GetStats(c *gin.Context) {
	st, err := database.CollectStats(database.GetDB())
	if err != nil {
		logging.Logger.WithError(err).Error("failed to compute stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
		return
	}
	c.JSON(http.StatusOK, st)
}

// Health handles GET /api/health
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
}
