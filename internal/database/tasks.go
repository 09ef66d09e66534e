package database

import (
	"errors"
	"fmt"

	"focusflow/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrTaskExists is returned by InsertTask when the id is already taken.
var ErrTaskExists = errors.New("task already exists")

func withOrderedSubtasks(db *gorm.DB) *gorm.DB {
	return db.Preload("Subtasks", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("position asc")
	})
}

// ListTasks returns every task newest first, subtasks in their stored order.
func ListTasks(db *gorm.DB) ([]models.Task, error) {
	var tasks []models.Task
	err := withOrderedSubtasks(db).
		Order("created_timestamp desc").
		Order("created_at desc").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		tasks[i].Normalize()
	}
	return tasks, nil
}

// FindTask loads one task. It returns gorm.ErrRecordNotFound when absent.
func FindTask(db *gorm.DB, id string) (models.Task, error) {
	var task models.Task
	if err := withOrderedSubtasks(db).Where("id = ?", id).First(&task).Error; err != nil {
		return models.Task{}, err
	}
	task.Normalize()
	return task, nil
}

// InsertTask stores a new task and its subtasks in one transaction.
func InsertTask(db *gorm.DB, task models.Task) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Task{}).Where("id = ?", task.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrTaskExists
		}
		if err := tx.Omit(clause.Associations).Create(&task).Error; err != nil {
			return err
		}
		return insertSubtasks(tx, task.ID, task.Subtasks)
	})
}

// SaveTask overwrites the task's columns and replaces its subtask list.
// It returns gorm.ErrRecordNotFound when the task does not exist.
func SaveTask(db *gorm.DB, task models.Task) error {
	return db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Task{}).Where("id = ?", task.ID).Updates(map[string]any{
			"title":       task.Title,
			"priority":    task.Priority,
			"details":     task.Details,
			"completed":   task.Completed,
			"target_date": task.TargetDate,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return replaceSubtasks(tx, task.ID, task.Subtasks)
	})
}

// UpsertTask inserts the task or replaces an existing one with the same id.
// Used by bulk import, where every record is written independently.
func UpsertTask(db *gorm.DB, task models.Task) error {
	return db.Transaction(func(tx *gorm.DB) error {
		err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "priority", "details", "completed", "created_at", "target_date"}),
		}).Create(&task).Error
		if err != nil {
			return err
		}
		return replaceSubtasks(tx, task.ID, task.Subtasks)
	})
}

// DeleteTask removes a task and its subtasks. It returns
// gorm.ErrRecordNotFound when nothing was deleted.
func DeleteTask(db *gorm.DB, id string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&models.Subtask{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Task{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func replaceSubtasks(tx *gorm.DB, taskID string, subs []models.Subtask) error {
	if err := tx.Where("task_id = ?", taskID).Delete(&models.Subtask{}).Error; err != nil {
		return err
	}
	return insertSubtasks(tx, taskID, subs)
}

func insertSubtasks(tx *gorm.DB, taskID string, subs []models.Subtask) error {
	if len(subs) == 0 {
		return nil
	}
	rows := make([]models.Subtask, len(subs))
	for i, s := range subs {
		s.TaskID = taskID
		s.Position = i
		rows[i] = s
	}
	if err := tx.Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to insert subtasks: %w", err)
	}
	return nil
}
