package database

import (
	"focusflow/internal/models"

	"gorm.io/gorm"
)

// Stats summarizes the task table.
type Stats struct {
	Total      int64                     `json:"total" yaml:"total"`
	Completed  int64                     `json:"completed" yaml:"completed"`
	Pending    int64                     `json:"pending" yaml:"pending"`
	Subtasks   int64                     `json:"subtasks" yaml:"subtasks"`
	ByPriority map[models.Priority]int64 `json:"byPriority" yaml:"byPriority"`
}

// CollectStats counts tasks, completed tasks, subtasks and tasks per priority.
func CollectStats(db *gorm.DB) (Stats, error) {
	st := Stats{ByPriority: make(map[models.Priority]int64, len(models.Priorities))}
	for _, p := range models.Priorities {
		st.ByPriority[p] = 0
	}

	if err := db.Model(&models.Task{}).Count(&st.Total).Error; err != nil {
		return Stats{}, err
	}
	if err := db.Model(&models.Task{}).Where("completed = ?", true).Count(&st.Completed).Error; err != nil {
		return Stats{}, err
	}
	if err := db.Model(&models.Subtask{}).Count(&st.Subtasks).Error; err != nil {
		return Stats{}, err
	}

	type row struct {
		Priority string
		Count    int64
	}
	var rows []row
	if err := db.Model(&models.Task{}).
		Select("priority, COUNT(*) as count").
		Group("priority").
		Scan(&rows).Error; err != nil {
		return Stats{}, err
	}
	for _, r := range rows {
		st.ByPriority[models.Priority(r.Priority)] = r.Count
	}

	st.Pending = st.Total - st.Completed
	return st, nil
}
