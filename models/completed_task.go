package models

import "time"

// CompletedTask is one completion event. Daily tasks accumulate one row per
// calendar day; other tasks have at most one row per (user, task) pair.
type CompletedTask struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         int64     `gorm:"column:user_id;not null;index:idx_user_task" json:"user_id"`
	TaskID         uint      `gorm:"column:task_id;not null;index:idx_user_task" json:"task_id"`
	CompletionDate time.Time `gorm:"column:completion_date;autoCreateTime" json:"completion_date"`
}

func (CompletedTask) TableName() string {
	return "completed_tasks"
}
