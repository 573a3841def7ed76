package models

import (
	"time"
)

// Notification logs one push delivery attempt to a worker.
type Notification struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	WorkerID  string    `json:"worker_id" gorm:"size:64;not null;index"`
	TaskID    *uint     `json:"task_id" gorm:"index"`
	Title     string    `json:"title" gorm:"not null"`
	Body      string    `json:"body" gorm:"not null"`
	Data      string    `json:"data" gorm:"type:text"` // JSON data
	Provider  string    `json:"provider" gorm:"size:16"`
	MessageID string    `json:"message_id" gorm:"size:255"`
	Delivered bool      `json:"delivered" gorm:"default:false"`
	Error     string    `json:"error,omitempty" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
}
