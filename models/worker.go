package models

import (
	"strings"
	"time"
)

// WorkerRole is the service category a worker covers.
type WorkerRole string

const (
	RoleMakeup   WorkerRole = "MU"
	RoleCleaning WorkerRole = "CL"
	RoleDecor    WorkerRole = "DC"
)

// Worker is a field worker account. Workers are created by the seeding tool
// and only mutated when they register a push token.
type Worker struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	WorkerID     string     `json:"workerId" gorm:"size:64;uniqueIndex;not null"`
	Name         string     `json:"name" gorm:"size:255"`
	Email        *string    `json:"email,omitempty" gorm:"size:255;uniqueIndex"`
	PasswordHash string     `json:"-" gorm:"size:255;not null"`
	Role         WorkerRole `json:"role" gorm:"type:varchar(2);not null;check:role IN ('MU','CL','DC')"`
	PushToken    *string    `json:"-" gorm:"size:512"`
	IsActive     bool       `json:"is_active" gorm:"default:true"`
	CreatedAt    time.Time  `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `json:"updatedAt" gorm:"autoUpdateTime"`
}

// IsValidRole checks if the worker role is valid
func (w *Worker) IsValidRole() bool {
	switch w.Role {
	case RoleMakeup, RoleCleaning, RoleDecor:
		return true
	default:
		return false
	}
}

// HasPushToken reports whether the worker can be reached by push.
func (w *Worker) HasPushToken() bool {
	return w.PushToken != nil && strings.TrimSpace(*w.PushToken) != ""
}

// RoleFromWorkerID derives the role from the id prefix, e.g. "CL001" -> CL.
func RoleFromWorkerID(workerID string) (WorkerRole, bool) {
	if len(workerID) < 2 {
		return "", false
	}
	role := WorkerRole(strings.ToUpper(workerID[:2]))
	w := Worker{Role: role}
	return role, w.IsValidRole()
}
