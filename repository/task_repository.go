package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"task-board-server/models"
)

// maxOrderIDAttempts bounds the retries when a generated order code collides.
const maxOrderIDAttempts = 10

type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id uint) (*models.Task, error)
	ListByWorker(ctx context.Context, workerID string) ([]models.Task, error)
	ListAll(ctx context.Context) ([]models.Task, error)
	// UpdateLocked loads the task under a row lock, lets fn mutate it and
	// persists the result only if the task status is still the one read.
	UpdateLocked(ctx context.Context, id uint, fn func(task *models.Task) error) (*models.Task, error)
}

type taskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) Create(ctx context.Context, task *models.Task) error {
	var err error
	for attempt := 0; attempt < maxOrderIDAttempts; attempt++ {
		err = r.db.WithContext(ctx).Create(task).Error
		if err == nil {
			return nil
		}
		if !isUniqueViolation(err, "order_id") {
			return err
		}
		resetForRetry(task)
	}
	return fmt.Errorf("could not allocate a unique order code after %d attempts: %w", maxOrderIDAttempts, err)
}

// resetForRetry clears generated identity so the next insert draws a new code.
func resetForRetry(task *models.Task) {
	task.ID = 0
	task.OrderID = ""
	for i := range task.Cart {
		task.Cart[i].ID = 0
		task.Cart[i].TaskID = 0
	}
	for i := range task.AssignedWorkers {
		task.AssignedWorkers[i].ID = 0
		task.AssignedWorkers[i].TaskID = 0
	}
}

func (r *taskRepository) GetByID(ctx context.Context, id uint) (*models.Task, error) {
	var task models.Task
	err := r.withChildren(r.db.WithContext(ctx)).First(&task, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &task, nil
}

func (r *taskRepository) ListByWorker(ctx context.Context, workerID string) ([]models.Task, error) {
	var tasks []models.Task
	sub := r.db.Model(&models.TaskAssignment{}).Select("task_id").Where("worker_id = ?", workerID)
	err := r.withChildren(r.db.WithContext(ctx)).
		Where("id IN (?)", sub).
		Order("created_at DESC").
		Find(&tasks).Error
	return tasks, err
}

func (r *taskRepository) ListAll(ctx context.Context) ([]models.Task, error) {
	var tasks []models.Task
	err := r.withChildren(r.db.WithContext(ctx)).Order("created_at DESC").Find(&tasks).Error
	return tasks, err
}

func (r *taskRepository) UpdateLocked(ctx context.Context, id uint, fn func(task *models.Task) error) (*models.Task, error) {
	var task models.Task

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&task, id).Error; err != nil {
			return translate(err)
		}
		if err := loadChildren(tx, &task); err != nil {
			return err
		}

		prevStatus := task.Status
		if err := fn(&task); err != nil {
			return err
		}

		res := tx.Model(&models.Task{}).
			Where("id = ? AND status = ?", task.ID, prevStatus).
			Updates(map[string]interface{}{
				"status":       task.Status,
				"is_approved":  task.IsApproved,
				"is_completed": task.IsCompleted,
				"is_canceled":  task.IsCanceled,
				"is_rejected":  task.IsRejected,
				"updated_at":   time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}

		for i := range task.AssignedWorkers {
			a := &task.AssignedWorkers[i]
			if a.ID == 0 {
				a.TaskID = task.ID
				a.Position = i
				if err := tx.Create(a).Error; err != nil {
					return err
				}
				continue
			}
			if err := tx.Model(&models.TaskAssignment{}).
				Where("id = ? AND task_id = ?", a.ID, task.ID).
				Update("status", a.Status).Error; err != nil {
				return err
			}
		}

		for i := range task.Proofs {
			p := &task.Proofs[i]
			if p.ID != 0 {
				continue
			}
			p.TaskID = task.ID
			if err := tx.Create(p).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) withChildren(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Cart", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("AssignedWorkers", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Proofs", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") })
}

// loadChildren reads associations with plain queries so the row lock on the
// parent is not repeated on them.
func loadChildren(tx *gorm.DB, task *models.Task) error {
	if err := tx.Where("task_id = ?", task.ID).Order("position").Find(&task.Cart).Error; err != nil {
		return err
	}
	if err := tx.Where("task_id = ?", task.ID).Order("position").Find(&task.AssignedWorkers).Error; err != nil {
		return err
	}
	return tx.Where("task_id = ?", task.ID).Order("created_at").Find(&task.Proofs).Error
}
