package repository

import (
	"context"

	"gorm.io/gorm"

	"task-board-server/models"
)

type WorkerRepository interface {
	GetByWorkerID(ctx context.Context, workerID string) (*models.Worker, error)
	GetByID(ctx context.Context, id uint) (*models.Worker, error)
	ListByWorkerIDs(ctx context.Context, workerIDs []string) ([]models.Worker, error)
	UpdatePushToken(ctx context.Context, workerID string, token *string) error
}

type workerRepository struct {
	db *gorm.DB
}

func NewWorkerRepository(db *gorm.DB) WorkerRepository {
	return &workerRepository{db: db}
}

func (r *workerRepository) GetByWorkerID(ctx context.Context, workerID string) (*models.Worker, error) {
	var worker models.Worker
	if err := r.db.WithContext(ctx).Where("worker_id = ?", workerID).First(&worker).Error; err != nil {
		return nil, translate(err)
	}
	return &worker, nil
}

func (r *workerRepository) GetByID(ctx context.Context, id uint) (*models.Worker, error) {
	var worker models.Worker
	if err := r.db.WithContext(ctx).First(&worker, id).Error; err != nil {
		return nil, translate(err)
	}
	return &worker, nil
}

func (r *workerRepository) ListByWorkerIDs(ctx context.Context, workerIDs []string) ([]models.Worker, error) {
	var workers []models.Worker
	if len(workerIDs) == 0 {
		return workers, nil
	}
	err := r.db.WithContext(ctx).Where("worker_id IN ?", workerIDs).Find(&workers).Error
	return workers, err
}

func (r *workerRepository) UpdatePushToken(ctx context.Context, workerID string, token *string) error {
	res := r.db.WithContext(ctx).Model(&models.Worker{}).
		Where("worker_id = ?", workerID).
		Update("push_token", token)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
