package repository

import (
	"context"

	"gorm.io/gorm"

	"task-board-server/models"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByWorker(ctx context.Context, workerID string, limit int) ([]models.Notification, error)
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notificationRepository) ListByWorker(ctx context.Context, workerID string, limit int) ([]models.Notification, error) {
	var notifications []models.Notification
	err := r.db.WithContext(ctx).
		Where("worker_id = ?", workerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&notifications).Error
	return notifications, err
}
