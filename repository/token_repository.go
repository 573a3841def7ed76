package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"task-board-server/models"
)

type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByToken(ctx context.Context, token string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, token string) error
	RevokeAllForWorker(ctx context.Context, workerID uint) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type refreshTokenRepository struct {
	db *gorm.DB
}

func NewRefreshTokenRepository(db *gorm.DB) RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

func (r *refreshTokenRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *refreshTokenRepository) GetByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	var rt models.RefreshToken
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&rt).Error; err != nil {
		return nil, translate(err)
	}
	return &rt, nil
}

func (r *refreshTokenRepository) Revoke(ctx context.Context, token string) error {
	res := r.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token = ?", token).
		Update("is_revoked", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *refreshTokenRepository) RevokeAllForWorker(ctx context.Context, workerID uint) error {
	return r.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("worker_id = ? AND is_revoked = ?", workerID, false).
		Update("is_revoked", true).Error
}

func (r *refreshTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&models.RefreshToken{})
	return res.RowsAffected, res.Error
}
