package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"task-board-server/config"
	"task-board-server/models"
)

const (
	MaxProofFiles    = 5
	MaxProofFileSize = 5 * 1024 * 1024
)

var allowedProofExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// ProofFile is one uploaded image, already opened by the caller.
type ProofFile struct {
	Filename string
	Size     int64
	Content  io.Reader
}

type UploadedMedia struct {
	URL      string
	PublicID string
}

// MediaUploader stores an image under folder and returns its public location.
type MediaUploader interface {
	Upload(ctx context.Context, content io.Reader, folder, publicID string) (*UploadedMedia, error)
}

// CloudinaryUploader uploads images to Cloudinary. The client is created on
// first use.
type CloudinaryUploader struct {
	cfg  config.CloudinaryConfig
	log  *zap.Logger
	once sync.Once
	cld  *cloudinary.Cloudinary
	err  error
}

func NewCloudinaryUploader(cfg config.CloudinaryConfig, log *zap.Logger) *CloudinaryUploader {
	return &CloudinaryUploader{cfg: cfg, log: log}
}

func (u *CloudinaryUploader) client() (*cloudinary.Cloudinary, error) {
	u.once.Do(func() {
		if u.cfg.CloudName == "" || u.cfg.APIKey == "" || u.cfg.APISecret == "" {
			u.err = errors.New("cloudinary not configured")
			return
		}
		u.cld, u.err = cloudinary.NewFromParams(u.cfg.CloudName, u.cfg.APIKey, u.cfg.APISecret)
		if u.err == nil {
			u.log.Info("cloudinary client ready", zap.String("cloud", u.cfg.CloudName))
		}
	})
	return u.cld, u.err
}

func (u *CloudinaryUploader) Upload(ctx context.Context, content io.Reader, folder, publicID string) (*UploadedMedia, error) {
	cld, err := u.client()
	if err != nil {
		return nil, err
	}
	overwrite := false
	unique := true
	res, err := cld.Upload.Upload(ctx, content, uploader.UploadParams{
		Folder:         folder,
		PublicID:       publicID,
		Overwrite:      &overwrite,
		UniqueFilename: &unique,
		ResourceType:   "image",
	})
	if err != nil {
		return nil, err
	}
	if res.Error.Message != "" {
		return nil, errors.New(res.Error.Message)
	}
	return &UploadedMedia{URL: res.SecureURL, PublicID: res.PublicID}, nil
}

type ProofService struct {
	tasks    taskUpdater
	uploader MediaUploader
	log      *zap.Logger
}

type taskUpdater interface {
	GetByID(ctx context.Context, id uint) (*models.Task, error)
	UpdateLocked(ctx context.Context, id uint, fn func(task *models.Task) error) (*models.Task, error)
}

func NewProofService(tasks taskUpdater, uploader MediaUploader, log *zap.Logger) *ProofService {
	return &ProofService{tasks: tasks, uploader: uploader, log: log}
}

// ValidateProofFile checks extension and size of one proof image.
func ValidateProofFile(filename string, size int64) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedProofExt[ext] {
		return fmt.Errorf("%w: %s is not a jpg, png or webp image", ErrInvalidInput, filename)
	}
	if size <= 0 || size > MaxProofFileSize {
		return fmt.Errorf("%w: %s must be between 1 byte and 5MB", ErrInvalidInput, filename)
	}
	return nil
}

// UploadProof stores completion photos for a task the worker has accepted
// and marks the task completed. workerID is the authenticated worker and must
// match the accepted assignment exactly.
func (s *ProofService) UploadProof(ctx context.Context, taskID uint, workerID string, files []ProofFile) (*models.Task, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files provided", ErrInvalidInput)
	}
	if len(files) > MaxProofFiles {
		return nil, fmt.Errorf("%w: at most %d files", ErrInvalidInput, MaxProofFiles)
	}
	for _, f := range files {
		if err := ValidateProofFile(f.Filename, f.Size); err != nil {
			return nil, err
		}
	}

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, translateTaskError(taskID, err)
	}
	if err := s.checkAccepted(task, workerID); err != nil {
		return nil, err
	}

	folder := fmt.Sprintf("tasks/%s/proof", task.OrderID)
	uploaded := make([]models.TaskProof, 0, len(files))
	for _, f := range files {
		base := strings.TrimSuffix(filepath.Base(f.Filename), filepath.Ext(f.Filename))
		media, err := s.uploader.Upload(ctx, f.Content, folder, base+"-"+uuid.NewString()[:8])
		if err != nil {
			s.log.Error("proof upload failed",
				zap.Uint("task_id", taskID),
				zap.String("file", f.Filename),
				zap.Error(err),
			)
			return nil, fmt.Errorf("upload %s: %w", f.Filename, err)
		}
		uploaded = append(uploaded, models.TaskProof{
			URL:        media.URL,
			PublicID:   media.PublicID,
			UploadedBy: workerID,
		})
	}

	updated, err := s.tasks.UpdateLocked(ctx, taskID, func(t *models.Task) error {
		if err := s.checkAccepted(t, workerID); err != nil {
			return err
		}
		t.Proofs = append(t.Proofs, uploaded...)
		t.IsCompleted = true
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotAccepted) || errors.Is(err, ErrTaskCanceled) {
			return nil, err
		}
		return nil, translateTaskError(taskID, err)
	}

	s.log.Info("proof uploaded",
		zap.Uint("task_id", taskID),
		zap.String("worker", workerID),
		zap.Int("files", len(uploaded)),
	)
	return updated, nil
}

func (s *ProofService) checkAccepted(task *models.Task, workerID string) error {
	if task.IsCanceled {
		return ErrTaskCanceled
	}
	entry := task.AssignmentOf(workerID)
	if entry == nil || entry.Status != models.AssignmentAccepted {
		return ErrNotAccepted
	}
	return nil
}
