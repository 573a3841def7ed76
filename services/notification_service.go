package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"task-board-server/config"
	"task-board-server/models"
	"task-board-server/repository"
)

const taskAssignedTitle = "New Task Assigned!"

type NotificationService struct {
	workers       repository.WorkerRepository
	notifications repository.NotificationRepository
	sender        PushSender
	cfg           config.PushConfig
	log           *zap.Logger
}

func NewNotificationService(
	workers repository.WorkerRepository,
	notifications repository.NotificationRepository,
	sender PushSender,
	cfg config.PushConfig,
	log *zap.Logger,
) *NotificationService {
	return &NotificationService{
		workers:       workers,
		notifications: notifications,
		sender:        sender,
		cfg:           cfg,
		log:           log,
	}
}

// NotifyTaskAssigned pushes a "new task" alert to one worker. It reports
// whether the provider accepted the message; failures never surface as errors.
func (s *NotificationService) NotifyTaskAssigned(ctx context.Context, workerID string, task *models.Task) bool {
	worker, ok := s.reachableWorker(ctx, workerID)
	if !ok {
		return false
	}

	msg := PushMessage{
		Token: *worker.PushToken,
		Title: taskAssignedTitle,
		Body:  fmt.Sprintf("Task #%s: %s", task.OrderID, task.Description()),
		Icon:  s.cfg.IconURL,
		Link:  s.cfg.TasksURL,
		Data: map[string]string{
			"taskId":       strconv.FormatUint(uint64(task.ID), 10),
			"orderId":      task.OrderID,
			"click_action": s.cfg.TasksURL,
		},
	}
	taskID := task.ID
	return s.deliver(ctx, worker.WorkerID, &taskID, msg)
}

// SendTest delivers an ad-hoc message to the worker's registered device.
func (s *NotificationService) SendTest(ctx context.Context, workerID, title, body string) (bool, error) {
	worker, err := s.workers.GetByWorkerID(ctx, workerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrWorkerNotFound
		}
		return false, err
	}
	if !worker.HasPushToken() {
		s.log.Warn("push skipped: no push token", zap.String("worker", workerID))
		return false, nil
	}
	if title == "" {
		title = "Test notification"
	}
	if body == "" {
		body = "Push notifications are working."
	}
	msg := PushMessage{
		Token: *worker.PushToken,
		Title: title,
		Body:  body,
		Icon:  s.cfg.IconURL,
		Link:  s.cfg.TasksURL,
		Data:  map[string]string{"click_action": s.cfg.TasksURL},
	}
	return s.deliver(ctx, worker.WorkerID, nil, msg), nil
}

func (s *NotificationService) RegisterPushToken(ctx context.Context, workerID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidInput
	}
	if err := s.workers.UpdatePushToken(ctx, workerID, &token); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrWorkerNotFound
		}
		return err
	}
	s.log.Info("push token registered", zap.String("worker", workerID))
	return nil
}

func (s *NotificationService) reachableWorker(ctx context.Context, workerID string) (*models.Worker, bool) {
	worker, err := s.workers.GetByWorkerID(ctx, workerID)
	if err != nil {
		s.log.Warn("push skipped: worker lookup failed", zap.String("worker", workerID), zap.Error(err))
		return nil, false
	}
	if !worker.HasPushToken() {
		s.log.Warn("push skipped: no push token", zap.String("worker", workerID))
		return nil, false
	}
	return worker, true
}

func (s *NotificationService) deliver(ctx context.Context, workerID string, taskID *uint, msg PushMessage) bool {
	messageID, sendErr := s.sender.Send(ctx, msg)

	record := &models.Notification{
		WorkerID:  workerID,
		TaskID:    taskID,
		Title:     msg.Title,
		Body:      msg.Body,
		Provider:  s.sender.Name(),
		MessageID: messageID,
		Delivered: sendErr == nil,
	}
	if data, err := json.Marshal(msg.Data); err == nil {
		record.Data = string(data)
	}
	if sendErr != nil {
		record.Error = sendErr.Error()
		s.log.Error("push delivery failed",
			zap.String("worker", workerID),
			zap.String("provider", s.sender.Name()),
			zap.Error(sendErr),
		)
	} else {
		s.log.Info("push delivered", zap.String("worker", workerID), zap.String("message_id", messageID))
	}

	if s.notifications != nil {
		if err := s.notifications.Create(ctx, record); err != nil {
			s.log.Warn("could not record notification", zap.String("worker", workerID), zap.Error(err))
		}
	}
	return sendErr == nil
}
