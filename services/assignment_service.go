package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"task-board-server/events"
	"task-board-server/models"
	"task-board-server/repository"
)

// Realtime event types sent to connected workers.
const (
	EventTaskAssigned = "task_assigned"
	EventTaskUpdated  = "task_updated"
)

// RealtimeNotifier pushes live events to connected worker sessions.
type RealtimeNotifier interface {
	NotifyWorkers(workerIDs []string, eventType string, payload interface{})
}

// RespondInput carries one worker response. WorkerID is the id the client
// claims and may be empty; SessionWorkerID is the authenticated worker and
// must own the resolved assignment.
type RespondInput struct {
	TaskID          uint
	WorkerID        string
	SessionWorkerID string
	Action          models.ResponseAction
}

// AssignmentService applies worker responses to their assignments.
type AssignmentService struct {
	tasks     repository.TaskRepository
	realtime  RealtimeNotifier
	publisher events.Publisher
	strict    bool
	log       *zap.Logger
}

func NewAssignmentService(
	tasks repository.TaskRepository,
	realtime RealtimeNotifier,
	publisher events.Publisher,
	strictMatch bool,
	log *zap.Logger,
) *AssignmentService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &AssignmentService{
		tasks:     tasks,
		realtime:  realtime,
		publisher: publisher,
		strict:    strictMatch,
		log:       log,
	}
}

// Respond records an accept or reject from one assigned worker. The read,
// the transition and the write happen under a row lock, so two workers
// racing to accept the same task cannot both win.
func (s *AssignmentService) Respond(ctx context.Context, in RespondInput) (*models.Task, error) {
	action := models.ResponseAction(strings.ToLower(strings.TrimSpace(string(in.Action))))
	session := strings.TrimSpace(in.SessionWorkerID)
	claimed := strings.TrimSpace(in.WorkerID)
	if in.TaskID == 0 || session == "" {
		return nil, ErrInvalidInput
	}
	if action != models.ActionAccept && action != models.ActionReject {
		return nil, fmt.Errorf("%w: action must be accept or reject", ErrInvalidInput)
	}

	var matched string
	task, err := s.tasks.UpdateLocked(ctx, in.TaskID, func(t *models.Task) error {
		owned := t.AssignmentFor(claimed, session, s.strict)
		if owned == nil {
			return models.ErrWorkerNotAssigned
		}
		entry, err := t.ApplyResponse(owned.WorkerID, action, true)
		if err != nil {
			return err
		}
		matched = entry.WorkerID
		return nil
	})
	if err != nil {
		return nil, s.translateRespondError(in.TaskID, session, err)
	}

	s.log.Info("assignment response recorded",
		zap.Uint("task_id", task.ID),
		zap.String("order_id", task.OrderID),
		zap.String("worker", matched),
		zap.String("action", string(action)),
		zap.String("status", string(task.Status)),
	)

	notifyRealtime(s.realtime, task.WorkerIDs(), EventTaskUpdated, task)
	publishTaskEvent(ctx, s.publisher, s.log, events.TaskResponded, task, events.TaskEvent{
		WorkerID: matched,
		Action:   string(action),
	})
	return task, nil
}

func (s *AssignmentService) translateRespondError(taskID uint, workerID string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrTaskNotFound
	case errors.Is(err, models.ErrWorkerNotAssigned):
		s.log.Warn("response from unassigned worker", zap.Uint("task_id", taskID), zap.String("worker", workerID))
		return ErrWorkerNotAssigned
	case errors.Is(err, models.ErrTaskResolved), errors.Is(err, repository.ErrConflict):
		return ErrTaskAlreadyResolved
	case errors.Is(err, models.ErrInvalidAction):
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	default:
		return fmt.Errorf("respond to task %d: %w", taskID, err)
	}
}

func notifyRealtime(rt RealtimeNotifier, workerIDs []string, eventType string, task *models.Task) {
	if rt == nil || len(workerIDs) == 0 {
		return
	}
	rt.NotifyWorkers(workerIDs, eventType, task)
}

// publishTaskEvent fills the task fields of ev and publishes it. Broker
// errors are logged only.
func publishTaskEvent(ctx context.Context, pub events.Publisher, log *zap.Logger, key string, task *models.Task, ev events.TaskEvent) {
	ev.Type = key
	ev.TaskID = task.ID
	ev.OrderID = task.OrderID
	ev.Status = string(task.Status)
	ev.OccurredAt = time.Now().UTC()
	if err := pub.Publish(ctx, key, ev); err != nil {
		log.Warn("task event not published", zap.String("key", key), zap.Uint("task_id", task.ID), zap.Error(err))
	}
}
