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

const defaultNotifyTimeout = 15 * time.Second

// AssignmentNotifier alerts a worker that a task was assigned to them.
type AssignmentNotifier interface {
	NotifyTaskAssigned(ctx context.Context, workerID string, task *models.Task) bool
}

type CartItemInput struct {
	Name     string
	Price    float64
	Quantity int
	Category string
}

type CreateTaskInput struct {
	CustomerName  string
	Email         string
	Phone         string
	Address       string
	Pincode       string
	Cart          []CartItemInput
	Subtotal      float64
	Discount      float64
	Total         float64
	PaymentMethod string
	Date          string
	TimeSlot      string
	WorkerIDs     []string
}

type TaskService struct {
	tasks     repository.TaskRepository
	workers   repository.WorkerRepository
	notifier  AssignmentNotifier
	realtime  RealtimeNotifier
	publisher events.Publisher
	log       *zap.Logger

	notifyTimeout time.Duration
	// goAsync runs notification fan-out off the request path.
	goAsync func(func())
}

func NewTaskService(
	tasks repository.TaskRepository,
	workers repository.WorkerRepository,
	notifier AssignmentNotifier,
	realtime RealtimeNotifier,
	publisher events.Publisher,
	log *zap.Logger,
) *TaskService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &TaskService{
		tasks:         tasks,
		workers:       workers,
		notifier:      notifier,
		realtime:      realtime,
		publisher:     publisher,
		log:           log,
		notifyTimeout: defaultNotifyTimeout,
		goAsync:       func(fn func()) { go fn() },
	}
}

func (s *TaskService) Create(ctx context.Context, in CreateTaskInput) (*models.Task, error) {
	task, err := buildTask(in)
	if err != nil {
		return nil, err
	}

	workerIDs := uniqueIDs(in.WorkerIDs)
	if len(workerIDs) > 0 {
		if err := s.ensureWorkersExist(ctx, workerIDs); err != nil {
			return nil, err
		}
		task.AddAssignments(workerIDs)
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	s.log.Info("task created",
		zap.Uint("task_id", task.ID),
		zap.String("order_id", task.OrderID),
		zap.Strings("workers", workerIDs),
	)

	publishTaskEvent(ctx, s.publisher, s.log, events.TaskCreated, task, events.TaskEvent{WorkerIDs: workerIDs})
	s.dispatchAssigned(task, workerIDs)
	return task, nil
}

func (s *TaskService) Get(ctx context.Context, id uint) (*models.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

// GetForWorker returns the task only if workerID is one of its assignees.
// workerID is the authenticated worker, so the match is exact.
func (s *TaskService) GetForWorker(ctx context.Context, id uint, workerID string) (*models.Task, error) {
	task, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.AssignmentOf(workerID) == nil {
		return nil, ErrWorkerNotAssigned
	}
	return task, nil
}

func (s *TaskService) ListForWorker(ctx context.Context, workerID string) ([]models.Task, error) {
	if strings.TrimSpace(workerID) == "" {
		return nil, ErrInvalidInput
	}
	return s.tasks.ListByWorker(ctx, workerID)
}

func (s *TaskService) ListAll(ctx context.Context) ([]models.Task, error) {
	return s.tasks.ListAll(ctx)
}

// Assign adds workers to an open task and notifies only the newly added ones.
func (s *TaskService) Assign(ctx context.Context, taskID uint, workerIDs []string) (*models.Task, []string, error) {
	workerIDs = uniqueIDs(workerIDs)
	if taskID == 0 || len(workerIDs) == 0 {
		return nil, nil, ErrInvalidInput
	}
	if err := s.ensureWorkersExist(ctx, workerIDs); err != nil {
		return nil, nil, err
	}

	var added []string
	task, err := s.tasks.UpdateLocked(ctx, taskID, func(t *models.Task) error {
		if !t.IsOpen() {
			return ErrTaskAlreadyResolved
		}
		added = t.AddAssignments(workerIDs)
		return nil
	})
	if err != nil {
		return nil, nil, translateTaskError(taskID, err)
	}

	s.log.Info("workers assigned",
		zap.Uint("task_id", task.ID),
		zap.String("order_id", task.OrderID),
		zap.Strings("added", added),
	)
	if len(added) > 0 {
		publishTaskEvent(ctx, s.publisher, s.log, events.TaskAssigned, task, events.TaskEvent{WorkerIDs: added})
		s.dispatchAssigned(task, added)
	}
	return task, added, nil
}

// Cancel marks a task canceled. Canceling twice is a no-op.
func (s *TaskService) Cancel(ctx context.Context, taskID uint) (*models.Task, error) {
	task, err := s.tasks.UpdateLocked(ctx, taskID, func(t *models.Task) error {
		if t.IsCompleted {
			return ErrTaskAlreadyResolved
		}
		t.IsCanceled = true
		return nil
	})
	if err != nil {
		return nil, translateTaskError(taskID, err)
	}

	s.log.Info("task canceled", zap.Uint("task_id", task.ID), zap.String("order_id", task.OrderID))
	notifyRealtime(s.realtime, task.WorkerIDs(), EventTaskUpdated, task)
	publishTaskEvent(ctx, s.publisher, s.log, events.TaskCanceled, task, events.TaskEvent{})
	return task, nil
}

// dispatchAssigned sends realtime events right away and push notifications
// in the background with a bounded context.
func (s *TaskService) dispatchAssigned(task *models.Task, workerIDs []string) {
	if len(workerIDs) == 0 {
		return
	}
	notifyRealtime(s.realtime, workerIDs, EventTaskAssigned, task)
	if s.notifier == nil {
		return
	}

	snapshot := *task
	s.goAsync(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()
		sent := 0
		for _, id := range workerIDs {
			if s.notifier.NotifyTaskAssigned(ctx, id, &snapshot) {
				sent++
			}
		}
		s.log.Info("assignment notifications dispatched",
			zap.String("order_id", snapshot.OrderID),
			zap.Int("sent", sent),
			zap.Int("total", len(workerIDs)),
		)
	})
}

func (s *TaskService) ensureWorkersExist(ctx context.Context, workerIDs []string) error {
	workers, err := s.workers.ListByWorkerIDs(ctx, workerIDs)
	if err != nil {
		return err
	}
	found := make(map[string]bool, len(workers))
	for _, w := range workers {
		found[w.WorkerID] = true
	}
	var missing []string
	for _, id := range workerIDs {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrWorkerNotFound, strings.Join(missing, ", "))
	}
	return nil
}

func translateTaskError(taskID uint, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrTaskNotFound
	case errors.Is(err, ErrTaskAlreadyResolved), errors.Is(err, repository.ErrConflict):
		return ErrTaskAlreadyResolved
	default:
		return fmt.Errorf("update task %d: %w", taskID, err)
	}
}

func buildTask(in CreateTaskInput) (*models.Task, error) {
	required := []struct{ field, value string }{
		{"customerName", in.CustomerName},
		{"email", in.Email},
		{"phone", in.Phone},
		{"address", in.Address},
		{"pincode", in.Pincode},
		{"date", in.Date},
		{"timeSlot", in.TimeSlot},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return nil, fmt.Errorf("%w: %s is required", ErrInvalidInput, r.field)
		}
	}

	task := &models.Task{
		CustomerName:  strings.TrimSpace(in.CustomerName),
		Email:         strings.TrimSpace(in.Email),
		Phone:         strings.TrimSpace(in.Phone),
		Address:       strings.TrimSpace(in.Address),
		Pincode:       strings.TrimSpace(in.Pincode),
		Subtotal:      in.Subtotal,
		Discount:      in.Discount,
		Total:         in.Total,
		PaymentMethod: strings.TrimSpace(in.PaymentMethod),
		Date:          in.Date,
		TimeSlot:      in.TimeSlot,
		Status:        models.TaskStatusWaiting,
	}
	for i, item := range in.Cart {
		if strings.TrimSpace(item.Name) == "" {
			return nil, fmt.Errorf("%w: cart item %d has no name", ErrInvalidInput, i)
		}
		if item.Price < 0 {
			return nil, fmt.Errorf("%w: cart item %d has a negative price", ErrInvalidInput, i)
		}
		if item.Quantity < 0 {
			return nil, fmt.Errorf("%w: cart item %d has a negative quantity", ErrInvalidInput, i)
		}
		qty := item.Quantity
		if qty == 0 {
			qty = 1
		}
		task.Cart = append(task.Cart, models.CartItem{
			Position: i,
			Name:     strings.TrimSpace(item.Name),
			Price:    item.Price,
			Quantity: qty,
			Category: strings.TrimSpace(item.Category),
		})
	}
	return task, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
