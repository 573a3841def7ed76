package services

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"task-board-server/events"
	"task-board-server/models"
	"task-board-server/repository"
)

// memTaskRepo is an in-memory TaskRepository that serializes UpdateLocked
// the way the row lock does in Postgres.
type memTaskRepo struct {
	mu     sync.Mutex
	tasks  map[uint]*models.Task
	nextID uint
}

func newMemTaskRepo(tasks ...*models.Task) *memTaskRepo {
	r := &memTaskRepo{tasks: make(map[uint]*models.Task)}
	for _, t := range tasks {
		_ = r.Create(context.Background(), t)
	}
	return r
}

func cloneTask(t *models.Task) *models.Task {
	c := *t
	c.Cart = append([]models.CartItem(nil), t.Cart...)
	c.AssignedWorkers = append([]models.TaskAssignment(nil), t.AssignedWorkers...)
	c.Proofs = append([]models.TaskProof(nil), t.Proofs...)
	return &c
}

func (r *memTaskRepo) Create(_ context.Context, task *models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := task.BeforeCreate(nil); err != nil {
		return err
	}
	r.nextID++
	task.ID = r.nextID
	task.CreatedAt = time.Now()
	for i := range task.AssignedWorkers {
		task.AssignedWorkers[i].ID = uint(i + 1)
		task.AssignedWorkers[i].TaskID = task.ID
	}
	r.tasks[task.ID] = cloneTask(task)
	return nil
}

func (r *memTaskRepo) GetByID(_ context.Context, id uint) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneTask(t), nil
}

func (r *memTaskRepo) ListByWorker(_ context.Context, workerID string) ([]models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Task
	for id := r.nextID; id > 0; id-- {
		t, ok := r.tasks[id]
		if !ok {
			continue
		}
		for _, a := range t.AssignedWorkers {
			if a.WorkerID == workerID {
				out = append(out, *cloneTask(t))
				break
			}
		}
	}
	return out, nil
}

func (r *memTaskRepo) ListAll(_ context.Context) ([]models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Task
	for id := r.nextID; id > 0; id-- {
		if t, ok := r.tasks[id]; ok {
			out = append(out, *cloneTask(t))
		}
	}
	return out, nil
}

func (r *memTaskRepo) UpdateLocked(_ context.Context, id uint, fn func(task *models.Task) error) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tasks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	t := cloneTask(stored)
	prev := t.Status
	if err := fn(t); err != nil {
		return nil, err
	}
	if stored.Status != prev {
		return nil, repository.ErrConflict
	}
	for i := range t.AssignedWorkers {
		if t.AssignedWorkers[i].ID == 0 {
			t.AssignedWorkers[i].ID = uint(100 + i)
			t.AssignedWorkers[i].TaskID = id
		}
	}
	for i := range t.Proofs {
		if t.Proofs[i].ID == 0 {
			t.Proofs[i].ID = uint(200 + i)
			t.Proofs[i].TaskID = id
		}
	}
	r.tasks[id] = cloneTask(t)
	return t, nil
}

// conflictTaskRepo simulates losing the conditional update.
type conflictTaskRepo struct {
	*memTaskRepo
}

func (r *conflictTaskRepo) UpdateLocked(context.Context, uint, func(task *models.Task) error) (*models.Task, error) {
	return nil, repository.ErrConflict
}

type MockWorkerRepository struct {
	mock.Mock
}

func (m *MockWorkerRepository) GetByWorkerID(ctx context.Context, workerID string) (*models.Worker, error) {
	args := m.Called(ctx, workerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Worker), args.Error(1)
}

func (m *MockWorkerRepository) GetByID(ctx context.Context, id uint) (*models.Worker, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Worker), args.Error(1)
}

func (m *MockWorkerRepository) ListByWorkerIDs(ctx context.Context, workerIDs []string) ([]models.Worker, error) {
	args := m.Called(ctx, workerIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Worker), args.Error(1)
}

func (m *MockWorkerRepository) UpdatePushToken(ctx context.Context, workerID string, token *string) error {
	args := m.Called(ctx, workerID, token)
	return args.Error(0)
}

type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockNotificationRepository) ListByWorker(ctx context.Context, workerID string, limit int) ([]models.Notification, error) {
	args := m.Called(ctx, workerID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Notification), args.Error(1)
}

type MockRefreshTokenRepository struct {
	mock.Mock
}

func (m *MockRefreshTokenRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockRefreshTokenRepository) GetByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RefreshToken), args.Error(1)
}

func (m *MockRefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockRefreshTokenRepository) RevokeAllForWorker(ctx context.Context, workerID uint) error {
	args := m.Called(ctx, workerID)
	return args.Error(0)
}

func (m *MockRefreshTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type MockPushSender struct {
	mock.Mock
}

func (m *MockPushSender) Send(ctx context.Context, msg PushMessage) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

func (m *MockPushSender) Name() string { return "mock" }

type MockAssignmentNotifier struct {
	mock.Mock
}

func (m *MockAssignmentNotifier) NotifyTaskAssigned(ctx context.Context, workerID string, task *models.Task) bool {
	args := m.Called(ctx, workerID, task)
	return args.Bool(0)
}

type uploadCall struct {
	folder   string
	publicID string
}

type fakeUploader struct {
	mu    sync.Mutex
	calls []uploadCall
	err   error
}

func (u *fakeUploader) Upload(_ context.Context, content io.Reader, folder, publicID string) (*UploadedMedia, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err != nil {
		return nil, u.err
	}
	_, _ = io.Copy(io.Discard, content)
	u.calls = append(u.calls, uploadCall{folder: folder, publicID: publicID})
	return &UploadedMedia{
		URL:      "https://res.cloudinary.com/demo/image/upload/" + folder + "/" + publicID + ".jpg",
		PublicID: folder + "/" + publicID,
	}, nil
}

type realtimeCall struct {
	workerIDs []string
	eventType string
}

type fakeRealtime struct {
	mu    sync.Mutex
	calls []realtimeCall
}

func (f *fakeRealtime) NotifyWorkers(workerIDs []string, eventType string, _ interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, realtimeCall{workerIDs: append([]string(nil), workerIDs...), eventType: eventType})
}

type publishedEvent struct {
	key   string
	event events.TaskEvent
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, key string, ev events.TaskEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{key: key, event: ev})
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.key)
	}
	return out
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}

// newTask builds a waiting task assigned to workerIDs.
func newTask(workerIDs ...string) *models.Task {
	t := &models.Task{
		CustomerName: "Asha",
		Email:        "asha@example.com",
		Phone:        "9999999999",
		Address:      "12 Lake Road",
		Pincode:      "560001",
		Cart:         []models.CartItem{{Name: "Bridal Makeup", Price: 4999, Quantity: 1, Category: "makeup"}},
		Subtotal:     4999,
		Total:        4999,
		Date:         "2024-06-01",
		TimeSlot:     "10:00-12:00",
		Status:       models.TaskStatusWaiting,
	}
	t.AddAssignments(workerIDs)
	return t
}
