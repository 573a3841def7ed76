package routes

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/stretchr/testify/mock"

	"task-board-server/models"
	"task-board-server/services"
)

type MockTaskManager struct{ mock.Mock }

func (m *MockTaskManager) Create(ctx context.Context, in services.CreateTaskInput) (*models.Task, error) {
	args := m.Called(ctx, in)
	if t := args.Get(0); t != nil {
		return t.(*models.Task), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTaskManager) GetForWorker(ctx context.Context, id uint, workerID string) (*models.Task, error) {
	args := m.Called(ctx, id, workerID)
	if t := args.Get(0); t != nil {
		return t.(*models.Task), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTaskManager) ListForWorker(ctx context.Context, workerID string) ([]models.Task, error) {
	args := m.Called(ctx, workerID)
	if t := args.Get(0); t != nil {
		return t.([]models.Task), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTaskManager) ListAll(ctx context.Context) ([]models.Task, error) {
	args := m.Called(ctx)
	if t := args.Get(0); t != nil {
		return t.([]models.Task), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTaskManager) Assign(ctx context.Context, taskID uint, workerIDs []string) (*models.Task, []string, error) {
	args := m.Called(ctx, taskID, workerIDs)
	var task *models.Task
	if t := args.Get(0); t != nil {
		task = t.(*models.Task)
	}
	var added []string
	if a := args.Get(1); a != nil {
		added = a.([]string)
	}
	return task, added, args.Error(2)
}

func (m *MockTaskManager) Cancel(ctx context.Context, taskID uint) (*models.Task, error) {
	args := m.Called(ctx, taskID)
	if t := args.Get(0); t != nil {
		return t.(*models.Task), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockResponder struct{ mock.Mock }

func (m *MockResponder) Respond(ctx context.Context, in services.RespondInput) (*models.Task, error) {
	args := m.Called(ctx, in)
	if t := args.Get(0); t != nil {
		return t.(*models.Task), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockWorkerAuth accepts access tokens of the form "token-<workerId>".
type MockWorkerAuth struct{ mock.Mock }

func (m *MockWorkerAuth) Authenticate(_ context.Context, accessToken string) (*models.Worker, error) {
	id, ok := strings.CutPrefix(accessToken, "token-")
	if !ok || id == "" {
		return nil, services.ErrInvalidToken
	}
	return &models.Worker{ID: 1, WorkerID: id, IsActive: true}, nil
}

func (m *MockWorkerAuth) Login(ctx context.Context, workerID, password string, device services.DeviceInfo) (*services.LoginResult, error) {
	args := m.Called(ctx, workerID, password, device)
	if r := args.Get(0); r != nil {
		return r.(*services.LoginResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockWorkerAuth) Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error) {
	args := m.Called(ctx, refreshToken)
	if r := args.Get(0); r != nil {
		return r.(*services.TokenPair), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockWorkerAuth) Logout(ctx context.Context, workerID, refreshToken string) error {
	return m.Called(ctx, workerID, refreshToken).Error(0)
}

func (m *MockWorkerAuth) Me(ctx context.Context, workerID string) (*models.Worker, error) {
	args := m.Called(ctx, workerID)
	if w := args.Get(0); w != nil {
		return w.(*models.Worker), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockPushNotifier struct{ mock.Mock }

func (m *MockPushNotifier) RegisterPushToken(ctx context.Context, workerID, token string) error {
	return m.Called(ctx, workerID, token).Error(0)
}

func (m *MockPushNotifier) SendTest(ctx context.Context, workerID, title, body string) (bool, error) {
	args := m.Called(ctx, workerID, title, body)
	return args.Bool(0), args.Error(1)
}

// fakeProofs reads every file so tests can check what reached the service.
type fakeProofs struct {
	task     *models.Task
	err      error
	workerID string
	names    []string
	payloads []string
}

func (f *fakeProofs) UploadProof(_ context.Context, _ uint, workerID string, files []services.ProofFile) (*models.Task, error) {
	f.workerID = workerID
	for _, file := range files {
		data, err := io.ReadAll(file.Content)
		if err != nil {
			return nil, err
		}
		f.names = append(f.names, file.Filename)
		f.payloads = append(f.payloads, string(data))
	}
	return f.task, f.err
}

type fakeExporter struct {
	data string
	err  error
}

func (f *fakeExporter) ExportTasks(_ context.Context, w io.Writer) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	_, err := io.WriteString(w, f.data)
	return 1, err
}

var errDatabaseDown = errors.New("database down")
