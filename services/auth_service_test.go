package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"task-board-server/config"
	"task-board-server/models"
	"task-board-server/repository"
	"task-board-server/types"
	"task-board-server/utils"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", ExpiryHours: 1, RefreshExpiryDays: 30}
}

func seededWorker(t *testing.T, workerID, password string) *models.Worker {
	t.Helper()
	hash, err := utils.HashPassword(password)
	require.NoError(t, err)
	return &models.Worker{ID: 7, WorkerID: workerID, Name: "Meera", PasswordHash: hash, Role: models.RoleMakeup, IsActive: true}
}

func TestAuthService_Login_Success(t *testing.T) {
	workers := new(MockWorkerRepository)
	tokens := new(MockRefreshTokenRepository)
	jwtSvc := NewJWTService(testJWTConfig(), tokens, testLogger())
	svc := NewAuthService(workers, jwtSvc, testLogger())

	worker := seededWorker(t, "MU001", "password123")
	workers.On("GetByWorkerID", mock.Anything, "MU001").Return(worker, nil).Once()
	tokens.On("Create", mock.Anything, mock.MatchedBy(func(rt *models.RefreshToken) bool {
		return rt.WorkerID == 7 && len(rt.Token) == 64 && rt.UserAgent == "jest" &&
			rt.ExpiresAt.After(time.Now().Add(29*24*time.Hour))
	})).Return(nil).Once()

	res, err := svc.Login(context.Background(), " MU001 ", "password123", DeviceInfo{UserAgent: "jest"})
	require.NoError(t, err)
	assert.Equal(t, "MU001", res.WorkerID)
	assert.Equal(t, "Meera", res.Name)
	assert.Equal(t, "Bearer", res.TokenType)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.NotEmpty(t, res.RefreshToken)

	claims, err := jwtSvc.ValidateAccessToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "MU001", claims.WorkerID)
	assert.Equal(t, uint(7), claims.UID)

	workers.AssertExpectations(t)
	tokens.AssertExpectations(t)
}

func TestAuthService_Login_Failures(t *testing.T) {
	inactive := seededWorker(t, "CL001", "password123")
	inactive.IsActive = false

	tests := []struct {
		name     string
		workerID string
		password string
		setup    func(m *MockWorkerRepository)
		wantErr  error
	}{
		{
			name:     "unknown worker",
			workerID: "ZZ999",
			password: "password123",
			setup: func(m *MockWorkerRepository) {
				m.On("GetByWorkerID", mock.Anything, "ZZ999").Return(nil, repository.ErrNotFound)
			},
			wantErr: ErrWorkerNotFound,
		},
		{
			name:     "wrong password",
			workerID: "MU001",
			password: "nope",
			setup: func(m *MockWorkerRepository) {
				m.On("GetByWorkerID", mock.Anything, "MU001").Return(seededWorker(t, "MU001", "password123"), nil)
			},
			wantErr: ErrInvalidCredentials,
		},
		{
			name:     "inactive worker",
			workerID: "CL001",
			password: "password123",
			setup: func(m *MockWorkerRepository) {
				m.On("GetByWorkerID", mock.Anything, "CL001").Return(inactive, nil)
			},
			wantErr: ErrInvalidCredentials,
		},
		{
			name:     "missing password",
			workerID: "MU001",
			setup:    func(m *MockWorkerRepository) {},
			wantErr:  ErrInvalidInput,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			workers := new(MockWorkerRepository)
			tokens := new(MockRefreshTokenRepository)
			tt.setup(workers)
			svc := NewAuthService(workers, NewJWTService(testJWTConfig(), tokens, testLogger()), testLogger())

			res, err := svc.Login(context.Background(), tt.workerID, tt.password, DeviceInfo{})
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, res)
			tokens.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestAuthService_Refresh(t *testing.T) {
	workers := new(MockWorkerRepository)
	tokens := new(MockRefreshTokenRepository)
	jwtSvc := NewJWTService(testJWTConfig(), tokens, testLogger())
	svc := NewAuthService(workers, jwtSvc, testLogger())

	worker := seededWorker(t, "MU001", "pw")
	tokens.On("GetByToken", mock.Anything, "good").
		Return(&models.RefreshToken{Token: "good", WorkerID: 7, ExpiresAt: time.Now().Add(time.Hour)}, nil)
	tokens.On("GetByToken", mock.Anything, "revoked").
		Return(&models.RefreshToken{Token: "revoked", WorkerID: 7, ExpiresAt: time.Now().Add(time.Hour), IsRevoked: true}, nil)
	tokens.On("GetByToken", mock.Anything, "expired").
		Return(&models.RefreshToken{Token: "expired", WorkerID: 7, ExpiresAt: time.Now().Add(-time.Hour)}, nil)
	tokens.On("GetByToken", mock.Anything, "unknown").Return(nil, repository.ErrNotFound)
	workers.On("GetByID", mock.Anything, uint(7)).Return(worker, nil)

	pair, err := svc.Refresh(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "good", pair.RefreshToken)
	claims, err := jwtSvc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "MU001", claims.WorkerID)

	for _, tok := range []string{"revoked", "expired", "unknown"} {
		_, err := svc.Refresh(context.Background(), tok)
		assert.ErrorIs(t, err, ErrInvalidToken, tok)
	}
}

func TestAuthService_Logout(t *testing.T) {
	workers := new(MockWorkerRepository)
	tokens := new(MockRefreshTokenRepository)
	svc := NewAuthService(workers, NewJWTService(testJWTConfig(), tokens, testLogger()), testLogger())

	workers.On("GetByWorkerID", mock.Anything, "MU001").Return(&models.Worker{ID: 7, WorkerID: "MU001"}, nil)
	tokens.On("GetByToken", mock.Anything, "abc").Return(&models.RefreshToken{Token: "abc", WorkerID: 7}, nil).Once()
	tokens.On("Revoke", mock.Anything, "abc").Return(nil).Once()
	tokens.On("GetByToken", mock.Anything, "gone").Return(nil, repository.ErrNotFound).Once()
	tokens.On("RevokeAllForWorker", mock.Anything, uint(7)).Return(nil).Once()

	require.NoError(t, svc.Logout(context.Background(), "MU001", "abc"))
	require.ErrorIs(t, svc.Logout(context.Background(), "MU001", "gone"), ErrInvalidToken)
	require.NoError(t, svc.Logout(context.Background(), "MU001", ""))
	tokens.AssertExpectations(t)
	tokens.AssertNotCalled(t, "Revoke", mock.Anything, "gone")
}

func TestAuthService_Logout_OtherWorkersToken(t *testing.T) {
	workers := new(MockWorkerRepository)
	tokens := new(MockRefreshTokenRepository)
	svc := NewAuthService(workers, NewJWTService(testJWTConfig(), tokens, testLogger()), testLogger())

	workers.On("GetByWorkerID", mock.Anything, "MU001").Return(&models.Worker{ID: 7, WorkerID: "MU001"}, nil)
	tokens.On("GetByToken", mock.Anything, "cl-token").
		Return(&models.RefreshToken{Token: "cl-token", WorkerID: 8, ExpiresAt: time.Now().Add(time.Hour)}, nil).Once()

	err := svc.Logout(context.Background(), "MU001", "cl-token")
	require.ErrorIs(t, err, ErrInvalidToken)
	tokens.AssertNotCalled(t, "Revoke", mock.Anything, mock.Anything)
	tokens.AssertNotCalled(t, "RevokeAllForWorker", mock.Anything, mock.Anything)
}

func TestAuthService_Logout_UnknownWorker(t *testing.T) {
	workers := new(MockWorkerRepository)
	tokens := new(MockRefreshTokenRepository)
	svc := NewAuthService(workers, NewJWTService(testJWTConfig(), tokens, testLogger()), testLogger())

	workers.On("GetByWorkerID", mock.Anything, "XX999").Return(nil, repository.ErrNotFound)

	require.ErrorIs(t, svc.Logout(context.Background(), "XX999", "abc"), ErrWorkerNotFound)
	tokens.AssertNotCalled(t, "GetByToken", mock.Anything, mock.Anything)
}

func TestAuthService_Authenticate(t *testing.T) {
	workers := new(MockWorkerRepository)
	jwtSvc := NewJWTService(testJWTConfig(), new(MockRefreshTokenRepository), testLogger())
	svc := NewAuthService(workers, jwtSvc, testLogger())

	worker := &models.Worker{ID: 7, WorkerID: "MU001", IsActive: true}
	workers.On("GetByWorkerID", mock.Anything, "MU001").Return(worker, nil)

	token, _, err := jwtSvc.GenerateAccessToken(worker)
	require.NoError(t, err)

	got, err := svc.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "MU001", got.WorkerID)

	stale, _, err := jwtSvc.GenerateAccessToken(&models.Worker{ID: 8, WorkerID: "MU001"})
	require.NoError(t, err)
	_, err = svc.Authenticate(context.Background(), stale)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Authenticate(context.Background(), "garbage")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_ValidateAccessToken(t *testing.T) {
	jwtSvc := NewJWTService(testJWTConfig(), nil, testLogger())
	worker := &models.Worker{ID: 3, WorkerID: "DC001"}

	t.Run("expired", func(t *testing.T) {
		past := NewJWTService(testJWTConfig(), nil, testLogger())
		past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, _, err := past.GenerateAccessToken(worker)
		require.NoError(t, err)

		_, err = jwtSvc.ValidateAccessToken(token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other secret", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{Secret: "other", ExpiryHours: 1}, nil, testLogger())
		token, _, err := other.GenerateAccessToken(worker)
		require.NoError(t, err)

		_, err = jwtSvc.ValidateAccessToken(token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unsigned", func(t *testing.T) {
		claims := &types.Claims{
			WorkerID: "DC001",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    tokenIssuer,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = jwtSvc.ValidateAccessToken(token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("valid", func(t *testing.T) {
		token, expiresIn, err := jwtSvc.GenerateAccessToken(worker)
		require.NoError(t, err)
		assert.Equal(t, int64(3600), expiresIn)

		claims, err := jwtSvc.ValidateAccessToken(token)
		require.NoError(t, err)
		assert.Equal(t, "DC001", claims.WorkerID)
		assert.Equal(t, "DC001", claims.Subject)
	})
}

func TestJWTService_CleanupExpiredTokens(t *testing.T) {
	tokens := new(MockRefreshTokenRepository)
	jwtSvc := NewJWTService(testJWTConfig(), tokens, testLogger())
	fixed := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	jwtSvc.now = func() time.Time { return fixed }

	tokens.On("DeleteExpired", mock.Anything, fixed).Return(int64(3), nil).Once()

	n, err := jwtSvc.CleanupExpiredTokens(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	tokens.AssertExpectations(t)
}
