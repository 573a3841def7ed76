package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"task-board-server/models"
	"task-board-server/repository"
	"task-board-server/utils"
)

// LoginResult carries only the caller's own identity plus the session tokens.
type LoginResult struct {
	WorkerID string `json:"workerId"`
	Name     string `json:"name"`
	TokenPair
}

type AuthService struct {
	workers repository.WorkerRepository
	jwt     *JWTService
	log     *zap.Logger
}

func NewAuthService(workers repository.WorkerRepository, jwt *JWTService, log *zap.Logger) *AuthService {
	return &AuthService{workers: workers, jwt: jwt, log: log}
}

func (s *AuthService) Login(ctx context.Context, workerID, password string, device DeviceInfo) (*LoginResult, error) {
	workerID = strings.TrimSpace(workerID)
	if workerID == "" || password == "" {
		return nil, ErrInvalidInput
	}

	worker, err := s.workers.GetByWorkerID(ctx, workerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWorkerNotFound
		}
		return nil, err
	}
	if !utils.CheckPasswordHash(password, worker.PasswordHash) {
		s.log.Warn("login failed: bad password", zap.String("worker", workerID))
		return nil, ErrInvalidCredentials
	}
	if !worker.IsActive {
		s.log.Warn("login refused: inactive worker", zap.String("worker", workerID))
		return nil, ErrInvalidCredentials
	}

	pair, err := s.jwt.GenerateTokenPair(ctx, worker, device)
	if err != nil {
		return nil, err
	}
	s.log.Info("worker logged in", zap.String("worker", worker.WorkerID))
	return &LoginResult{WorkerID: worker.WorkerID, Name: worker.Name, TokenPair: *pair}, nil
}

// Refresh issues a new access token, keeping the same refresh token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	rt, err := s.jwt.ValidateRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	worker, err := s.workers.GetByID(ctx, rt.WorkerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !worker.IsActive {
		return nil, ErrInvalidToken
	}
	access, expiresIn, err := s.jwt.GenerateAccessToken(worker)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
		TokenType:    "Bearer",
	}, nil
}

// Logout revokes one of the worker's refresh tokens, or all of them when
// token is empty.
func (s *AuthService) Logout(ctx context.Context, workerID, refreshToken string) error {
	worker, err := s.Me(ctx, workerID)
	if err != nil {
		return err
	}
	if refreshToken != "" {
		return s.jwt.RevokeRefreshToken(ctx, worker.ID, refreshToken)
	}
	return s.jwt.RevokeAllWorkerTokens(ctx, worker.ID)
}

func (s *AuthService) Me(ctx context.Context, workerID string) (*models.Worker, error) {
	worker, err := s.workers.GetByWorkerID(ctx, workerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWorkerNotFound
		}
		return nil, err
	}
	return worker, nil
}

// Authenticate resolves an access token to an active worker.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*models.Worker, error) {
	claims, err := s.jwt.ValidateAccessToken(accessToken)
	if err != nil {
		return nil, err
	}
	worker, err := s.workers.GetByWorkerID(ctx, claims.WorkerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !worker.IsActive || worker.ID != claims.UID {
		return nil, ErrInvalidToken
	}
	return worker, nil
}
