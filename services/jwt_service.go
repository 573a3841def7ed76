package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"task-board-server/config"
	"task-board-server/models"
	"task-board-server/repository"
	"task-board-server/types"
)

const tokenIssuer = "task-board-server"

// JWTService handles JWT token operations
type JWTService struct {
	cfg    config.JWTConfig
	tokens repository.RefreshTokenRepository
	log    *zap.Logger
	now    func() time.Time
}

// NewJWTService creates a new JWT service
func NewJWTService(cfg config.JWTConfig, tokens repository.RefreshTokenRepository, log *zap.Logger) *JWTService {
	return &JWTService{cfg: cfg, tokens: tokens, log: log, now: time.Now}
}

// TokenPair represents a pair of access and refresh tokens
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// DeviceInfo is stored alongside a refresh token.
type DeviceInfo struct {
	DeviceID  string
	UserAgent string
	IPAddress string
}

// GenerateTokenPair generates both access and refresh tokens
func (js *JWTService) GenerateTokenPair(ctx context.Context, worker *models.Worker, device DeviceInfo) (*TokenPair, error) {
	accessToken, expiresIn, err := js.GenerateAccessToken(worker)
	if err != nil {
		return nil, err
	}

	refreshToken, err := js.generateRefreshToken(ctx, worker.ID, device)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
		TokenType:    "Bearer",
	}, nil
}

// GenerateAccessToken generates a short-lived access token
func (js *JWTService) GenerateAccessToken(worker *models.Worker) (string, int64, error) {
	now := js.now()
	ttl := time.Duration(js.cfg.ExpiryHours) * time.Hour
	claims := &types.Claims{
		WorkerID: worker.WorkerID,
		UID:      worker.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   worker.WorkerID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(js.cfg.Secret))
	if err != nil {
		return "", 0, err
	}
	return tokenString, int64(ttl.Seconds()), nil
}

func (js *JWTService) generateRefreshToken(ctx context.Context, workerID uint, device DeviceInfo) (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	tokenString := hex.EncodeToString(tokenBytes)

	days := js.cfg.RefreshExpiryDays
	if days <= 0 {
		days = 30
	}
	refreshToken := &models.RefreshToken{
		Token:     tokenString,
		WorkerID:  workerID,
		ExpiresAt: js.now().Add(time.Duration(days) * 24 * time.Hour),
		DeviceID:  device.DeviceID,
		UserAgent: device.UserAgent,
		IPAddress: device.IPAddress,
	}
	if err := js.tokens.Create(ctx, refreshToken); err != nil {
		return "", fmt.Errorf("store refresh token: %w", err)
	}
	return tokenString, nil
}

// ValidateAccessToken validates an access token and returns its claims
func (js *JWTService) ValidateAccessToken(tokenString string) (*types.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &types.Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(js.cfg.Secret), nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(js.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*types.Claims)
	if !ok || !token.Valid || claims.WorkerID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateRefreshToken validates a refresh token
func (js *JWTService) ValidateRefreshToken(ctx context.Context, tokenString string) (*models.RefreshToken, error) {
	refreshToken, err := js.tokens.GetByToken(ctx, tokenString)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if refreshToken.IsRevoked || js.now().After(refreshToken.ExpiresAt) {
		return nil, ErrInvalidToken
	}
	return refreshToken, nil
}

// RevokeRefreshToken revokes a refresh token issued to workerID. Tokens of
// other workers are reported as invalid and left untouched.
func (js *JWTService) RevokeRefreshToken(ctx context.Context, workerID uint, tokenString string) error {
	refreshToken, err := js.tokens.GetByToken(ctx, tokenString)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	if refreshToken.WorkerID != workerID {
		js.log.Warn("refresh token revoke by non-owner",
			zap.Uint("worker", workerID),
			zap.Uint("owner", refreshToken.WorkerID),
		)
		return ErrInvalidToken
	}
	if err := js.tokens.Revoke(ctx, tokenString); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	return nil
}

// RevokeAllWorkerTokens revokes all refresh tokens for a worker
func (js *JWTService) RevokeAllWorkerTokens(ctx context.Context, workerID uint) error {
	if err := js.tokens.RevokeAllForWorker(ctx, workerID); err != nil {
		return err
	}
	js.log.Info("all refresh tokens revoked", zap.Uint("worker", workerID))
	return nil
}

// CleanupExpiredTokens removes expired refresh tokens
func (js *JWTService) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	return js.tokens.DeleteExpired(ctx, js.now())
}
