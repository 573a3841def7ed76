package services

import (
	"errors"

	"task-board-server/models"
)

var (
	ErrTaskNotFound        = errors.New("task not found")
	ErrWorkerNotFound      = errors.New("worker not found")
	ErrWorkerNotAssigned   = models.ErrWorkerNotAssigned
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrTaskAlreadyResolved = models.ErrTaskResolved
	ErrInvalidInput        = errors.New("invalid input")
	ErrNotAccepted         = errors.New("task not accepted by this worker")
	ErrTaskCanceled        = errors.New("task is canceled")
	ErrInvalidToken        = errors.New("invalid or expired token")
)
