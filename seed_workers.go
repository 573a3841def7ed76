package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"task-board-server/config"
	"task-board-server/database"
	"task-board-server/models"
	"task-board-server/utils"
)

type seedWorker struct {
	WorkerID string
	Name     string
	Role     models.WorkerRole
}

var defaultWorkers = []seedWorker{
	{WorkerID: "MU001", Name: "Makeup Team", Role: models.RoleMakeup},
	{WorkerID: "CL001", Name: "Cleaning Team", Role: models.RoleCleaning},
	{WorkerID: "DC001", Name: "Decor Team", Role: models.RoleDecor},
}

// Existing workers keep their password; only name and role are refreshed.
const upsertWorkerSQL = `
INSERT INTO workers (worker_id, name, password_hash, role, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, TRUE, NOW(), NOW())
ON CONFLICT (worker_id) DO UPDATE
SET name = EXCLUDED.name, role = EXCLUDED.role, updated_at = NOW()
RETURNING (xmax = 0)`

// seedWorkers migrates the schema and upserts the default worker accounts.
func seedWorkers(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	if err := database.Initialize(cfg.Database, log); err != nil {
		return err
	}
	defer database.Close()

	password := os.Getenv("SEED_WORKER_PASSWORD")
	if password == "" {
		password = "password123"
		log.Warn("SEED_WORKER_PASSWORD not set, using the default password")
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, w := range defaultWorkers {
		var inserted bool
		if err := tx.QueryRowContext(ctx, upsertWorkerSQL, w.WorkerID, w.Name, hash, string(w.Role)).Scan(&inserted); err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) {
				return fmt.Errorf("seed %s: %s (%s): %w", w.WorkerID, pqErr.Message, pqErr.Code.Name(), err)
			}
			return fmt.Errorf("seed %s: %w", w.WorkerID, err)
		}
		if inserted {
			log.Info("✅ worker created", zap.String("worker", w.WorkerID), zap.String("role", string(w.Role)))
		} else {
			log.Info("worker already exists, updated", zap.String("worker", w.WorkerID))
		}
	}

	return tx.Commit()
}
