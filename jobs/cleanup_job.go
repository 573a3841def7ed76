package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultCleanupInterval = 30 * time.Minute
	limiterMaxIdle         = 15 * time.Minute
	cleanupTimeout         = time.Minute
)

type TokenCleaner interface {
	CleanupExpiredTokens(ctx context.Context) (int64, error)
}

type LimiterCleaner interface {
	Cleanup(maxIdle time.Duration) int
}

// CleanupJob purges expired refresh tokens and idle rate limiters
type CleanupJob struct {
	tokens   TokenCleaner
	limiter  LimiterCleaner
	interval time.Duration
	log      *zap.Logger

	stopChan chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewCleanupJob creates a new cleanup job. limiter may be nil.
func NewCleanupJob(tokens TokenCleaner, limiter LimiterCleaner, interval time.Duration, log *zap.Logger) *CleanupJob {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	return &CleanupJob{
		tokens:   tokens,
		limiter:  limiter,
		interval: interval,
		log:      log,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the cleanup job
func (j *CleanupJob) Start() {
	go j.run()
	j.log.Info("cleanup job started", zap.Duration("interval", j.interval))
}

// Stop stops the job and waits for a running pass to finish
func (j *CleanupJob) Stop() {
	j.stopOnce.Do(func() {
		close(j.stopChan)
		<-j.done
		j.log.Info("cleanup job stopped")
	})
}

func (j *CleanupJob) run() {
	defer close(j.done)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.RunOnce()
		case <-j.stopChan:
			return
		}
	}
}

// RunOnce performs a single cleanup pass
func (j *CleanupJob) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	if j.tokens != nil {
		n, err := j.tokens.CleanupExpiredTokens(ctx)
		switch {
		case err != nil:
			j.log.Error("failed to clean up refresh tokens", zap.Error(err))
		case n > 0:
			j.log.Info("expired refresh tokens removed", zap.Int64("count", n))
		}
	}

	if j.limiter != nil {
		if n := j.limiter.Cleanup(limiterMaxIdle); n > 0 {
			j.log.Debug("idle rate limiters removed", zap.Int("count", n))
		}
	}
}
