package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"

	"task-board-server/config"
)

func TestInitialize_RequiresURL(t *testing.T) {
	t.Cleanup(func() { _ = Close() })

	err := Initialize(config.DatabaseConfig{}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_URL is required")
	assert.Nil(t, DB)

	// The first outcome sticks until Close resets the state.
	err = Initialize(config.DatabaseConfig{URL: "postgres://ignored"}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_URL is required")
}

func TestClose_WithoutConnection(t *testing.T) {
	require.NoError(t, Close())
	assert.Nil(t, GetDB())
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, logger.Silent, parseLogLevel("silent"))
	assert.Equal(t, logger.Error, parseLogLevel("error"))
	assert.Equal(t, logger.Info, parseLogLevel("info"))
	assert.Equal(t, logger.Warn, parseLogLevel(""))
}
