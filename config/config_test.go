package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("PUSH_PROVIDER", "")
	t.Setenv("STRICT_WORKER_MATCH", "")
	t.Setenv("ALLOWED_ORIGINS", "")

	Load()
	require.NotNil(t, AppConfig)

	assert.Equal(t, "8080", AppConfig.Server.Port)
	assert.Equal(t, "log", AppConfig.Push.Provider)
	assert.False(t, AppConfig.Assignment.StrictWorkerMatch)
	assert.Equal(t, []string{"http://localhost:3000"}, AppConfig.Server.AllowedOrigins)
	assert.Equal(t, "tasks_topic", AppConfig.RabbitMQ.Exchange)
	assert.Equal(t, 24, AppConfig.JWT.ExpiryHours)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("PUSH_PROVIDER", "fcm")
	t.Setenv("STRICT_WORKER_MATCH", "true")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("JWT_EXPIRY_HOURS", "not-a-number")

	Load()

	assert.Equal(t, "9090", AppConfig.Server.Port)
	assert.Equal(t, "fcm", AppConfig.Push.Provider)
	assert.True(t, AppConfig.Assignment.StrictWorkerMatch)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, AppConfig.Server.AllowedOrigins)
	assert.Equal(t, 24, AppConfig.JWT.ExpiryHours)
}
