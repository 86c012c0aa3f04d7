package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "llmcouncil", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr())
	assert.Equal(t, 5, cfg.Debate.MaxRoundsCap)
	assert.Equal(t, 3, cfg.Debate.DefaultRounds)
	assert.Equal(t, 10, cfg.Debate.HistoryWindow)
	assert.Equal(t, 500, cfg.Debate.MessageCharBudget)
	assert.Equal(t, 30, cfg.Debate.TurnTimeoutSeconds)
	assert.Equal(t, 2, cfg.Debate.MaxAttempts)
	assert.Equal(t, 15, cfg.Debate.HeartbeatSeconds)
	assert.Equal(t, "debate.completed", cfg.RabbitMQ.DebateCompletedQueue)
	assert.NotEmpty(t, cfg.Topics, "trending board has seed topics")
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[app]
name = "council-test"
port = 9999

[debate]
default_rounds = 2

[[topics]]
topic = "Tabs or spaces?"
category = "Technology"
votes = 12
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "council-test", cfg.App.Name)
	assert.Equal(t, 9999, cfg.App.Port)
	assert.Equal(t, 2, cfg.Debate.DefaultRounds)
	assert.Equal(t, 5, cfg.Debate.MaxRoundsCap, "unset keys keep defaults")
	require.Len(t, cfg.Topics, 1)
	assert.Equal(t, "Tabs or spaces?", cfg.Topics[0].Topic)
}

func TestEnvOverridesWin(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("APP_PORT", "7070")
	t.Setenv("DEBATE_MAX_ATTEMPTS", "4")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("RABBITMQ_DEBATE_COMPLETED_QUEUE", "debates.done")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.App.Port)
	assert.Equal(t, 4, cfg.Debate.MaxAttempts)
	assert.Equal(t, "sk-test", cfg.LLM.OpenAI.APIKey)
	assert.Equal(t, "debates.done", cfg.RabbitMQ.DebateCompletedQueue)
}

func TestEnvBadIntIgnored(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("APP_PORT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.App.Port)
}
