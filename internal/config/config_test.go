package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  port: "9090"
redis:
  addr: localhost:6379
  ttl: 5m
game:
  timeLimit: 35m
  prizes:
    - prize: 100
    - prize: 200
      fireproof: true
    - prize: 500
users:
  - id: u1
    name: Vadik
`

func TestLoad(t *testing.T) {
	path := writeFile(t, "config.yaml", sampleConfig)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 5*time.Minute, TTLDuration(cfg.Redis.TTL, time.Minute))
	require.Len(t, cfg.Users, 1)
	assert.Equal(t, "Vadik", cfg.Users[0].Name)

	table, err := cfg.PrizeTable()
	require.NoError(t, err)
	assert.Equal(t, 3, table.Levels())
	assert.Equal(t, int64(200), table.FireproofPrize(3))
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeFile(t, "config.yaml", sampleConfig)
	t.Setenv("PORT", "7070")
	t.Setenv("POSTGRES_URL", "postgres://quiz@localhost/quizdb")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "postgres://quiz@localhost/quizdb", cfg.Postgres.URL)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestDefaultPrizeTableWhenUnset(t *testing.T) {
	table, err := Config{}.PrizeTable()
	require.NoError(t, err)
	assert.Equal(t, 15, table.Levels())
}

func TestTTLDurationFallback(t *testing.T) {
	assert.Equal(t, time.Minute, TTLDuration("", time.Minute))
	assert.Equal(t, time.Minute, TTLDuration("soon", time.Minute))
}

func TestLoadQuestions(t *testing.T) {
	path := writeFile(t, "bank.yaml", `
questions:
  - id: q1
    level: 0
    text: What is 2 + 2?
    answers: ["4", "3", "5", "22"]
`)
	questions, err := LoadQuestions(path)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, "4", questions[0].Answers[0])

	bad := writeFile(t, "bad.yaml", `
questions:
  - id: q1
    level: 0
    text: Incomplete
    answers: ["4", "3"]
`)
	_, err = LoadQuestions(bad)
	assert.Error(t, err)
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}
