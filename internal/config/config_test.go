package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CHATBOX_AUTH_JWTSECRET", "test-secret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Addr)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "sqlite://./chatbox.db", cfg.Database.URL)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL())
	assert.Equal(t, "models/Qwen1.5-7B", cfg.Model.Path)
	assert.Equal(t, "Qwen1.5-7B", cfg.ModelName())
	assert.Equal(t, 512, cfg.Model.MaxNewTokens)
	assert.InDelta(t, 0.7, cfg.Model.Temperature, 1e-6)
	assert.Equal(t, 2, cfg.Model.MaxConcurrent)
	assert.True(t, cfg.Model.VerifyServer)
	assert.Equal(t, 3, cfg.Agent.MaxSteps)

	users := cfg.DomainUsers()
	require.Len(t, users, 1)
	assert.Equal(t, "johndoe", users[0].Username)
	assert.Equal(t, "John Doe", users[0].FullName)
	assert.Equal(t, "johndoe@example.com", users[0].Email)
	assert.False(t, users[0].Disabled)
	assert.NotEmpty(t, users[0].HashedPassword)
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("CHATBOX_AUTH_JWTSECRET", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWTSecret")
}

func TestLoad_LegacyEnvAliases(t *testing.T) {
	t.Setenv("CHATBOX_AUTH_JWTSECRET", "test-secret")
	t.Setenv("MODEL_PATH", "/srv/models/tiny")
	t.Setenv("DATABASE_URL", "postgres://chat:chat@db:5432/chat")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/srv/models/tiny", cfg.Model.Path)
	assert.Equal(t, "tiny", cfg.ModelName())
	assert.Equal(t, "postgres://chat:chat@db:5432/chat", cfg.Database.URL)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatbox.yaml")
	content := `
auth:
  jwtsecret: from-file
  tokenttlminutes: 5
  users:
    - username: alice
      full_name: Alice
      email: alice@example.com
      hashed_password: "$2a$04$abcdefghijklmnopqrstuu"
    - username: bob
      hashed_password: "$2a$04$abcdefghijklmnopqrstuu"
      disabled: true
model:
  name: qwen-chat
  timeout: 30s
agent:
  maxsteps: 5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
	assert.Equal(t, 5*time.Minute, cfg.TokenTTL())
	assert.Equal(t, "qwen-chat", cfg.ModelName())
	assert.Equal(t, 30*time.Second, cfg.Model.Timeout)
	assert.Equal(t, 5, cfg.Agent.MaxSteps)

	users := cfg.DomainUsers()
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, "Alice", users[0].FullName)
	assert.True(t, users[1].Disabled)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	t.Setenv("CHATBOX_AUTH_JWTSECRET", "test-secret")
	t.Setenv("CHATBOX_MODEL_DEVICE", "tpu")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Device")
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\nCHATBOX_TEST_A=\"quoted\"\nexport CHATBOX_TEST_B=plain\nCHATBOX_TEST_C=from-file\nnot a pair\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("CHATBOX_TEST_C", "from-env")
	// Registered with t.Setenv so the values are restored after the test.
	t.Setenv("CHATBOX_TEST_A", "")
	t.Setenv("CHATBOX_TEST_B", "")
	require.NoError(t, os.Unsetenv("CHATBOX_TEST_A"))
	require.NoError(t, os.Unsetenv("CHATBOX_TEST_B"))

	loadDotEnv(path)

	assert.Equal(t, "quoted", os.Getenv("CHATBOX_TEST_A"))
	assert.Equal(t, "plain", os.Getenv("CHATBOX_TEST_B"))
	assert.Equal(t, "from-env", os.Getenv("CHATBOX_TEST_C"))
}
