package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	LoadConfig()

	assert.Equal(t, "8080", AppConfig.HTTPPort)
	assert.Equal(t, "claire_app.db", AppConfig.DatabaseURL)
	assert.Equal(t, "openai", AppConfig.ChatProvider)
	assert.Equal(t, 60*time.Second, AppConfig.LLMTimeout)
	assert.True(t, AppConfig.AllowSignup)
	assert.Empty(t, AppConfig.SeedAccounts)
}

func TestLoadConfig_SeedSlots(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("SEED_ACCOUNT1_EMAIL", "one@example.com")
	t.Setenv("SEED_ACCOUNT1_PASSWORD", "password-one")
	t.Setenv("SEED_ACCOUNT1_NAME", "Account One")
	// Slot 2 is incomplete (no password) and must be skipped.
	t.Setenv("SEED_ACCOUNT2_EMAIL", "two@example.com")

	LoadConfig()

	require.Len(t, AppConfig.SeedAccounts, 1)
	assert.Equal(t, SeedAccount{
		Email:    "one@example.com",
		Password: "password-one",
		FullName: "Account One",
	}, AppConfig.SeedAccounts[0])
}

func TestLoadConfig_SecretsFileWinsOverEnvironment(t *testing.T) {
	secretsFile := filepath.Join(t.TempDir(), "secrets.env")
	require.NoError(t, os.WriteFile(secretsFile, []byte(
		"SEED_ACCOUNT1_EMAIL=secret@example.com\nSEED_ACCOUNT1_PASSWORD=from-secrets\n",
	), 0o600))

	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("SECRETS_FILE", secretsFile)
	t.Setenv("SEED_ACCOUNT1_EMAIL", "env@example.com")
	t.Setenv("SEED_ACCOUNT1_PASSWORD", "from-env")

	LoadConfig()

	require.Len(t, AppConfig.SeedAccounts, 1)
	assert.Equal(t, "secret@example.com", AppConfig.SeedAccounts[0].Email)
	assert.Equal(t, "from-secrets", AppConfig.SeedAccounts[0].Password)
}

func TestLoadConfig_SignupToggle(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ALLOW_SIGNUP", "false")

	LoadConfig()

	assert.False(t, AppConfig.AllowSignup)
}
