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
	t.Chdir(t.TempDir())
	t.Setenv("DISCORD_TOKEN", "token")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.DotEnvLoaded())

	assert.Equal(t, ".", cfg.CommandPrefix)
	assert.Equal(t, "jingles", cfg.JinglesDir)
	assert.Equal(t, BackendJSON, cfg.StorageBackend)
	assert.Equal(t, "data/jingler.json", cfg.StoragePath)
	assert.Equal(t, int64(1024*1024), cfg.MaxJingleFileSize())
	assert.Equal(t, 10*time.Second, cfg.MaxJingleLength())
	assert.Equal(t, 65, cfg.MaxJingleTitleLength)
	assert.Equal(t, 1990, cfg.MessageLengthLimit)
	assert.Equal(t, 120*time.Second, cfg.PaginationTimeout)
	assert.Equal(t, 240*time.Second, cfg.UploadTimeout)
	assert.Nil(t, cfg.AllowList())
}

func TestLoad_RequiresToken(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DISCORD_TOKEN", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("COMMAND_PREFIX", "!")
	t.Setenv("STORAGE_BACKEND", "sqlite")
	t.Setenv("USE_SERVER_ALLOWLIST", "true")
	t.Setenv("SERVER_ALLOWLIST", "1,2")
	t.Setenv("PAGINATION_TIMEOUT", "30s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "!", cfg.CommandPrefix)
	assert.Equal(t, BackendSQLite, cfg.StorageBackend)
	assert.Equal(t, []string{"1", "2"}, cfg.AllowList())
	assert.Equal(t, 30*time.Second, cfg.PaginationTimeout)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Cleanup(func() { _ = os.Unsetenv("JINGLES_DIR") })
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("JINGLES_DIR=sounds\n"), 0644))
	t.Setenv("DISCORD_TOKEN", "token")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.DotEnvLoaded())
	assert.Equal(t, "sounds", cfg.JinglesDir)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("STORAGE_BACKEND", "mongo")
	t.Setenv("MAX_JINGLE_TITLE_LENGTH", "0")

	_, err := Load()
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), `unknown storage backend "mongo"`)
	assert.Contains(t, err.Error(), "title length")
}

func TestValidate_EmptyAllowList(t *testing.T) {
	cfg := Config{
		CommandPrefix: ".", StorageBackend: BackendJSON,
		MaxJingleFileSizeKB: 1, MaxJingleLengthSeconds: 1, MaxJingleTitleLength: 1,
		MessageLengthLimit: 1, PaginationTimeout: time.Second, ReplyTimeout: time.Second, UploadTimeout: time.Second,
		UseServerAllowList: true,
	}
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg.ServerAllowList = []string{"1"}
	assert.NoError(t, cfg.Validate())
}
