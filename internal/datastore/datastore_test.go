package datastore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig(filepath.Join(t.TempDir(), "nested", "store.json"))
	cfg.AutoSaveInterval = 0
	return cfg
}

func TestDataStore_PersistsAcrossReopen(t *testing.T) {
	cfg := testConfig(t)

	ds, err := NewWithConfig(cfg)
	require.NoError(t, err)
	require.NoError(t, ds.Put("guild:1", record{Name: "one", Count: 1}))
	require.NoError(t, ds.Put("user:7", record{Name: "seven", Count: 7}))
	require.NoError(t, ds.Close())

	ds, err = NewWithConfig(cfg)
	require.NoError(t, err)
	defer ds.Close()

	var got record
	ok, err := ds.Get("guild:1", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, record{Name: "one", Count: 1}, got)

	assert.Equal(t, []string{"guild:1"}, ds.Keys("guild:"))
	assert.Equal(t, 2, ds.Stats().Keys)
}

func TestDataStore_GetMissing(t *testing.T) {
	ds, err := NewWithConfig(testConfig(t))
	require.NoError(t, err)
	defer ds.Close()

	var got record
	ok, err := ds.Get("nope", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDataStore_Delete(t *testing.T) {
	ds, err := NewWithConfig(testConfig(t))
	require.NoError(t, err)
	defer ds.Close()

	require.NoError(t, ds.Put("k", record{Name: "x"}))
	ds.Delete("k")

	var got record
	ok, err := ds.Get("k", &got)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, ds.Stats().MemorySize)
}

func TestDataStore_MemoryLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxMemorySize = 32

	ds, err := NewWithConfig(cfg)
	require.NoError(t, err)
	defer ds.Close()

	require.NoError(t, ds.Put("small", "ok"))
	assert.ErrorIs(t, ds.Put("big", record{Name: "this value is far too large to fit"}), ErrMemoryLimit)
}

func TestDataStore_Closed(t *testing.T) {
	ds, err := NewWithConfig(testConfig(t))
	require.NoError(t, err)
	require.NoError(t, ds.Close())
	require.NoError(t, ds.Close())

	assert.ErrorIs(t, ds.Put("k", 1), ErrClosed)
	_, err = ds.Get("k", new(int))
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, ds.SaveToFile(), ErrClosed)
}

func TestDataStore_RejectsCorruptFile(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.FilePath), 0755))
	require.NoError(t, os.WriteFile(cfg.FilePath, []byte("{not json"), 0644))

	_, err := NewWithConfig(cfg)
	assert.Error(t, err)
}

func TestDataStore_KeepsLimitedBackups(t *testing.T) {
	cfg := testConfig(t)
	cfg.BackupCount = 2

	ds, err := NewWithConfig(cfg)
	require.NoError(t, err)
	defer ds.Close()

	for i := range 5 {
		require.NoError(t, ds.Put("k", i))
		require.NoError(t, ds.SaveToFile())
	}

	backups, err := filepath.Glob(cfg.FilePath + ".backup.*")
	require.NoError(t, err)
	assert.Len(t, backups, 2)
}

func TestDataStore_AutoSave(t *testing.T) {
	cfg := testConfig(t)
	cfg.AutoSaveInterval = 10 * time.Millisecond

	ds, err := NewWithConfig(cfg)
	require.NoError(t, err)
	defer ds.Close()

	require.NoError(t, ds.Put("k", "v"))
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(cfg.FilePath)
		return err == nil && len(data) > 2
	}, time.Second, 5*time.Millisecond)
}

func TestNewWithConfig_Validation(t *testing.T) {
	_, err := NewWithConfig(nil)
	assert.ErrorIs(t, err, ErrNilConfig)

	_, err = NewWithConfig(&Config{})
	assert.ErrorIs(t, err, ErrEmptyPath)
}
