package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kilupskalvis/doctrack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Initialize(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DoctrackDir), cfg.Path())
	assert.FileExists(t, filepath.Join(dir, DoctrackDir, ConfigFile))

	_, err = Initialize(dir)
	assert.Error(t, err)

	loaded, err := LoadFrom(cfg.Path())
	require.NoError(t, err)
	assert.Equal(t, "bolt", loaded.LockBackend)
	assert.Equal(t, "info", loaded.LogLevel)
	assert.Equal(t, 3, loaded.Retry.MaxRetries)
	assert.Equal(t, filepath.Join(dir, DoctrackDir, DatabaseFile), loaded.DatabasePath())
	assert.Equal(t, filepath.Join(dir, DoctrackDir, LockDatabaseFile), loaded.LockDatabasePath())
}

func TestSaveAndReload(t *testing.T) {
	cfg, err := Initialize(t.TempDir())
	require.NoError(t, err)

	cfg.LockBackend = "sqlite"
	cfg.Schemas = map[string]map[string]string{"orders": {"qty": "int", "tags[]": "string"}}
	require.NoError(t, cfg.Save())

	loaded, err := LoadFrom(cfg.Path())
	require.NoError(t, err)
	assert.Equal(t, "sqlite", loaded.LockBackend)
	assert.Equal(t, cfg.Schemas, loaded.Schemas)
}

func TestFindRootFrom(t *testing.T) {
	dir := t.TempDir()
	_, err := Initialize(dir)
	require.NoError(t, err)

	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	root, err := FindRootFrom(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DoctrackDir), root)

	_, err = FindRootFrom(t.TempDir())
	assert.Error(t, err)
}

func TestLoadFrom_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), DoctrackDir)
	require.NoError(t, os.MkdirAll(path, 0755))

	data := `
database_file = "/var/lib/doctrack/main.db"
lock_backend = "sqlite"
lock_database = "shared/locks.db"
log_format = "json"

[retry]
max_retries = 5
initial_backoff = "10ms"

[schemas.orders]
qty = "int"
"tags[]" = "string"
"items[].price" = "double"
`
	require.NoError(t, os.WriteFile(filepath.Join(path, ConfigFile), []byte(data), 0644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/doctrack/main.db", cfg.DatabasePath())
	assert.Equal(t, filepath.Join(path, "shared", "locks.db"), cfg.LockDatabasePath())
	assert.Equal(t, "json", cfg.LogFormat)
	// Unset keys keep their defaults
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 0.25, cfg.Retry.JitterFraction)

	initial, maxBackoff, err := cfg.Retry.Backoff()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Millisecond, initial)
	assert.Equal(t, 5*time.Second, maxBackoff)

	schemas, err := cfg.CollectionSchemas()
	require.NoError(t, err)
	orders := schemas["orders"]
	require.NotNil(t, orders)
	assert.Equal(t, models.KindInt, orders.Field("qty").Kind)
	assert.Equal(t, models.KindString, orders.Field("tags").Elem.Kind)
	assert.Equal(t, models.KindDouble, orders.Field("items").Elem.Field("price").Kind)
}

func TestLoadFrom_Invalid(t *testing.T) {
	path := t.TempDir()

	_, err := LoadFrom(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(path, ConfigFile), []byte("lock_backend = "), 0644))
	_, err = LoadFrom(path)
	assert.Error(t, err)
}

func TestRetryConfig_BackoffErrors(t *testing.T) {
	_, _, err := RetryConfig{InitialBackoff: "soon"}.Backoff()
	assert.Error(t, err)

	_, _, err = RetryConfig{MaxBackoff: "later"}.Backoff()
	assert.Error(t, err)

	initial, maxBackoff, err := RetryConfig{}.Backoff()
	require.NoError(t, err)
	assert.Equal(t, 100*time.Millisecond, initial)
	assert.Equal(t, 5*time.Second, maxBackoff)
}

func TestCollectionSchemas_Invalid(t *testing.T) {
	cfg := Default()
	cfg.Schemas = map[string]map[string]string{"orders": {"qty": "integer"}}
	_, err := cfg.CollectionSchemas()
	assert.Error(t, err)
}
