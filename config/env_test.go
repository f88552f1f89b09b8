package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// reset consumes the one-time Load so getters read what the test loaded.
func reset(t *testing.T) {
	_ = Load()
	t.Cleanup(func() {
		_ = loadFromFiles(filepath.Join(t.TempDir(), "none.json"), filepath.Join(t.TempDir(), "none.env"))
	})
}

func TestLoadPrecedence(t *testing.T) {
	reset(t)
	dir := t.TempDir()

	jsonPath := writeFile(t, dir, "app.json", `{"app_port": 7000, "store_driver": "memory", "items_per_page": 20, "db_driver": "postgres"}`)
	envPath := writeFile(t, dir, ".env", "APP_PORT=7100\nSESSION_TTL=30m\n")
	t.Setenv("DB_DRIVER", "mysql")

	require.NoError(t, loadFromFiles(jsonPath, envPath))

	assert.Equal(t, "7100", get("APP_PORT", ""))
	assert.Equal(t, "memory", StoreDriver())
	assert.Equal(t, "mysql", DatabaseDriver())
	assert.Equal(t, 20, ItemsPerPage())
	assert.Equal(t, 30*time.Minute, SessionTTL())
	assert.Contains(t, DatabaseDSN(), "tcp(127.0.0.1:3306)")
}

func TestMissingFilesUseDefaults(t *testing.T) {
	reset(t)
	dir := t.TempDir()

	require.NoError(t, loadFromFiles(filepath.Join(dir, "app.json"), filepath.Join(dir, ".env")))

	assert.Equal(t, "database", StoreDriver())
	assert.Equal(t, 12, ItemsPerPage())
	assert.Equal(t, time.Minute, CatalogCacheTTL())
	assert.Equal(t, "X-Session-ID", SessionHeader())
	assert.Equal(t, int64(4<<20), MaxBodyBytes())
}

func TestInvalidValuesFallBack(t *testing.T) {
	reset(t)
	dir := t.TempDir()
	envPath := writeFile(t, dir, ".env", "STORE_DRIVER=cassandra\nITEMS_PER_PAGE=-3\nCATALOG_CACHE_TTL=soon\n")

	require.NoError(t, loadFromFiles(filepath.Join(dir, "app.json"), envPath))

	assert.Equal(t, "database", StoreDriver())
	assert.Equal(t, 12, ItemsPerPage())
	assert.Equal(t, time.Minute, CatalogCacheTTL())
}

func TestMalformedJSONIsAnError(t *testing.T) {
	reset(t)
	dir := t.TempDir()
	jsonPath := writeFile(t, dir, "app.json", "{")

	assert.Error(t, loadFromFiles(jsonPath, filepath.Join(dir, ".env")))
}
