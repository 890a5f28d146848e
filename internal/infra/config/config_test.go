package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"villabook/internal/domain/units"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.StorageMode)
	assert.Equal(t, FallbackMemory, cfg.FallbackMode)
	assert.Equal(t, 5*time.Second, cfg.RemoteWriteTimeout)
	assert.Equal(t, 30*time.Second, cfg.ReconcileInterval)
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}, cfg.RetryBackoff)
	assert.False(t, cfg.MessagingEnabled())
	assert.False(t, cfg.ExportsEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORAGE_MODE", "Mongo")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("FALLBACK_MODE", "redis")
	t.Setenv("REMOTE_WRITE_TIMEOUT", "2s")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("S3_USE_SSL", "yes")
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorageMongo, cfg.StorageMode)
	assert.Equal(t, FallbackRedis, cfg.FallbackMode)
	assert.Equal(t, 2*time.Second, cfg.RemoteWriteTimeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.S3UseSSL)
	assert.Equal(t, 3, cfg.RedisDB)
}

func TestLoad_Rejects(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORAGE_MODE", "mongo")
	_, err := Load()
	assert.ErrorContains(t, err, "MONGO_URI")

	t.Setenv("STORAGE_MODE", "memory")
	t.Setenv("REMOTE_WRITE_TIMEOUT", "soon")
	_, err = Load()
	assert.ErrorContains(t, err, "REMOTE_WRITE_TIMEOUT")

	t.Setenv("REMOTE_WRITE_TIMEOUT", "")
	t.Setenv("FALLBACK_MODE", "disk")
	_, err = Load()
	assert.ErrorContains(t, err, "FALLBACK_MODE")
}

func TestLoad_ReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("RECONCILE_INTERVAL=1m\n"), 0o600))
	t.Chdir(dir)
	t.Cleanup(func() { os.Unsetenv("RECONCILE_INTERVAL") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, cfg.ReconcileInterval)
}

func TestDecodeCatalog(t *testing.T) {
	c, err := decodeCatalog(`
[[unit]]
id = "7G"
name = "Villa Mar"
nightly_rate = 120.5
max_guests = 6

[[unit]]
id = "1A"
nightly_rate = 55
max_guests = 2
`)
	require.NoError(t, err)
	u, err := c.ByID("7G")
	require.NoError(t, err)
	assert.Equal(t, "$120.50", u.NightlyRate.String())
	assert.Equal(t, 6, u.MaxGuests)
	a, err := c.ByID("1A")
	require.NoError(t, err)
	assert.Equal(t, "Villa #1A", a.Name)

	_, err = decodeCatalog(`
[[unit]]
id = "bad id"
nightly_rate = 10
max_guests = 1
`)
	assert.ErrorIs(t, err, units.ErrInvalidUnit)

	def, err := LoadCatalog("")
	require.NoError(t, err)
	assert.Len(t, def.All(), 6)
}
