package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, int64(1), cfg.Lookup.QueryCost)
	assert.Equal(t, 24*time.Hour, cfg.Lookup.CacheTTL)
	assert.Equal(t, 15*time.Second, cfg.Lookup.AdapterTimeout("truecaller"))
	assert.Equal(t, 120*time.Second, cfg.Lookup.AdapterTimeout("data_breach"))
	assert.Equal(t, 110*time.Second, cfg.Lookup.AdapterTimeout("osint_industries"))
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LOOKUP_QUERY_COST", "3")
	t.Setenv("LOOKUP_ADAPTER_TIMEOUTS", "instagram:2s")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("PROVIDER_RAPIDAPI_KEY", "shared")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(3), cfg.Lookup.QueryCost)
	assert.Equal(t, 2*time.Second, cfg.Lookup.AdapterTimeout("instagram"))
	assert.Equal(t, cfg.Lookup.DefaultAdapterTimeout, cfg.Lookup.AdapterTimeout("data_breach"))
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "shared", cfg.Providers.TruecallerAPIKey())
}

func TestLoadRejectsInvalidBackends(t *testing.T) {
	t.Run("redis cache without url", func(t *testing.T) {
		t.Setenv("LOOKOUT_CACHE_BACKEND", "redis")
		_, err := Load()
		assert.ErrorContains(t, err, "REDIS_URL")
	})
	t.Run("unknown ledger backend", func(t *testing.T) {
		t.Setenv("LOOKOUT_LEDGER_BACKEND", "sqlite")
		_, err := Load()
		assert.ErrorContains(t, err, "unknown ledger backend")
	})
	t.Run("negative query cost", func(t *testing.T) {
		t.Setenv("LOOKUP_QUERY_COST", "-1")
		_, err := Load()
		assert.Error(t, err)
	})
}
