package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("PAGE_CACHE_TTL", "")
	t.Setenv("EXPORT_CONCURRENCY", "")
	t.Setenv("API_BASE_URL", "")

	cfg := Load()
	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.Equal(t, "https://waste-tool.apnimandi.us", cfg.APIBaseURL)
	assert.Equal(t, 3*time.Minute, cfg.History.PageCacheTTL)
	assert.Equal(t, 5*time.Minute, cfg.History.SearchCacheTTL)
	assert.Equal(t, 50, cfg.History.SearchCacheSize)
	assert.Equal(t, 5, cfg.History.ExportConcurrency)
	assert.Equal(t, 3*time.Second, cfg.History.EmptyRevertDelay)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,,")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("SUGGEST_DEBOUNCE", "250ms")
	t.Setenv("HISTORY_PAGE_SIZE", "nope")

	cfg := Load()
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, 250*time.Millisecond, cfg.History.SuggestDebounce)
	assert.Equal(t, 10, cfg.History.PageSize, "invalid int falls back to default")
}

func TestLocation(t *testing.T) {
	assert.Equal(t, time.Local, Config{DisplayTZ: "Local"}.Location())
	assert.Equal(t, time.Local, Config{DisplayTZ: "Not/AZone"}.Location())
	assert.Equal(t, "UTC", Config{DisplayTZ: "UTC"}.Location().String())
}
