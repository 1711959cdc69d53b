package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStoreRoundTrip(t *testing.T) {
	cfg := NewConfigStore()

	require.NoError(t, cfg.Set("user.id", "carol"))
	require.NoError(t, cfg.Set("worker.max_attempts", 5))
	require.NoError(t, cfg.Set("query.include_sources", true))
	require.NoError(t, cfg.Set("ingest.extensions", []string{".md", ".pdf"}))

	assert.Equal(t, "carol", cfg.GetString("user.id"))
	assert.Equal(t, 5, cfg.GetInt("worker.max_attempts"))
	assert.True(t, cfg.GetBool("query.include_sources"))
	assert.Equal(t, []string{".md", ".pdf"}, cfg.GetStringSlice("ingest.extensions"))
}

func TestConfigStoreMissingKeys(t *testing.T) {
	cfg := NewConfigStore()

	_, ok := cfg.Get("embedding.provider")
	assert.False(t, ok)
	assert.Equal(t, "", cfg.GetString("embedding.provider"))
	assert.Equal(t, 0, cfg.GetInt("worker.max_attempts"))
	assert.False(t, cfg.GetBool("query.include_sources"))
	assert.Nil(t, cfg.GetStringSlice("ingest.extensions"))
}

func TestConfigStoreTypedGettersCoerce(t *testing.T) {
	cfg := NewConfigStore()

	// TOML decoding hands back int64 and float64; the typed getters
	// accept those alongside plain ints.
	require.NoError(t, cfg.Set("worker.max_attempts", int64(4)))
	assert.Equal(t, 4, cfg.GetInt("worker.max_attempts"))

	require.NoError(t, cfg.Set("embedding.dimensions", float64(768)))
	assert.Equal(t, 768, cfg.GetInt("embedding.dimensions"))

	require.NoError(t, cfg.Set("ingest.extensions", []any{".md", ".txt"}))
	assert.Equal(t, []string{".md", ".txt"}, cfg.GetStringSlice("ingest.extensions"))

	// Mismatched types yield zero values rather than panicking.
	require.NoError(t, cfg.Set("user.id", 42))
	assert.Equal(t, "", cfg.GetString("user.id"))
	assert.Equal(t, 0, cfg.GetInt("llm.model"))
}

func TestConfigStoreOverwrite(t *testing.T) {
	cfg := NewConfigStore()

	require.NoError(t, cfg.Set("llm.provider", "openai"))
	require.NoError(t, cfg.Set("llm.provider", "ollama"))
	assert.Equal(t, "ollama", cfg.GetString("llm.provider"))
}

func TestConfigStoreSaveAndLoadAreNoOps(t *testing.T) {
	cfg := NewConfigStore()
	require.NoError(t, cfg.Set("server.addr", ":8484"))

	require.NoError(t, cfg.Save())
	require.NoError(t, cfg.Load())
	assert.Equal(t, ":8484", cfg.GetString("server.addr"))
	assert.Equal(t, ":memory:", cfg.Path())
}

func TestConfigStoreConcurrentAccess(t *testing.T) {
	cfg := NewConfigStore()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = cfg.Set("worker.concurrency", j)
				_ = cfg.GetInt("worker.concurrency")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 49, cfg.GetInt("worker.concurrency"))
}
