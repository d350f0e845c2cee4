package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFull(t *testing.T) {
	doc := `
[cassandra]
hosts = ["cass1.internal:9042", "cass2.internal:9042"]
keyspace = "cats_space"
consistency = "one"
timeout_seconds = 5
num_conns = 4

[engine]
index_depth = 3
disable_jitter = true
cache_shards = 128
cache_ttl_seconds = 3600

[logstore]
ttl_days_exact = 60
ttl_days_source_context = 14
ttl_days_global_context = 3
levels_for_source_context = ["warn", "error", "info"]
levels_for_global_context = ["error"]
`
	c, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)

	backend := c.BackendConfig()
	assert.Equal(t, []string{"cass1.internal:9042", "cass2.internal:9042"}, backend.Hosts)
	assert.Equal(t, "cats_space", backend.Keyspace)
	assert.Equal(t, "one", backend.Consistency)
	assert.Equal(t, 5*time.Second, backend.Timeout)
	assert.Equal(t, 4, backend.NumConns)

	engine := c.EngineOptions()
	assert.Equal(t, 3, engine.IndexDepth)
	assert.True(t, engine.DisableJitter)
	assert.Equal(t, time.Hour, engine.CacheTTL)

	ls := c.LogStoreOptions()
	assert.Equal(t, 60, ls.TTLDaysExact)
	assert.Equal(t, 14, ls.TTLDaysSourceContext)
	assert.Equal(t, 3, ls.TTLDaysGlobalContext)
	assert.Equal(t, []string{"warn", "error", "info"}, ls.LevelsForSourceContext)
	assert.Equal(t, []string{"error"}, ls.LevelsForGlobalContext)
}

func TestParseMinimal(t *testing.T) {
	doc := `
[cassandra]
hosts = ["localhost:9042"]
keyspace = "cats_space"
`
	c, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)

	// Unset sections stay zero; downstream constructors apply defaults.
	assert.Equal(t, 0, c.Engine.IndexDepth)
	assert.Nil(t, c.LogStore.LevelsForSourceContext)
}

func TestParseValidation(t *testing.T) {
	_, err := Parse(strings.NewReader(`[cassandra]` + "\n" + `keyspace = "k"`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host")

	_, err = Parse(strings.NewReader(`[cassandra]` + "\n" + `hosts = ["h:9042"]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "keyspace")
}

func TestParseBadTOML(t *testing.T) {
	_, err := Parse(strings.NewReader("not toml ==="))
	assert.Error(t, err)
}
