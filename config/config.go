// Package config loads cats settings from TOML: the Cassandra cluster,
// the engine knobs and the log facade tiers. Unset fields stay zero after
// decoding; the engine, facade and backend constructors apply their
// defaults to zero values, so a minimal file only has to name the cluster.
package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"cats/cassandra"
	"cats/logstore"
	"cats/storage"
)

// Config is the top-level TOML document.
type Config struct {
	Cassandra Cluster  `toml:"cassandra"`
	Engine    Engine   `toml:"engine"`
	LogStore  LogStore `toml:"logstore"`
}

// Cluster maps [cassandra].
type Cluster struct {
	Hosts          []string `toml:"hosts"`
	Keyspace       string   `toml:"keyspace"`
	Consistency    string   `toml:"consistency"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	NumConns       int      `toml:"num_conns"`
}

// Engine maps [engine].
type Engine struct {
	IndexDepth      int  `toml:"index_depth"`
	DisableJitter   bool `toml:"disable_jitter"`
	CacheShards     int  `toml:"cache_shards"`
	CacheTTLSeconds int  `toml:"cache_ttl_seconds"`
}

// LogStore maps [logstore].
type LogStore struct {
	TTLDaysExact           int      `toml:"ttl_days_exact"`
	TTLDaysSourceContext   int      `toml:"ttl_days_source_context"`
	TTLDaysGlobalContext   int      `toml:"ttl_days_global_context"`
	LevelsForSourceContext []string `toml:"levels_for_source_context"`
	LevelsForGlobalContext []string `toml:"levels_for_global_context"`
}

// Load opens the file at the given path and parses it.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open file %q: %w", path, err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads TOML content from reader and returns the validated config.
func Parse(r io.Reader) (*Config, error) {
	var c Config
	if _, err := toml.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("config: decode error: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) validate() error {
	if len(c.Cassandra.Hosts) == 0 {
		return fmt.Errorf("config: at least one cassandra host is required")
	}
	if c.Cassandra.Keyspace == "" {
		return fmt.Errorf("config: cassandra keyspace is required")
	}
	return nil
}

// BackendConfig converts the cluster section into the cassandra driver's
// config.
func (c *Config) BackendConfig() cassandra.Config {
	return cassandra.Config{
		Hosts:       c.Cassandra.Hosts,
		Keyspace:    c.Cassandra.Keyspace,
		Consistency: c.Cassandra.Consistency,
		Timeout:     time.Duration(c.Cassandra.TimeoutSeconds) * time.Second,
		NumConns:    c.Cassandra.NumConns,
	}
}

// EngineOptions converts the engine section into storage options. The
// logger and the cache instance stay the caller's to supply; CacheShards
// only sizes the cache the caller may build.
func (c *Config) EngineOptions() storage.Options {
	return storage.Options{
		IndexDepth:    c.Engine.IndexDepth,
		DisableJitter: c.Engine.DisableJitter,
		CacheTTL:      time.Duration(c.Engine.CacheTTLSeconds) * time.Second,
	}
}

// LogStoreOptions converts the logstore section into facade options.
func (c *Config) LogStoreOptions() logstore.Options {
	return logstore.Options{
		TTLDaysExact:           c.LogStore.TTLDaysExact,
		TTLDaysSourceContext:   c.LogStore.TTLDaysSourceContext,
		TTLDaysGlobalContext:   c.LogStore.TTLDaysGlobalContext,
		LevelsForSourceContext: c.LogStore.LevelsForSourceContext,
		LevelsForGlobalContext: c.LogStore.LevelsForGlobalContext,
	}
}
