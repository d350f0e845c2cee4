// Package cassandra implements the storage Backend over an Apache
// Cassandra cluster using gocql. Each column family maps to one table of
// shape (key text, col blob, value blob) with col as the clustering key,
// so the bytewise clustering order matches the engine's order-preserving
// column encoding.
package cassandra

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"cats/storage"
)

// tables maps the engine's column-family names to their CQL tables.
var tables = map[string]string{
	storage.CFHourly:    "hourly_timestamped_data",
	storage.CFBlob:      "blob_data",
	storage.CFBlobIndex: "blob_data_index",
	storage.CFLatest:    "latest_data",
}

// Config carries the cluster settings the backend needs. The keyspace must
// already exist; cluster topology and replica placement are the
// operator's concern.
type Config struct {
	Hosts       []string
	Keyspace    string
	Consistency string        // e.g. "one", "quorum"; empty selects quorum
	Timeout     time.Duration // per-query timeout; zero keeps the driver default
	NumConns    int           // connections per host; zero keeps the driver default
}

// Backend talks to Cassandra. Safe for concurrent use; gocql sessions are.
type Backend struct {
	session *gocql.Session
	log     *zap.Logger
}

var _ storage.Backend = (*Backend)(nil)

// New connects to the cluster and returns a ready backend.
func New(cfg Config, log *zap.Logger) (*Backend, error) {
	if log == nil {
		log = zap.NewNop()
	}

	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = gocql.Quorum
	if cfg.Consistency != "" {
		consistency, err := gocql.ParseConsistencyWrapper(cfg.Consistency)
		if err != nil {
			return nil, fmt.Errorf("cassandra: %w", err)
		}
		cluster.Consistency = consistency
	}
	if cfg.Timeout > 0 {
		cluster.Timeout = cfg.Timeout
	}
	if cfg.NumConns > 0 {
		cluster.NumConns = cfg.NumConns
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("cassandra: create session: %w", err)
	}
	log.Debug("connected", zap.Strings("hosts", cfg.Hosts), zap.String("keyspace", cfg.Keyspace))
	return &Backend{session: session, log: log}, nil
}

// Close tears down the session.
func (b *Backend) Close() {
	b.session.Close()
}

// CreateSchema creates the four tables if they are missing. Intended for
// tests and first-run provisioning; it does not migrate existing schemas.
func (b *Backend) CreateSchema(ctx context.Context) error {
	for _, table := range tables {
		ddl := fmt.Sprintf(
			"CREATE TABLE IF NOT EXISTS %s (key text, col blob, value blob, PRIMARY KEY (key, col)) WITH CLUSTERING ORDER BY (col ASC)",
			table)
		if err := b.session.Query(ddl).WithContext(ctx).Exec(); err != nil {
			return fmt.Errorf("cassandra: create table %s: %w", table, err)
		}
	}
	return nil
}

func tableFor(cf string) (string, error) {
	table, ok := tables[cf]
	if !ok {
		return "", fmt.Errorf("cassandra: unknown column family %q", cf)
	}
	return table, nil
}

func ttlSeconds(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	secs := int64(ttl / time.Second)
	if secs == 0 {
		secs = 1
	}
	return secs
}

// Insert writes the given columns into one row, optionally with a TTL.
func (b *Backend) Insert(ctx context.Context, cf, rowKey string, cols []storage.Column, ttl time.Duration) error {
	table, err := tableFor(cf)
	if err != nil {
		return err
	}
	stmt := insertStmt(table, ttl)
	for _, col := range cols {
		q := b.session.Query(stmt, bindInsert(rowKey, col, ttl)...).WithContext(ctx)
		if err := q.Exec(); err != nil {
			return fmt.Errorf("cassandra: insert %s/%s: %w", table, rowKey, err)
		}
	}
	return nil
}

// BatchInsert writes columns into several rows in one unlogged batch.
func (b *Backend) BatchInsert(ctx context.Context, cf string, rows map[string][]storage.Column, ttl time.Duration) error {
	table, err := tableFor(cf)
	if err != nil {
		return err
	}
	stmt := insertStmt(table, ttl)

	batch := b.session.NewBatch(gocql.UnloggedBatch).WithContext(ctx)
	for rowKey, cols := range rows {
		for _, col := range cols {
			batch.Query(stmt, bindInsert(rowKey, col, ttl)...)
		}
	}
	if err := b.session.ExecuteBatch(batch); err != nil {
		return fmt.Errorf("cassandra: batch insert %s: %w", table, err)
	}
	return nil
}

func insertStmt(table string, ttl time.Duration) string {
	if ttl > 0 {
		return fmt.Sprintf("INSERT INTO %s (key, col, value) VALUES (?, ?, ?) USING TTL ?", table)
	}
	return fmt.Sprintf("INSERT INTO %s (key, col, value) VALUES (?, ?, ?)", table)
}

func bindInsert(rowKey string, col storage.Column, ttl time.Duration) []interface{} {
	if ttl > 0 {
		return []interface{}{rowKey, col.Name, col.Value, ttlSeconds(ttl)}
	}
	return []interface{}{rowKey, col.Name, col.Value}
}

// Get returns up to limit columns of one row within the inclusive
// [start, finish] slice. An empty slice reports storage.ErrNotFound; CQL
// cannot distinguish a missing row from a row with no columns in range.
func (b *Backend) Get(ctx context.Context, cf, rowKey string, start, finish []byte, limit int, reversed bool) ([]storage.Column, error) {
	table, err := tableFor(cf)
	if err != nil {
		return nil, err
	}

	stmt := fmt.Sprintf("SELECT col, value FROM %s WHERE key = ?", table)
	args := []interface{}{rowKey}
	if start != nil {
		stmt += " AND col >= ?"
		args = append(args, start)
	}
	if finish != nil {
		stmt += " AND col <= ?"
		args = append(args, finish)
	}
	if reversed {
		stmt += " ORDER BY col DESC"
	}
	if limit > 0 {
		stmt += fmt.Sprintf(" LIMIT %d", limit)
	}

	iter := b.session.Query(stmt, args...).WithContext(ctx).Iter()
	var cols []storage.Column
	var name, value []byte
	for iter.Scan(&name, &value) {
		cols = append(cols, storage.Column{Name: name, Value: value})
		name, value = nil, nil
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("cassandra: get %s/%s: %w", table, rowKey, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("cassandra: row %s/%s: %w", table, rowKey, storage.ErrNotFound)
	}
	return cols, nil
}

// MultiGet returns up to limit columns per row for every row that exists.
func (b *Backend) MultiGet(ctx context.Context, cf string, rowKeys []string, limit int) (map[string][]storage.Column, error) {
	table, err := tableFor(cf)
	if err != nil {
		return nil, err
	}
	if len(rowKeys) == 0 {
		return map[string][]storage.Column{}, nil
	}

	stmt := fmt.Sprintf("SELECT key, col, value FROM %s WHERE key IN ?", table)
	iter := b.session.Query(stmt, rowKeys).WithContext(ctx).Iter()

	result := make(map[string][]storage.Column, len(rowKeys))
	var rowKey string
	var name, value []byte
	for iter.Scan(&rowKey, &name, &value) {
		if limit > 0 && len(result[rowKey]) >= limit {
			rowKey, name, value = "", nil, nil
			continue
		}
		result[rowKey] = append(result[rowKey], storage.Column{Name: name, Value: value})
		rowKey, name, value = "", nil, nil
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("cassandra: multi get %s: %w", table, err)
	}
	return result, nil
}

// Remove deletes one entire row.
func (b *Backend) Remove(ctx context.Context, cf, rowKey string) error {
	table, err := tableFor(cf)
	if err != nil {
		return err
	}
	stmt := fmt.Sprintf("DELETE FROM %s WHERE key = ?", table)
	if err := b.session.Query(stmt, rowKey).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("cassandra: remove %s/%s: %w", table, rowKey, err)
	}
	return nil
}
