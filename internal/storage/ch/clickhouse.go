package ch

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"bookshelf/internal/storage"
)

// ClickHouseDB stores keys as versioned rows; the newest row per key wins
// and a row with deleted=1 is a tombstone.
type ClickHouseDB struct {
	conn clickhouse.Conn
	now  func() time.Time
}

var _ storage.Storage = (*ClickHouseDB)(nil)

// NewClickHouseDB creates a new ClickHouse database connection
func NewClickHouseDB(host string, port int, database, user, password string, useTLS bool) (*ClickHouseDB, error) {
	addr := fmt.Sprintf("%s:%d", host, port)

	options := &clickhouse.Options{
		Addr:     []string{addr},
		Protocol: clickhouse.Native,
		Auth: clickhouse.Auth{
			Database: database,
			Username: user,
			Password: password,
		},
	}

	// Configure TLS if enabled
	if useTLS {
		options.TLS = &tls.Config{
			InsecureSkipVerify: false,
		}
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	// Test the connection
	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &ClickHouseDB{conn: conn, now: time.Now}, nil
}

// Initialize is a no-op - tables are managed via migrations
func (db *ClickHouseDB) Initialize(ctx context.Context) error {
	return nil
}

func (db *ClickHouseDB) Set(ctx context.Context, key string, value []byte) error {
	err := db.conn.Exec(ctx, `INSERT INTO kv_store (key, value, deleted, updated_at) VALUES (?, ?, ?, ?)`,
		key, string(value), uint8(0), db.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (db *ClickHouseDB) Get(ctx context.Context, key string) ([]byte, error) {
	var (
		value   string
		deleted uint8
	)
	row := db.conn.QueryRow(ctx, `
		SELECT argMax(value, updated_at), argMax(deleted, updated_at)
		FROM kv_store
		WHERE key = ?
		GROUP BY key`, key)
	err := row.Scan(&value, &deleted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	if deleted == 1 {
		return nil, storage.ErrNotFound
	}
	return []byte(value), nil
}

// Remove writes a tombstone row for key
func (db *ClickHouseDB) Remove(ctx context.Context, key string) error {
	err := db.conn.Exec(ctx, `INSERT INTO kv_store (key, value, deleted, updated_at) VALUES (?, ?, ?, ?)`,
		key, "", uint8(1), db.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

func (db *ClickHouseDB) Keys(ctx context.Context) ([]string, error) {
	rows, err := db.conn.Query(ctx, `
		SELECT key
		FROM kv_store
		GROUP BY key
		HAVING argMax(deleted, updated_at) = 0
		ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Close closes the database connection
func (db *ClickHouseDB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
