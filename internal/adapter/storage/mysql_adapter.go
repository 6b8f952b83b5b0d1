package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rl1809/catrink/internal/port"
)

var ErrOptimisticLock = fmt.Errorf("optimistic lock conflict: %w", port.ErrConflict)

const mysqlSchema = `
CREATE TABLE IF NOT EXISTS kv_documents (
	doc_key    VARCHAR(255) NOT NULL PRIMARY KEY,
	doc_value  LONGBLOB     NOT NULL,
	version    BIGINT       NOT NULL DEFAULT 0,
	updated_at TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
)`

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) EnsureSchema(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, mysqlSchema); err != nil {
		return fmt.Errorf("create kv_documents: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, _, err := m.load(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (m *MySQLAdapter) Set(ctx context.Context, key string, value []byte) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO kv_documents (doc_key, doc_value, version)
		VALUES (?, ?, 0)
		ON DUPLICATE KEY UPDATE doc_value = VALUES(doc_value), version = version + 1`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) Delete(ctx context.Context, key string) error {
	if _, err := m.db.ExecContext(ctx, `DELETE FROM kv_documents WHERE doc_key = ?`, key); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// Update reads the row with its version and writes back only if the version
// is unchanged, retrying on conflict.
func (m *MySQLAdapter) Update(ctx context.Context, key string, fn port.UpdateFunc) error {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		current, version, err := m.load(ctx, key)
		exists := true
		if errors.Is(err, sql.ErrNoRows) {
			exists = false
		} else if err != nil {
			return err
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		var result sql.Result
		if exists {
			result, err = m.db.ExecContext(ctx, `
				UPDATE kv_documents
				SET doc_value = ?, version = version + 1
				WHERE doc_key = ? AND version = ?`,
				next, key, version,
			)
		} else {
			result, err = m.db.ExecContext(ctx, `
				INSERT IGNORE INTO kv_documents (doc_key, doc_value, version)
				VALUES (?, ?, 0)`,
				key, next,
			)
		}
		if err != nil {
			return fmt.Errorf("write document: %w", err)
		}

		rows, _ := result.RowsAffected()
		if rows > 0 {
			return nil
		}
	}
	return ErrOptimisticLock
}

func (m *MySQLAdapter) load(ctx context.Context, key string) ([]byte, int64, error) {
	var (
		value   []byte
		version int64
	)
	err := m.db.QueryRowContext(ctx, `
		SELECT doc_value, version FROM kv_documents WHERE doc_key = ?`, key,
	).Scan(&value, &version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, 0, fmt.Errorf("query document: %w", err)
	}
	return value, version, err
}
