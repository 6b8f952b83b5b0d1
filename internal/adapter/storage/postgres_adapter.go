package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rl1809/catrink/internal/port"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS kv_documents (
	doc_key    TEXT        PRIMARY KEY,
	doc_value  BYTEA       NOT NULL,
	version    BIGINT      NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

type PostgresAdapter struct {
	db   *sql.DB
	opts TxOptions
}

func NewPostgresAdapter(db *sql.DB) *PostgresAdapter {
	return &PostgresAdapter{db: db, opts: DefaultTxOptions()}
}

func (p *PostgresAdapter) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create kv_documents: %w", err)
	}
	return nil
}

func (p *PostgresAdapter) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := p.db.QueryRowContext(ctx, `SELECT doc_value FROM kv_documents WHERE doc_key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query document: %w", err)
	}
	return value, true, nil
}

func (p *PostgresAdapter) Set(ctx context.Context, key string, value []byte) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO kv_documents (doc_key, doc_value)
		VALUES ($1, $2)
		ON CONFLICT (doc_key) DO UPDATE
		SET doc_value = EXCLUDED.doc_value, version = kv_documents.version + 1, updated_at = NOW()`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

func (p *PostgresAdapter) Delete(ctx context.Context, key string) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM kv_documents WHERE doc_key = $1`, key); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// Update locks the row for the duration of fn. A concurrent first insert of
// the same key surfaces as port.ErrConflict and is retried.
func (p *PostgresAdapter) Update(ctx context.Context, key string, fn port.UpdateFunc) error {
	return WithRetry(ctx, p.db, p.opts, func(tx *sql.Tx) error {
		var current []byte
		err := tx.QueryRowContext(ctx, `
			SELECT doc_value FROM kv_documents WHERE doc_key = $1 FOR UPDATE`, key,
		).Scan(&current)
		exists := true
		if errors.Is(err, sql.ErrNoRows) {
			exists = false
		} else if err != nil {
			return fmt.Errorf("lock document: %w", err)
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		if exists {
			_, err = tx.ExecContext(ctx, `
				UPDATE kv_documents
				SET doc_value = $2, version = version + 1, updated_at = NOW()
				WHERE doc_key = $1`,
				key, next,
			)
			if err != nil {
				return fmt.Errorf("update document: %w", err)
			}
			return nil
		}

		result, err := tx.ExecContext(ctx, `
			INSERT INTO kv_documents (doc_key, doc_value)
			VALUES ($1, $2)
			ON CONFLICT (doc_key) DO NOTHING`,
			key, next,
		)
		if err != nil {
			return fmt.Errorf("insert document: %w", err)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return port.ErrConflict
		}
		return nil
	})
}
