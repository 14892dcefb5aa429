package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresBackend はPostgreSQLのcache_entriesテーブルを使うキャッシュバックエンド。
// 期限切れ行は読み取り時にフィルタされ、書き込み時に遅延削除される（定期的な掃除は行わない）。
type PostgresBackend struct {
	db *sql.DB
}

// NewPostgresBackend はPostgresBackendを生成する。
func NewPostgresBackend(db *sql.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

// Get はキーに対応する未期限切れの値を返す。
func (b *PostgresBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var body []byte
	err := b.db.QueryRowContext(ctx,
		`SELECT body FROM cache_entries WHERE key = $1 AND expires_at > now()`,
		key,
	).Scan(&body)

	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("キャッシュエントリの取得に失敗しました: %w", err)
	}
	return body, true, nil
}

// Set は値をUPSERTする。ついでに期限切れ行を遅延削除する。
func (b *PostgresBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if _, err := b.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE expires_at <= now()`,
	); err != nil {
		return fmt.Errorf("期限切れキャッシュエントリの削除に失敗しました: %w", err)
	}

	_, err := b.db.ExecContext(ctx,
		`INSERT INTO cache_entries (key, body, stored_at, expires_at)
		 VALUES ($1, $2, now(), now() + $3 * interval '1 second')
		 ON CONFLICT (key) DO UPDATE
		 SET body = EXCLUDED.body, stored_at = EXCLUDED.stored_at, expires_at = EXCLUDED.expires_at`,
		key, value, int64(ttl.Seconds()),
	)
	if err != nil {
		return fmt.Errorf("キャッシュエントリの保存に失敗しました: %w", err)
	}
	return nil
}

// Delete はキーの行を削除する。
func (b *PostgresBackend) Delete(ctx context.Context, key string) error {
	if _, err := b.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE key = $1`,
		key,
	); err != nil {
		return fmt.Errorf("キャッシュエントリの削除に失敗しました: %w", err)
	}
	return nil
}
