package routing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore 基于 SQLite 的翻译记录存储
// Lookups 计数器统计落到存储的查询次数，用于观察决策缓存的效果
type SQLiteStore struct {
	db      *sql.DB
	lookups atomic.Int64
}

const recordSchema = `
CREATE TABLE IF NOT EXISTS translation_records (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	url         TEXT NOT NULL,
	source_lang TEXT NOT NULL,
	target_lang TEXT NOT NULL,
	status      TEXT NOT NULL,
	created_at  TIMESTAMP NOT NULL,
	expires_at  TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_records_url ON translation_records(url);
CREATE INDEX IF NOT EXISTS idx_records_triple ON translation_records(url, source_lang, target_lang);
`

// OpenSQLiteStore 打开（必要时创建）记录存储
// dsn 传 ":memory:" 可用于测试
func OpenSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open record store: %w", err)
	}

	if _, err := db.Exec(recordSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize record schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close 关闭底层数据库
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Lookups 返回落到存储的查询次数
func (s *SQLiteStore) Lookups() int64 {
	return s.lookups.Load()
}

// Insert 写入一条记录并返回其 ID
func (s *SQLiteStore) Insert(ctx context.Context, record *Record) (int64, error) {
	var expiresAt interface{}
	if record.ExpiresAt != nil {
		expiresAt = record.ExpiresAt.UTC()
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO translation_records (url, source_lang, target_lang, status, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		record.URL, record.SourceLang, record.TargetLang, record.Status,
		time.Now().UTC(), expiresAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert record: %w", err)
	}

	return result.LastInsertId()
}

// UpdateStatus 更新记录状态
func (s *SQLiteStore) UpdateStatus(ctx context.Context, id int64, status string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE translation_records SET status = ? WHERE id = ?`, status, id)
	return err
}

// FindExact 按 (url, 源语言, 目标语言, 状态) 精确查找最新记录
func (s *SQLiteStore) FindExact(ctx context.Context, url, sourceLang, targetLang, status string) (*Record, error) {
	s.lookups.Add(1)
	return s.queryOne(ctx,
		`SELECT id, url, source_lang, target_lang, status, created_at, expires_at
		 FROM translation_records
		 WHERE url = ? AND source_lang = ? AND target_lang = ? AND status = ?
		 ORDER BY created_at DESC LIMIT 1`,
		url, sourceLang, targetLang, status)
}

// FindByURL 按 (url, 状态) 查找任意语言对的最新记录
func (s *SQLiteStore) FindByURL(ctx context.Context, url, status string) (*Record, error) {
	s.lookups.Add(1)
	return s.queryOne(ctx,
		`SELECT id, url, source_lang, target_lang, status, created_at, expires_at
		 FROM translation_records
		 WHERE url = ? AND status = ?
		 ORDER BY created_at DESC LIMIT 1`,
		url, status)
}

// FindAny 查找该 url 的任意最新记录
func (s *SQLiteStore) FindAny(ctx context.Context, url string) (*Record, error) {
	s.lookups.Add(1)
	return s.queryOne(ctx,
		`SELECT id, url, source_lang, target_lang, status, created_at, expires_at
		 FROM translation_records
		 WHERE url = ?
		 ORDER BY created_at DESC LIMIT 1`,
		url)
}

// queryOne 执行单行查询，没有结果时返回 (nil, nil)
func (s *SQLiteStore) queryOne(ctx context.Context, query string, args ...interface{}) (*Record, error) {
	row := s.db.QueryRowContext(ctx, query, args...)

	var record Record
	var expiresAt sql.NullTime
	err := row.Scan(&record.ID, &record.URL, &record.SourceLang, &record.TargetLang,
		&record.Status, &record.CreatedAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query record: %w", err)
	}

	if expiresAt.Valid {
		t := expiresAt.Time
		record.ExpiresAt = &t
	}
	return &record, nil
}
