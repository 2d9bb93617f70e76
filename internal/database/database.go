// Package database 保存运行历史，使用 SQLite 单文件数据库。
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/iabetor/podvoice/internal/logger"
	_ "modernc.org/sqlite"
)

// DB 是 SQLite 数据库连接。
type DB struct {
	*sql.DB
}

// Open 打开或创建数据库。
// dbPath 为空时使用默认路径 ~/.podvoice/podvoice.db
func Open(dbPath string) (*DB, error) {
	if dbPath == "" {
		home, _ := os.UserHomeDir()
		if home != "" {
			dbPath = filepath.Join(home, ".podvoice", "podvoice.db")
		} else {
			dbPath = "./podvoice.db"
		}
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("[database] 创建数据库目录失败: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("[database] 打开数据库失败: %w", err)
	}
	// 并发运行共用一个连接，写入串行化
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("[database] %s 失败: %w", p, err)
		}
	}

	logger.Debugf("[database] 数据库已打开: %s", dbPath)
	return &DB{DB: db}, nil
}

// Migrate 创建表和索引。
func (db *DB) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			title TEXT DEFAULT '',
			status TEXT NOT NULL,
			error TEXT DEFAULT '',
			provider TEXT DEFAULT '',
			style TEXT DEFAULT '',
			intro_tier TEXT DEFAULT '',
			segments INTEGER DEFAULT 0,
			fillers INTEGER DEFAULT 0,
			audio_path TEXT DEFAULT '',
			transcript_path TEXT DEFAULT '',
			audio_ms INTEGER DEFAULT 0,
			elapsed_ms INTEGER DEFAULT 0,
			started_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("[database] 数据库迁移失败: %w", err)
		}
	}
	return nil
}

// Close 关闭数据库连接。
func (db *DB) Close() error {
	if db.DB != nil {
		return db.DB.Close()
	}
	return nil
}
