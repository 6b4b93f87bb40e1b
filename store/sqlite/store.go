// Package sqlite 基于 SQLite 的权限存储与实体目录
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	_ "modernc.org/sqlite" // 纯 Go SQLite 驱动

	"github.com/ambertime/amberchain/services/permission"
)

const (
	defaultDirPerms = 0o755

	// MemoryPath 内存数据库（测试使用）
	MemoryPath = ":memory:"
)

// Store SQLite 权限存储
//
// 权限记录按 (实体, 地址, 单个权限位) 存储，实体为空字符串表示全局权限。
// 读写锁模拟节点的链状态锁：ReadLock 持有期间不会有新的变更写入。
type Store struct {
	db     *sql.DB
	path   string
	mu     sync.RWMutex
	height atomic.Uint32
}

var (
	_ permission.PermissionStore = (*Store)(nil)
	_ permission.EntityDirectory = (*Store)(nil)
)

// Open 打开（或创建）数据库并执行迁移
func Open(ctx context.Context, path string) (*Store, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), defaultDirPerms); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// 内存数据库每个连接独立，必须固定为单连接
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	if path != MemoryPath {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL", "PRAGMA synchronous = NORMAL")
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %q: %w", pragma, err)
		}
	}

	s := &Store{db: db, path: path}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	if err := s.loadHeight(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate 创建或更新表结构
func (s *Store) Migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS entities (
			txid TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			type INTEGER NOT NULL,
			anyone_can_write INTEGER NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS permissions (
			entity_txid TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL,
			type INTEGER NOT NULL,
			block_from INTEGER NOT NULL,
			block_to INTEGER NOT NULL,
			required_admins INTEGER NOT NULL DEFAULT 1,
			last_admin TEXT NOT NULL,
			PRIMARY KEY (entity_txid, address, type)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_permissions_scope ON permissions(entity_txid, type)`,

		`CREATE TABLE IF NOT EXISTS pending_approvals (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			entity_txid TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL,
			type INTEGER NOT NULL,
			block_from INTEGER NOT NULL,
			block_to INTEGER NOT NULL,
			admin TEXT NOT NULL,
			remaining INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY (entity_txid, address, type)
				REFERENCES permissions(entity_txid, address, type) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pending_record ON pending_approvals(entity_txid, address, type)`,

		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value INTEGER NOT NULL
		)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Close 关闭数据库
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) loadHeight(ctx context.Context) error {
	var h int64
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'height'`).Scan(&h)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load height: %w", err)
	}
	s.height.Store(uint32(h))
	return nil
}

// Height 当前链高度（权限判定以此为准）
func (s *Store) Height() uint32 {
	return s.height.Load()
}

// SetHeight 更新链高度
func (s *Store) SetHeight(ctx context.Context, h uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES ('height', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, int64(h))
	if err != nil {
		return fmt.Errorf("failed to store height: %w", err)
	}
	s.height.Store(h)
	return nil
}

// ReadLock 获取链状态读锁
func (s *Store) ReadLock() func() {
	s.mu.RLock()
	return s.mu.RUnlock
}

// ResolveType 按实体类型词表解析权限名
func (s *Store) ResolveType(name string, entityType permission.EntityType) permission.Type {
	return permission.ParseType(name, entityType)
}

// IsActivateLevel activate 权限即可授予的类型
func (s *Store) IsActivateLevel(t permission.Type) bool {
	return permission.ActivateLevel(t)
}

func scope(e *permission.Entity) string {
	if e == nil {
		return ""
	}
	return e.TxID
}
