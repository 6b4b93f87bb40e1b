package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ambertime/amberchain/services/permission"
)

// PutEntity 登记或更新实体
func (s *Store) PutEntity(ctx context.Context, e *permission.Entity) error {
	if e == nil || e.TxID == "" || e.Name == "" {
		return fmt.Errorf("entity txid and name are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entities (txid, name, type, anyone_can_write) VALUES (?, ?, ?, ?)
		 ON CONFLICT(txid) DO UPDATE SET
			name = excluded.name, type = excluded.type, anyone_can_write = excluded.anyone_can_write`,
		e.TxID, e.Name, int64(e.Type), e.AnyoneCanWrite)
	if err != nil {
		return fmt.Errorf("failed to store entity %s: %w", e.Name, err)
	}
	return nil
}

// Resolve 按名称或创建交易 ID 查找实体
func (s *Store) Resolve(ctx context.Context, identifier string) (*permission.Entity, error) {
	var (
		e   permission.Entity
		typ int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT txid, name, type, anyone_can_write FROM entities
		 WHERE name = ? OR txid = ? LIMIT 1`, identifier, identifier).
		Scan(&e.TxID, &e.Name, &typ, &e.AnyoneCanWrite)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", identifier, permission.ErrEntityNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query entity: %w", err)
	}
	e.Type = permission.EntityType(typ)
	return &e, nil
}

// Entities 按名称排序列出全部实体
func (s *Store) Entities(ctx context.Context) ([]*permission.Entity, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT txid, name, type, anyone_can_write FROM entities ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	defer rows.Close()

	var out []*permission.Entity
	for rows.Next() {
		var (
			e   permission.Entity
			typ int64
		)
		if err := rows.Scan(&e.TxID, &e.Name, &typ, &e.AnyoneCanWrite); err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		e.Type = permission.EntityType(typ)
		out = append(out, &e)
	}
	return out, rows.Err()
}
