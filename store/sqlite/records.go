package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ambertime/amberchain/services/permission"
	"github.com/ambertime/amberchain/utils"
)

// QueryRecords 查询权限记录
//
// 结果集在返回前已全部读出，Release 不再持有数据库资源。
func (s *Store) QueryRecords(ctx context.Context, entity *permission.Entity, address *utils.Address, t permission.Type) (*permission.List[permission.Record], error) {
	query := `SELECT p.address, p.type, p.block_from, p.block_to, p.required_admins, p.last_admin,
		EXISTS (SELECT 1 FROM pending_approvals a
			WHERE a.entity_txid = p.entity_txid AND a.address = p.address
			  AND a.type = p.type AND a.remaining = 0)
		FROM permissions p
		WHERE p.entity_txid = ? AND (p.type & ?) != 0`
	args := []interface{}{scope(entity), int64(t)}
	if address != nil {
		query += ` AND p.address = ?`
		args = append(args, address.String())
	}
	query += ` ORDER BY p.rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query permissions: %w", err)
	}
	defer rows.Close()

	var records []permission.Record
	for rows.Next() {
		var (
			addr, lastAdmin string
			typ, from, to   int64
			required        int64
			pending         bool
		)
		if err := rows.Scan(&addr, &typ, &from, &to, &required, &lastAdmin, &pending); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}

		rec := permission.Record{
			Entity:         entity,
			Type:           permission.Type(typ),
			Window:         permission.Window{From: uint32(from), To: uint32(to)},
			RequiredAdmins: uint32(required),
			HasPending:     pending,
		}
		if rec.Address, err = utils.ParseAddress(addr); err != nil {
			return nil, fmt.Errorf("corrupt address %q: %w", addr, err)
		}
		if rec.LastAdmin, err = utils.ParseAddress(lastAdmin); err != nil {
			return nil, fmt.Errorf("corrupt admin address %q: %w", lastAdmin, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate permissions: %w", err)
	}
	return permission.NewList(records, nil), nil
}

// QueryDetails 查询记录的审批明细（按投票顺序）
func (s *Store) QueryDetails(ctx context.Context, rec permission.Record) (*permission.List[permission.PendingApproval], error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT block_from, block_to, admin, remaining FROM pending_approvals
		 WHERE entity_txid = ? AND address = ? AND type = ? ORDER BY id`,
		scope(rec.Entity), rec.Address.String(), int64(rec.Type))
	if err != nil {
		return nil, fmt.Errorf("failed to query approvals: %w", err)
	}
	defer rows.Close()

	var details []permission.PendingApproval
	for rows.Next() {
		var (
			from, to, remaining int64
			admin               string
		)
		if err := rows.Scan(&from, &to, &admin, &remaining); err != nil {
			return nil, fmt.Errorf("failed to scan approval: %w", err)
		}
		addr, err := utils.ParseAddress(admin)
		if err != nil {
			return nil, fmt.Errorf("corrupt admin address %q: %w", admin, err)
		}
		details = append(details, permission.PendingApproval{
			Window:    permission.Window{From: uint32(from), To: uint32(to)},
			Admin:     addr,
			Remaining: uint32(remaining),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate approvals: %w", err)
	}
	return permission.NewList(details, nil), nil
}

// holds 地址在当前高度是否持有 mask 中任一权限
func (s *Store) holds(ctx context.Context, entityTxID string, addr utils.Address, mask permission.Type) (bool, error) {
	h := int64(s.Height())
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM permissions
		 WHERE entity_txid = ? AND address = ? AND (type & ?) != 0
		   AND block_from <= ? AND ? < block_to`,
		entityTxID, addr.String(), int64(mask), h, h).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check permission: %w", err)
	}
	return n > 0, nil
}

// CanAdmin 持有 admin
func (s *Store) CanAdmin(ctx context.Context, entity *permission.Entity, key utils.Address) (bool, error) {
	return s.holds(ctx, scope(entity), key, permission.TypeAdmin)
}

// CanActivate 持有 activate 或 admin
func (s *Store) CanActivate(ctx context.Context, entity *permission.Entity, key utils.Address) (bool, error) {
	return s.holds(ctx, scope(entity), key, permission.TypeActivate|permission.TypeAdmin)
}

// CanWrite 持有流的 write
func (s *Store) CanWrite(ctx context.Context, entity *permission.Entity, key utils.Address) (bool, error) {
	return s.holds(ctx, scope(entity), key, permission.TypeWrite)
}

// CanReceive 持有全局 receive
func (s *Store) CanReceive(ctx context.Context, address utils.Address) (bool, error) {
	return s.holds(ctx, "", address, permission.TypeReceive)
}

// ApplyChange 记录一次已确认的权限变更
//
// **流程**（对 change.Type 的每个权限位）：
// 1. 记录不存在时以 [0, 0) 创建
// 2. threshold <= 1：直接生效，清空审批明细
// 3. 否则登记该管理员的投票（替换其之前的未生效投票）
// 4. 相同区间的投票达到 threshold 时生效：这些投票标记为已生效，其余明细清除
//
// 返回是否至少有一个权限位生效。
func (s *Store) ApplyChange(ctx context.Context, admin, target utils.Address, change permission.ChangePayload, threshold uint32) (bool, error) {
	if threshold == 0 {
		threshold = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // 提交后回滚无效果

	applied := false
	for _, bit := range permission.Bits(change.Type) {
		ok, err := applyBit(ctx, tx, recordKey{scope(change.Entity), target.String(), int64(bit)},
			admin.String(), change.From, change.To, threshold)
		if err != nil {
			return false, err
		}
		applied = applied || ok
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit change: %w", err)
	}
	return applied, nil
}

type recordKey struct {
	entity  string
	address string
	typ     int64
}

func applyBit(ctx context.Context, tx *sql.Tx, k recordKey, admin string, from, to, threshold uint32) (bool, error) {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO permissions (entity_txid, address, type, block_from, block_to, required_admins, last_admin)
		 VALUES (?, ?, ?, 0, 0, ?, ?)
		 ON CONFLICT(entity_txid, address, type) DO UPDATE SET required_admins = excluded.required_admins`,
		k.entity, k.address, k.typ, int64(threshold), admin); err != nil {
		return false, fmt.Errorf("failed to upsert permission: %w", err)
	}

	if threshold <= 1 {
		if err := setWindow(ctx, tx, k, admin, from, to); err != nil {
			return false, err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM pending_approvals WHERE entity_txid = ? AND address = ? AND type = ?`,
			k.entity, k.address, k.typ); err != nil {
			return false, fmt.Errorf("failed to clear approvals: %w", err)
		}
		return true, nil
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM pending_approvals
		 WHERE entity_txid = ? AND address = ? AND type = ? AND admin = ? AND remaining = 0`,
		k.entity, k.address, k.typ, admin); err != nil {
		return false, fmt.Errorf("failed to replace vote: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO pending_approvals (entity_txid, address, type, block_from, block_to, admin, remaining)
		 VALUES (?, ?, ?, ?, ?, ?, 0)`,
		k.entity, k.address, k.typ, int64(from), int64(to), admin); err != nil {
		return false, fmt.Errorf("failed to record vote: %w", err)
	}

	var votes uint32
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pending_approvals
		 WHERE entity_txid = ? AND address = ? AND type = ? AND remaining = 0
		   AND block_from = ? AND block_to = ?`,
		k.entity, k.address, k.typ, int64(from), int64(to)).Scan(&votes); err != nil {
		return false, fmt.Errorf("failed to count votes: %w", err)
	}
	if votes < threshold {
		return false, nil
	}

	if err := setWindow(ctx, tx, k, admin, from, to); err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM pending_approvals
		 WHERE entity_txid = ? AND address = ? AND type = ?
		   AND NOT (remaining = 0 AND block_from = ? AND block_to = ?)`,
		k.entity, k.address, k.typ, int64(from), int64(to)); err != nil {
		return false, fmt.Errorf("failed to clear approvals: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE pending_approvals SET remaining = ?
		 WHERE entity_txid = ? AND address = ? AND type = ?`,
		int64(threshold), k.entity, k.address, k.typ); err != nil {
		return false, fmt.Errorf("failed to settle votes: %w", err)
	}
	return true, nil
}

func setWindow(ctx context.Context, tx *sql.Tx, k recordKey, admin string, from, to uint32) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE permissions SET block_from = ?, block_to = ?, last_admin = ?
		 WHERE entity_txid = ? AND address = ? AND type = ?`,
		int64(from), int64(to), admin, k.entity, k.address, k.typ)
	if err != nil {
		return fmt.Errorf("failed to apply window: %w", err)
	}
	return nil
}
