package permission

import (
	"context"
	"encoding/json"

	"github.com/ambertime/amberchain/types"
	"github.com/ambertime/amberchain/utils"
)

// ListRequest 权限列表查询
type ListRequest struct {
	// Permission 权限名，可带实体前缀；为空时为 "all"
	Permission string
	// Addresses 地址过滤；nil 或 ["*"] 表示全部地址，空列表返回空结果
	Addresses []string
	// Verbose 输出 admins 与 pending
	Verbose bool
}

// EntityRef 列表行中的实体引用
type EntityRef struct {
	Type       string `json:"type"`
	Name       string `json:"name"`
	CreateTxID string `json:"createtxid"`
}

// ConsensusGroup 一组投给相同区间的待定审批
type ConsensusGroup struct {
	StartBlock int64    `json:"startblock"`
	EndBlock   int64    `json:"endblock"`
	Admins     []string `json:"admins"`
	Required   int64    `json:"required"`
}

// ListingRow 权限列表的一行
type ListingRow struct {
	Address    utils.Address    `json:"address"`
	IsP2SH     bool             `json:"isp2shaddress,omitempty"`
	For        *EntityRef       `json:"for"`
	Type       string           `json:"type"`
	StartBlock int64            `json:"startblock"`
	EndBlock   int64            `json:"endblock"`
	Admins     []string         `json:"admins,omitempty"`
	Pending    []ConsensusGroup `json:"pending,omitempty"`

	// Verbose 序列化时输出 admins 与 pending（即使为空）
	Verbose bool `json:"-"`
}

// MarshalJSON verbose 行总是输出 admins/pending 数组，非 verbose 行省略
func (r ListingRow) MarshalJSON() ([]byte, error) {
	type plain ListingRow
	if !r.Verbose {
		p := plain(r)
		p.Admins, p.Pending = nil, nil
		return json.Marshal(p)
	}

	admins, pending := r.Admins, r.Pending
	if admins == nil {
		admins = []string{}
	}
	if pending == nil {
		pending = []ConsensusGroup{}
	}
	return json.Marshal(struct {
		plain
		Admins  []string         `json:"admins"`
		Pending []ConsensusGroup `json:"pending"`
	}{plain: plain(r), Admins: admins, Pending: pending})
}

// ListPermissions 列出权限及多管理员共识状态
//
// 整个查询持有链状态读锁，所有地址的记录与明细来自同一快照。
func (s *permissionService) ListPermissions(ctx context.Context, req ListRequest) ([]ListingRow, error) {
	spec := req.Permission
	if spec == "" {
		spec = "all"
	}
	resolved, err := s.resolver.Resolve(ctx, spec)
	if err != nil {
		return nil, err
	}

	var addresses []utils.Address
	all := req.Addresses == nil || (len(req.Addresses) == 1 && req.Addresses[0] == Wildcard)
	if !all {
		for _, raw := range req.Addresses {
			for _, tok := range utils.SplitAddressList(raw) {
				addr, err := utils.ParseAddress(tok)
				if err != nil {
					return nil, types.Errorf(types.KindInvalidAddress, "Invalid address: %s", tok)
				}
				addresses = append(addresses, addr)
			}
		}
		if len(addresses) == 0 {
			return []ListingRow{}, nil
		}
	}

	unlock := s.store.ReadLock()
	defer unlock()

	var records []Record
	query := func(addr *utils.Address) error {
		list, err := s.store.QueryRecords(ctx, resolved.Entity, addr, resolved.Type)
		if err != nil {
			return types.WrapError(types.KindInternalError, "Cannot open permission database", err)
		}
		defer list.Release()
		records = append(records, list.Rows...)
		return nil
	}
	if all {
		if err := query(nil); err != nil {
			return nil, err
		}
	} else {
		for i := range addresses {
			if err := query(&addresses[i]); err != nil {
				return nil, err
			}
		}
	}

	rows := make([]ListingRow, 0, len(records))
	for _, rec := range records {
		row, ok, err := s.listingRow(ctx, rec, resolved.Entity, req.Verbose)
		if err != nil {
			return nil, err
		}
		if ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// listingRow 构建一行；返回 false 表示该行被过滤
func (s *permissionService) listingRow(ctx context.Context, rec Record, entity *Entity, verbose bool) (ListingRow, bool, error) {
	name, known := TypeName(rec.Type)
	if !known {
		return ListingRow{}, false, nil
	}
	if !rec.Window.Live() && (!rec.HasPending || !verbose) {
		return ListingRow{}, false, nil
	}

	row := ListingRow{
		Address:    rec.Address,
		IsP2SH:     rec.Address.IsScriptHash(),
		For:        entityRef(entity),
		Type:       name,
		StartBlock: int64(rec.Window.From),
		EndBlock:   int64(rec.Window.To),
		Verbose:    verbose,
	}

	var details []PendingApproval
	if rec.HasPending || rec.RequiredAdmins > 1 {
		list, err := s.store.QueryDetails(ctx, rec)
		if err != nil {
			return ListingRow{}, false, types.WrapError(types.KindInternalError, "Cannot open permission database", err)
		}
		defer list.Release()
		details = list.Rows
	}

	if len(details) == 0 {
		row.Admins = []string{rec.LastAdmin.String()}
		return row, true, nil
	}

	admins, pending := Aggregate(rec.RequiredAdmins, details)
	row.Admins = make([]string, len(admins))
	for i, a := range admins {
		row.Admins[i] = a.String()
	}
	row.Pending = pending
	return row, true, nil
}

// approvalSlot 分组用的审批明细，consumed 标记已归入某个分组
type approvalSlot struct {
	approval PendingApproval
	consumed bool
}

// Aggregate 两轮聚合待定审批明细
//
// 第一轮：Remaining > 0 的明细是已生效的投票，直接计入 admins。
// 第二轮：Remaining == 0 的明细按完全相同的 (from, to) 分组，
// 每组 required = threshold - 组内 admin 数；每条明细至多归入一个分组。
func Aggregate(threshold uint32, details []PendingApproval) ([]utils.Address, []ConsensusGroup) {
	admins := make([]utils.Address, 0, len(details))
	for _, d := range details {
		if d.Remaining > 0 {
			admins = append(admins, d.Admin)
		}
	}

	slots := make([]approvalSlot, len(details))
	for i, d := range details {
		slots[i] = approvalSlot{approval: d}
	}

	var groups []ConsensusGroup
	for j := range slots {
		if slots[j].approval.Remaining != 0 || slots[j].consumed {
			continue
		}
		window := slots[j].approval.Window
		group := ConsensusGroup{
			StartBlock: int64(window.From),
			EndBlock:   int64(window.To),
			Admins:     []string{},
		}
		for k := j; k < len(slots); k++ {
			slot := &slots[k]
			if slot.consumed || slot.approval.Remaining != 0 || slot.approval.Window != window {
				continue
			}
			group.Admins = append(group.Admins, slot.approval.Admin.String())
			slot.consumed = true
		}
		group.Required = int64(threshold) - int64(len(group.Admins))
		groups = append(groups, group)
	}
	return admins, groups
}

func entityRef(e *Entity) *EntityRef {
	if e == nil {
		return nil
	}
	return &EntityRef{Type: e.Type.String(), Name: e.Name, CreateTxID: e.TxID}
}
