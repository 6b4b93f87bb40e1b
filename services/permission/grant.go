package permission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ambertime/amberchain/types"
	"github.com/ambertime/amberchain/utils"
)

// grantElementary 单个权限类型的授权流水线
//
// **流程**：
// 1. 解析并去重目标地址
// 2. 解析权限类型
// 3. 解析有效区间、金额与元数据
// 4. 收款权限检查
// 5. 确定授权地址（含授权检查与流写入检查）
// 6. 构建权限变更载荷并提交交易
//
// 第 6 步之前的任何失败都没有副作用。
func (s *permissionService) grantElementary(ctx context.Context, req *Request) (string, error) {
	targets, err := ParseTargets(req.Targets)
	if err != nil {
		return "", err
	}

	resolved, err := s.resolver.Resolve(ctx, req.Permission)
	if err != nil {
		return "", err
	}

	window, err := ResolveWindow(req.Window)
	if err != nil {
		return "", err
	}
	if req.Amount < 0 {
		return "", types.NewError(types.KindInvalidParameter, "Invalid amount")
	}
	meta, err := s.parseMetadata(ctx, req.Metadata)
	if err != nil {
		return "", err
	}

	// 转账时，除非本次授权包含立即生效的 receive，目标地址必须已有收款权限
	if req.Amount > 0 && (resolved.Type&TypeReceive == 0 || !window.Live()) {
		for _, target := range targets {
			ok, err := s.store.CanReceive(ctx, target)
			if err != nil {
				return "", types.WrapError(types.KindInternalError, "Cannot open permission database", err)
			}
			if !ok {
				return "", types.NewError(types.KindInsufficientPermissions,
					"Destination address doesn't have receive permission")
			}
		}
	}

	from, err := s.keys.Resolve(ctx, req.From, resolved.Entity, resolved.Type, meta.stream())
	if err != nil {
		return "", err
	}

	s.logGrant(req.Permission, targets, window, resolved.Entity)

	submit := SubmitRequest{
		From:    from,
		Targets: targets,
		Amount:  req.Amount,
		Change: ChangePayload{
			Type:      resolved.Type,
			From:      window.From,
			To:        window.To,
			Timestamp: uint32(s.now().Unix()),
			Entity:    resolved.Entity,
		},
		Metadata:  meta,
		Comment:   req.Comment,
		CommentTo: req.CommentTo,
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	txid, err := s.submitter.Submit(ctx, submit)
	if err != nil {
		return "", submissionError(err)
	}
	return txid, nil
}

func (s *permissionService) logGrant(permission string, targets []utils.Address, w Window, entity *Entity) {
	addrs := make([]string, len(targets))
	for i, t := range targets {
		addrs[i] = t.String()
	}
	msg := fmt.Sprintf("Granting %s permission(s) to address %s (%d-%d)",
		permission, strings.Join(addrs, ","), w.From, w.To)
	if entity != nil {
		s.logger.Info(msg, "entity_txid", entity.TxID, "entity_name", entity.Name)
		return
	}
	s.logger.Info(msg)
}

// ResolveWindow 解析有效区间；nil 表示默认 [0, ∞)
func ResolveWindow(r *BlockRange) (Window, error) {
	if r == nil {
		return Window{From: 0, To: InfiniteBlock}, nil
	}

	if r.Start < 0 {
		return Window{}, types.NewError(types.KindInvalidParameter, "start_block should be non-negative")
	}
	if r.Start > int64(InfiniteBlock) {
		return Window{}, types.NewError(types.KindInvalidParameter, "start_block is out of range")
	}

	w := Window{From: uint32(r.Start), To: InfiniteBlock}
	if r.End != -1 {
		if r.End < 0 {
			return Window{}, types.NewError(types.KindInvalidParameter, "end_block should be non-negative or -1")
		}
		if r.End > int64(InfiniteBlock) {
			return Window{}, types.NewError(types.KindInvalidParameter, "end_block is out of range")
		}
		w.To = uint32(r.End)
	}
	return w, nil
}

// streamItem 元数据的流条目形式
type streamItem struct {
	For  string `json:"for"`
	Key  string `json:"key"`
	Data string `json:"data"`
}

// parseMetadata 解析元数据：hex 字符串或 {"for","key","data"} 流条目
func (s *permissionService) parseMetadata(ctx context.Context, raw json.RawMessage) (*Metadata, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	var hexData string
	if err := json.Unmarshal(raw, &hexData); err == nil {
		data, err := utils.DecodeHexData(hexData)
		if err != nil {
			return nil, types.NewError(types.KindInvalidParameter, "Metadata must be a hex string")
		}
		return &Metadata{Data: data}, nil
	}

	var item streamItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, types.NewError(types.KindInvalidParameter, "Metadata must be a hex string or a stream item object")
	}
	if item.For == "" {
		return nil, types.NewError(types.KindInvalidParameter, "Stream item is missing the for field")
	}

	stream, err := s.resolver.ResolveEntity(ctx, item.For)
	if err != nil {
		return nil, err
	}
	if stream.Type != EntityStream {
		return nil, types.Errorf(types.KindInvalidParameter, "Entity %s is not a stream", item.For)
	}

	data, err := utils.DecodeHexData(item.Data)
	if err != nil {
		return nil, types.NewError(types.KindInvalidParameter, "Stream item data must be a hex string")
	}
	return &Metadata{Data: data, Stream: stream, Key: item.Key}, nil
}

// stream 元数据指定的发布流
func (m *Metadata) stream() *Entity {
	if m == nil {
		return nil
	}
	return m.Stream
}

// submissionError 交易层错误统一为 *types.Error
func submissionError(err error) error {
	var typed *types.Error
	if errors.As(err, &typed) {
		return err
	}
	return types.WrapError(types.KindInternalError, "Transaction submission failed", err)
}
