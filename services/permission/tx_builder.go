package permission

import (
	"encoding/hex"
	"fmt"

	"github.com/ambertime/amberchain/utils"
)

// UnsignedTransaction 未签名交易（包含 draft 和签名信息）
type UnsignedTransaction struct {
	Draft      map[string]interface{} // 交易草稿（用于签名）
	InputIndex uint32                 // 需要签名的输入索引
}

// BuildPermissionChangeTx 构建权限变更交易草稿
//
// **流程**：
// 1. 编码权限变更脚本元素
// 2. 每个目标地址一个输出，携带脚本元素与转账金额
// 3. 附加元数据（OP_RETURN 数据或流条目）与钱包备注
//
// **注意**：
// - 输入由节点按 from 地址选择，草稿只声明 from
// - 签名在本地完成（defer_sign）
func BuildPermissionChangeTx(req SubmitRequest) (*UnsignedTransaction, error) {
	if len(req.Targets) == 0 {
		return nil, fmt.Errorf("at least one target address is required")
	}

	elems, err := EncodeChangeScript(req.Change)
	if err != nil {
		return nil, fmt.Errorf("encode permission script: %w", err)
	}
	scriptHex := make([]string, len(elems))
	for i, e := range elems {
		scriptHex[i] = hex.EncodeToString(e)
	}

	outputs := make([]map[string]interface{}, len(req.Targets))
	for i, target := range req.Targets {
		outputs[i] = map[string]interface{}{
			"address":         target.String(),
			"amount":          req.Amount,
			"script_elements": scriptHex,
		}
	}

	draft := map[string]interface{}{
		"sign_mode": "defer_sign",
		"from":      req.From.String(),
		"outputs":   outputs,
	}

	if m := req.Metadata; m != nil {
		if m.Stream != nil {
			draft["stream_item"] = map[string]interface{}{
				"stream": m.Stream.TxID,
				"key":    m.Key,
				"data":   hex.EncodeToString(m.Data),
			}
		} else {
			draft["metadata"] = hex.EncodeToString(m.Data)
		}
	}
	if req.Comment != "" {
		draft["comment"] = req.Comment
	}
	if req.CommentTo != "" {
		draft["comment_to"] = req.CommentTo
	}

	return &UnsignedTransaction{Draft: draft, InputIndex: 0}, nil
}

// BuildPublishTx 构建流发布交易草稿
func BuildPublishTx(from utils.Address, stream *Entity, key string, dataHex string) (*UnsignedTransaction, error) {
	if stream == nil || stream.Type != EntityStream {
		return nil, fmt.Errorf("publish target must be a stream")
	}
	if _, err := utils.DecodeHexData(dataHex); err != nil {
		return nil, fmt.Errorf("invalid publish data: %w", err)
	}

	draft := map[string]interface{}{
		"sign_mode": "defer_sign",
		"from":      from.String(),
		"stream_item": map[string]interface{}{
			"stream": stream.TxID,
			"key":    key,
			"data":   dataHex,
		},
	}
	return &UnsignedTransaction{Draft: draft, InputIndex: 0}, nil
}
