package client

import (
	"context"
	"fmt"
)

// 节点交易提交相关的 JSON-RPC 方法
const (
	MethodComputeSignatureHash = "amb_computeSignatureHashFromDraft"
	MethodFinalizeTransaction  = "amb_finalizeTransactionFromDraft"
	MethodSendRawTransaction   = "amb_sendRawTransaction"
)

// Client JSON-RPC 客户端接口（节点与权限网关共用）
type Client interface {
	// Call 调用 JSON-RPC 方法
	Call(ctx context.Context, method string, params interface{}) (interface{}, error)

	// SendRawTransaction 发送已签名的原始交易
	SendRawTransaction(ctx context.Context, signedTxHex string) (*SendTxResult, error)

	// Close 关闭连接
	Close() error
}

// SendTxResult 交易提交结果
type SendTxResult struct {
	TxHash   string `json:"tx_hash"`
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"` // 拒绝原因
}

// NewClient 按协议创建客户端
func NewClient(config *Config) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Protocol {
	case ProtocolHTTP, "":
		return NewHTTPClient(config)
	case ProtocolGRPC:
		return NewGRPCClient(config)
	case ProtocolWebSocket:
		return NewWebSocketClient(config)
	default:
		return nil, fmt.Errorf("unsupported protocol: %s", config.Protocol)
	}
}

// sendRawTransaction 各传输层共用的交易提交逻辑
//
// 节点可能直接返回交易哈希字符串，也可能返回 {tx_hash, accepted, reason}。
func sendRawTransaction(ctx context.Context, c Client, signedTxHex string) (*SendTxResult, error) {
	result, err := c.Call(ctx, MethodSendRawTransaction, []interface{}{signedTxHex})
	if err != nil {
		return &SendTxResult{
			Accepted: false,
			Reason:   err.Error(),
		}, nil
	}

	if txHash, ok := result.(string); ok {
		return &SendTxResult{
			TxHash:   txHash,
			Accepted: txHash != "",
		}, nil
	}

	resultMap, ok := result.(map[string]interface{})
	if !ok {
		return &SendTxResult{
			Accepted: false,
			Reason:   "invalid response format",
		}, nil
	}

	txHash, _ := resultMap["tx_hash"].(string)
	accepted, _ := resultMap["accepted"].(bool)
	reason, _ := resultMap["reason"].(string)

	return &SendTxResult{
		TxHash:   txHash,
		Accepted: accepted,
		Reason:   reason,
	}, nil
}
