package permission

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ambertime/amberchain/client"
	"github.com/ambertime/amberchain/utils"
	"github.com/ambertime/amberchain/wallet"
)

// SignerDirectory 按地址查找签名密钥
type SignerDirectory interface {
	Wallet(address utils.Address) (wallet.Wallet, bool)
}

// NodeSubmitter 通过节点 JSON-RPC 构建、签名并广播交易
type NodeSubmitter struct {
	client  client.Client
	signers SignerDirectory
	logger  client.Logger
}

// NewNodeSubmitter 创建节点交易提交器
func NewNodeSubmitter(c client.Client, signers SignerDirectory, logger client.Logger) *NodeSubmitter {
	if logger == nil {
		logger = nopLogger{}
	}
	return &NodeSubmitter{client: c, signers: signers, logger: logger}
}

// Submit 提交权限变更交易
func (n *NodeSubmitter) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	w, ok := n.signers.Wallet(req.From)
	if !ok {
		return "", fmt.Errorf("no signing key for %s", req.From)
	}

	unsignedTx, err := BuildPermissionChangeTx(req)
	if err != nil {
		return "", fmt.Errorf("build permission change tx failed: %w", err)
	}
	return n.signAndSubmitTransaction(ctx, unsignedTx, w)
}

// Publish 提交流发布交易
func (n *NodeSubmitter) Publish(ctx context.Context, from utils.Address, stream *Entity, key string, dataHex string) (string, error) {
	w, ok := n.signers.Wallet(from)
	if !ok {
		return "", fmt.Errorf("no signing key for %s", from)
	}

	unsignedTx, err := BuildPublishTx(from, stream, key, dataHex)
	if err != nil {
		return "", fmt.Errorf("build publish tx failed: %w", err)
	}
	return n.signAndSubmitTransaction(ctx, unsignedTx, w)
}

// signAndSubmitTransaction 签名并提交交易（通用流程）
func (n *NodeSubmitter) signAndSubmitTransaction(
	ctx context.Context,
	unsignedTx *UnsignedTransaction,
	w wallet.Wallet,
) (string, error) {
	// 1. 序列化 draft
	draftJSON, err := json.Marshal(unsignedTx.Draft)
	if err != nil {
		return "", fmt.Errorf("marshal draft failed: %w", err)
	}

	// 2. 获取签名哈希
	hashParams := map[string]interface{}{
		"draft":        json.RawMessage(draftJSON),
		"input_index":  unsignedTx.InputIndex,
		"sighash_type": "SIGHASH_ALL",
	}
	hashResult, err := n.client.Call(ctx, client.MethodComputeSignatureHash, hashParams)
	if err != nil {
		return "", fmt.Errorf("compute signature hash failed: %w", err)
	}

	hashMap, ok := hashResult.(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("invalid response format from %s", client.MethodComputeSignatureHash)
	}
	hashHex, ok := hashMap["hash"].(string)
	if !ok || hashHex == "" {
		return "", fmt.Errorf("missing hash in %s response", client.MethodComputeSignatureHash)
	}
	unsignedTxHex, _ := hashMap["unsignedTx"].(string)

	hashBytes, err := hex.DecodeString(strings.TrimPrefix(hashHex, "0x"))
	if err != nil {
		return "", fmt.Errorf("decode signature hash failed: %w", err)
	}

	// 3. 签名
	sigBytes, err := w.SignHash(hashBytes)
	if err != nil {
		return "", fmt.Errorf("sign hash failed: %w", err)
	}

	// 4. 完成交易
	finalizeParams := map[string]interface{}{
		"draft":        json.RawMessage(draftJSON),
		"unsignedTx":   unsignedTxHex,
		"input_index":  unsignedTx.InputIndex,
		"sighash_type": "SIGHASH_ALL",
		"pubkey":       "0x" + hex.EncodeToString(w.PublicKey()),
		"signature":    "0x" + hex.EncodeToString(sigBytes),
	}
	finalResult, err := n.client.Call(ctx, client.MethodFinalizeTransaction, finalizeParams)
	if err != nil {
		return "", fmt.Errorf("finalize transaction from draft failed: %w", err)
	}

	finalMap, ok := finalResult.(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("invalid response format from %s", client.MethodFinalizeTransaction)
	}
	txHex, ok := finalMap["tx"].(string)
	if !ok {
		if txHex, ok = finalMap["txHex"].(string); !ok {
			return "", fmt.Errorf("missing tx in %s response", client.MethodFinalizeTransaction)
		}
	}

	// 5. 广播
	sendResult, err := n.client.SendRawTransaction(ctx, txHex)
	if err != nil {
		return "", fmt.Errorf("send raw transaction failed: %w", err)
	}
	if !sendResult.Accepted {
		return "", fmt.Errorf("transaction rejected: %s", sendResult.Reason)
	}

	n.logger.Debug("Transaction submitted", "txid", sendResult.TxHash, "from", w.Address().String())
	return sendResult.TxHash, nil
}
