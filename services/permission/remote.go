package permission

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ambertime/amberchain/client"
)

// remoteService 通过权限网关 JSON-RPC 调用的 Service 实现
type remoteService struct {
	client client.Client
}

// NewRemoteService 创建远程权限服务（CLI 与 SDK 使用）
func NewRemoteService(c client.Client) Service {
	return &remoteService{client: c}
}

// Grant 调用 grantfrom / grantwithmetadatafrom
func (r *remoteService) Grant(ctx context.Context, req Request) (*GrantResult, error) {
	start, end := int64(0), int64(-1)
	if req.Window != nil {
		start, end = req.Window.Start, req.Window.End
	}

	method := "grantfrom"
	params := []interface{}{fromOrWildcard(req.From), strings.Join(req.Targets, ","), req.Permission}
	if len(req.Metadata) > 0 {
		method = "grantwithmetadatafrom"
		params = append(params, req.Metadata, req.Amount, start, end)
	} else {
		params = append(params, req.Amount, start, end, req.Comment, req.CommentTo)
	}
	return r.callTx(ctx, method, params)
}

// Revoke 调用 revokefrom
func (r *remoteService) Revoke(ctx context.Context, req Request) (*GrantResult, error) {
	params := []interface{}{
		fromOrWildcard(req.From), strings.Join(req.Targets, ","), req.Permission,
		req.Amount, req.Comment, req.CommentTo,
	}
	return r.callTx(ctx, "revokefrom", params)
}

// ListPermissions 调用 listpermissions
func (r *remoteService) ListPermissions(ctx context.Context, req ListRequest) ([]ListingRow, error) {
	permission := req.Permission
	if permission == "" {
		permission = "all"
	}
	var addresses interface{} = Wildcard
	if req.Addresses != nil {
		addresses = req.Addresses
	}

	result, err := r.client.Call(ctx, "listpermissions", []interface{}{permission, addresses, req.Verbose})
	if err != nil {
		return nil, err
	}

	var rows []ListingRow
	if err := decodeResult(result, &rows); err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Verbose = req.Verbose
	}
	return rows, nil
}

// HasPermission 非 verbose 列表恰好一行
func (r *remoteService) HasPermission(ctx context.Context, address string, name string) (bool, error) {
	rows, err := r.ListPermissions(ctx, ListRequest{Permission: name, Addresses: []string{address}})
	if err != nil {
		return false, err
	}
	return len(rows) == 1, nil
}

// ApproveAuthority 调用 approveauthority
func (r *remoteService) ApproveAuthority(ctx context.Context, req ApproveAuthorityRequest) (string, error) {
	res, err := r.callTx(ctx, "approveauthority", []interface{}{
		req.From, req.To, req.PublicKey, req.Certificate, req.CertificateDetails,
	})
	if err != nil {
		return "", err
	}
	return res.TxID, nil
}

// RequestAuthority 调用 requestauthority
func (r *remoteService) RequestAuthority(ctx context.Context, req AuthorityRequest) (string, error) {
	res, err := r.callTx(ctx, "requestauthority", []interface{}{req.From, req.PublicKey, req.CSRToken})
	if err != nil {
		return "", err
	}
	return res.TxID, nil
}

func (r *remoteService) callTx(ctx context.Context, method string, params []interface{}) (*GrantResult, error) {
	result, err := r.client.Call(ctx, method, params)
	if err != nil {
		return nil, err
	}
	txid, ok := result.(string)
	if !ok {
		return nil, fmt.Errorf("invalid response format from %s", method)
	}
	return &GrantResult{TxID: txid, TxIDs: []string{txid}}, nil
}

func fromOrWildcard(from string) string {
	if from == "" {
		return Wildcard
	}
	return from
}

// decodeResult 将 Call 返回的通用结果解码为具体类型
func decodeResult(result interface{}, out interface{}) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("re-encode result: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}
