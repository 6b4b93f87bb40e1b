// Package rpc 权限网关的 JSON-RPC 服务端（HTTP、WebSocket、gRPC）
package rpc

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/ambertime/amberchain/client"
	"github.com/ambertime/amberchain/internal/jsonrpc"
	"github.com/ambertime/amberchain/services/permission"
	"github.com/ambertime/amberchain/types"
)

type methodFunc func(ctx context.Context, p params) (interface{}, error)

// Handler JSON-RPC 方法分发
type Handler struct {
	svc     permission.Service
	logger  client.Logger
	methods map[string]methodFunc
}

// NewHandler 创建分发器
func NewHandler(svc permission.Service, logger client.Logger) *Handler {
	h := &Handler{svc: svc, logger: logger}
	h.methods = map[string]methodFunc{
		"grant":                 h.grant(false, false),
		"grantfrom":             h.grant(true, false),
		"grantwithmetadata":     h.grant(false, true),
		"grantwithmetadatafrom": h.grant(true, true),
		"revoke":                h.revoke(false),
		"revokefrom":            h.revoke(true),
		"listpermissions":       h.listPermissions,
		"approveauthority":      h.approveAuthority,
		"requestauthority":      h.requestAuthority,
	}
	return h
}

// Methods 已注册的方法名
func (h *Handler) Methods() []string {
	out := make([]string, 0, len(h.methods))
	for name := range h.methods {
		out = append(out, name)
	}
	return out
}

// Handle 处理一个请求；通知（无 ID）同样返回响应，由传输层决定是否发送
func (h *Handler) Handle(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
	if req.JSONRPC != "" && req.JSONRPC != jsonrpc.Version {
		return jsonrpc.NewErrorResponse(req.ID, &jsonrpc.Error{
			Code: jsonrpc.CodeInvalidRequest, Message: "Invalid JSON-RPC version",
		})
	}

	fn, ok := h.methods[req.Method]
	if !ok {
		return jsonrpc.NewErrorResponse(req.ID, &jsonrpc.Error{
			Code: jsonrpc.CodeMethodNotFound, Message: "Method not found",
		})
	}

	raw, err := req.PositionalParams()
	if err != nil {
		return jsonrpc.NewErrorResponse(req.ID, &jsonrpc.Error{
			Code: jsonrpc.CodeInvalidParams, Message: err.Error(),
		})
	}

	result, err := fn(ctx, params(raw))
	if err != nil {
		h.logFailure(req.Method, err)
		return jsonrpc.NewErrorResponse(req.ID, ToRPCError(err))
	}

	resp, err := jsonrpc.NewResult(req.ID, result)
	if err != nil {
		return jsonrpc.NewErrorResponse(req.ID, ToRPCError(err))
	}
	return resp
}

func (h *Handler) logFailure(method string, err error) {
	if h.logger == nil {
		return
	}
	if types.KindOf(err) == types.KindInternalError {
		h.logger.Error("RPC call failed", "method", method, "error", err)
		return
	}
	h.logger.Debug("RPC call rejected", "method", method, "error", err)
}

// ToRPCError 将服务错误转换为 JSON-RPC 错误对象（data 为 Problem Details）
//
// 组合授权失败时 data.details.committed 列出已提交的交易。
func ToRPCError(err error) *jsonrpc.Error {
	var batch *permission.BatchError
	isBatch := errors.As(err, &batch)

	var typed *types.Error
	if !errors.As(err, &typed) {
		typed = types.WrapError(types.KindInternalError, err.Error(), err)
	}

	pd := typed.ToProblemDetails()
	if isBatch {
		details := make(map[string]interface{}, len(pd.Details)+2)
		for k, v := range pd.Details {
			details[k] = v
		}
		details["committed"] = batch.Committed
		details["permission"] = batch.Permission
		pd.Details = details
	}

	return &jsonrpc.Error{Code: typed.Code, Message: typed.Message, Data: pd}
}

func (h *Handler) grant(withFrom, withMetadata bool) methodFunc {
	usage := "grant \"addresses\" \"permissions\" ( amount-raw startblock endblock \"comment\" \"comment-to\" )"
	switch {
	case withFrom && withMetadata:
		usage = "grantwithmetadatafrom \"from\" \"addresses\" \"permissions\" metadata ( amount-raw startblock endblock )"
	case withMetadata:
		usage = "grantwithmetadata \"addresses\" \"permissions\" metadata ( amount-raw startblock endblock )"
	case withFrom:
		usage = "grantfrom \"from\" \"addresses\" \"permissions\" ( amount-raw startblock endblock \"comment\" \"comment-to\" )"
	}

	return func(ctx context.Context, p params) (interface{}, error) {
		off := 0
		if withFrom {
			off = 1
		}
		required, optional := 2+off, 5
		if withMetadata {
			required, optional = 3+off, 3
		}
		if err := p.requireCount(required, required+optional, usage); err != nil {
			return nil, err
		}

		req := permission.Request{From: permission.Wildcard}
		if withFrom {
			from, err := p.str(0, "from")
			if err != nil {
				return nil, err
			}
			req.From = from
		}

		var err error
		if req.Targets, err = p.addresses(off, "addresses"); err != nil {
			return nil, err
		}
		if req.Permission, err = p.str(off+1, "permissions"); err != nil {
			return nil, err
		}

		next := off + 2
		if withMetadata {
			req.Metadata = p.raw(next)
			next++
		}
		if req.Amount, err = p.optAmount(next); err != nil {
			return nil, err
		}
		if p.has(next+1) || p.has(next+2) {
			start, err := p.optInt64(next+1, "startblock", 0)
			if err != nil {
				return nil, err
			}
			end, err := p.optInt64(next+2, "endblock", -1)
			if err != nil {
				return nil, err
			}
			req.Window = &permission.BlockRange{Start: start, End: end}
		}
		if !withMetadata {
			if req.Comment, err = p.optStr(next+3, "comment"); err != nil {
				return nil, err
			}
			if req.CommentTo, err = p.optStr(next+4, "comment-to"); err != nil {
				return nil, err
			}
		}

		res, err := h.svc.Grant(ctx, req)
		if err != nil {
			return nil, err
		}
		return res.TxID, nil
	}
}

func (h *Handler) revoke(withFrom bool) methodFunc {
	usage := "revoke \"addresses\" \"permissions\" ( amount-raw \"comment\" \"comment-to\" )"
	if withFrom {
		usage = "revokefrom \"from\" \"addresses\" \"permissions\" ( amount-raw \"comment\" \"comment-to\" )"
	}

	return func(ctx context.Context, p params) (interface{}, error) {
		off := 0
		if withFrom {
			off = 1
		}
		if err := p.requireCount(2+off, 5+off, usage); err != nil {
			return nil, err
		}

		req := permission.Request{From: permission.Wildcard}
		var err error
		if withFrom {
			if req.From, err = p.str(0, "from"); err != nil {
				return nil, err
			}
		}
		if req.Targets, err = p.addresses(off, "addresses"); err != nil {
			return nil, err
		}
		if req.Permission, err = p.str(off+1, "permissions"); err != nil {
			return nil, err
		}
		if req.Amount, err = p.optAmount(off+2); err != nil {
			return nil, err
		}
		if req.Comment, err = p.optStr(off+3, "comment"); err != nil {
			return nil, err
		}
		if req.CommentTo, err = p.optStr(off+4, "comment-to"); err != nil {
			return nil, err
		}

		res, err := h.svc.Revoke(ctx, req)
		if err != nil {
			return nil, err
		}
		return res.TxID, nil
	}
}

func (h *Handler) listPermissions(ctx context.Context, p params) (interface{}, error) {
	if err := p.requireCount(0, 3, "listpermissions ( \"permissions\" \"addresses\" verbose )"); err != nil {
		return nil, err
	}

	req := permission.ListRequest{}
	var err error
	if req.Permission, err = p.optStr(0, "permissions"); err != nil {
		return nil, err
	}
	if p.has(1) {
		if req.Addresses, err = p.addresses(1, "addresses"); err != nil {
			return nil, err
		}
	}
	if req.Verbose, err = p.optBool(2, "verbose"); err != nil {
		return nil, err
	}
	return h.svc.ListPermissions(ctx, req)
}

func (h *Handler) approveAuthority(ctx context.Context, p params) (interface{}, error) {
	if err := p.requireCount(5, 5,
		"approveauthority \"from\" \"to\" \"public-key\" \"digital-certificate\" \"certificate-details\""); err != nil {
		return nil, err
	}

	var (
		req permission.ApproveAuthorityRequest
		err error
	)
	fields := []struct {
		dst  *string
		name string
	}{
		{&req.From, "from"},
		{&req.To, "to"},
		{&req.PublicKey, "public-key"},
		{&req.Certificate, "digital-certificate"},
		{&req.CertificateDetails, "certificate-details"},
	}
	for i, f := range fields {
		if *f.dst, err = p.str(i, f.name); err != nil {
			return nil, err
		}
	}
	return h.svc.ApproveAuthority(ctx, req)
}

func (h *Handler) requestAuthority(ctx context.Context, p params) (interface{}, error) {
	if err := p.requireCount(3, 3, "requestauthority \"from\" \"public-key\" \"csr-token\""); err != nil {
		return nil, err
	}

	var (
		req permission.AuthorityRequest
		err error
	)
	if req.From, err = p.str(0, "from"); err != nil {
		return nil, err
	}
	if req.PublicKey, err = p.str(1, "public-key"); err != nil {
		return nil, err
	}
	if req.CSRToken, err = p.str(2, "csr-token"); err != nil {
		return nil, err
	}
	return h.svc.RequestAuthority(ctx, req)
}

// decodeRequest 解析请求体；解析失败时返回可直接发送的错误响应
func decodeRequest(body []byte) (*jsonrpc.Request, *jsonrpc.Response) {
	var req jsonrpc.Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, jsonrpc.NewErrorResponse(nil, &jsonrpc.Error{
			Code: jsonrpc.CodeParseError, Message: "Parse error",
		})
	}
	if req.Method == "" {
		return nil, jsonrpc.NewErrorResponse(req.ID, &jsonrpc.Error{
			Code: jsonrpc.CodeInvalidRequest, Message: "Missing method",
		})
	}
	return &req, nil
}
