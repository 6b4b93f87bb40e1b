package types

import (
	"fmt"
	"time"
)

// ProblemDetails JSON-RPC 错误响应 data 字段中携带的结构化错误（基于 RFC7807）
type ProblemDetails struct {
	Type     string `json:"type,omitempty"`
	Title    string `json:"title,omitempty"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	// 扩展字段（必填）
	Kind      string                 `json:"kind"`
	Layer     string                 `json:"layer"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	TraceID   string                 `json:"traceId"`
	Timestamp string                 `json:"timestamp"`
}

// ToProblemDetails 转换为 Problem Details
func (e *Error) ToProblemDetails() *ProblemDetails {
	pd := &ProblemDetails{
		Kind:      string(e.Kind),
		Layer:     LayerPermissionGateway,
		Message:   e.Message,
		Details:   e.Details,
		TraceID:   e.TraceID,
		Timestamp: e.Timestamp,
	}
	if e.Cause != nil {
		pd.Detail = e.Cause.Error()
	}
	return pd
}

// NewErrorFromProblemDetails 从 Problem Details 还原 Error（客户端使用）
func NewErrorFromProblemDetails(code int, pd *ProblemDetails) *Error {
	return &Error{
		Kind:      ErrorKind(pd.Kind),
		Code:      code,
		Message:   pd.Message,
		Details:   pd.Details,
		TraceID:   pd.TraceID,
		Timestamp: pd.Timestamp,
	}
}

// ParseProblemDetailsFromRPCError 从 JSON-RPC 错误响应解析 Problem Details
func ParseProblemDetailsFromRPCError(rpcError interface{}) (*ProblemDetails, error) {
	rpcMap, ok := rpcError.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid RPC error format")
	}

	data, ok := rpcMap["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("no data field in RPC error")
	}

	kind, _ := data["kind"].(string)
	layer, _ := data["layer"].(string)
	message, _ := data["message"].(string)
	traceID, _ := data["traceId"].(string)
	if kind == "" || layer == "" || traceID == "" {
		return nil, fmt.Errorf("missing required fields in problem details")
	}
	if message == "" {
		message, _ = rpcMap["message"].(string)
	}

	detail, _ := data["detail"].(string)
	details, _ := data["details"].(map[string]interface{})

	timestamp, _ := data["timestamp"].(string)
	if timestamp == "" {
		timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	return &ProblemDetails{
		Kind:      kind,
		Layer:     layer,
		Message:   message,
		Detail:    detail,
		Details:   details,
		TraceID:   traceID,
		Timestamp: timestamp,
	}, nil
}
