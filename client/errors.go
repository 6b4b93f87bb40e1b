package client

import (
	"fmt"

	"github.com/ambertime/amberchain/internal/jsonrpc"
	"github.com/ambertime/amberchain/types"
)

// Error 客户端错误
type Error struct {
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("client error [%d]: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("client error [%d]: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// 错误码定义
const (
	ErrCodeNetwork         = 1000 // 网络错误
	ErrCodeTimeout         = 1001 // 超时错误
	ErrCodeInvalidResponse = 1002 // 无效响应
	ErrCodeRPCError        = 1003 // JSON-RPC错误
	ErrCodeNotSupported    = 1004 // 不支持的操作
	ErrCodeClosed          = 1005 // 连接已关闭
)

// NewNetworkError 创建网络错误
func NewNetworkError(err error) *Error {
	return &Error{
		Code:    ErrCodeNetwork,
		Message: "network error",
		Err:     err,
	}
}

// NewTimeoutError 创建超时错误
func NewTimeoutError() *Error {
	return &Error{
		Code:    ErrCodeTimeout,
		Message: "request timeout",
	}
}

// NewInvalidResponseError 创建无效响应错误
func NewInvalidResponseError(message string) *Error {
	return &Error{
		Code:    ErrCodeInvalidResponse,
		Message: message,
	}
}

// NewRPCError 创建JSON-RPC错误
func NewRPCError(rpcErr *jsonrpc.Error) *Error {
	return &Error{
		Code:    ErrCodeRPCError,
		Message: fmt.Sprintf("RPC error [%d]: %s", rpcErr.Code, rpcErr.Message),
		Err:     rpcErr,
	}
}

// NewNotSupportedError 创建不支持的操作错误
func NewNotSupportedError(operation string) *Error {
	return &Error{
		Code:    ErrCodeNotSupported,
		Message: fmt.Sprintf("operation not supported: %s", operation),
	}
}

// decodeRPCError 将 JSON-RPC 错误转换为 Go 错误
//
// 网关在 data 字段中携带 Problem Details 时还原为 *types.Error，
// 否则返回包装原始错误对象的 *Error。
func decodeRPCError(rpcErr *jsonrpc.Error) error {
	rpcMap := map[string]interface{}{
		"code":    rpcErr.Code,
		"message": rpcErr.Message,
		"data":    rpcErr.Data,
	}
	if pd, err := types.ParseProblemDetailsFromRPCError(rpcMap); err == nil {
		return types.NewErrorFromProblemDetails(rpcErr.Code, pd)
	}
	return NewRPCError(rpcErr)
}
