package types

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrorKind 权限引擎错误分类
type ErrorKind string

const (
	KindInvalidAddress          ErrorKind = "INVALID_ADDRESS"
	KindDuplicateAddress        ErrorKind = "DUPLICATE_ADDRESS"
	KindInvalidParameter        ErrorKind = "INVALID_PARAMETER"
	KindInvalidPermission       ErrorKind = "INVALID_PERMISSION"
	KindInsufficientPermissions ErrorKind = "INSUFFICIENT_PERMISSIONS"
	KindWalletAddressNotFound   ErrorKind = "WALLET_ADDRESS_NOT_FOUND"
	KindUnsupportedAddressForm  ErrorKind = "UNSUPPORTED_ADDRESS_FORM"
	KindInternalError           ErrorKind = "INTERNAL_ERROR"
)

// 节点 JSON-RPC 错误码（与节点 RPC 层保持一致）
const (
	RPCInvalidAddressOrKey     = -5
	RPCInvalidParameter        = -8
	RPCInsufficientPermissions = -704
	RPCWalletAddressNotFound   = -708
	RPCInternalError           = -32603
)

// LayerPermissionGateway 错误来源层
const LayerPermissionGateway = "permission-gateway"

// rpcCodes 错误分类到 JSON-RPC 错误码的映射
var rpcCodes = map[ErrorKind]int{
	KindInvalidAddress:          RPCInvalidAddressOrKey,
	KindDuplicateAddress:        RPCInvalidParameter,
	KindInvalidParameter:        RPCInvalidParameter,
	KindInvalidPermission:       RPCInvalidParameter,
	KindInsufficientPermissions: RPCInsufficientPermissions,
	KindWalletAddressNotFound:   RPCWalletAddressNotFound,
	KindUnsupportedAddressForm:  RPCInvalidAddressOrKey,
	KindInternalError:           RPCInternalError,
}

// Error 权限引擎统一错误类型
//
// 所有失败都是同步返回的，核心不做任何重试。
type Error struct {
	Kind      ErrorKind
	Code      int // JSON-RPC 错误码
	Message   string
	Cause     error
	Details   map[string]interface{} // 附加信息（例如批量授权中已提交的交易）
	TraceID   string
	Timestamp string
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is 按错误分类匹配，便于 errors.Is(err, &Error{Kind: ...})
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// NewError 创建错误
func NewError(kind ErrorKind, message string) *Error {
	code, ok := rpcCodes[kind]
	if !ok {
		code = RPCInternalError
	}
	return &Error{
		Kind:      kind,
		Code:      code,
		Message:   message,
		TraceID:   uuid.New().String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// Errorf 创建带格式化消息的错误
func Errorf(kind ErrorKind, format string, args ...interface{}) *Error {
	return NewError(kind, fmt.Sprintf(format, args...))
}

// WrapError 包装底层错误（一般用于存储不可达等内部错误）
func WrapError(kind ErrorKind, message string, cause error) *Error {
	e := NewError(kind, message)
	e.Cause = cause
	return e
}

// IsKind 检查错误链中是否包含指定分类的错误
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf 返回错误链中第一个 Error 的分类，非 Error 视为内部错误
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternalError
}
