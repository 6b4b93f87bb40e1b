package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestNewError_RPCCode(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want int
	}{
		{KindInvalidAddress, RPCInvalidAddressOrKey},
		{KindDuplicateAddress, RPCInvalidParameter},
		{KindInvalidPermission, RPCInvalidParameter},
		{KindInsufficientPermissions, RPCInsufficientPermissions},
		{KindWalletAddressNotFound, RPCWalletAddressNotFound},
		{KindUnsupportedAddressForm, RPCInvalidAddressOrKey},
		{KindInternalError, RPCInternalError},
		{ErrorKind("SOMETHING_ELSE"), RPCInternalError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			e := NewError(tt.kind, "msg")
			if e.Code != tt.want {
				t.Errorf("Code = %d, want %d", e.Code, tt.want)
			}
			if e.TraceID == "" {
				t.Error("TraceID is empty")
			}
		})
	}
}

func TestIsKind_ThroughWrapping(t *testing.T) {
	base := NewError(KindDuplicateAddress, "Invalid parameter, duplicated address: x")
	wrapped := fmt.Errorf("grant failed: %w", base)

	if !IsKind(wrapped, KindDuplicateAddress) {
		t.Error("IsKind() should see through %w wrapping")
	}
	if IsKind(wrapped, KindInvalidAddress) {
		t.Error("IsKind() matched the wrong kind")
	}
	if KindOf(errors.New("plain")) != KindInternalError {
		t.Error("KindOf() of a plain error should be INTERNAL_ERROR")
	}
	if !errors.Is(wrapped, &Error{Kind: KindDuplicateAddress}) {
		t.Error("errors.Is() should match on kind")
	}
}

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "without cause",
			err:  &Error{Kind: KindInvalidPermission, Message: "Invalid permission"},
			want: "[INVALID_PERMISSION] Invalid permission",
		},
		{
			name: "with cause",
			err:  &Error{Kind: KindInternalError, Message: "Cannot open permission database", Cause: errors.New("disk")},
			want: "[INTERNAL_ERROR] Cannot open permission database: disk",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseProblemDetailsFromRPCError(t *testing.T) {
	tests := []struct {
		name      string
		rpcError  interface{}
		wantError bool
	}{
		{
			name: "valid problem details",
			rpcError: map[string]interface{}{
				"code":    -704.0,
				"message": "from-address doesn't have admin permission",
				"data": map[string]interface{}{
					"kind":      "INSUFFICIENT_PERMISSIONS",
					"layer":     LayerPermissionGateway,
					"message":   "from-address doesn't have admin permission",
					"traceId":   "trace-123",
					"timestamp": "2026-01-23T10:00:00Z",
				},
			},
		},
		{
			name:      "invalid RPC error format",
			rpcError:  "not a map",
			wantError: true,
		},
		{
			name: "no data field",
			rpcError: map[string]interface{}{
				"code":    -8.0,
				"message": "Invalid permission",
			},
			wantError: true,
		},
		{
			name: "missing required fields",
			rpcError: map[string]interface{}{
				"data": map[string]interface{}{"kind": "INVALID_PERMISSION"},
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pd, err := ParseProblemDetailsFromRPCError(tt.rpcError)
			if (err != nil) != tt.wantError {
				t.Fatalf("ParseProblemDetailsFromRPCError() error = %v, wantError %v", err, tt.wantError)
			}
			if tt.wantError {
				return
			}
			e := NewErrorFromProblemDetails(RPCInsufficientPermissions, pd)
			if e.Kind != KindInsufficientPermissions {
				t.Errorf("Kind = %s, want %s", e.Kind, KindInsufficientPermissions)
			}
			if e.TraceID != "trace-123" {
				t.Errorf("TraceID = %s, want trace-123", e.TraceID)
			}
		})
	}
}

func TestError_ToProblemDetails(t *testing.T) {
	e := WrapError(KindInternalError, "Cannot open permission database", errors.New("locked"))
	pd := e.ToProblemDetails()

	if pd.Kind != string(KindInternalError) {
		t.Errorf("Kind = %s", pd.Kind)
	}
	if pd.Layer != LayerPermissionGateway {
		t.Errorf("Layer = %s", pd.Layer)
	}
	if pd.Detail != "locked" {
		t.Errorf("Detail = %s, want locked", pd.Detail)
	}
	if pd.TraceID != e.TraceID {
		t.Errorf("TraceID = %s, want %s", pd.TraceID, e.TraceID)
	}
}
