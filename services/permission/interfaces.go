package permission

import (
	"context"
	"errors"

	"github.com/ambertime/amberchain/utils"
)

// ErrEntityNotFound 实体目录中不存在该标识
var ErrEntityNotFound = errors.New("entity not found")

// PermissionStore 权限存储
type PermissionStore interface {
	// ResolveType 将权限名解析为类型；无法识别时返回 TypeUnknown
	ResolveType(name string, entityType EntityType) Type

	// IsActivateLevel 该类型是否可由 activate 权限授予
	IsActivateLevel(t Type) bool

	// QueryRecords 查询权限记录；entity 为 nil 表示全局，address 为 nil 表示全部地址
	QueryRecords(ctx context.Context, entity *Entity, address *utils.Address, t Type) (*List[Record], error)

	// QueryDetails 查询记录的待定审批明细
	QueryDetails(ctx context.Context, rec Record) (*List[PendingApproval], error)

	CanAdmin(ctx context.Context, entity *Entity, key utils.Address) (bool, error)
	CanActivate(ctx context.Context, entity *Entity, key utils.Address) (bool, error)
	CanWrite(ctx context.Context, entity *Entity, key utils.Address) (bool, error)
	CanReceive(ctx context.Context, address utils.Address) (bool, error)

	// ReadLock 获取链状态读锁，返回解锁函数
	ReadLock() (unlock func())
}

// EntityDirectory 实体目录（按名称或创建交易 ID 查找）
type EntityDirectory interface {
	Resolve(ctx context.Context, identifier string) (*Entity, error)
}

// WalletDirectory 本地钱包地址
type WalletDirectory interface {
	// KnownAddresses 按枚举顺序返回钱包已知地址
	KnownAddresses(ctx context.Context) []utils.Address

	// IsSpendable 钱包是否持有该地址的私钥
	IsSpendable(address utils.Address) bool
}

// TransactionSubmitter 交易签名与广播
type TransactionSubmitter interface {
	Submit(ctx context.Context, req SubmitRequest) (string, error)
	Publish(ctx context.Context, from utils.Address, stream *Entity, key string, dataHex string) (string, error)
}
