package permission

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ambertime/amberchain/client"
	"github.com/ambertime/amberchain/services"
)

// Service 权限授予与查询服务接口
type Service interface {
	// Grant 授予权限（组合权限会展开为多笔交易）
	Grant(ctx context.Context, req Request) (*GrantResult, error)

	// Revoke 撤销权限（区间固定为 [0, 0)）
	Revoke(ctx context.Context, req Request) (*GrantResult, error)

	// ListPermissions 列出权限及共识状态
	ListPermissions(ctx context.Context, req ListRequest) ([]ListingRow, error)

	// HasPermission 地址是否持有权限
	HasPermission(ctx context.Context, address string, name string) (bool, error)

	// ApproveAuthority 批准授权节点
	ApproveAuthority(ctx context.Context, req ApproveAuthorityRequest) (string, error)

	// RequestAuthority 申请成为授权节点
	RequestAuthority(ctx context.Context, req AuthorityRequest) (string, error)
}

// Options 服务依赖
type Options struct {
	Store     PermissionStore
	Entities  EntityDirectory
	Wallet    WalletDirectory
	Submitter TransactionSubmitter
	Streams   services.StreamConfig
	Logger    client.Logger

	// Now 时间源（为空时使用 time.Now）
	Now func() time.Time
}

// permissionService 权限服务实现
type permissionService struct {
	store     PermissionStore
	wallet    WalletDirectory
	submitter TransactionSubmitter
	streams   services.StreamConfig
	logger    client.Logger
	now       func() time.Time

	resolver *Resolver
	keys     *KeyResolver

	// sendMu 串行化交易提交，避免并发授权争用同一钱包的输入
	sendMu sync.Mutex
}

// NewService 创建权限服务
func NewService(opts Options) (Service, error) {
	if opts.Store == nil || opts.Entities == nil || opts.Wallet == nil || opts.Submitter == nil {
		return nil, fmt.Errorf("store, entities, wallet and submitter are required")
	}
	if opts.Logger == nil {
		opts.Logger = nopLogger{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	checker := NewChecker(opts.Store)
	return &permissionService{
		store:     opts.Store,
		wallet:    opts.Wallet,
		submitter: opts.Submitter,
		streams:   opts.Streams,
		logger:    opts.Logger,
		now:       opts.Now,
		resolver:  NewResolver(opts.Store, opts.Entities),
		keys:      NewKeyResolver(opts.Store, opts.Wallet, checker),
	}, nil
}

// Grant 授予权限
//
// **流程**：
// 1. 解析组合权限并生成执行计划
// 2. 依次执行每个单项授权，任一失败立即停止
// 3. 命中 authority 时最后执行授权委托
//
// **注意**：
// - 批量授权不是原子的，失败时返回 *BatchError，列出已提交的交易
func (s *permissionService) Grant(ctx context.Context, req Request) (*GrantResult, error) {
	spec := ParseComposite(req.Permission, s.streams)
	plan := spec.Plan(s.streams)
	if len(plan) > 1 || spec.Has(ClassAuthority) {
		s.logger.Info("Expanding composite permission", "permission", req.Permission, "grants", len(plan),
			"authority", spec.Has(ClassAuthority))
	}

	result := &GrantResult{}
	for _, perm := range plan {
		sub := req
		sub.Permission = perm
		txid, err := s.grantElementary(ctx, &sub)
		if err != nil {
			return nil, s.batchFailure(perm, result.TxIDs, err)
		}
		result.TxIDs = append(result.TxIDs, txid)
	}

	if spec.Has(ClassAuthority) {
		txid, err := s.delegateAuthority(ctx, &req)
		if err != nil {
			return nil, s.batchFailure(req.Permission, result.TxIDs, err)
		}
		result.TxIDs = append(result.TxIDs, txid)
	}

	if n := len(result.TxIDs); n > 0 {
		result.TxID = result.TxIDs[n-1]
	}
	return result, nil
}

// Revoke 撤销权限
func (s *permissionService) Revoke(ctx context.Context, req Request) (*GrantResult, error) {
	req.Window = &BlockRange{Start: 0, End: 0}
	return s.Grant(ctx, req)
}

// batchFailure 没有已提交交易时原样返回错误
func (s *permissionService) batchFailure(permission string, committed []string, err error) error {
	if len(committed) == 0 {
		return err
	}
	s.logger.Error("Composite grant aborted", "permission", permission,
		"committed", len(committed), "error", err)
	return &BatchError{
		Permission: permission,
		Committed:  append([]string(nil), committed...),
		Err:        err,
	}
}

// nopLogger 未配置日志器时使用
type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
