package permission

import (
	"context"
	"strings"

	"github.com/ambertime/amberchain/types"
	"github.com/ambertime/amberchain/utils"
)

// Right 授权所需的权限
type Right int

const (
	RightActivate Right = iota + 1 // activate 或 admin
	RightAdmin
)

// Requirement 一次授权判定的结果：所需权限及其作用域
type Requirement struct {
	Right        Right
	EntityScoped bool
}

// RequiredRight 授权判定表
//
//	有实体 + activate 级  -> CanActivate(entity)
//	有实体 + 非 activate  -> CanAdmin(entity)
//	无实体 + activate 级  -> CanActivate(全局)
//	无实体 + 非 activate  -> CanAdmin(全局)
func RequiredRight(entityPresent, activateLevel bool) Requirement {
	r := Requirement{Right: RightAdmin, EntityScoped: entityPresent}
	if activateLevel {
		r.Right = RightActivate
	}
	return r
}

// String 错误消息中的权限描述
func (r Requirement) String() string {
	s := "admin permission"
	if r.Right == RightActivate {
		s = "activate or admin permission"
	}
	if r.EntityScoped {
		s += " for this entity"
	}
	return s
}

// Checker 授权检查器
type Checker struct {
	store PermissionStore
}

// NewChecker 创建授权检查器
func NewChecker(store PermissionStore) *Checker {
	return &Checker{store: store}
}

// Authorize key 能否对 entity（nil 为全局）授予类型 t
func (c *Checker) Authorize(ctx context.Context, entity *Entity, t Type, key utils.Address) (bool, error) {
	var (
		ok  bool
		err error
	)
	switch RequiredRight(entity != nil, c.store.IsActivateLevel(t)).Right {
	case RightActivate:
		ok, err = c.store.CanActivate(ctx, entity, key)
	default:
		ok, err = c.store.CanAdmin(ctx, entity, key)
	}
	if err != nil {
		return false, types.WrapError(types.KindInternalError, "Cannot open permission database", err)
	}
	return ok, nil
}

// KeyResolver 授权地址解析器
type KeyResolver struct {
	store   PermissionStore
	wallet  WalletDirectory
	checker *Checker
}

// NewKeyResolver 创建授权地址解析器
func NewKeyResolver(store PermissionStore, wallet WalletDirectory, checker *Checker) *KeyResolver {
	return &KeyResolver{store: store, wallet: wallet, checker: checker}
}

// Resolve 确定签名地址
//
// **流程**：
// - 显式地址：只能是单个 P2PKH 地址，钱包必须持有私钥，且必须通过授权检查
// - "*"：按钱包枚举顺序扫描持有私钥的 P2PKH 地址，取第一个满足全部条件的地址
//
// publish 非 nil 且为限制写入者的流时，候选地址还必须可写该流。
func (k *KeyResolver) Resolve(ctx context.Context, from string, entity *Entity, t Type, publish *Entity) (utils.Address, error) {
	if from == Wildcard {
		return k.scan(ctx, entity, t, publish)
	}
	return k.explicit(ctx, from, entity, t, publish)
}

func (k *KeyResolver) explicit(ctx context.Context, from string, entity *Entity, t Type, publish *Entity) (utils.Address, error) {
	addr, err := ParseSingleAddress(from, "Single from-address should be specified")
	if err != nil {
		return utils.Address{}, err
	}

	if addr.IsScriptHash() {
		return utils.Address{}, types.NewError(types.KindUnsupportedAddressForm,
			"Please use raw transactions to grant/revoke from P2SH addresses")
	}
	if !k.wallet.IsSpendable(addr) {
		return utils.Address{}, types.NewError(types.KindWalletAddressNotFound,
			"Private key for from-address is not found in this wallet")
	}

	ok, err := k.checker.Authorize(ctx, entity, t, addr)
	if err != nil {
		return utils.Address{}, err
	}
	if !ok {
		req := RequiredRight(entity != nil, k.store.IsActivateLevel(t))
		return utils.Address{}, types.NewError(types.KindInsufficientPermissions,
			"from-address doesn't have "+req.String())
	}

	if publish.RestrictsWriters() {
		ok, err := k.store.CanWrite(ctx, publish, addr)
		if err != nil {
			return utils.Address{}, types.WrapError(types.KindInternalError, "Cannot open permission database", err)
		}
		if !ok {
			return utils.Address{}, types.NewError(types.KindInsufficientPermissions,
				"from-address doesn't have write permission for given stream")
		}
	}
	return addr, nil
}

func (k *KeyResolver) scan(ctx context.Context, entity *Entity, t Type, publish *Entity) (utils.Address, error) {
	for _, addr := range k.wallet.KnownAddresses(ctx) {
		if addr.IsScriptHash() || !k.wallet.IsSpendable(addr) {
			continue
		}

		if publish.RestrictsWriters() {
			ok, err := k.store.CanWrite(ctx, publish, addr)
			if err != nil {
				return utils.Address{}, types.WrapError(types.KindInternalError, "Cannot open permission database", err)
			}
			if !ok {
				continue
			}
		}

		ok, err := k.checker.Authorize(ctx, entity, t, addr)
		if err != nil {
			return utils.Address{}, err
		}
		if ok {
			return addr, nil
		}
	}

	msg := "This wallet doesn't have addresses with "
	if publish.RestrictsWriters() {
		msg += "write permission for given stream and "
	}
	msg += RequiredRight(entity != nil, k.store.IsActivateLevel(t)).String()
	return utils.Address{}, types.NewError(types.KindInsufficientPermissions, msg)
}

// ParseSingleAddress 解析恰好一个地址；多个地址时返回 InvalidParameter
func ParseSingleAddress(s string, multipleMsg string) (utils.Address, error) {
	parts := utils.SplitAddressList(s)
	if len(parts) != 1 {
		return utils.Address{}, types.NewError(types.KindInvalidParameter, multipleMsg)
	}
	addr, err := utils.ParseAddress(parts[0])
	if err != nil {
		return utils.Address{}, types.Errorf(types.KindInvalidAddress, "Invalid address: %s", parts[0])
	}
	return addr, nil
}

// ParseTargets 解析并去重目标地址；列表中的空项（如 "a,,b"）视为无效地址
func ParseTargets(raw []string) ([]utils.Address, error) {
	var tokens []string
	for _, r := range raw {
		if strings.TrimSpace(r) == "" {
			continue
		}
		for _, tok := range strings.Split(r, ",") {
			tokens = append(tokens, strings.TrimSpace(tok))
		}
	}

	seen := make(map[utils.Address]struct{}, len(tokens))
	out := make([]utils.Address, 0, len(tokens))
	for _, tok := range tokens {
		addr, err := utils.ParseAddress(tok)
		if err != nil {
			return nil, types.Errorf(types.KindInvalidAddress, "Invalid address: %s", tok)
		}
		if _, dup := seen[addr]; dup {
			return nil, types.Errorf(types.KindDuplicateAddress, "Invalid parameter, duplicated address: %s", tok)
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	if len(out) == 0 {
		return nil, types.NewError(types.KindInvalidParameter, "At least one address should be specified")
	}
	return out, nil
}
