package wallet

import (
	"context"
	"sync"

	"github.com/ambertime/amberchain/utils"
)

// Keyring 节点本地钱包：按加入顺序记录已知地址
//
// 既包含可签名地址（持有私钥），也包含只读观察地址（例如多签 P2SH 地址）。
// 枚举顺序即加入顺序，自动查找授权地址时按此顺序扫描。
type Keyring struct {
	mu      sync.RWMutex
	order   []utils.Address
	wallets map[utils.Address]Wallet
	watch   map[utils.Address]struct{}
}

// NewKeyring 创建空钱包
func NewKeyring(wallets ...Wallet) *Keyring {
	k := &Keyring{
		wallets: make(map[utils.Address]Wallet),
		watch:   make(map[utils.Address]struct{}),
	}
	for _, w := range wallets {
		k.Add(w)
	}
	return k
}

// Add 加入可签名地址；重复加入无副作用
func (k *Keyring) Add(w Wallet) {
	k.mu.Lock()
	defer k.mu.Unlock()

	addr := w.Address()
	if _, ok := k.wallets[addr]; ok {
		return
	}
	if _, ok := k.watch[addr]; ok {
		delete(k.watch, addr)
	} else {
		k.order = append(k.order, addr)
	}
	k.wallets[addr] = w
}

// AddWatchOnly 加入只读地址
func (k *Keyring) AddWatchOnly(addr utils.Address) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if _, ok := k.wallets[addr]; ok {
		return
	}
	if _, ok := k.watch[addr]; ok {
		return
	}
	k.watch[addr] = struct{}{}
	k.order = append(k.order, addr)
}

// KnownAddresses 返回钱包已知的全部地址（按枚举顺序的副本）
func (k *Keyring) KnownAddresses(ctx context.Context) []utils.Address {
	k.mu.RLock()
	defer k.mu.RUnlock()

	out := make([]utils.Address, len(k.order))
	copy(out, k.order)
	return out
}

// IsSpendable 钱包是否持有该地址的私钥
func (k *Keyring) IsSpendable(addr utils.Address) bool {
	k.mu.RLock()
	defer k.mu.RUnlock()

	_, ok := k.wallets[addr]
	return ok
}

// Wallet 获取地址对应的签名密钥
func (k *Keyring) Wallet(addr utils.Address) (Wallet, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	w, ok := k.wallets[addr]
	return w, ok
}

// Len 已知地址数量
func (k *Keyring) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.order)
}
