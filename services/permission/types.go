package permission

import (
	"encoding/json"
	"sync"

	"github.com/ambertime/amberchain/utils"
)

// Type 权限类型（位掩码，可组合）
type Type uint32

const (
	TypeUnknown  Type = 0
	TypeConnect  Type = 0x00000001
	TypeSend     Type = 0x00000002
	TypeReceive  Type = 0x00000004
	TypeWrite    Type = 0x00000008
	TypeCreate   Type = 0x00000010
	TypeIssue    Type = 0x00000020
	TypeMine     Type = 0x00000100
	TypeAdmin    Type = 0x00001000
	TypeActivate Type = 0x00002000
)

// InfiniteBlock 结束区块的无穷大哨兵值
const InfiniteBlock uint32 = 4294967295

// Wildcard 由钱包自动选择地址
const Wildcard = "*"

// EntityType 实体类型
type EntityType uint8

const (
	EntityNone EntityType = iota
	EntityStream
	EntityAsset
)

func (t EntityType) String() string {
	switch t {
	case EntityStream:
		return "stream"
	case EntityAsset:
		return "asset"
	default:
		return "none"
	}
}

// Entity 链上具名实体（流、资产）
type Entity struct {
	Type           EntityType
	TxID           string // 创建交易 ID（hex）
	Name           string
	AnyoneCanWrite bool // 开放流：任何人可写
}

// RestrictsWriters 是否为限制写入者的流
func (e *Entity) RestrictsWriters() bool {
	return e != nil && e.Type == EntityStream && !e.AnyoneCanWrite
}

// BlockRange 请求中的有效区块区间；End 为 -1 表示无穷大
type BlockRange struct {
	Start int64
	End   int64
}

// Window 已解析的有效区间 [From, To)
type Window struct {
	From uint32
	To   uint32
}

// Live 区间是否生效（From < To）
func (w Window) Live() bool {
	return w.From < w.To
}

// Request 单次授权请求
//
// Window 为 nil 时授权默认区间为 [0, ∞)；撤销统一规范为 [0, 0)。
type Request struct {
	From       string   // 授权地址或 "*"
	Targets    []string // 目标地址（原始字符串，流水线第一步解析并去重）
	Permission string   // 权限名，可带实体前缀，如 "stream1.write"
	Metadata   json.RawMessage
	Amount     int64 // 随授权转账的金额（原始单位）
	Window     *BlockRange
	Comment    string
	CommentTo  string
}

// GrantResult 授权结果
type GrantResult struct {
	// TxID 最后一笔提交的交易
	TxID string `json:"txid"`
	// TxIDs 按提交顺序排列的全部交易
	TxIDs []string `json:"txids"`
}

// Record 权限存储中的一行权限记录（只读）
type Record struct {
	Entity         *Entity
	Address        utils.Address
	Type           Type
	Window         Window
	RequiredAdmins uint32
	HasPending     bool
	LastAdmin      utils.Address
}

// PendingApproval 权限记录的待定审批明细
//
// Remaining 为 0 表示一张已投出、等待按区间分组的票，而不是剩余票数。
type PendingApproval struct {
	Window    Window
	Admin     utils.Address
	Remaining uint32
}

// List 存储返回的结果集，使用后必须 Release
type List[T any] struct {
	Rows    []T
	release func()
	once    sync.Once
}

// NewList 创建结果集；release 可以为 nil
func NewList[T any](rows []T, release func()) *List[T] {
	return &List[T]{Rows: rows, release: release}
}

// Len 行数
func (l *List[T]) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Rows)
}

// Release 释放结果集，可重复调用
func (l *List[T]) Release() {
	if l == nil {
		return
	}
	l.once.Do(func() {
		if l.release != nil {
			l.release()
		}
	})
}

// ChangePayload 权限变更载荷
type ChangePayload struct {
	Type      Type
	From      uint32
	To        uint32
	Timestamp uint32
	Entity    *Entity
}

// Metadata 随交易附带的数据
//
// 原始 hex 数据写入 OP_RETURN；流条目形式则发布到 Stream。
type Metadata struct {
	Data   []byte
	Stream *Entity
	Key    string
}

// SubmitRequest 提交给交易层的权限变更交易
type SubmitRequest struct {
	From      utils.Address
	Targets   []utils.Address
	Amount    int64
	Change    ChangePayload
	Metadata  *Metadata
	Comment   string
	CommentTo string
}

// ApproveAuthorityRequest 批准成为授权节点
type ApproveAuthorityRequest struct {
	From               string
	To                 string
	PublicKey          string
	Certificate        string
	CertificateDetails string
}

// AuthorityRequest 申请成为授权节点
type AuthorityRequest struct {
	From      string
	PublicKey string
	CSRToken  string
}
