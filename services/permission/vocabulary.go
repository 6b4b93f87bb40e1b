package permission

import "strings"

// typeOrder 权限类型的规范顺序（用于列表输出与拆分位掩码）
var typeOrder = []Type{
	TypeConnect, TypeSend, TypeReceive, TypeWrite, TypeCreate,
	TypeIssue, TypeMine, TypeAdmin, TypeActivate,
}

var typeNames = map[Type]string{
	TypeConnect:  "connect",
	TypeSend:     "send",
	TypeReceive:  "receive",
	TypeWrite:    "write",
	TypeCreate:   "create",
	TypeIssue:    "issue",
	TypeMine:     "mine",
	TypeAdmin:    "admin",
	TypeActivate: "activate",
}

// vocabularies 各实体类型可用的权限
var vocabularies = map[EntityType]Type{
	EntityNone:   TypeConnect | TypeSend | TypeReceive | TypeWrite | TypeCreate | TypeIssue | TypeMine | TypeAdmin | TypeActivate,
	EntityStream: TypeWrite | TypeActivate | TypeAdmin,
	EntityAsset:  TypeIssue | TypeActivate | TypeAdmin,
}

// activateLevelTypes activate 权限即可授予的类型
const activateLevelTypes = TypeConnect | TypeSend | TypeReceive | TypeWrite

// ParseType 解析权限名（支持逗号分隔列表与 "all"）
//
// 任一名称不在该实体类型的词表中时返回 TypeUnknown。
func ParseType(name string, entityType EntityType) Type {
	vocab, ok := vocabularies[entityType]
	if !ok {
		return TypeUnknown
	}

	var result Type
	for _, token := range strings.Split(name, ",") {
		token = strings.ToLower(strings.TrimSpace(token))
		if token == "all" {
			result |= vocab
			continue
		}
		t := typeByName(token)
		if t == TypeUnknown || vocab&t == 0 {
			return TypeUnknown
		}
		result |= t
	}
	return result
}

// ActivateLevel 类型非空且只包含 connect/send/receive/write
func ActivateLevel(t Type) bool {
	return t != TypeUnknown && t&^activateLevelTypes == 0
}

// TypeName 单个权限位的名称
func TypeName(t Type) (string, bool) {
	name, ok := typeNames[t]
	return name, ok
}

// Bits 按规范顺序拆分位掩码
func Bits(t Type) []Type {
	var out []Type
	for _, bit := range typeOrder {
		if t&bit != 0 {
			out = append(out, bit)
		}
	}
	return out
}

func (t Type) String() string {
	var names []string
	for _, bit := range Bits(t) {
		names = append(names, typeNames[bit])
	}
	if len(names) == 0 {
		return "unknown"
	}
	return strings.Join(names, ",")
}

func typeByName(name string) Type {
	for t, n := range typeNames {
		if n == name {
			return t
		}
	}
	return TypeUnknown
}
