package permission

import (
	"fmt"
	"strings"

	"github.com/ambertime/amberchain/services"
)

// Class 组合权限分类（可同时命中多个）
type Class uint8

const (
	ClassAdmin Class = 1 << iota
	ClassMine
	ClassAuthority
	ClassServicesWrite
)

// CompositeSpec 解析一次后的组合权限
type CompositeSpec struct {
	Raw     string
	Classes Class
}

// ParseComposite 按子串对权限名分类
//
// 分类不互斥：例如同时包含 "admin" 与 "<services>.write" 的名称两者都会展开。
func ParseComposite(raw string, streams services.StreamConfig) CompositeSpec {
	spec := CompositeSpec{Raw: raw}
	if strings.Contains(raw, "admin") {
		spec.Classes |= ClassAdmin
	}
	if strings.Contains(raw, "mine") {
		spec.Classes |= ClassMine
	}
	if strings.Contains(raw, "authority") {
		spec.Classes |= ClassAuthority
	}
	if streams.ServicesStream != "" && strings.Contains(raw, streams.ServicesStream+".write") {
		spec.Classes |= ClassServicesWrite
	}
	return spec
}

// Has 是否命中分类
func (c CompositeSpec) Has(cl Class) bool {
	return c.Classes&cl != 0
}

// Expand 组合权限展开出的单项权限（不含原始名称本身）
//
// 顺序固定：admin 组、mine 组、services 流。
func (c CompositeSpec) Expand(streams services.StreamConfig) []string {
	var out []string
	if c.Has(ClassAdmin) {
		for _, s := range streams.AdminStreams {
			out = append(out, s+".admin", s+".write")
		}
		for _, s := range streams.MineStreams {
			out = append(out, s+".admin")
		}
	}
	if c.Has(ClassMine) || c.Has(ClassAuthority) {
		for _, s := range streams.MineStreams {
			out = append(out, s+".write")
		}
	}
	if c.Has(ClassServicesWrite) {
		out = append(out, "issue")
	}
	return out
}

// Plan 依次执行的单项授权：展开结果加上原始名称本身
//
// 命中 authority 时原始名称不作为权限授予，改为执行授权委托。
func (c CompositeSpec) Plan(streams services.StreamConfig) []string {
	out := c.Expand(streams)
	if !c.Has(ClassAuthority) {
		out = append(out, c.Raw)
	}
	return out
}

// BatchError 组合授权中途失败
//
// 组合授权不是原子操作：失败前已提交的交易不会回滚，Committed 按顺序列出这些交易。
type BatchError struct {
	Permission string
	Committed  []string
	Err        error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("grant %s failed after %d committed transaction(s) [%s]: %v",
		e.Permission, len(e.Committed), strings.Join(e.Committed, ","), e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}
