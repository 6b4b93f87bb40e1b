package permission

import (
	"context"
	"errors"
	"strings"

	"github.com/ambertime/amberchain/types"
)

// Resolved 已解析的权限
type Resolved struct {
	Entity *Entity // nil 表示全局权限
	Name   string
	Type   Type
}

// Resolver 权限名解析器
type Resolver struct {
	store    PermissionStore
	entities EntityDirectory
}

// NewResolver 创建解析器
func NewResolver(store PermissionStore, entities EntityDirectory) *Resolver {
	return &Resolver{store: store, entities: entities}
}

// SplitPermission 按最后一个 "." 拆分实体标识与权限名
func SplitPermission(spec string) (entityID, name string) {
	if i := strings.LastIndex(spec, "."); i >= 0 {
		return spec[:i], spec[i+1:]
	}
	return "", spec
}

// Resolve 解析权限名（可带实体前缀）
//
// **流程**：
// 1. 按最后一个 "." 拆分出实体标识
// 2. 有实体标识时先解析实体
// 3. 按 (名称, 实体类型) 解析权限类型，未知类型返回 InvalidPermission
func (r *Resolver) Resolve(ctx context.Context, spec string) (*Resolved, error) {
	entityID, name := SplitPermission(spec)

	var entity *Entity
	entityType := EntityNone
	if entityID != "" {
		e, err := r.ResolveEntity(ctx, entityID)
		if err != nil {
			return nil, err
		}
		entity = e
		entityType = e.Type
	}

	t := r.store.ResolveType(name, entityType)
	if t == TypeUnknown {
		return nil, types.NewError(types.KindInvalidPermission, "Invalid permission")
	}

	return &Resolved{Entity: entity, Name: name, Type: t}, nil
}

// ResolveEntity 查找实体
func (r *Resolver) ResolveEntity(ctx context.Context, identifier string) (*Entity, error) {
	entity, err := r.entities.Resolve(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrEntityNotFound) {
			return nil, types.Errorf(types.KindInvalidParameter, "Entity with this identifier not found: %s", identifier)
		}
		return nil, types.WrapError(types.KindInternalError, "Cannot resolve entity", err)
	}
	if entity == nil {
		return nil, types.Errorf(types.KindInvalidParameter, "Entity with this identifier not found: %s", identifier)
	}
	return entity, nil
}
