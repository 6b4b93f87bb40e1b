package sqlite

import (
	"context"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ambertime/amberchain/services/permission"
	"github.com/ambertime/amberchain/utils"
)

// Seed 初始化数据（创世管理员、系统流等）
type Seed struct {
	Height   uint32       `yaml:"height"`
	Entities []SeedEntity `yaml:"entities"`
	Changes  []SeedChange `yaml:"changes"`
}

// SeedEntity 初始实体
type SeedEntity struct {
	Name string `yaml:"name"`
	TxID string `yaml:"txid"`
	Type string `yaml:"type"` // stream | asset
	Open bool   `yaml:"open"` // 任何人可写
}

// SeedChange 初始权限变更
type SeedChange struct {
	Admin      string `yaml:"admin"`
	Address    string `yaml:"address"`
	Permission string `yaml:"permission"` // 可带实体前缀，如 "root.write"
	From       int64  `yaml:"from"`
	To         *int64 `yaml:"to"` // 缺省或 -1 表示无穷大
	Threshold  uint32 `yaml:"threshold"`
}

// LoadSeed 解析 YAML 初始化数据
func LoadSeed(r io.Reader) (*Seed, error) {
	var seed Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}
	return &seed, nil
}

// ApplySeed 写入实体、权限变更与链高度
func (s *Store) ApplySeed(ctx context.Context, seed *Seed) error {
	for _, se := range seed.Entities {
		e := &permission.Entity{TxID: se.TxID, Name: se.Name, AnyoneCanWrite: se.Open}
		switch strings.ToLower(se.Type) {
		case "stream", "":
			e.Type = permission.EntityStream
		case "asset":
			e.Type = permission.EntityAsset
		default:
			return fmt.Errorf("entity %s: unknown type %q", se.Name, se.Type)
		}
		if err := s.PutEntity(ctx, e); err != nil {
			return err
		}
	}

	for i, c := range seed.Changes {
		if err := s.applySeedChange(ctx, c); err != nil {
			return fmt.Errorf("change %d: %w", i, err)
		}
	}

	if seed.Height > 0 {
		return s.SetHeight(ctx, seed.Height)
	}
	return nil
}

func (s *Store) applySeedChange(ctx context.Context, c SeedChange) error {
	admin, err := utils.ParseAddress(c.Admin)
	if err != nil {
		return fmt.Errorf("invalid admin address: %w", err)
	}
	target, err := utils.ParseAddress(c.Address)
	if err != nil {
		return fmt.Errorf("invalid address: %w", err)
	}

	var entity *permission.Entity
	entityType := permission.EntityNone
	entityID, name := permission.SplitPermission(c.Permission)
	if entityID != "" {
		if entity, err = s.Resolve(ctx, entityID); err != nil {
			return err
		}
		entityType = entity.Type
	}
	t := permission.ParseType(name, entityType)
	if t == permission.TypeUnknown {
		return fmt.Errorf("invalid permission %q", c.Permission)
	}

	end := int64(-1)
	if c.To != nil {
		end = *c.To
	}
	window, err := permission.ResolveWindow(&permission.BlockRange{Start: c.From, End: end})
	if err != nil {
		return err
	}
	_, err = s.ApplyChange(ctx, admin, target, permission.ChangePayload{
		Type:   t,
		From:   window.From,
		To:     window.To,
		Entity: entity,
	}, c.Threshold)
	return err
}
