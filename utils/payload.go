package utils

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// PayloadField 流数据载荷中的一个字段（保持插入顺序）
type PayloadField struct {
	Key   string
	Value interface{}
}

// BuildPayloadJSON 按字段顺序构建紧凑 JSON 对象
//
// **注意**：
// - 与 map 序列化不同，字段顺序与调用方给出的顺序一致
// - 键名不可重复
func BuildPayloadJSON(fields ...PayloadField) ([]byte, error) {
	seen := make(map[string]struct{}, len(fields))
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fields {
		if f.Key == "" {
			return nil, fmt.Errorf("payload field %d has empty key", i)
		}
		if _, dup := seen[f.Key]; dup {
			return nil, fmt.Errorf("duplicate payload field '%s'", f.Key)
		}
		seen[f.Key] = struct{}{}

		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, fmt.Errorf("marshal key '%s': %w", f.Key, err)
		}
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal value of '%s': %w", f.Key, err)
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// BuildAndEncodePayload 构建 JSON 载荷并做十六进制编码（流数据项格式）
func BuildAndEncodePayload(fields ...PayloadField) (string, error) {
	payloadJSON, err := BuildPayloadJSON(fields...)
	if err != nil {
		return "", fmt.Errorf("build payload failed: %w", err)
	}
	return hex.EncodeToString(payloadJSON), nil
}

// DecodeHexData 校验并解码十六进制数据（可带 0x 前缀）
func DecodeHexData(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("hex data has odd length %d", len(s))
	}
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex data: %w", err)
	}
	return data, nil
}
