package rpc

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/ambertime/amberchain/types"
)

// params 位置参数
type params []json.RawMessage

// has 第 i 个参数存在且不为 null
func (p params) has(i int) bool {
	if i >= len(p) {
		return false
	}
	return !bytes.Equal(bytes.TrimSpace(p[i]), []byte("null"))
}

func invalidParam(name string) *types.Error {
	return types.Errorf(types.KindInvalidParameter, "Invalid parameter %s", name)
}

// requireCount 参数个数检查
func (p params) requireCount(lo, hi int, usage string) error {
	if len(p) < lo || len(p) > hi {
		return types.Errorf(types.KindInvalidParameter, "Usage: %s", usage)
	}
	return nil
}

// str 必填字符串参数
func (p params) str(i int, name string) (string, error) {
	if !p.has(i) {
		return "", invalidParam(name)
	}
	var s string
	if err := json.Unmarshal(p[i], &s); err != nil {
		return "", invalidParam(name)
	}
	return s, nil
}

// optStr 可选字符串参数
func (p params) optStr(i int, name string) (string, error) {
	if !p.has(i) {
		return "", nil
	}
	return p.str(i, name)
}

// optInt64 可选整数参数；也接受数字字符串
func (p params) optInt64(i int, name string, def int64) (int64, error) {
	if !p.has(i) {
		return def, nil
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(p[i]))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		var s string
		if json.Unmarshal(p[i], &s) != nil {
			return 0, invalidParam(name)
		}
		n = json.Number(strings.TrimSpace(s))
	}
	v, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil {
		return 0, invalidParam(name)
	}
	return v, nil
}

// optAmount 可选金额参数：整数原始单位（不接受小数币值）
func (p params) optAmount(i int) (int64, error) {
	v, err := p.optInt64(i, "amount", 0)
	if err != nil {
		return 0, types.NewError(types.KindInvalidParameter, "Invalid amount, expected integer raw units")
	}
	return v, nil
}

// optBool 可选布尔参数：接受 true/false、数字（非零为真）与 "true"/"false"
func (p params) optBool(i int, name string) (bool, error) {
	if !p.has(i) {
		return false, nil
	}
	var v interface{}
	if err := json.Unmarshal(p[i], &v); err != nil {
		return false, invalidParam(name)
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case float64:
		return b != 0, nil
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return false, invalidParam(name)
		}
		return parsed, nil
	default:
		return false, invalidParam(name)
	}
}

// addresses 地址参数：逗号分隔字符串或字符串数组
func (p params) addresses(i int, name string) ([]string, error) {
	if !p.has(i) {
		return nil, invalidParam(name)
	}
	var s string
	if err := json.Unmarshal(p[i], &s); err == nil {
		return []string{s}, nil
	}
	var list []string
	if err := json.Unmarshal(p[i], &list); err != nil {
		return nil, invalidParam(name)
	}
	if list == nil {
		list = []string{}
	}
	return list, nil
}

// raw 原始 JSON 参数
func (p params) raw(i int) json.RawMessage {
	if !p.has(i) {
		return nil
	}
	return p[i]
}
