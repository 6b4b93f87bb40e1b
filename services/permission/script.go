package permission

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// 权限变更脚本元素前缀
var (
	scriptEntityPrefix     = []byte("spke")
	scriptPermissionPrefix = []byte("spkp")
)

const (
	entityTxIDLength     = 32
	permissionBodyLength = 16 // type | from | to | timestamp，各 4 字节小端
)

// EncodeChangeScript 将权限变更载荷编码为输出脚本元素
//
// 有实体时先输出实体元素 "spke" + txid，再输出权限元素 "spkp" + 16 字节。
func EncodeChangeScript(c ChangePayload) ([][]byte, error) {
	var elems [][]byte

	if c.Entity != nil {
		txid, err := hex.DecodeString(c.Entity.TxID)
		if err != nil || len(txid) != entityTxIDLength {
			return nil, fmt.Errorf("invalid entity txid %q", c.Entity.TxID)
		}
		elems = append(elems, append(append([]byte{}, scriptEntityPrefix...), txid...))
	}

	body := make([]byte, len(scriptPermissionPrefix)+permissionBodyLength)
	copy(body, scriptPermissionPrefix)
	binary.LittleEndian.PutUint32(body[4:], uint32(c.Type))
	binary.LittleEndian.PutUint32(body[8:], c.From)
	binary.LittleEndian.PutUint32(body[12:], c.To)
	binary.LittleEndian.PutUint32(body[16:], c.Timestamp)
	elems = append(elems, body)

	return elems, nil
}

// DecodeChangeScript 解析权限变更脚本元素（实体只还原 TxID）
func DecodeChangeScript(elems [][]byte) (ChangePayload, error) {
	var c ChangePayload
	found := false

	for _, e := range elems {
		switch {
		case bytes.HasPrefix(e, scriptEntityPrefix):
			if len(e) != len(scriptEntityPrefix)+entityTxIDLength {
				return ChangePayload{}, fmt.Errorf("entity element has length %d", len(e))
			}
			c.Entity = &Entity{TxID: hex.EncodeToString(e[len(scriptEntityPrefix):])}
		case bytes.HasPrefix(e, scriptPermissionPrefix):
			if len(e) != len(scriptPermissionPrefix)+permissionBodyLength {
				return ChangePayload{}, fmt.Errorf("permission element has length %d", len(e))
			}
			c.Type = Type(binary.LittleEndian.Uint32(e[4:]))
			c.From = binary.LittleEndian.Uint32(e[8:])
			c.To = binary.LittleEndian.Uint32(e[12:])
			c.Timestamp = binary.LittleEndian.Uint32(e[16:])
			found = true
		default:
			return ChangePayload{}, fmt.Errorf("unknown script element prefix %x", e[:min(4, len(e))])
		}
	}

	if !found {
		return ChangePayload{}, fmt.Errorf("missing permission element")
	}
	return c, nil
}
