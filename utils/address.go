package utils

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/base58"
)

// AddressKind 地址持有者类型
type AddressKind uint8

const (
	// KeyHash P2PKH 地址（公钥哈希）
	KeyHash AddressKind = iota
	// ScriptHash P2SH 地址（脚本哈希）
	ScriptHash
)

// Base58Check 版本字节（与节点地址编码保持一致）
const (
	KeyHashVersion    byte = 0x00
	ScriptHashVersion byte = 0x05
)

// AddressLength 地址哈希长度（HASH160）
const AddressLength = 20

// Address 已解析的链上地址
type Address struct {
	Kind AddressKind
	Hash [AddressLength]byte
}

// NewKeyHashAddress 从 20 字节公钥哈希构建 P2PKH 地址
func NewKeyHashAddress(hash []byte) (Address, error) {
	return newAddress(KeyHash, hash)
}

// NewScriptHashAddress 从 20 字节脚本哈希构建 P2SH 地址
func NewScriptHashAddress(hash []byte) (Address, error) {
	return newAddress(ScriptHash, hash)
}

func newAddress(kind AddressKind, hash []byte) (Address, error) {
	if len(hash) != AddressLength {
		return Address{}, fmt.Errorf("invalid address length: expected %d bytes, got %d", AddressLength, len(hash))
	}
	a := Address{Kind: kind}
	copy(a.Hash[:], hash)
	return a, nil
}

// ParseAddress 解析 Base58Check 编码的地址
//
// **格式**：
// - 版本字节（1字节）+ 地址哈希（20字节）+ 校验和（4字节）
// - 版本字节区分 P2PKH 与 P2SH
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Address{}, fmt.Errorf("empty address")
	}

	payload, version, err := base58.CheckDecode(s)
	if err != nil {
		return Address{}, fmt.Errorf("decode address %q: %w", s, err)
	}

	switch version {
	case KeyHashVersion:
		return NewKeyHashAddress(payload)
	case ScriptHashVersion:
		return NewScriptHashAddress(payload)
	default:
		return Address{}, fmt.Errorf("unknown address version 0x%02x", version)
	}
}

// String 返回 Base58Check 编码
func (a Address) String() string {
	version := KeyHashVersion
	if a.Kind == ScriptHash {
		version = ScriptHashVersion
	}
	return base58.CheckEncode(a.Hash[:], version)
}

// IsScriptHash 是否为 P2SH 地址
func (a Address) IsScriptHash() bool {
	return a.Kind == ScriptHash
}

// Bytes 返回 20 字节地址哈希
func (a Address) Bytes() []byte {
	b := make([]byte, AddressLength)
	copy(b, a.Hash[:])
	return b
}

// Hex 返回带 0x 前缀的十六进制地址哈希
func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a.Hash[:])
}

// MarshalText 实现 encoding.TextMarshaler
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// AddressBytesToBase58 将 20 字节公钥哈希转换为 P2PKH Base58Check 编码
func AddressBytesToBase58(addressBytes []byte) (string, error) {
	a, err := NewKeyHashAddress(addressBytes)
	if err != nil {
		return "", err
	}
	return a.String(), nil
}

// AddressBase58ToBytes 将 Base58Check 编码地址转换为 20 字节地址哈希
func AddressBase58ToBytes(base58Addr string) ([]byte, error) {
	a, err := ParseAddress(base58Addr)
	if err != nil {
		return nil, err
	}
	return a.Bytes(), nil
}

// AddressHexToBase58 将十六进制公钥哈希转换为 P2PKH Base58Check 编码
// hexAddr 可以带或不带 0x 前缀（40个字符，20字节）
func AddressHexToBase58(hexAddr string) (string, error) {
	addressBytes, err := hex.DecodeString(strings.TrimPrefix(hexAddr, "0x"))
	if err != nil {
		return "", fmt.Errorf("invalid hex address: %w", err)
	}
	return AddressBytesToBase58(addressBytes)
}

// SplitAddressList 拆分逗号分隔的地址列表，忽略空白项
func SplitAddressList(s string) []string {
	var out []string
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}
