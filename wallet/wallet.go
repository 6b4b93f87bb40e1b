package wallet

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/ripemd160"

	"github.com/ambertime/amberchain/utils"
)

// Wallet 单个签名密钥
type Wallet interface {
	// Address 获取 P2PKH 地址
	Address() utils.Address

	// SignHash 签名给定的 32 字节哈希
	SignHash(hash []byte) ([]byte, error)

	// SignMessage 签名消息（先做 SHA256）
	SignMessage(msg []byte) ([]byte, error)

	// PublicKey 获取压缩公钥
	PublicKey() []byte

	// PrivateKey 获取私钥（谨慎使用）
	PrivateKey() *ecdsa.PrivateKey
}

// SimpleWallet 简单钱包实现
type SimpleWallet struct {
	privateKey *ecdsa.PrivateKey
	address    utils.Address
	createdAt  time.Time
}

// NewWallet 创建新钱包
func NewWallet() (*SimpleWallet, error) {
	// 生成 secp256k1 私钥（与链上使用的曲线保持一致）
	privateKey, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate private key: %w", err)
	}
	return newSimpleWallet(privateKey)
}

// NewWalletFromPrivateKey 从十六进制私钥创建钱包
func NewWalletFromPrivateKey(privateKeyHex string) (*SimpleWallet, error) {
	privateKeyBytes, err := hex.DecodeString(hexRemovePrefix(privateKeyHex))
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	return NewWalletFromPrivateKeyBytes(privateKeyBytes)
}

// NewWalletFromPrivateKeyBytes 从 32 字节私钥创建钱包
func NewWalletFromPrivateKeyBytes(privateKeyBytes []byte) (*SimpleWallet, error) {
	if len(privateKeyBytes) != 32 {
		return nil, fmt.Errorf("invalid private key length: expected 32 bytes, got %d", len(privateKeyBytes))
	}

	privateKey, err := ethcrypto.ToECDSA(privateKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("parse secp256k1 private key failed: %w", err)
	}
	return newSimpleWallet(privateKey)
}

func newSimpleWallet(privateKey *ecdsa.PrivateKey) (*SimpleWallet, error) {
	address, err := utils.NewKeyHashAddress(KeyID(ethcrypto.CompressPubkey(&privateKey.PublicKey)))
	if err != nil {
		return nil, fmt.Errorf("derive address: %w", err)
	}
	return &SimpleWallet{
		privateKey: privateKey,
		address:    address,
		createdAt:  time.Now(),
	}, nil
}

// Address 获取钱包地址
func (w *SimpleWallet) Address() utils.Address {
	return w.address
}

// SignHash 签名哈希值，返回 r || s || v（65 字节）
func (w *SimpleWallet) SignHash(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("hash must be 32 bytes, got %d", len(hash))
	}
	sig, err := ethcrypto.Sign(hash, w.privateKey)
	if err != nil {
		return nil, fmt.Errorf("secp256k1 sign: %w", err)
	}
	return sig, nil
}

// SignMessage 签名消息
func (w *SimpleWallet) SignMessage(msg []byte) ([]byte, error) {
	hash := sha256.Sum256(msg)
	return w.SignHash(hash[:])
}

// PublicKey 获取压缩公钥
func (w *SimpleWallet) PublicKey() []byte {
	return ethcrypto.CompressPubkey(&w.privateKey.PublicKey)
}

// PrivateKey 获取私钥
func (w *SimpleWallet) PrivateKey() *ecdsa.PrivateKey {
	return w.privateKey
}

// KeyID 计算 HASH160(compressed_pubkey)，即 20 字节公钥哈希
func KeyID(compressedPubKey []byte) []byte {
	sha := sha256.Sum256(compressedPubKey)
	r := ripemd160.New()
	_, _ = r.Write(sha[:])
	return r.Sum(nil)
}

// hexRemovePrefix 移除十六进制字符串的0x前缀
func hexRemovePrefix(hexStr string) string {
	if len(hexStr) >= 2 && hexStr[:2] == "0x" {
		return hexStr[2:]
	}
	return hexStr
}
