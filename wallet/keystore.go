package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/pbkdf2"
)

// DefaultKDFIterations PBKDF2 默认迭代次数
const DefaultKDFIterations = 262144

// Keystore Keystore 文件结构
type Keystore struct {
	Version int    `json:"version"`
	ID      string `json:"id"`
	Address string `json:"address"`
	Crypto  Crypto `json:"crypto"`
}

// Crypto 加密信息
type Crypto struct {
	Cipher       string       `json:"cipher"`
	CipherText   string       `json:"ciphertext"`
	CipherParams CipherParams `json:"cipherparams"`
	KDF          string       `json:"kdf"`
	KDFParams    KDFParams    `json:"kdfparams"`
	MAC          string       `json:"mac"`
}

// CipherParams 加密参数
type CipherParams struct {
	IV string `json:"iv"`
}

// KDFParams PBKDF2 参数
type KDFParams struct {
	C     int    `json:"c"`
	DKLen int    `json:"dklen"`
	PRF   string `json:"prf"`
	Salt  string `json:"salt"`
}

// KeystoreManager Keystore 管理器（每个地址一个 JSON 文件）
type KeystoreManager struct {
	keystoreDir string

	// Iterations PBKDF2 迭代次数（为 0 时使用 DefaultKDFIterations）
	Iterations int
}

// NewKeystoreManager 创建 Keystore 管理器
func NewKeystoreManager(keystoreDir string) (*KeystoreManager, error) {
	if err := os.MkdirAll(keystoreDir, 0700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}
	return &KeystoreManager{keystoreDir: keystoreDir}, nil
}

// Save 加密保存钱包私钥，返回文件路径
func (km *KeystoreManager) Save(w *SimpleWallet, password string) (string, error) {
	salt := make([]byte, 32)
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}

	iterations := km.iterations()
	derived := pbkdf2.Key([]byte(password), salt, iterations, 32, sha256.New)

	privateKey := w.PrivateKey().D.FillBytes(make([]byte, 32))
	ciphertext, err := xorAESCTR(derived[:16], privateKey, iv)
	if err != nil {
		return "", fmt.Errorf("encrypt private key: %w", err)
	}

	address := w.Address().String()
	ks := &Keystore{
		Version: 1,
		ID:      uuid.NewString(),
		Address: address,
		Crypto: Crypto{
			Cipher:       "aes-128-ctr",
			CipherText:   hex.EncodeToString(ciphertext),
			CipherParams: CipherParams{IV: hex.EncodeToString(iv)},
			KDF:          "pbkdf2",
			KDFParams: KDFParams{
				C:     iterations,
				DKLen: 32,
				PRF:   "hmac-sha256",
				Salt:  hex.EncodeToString(salt),
			},
			MAC: hex.EncodeToString(computeMAC(derived[16:], ciphertext)),
		},
	}

	data, err := json.MarshalIndent(ks, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode keystore: %w", err)
	}
	keystorePath := filepath.Join(km.keystoreDir, address+".json")
	if err := os.WriteFile(keystorePath, data, 0600); err != nil {
		return "", fmt.Errorf("write keystore file: %w", err)
	}
	return keystorePath, nil
}

// Load 解密加载指定地址的钱包
func (km *KeystoreManager) Load(address string, password string) (*SimpleWallet, error) {
	return km.loadFile(filepath.Join(km.keystoreDir, address+".json"), password)
}

// LoadKeyring 加载目录中的全部 Keystore，按地址字典序组成钱包
func (km *KeystoreManager) LoadKeyring(password string) (*Keyring, error) {
	entries, err := os.ReadDir(km.keystoreDir)
	if err != nil {
		return nil, fmt.Errorf("read keystore dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	ring := NewKeyring()
	for _, name := range names {
		w, err := km.loadFile(filepath.Join(km.keystoreDir, name), password)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
		ring.Add(w)
	}
	return ring, nil
}

func (km *KeystoreManager) loadFile(path string, password string) (*SimpleWallet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keystore file: %w", err)
	}

	var ks Keystore
	if err := json.Unmarshal(data, &ks); err != nil {
		return nil, fmt.Errorf("parse keystore: %w", err)
	}
	if ks.Crypto.KDF != "pbkdf2" || ks.Crypto.KDFParams.PRF != "hmac-sha256" {
		return nil, fmt.Errorf("unsupported kdf %s/%s", ks.Crypto.KDF, ks.Crypto.KDFParams.PRF)
	}

	salt, err := hex.DecodeString(ks.Crypto.KDFParams.Salt)
	if err != nil {
		return nil, fmt.Errorf("decode salt: %w", err)
	}
	iv, err := hex.DecodeString(ks.Crypto.CipherParams.IV)
	if err != nil {
		return nil, fmt.Errorf("decode iv: %w", err)
	}
	ciphertext, err := hex.DecodeString(ks.Crypto.CipherText)
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}
	mac, err := hex.DecodeString(ks.Crypto.MAC)
	if err != nil {
		return nil, fmt.Errorf("decode mac: %w", err)
	}

	derived := pbkdf2.Key([]byte(password), salt, ks.Crypto.KDFParams.C, 32, sha256.New)
	if !hmac.Equal(computeMAC(derived[16:], ciphertext), mac) {
		return nil, fmt.Errorf("invalid password")
	}

	privateKey, err := xorAESCTR(derived[:16], ciphertext, iv)
	if err != nil {
		return nil, fmt.Errorf("decrypt private key: %w", err)
	}

	w, err := NewWalletFromPrivateKeyBytes(privateKey)
	if err != nil {
		return nil, err
	}
	if ks.Address != "" && w.Address().String() != ks.Address {
		return nil, fmt.Errorf("keystore address mismatch: file says %s, key derives %s", ks.Address, w.Address())
	}
	return w, nil
}

func (km *KeystoreManager) iterations() int {
	if km.Iterations > 0 {
		return km.Iterations
	}
	return DefaultKDFIterations
}

// xorAESCTR AES-CTR 加解密（对称）
func xorAESCTR(key, in, iv []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(in))
	cipher.NewCTR(block, iv).XORKeyStream(out, in)
	return out, nil
}

// computeMAC HMAC-SHA256(macKey, ciphertext)
func computeMAC(macKey, ciphertext []byte) []byte {
	m := hmac.New(sha256.New, macKey)
	m.Write(ciphertext)
	return m.Sum(nil)
}
