// Package config 权限网关 amberperm 的 YAML 配置
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ambertime/amberchain/client"
	"github.com/ambertime/amberchain/internal/logging"
	"github.com/ambertime/amberchain/services"
)

// DefaultPasswordEnv 默认的钱包口令环境变量
const DefaultPasswordEnv = "AMBERPERM_WALLET_PASSWORD"

// Config 网关配置
type Config struct {
	// Node 上游节点（交易广播）
	Node client.Config `yaml:"node"`

	Listen  ListenConfig          `yaml:"listen"`
	Store   StoreConfig           `yaml:"store"`
	Wallet  WalletConfig          `yaml:"wallet"`
	Log     LogConfig             `yaml:"log"`
	Streams services.StreamConfig `yaml:"streams"`
}

// ListenConfig 监听地址；为空表示不启用该协议
type ListenConfig struct {
	HTTP string `yaml:"http"`
	GRPC string `yaml:"grpc"`
}

// StoreConfig 权限存储
type StoreConfig struct {
	// Path SQLite 文件路径；":memory:" 为内存库
	Path string `yaml:"path"`
	// Seed 启动时导入的种子文件（可选）
	Seed string `yaml:"seed"`
}

// WalletConfig 节点钱包
type WalletConfig struct {
	KeystoreDir string `yaml:"keystore_dir"`
	// PasswordEnv 读取 keystore 口令的环境变量名
	PasswordEnv string `yaml:"password_env"`
	// WatchOnly 仅观察的地址（参与列表，不参与授权地址扫描）
	WatchOnly []string `yaml:"watch_only"`
}

// LogConfig 日志
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default 默认配置
func Default() *Config {
	return &Config{
		Node: *client.DefaultConfig(),
		Listen: ListenConfig{
			HTTP: "127.0.0.1:8571",
		},
		Store: StoreConfig{
			Path: filepath.Join("data", "permissions.db"),
		},
		Wallet: WalletConfig{
			KeystoreDir: "keystore",
			PasswordEnv: DefaultPasswordEnv,
		},
		Log: LogConfig{
			Level:  "info",
			Format: string(logging.FormatText),
		},
		Streams: services.DefaultStreamConfig(),
	}
}

// Load 读取配置文件；path 为空时返回默认配置
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode 在默认配置之上解析 YAML；未知字段视为错误
func Decode(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 检查配置
func (c *Config) Validate() error {
	var errs []error
	if c.Listen.HTTP == "" && c.Listen.GRPC == "" {
		errs = append(errs, errors.New("listen: at least one of http, grpc is required"))
	}
	if c.Store.Path == "" {
		errs = append(errs, errors.New("store.path is required"))
	}
	if c.Wallet.KeystoreDir == "" {
		errs = append(errs, errors.New("wallet.keystore_dir is required"))
	}
	if c.Node.Endpoint == "" {
		errs = append(errs, errors.New("node.endpoint is required"))
	}
	switch c.Node.Protocol {
	case client.ProtocolHTTP, client.ProtocolGRPC, client.ProtocolWebSocket:
	default:
		errs = append(errs, fmt.Errorf("node.protocol %q is not supported", c.Node.Protocol))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		errs = append(errs, err)
	}
	if c.Streams.AuthorityID == "" {
		errs = append(errs, errors.New("streams.authority_id is required"))
	}
	return errors.Join(errs...)
}

// WalletPassword 从环境变量读取 keystore 口令
func (c *Config) WalletPassword() string {
	env := c.Wallet.PasswordEnv
	if env == "" {
		env = DefaultPasswordEnv
	}
	return os.Getenv(env)
}

// NewLogger 按配置创建日志器
func (c *Config) NewLogger(w io.Writer) (*logging.Logger, error) {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(c.Log.Format)
	if err != nil {
		return nil, err
	}
	return logging.New(w, level, format), nil
}
