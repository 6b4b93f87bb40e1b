package client

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// Config 客户端配置
type Config struct {
	// Endpoint 节点或网关端点地址
	Endpoint string `yaml:"endpoint"`

	// Protocol 协议类型
	Protocol Protocol `yaml:"protocol"`

	// Timeout 超时时间（秒）
	Timeout int `yaml:"timeout"`

	// TLS 配置
	TLS *TLSConfig `yaml:"tls,omitempty"`

	// Retry 重试配置（为空时使用默认配置，仅 HTTP 生效）
	Retry *RetryConfig `yaml:"retry,omitempty"`

	// 调试模式
	Debug bool `yaml:"debug"`

	// 日志器（可选）
	Logger Logger `yaml:"-"`
}

// Protocol 协议类型
type Protocol string

const (
	ProtocolHTTP      Protocol = "http"
	ProtocolGRPC      Protocol = "grpc"
	ProtocolWebSocket Protocol = "websocket"
)

// TLSConfig TLS 配置
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	CAFile   string `yaml:"ca_file"`
	Insecure bool   `yaml:"insecure"` // 跳过 TLS 验证（仅用于开发）
}

// Logger 日志接口
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Endpoint: "http://localhost:8570",
		Protocol: ProtocolHTTP,
		Timeout:  30,
		Debug:    false,
	}
}

// buildTLSConfig 根据配置构建 crypto/tls 配置；未配置 TLS 时返回 nil
func buildTLSConfig(cfg *TLSConfig) (*tls.Config, error) {
	if cfg == nil {
		return nil, nil
	}

	tlsCfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.Insecure, //nolint:gosec // 仅用于开发环境
	}

	if cfg.CAFile != "" {
		pem, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", cfg.CAFile)
		}
		tlsCfg.RootCAs = pool
	}

	if cfg.CertFile != "" || cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}

	return tlsCfg, nil
}
