package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/ambertime/amberchain/internal/jsonrpc"
)

// grpcClient gRPC 客户端实现
//
// JSON-RPC 报文通过单一 unary 方法承载，编解码使用 JSON codec，
// 服务端见 rpc 包中的 gRPC 服务注册。
type grpcClient struct {
	conn     *grpc.ClientConn
	endpoint string
	nextID   atomic.Uint64
	logger   Logger
	debug    bool
}

// NewGRPCClient 创建 gRPC 客户端
func NewGRPCClient(config *Config) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	endpoint := strings.TrimPrefix(strings.TrimPrefix(config.Endpoint, "http://"), "https://")

	timeout := time.Duration(config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	creds := insecure.NewCredentials()
	tlsCfg, err := buildTLSConfig(config.TLS)
	if err != nil {
		return nil, err
	}
	if tlsCfg != nil {
		creds = credentials.NewTLS(tlsCfg)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	conn, err := grpc.DialContext(ctx, endpoint,
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(jsonrpc.CodecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("dial gRPC: %w", err)
	}

	return &grpcClient{
		conn:     conn,
		endpoint: endpoint,
		logger:   config.Logger,
		debug:    config.Debug,
	}, nil
}

// Call 调用 JSON-RPC 方法（通过 gRPC）
func (c *grpcClient) Call(ctx context.Context, method string, params interface{}) (interface{}, error) {
	req, err := jsonrpc.NewRequest(c.nextID.Add(1), method, params)
	if err != nil {
		return nil, err
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("gRPC JSON-RPC request", "method", method, "params", string(req.Params))
	}

	var resp jsonrpc.Response
	if err := c.conn.Invoke(ctx, jsonrpc.GRPCCallMethod, req, &resp); err != nil {
		return nil, NewNetworkError(fmt.Errorf("invoke %s: %w", method, err))
	}
	if resp.Error != nil {
		return nil, decodeRPCError(resp.Error)
	}

	var result interface{}
	if len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, &result); err != nil {
			return nil, NewInvalidResponseError(fmt.Sprintf("unmarshal result: %v", err))
		}
	}
	return result, nil
}

// SendRawTransaction 发送已签名的原始交易
func (c *grpcClient) SendRawTransaction(ctx context.Context, signedTxHex string) (*SendTxResult, error) {
	return sendRawTransaction(ctx, c, signedTxHex)
}

// Close 关闭连接
func (c *grpcClient) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
