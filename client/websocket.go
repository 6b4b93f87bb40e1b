package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ambertime/amberchain/internal/jsonrpc"
)

// websocketClient WebSocket 客户端实现
//
// 单连接多路复用：请求按 ID 登记响应通道，由 readLoop 分发。
type websocketClient struct {
	endpoint string
	conn     *websocket.Conn
	writeMu  sync.Mutex
	closed   int32
	nextID   uint64
	timeout  time.Duration
	logger   Logger
	requests map[uint64]chan *jsonrpc.Response
	muReq    sync.Mutex
}

// NewWebSocketClient 创建 WebSocket 客户端
func NewWebSocketClient(config *Config) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	endpoint := websocketEndpoint(config.Endpoint)

	tlsCfg, err := buildTLSConfig(config.TLS)
	if err != nil {
		return nil, err
	}
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		TLSClientConfig:  tlsCfg,
	}

	conn, _, err := dialer.Dial(endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial websocket: %w", err)
	}

	timeout := time.Duration(config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	client := &websocketClient{
		endpoint: endpoint,
		conn:     conn,
		timeout:  timeout,
		logger:   config.Logger,
		requests: make(map[uint64]chan *jsonrpc.Response),
	}

	go client.readLoop()

	return client, nil
}

// websocketEndpoint 将 http(s):// 转换为 ws(s)://，无协议前缀时补 ws://
func websocketEndpoint(endpoint string) string {
	switch {
	case strings.HasPrefix(endpoint, "http://"):
		return "ws://" + strings.TrimPrefix(endpoint, "http://")
	case strings.HasPrefix(endpoint, "https://"):
		return "wss://" + strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "ws://"), strings.HasPrefix(endpoint, "wss://"):
		return endpoint
	default:
		return "ws://" + endpoint
	}
}

// readLoop 消息读取循环
func (c *websocketClient) readLoop() {
	for {
		var resp jsonrpc.Response
		if err := c.conn.ReadJSON(&resp); err != nil {
			atomic.StoreInt32(&c.closed, 1)
			if c.logger != nil {
				c.logger.Debug("websocket read loop stopped", "error", err)
			}
			c.failPending(err)
			return
		}

		id, ok := resp.IDUint64()
		if !ok {
			continue
		}

		c.muReq.Lock()
		ch, exists := c.requests[id]
		if exists {
			delete(c.requests, id)
		}
		c.muReq.Unlock()

		if exists {
			ch <- &resp
		}
	}
}

// failPending 连接断开时向所有等待中的请求返回错误
func (c *websocketClient) failPending(err error) {
	c.muReq.Lock()
	defer c.muReq.Unlock()

	for id, ch := range c.requests {
		ch <- &jsonrpc.Response{
			Error: &jsonrpc.Error{
				Code:    jsonrpc.CodeInternalError,
				Message: fmt.Sprintf("websocket read error: %v", err),
			},
		}
		delete(c.requests, id)
	}
}

// Call 调用 JSON-RPC 方法
func (c *websocketClient) Call(ctx context.Context, method string, params interface{}) (interface{}, error) {
	if atomic.LoadInt32(&c.closed) == 1 {
		return nil, &Error{Code: ErrCodeClosed, Message: "websocket client is closed"}
	}

	reqID := atomic.AddUint64(&c.nextID, 1)
	req, err := jsonrpc.NewRequest(reqID, method, params)
	if err != nil {
		return nil, err
	}

	respCh := make(chan *jsonrpc.Response, 1)
	c.muReq.Lock()
	c.requests[reqID] = respCh
	c.muReq.Unlock()

	c.writeMu.Lock()
	err = c.conn.WriteJSON(req)
	c.writeMu.Unlock()
	if err != nil {
		c.forget(reqID)
		return nil, NewNetworkError(fmt.Errorf("write request: %w", err))
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case resp := <-respCh:
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

	case <-ctx.Done():
		c.forget(reqID)
		return nil, ctx.Err()

	case <-timer.C:
		c.forget(reqID)
		return nil, NewTimeoutError()
	}
}

func (c *websocketClient) forget(id uint64) {
	c.muReq.Lock()
	delete(c.requests, id)
	c.muReq.Unlock()
}

// SendRawTransaction 发送已签名的原始交易
func (c *websocketClient) SendRawTransaction(ctx context.Context, signedTxHex string) (*SendTxResult, error) {
	return sendRawTransaction(ctx, c, signedTxHex)
}

// Close 关闭连接
func (c *websocketClient) Close() error {
	if atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		c.writeMu.Lock()
		_ = c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		return c.conn.Close()
	}
	return nil
}
