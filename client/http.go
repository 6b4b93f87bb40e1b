package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ambertime/amberchain/internal/jsonrpc"
	"github.com/ambertime/amberchain/types"
)

// httpClient HTTP客户端实现
type httpClient struct {
	endpoint string
	client   *http.Client
	logger   Logger
	debug    bool
	nextID   atomic.Uint64
	retry    *RetryConfig
}

// NewHTTPClient 创建HTTP客户端
func NewHTTPClient(config *Config) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	tlsCfg, err := buildTLSConfig(config.TLS)
	if err != nil {
		return nil, err
	}

	httpCli := &http.Client{
		Timeout: time.Duration(config.Timeout) * time.Second,
	}
	if tlsCfg != nil {
		httpCli.Transport = &http.Transport{TLSClientConfig: tlsCfg}
	}

	retryConfig := config.Retry
	if retryConfig == nil {
		retryConfig = DefaultRetryConfig()
	}
	if retryConfig.OnRetry == nil && config.Logger != nil {
		logger := config.Logger
		retryConfig.OnRetry = func(attempt int, err error) {
			logger.Warn("Retrying request", "attempt", attempt, "error", err)
		}
	}

	return &httpClient{
		endpoint: config.Endpoint,
		client:   httpCli,
		logger:   config.Logger,
		debug:    config.Debug,
		retry:    retryConfig,
	}, nil
}

// Call 调用JSON-RPC方法
func (c *httpClient) Call(ctx context.Context, method string, params interface{}) (interface{}, error) {
	req, err := jsonrpc.NewRequest(c.nextID.Add(1), method, params)
	if err != nil {
		return nil, err
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request failed: %w", err)
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("JSON-RPC request", "method", method, "body", string(reqBody))
	}

	// 每次重试都重新创建请求（Body 只能读取一次）
	var resp *http.Response
	err = withRetry(ctx, func() error {
		httpReq, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
		if reqErr != nil {
			return fmt.Errorf("create request failed: %w", reqErr)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Accept", "application/json")

		httpResp, reqErr := c.client.Do(httpReq)
		if reqErr != nil {
			return reqErr
		}

		if isRetryableHTTPError(httpResp.StatusCode) {
			httpResp.Body.Close()
			return fmt.Errorf("HTTP error: %d", httpResp.StatusCode)
		}

		resp = httpResp
		return nil
	}, c.retry)
	if err != nil {
		return nil, NewNetworkError(fmt.Errorf("send request failed: %w", err))
	}
	defer func() {
		if err := resp.Body.Close(); err != nil && c.logger != nil {
			c.logger.Warn("Failed to close response body", "error", err)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response failed: %w", err)
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("JSON-RPC response", "status", resp.StatusCode, "body", string(respBody))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, httpStatusError(resp, respBody)
	}

	var jsonResp jsonrpc.Response
	if err := json.Unmarshal(respBody, &jsonResp); err != nil {
		return nil, NewInvalidResponseError(fmt.Sprintf("unmarshal response failed: %v", err))
	}
	if jsonResp.Error != nil {
		return nil, decodeRPCError(jsonResp.Error)
	}

	var result interface{}
	if len(jsonResp.Result) > 0 {
		if err := json.Unmarshal(jsonResp.Result, &result); err != nil {
			return nil, NewInvalidResponseError(fmt.Sprintf("unmarshal result failed: %v", err))
		}
	}
	return result, nil
}

// SendRawTransaction 发送已签名的原始交易
func (c *httpClient) SendRawTransaction(ctx context.Context, signedTxHex string) (*SendTxResult, error) {
	return sendRawTransaction(ctx, c, signedTxHex)
}

// Close 关闭连接（HTTP客户端只需释放空闲连接）
func (c *httpClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// httpStatusError 非 200 响应：application/problem+json 还原为 *types.Error
func httpStatusError(resp *http.Response, body []byte) error {
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == "application/problem+json" {
		var pd types.ProblemDetails
		if err := json.Unmarshal(body, &pd); err == nil && pd.Kind != "" {
			return types.NewErrorFromProblemDetails(resp.StatusCode, &pd)
		}
	}
	return fmt.Errorf("HTTP error: %d, body: %s", resp.StatusCode, string(body))
}
