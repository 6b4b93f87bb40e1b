package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/ambertime/amberchain/client"
	"github.com/ambertime/amberchain/internal/jsonrpc"
	"github.com/ambertime/amberchain/types"
)

// maxRequestBody 单个 HTTP 请求体上限
const maxRequestBody = 1 << 20

// HTTPServer JSON-RPC over HTTP / WebSocket
type HTTPServer struct {
	handler  *Handler
	logger   client.Logger
	upgrader websocket.Upgrader
	server   *http.Server
}

// NewHTTPServer 创建 HTTP 服务端
func NewHTTPServer(addr string, handler *Handler, logger client.Logger) *HTTPServer {
	s := &HTTPServer{
		handler: handler,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Router 路由：POST / 为 JSON-RPC，GET /ws 为 WebSocket，GET /healthz 为健康检查
func (s *HTTPServer) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "amberperm"})
	})
	r.Post("/", s.serveHTTP)
	r.Get("/ws", s.serveWebSocket)
	return r
}

// Serve 在监听器上提供服务，直到 Shutdown
func (s *HTTPServer) Serve(l net.Listener) error {
	if s.logger != nil {
		s.logger.Info("JSON-RPC HTTP server listening", "addr", l.Addr().String())
	}
	if err := s.server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// ListenAndServe 监听配置地址
func (s *HTTPServer) ListenAndServe() error {
	l, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.server.Addr, err)
	}
	return s.Serve(l)
}

// Shutdown 优雅关闭
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) serveHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody+1))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, types.NewError(types.KindInvalidParameter, "Cannot read request body"))
		return
	}
	if len(body) > maxRequestBody {
		writeProblem(w, http.StatusRequestEntityTooLarge, types.NewError(types.KindInvalidParameter, "Request body too large"))
		return
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		s.serveBatch(r.Context(), w, trimmed)
		return
	}

	req, errResp := decodeRequest(trimmed)
	if errResp != nil {
		writeJSON(w, http.StatusOK, errResp)
		return
	}
	writeJSON(w, http.StatusOK, s.handler.Handle(r.Context(), req))
}

// serveBatch JSON-RPC 批量请求按顺序执行
func (s *HTTPServer) serveBatch(ctx context.Context, w http.ResponseWriter, body []byte) {
	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil || len(raws) == 0 {
		writeJSON(w, http.StatusOK, jsonrpc.NewErrorResponse(nil, &jsonrpc.Error{
			Code: jsonrpc.CodeInvalidRequest, Message: "Invalid batch request",
		}))
		return
	}

	out := make([]*jsonrpc.Response, 0, len(raws))
	for _, raw := range raws {
		req, errResp := decodeRequest(raw)
		if errResp != nil {
			out = append(out, errResp)
			continue
		}
		out = append(out, s.handler.Handle(ctx, req))
	}
	writeJSON(w, http.StatusOK, out)
}

// serveWebSocket 单连接上的 JSON-RPC：请求并发处理，响应串行写出
func (s *HTTPServer) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("WebSocket upgrade failed", "error", err)
		}
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var (
		writeMu sync.Mutex
		wg      sync.WaitGroup
	)
	write := func(resp *jsonrpc.Response) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(resp); err != nil && s.logger != nil {
			s.logger.Debug("WebSocket write failed", "error", err)
		}
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		req, errResp := decodeRequest(data)
		if errResp != nil {
			write(errResp)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			write(s.handler.Handle(ctx, req))
		}()
	}

	cancel()
	wg.Wait()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeProblem 传输层错误以 application/problem+json 返回
func writeProblem(w http.ResponseWriter, status int, err *types.Error) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(err.ToProblemDetails())
}
