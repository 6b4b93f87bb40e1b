package rpc

import (
	"context"
	"fmt"
	"net"

	"google.golang.org/grpc"

	"github.com/ambertime/amberchain/client"
	"github.com/ambertime/amberchain/internal/jsonrpc"
)

// jsonRPCServer gRPC 服务实现接口（ServiceDesc.HandlerType 使用）
type jsonRPCServer interface {
	Call(ctx context.Context, req *jsonrpc.Request) (*jsonrpc.Response, error)
}

type grpcService struct {
	handler *Handler
}

func (g *grpcService) Call(ctx context.Context, req *jsonrpc.Request) (*jsonrpc.Response, error) {
	if req.Method == "" {
		return jsonrpc.NewErrorResponse(req.ID, &jsonrpc.Error{
			Code: jsonrpc.CodeInvalidRequest, Message: "Missing method",
		}), nil
	}
	return g.handler.Handle(ctx, req), nil
}

func callHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(jsonrpc.Request)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(jsonRPCServer).Call(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: jsonrpc.GRPCCallMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(jsonRPCServer).Call(ctx, req.(*jsonrpc.Request))
	}
	return interceptor(ctx, in, info, handler)
}

// serviceDesc JSON-RPC over gRPC 的服务描述（手写，无需 protoc）
var serviceDesc = grpc.ServiceDesc{
	ServiceName: jsonrpc.GRPCServiceName,
	HandlerType: (*jsonRPCServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Call", Handler: callHandler},
	},
	Streams: []grpc.StreamDesc{},
}

// GRPCServer JSON-RPC over gRPC
type GRPCServer struct {
	server *grpc.Server
	logger client.Logger
}

// NewGRPCServer 创建 gRPC 服务端
func NewGRPCServer(handler *Handler, logger client.Logger, opts ...grpc.ServerOption) *GRPCServer {
	s := grpc.NewServer(opts...)
	s.RegisterService(&serviceDesc, &grpcService{handler: handler})
	return &GRPCServer{server: s, logger: logger}
}

// Serve 在监听器上提供服务，直到 Stop
func (s *GRPCServer) Serve(l net.Listener) error {
	if s.logger != nil {
		s.logger.Info("JSON-RPC gRPC server listening", "addr", l.Addr().String())
	}
	if err := s.server.Serve(l); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("grpc server: %w", err)
	}
	return nil
}

// Stop 优雅关闭
func (s *GRPCServer) Stop() {
	s.server.GracefulStop()
}
