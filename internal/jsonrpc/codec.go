package jsonrpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// gRPC 承载 JSON-RPC 报文时使用的服务与方法名
const (
	GRPCServiceName = "amberchain.gateway.v1.JSONRPC"
	GRPCCallMethod  = "/" + GRPCServiceName + "/Call"
)

// CodecName gRPC content-subtype
const CodecName = "json"

// Codec 以 JSON 编解码 gRPC 消息，网关无需生成 protobuf 代码
type Codec struct{}

func (Codec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (Codec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (Codec) Name() string {
	return CodecName
}

func init() {
	encoding.RegisterCodec(Codec{})
}
