package peekrpc

import (
	"bytes"
	"encoding/gob"

	"google.golang.org/grpc/encoding"
)

// codecName is the gRPC content-subtype this package registers its codec
// under. A client dials with grpc.CallContentSubtype(codecName) (wrapped by
// NewGRPCClient) and the server picks it up automatically once the package
// is imported, since encoding.RegisterCodec runs at init time.
const codecName = "flowbin"

// gobCodec implements google.golang.org/grpc/encoding.Codec on top of
// encoding/gob. The real system would generate a protobuf codec from a
// .proto file; lacking a protoc pipeline here, gob gives the same "opaque
// struct in, opaque struct out" shape grpc needs without hand-authoring
// generated descriptor bytes that could not be verified.
type gobCodec struct{}

func (gobCodec) Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gobCodec) Unmarshal(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func (gobCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(gobCodec{})
	gob.Register(&PeekRequest{})
	gob.Register(&PeekReply{})
}
