package rpc

import (
	"bytes"
	"encoding/gob"
)

// gobCodec implements grpc/encoding.Codec over encoding/gob so the
// service can be exercised without a .proto/protoc toolchain: every
// message below is a plain Go struct, gob-encoded directly onto the
// wire instead of through generated protobuf marshaling.
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

func (gobCodec) Name() string { return "gob" }

// Codec returns the wire codec used to (de)serialize every message in
// this package, for a caller wiring up a *grpc.Server or *grpc.ClientConn
// with grpc.ForceServerCodec / grpc.ForceCodec.
func Codec() gobCodec {
	return gobCodec{}
}
