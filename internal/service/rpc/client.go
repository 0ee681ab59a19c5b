package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// Client is a thin wrapper over a *grpc.ClientConn for the
// PointerAnalysis service, mirroring the calls a generated stub would
// expose.
type Client struct {
	cc *grpc.ClientConn
}

// NewClient wraps an established connection. Dial cc with
// grpc.WithDefaultCallOptions(grpc.ForceCodec(gobCodec{})) so requests
// and replies use the same wire codec as the server.
func NewClient(cc *grpc.ClientConn) *Client {
	return &Client{cc: cc}
}

func (c *Client) Analyze(ctx context.Context, req *AnalyzeRequest, opts ...grpc.CallOption) (*AnalyzeReply, error) {
	reply := new(AnalyzeReply)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/Analyze", req, reply, opts...); err != nil {
		return nil, err
	}
	return reply, nil
}

func (c *Client) PointsTo(ctx context.Context, req *PointsToRequest, opts ...grpc.CallOption) (*PointsToReply, error) {
	reply := new(PointsToReply)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/PointsTo", req, reply, opts...); err != nil {
		return nil, err
	}
	return reply, nil
}
