package rpc

import (
	"context"
	"encoding/json"
	"testing"

	"google.golang.org/grpc"

	"github.com/kahrendsen/andersgo/pkg/utils"
)

func decoderFor(t *testing.T, v interface{}) func(interface{}) error {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	return func(out interface{}) error {
		return json.Unmarshal(raw, out)
	}
}

func TestAnalyzeHandler_NoInterceptor(t *testing.T) {
	s := NewServer(testEngine(), utils.NewDefaultLogger(utils.LevelInfo, nil))
	dec := decoderFor(t, &AnalyzeRequest{ModuleJSON: []byte(simpleAssignmentJSON)})

	out, err := analyzeHandler(s, context.Background(), dec, nil)
	if err != nil {
		t.Fatalf("analyzeHandler failed: %v", err)
	}
	reply, ok := out.(*AnalyzeReply)
	if !ok || reply.ModuleName != "simple" {
		t.Fatalf("unexpected reply: %+v", out)
	}
}

func TestAnalyzeHandler_DecodeError(t *testing.T) {
	s := NewServer(testEngine(), utils.NewDefaultLogger(utils.LevelInfo, nil))
	dec := func(interface{}) error { return context.DeadlineExceeded }

	if _, err := analyzeHandler(s, context.Background(), dec, nil); err == nil {
		t.Fatalf("expected a decode error to propagate")
	}
}

func TestAnalyzeHandler_WithInterceptor(t *testing.T) {
	s := NewServer(testEngine(), utils.NewDefaultLogger(utils.LevelInfo, nil))
	dec := decoderFor(t, &AnalyzeRequest{ModuleJSON: []byte(simpleAssignmentJSON)})

	var sawMethod string
	interceptor := func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		sawMethod = info.FullMethod
		return handler(ctx, req)
	}

	out, err := analyzeHandler(s, context.Background(), dec, interceptor)
	if err != nil {
		t.Fatalf("analyzeHandler with interceptor failed: %v", err)
	}
	if sawMethod != ServiceName+"/Analyze" {
		t.Fatalf("interceptor saw FullMethod %q, want %q", sawMethod, ServiceName+"/Analyze")
	}
	if reply, ok := out.(*AnalyzeReply); !ok || reply.ModuleName != "simple" {
		t.Fatalf("unexpected reply: %+v", out)
	}
}

func TestPointsToHandler_WithInterceptor(t *testing.T) {
	s := NewServer(testEngine(), utils.NewDefaultLogger(utils.LevelInfo, nil))

	analyzeReply, err := s.Analyze(context.Background(), &AnalyzeRequest{ModuleJSON: []byte(simpleAssignmentJSON)})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	dec := decoderFor(t, &PointsToRequest{RunID: analyzeReply.RunID, ValueRef: "p"})

	called := false
	interceptor := func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		called = true
		if info.FullMethod != ServiceName+"/PointsTo" {
			t.Errorf("unexpected FullMethod %q", info.FullMethod)
		}
		return handler(ctx, req)
	}

	out, err := pointsToHandler(s, context.Background(), dec, interceptor)
	if err != nil {
		t.Fatalf("pointsToHandler with interceptor failed: %v", err)
	}
	if !called {
		t.Fatalf("expected the interceptor to run")
	}
	reply, ok := out.(*PointsToReply)
	if !ok || !reply.Found {
		t.Fatalf("unexpected reply: %+v", out)
	}
}

func TestPointsToHandler_DecodeError(t *testing.T) {
	s := NewServer(testEngine(), utils.NewDefaultLogger(utils.LevelInfo, nil))
	dec := func(interface{}) error { return context.DeadlineExceeded }

	if _, err := pointsToHandler(s, context.Background(), dec, nil); err == nil {
		t.Fatalf("expected a decode error to propagate")
	}
}
