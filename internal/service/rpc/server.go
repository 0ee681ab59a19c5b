// Package rpc exposes the pointer-analysis engine over gRPC so a
// long-lived andersgo process can serve remote clients — the wire
// contract for spec.md's "downstream clients (alias analysis,
// call-graph refinement, optimization)". The service is registered
// with a hand-written grpc.ServiceDesc and a gob-based wire codec
// (see codec.go) since no .proto/protoc toolchain is available here;
// google.golang.org/grpc itself is exercised exactly as it would be
// with generated stubs, just without the generation step.
package rpc

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kahrendsen/andersgo/internal/analysis"
	"github.com/kahrendsen/andersgo/pkg/ir/irjson"
	"github.com/kahrendsen/andersgo/pkg/ptsquery"
	"github.com/kahrendsen/andersgo/pkg/utils"
)

// Server implements the PointerAnalysis service: analyze a module, then
// answer points-to queries against the resulting run by run ID.
type Server struct {
	engine *analysis.Engine
	logger utils.Logger
	clock  utils.Clock

	mu     sync.RWMutex
	runs   map[uint64]*analysis.Run
	nextID atomic.Uint64
}

// NewServer creates a Server that analyzes every submitted module with
// engine and keeps completed runs in memory for later PointsTo queries.
func NewServer(engine *analysis.Engine, logger utils.Logger) *Server {
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, nil)
	}
	return &Server{
		engine: engine,
		logger: logger,
		clock:  utils.NewRealClock(),
		runs:   make(map[uint64]*analysis.Run),
	}
}

// WithClock overrides the server's time source, for tests that need a
// deterministic DurationMS in an AnalyzeReply.
func (s *Server) WithClock(c utils.Clock) *Server {
	s.clock = c
	return s
}

// Analyze decodes req's module, runs the engine over it, and stores the
// result under a fresh run ID for later queries.
func (s *Server) Analyze(ctx context.Context, req *AnalyzeRequest) (*AnalyzeReply, error) {
	mod, err := irjson.Decode(bytes.NewReader(req.ModuleJSON))
	if err != nil {
		return nil, fmt.Errorf("decode module: %w", err)
	}

	start := s.clock.Now()
	run := s.engine.RunContext(ctx, mod)
	elapsed := s.clock.Since(start)

	id := s.nextID.Add(1)
	s.mu.Lock()
	s.runs[id] = run
	s.mu.Unlock()

	s.logger.Info("rpc: analyzed module %q as run %d (%s, %d nodes, %s)",
		mod.Name, id, run.Stats.Termination, run.Arena.Len(), elapsed)

	return &AnalyzeReply{
		RunID:           id,
		ModuleName:      mod.Name,
		Termination:     string(run.Stats.Termination),
		NodeCount:       run.Arena.Len(),
		ConstraintCount: len(run.Gen.Constraints),
		ObjectCount:     len(run.Gen.ObjNodes),
		DurationMS:      elapsed.Milliseconds(),
	}, nil
}

// PointsTo answers a points-to query against a previously completed run.
func (s *Server) PointsTo(ctx context.Context, req *PointsToRequest) (*PointsToReply, error) {
	s.mu.RLock()
	run, ok := s.runs[req.RunID]
	s.mu.RUnlock()
	if !ok {
		return &PointsToReply{Found: false}, nil
	}

	v, ok := ptsquery.FindValue(run.Module, req.ValueRef)
	if !ok {
		return &PointsToReply{Found: false}, nil
	}

	q := ptsquery.Bind(run.Arena, run.Gen)
	labels, ok := q.PointsTo(v)
	return &PointsToReply{Found: ok, Labels: labels}, nil
}
