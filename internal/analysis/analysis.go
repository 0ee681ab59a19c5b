// Package analysis is the engine's top-level entry point (§4.7 client
// interface): it wires the layout analyzer, external-function table,
// constraint generator, offline optimizer, and solver into a single
// Run call over an ir.Module, and hands back enough state for a client
// to query the result or persist its statistics.
package analysis

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kahrendsen/andersgo/internal/engine"
	"github.com/kahrendsen/andersgo/internal/engine/constraints"
	"github.com/kahrendsen/andersgo/internal/engine/extern"
	"github.com/kahrendsen/andersgo/internal/engine/layout"
	"github.com/kahrendsen/andersgo/internal/engine/optimize"
	"github.com/kahrendsen/andersgo/internal/engine/solve"
	"github.com/kahrendsen/andersgo/internal/engine/worklist"
	"github.com/kahrendsen/andersgo/pkg/ir"
	"github.com/kahrendsen/andersgo/pkg/utils"
)

var tracer = otel.Tracer("github.com/kahrendsen/andersgo/internal/analysis")

// Options carries every knob spec.md's Configuration section (§6.4)
// exposes, independent of how a client chooses to load them (CLI flags,
// viper config, defaults).
type Options struct {
	FieldSensitive bool
	// OCIOnly restricts AddrOf generation to object-creation
	// instructions: `&global` and `&localVar` are dropped, leaving
	// only heap allocations as address-taken objects.
	OCIOnly bool
	NoSolve bool // generate and optimize, but skip the fixpoint (diagnostic dry run)
	CheckConsUndef bool
	// CheckGlobalNull, when true, seeds an uninitialized pointer-typed
	// global's points-to set toward NodeUnknown, the conservative
	// "may point anywhere" reading. At its default (false), an
	// uninitialized global is left with an empty points-to set, so a
	// query against it honestly reports "points to nothing" rather
	// than a manufactured escape.
	CheckGlobalNull bool

	// FactorLSMinSz gates the offline FactorLoadStore pass: a node's
	// LOAD/STORE edges are only deduplicated once it carries at least
	// this many. Values <= 1 disable the pass. Mirrors
	// pkg/config.EngineConfig.FactorLSMinSz.
	FactorLSMinSz int

	SolveRAMLimitMB int
	SolveTimeLimitS int

	WLOrder   string
	DualWL    bool
	LCDSize   int
	LCDPeriod int

	ExternOverrides map[string]extern.EffectTag
}

func (o Options) wlOrder() worklist.Order {
	switch o.WLOrder {
	case "fifo":
		return worklist.OrderFIFO
	case "lifo":
		return worklist.OrderLIFO
	case "id":
		return worklist.OrderID
	default:
		return worklist.OrderPrio
	}
}

// Run is the complete result of analyzing one module: the arena
// (queryable via pkg/ptsquery), the generator's bookkeeping, and the
// solver's termination statistics.
type Run struct {
	Module      *ir.Module
	Arena       *engine.Arena
	Gen         *constraints.Result
	Stats       solve.Stats
	GenWarnings []string
	// Timing breaks the run down into its generate/optimize/solve
	// phases, independent of the OpenTelemetry spans RunContext also
	// emits — a caller without a configured exporter still gets a
	// human-readable phase breakdown out of FormatRun/Summary.
	Timing *utils.Timer
}

// Engine runs the pointer analysis over IR modules according to a fixed
// set of options. It holds no per-run state, so one Engine can run many
// modules (including concurrently, each against its own arena).
type Engine struct {
	opt     Options
	externs *extern.Table
}

// New creates an Engine with the given options, seeding the external
// function table with the built-in defaults plus any client overrides.
func New(opt Options) *Engine {
	externs := extern.NewDefaultTable()
	for name, tag := range opt.ExternOverrides {
		externs.Register(name, tag)
	}
	return &Engine{opt: opt, externs: externs}
}

// Run analyzes mod to a fixpoint (or until a configured resource limit
// aborts it) and returns the full result. It is equivalent to
// RunContext(context.Background(), mod) for callers with no tracing
// context of their own.
func (e *Engine) Run(mod *ir.Module) *Run {
	return e.RunContext(context.Background(), mod)
}

// RunContext is Run with an explicit context, used to parent the
// generate/optimize/solve spans under a caller's existing trace (e.g.
// an RPC handler's request span).
func (e *Engine) RunContext(ctx context.Context, mod *ir.Module) *Run {
	ctx, runSpan := tracer.Start(ctx, "analysis.Run", trace.WithAttributes(
		attribute.String("module", mod.Name),
	))
	defer runSpan.End()

	timer := utils.NewTimer(mod.Name)

	la := layout.NewAnalyzer(!e.opt.FieldSensitive)
	gen := constraints.New(la, e.externs, e.opt.CheckConsUndef, e.opt.OCIOnly, e.opt.CheckGlobalNull)

	_, genSpan := tracer.Start(ctx, "analysis.generate")
	genPhase := timer.Start("generate")
	genResult := gen.Generate(mod)
	genPhase.Stop()
	genSpan.SetAttributes(
		attribute.Int("constraints", len(genResult.Constraints)),
		attribute.Int("nodes", genResult.Arena.Len()),
	)
	genSpan.End()

	_, optSpan := tracer.Start(ctx, "analysis.optimize")
	optPhase := timer.Start("optimize")
	remaining, optResult := optimize.Run(genResult.Arena, genResult.Constraints, e.opt.FactorLSMinSz)
	optPhase.Stop()
	genResult.Constraints = remaining
	optSpan.SetAttributes(
		attribute.Int("seeded_addrof", optResult.SeededAddrOf),
		attribute.Int("cycles_collapsed", optResult.CyclesCollapsed),
		attribute.Int("nodes_merged", optResult.NodesMerged),
		attribute.Int("ls_factored", optResult.LSFactored),
		attribute.Int("constraints_remaining", len(remaining)),
	)
	optSpan.End()

	run := &Run{Module: mod, Arena: genResult.Arena, Gen: genResult, GenWarnings: genResult.Diagnostics, Timing: timer}

	if e.opt.NoSolve {
		run.Stats = solve.Stats{Termination: solve.Converged}
		return run
	}

	solveOpt := solve.Options{
		WLOrder:    e.opt.wlOrder(),
		DualWL:     e.opt.DualWL,
		RAMLimitMB: e.opt.SolveRAMLimitMB,
		LCDSize:    e.opt.LCDSize,
		LCDPeriod:  e.opt.LCDPeriod,
	}
	if e.opt.SolveTimeLimitS > 0 {
		solveOpt.TimeLimit = time.Duration(e.opt.SolveTimeLimitS) * time.Second
	}

	_, solveSpan := tracer.Start(ctx, "analysis.solve")
	solvePhase := timer.Start("solve")
	run.Stats = solve.Run(genResult, solveOpt)
	solvePhase.Stop()
	solveSpan.SetAttributes(
		attribute.String("termination", string(run.Stats.Termination)),
		attribute.Int("nodes_processed", run.Stats.NodesProcessed),
		attribute.Int("lcd_merges", run.Stats.LCDMerges),
	)
	solveSpan.End()

	return run
}
