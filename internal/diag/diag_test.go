package diag

import (
	"bytes"
	"strings"
	"testing"

	"github.com/kahrendsen/andersgo/internal/analysis"
	"github.com/kahrendsen/andersgo/pkg/ir/testir"
	"github.com/kahrendsen/andersgo/pkg/utils"
)

func TestFormatRun(t *testing.T) {
	mod := testir.SimpleAssignment()
	eng := analysis.New(analysis.Options{FieldSensitive: true, WLOrder: "prio"})
	run := eng.Run(mod)

	var buf bytes.Buffer
	log := utils.NewDefaultLogger(utils.LevelInfo, &buf)

	FormatRun(run, log)

	out := buf.String()
	if !strings.Contains(out, "Analysis Results") {
		t.Fatalf("expected report header, got %q", out)
	}
	if !strings.Contains(out, "converged") {
		t.Fatalf("expected termination reason in output, got %q", out)
	}
}

func TestSummary(t *testing.T) {
	mod := testir.SimpleAssignment()
	eng := analysis.New(analysis.Options{FieldSensitive: true, WLOrder: "prio"})
	run := eng.Run(mod)

	s := Summary(run)
	if s["module"] != mod.Name {
		t.Fatalf("expected module name %q, got %v", mod.Name, s["module"])
	}
	if s["nodes"].(int) <= 0 {
		t.Fatalf("expected positive node count, got %v", s["nodes"])
	}
	if s["termination"] != "converged" {
		t.Fatalf("expected converged termination, got %v", s["termination"])
	}
}

func TestFormatPointsTo(t *testing.T) {
	var buf bytes.Buffer
	log := utils.NewDefaultLogger(utils.LevelInfo, &buf)

	FormatPointsTo("p", []string{"y", "x"}, log)

	out := buf.String()
	if !strings.Contains(out, "points-to(p) = {x, y}") {
		t.Fatalf("expected sorted labels, got %q", out)
	}
}

func TestFormatAlias(t *testing.T) {
	var buf bytes.Buffer
	log := utils.NewDefaultLogger(utils.LevelInfo, &buf)

	FormatAlias("p", "q", true, log)

	out := buf.String()
	if !strings.Contains(out, "may-alias(p, q) = true") {
		t.Fatalf("expected alias result, got %q", out)
	}
}
