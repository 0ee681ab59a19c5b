// Package diag formats a finished analysis run for human consumption:
// solver statistics, generator warnings, and points-to query answers.
package diag

import (
	"sort"

	"github.com/kahrendsen/andersgo/internal/analysis"
	"github.com/kahrendsen/andersgo/pkg/utils"
)

// FormatRun writes a human-readable report of run to log.
func FormatRun(run *analysis.Run, log utils.Logger) {
	log.Info("=== Analysis Results ===")
	log.Info("Module:          %s", run.Module.Name)
	log.Info("Nodes:           %d", run.Arena.Len())
	log.Info("Constraints:     %d", len(run.Gen.Constraints))
	log.Info("Objects:         %d", len(run.Gen.ObjNodes))
	log.Info("Termination:     %s", run.Stats.Termination)
	log.Info("Nodes processed: %d", run.Stats.NodesProcessed)
	log.Info("LCD merges:      %d", run.Stats.LCDMerges)
	log.Info("Duration:        %s", run.Stats.Duration)
	log.Info("")

	if run.Timing != nil {
		for _, phase := range run.Timing.GetPhases() {
			log.Info("  phase %-10s %s", phase.Name, phase.Duration)
		}
		log.Info("")
	}

	if len(run.GenWarnings) > 0 {
		log.Info("=== Warnings ===")
		count := min(10, len(run.GenWarnings))
		for i := 0; i < count; i++ {
			log.Info("  - %s", run.GenWarnings[i])
		}
		if len(run.GenWarnings) > count {
			log.Info("  ... and %d more warnings", len(run.GenWarnings)-count)
		}
		log.Info("")
	}
}

// Summary returns a serializable summary of run, suitable for an API
// response or a persisted query sample.
func Summary(run *analysis.Run) map[string]interface{} {
	s := map[string]interface{}{
		"module":          run.Module.Name,
		"nodes":           run.Arena.Len(),
		"constraints":     len(run.Gen.Constraints),
		"objects":         len(run.Gen.ObjNodes),
		"termination":     string(run.Stats.Termination),
		"nodes_processed": run.Stats.NodesProcessed,
		"lcd_merges":      run.Stats.LCDMerges,
		"duration_ms":     run.Stats.Duration.Milliseconds(),
		"warnings_count":  len(run.GenWarnings),
	}
	if run.Timing != nil {
		s["timing"] = run.Timing.ToMap()
	}
	return s
}

// FormatPointsTo writes a points-to query's answer for expr to log,
// sorting the labels for stable output.
func FormatPointsTo(expr string, labels []string, log utils.Logger) {
	sorted := append([]string(nil), labels...)
	sort.Strings(sorted)

	log.Info("points-to(%s) = {%s}", expr, joinLabels(sorted))
}

// FormatAlias writes a may-alias query's answer to log.
func FormatAlias(a, b string, alias bool, log utils.Logger) {
	log.Info("may-alias(%s, %s) = %t", a, b, alias)
}

func joinLabels(labels []string) string {
	out := ""
	for i, l := range labels {
		if i > 0 {
			out += ", "
		}
		out += l
	}
	return out
}
