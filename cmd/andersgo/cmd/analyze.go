package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kahrendsen/andersgo/internal/analysis"
	"github.com/kahrendsen/andersgo/internal/diag"
	"github.com/kahrendsen/andersgo/pkg/ir/irjson"
	"github.com/kahrendsen/andersgo/pkg/ptsquery"
)

var (
	inputFile      string
	fieldSensitive bool
	ociOnly        bool
	wlOrder        string
	pointsToQuery  string
	aliasQuery     []string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the pointer analysis over an IR module",
	Long: `Analyze decodes a JSON-encoded IR module, runs the inclusion-based
pointer analysis to a fixpoint, and reports solver statistics.

With --query, it additionally answers a points-to query against the
finished run. With --alias a,b, it answers a may-alias query for the
two named values.`,
	Example: `  # Run the analysis and print solver statistics
  andersgo analyze -i ./module.json

  # Also ask what a value points to
  andersgo analyze -i ./module.json --query p

  # Ask whether two values may alias
  andersgo analyze -i ./module.json --alias p,q`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input IR module, JSON-encoded (required)")
	analyzeCmd.MarkFlagRequired("input")

	analyzeCmd.Flags().BoolVar(&fieldSensitive, "field-sensitive", true, "Track struct fields individually instead of collapsing them")
	analyzeCmd.Flags().BoolVar(&ociOnly, "oci-only", false, "Restrict address-taken objects to heap allocations")
	analyzeCmd.Flags().StringVar(&wlOrder, "worklist-order", "prio", "Worklist processing order: prio, fifo, lifo, id")
	analyzeCmd.Flags().StringVar(&pointsToQuery, "query", "", "Print the points-to set of the named value")
	analyzeCmd.Flags().StringSliceVar(&aliasQuery, "alias", nil, "Print whether the two comma-separated named values may alias")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	log := GetLogger()

	f, err := os.Open(inputFile)
	if err != nil {
		return fmt.Errorf("open input file: %w", err)
	}
	defer f.Close()

	mod, err := irjson.Decode(f)
	if err != nil {
		return fmt.Errorf("decode module: %w", err)
	}

	log.Info("Module:          %s", mod.Name)
	log.Info("Functions:       %d", len(mod.Funcs))
	log.Info("Globals:         %d", len(mod.Globals))
	log.Info("")

	eng := analysis.New(analysis.Options{
		FieldSensitive: fieldSensitive,
		OCIOnly:        ociOnly,
		WLOrder:        wlOrder,
	})
	run := eng.Run(mod)

	diag.FormatRun(run, log)

	if pointsToQuery == "" && len(aliasQuery) == 0 {
		return nil
	}

	q := ptsquery.Bind(run.Arena, run.Gen)

	if pointsToQuery != "" {
		v, ok := ptsquery.FindValue(mod, pointsToQuery)
		if !ok {
			return fmt.Errorf("no such value %q in module %s", pointsToQuery, mod.Name)
		}
		labels, _ := q.PointsTo(v)
		diag.FormatPointsTo(pointsToQuery, labels, log)
	}

	if len(aliasQuery) == 2 {
		a, ok := ptsquery.FindValue(mod, aliasQuery[0])
		if !ok {
			return fmt.Errorf("no such value %q in module %s", aliasQuery[0], mod.Name)
		}
		b, ok := ptsquery.FindValue(mod, aliasQuery[1])
		if !ok {
			return fmt.Errorf("no such value %q in module %s", aliasQuery[1], mod.Name)
		}
		diag.FormatAlias(aliasQuery[0], aliasQuery[1], q.MayAlias(a, b), log)
	} else if len(aliasQuery) != 0 {
		return fmt.Errorf("--alias expects exactly two comma-separated values, got %d", len(aliasQuery))
	}

	return nil
}
