package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kahrendsen/andersgo/pkg/utils"
)

var (
	verbose    bool
	configPath string
	logger     utils.Logger
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "andersgo",
	Short: "An inclusion-based interprocedural pointer-analysis engine",
	Long: `andersgo runs an Andersen-style, field-sensitive, context-insensitive
pointer analysis over a program's IR and answers points-to, alias, and
call-graph queries against the result.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logLevel := utils.LevelInfo
		if verbose {
			logLevel = utils.LevelDebug
		}
		logger = utils.NewDefaultLogger(logLevel, os.Stdout)
		utils.SetGlobalLogger(logger)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")

	binName := BinName()
	rootCmd.Example = `  # Analyze a module and print solver statistics
  ` + binName + ` analyze -i ./module.json

  # Analyze and answer a points-to query against the result
  ` + binName + ` analyze -i ./module.json --query p

  # Start the gRPC analysis server
  ` + binName + ` serve --addr :7070`
}

// GetLogger returns the configured logger.
func GetLogger() utils.Logger {
	return logger
}

// BinName returns the base name of the current executable.
func BinName() string {
	return filepath.Base(os.Args[0])
}
