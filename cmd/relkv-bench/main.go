// Command relkv-bench is an operator-facing CLI around the execution
// core: it opens a bbolt-backed store, drives synthetic transactions
// against it through the scheduler and writer pool, and exposes a
// metrics/profiling endpoint. Grounded directly on the teacher's
// cmd/warren/main.go cobra root-command shape (persistent log flags,
// cobra.OnInitialize(initLogging), one subcommand per operator task).
package main

import (
	"fmt"
	"os"

	"github.com/cuemby/relkv/pkg/rlog"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "relkv-bench",
	Short: "Benchmark and operate a relkv execution core instance",
	Long: `relkv-bench drives the relational execution core against a
bbolt-backed key-value store: it can seed tables, run synthetic
transaction workloads through the scheduler and writer pool, dump or
restore raw storage content, and serve Prometheus metrics.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"relkv-bench version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file (defaults applied if omitted)")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(benchCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(serveMetricsCmd)
	rootCmd.AddCommand(configCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	rlog.Init(rlog.Config{
		Level:      rlog.Level(logLevel),
		JSONOutput: logJSON,
	})
}
