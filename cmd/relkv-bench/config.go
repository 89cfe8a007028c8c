package main

import (
	"fmt"

	"github.com/cuemby/relkv/pkg/config"
	"github.com/spf13/cobra"
)

// loadConfig resolves the --config flag against config.Load, falling
// back to config.Default when no path was given, and validates the
// result either way.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	var cfg *config.Config
	var err error
	if path == "" {
		cfg = config.Default()
	} else {
		cfg, err = config.Load(path)
		if err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		fmt.Printf("single_thread: %v\n", cfg.SingleThread)
		fmt.Printf("thread_pool_size: %d\n", cfg.ThreadPoolSize)
		fmt.Printf("core_affinity: %v\n", cfg.CoreAffinity)
		fmt.Printf("initial_core: %d\n", cfg.InitialCore)
		fmt.Printf("assign_numa_nodes_uniformly: %v\n", cfg.AssignNUMANodesUniformly)
		fmt.Printf("work_sharing: %v\n", cfg.WorkSharing)
		fmt.Printf("stealing_enabled: %v\n", cfg.StealingEnabled)
		fmt.Printf("default_partitions: %d\n", cfg.DefaultPartitions)
		fmt.Printf("scan_default_parallel: %d\n", cfg.ScanDefaultParallel)
		fmt.Printf("key_distribution: %s\n", cfg.KeyDistribution)
		fmt.Printf("enable_storage_key: %v\n", cfg.EnableStorageKey)
		fmt.Printf("prepare_benchmark_tables: %v\n", cfg.PrepareBenchmarkTables)
		fmt.Printf("prepare_test_tables: %v\n", cfg.PrepareTestTables)
		return nil
	},
}
