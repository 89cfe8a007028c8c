// Package config decodes the execution core's runtime configuration —
// the keys named in spec §6 — from YAML, with defaults matching the
// teacher's convention of a zero-value-safe Config struct.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// KeyDistributionStrategy selects the C4 pivot oracle implementation.
type KeyDistributionStrategy string

const (
	KeyDistributionSimple  KeyDistributionStrategy = "simple"
	KeyDistributionUniform KeyDistributionStrategy = "uniform"
)

// Config holds every recognized configuration key from spec §6.
type Config struct {
	// Scheduling
	SingleThread               bool `yaml:"single_thread"`
	ThreadPoolSize              int  `yaml:"thread_pool_size"`
	CoreAffinity                bool `yaml:"core_affinity"`
	InitialCore                 int  `yaml:"initial_core"`
	AssignNUMANodesUniformly    bool `yaml:"assign_numa_nodes_uniformly"`
	WorkSharing                 bool `yaml:"work_sharing"`
	StealingEnabled              bool `yaml:"stealing_enabled"`

	// Exchanges / scan
	DefaultPartitions    int                      `yaml:"default_partitions"`
	ScanDefaultParallel  int                      `yaml:"scan_default_parallel"`
	KeyDistribution      KeyDistributionStrategy  `yaml:"key_distribution"`

	// Storage manager
	EnableStorageKey bool `yaml:"enable_storage_key"`

	// DDL preload flags
	PrepareBenchmarkTables bool `yaml:"prepare_benchmark_tables"`
	PrepareTestTables      bool `yaml:"prepare_test_tables"`
}

// Default returns the engine's out-of-the-box configuration.
func Default() *Config {
	return &Config{
		SingleThread:             false,
		ThreadPoolSize:           4,
		CoreAffinity:             false,
		InitialCore:              0,
		AssignNUMANodesUniformly: false,
		WorkSharing:              true,
		StealingEnabled:          true,
		DefaultPartitions:        5,
		ScanDefaultParallel:      1,
		KeyDistribution:          KeyDistributionUniform,
		EnableStorageKey:         false,
		PrepareBenchmarkTables:   false,
		PrepareTestTables:        false,
	}
}

// Load reads and decodes a YAML config file, applying it on top of Default.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects nonsensical combinations.
func (c *Config) Validate() error {
	if c.ThreadPoolSize < 1 {
		return fmt.Errorf("thread_pool_size must be >= 1, got %d", c.ThreadPoolSize)
	}
	if c.DefaultPartitions < 1 {
		return fmt.Errorf("default_partitions must be >= 1, got %d", c.DefaultPartitions)
	}
	if c.ScanDefaultParallel < 1 {
		return fmt.Errorf("scan_default_parallel must be >= 1, got %d", c.ScanDefaultParallel)
	}
	switch c.KeyDistribution {
	case KeyDistributionSimple, KeyDistributionUniform:
	default:
		return fmt.Errorf("unknown key_distribution %q", c.KeyDistribution)
	}
	return nil
}
