// Package config loads the pipeline run configuration from JSON.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// PipelineConfig configures one pipeline run. Fields omitted from the
// JSON file keep their defaults, so partial configs are safe.
type PipelineConfig struct {
	// InputDir holds the co-registered input rasters.
	InputDir string `json:"input_dir"`
	// OutputDir receives the sparse table, probability maps, and
	// validation metrics.
	OutputDir string `json:"output_dir"`

	// Resolution is the cell size in the reference system's linear
	// unit. The y resolution is its negation (north-up grids).
	Resolution float64 `json:"resolution,omitempty"`
	// EPSG names the fixed planar reference system all layers share.
	EPSG int `json:"crs_epsg,omitempty"`

	// FocusCroplandTransitions enables the cropland transition filter.
	FocusCroplandTransitions bool `json:"focus_cropland_transitions,omitempty"`
	// TransitionColumn is the transition-code column the filter and
	// validation labelling read.
	TransitionColumn string `json:"transition_column,omitempty"`

	// BatchSize bounds rows per streamed batch during scoring.
	BatchSize int `json:"batch_size,omitempty"`
	// ExcludedCovariates are withheld from the scorer's feature matrix.
	ExcludedCovariates []string `json:"excluded_covariates,omitempty"`

	// ScorerURL is the endpoint of the external scoring service.
	ScorerURL string `json:"scorer_url,omitempty"`
	// RegistryPath is the sqlite run registry; empty disables it.
	RegistryPath string `json:"registry_path,omitempty"`
}

// Defaults matching the reference deployment (100 m EPSG:3035 grid).
const (
	DefaultResolution       = 100
	DefaultEPSG             = 3035
	DefaultBatchSize        = 10000
	DefaultTransitionColumn = "transition_12_18"
)

// Default returns a config with every defaultable field populated.
func Default() *PipelineConfig {
	return &PipelineConfig{
		Resolution:       DefaultResolution,
		EPSG:             DefaultEPSG,
		BatchSize:        DefaultBatchSize,
		TransitionColumn: DefaultTransitionColumn,
	}
}

// Load reads a PipelineConfig from a JSON file, applies defaults, and
// validates it.
func Load(path string) (*PipelineConfig, error) {
	if ext := filepath.Ext(path); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *PipelineConfig) applyDefaults() {
	if c.Resolution == 0 {
		c.Resolution = DefaultResolution
	}
	if c.EPSG == 0 {
		c.EPSG = DefaultEPSG
	}
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.TransitionColumn == "" {
		c.TransitionColumn = DefaultTransitionColumn
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *PipelineConfig) Validate() error {
	if c.InputDir == "" {
		return fmt.Errorf("input_dir is required")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}
	if c.Resolution <= 0 {
		return fmt.Errorf("resolution must be positive, got %g", c.Resolution)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}
	return nil
}
