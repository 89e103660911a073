// Package config handles configuration loading and validation for yoloset.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"yoloset/internal/balance"
	"yoloset/internal/dataset"
	"yoloset/internal/rebalance"
	"yoloset/internal/watcher"
)

// Environment variables that override the configuration file.
const (
	EnvDataset       = "YOLOSET_DATASET"
	EnvLogsFolder    = "YOLOSET_LOGS_FOLDER"
	EnvStrategy      = "YOLOSET_STRATEGY"
	EnvTolerance     = "YOLOSET_TOLERANCE"
	EnvMaxIterations = "YOLOSET_MAX_ITERATIONS"
)

// DefaultConfigFile is looked up in the working directory when --config is
// not given.
const DefaultConfigFile = "yoloset.json"

// ConfigErrorType represents the type of configuration error.
type ConfigErrorType string

const (
	FileNotFound    ConfigErrorType = "FILE_NOT_FOUND"
	InvalidJSON     ConfigErrorType = "INVALID_JSON"
	ValidationError ConfigErrorType = "VALIDATION_ERROR"
)

// ConfigError represents an error that occurred during configuration loading.
type ConfigError struct {
	Type    ConfigErrorType
	Path    string
	Message string
}

func (e *ConfigError) Error() string {
	switch e.Type {
	case FileNotFound:
		return fmt.Sprintf("configuration file not found: %s", e.Path)
	case InvalidJSON:
		return fmt.Sprintf("invalid JSON in configuration file: %s", e.Message)
	case ValidationError:
		return fmt.Sprintf("configuration validation error: %s", e.Message)
	default:
		return fmt.Sprintf("configuration error: %s", e.Message)
	}
}

// SelectionConfig controls which images a plan picks.
type SelectionConfig struct {
	Strategy           string `json:"strategy"`
	PreserveCtTBalance bool   `json:"preserveCtTBalance"`
}

// GlobalConfig tunes the multi-split planners.
type GlobalConfig struct {
	Tolerance     float64               `json:"tolerance"`
	MaxIterations int                   `json:"maxIterations"`
	CtTRatio      float64               `json:"ctTRatio"`
	Splits        []string              `json:"splits,omitempty"`
	SplitRatios   rebalance.SplitRatios `json:"splitRatios"`
}

// ProgressConfig sets how often background tasks report.
type ProgressConfig struct {
	AnalysisBatch  int `json:"analysisBatch"`
	ExecutionBatch int `json:"executionBatch"`
	IntegrityBatch int `json:"integrityBatch"`
}

// WatchConfig controls the dataset change monitor.
type WatchConfig struct {
	DebounceMs     int      `json:"debounceMs"`
	IgnorePatterns []string `json:"ignorePatterns"`
}

// LoggingConfig controls the log sinks.
type LoggingConfig struct {
	Directory string `json:"directory,omitempty"`
	Verbose   bool   `json:"verbose"`
}

// Configuration holds all settings for yoloset. Zero values are replaced by
// defaults in ApplyDefaults.
type Configuration struct {
	DatasetRoot     string               `json:"datasetRoot"`
	ImageExtensions []string             `json:"imageExtensions"`
	Classes         balance.ClassMapping `json:"classes"`
	HardCase        balance.HardCaseRule `json:"hardCase"`
	TargetRatios    balance.TargetRatios `json:"targetRatios"`
	Selection       SelectionConfig      `json:"selection"`
	Global          GlobalConfig         `json:"global"`
	Progress        ProgressConfig       `json:"progress"`
	Watch           WatchConfig          `json:"watch"`
	Logging         LoggingConfig        `json:"logging"`
}

// Default returns a configuration with every default applied.
func Default() *Configuration {
	cfg := &Configuration{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued fields.
func (c *Configuration) ApplyDefaults() {
	if len(c.ImageExtensions) == 0 {
		c.ImageExtensions = dataset.DefaultImageExtensions()
	}
	if c.Classes.T == 0 && c.Classes.CT == 0 {
		c.Classes = balance.DefaultClassMapping()
	}
	if c.HardCase.OverlapIoU == 0 {
		c.HardCase.OverlapIoU = 0.5
	}
	if c.TargetRatios.Sum() == 0 {
		c.TargetRatios = balance.DefaultTargetRatios()
	}
	if c.Selection.Strategy == "" {
		c.Selection.Strategy = string(rebalance.Random)
	}

	defaults := rebalance.DefaultGlobalConfig()
	if c.Global.Tolerance == 0 {
		c.Global.Tolerance = defaults.Tolerance
	}
	if c.Global.MaxIterations == 0 {
		c.Global.MaxIterations = defaults.MaxIterations
	}
	if c.Global.CtTRatio == 0 {
		c.Global.CtTRatio = defaults.CtTRatio
	}
	if c.Global.SplitRatios == (rebalance.SplitRatios{}) {
		c.Global.SplitRatios = defaults.SplitRatios
	}

	if c.Progress.AnalysisBatch == 0 {
		c.Progress.AnalysisBatch = balance.DefaultAnalysisBatch
	}
	if c.Progress.ExecutionBatch == 0 {
		c.Progress.ExecutionBatch = rebalance.DefaultExecutionBatch
	}
	if c.Progress.IntegrityBatch == 0 {
		c.Progress.IntegrityBatch = balance.DefaultIntegrityBatch
	}

	if c.Watch.DebounceMs == 0 {
		c.Watch.DebounceMs = int(watcher.DefaultDebounce / time.Millisecond)
	}
	if c.Watch.IgnorePatterns == nil {
		c.Watch.IgnorePatterns = watcher.DefaultIgnorePatterns()
	}
}

// LoadDotEnv loads .env next to the executable, then from the working
// directory. Variables already set in the environment win.
func LoadDotEnv() {
	if exePath, err := os.Executable(); err == nil {
		envPath := filepath.Join(filepath.Dir(exePath), ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded environment from binary directory")
		}
	}
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory")
	}
}

// ApplyEnv overrides fields from YOLOSET_* environment variables.
func (c *Configuration) ApplyEnv() error {
	if v := os.Getenv(EnvDataset); v != "" {
		c.DatasetRoot = v
	}
	if v := os.Getenv(EnvLogsFolder); v != "" {
		c.Logging.Directory = v
	}
	if v := os.Getenv(EnvStrategy); v != "" {
		c.Selection.Strategy = v
	}
	if v := os.Getenv(EnvTolerance); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return &ConfigError{Type: ValidationError, Message: fmt.Sprintf("%s: %v", EnvTolerance, err)}
		}
		c.Global.Tolerance = f
	}
	if v := os.Getenv(EnvMaxIterations); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &ConfigError{Type: ValidationError, Message: fmt.Sprintf("%s: %v", EnvMaxIterations, err)}
		}
		c.Global.MaxIterations = n
	}
	return nil
}

// Load reads and parses a configuration file from the given path.
func Load(filePath string) (*Configuration, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ConfigError{
				Type: FileNotFound,
				Path: filePath,
			}
		}
		return nil, &ConfigError{
			Type:    FileNotFound,
			Path:    filePath,
			Message: err.Error(),
		}
	}

	var config Configuration
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, &ConfigError{
			Type:    InvalidJSON,
			Path:    filePath,
			Message: err.Error(),
		}
	}

	config.ApplyDefaults()
	return &config, nil
}

// LoadOrDefault loads the file if it exists and falls back to Default.
func LoadOrDefault(filePath string) (*Configuration, error) {
	cfg, err := Load(filePath)
	if err != nil {
		var ce *ConfigError
		if errors.As(err, &ce) && ce.Type == FileNotFound && ce.Message == "" {
			return Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// Save serializes and writes a configuration to the given path.
func Save(config *Configuration, filePath string) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return &ConfigError{
			Type:    InvalidJSON,
			Message: err.Error(),
		}
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return &ConfigError{
			Type:    ValidationError,
			Message: fmt.Sprintf("failed to write configuration file: %s", err.Error()),
		}
	}

	return nil
}

// Layout returns the dataset layout for the configured root.
func (c *Configuration) Layout() dataset.Layout {
	return dataset.NewLayout(c.DatasetRoot, c.ImageExtensions)
}

// Categorizer returns the categorizer for the configured class mapping.
func (c *Configuration) Categorizer() balance.Categorizer {
	return balance.Categorizer{Classes: c.Classes, HardCase: c.HardCase}
}

// Strategy parses the configured selection strategy.
func (c *Configuration) Strategy() (rebalance.SelectionStrategy, error) {
	return rebalance.ParseStrategy(c.Selection.Strategy)
}

// Splits parses Global.Splits; an empty list means every split.
func (c *Configuration) Splits() ([]dataset.Split, error) {
	return dataset.ParseSplits(c.Global.Splits)
}

// GlobalRebalance builds the global planner settings.
func (c *Configuration) GlobalRebalance() (rebalance.GlobalRebalanceConfig, error) {
	strategy, err := c.Strategy()
	if err != nil {
		return rebalance.GlobalRebalanceConfig{}, err
	}
	splits, err := c.Splits()
	if err != nil {
		return rebalance.GlobalRebalanceConfig{}, err
	}
	return rebalance.GlobalRebalanceConfig{
		Ratios:             c.TargetRatios,
		SplitRatios:        c.Global.SplitRatios,
		Strategy:           strategy,
		PreserveCtTBalance: c.Selection.PreserveCtTBalance,
		CtTRatio:           c.Global.CtTRatio,
		Tolerance:          c.Global.Tolerance,
		MaxIterations:      c.Global.MaxIterations,
		Splits:             splits,
	}, nil
}

// Debounce returns the change monitor debounce interval.
func (c *Configuration) Debounce() time.Duration {
	return time.Duration(c.Watch.DebounceMs) * time.Millisecond
}

// Monitor builds the staleness monitor settings.
func (c *Configuration) Monitor() watcher.Config {
	return watcher.Config{Debounce: c.Debounce(), IgnorePatterns: c.Watch.IgnorePatterns}
}
