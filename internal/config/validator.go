package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"yoloset/internal/dataset"
	"yoloset/internal/rebalance"
)

// ValidationSeverity represents the severity of a validation issue.
type ValidationSeverity string

const (
	SeverityError   ValidationSeverity = "error"
	SeverityWarning ValidationSeverity = "warning"
)

// ConfigValidationError represents a single validation issue.
type ConfigValidationError struct {
	Field    string             `json:"field"`    // Config field with issue (e.g., "targetRatios.player")
	Message  string             `json:"message"`  // Human-readable description
	Severity ValidationSeverity `json:"severity"` // "error" or "warning"
}

// ValidationResult contains all validation findings.
type ValidationResult struct {
	Errors   []ConfigValidationError
	Warnings []ConfigValidationError
	Valid    bool // True if no errors (warnings OK)
}

// ratioSumTolerance is how far target ratios may drift from 1.0 before a
// warning is raised.
const ratioSumTolerance = 0.01

// ValidateConfig checks the configuration for errors and returns all findings.
func ValidateConfig(cfg *Configuration) *ValidationResult {
	result := &ValidationResult{
		Errors:   []ConfigValidationError{},
		Warnings: []ConfigValidationError{},
		Valid:    true,
	}

	for _, check := range []func(*Configuration) []ConfigValidationError{
		ValidatePaths,
		ValidateRatios,
		ValidateClasses,
		ValidatePlanning,
		ValidateWatch,
	} {
		for _, err := range check(cfg) {
			if err.Severity == SeverityError {
				result.Errors = append(result.Errors, err)
			} else {
				result.Warnings = append(result.Warnings, err)
			}
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// ValidatePaths checks the dataset root and reports missing split folders.
func ValidatePaths(cfg *Configuration) []ConfigValidationError {
	var errs []ConfigValidationError

	if cfg.DatasetRoot == "" {
		return append(errs, ConfigValidationError{
			Field:    "datasetRoot",
			Message:  "datasetRoot must be set (or pass --dataset / " + EnvDataset + ")",
			Severity: SeverityError,
		})
	}

	info, err := os.Stat(cfg.DatasetRoot)
	if err != nil {
		msg := "error accessing directory: " + err.Error()
		if os.IsNotExist(err) {
			msg = "directory does not exist: " + cfg.DatasetRoot
		} else if os.IsPermission(err) {
			msg = "directory is not accessible: " + cfg.DatasetRoot
		}
		return append(errs, ConfigValidationError{Field: "datasetRoot", Message: msg, Severity: SeverityError})
	}
	if !info.IsDir() {
		return append(errs, ConfigValidationError{
			Field:    "datasetRoot",
			Message:  "path is not a directory: " + cfg.DatasetRoot,
			Severity: SeverityError,
		})
	}

	layout := cfg.Layout()
	for _, split := range dataset.AllSplits() {
		if _, err := os.Stat(layout.ImagesDir(split)); err != nil {
			errs = append(errs, ConfigValidationError{
				Field:    "datasetRoot",
				Message:  "split has no images folder: " + layout.ImagesDir(split),
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}

// ValidateRatios checks target ratios and split ratios.
func ValidateRatios(cfg *Configuration) []ConfigValidationError {
	var errs []ConfigValidationError

	fields := []struct {
		name  string
		value float64
	}{
		{"targetRatios.player", cfg.TargetRatios.Player},
		{"targetRatios.background", cfg.TargetRatios.Background},
		{"targetRatios.hardCase", cfg.TargetRatios.HardCase},
		{"global.splitRatios.train", cfg.Global.SplitRatios.Train},
		{"global.splitRatios.val", cfg.Global.SplitRatios.Val},
		{"global.splitRatios.test", cfg.Global.SplitRatios.Test},
		{"global.ctTRatio", cfg.Global.CtTRatio},
		{"global.tolerance", cfg.Global.Tolerance},
		{"hardCase.overlapIoU", cfg.HardCase.OverlapIoU},
	}
	for _, f := range fields {
		if f.value < 0 || f.value > 1 || math.IsNaN(f.value) {
			errs = append(errs, ConfigValidationError{
				Field:    f.name,
				Message:  fmt.Sprintf("must be between 0 and 1, got %g", f.value),
				Severity: SeverityError,
			})
		}
	}

	if sum := cfg.TargetRatios.Sum(); math.Abs(sum-1) > ratioSumTolerance {
		errs = append(errs, ConfigValidationError{
			Field:    "targetRatios",
			Message:  fmt.Sprintf("ratios sum to %.3f instead of 1.0", sum),
			Severity: SeverityWarning,
		})
	}
	sr := cfg.Global.SplitRatios
	if sum := sr.Train + sr.Val + sr.Test; math.Abs(sum-1) > ratioSumTolerance {
		errs = append(errs, ConfigValidationError{
			Field:    "global.splitRatios",
			Message:  fmt.Sprintf("split ratios sum to %.3f instead of 1.0", sum),
			Severity: SeverityWarning,
		})
	}
	return errs
}

// ValidateClasses checks the class-id mapping and the hard-case rule.
func ValidateClasses(cfg *Configuration) []ConfigValidationError {
	var errs []ConfigValidationError
	if err := cfg.Classes.Validate(); err != nil {
		errs = append(errs, ConfigValidationError{Field: "classes", Message: err.Error(), Severity: SeverityError})
	}
	if cfg.HardCase.MinOverlappingPairs < 0 {
		errs = append(errs, ConfigValidationError{
			Field:    "hardCase.minOverlappingPairs",
			Message:  "must be a non-negative integer",
			Severity: SeverityError,
		})
	}
	return errs
}

// ValidatePlanning checks strategy, split selection, iteration cap and batch
// sizes.
func ValidatePlanning(cfg *Configuration) []ConfigValidationError {
	var errs []ConfigValidationError

	if _, err := rebalance.ParseStrategy(cfg.Selection.Strategy); err != nil {
		errs = append(errs, ConfigValidationError{Field: "selection.strategy", Message: err.Error(), Severity: SeverityError})
	}
	if splits, err := cfg.Splits(); err != nil {
		errs = append(errs, ConfigValidationError{Field: "global.splits", Message: err.Error(), Severity: SeverityError})
	} else if len(splits) < 2 {
		errs = append(errs, ConfigValidationError{
			Field:    "global.splits",
			Message:  "at least two splits are needed to move images between them",
			Severity: SeverityError,
		})
	}
	if cfg.Global.MaxIterations < 1 {
		errs = append(errs, ConfigValidationError{Field: "global.maxIterations", Message: "must be at least 1", Severity: SeverityError})
	}

	batches := []struct {
		name  string
		value int
	}{
		{"progress.analysisBatch", cfg.Progress.AnalysisBatch},
		{"progress.executionBatch", cfg.Progress.ExecutionBatch},
		{"progress.integrityBatch", cfg.Progress.IntegrityBatch},
	}
	for _, b := range batches {
		if b.value < 1 {
			errs = append(errs, ConfigValidationError{Field: b.name, Message: "must be a positive integer", Severity: SeverityError})
		}
	}
	return errs
}

// ValidateWatch checks the change monitor settings.
func ValidateWatch(cfg *Configuration) []ConfigValidationError {
	var errs []ConfigValidationError
	if cfg.Watch.DebounceMs < 0 {
		errs = append(errs, ConfigValidationError{Field: "watch.debounceMs", Message: "must not be negative", Severity: SeverityError})
	}
	for i, p := range cfg.Watch.IgnorePatterns {
		if _, err := filepath.Match(p, ""); err != nil {
			errs = append(errs, ConfigValidationError{
				Field:    fmt.Sprintf("watch.ignorePatterns[%d]", i),
				Message:  "invalid glob pattern: " + p,
				Severity: SeverityError,
			})
		}
	}
	return errs
}
