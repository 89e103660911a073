package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"yoloset/internal/balance"
	"yoloset/internal/dataset"
	"yoloset/internal/rebalance"
)

func genRatio() gopter.Gen {
	return gen.Float64Range(0.01, 1)
}

// genConfiguration generates configurations whose fields are all non-zero,
// so ApplyDefaults leaves them untouched after a reload.
func genConfiguration() gopter.Gen {
	return gopter.CombineGens(
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
		gen.IntRange(0, 5),
		gen.IntRange(6, 10),
		genRatio(),
		genRatio(),
		genRatio(),
		gen.OneConstOf("random", "fewest-detections", "oldest-first", "newest-first"),
		gen.Bool(),
		gen.IntRange(1, 50),
		gen.IntRange(1, 500),
	).Map(func(vals []interface{}) *Configuration {
		cfg := Default()
		cfg.DatasetRoot = vals[0].(string)
		cfg.Classes = balance.ClassMapping{T: vals[1].(int), CT: vals[2].(int)}
		cfg.TargetRatios = balance.TargetRatios{
			Player:     vals[3].(float64),
			Background: vals[4].(float64),
			HardCase:   vals[5].(float64),
		}
		cfg.Selection.Strategy = vals[6].(string)
		cfg.Selection.PreserveCtTBalance = vals[7].(bool)
		cfg.Global.MaxIterations = vals[8].(int)
		cfg.Progress.AnalysisBatch = vals[9].(int)
		return cfg
	})
}

func TestConfigurationRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("Configuration round-trip preserves data", prop.ForAll(
		func(cfg *Configuration) bool {
			tmpFile := filepath.Join(t.TempDir(), "config.json")

			if err := Save(cfg, tmpFile); err != nil {
				t.Logf("Save failed: %v", err)
				return false
			}
			loaded, err := Load(tmpFile)
			if err != nil {
				t.Logf("Load failed: %v", err)
				return false
			}
			return reflect.DeepEqual(cfg, loaded)
		},
		genConfiguration(),
	))

	properties.TestingRun(t)
}

func TestDefaultsAppliedWhenMissing(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(tmpFile, []byte(`{"datasetRoot": "/data/csgo"}`), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.DatasetRoot != "/data/csgo" {
		t.Errorf("DatasetRoot = %q", cfg.DatasetRoot)
	}
	if cfg.TargetRatios != balance.DefaultTargetRatios() {
		t.Errorf("TargetRatios = %+v, want defaults", cfg.TargetRatios)
	}
	if cfg.Classes != balance.DefaultClassMapping() {
		t.Errorf("Classes = %+v, want defaults", cfg.Classes)
	}
	if cfg.Selection.Strategy != string(rebalance.Random) {
		t.Errorf("Strategy = %q, want random", cfg.Selection.Strategy)
	}
	if cfg.Progress.AnalysisBatch != balance.DefaultAnalysisBatch {
		t.Errorf("AnalysisBatch = %d", cfg.Progress.AnalysisBatch)
	}
	if cfg.Progress.ExecutionBatch != rebalance.DefaultExecutionBatch {
		t.Errorf("ExecutionBatch = %d", cfg.Progress.ExecutionBatch)
	}
	if cfg.Progress.IntegrityBatch != balance.DefaultIntegrityBatch {
		t.Errorf("IntegrityBatch = %d", cfg.Progress.IntegrityBatch)
	}
	if cfg.Debounce() != 500*time.Millisecond {
		t.Errorf("Debounce = %v", cfg.Debounce())
	}
	if len(cfg.ImageExtensions) == 0 {
		t.Error("ImageExtensions should default")
	}
	// Only the dataset root is missing on disk.
	for _, e := range ValidateConfig(cfg).Errors {
		if e.Field != "datasetRoot" {
			t.Errorf("unexpected error for defaults: %s: %s", e.Field, e.Message)
		}
	}
}

func TestPartialOverrideKeepsOtherDefaults(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	configJSON := `{
		"targetRatios": {"player": 0.8, "background": 0.15, "hardCase": 0.05},
		"global": {"tolerance": 0.05, "splits": ["train", "val"]}
	}`
	if err := os.WriteFile(tmpFile, []byte(configJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.TargetRatios.Player != 0.8 || cfg.TargetRatios.Background != 0.15 {
		t.Errorf("TargetRatios = %+v", cfg.TargetRatios)
	}

	g, err := cfg.GlobalRebalance()
	if err != nil {
		t.Fatalf("GlobalRebalance failed: %v", err)
	}
	defaults := rebalance.DefaultGlobalConfig()
	if g.Tolerance != 0.05 {
		t.Errorf("Tolerance = %v, want 0.05", g.Tolerance)
	}
	if g.MaxIterations != defaults.MaxIterations {
		t.Errorf("MaxIterations = %d, want %d", g.MaxIterations, defaults.MaxIterations)
	}
	if !reflect.DeepEqual(g.Splits, []dataset.Split{dataset.Train, dataset.Val}) {
		t.Errorf("Splits = %v", g.Splits)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.json"))
	var ce *ConfigError
	if !errors.As(err, &ce) || ce.Type != FileNotFound {
		t.Errorf("missing file: got %v, want FILE_NOT_FOUND", err)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err = Load(bad)
	if !errors.As(err, &ce) || ce.Type != InvalidJSON {
		t.Errorf("bad json: got %v, want INVALID_JSON", err)
	}
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("LoadOrDefault failed: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("LoadOrDefault on a missing file should return Default()")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvDataset, "/env/dataset")
	t.Setenv(EnvStrategy, "oldest-first")
	t.Setenv(EnvTolerance, "0.1")
	t.Setenv(EnvMaxIterations, "3")
	t.Setenv(EnvLogsFolder, "/env/logs")

	cfg := Default()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}
	if cfg.DatasetRoot != "/env/dataset" || cfg.Logging.Directory != "/env/logs" {
		t.Errorf("paths not overridden: %+v", cfg)
	}
	if s, _ := cfg.Strategy(); s != rebalance.OldestFirst {
		t.Errorf("Strategy = %v", s)
	}
	if cfg.Global.Tolerance != 0.1 || cfg.Global.MaxIterations != 3 {
		t.Errorf("Global = %+v", cfg.Global)
	}
}

func TestApplyEnvRejectsMalformedNumbers(t *testing.T) {
	t.Setenv(EnvTolerance, "lots")
	var ce *ConfigError
	if err := Default().ApplyEnv(); !errors.As(err, &ce) || ce.Type != ValidationError {
		t.Errorf("got %v, want VALIDATION_ERROR", err)
	}
}
