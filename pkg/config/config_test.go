package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sitewatch-hq/sitewatch/pkg/engine"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sitewatch.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, `
engine:
  similarity_threshold: 0.65
  overrun_factor: 2.0
  severity_overrides:
    wrong_zone: medium
  escalation_rules:
    - when: kind == "wrong_tool" && score < 0.3
      severity: high

provider:
  name: local-embedder
  type: openai-compatible
  base_url: http://localhost:8081/v1
  model: all-minilm

storage:
  backend: memory
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Engine.SimilarityThreshold != 0.65 {
		t.Errorf("SimilarityThreshold = %g, want 0.65", cfg.Engine.SimilarityThreshold)
	}
	if cfg.Engine.OverrunFactor != 2.0 {
		t.Errorf("OverrunFactor = %g, want 2.0", cfg.Engine.OverrunFactor)
	}
	if cfg.Engine.SeverityOverrides["wrong_zone"] != "medium" {
		t.Errorf("SeverityOverrides = %v", cfg.Engine.SeverityOverrides)
	}
	if len(cfg.Engine.EscalationRules) != 1 || cfg.Engine.EscalationRules[0].Severity != "high" {
		t.Errorf("EscalationRules = %v", cfg.Engine.EscalationRules)
	}
	if cfg.Provider.BaseURL != "http://localhost:8081/v1" {
		t.Errorf("BaseURL = %q", cfg.Provider.BaseURL)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("Backend = %q", cfg.Storage.Backend)
	}

	// Defaults filled in for unset fields.
	if cfg.Engine.ScoreEpsilon != DefaultScoreEpsilon {
		t.Errorf("ScoreEpsilon = %g, want default", cfg.Engine.ScoreEpsilon)
	}
	if cfg.Provider.Timeout != DefaultProviderTimeout {
		t.Errorf("Timeout = %v, want default", cfg.Provider.Timeout)
	}
	if cfg.Retention.PruneSchedule != DefaultPruneSchedule {
		t.Errorf("PruneSchedule = %q, want default", cfg.Retention.PruneSchedule)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/sitewatch.yaml"); err == nil {
		t.Error("LoadConfig() succeeded for missing file")
	}
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "engine: [not a mapping")
	if _, err := LoadConfig(path); err == nil {
		t.Error("LoadConfig() succeeded for malformed YAML")
	}
}

func TestLoadConfig_ValidationFailure(t *testing.T) {
	path := writeConfigFile(t, `
engine:
  similarity_threshold: 1.5
provider:
  type: grpc
`)
	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("LoadConfig() succeeded with invalid config")
	}
	if !strings.Contains(err.Error(), "similarity_threshold") {
		t.Errorf("error does not name the invalid field: %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Engine.SimilarityThreshold != 0.70 {
		t.Errorf("SimilarityThreshold = %g, want 0.70", cfg.Engine.SimilarityThreshold)
	}
	if cfg.Engine.OverrunFactor != 1.5 {
		t.Errorf("OverrunFactor = %g, want 1.5", cfg.Engine.OverrunFactor)
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("Backend = %q, want sqlite", cfg.Storage.Backend)
	}
	if cfg.Watch.DebounceInterval != 250*time.Millisecond {
		t.Errorf("DebounceInterval = %v", cfg.Watch.DebounceInterval)
	}

	if err := Validate(cfg); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, `
provider:
  base_url: http://file-value:8081/v1
storage:
  backend: sqlite
  path: file.db
`)

	t.Setenv("SITEWATCH_PROVIDER_API_KEY", "sk-from-env")
	t.Setenv("SITEWATCH_PROVIDER_BASE_URL", "http://env-value:9000/v1")
	t.Setenv("SITEWATCH_STORAGE_BACKEND", "memory")
	t.Setenv("SITEWATCH_ENGINE_SIMILARITY_THRESHOLD", "0.8")
	t.Setenv("SITEWATCH_LOG_LEVEL", "debug")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}

	if cfg.Provider.APIKey != "sk-from-env" {
		t.Errorf("APIKey = %q", cfg.Provider.APIKey)
	}
	if cfg.Provider.BaseURL != "http://env-value:9000/v1" {
		t.Errorf("BaseURL = %q, env should win over file", cfg.Provider.BaseURL)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("Backend = %q", cfg.Storage.Backend)
	}
	if cfg.Engine.SimilarityThreshold != 0.8 {
		t.Errorf("SimilarityThreshold = %g", cfg.Engine.SimilarityThreshold)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("Level = %q", cfg.Telemetry.Logging.Level)
	}
}

func TestLoadConfigWithEnvOverrides_InvalidOverride(t *testing.T) {
	path := writeConfigFile(t, "storage:\n  backend: memory\n")

	t.Setenv("SITEWATCH_STORAGE_BACKEND", "postgres")

	if _, err := LoadConfigWithEnvOverrides(path); err == nil {
		t.Error("expected validation failure for unknown storage backend")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:      "threshold above one",
			mutate:    func(c *Config) { c.Engine.SimilarityThreshold = 1.1 },
			wantField: "engine.similarity_threshold",
		},
		{
			name:      "negative epsilon",
			mutate:    func(c *Config) { c.Engine.ScoreEpsilon = -1 },
			wantField: "engine.score_epsilon",
		},
		{
			name:      "zero overrun factor",
			mutate:    func(c *Config) { c.Engine.OverrunFactor = 0 },
			wantField: "engine.overrun_factor",
		},
		{
			name: "unknown override severity",
			mutate: func(c *Config) {
				c.Engine.SeverityOverrides = map[string]string{"wrong_tool": "catastrophic"}
			},
			wantField: "engine.severity_overrides.wrong_tool",
		},
		{
			name: "escalation rule without condition",
			mutate: func(c *Config) {
				c.Engine.EscalationRules = []EscalationRule{{When: "", Severity: "high"}}
			},
			wantField: "engine.escalation_rules[0].when",
		},
		{
			name:      "unknown provider type",
			mutate:    func(c *Config) { c.Provider.Type = "grpc" },
			wantField: "provider.type",
		},
		{
			name:      "invalid base url",
			mutate:    func(c *Config) { c.Provider.BaseURL = "not a url" },
			wantField: "provider.base_url",
		},
		{
			name:      "empty model",
			mutate:    func(c *Config) { c.Provider.Model = "" },
			wantField: "provider.model",
		},
		{
			name:      "unknown storage backend",
			mutate:    func(c *Config) { c.Storage.Backend = "postgres" },
			wantField: "storage.backend",
		},
		{
			name: "sqlite without path",
			mutate: func(c *Config) {
				c.Storage.Backend = "sqlite"
				c.Storage.Path = ""
			},
			wantField: "storage.path",
		},
		{
			name:      "negative retention days",
			mutate:    func(c *Config) { c.Retention.RetentionDays = -1 },
			wantField: "retention.retention_days",
		},
		{
			name:      "unknown log level",
			mutate:    func(c *Config) { c.Telemetry.Logging.Level = "verbose" },
			wantField: "telemetry.logging.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			var verr ValidationError
			ok := false
			if v, isVal := err.(ValidationError); isVal {
				verr, ok = v, true
			}
			if !ok {
				t.Fatalf("error is %T, want ValidationError", err)
			}
			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("no error for field %q in %v", tt.wantField, verr.Errors)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine.SimilarityThreshold = 2
	cfg.Provider.Model = ""
	cfg.Storage.Backend = "postgres"

	err := Validate(cfg)
	verr, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("error is %T, want ValidationError", err)
	}
	if len(verr.Errors) < 3 {
		t.Errorf("Errors = %d, want all three collected: %v", len(verr.Errors), verr.Errors)
	}
}

func TestEngineConfig_Bridge(t *testing.T) {
	ec := EngineConfig{
		SimilarityThreshold: 0.70,
		ScoreEpsilon:        1e-6,
		OverrunFactor:       1.5,
		SeverityOverrides:   map[string]string{"wrong_zone": "medium"},
		EscalationRules: []EscalationRule{
			{When: `kind == "wrong_tool"`, Severity: "critical"},
		},
	}

	cfg, err := ec.EngineConfig()
	if err != nil {
		t.Fatalf("EngineConfig() error = %v", err)
	}
	if cfg.SeverityOverrides[engine.KindWrongZone] != engine.SeverityMedium {
		t.Errorf("SeverityOverrides = %v", cfg.SeverityOverrides)
	}
	if len(cfg.EscalationRules) != 1 || cfg.EscalationRules[0].Severity != engine.SeverityCritical {
		t.Errorf("EscalationRules = %v", cfg.EscalationRules)
	}
}

func TestEngineConfig_BridgeRejectsBadSeverity(t *testing.T) {
	ec := EngineConfig{
		SimilarityThreshold: 0.70,
		ScoreEpsilon:        1e-6,
		OverrunFactor:       1.5,
		SeverityOverrides:   map[string]string{"wrong_zone": "nope"},
	}
	if _, err := ec.EngineConfig(); err == nil {
		t.Error("EngineConfig() accepted unknown severity")
	}
}

func TestSingleton(t *testing.T) {
	cfg := DefaultConfig()
	SetConfig(cfg)
	defer SetConfig(nil)

	if GetConfig() != cfg {
		t.Error("GetConfig() did not return the set config")
	}
}
