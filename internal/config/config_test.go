package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

// TestDefaultConfig verifies default configuration values
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", cfg.MaxAttempts)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.TasksDir != filepath.Join(".claudiomiro", "task-executor") {
		t.Errorf("TasksDir = %q", cfg.TasksDir)
	}
	if !cfg.Lenient {
		t.Error("Lenient should default to true")
	}
	if cfg.EscalationThreshold != 3 {
		t.Errorf("EscalationThreshold = %d, want 3", cfg.EscalationThreshold)
	}
	if cfg.Tiers["hard"] != "opus" || cfg.Tiers["fast"] != "haiku" {
		t.Errorf("Tiers = %v", cfg.Tiers)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

// TestLoadConfigValidFile tests loading a valid YAML config file
func TestLoadConfigValidFile(t *testing.T) {
	path := writeConfig(t, `max_concurrency: 4
max_attempts: 8
timeout: 30m
log_level: debug
log_dir: /tmp/logs
tasks_dir: work/tasks
escalation_threshold: 2
model: medium
step_models:
  step5: hard
tiers:
  hard: opus-large
checkpoints:
  lock_file: /tmp/cp.lock
learning:
  db_path: /tmp/h.db
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.MaxConcurrency != 4 {
		t.Errorf("MaxConcurrency = %d, want 4", cfg.MaxConcurrency)
	}
	if cfg.MaxAttempts != 8 {
		t.Errorf("MaxAttempts = %d, want 8", cfg.MaxAttempts)
	}
	if cfg.Timeout != 30*time.Minute {
		t.Errorf("Timeout = %v, want 30m", cfg.Timeout)
	}
	if cfg.LogLevel != "debug" || cfg.LogDir != "/tmp/logs" || cfg.TasksDir != "work/tasks" {
		t.Errorf("unexpected strings: %+v", cfg)
	}
	if cfg.EscalationThreshold != 2 {
		t.Errorf("EscalationThreshold = %d, want 2", cfg.EscalationThreshold)
	}
	if cfg.Model != "medium" || cfg.StepModels["step5"] != "hard" {
		t.Errorf("overrides = %q %v", cfg.Model, cfg.StepModels)
	}
	if cfg.Tiers["hard"] != "opus-large" || cfg.Tiers["medium"] != "sonnet" {
		t.Errorf("Tiers = %v, want merged with defaults", cfg.Tiers)
	}
	if !cfg.Checkpoints.Enabled || cfg.Checkpoints.LockFile != "/tmp/cp.lock" {
		t.Errorf("Checkpoints = %+v", cfg.Checkpoints)
	}
	if !cfg.Learning.Enabled || cfg.Learning.DBPath != "/tmp/h.db" {
		t.Errorf("Learning = %+v", cfg.Learning)
	}
}

// TestLoadConfigExplicitFalse verifies keys set to zero values override defaults
func TestLoadConfigExplicitFalse(t *testing.T) {
	path := writeConfig(t, `lenient: false
checkpoints:
  enabled: false
learning:
  enabled: false
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Lenient {
		t.Error("Lenient should be false")
	}
	if cfg.Checkpoints.Enabled {
		t.Error("Checkpoints.Enabled should be false")
	}
	if cfg.Learning.Enabled {
		t.Error("Learning.Enabled should be false")
	}
	if cfg.Learning.DBPath == "" {
		t.Error("Learning.DBPath should keep its default")
	}
}

// TestLoadConfigFileNotExists tests fallback to defaults when file doesn't exist
func TestLoadConfigFileNotExists(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() should not error on missing file, got: %v", err)
	}
	if cfg.MaxAttempts != DefaultConfig().MaxAttempts {
		t.Errorf("MaxAttempts = %d, want default", cfg.MaxAttempts)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"malformed yaml", "max_attempts: [1, 2\n", "failed to parse config file"},
		{"bad timeout", "timeout: soon\n", "invalid timeout format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("LoadConfig() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestLoadConfigFromDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, ".claudiomiro"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".claudiomiro", "config.yaml"), []byte("max_attempts: 2\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFromDir(dir)
	if err != nil {
		t.Fatalf("LoadConfigFromDir() error = %v", err)
	}
	if cfg.MaxAttempts != 2 {
		t.Errorf("MaxAttempts = %d, want 2", cfg.MaxAttempts)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"CLAUDIOMIRO_MODEL":       " Hard ",
		"CLAUDIOMIRO_STEP6_MODEL": "FAST",
		"CLAUDIOMIRO_LOG_LEVEL":   "DEBUG",
	}
	cfg := DefaultConfig()
	cfg.ApplyEnv(func(k string) string { return env[k] })

	if cfg.Model != "hard" {
		t.Errorf("Model = %q, want hard", cfg.Model)
	}
	if cfg.StepModels["step6"] != "fast" {
		t.Errorf("StepModels = %v", cfg.StepModels)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if _, ok := cfg.StepModels["step5"]; ok {
		t.Error("unset step variables must not create overrides")
	}

	overrides := cfg.Overrides()
	if overrides.Global != "hard" || overrides.Steps["step6"] != "fast" {
		t.Errorf("Overrides() = %+v", overrides)
	}
}

func TestMergeWithFlags(t *testing.T) {
	cfg := DefaultConfig()
	attempts := 9
	level := "warn"
	lenient := false
	cfg.MergeWithFlags(nil, &attempts, nil, &level, nil, &lenient)

	if cfg.MaxAttempts != 9 || cfg.LogLevel != "warn" || cfg.Lenient {
		t.Errorf("flags not merged: %+v", cfg)
	}
	if cfg.Timeout != time.Hour {
		t.Errorf("nil flags must keep values, Timeout = %v", cfg.Timeout)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"negative concurrency", func(c *Config) { c.MaxConcurrency = -1 }, "max_concurrency"},
		{"zero attempts", func(c *Config) { c.MaxAttempts = 0 }, "max_attempts"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, "timeout"},
		{"zero threshold", func(c *Config) { c.EscalationThreshold = 0 }, "escalation_threshold"},
		{"unknown model", func(c *Config) { c.Model = "ultra" }, "invalid model"},
		{"unknown step", func(c *Config) { c.StepModels["step42"] = "fast" }, "unknown step"},
		{"marker on fixed step", func(c *Config) { c.StepModels["step0"] = "dynamic" }, "step_models.step0"},
		{"empty tier model", func(c *Config) { c.Tiers["medium"] = "" }, "tiers.medium"},
		{"unknown tier", func(c *Config) { c.Tiers["extreme"] = "x" }, "unknown tier"},
		{"empty tasks dir", func(c *Config) { c.TasksDir = "" }, "tasks_dir"},
		{"empty db path", func(c *Config) { c.Learning.DBPath = "" }, "learning.db_path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.want)
			}
		})
	}

	cfg := DefaultConfig()
	cfg.StepModels["step5"] = "dynamic"
	cfg.StepModels["step7"] = "escalation"
	if err := cfg.Validate(); err != nil {
		t.Errorf("markers on their own steps should validate: %v", err)
	}
}
