package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/samuelfaj/claudiomiro-sub004/internal/effort"
	"github.com/samuelfaj/claudiomiro-sub004/internal/logger"
)

// Environment variables read by ApplyEnv.
const (
	EnvModel    = "CLAUDIOMIRO_MODEL"
	EnvLogLevel = "CLAUDIOMIRO_LOG_LEVEL"
)

// DirName is the per-project state directory.
const DirName = ".claudiomiro"

// CheckpointConfig controls phase checkpoint commits.
type CheckpointConfig struct {
	// Enabled commits a checkpoint after each completed phase
	Enabled bool `yaml:"enabled"`

	// LockFile overrides the cross-process commit lock path
	LockFile string `yaml:"lock_file"`
}

// LearningConfig represents attempt history configuration
type LearningConfig struct {
	// Enabled records one history row per attempt
	Enabled bool `yaml:"enabled"`

	// DBPath is the path to the history database
	DBPath string `yaml:"db_path"`
}

// Config represents claudiomiro configuration options
type Config struct {
	// MaxConcurrency is the maximum number of concurrent tasks (0 = unlimited)
	MaxConcurrency int `yaml:"max_concurrency"`

	// MaxAttempts bounds the actor invocations per task and run
	MaxAttempts int `yaml:"max_attempts"`

	// Timeout is the maximum duration of one actor invocation (0 = none)
	Timeout time.Duration `yaml:"timeout"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where logs will be written
	LogDir string `yaml:"log_dir"`

	// TasksDir holds one folder per task
	TasksDir string `yaml:"tasks_dir"`

	// Lenient repairs invalid execution records instead of rejecting them
	Lenient bool `yaml:"lenient"`

	// EscalationThreshold is the attempt count that forces the hard tier
	EscalationThreshold int `yaml:"escalation_threshold"`

	// Model is the global tier override for every step
	Model string `yaml:"model"`

	// StepModels are per-step tier overrides
	StepModels map[string]string `yaml:"step_models"`

	// Tiers maps a tier to the actor model name
	Tiers map[string]string `yaml:"tiers"`

	Checkpoints CheckpointConfig `yaml:"checkpoints"`
	Learning    LearningConfig   `yaml:"learning"`
}

// DefaultTiers maps tiers to model names.
func DefaultTiers() map[string]string {
	return map[string]string{
		string(effort.Fast):   "haiku",
		string(effort.Medium): "sonnet",
		string(effort.Hard):   "opus",
	}
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		MaxConcurrency:      0,
		MaxAttempts:         5,
		Timeout:             time.Hour,
		LogLevel:            "info",
		LogDir:              filepath.Join(DirName, "logs"),
		TasksDir:            filepath.Join(DirName, "task-executor"),
		Lenient:             true,
		EscalationThreshold: effort.DefaultEscalationThreshold,
		StepModels:          map[string]string{},
		Tiers:               DefaultTiers(),
		Checkpoints: CheckpointConfig{
			Enabled: true,
		},
		Learning: LearningConfig{
			Enabled: true,
			DBPath:  filepath.Join(DirName, "history.db"),
		},
	}
}

// LoadConfig loads configuration from the specified file path.
// A missing file yields the defaults; a malformed one is an error.
// Keys present in the file override defaults even when set to zero values.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	type yamlConfig struct {
		MaxConcurrency      int               `yaml:"max_concurrency"`
		MaxAttempts         int               `yaml:"max_attempts"`
		Timeout             string            `yaml:"timeout"`
		LogLevel            string            `yaml:"log_level"`
		LogDir              string            `yaml:"log_dir"`
		TasksDir            string            `yaml:"tasks_dir"`
		Lenient             bool              `yaml:"lenient"`
		EscalationThreshold int               `yaml:"escalation_threshold"`
		Model               string            `yaml:"model"`
		StepModels          map[string]string `yaml:"step_models"`
		Tiers               map[string]string `yaml:"tiers"`
		Checkpoints         CheckpointConfig  `yaml:"checkpoints"`
		Learning            LearningConfig    `yaml:"learning"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	var rawMap map[string]interface{}
	if err := yaml.Unmarshal(data, &rawMap); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	has := func(m map[string]interface{}, key string) bool {
		_, ok := m[key]
		return ok
	}

	if has(rawMap, "max_concurrency") {
		cfg.MaxConcurrency = yamlCfg.MaxConcurrency
	}
	if has(rawMap, "max_attempts") {
		cfg.MaxAttempts = yamlCfg.MaxAttempts
	}
	if yamlCfg.Timeout != "" {
		timeout, err := time.ParseDuration(yamlCfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout format %q: %w", yamlCfg.Timeout, err)
		}
		cfg.Timeout = timeout
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.LogDir != "" {
		cfg.LogDir = yamlCfg.LogDir
	}
	if yamlCfg.TasksDir != "" {
		cfg.TasksDir = yamlCfg.TasksDir
	}
	if has(rawMap, "lenient") {
		cfg.Lenient = yamlCfg.Lenient
	}
	if has(rawMap, "escalation_threshold") {
		cfg.EscalationThreshold = yamlCfg.EscalationThreshold
	}
	if yamlCfg.Model != "" {
		cfg.Model = yamlCfg.Model
	}
	for step, tier := range yamlCfg.StepModels {
		cfg.StepModels[step] = tier
	}
	for tier, model := range yamlCfg.Tiers {
		cfg.Tiers[tier] = model
	}

	if section, ok := rawMap["checkpoints"].(map[string]interface{}); ok {
		if has(section, "enabled") {
			cfg.Checkpoints.Enabled = yamlCfg.Checkpoints.Enabled
		}
		if has(section, "lock_file") {
			cfg.Checkpoints.LockFile = yamlCfg.Checkpoints.LockFile
		}
	}
	if section, ok := rawMap["learning"].(map[string]interface{}); ok {
		if has(section, "enabled") {
			cfg.Learning.Enabled = yamlCfg.Learning.Enabled
		}
		if has(section, "db_path") {
			cfg.Learning.DBPath = yamlCfg.Learning.DBPath
		}
	}

	return cfg, nil
}

// LoadConfigFromDir loads configuration from .claudiomiro/config.yaml in dir.
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, DirName, "config.yaml"))
}

// StepEnvVar returns the override variable for step, e.g. CLAUDIOMIRO_STEP5_MODEL.
func StepEnvVar(step string) string {
	return "CLAUDIOMIRO_" + strings.ToUpper(step) + "_MODEL"
}

// ApplyEnv applies environment overrides read through getenv.
// Values are lower-cased; Validate rejects anything that is not a known tier.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvModel)); v != "" {
		c.Model = strings.ToLower(v)
	}
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	for _, step := range effort.Steps() {
		if v := strings.TrimSpace(getenv(StepEnvVar(step))); v != "" {
			if c.StepModels == nil {
				c.StepModels = map[string]string{}
			}
			c.StepModels[step] = strings.ToLower(v)
		}
	}
}

// MergeWithFlags merges CLI flags into the configuration.
// Non-nil flag values override configuration values.
func (c *Config) MergeWithFlags(maxConcurrency, maxAttempts *int, timeout *time.Duration, logLevel, model *string, lenient *bool) {
	if maxConcurrency != nil {
		c.MaxConcurrency = *maxConcurrency
	}
	if maxAttempts != nil {
		c.MaxAttempts = *maxAttempts
	}
	if timeout != nil {
		c.Timeout = *timeout
	}
	if logLevel != nil {
		c.LogLevel = *logLevel
	}
	if model != nil {
		c.Model = *model
	}
	if lenient != nil {
		c.Lenient = *lenient
	}
}

// Overrides returns the tier overrides for the effort selector.
func (c *Config) Overrides() effort.Overrides {
	steps := make(map[string]string, len(c.StepModels))
	for k, v := range c.StepModels {
		steps[k] = v
	}
	return effort.Overrides{Global: c.Model, Steps: steps}
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	if c.MaxConcurrency < 0 {
		return fmt.Errorf("max_concurrency must be >= 0, got %d", c.MaxConcurrency)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be >= 1, got %d", c.MaxAttempts)
	}
	if !logger.IsValidLevel(c.LogLevel) {
		return fmt.Errorf("invalid log_level %q, must be one of: %s", c.LogLevel, strings.Join(logger.ValidLevels, ", "))
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %v", c.Timeout)
	}
	if c.EscalationThreshold < 1 {
		return fmt.Errorf("escalation_threshold must be >= 1, got %d", c.EscalationThreshold)
	}
	if c.Model != "" && !effort.ValidTier(c.Model) {
		return fmt.Errorf("invalid model %q, must be one of: fast, medium, hard", c.Model)
	}

	steps := make([]string, 0, len(c.StepModels))
	for step := range c.StepModels {
		steps = append(steps, step)
	}
	sort.Strings(steps)
	for _, step := range steps {
		if _, ok := effort.StepDefaults[step]; !ok {
			return fmt.Errorf("step_models: unknown step %q", step)
		}
		if v := c.StepModels[step]; !effort.ValidStepValue(step, v) {
			return fmt.Errorf("step_models.%s: invalid value %q", step, v)
		}
	}

	for _, t := range effort.Tiers {
		if strings.TrimSpace(c.Tiers[string(t)]) == "" {
			return fmt.Errorf("tiers.%s: model name cannot be empty", t)
		}
	}
	for tier := range c.Tiers {
		if !effort.ValidTier(tier) {
			return fmt.Errorf("tiers: unknown tier %q", tier)
		}
	}

	if c.TasksDir == "" {
		return fmt.Errorf("tasks_dir cannot be empty")
	}
	if c.Learning.Enabled && c.Learning.DBPath == "" {
		return fmt.Errorf("learning.db_path cannot be empty when learning is enabled")
	}
	return nil
}
