// Package config provides configuration management for the andersgo service.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Log       LogConfig       `mapstructure:"log"`
}

// AnalysisConfig holds run-level configuration shared across analyses.
type AnalysisConfig struct {
	Version   string `mapstructure:"version"`
	DataDir   string `mapstructure:"data_dir"`
	MaxWorker int    `mapstructure:"max_worker"`
}

// WorklistOrder selects the active-worklist discipline for the solver.
type WorklistOrder string

const (
	WLOrderFIFO WorklistOrder = "fifo"
	WLOrderLIFO WorklistOrder = "lifo"
	WLOrderID   WorklistOrder = "id"
	WLOrderPrio WorklistOrder = "prio"
)

// EngineConfig holds the pointer-analysis engine's own options (spec.md §6
// "Configuration"), loaded the same way as any other config section.
type EngineConfig struct {
	FieldSensitive  bool          `mapstructure:"field_sensitive"`
	OCIOnly         bool          `mapstructure:"oci_only"`
	NoSolve         bool          `mapstructure:"no_solve"`
	CheckConsUndef  bool          `mapstructure:"check_cons_undef"`
	CheckGlobalNull bool          `mapstructure:"check_global_null"`
	SolveRAMLimitMB int           `mapstructure:"solve_ram_limit_mb"`
	SolveTimeLimitS int           `mapstructure:"solve_time_limit_s"`
	WLOrder         WorklistOrder `mapstructure:"wl_order"`
	DualWL          bool          `mapstructure:"dual_wl"`
	BMElsz          int           `mapstructure:"bm_elsz"`
	BVCMaxMB        int           `mapstructure:"bvc_max_mb"`
	BVCRemoveMB     int           `mapstructure:"bvc_remove_mb"`
	LCDSize         int           `mapstructure:"lcd_size"`
	LCDPeriod       int           `mapstructure:"lcd_period"`
	FactorLSMinSz   int           `mapstructure:"factor_ls_min_sz"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Type     string `mapstructure:"type"` // postgres, mysql, or sqlite
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	MaxConns int    `mapstructure:"max_conns"`
}

// StorageConfig holds object storage configuration.
type StorageConfig struct {
	Type      string `mapstructure:"type"` // cos or local
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
	Domain    string `mapstructure:"domain"`     // e.g., "myqcloud.com"
	Scheme    string `mapstructure:"scheme"`     // e.g., "https" or "http"
	LocalPath string `mapstructure:"local_path"` // for local storage
}

// SchedulerConfig controls the worker pool that runs queued analyses.
type SchedulerConfig struct {
	WorkerCount   int `mapstructure:"worker_count"`
	TaskBatchSize int `mapstructure:"task_batch_size"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"` // json or text
}

// Load reads configuration from the specified file path.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/andersgo")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("Config file not found, using defaults")
		} else if os.IsNotExist(err) {
			fmt.Printf("Config file %s not found, using defaults\n", configPath)
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadFromReader loads configuration from raw content (useful for testing).
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values, matching the tuned
// constants documented in the original analysis's config.h.
func setDefaults(v *viper.Viper) {
	v.SetDefault("analysis.version", "1.0.0")
	v.SetDefault("analysis.data_dir", "./data")
	v.SetDefault("analysis.max_worker", 5)

	v.SetDefault("engine.field_sensitive", true)
	v.SetDefault("engine.oci_only", false)
	v.SetDefault("engine.no_solve", false)
	v.SetDefault("engine.check_cons_undef", true)
	v.SetDefault("engine.check_global_null", false)
	v.SetDefault("engine.solve_ram_limit_mb", 3600)
	v.SetDefault("engine.solve_time_limit_s", 200)
	v.SetDefault("engine.wl_order", string(WLOrderPrio))
	v.SetDefault("engine.dual_wl", true)
	v.SetDefault("engine.bm_elsz", 128)
	v.SetDefault("engine.bvc_max_mb", 128)
	v.SetDefault("engine.bvc_remove_mb", 8)
	v.SetDefault("engine.lcd_size", 20)
	v.SetDefault("engine.lcd_period", 50000)
	v.SetDefault("engine.factor_ls_min_sz", 2)

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "andersgo.db")
	v.SetDefault("database.max_conns", 10)

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "./storage")

	v.SetDefault("scheduler.worker_count", 4)
	v.SetDefault("scheduler.task_batch_size", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.output_path", "./logs")
	v.SetDefault("log.format", "text")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Database.Type {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}

	if c.Database.Type != "sqlite" && c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Scheduler.WorkerCount < 1 {
		return fmt.Errorf("worker count must be at least 1")
	}

	if c.Engine.FactorLSMinSz <= 1 {
		return fmt.Errorf("engine.factor_ls_min_sz must be > 1")
	}

	return nil
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *Config) EnsureDataDir() error {
	if c.Analysis.DataDir == "" {
		return nil
	}
	return os.MkdirAll(c.Analysis.DataDir, 0755)
}

// GetRunDir returns the run-specific directory path.
func (c *Config) GetRunDir(runID string) string {
	return filepath.Join(c.Analysis.DataDir, runID)
}
