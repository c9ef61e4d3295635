package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultObjective is used when a caller supplies no research objective.
const DefaultObjective = "relationship analysis"

// Global configuration structure.
type Global struct {
	DataDir          string `mapstructure:"data_dir" yaml:"data_dir"`
	UploadDir        string `mapstructure:"upload_dir" yaml:"upload_dir"`
	ChartDir         string `mapstructure:"chart_dir" yaml:"chart_dir"`
	ReportDir        string `mapstructure:"report_dir" yaml:"report_dir"`
	DefaultObjective string `mapstructure:"default_objective" yaml:"default_objective"`
	WithReport       bool   `mapstructure:"with_report" yaml:"with_report"`

	// HTTP server
	ListenAddr  string   `mapstructure:"listen_addr" yaml:"listen_addr"`
	MaxUploadMB int      `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
	LogFile   string `mapstructure:"log_file" yaml:"log_file"`

	BatchConcurrency int `mapstructure:"batch_concurrency" yaml:"batch_concurrency"`
}

// Keys lists the settable configuration keys in display order.
var Keys = []string{
	"data_dir", "upload_dir", "chart_dir", "report_dir",
	"default_objective", "with_report",
	"listen_addr", "max_upload_mb", "cors_origins",
	"log_level", "log_format", "log_file",
	"batch_concurrency",
}

// Dir returns the default configuration directory, ~/.autostat.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".autostat"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.autostat/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. A .env file in the working
// directory is read first and never overrides variables already set.
func Load(cfgFile string) (*Global, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("AUTOSTAT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("data_dir", "")
	v.SetDefault("upload_dir", "")
	v.SetDefault("chart_dir", "")
	v.SetDefault("report_dir", "")
	v.SetDefault("default_objective", DefaultObjective)
	v.SetDefault("with_report", false)
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("max_upload_mb", 32)
	v.SetDefault("cors_origins", []string{"*"})
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("log_file", "")
	v.SetDefault("batch_concurrency", 4)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.resolveDirs(); err != nil {
		return nil, err
	}
	return &c, nil
}

// resolveDirs fills unset artifact directories under DataDir, which itself
// defaults to ~/.autostat/data.
func (c *Global) resolveDirs() error {
	if c.DataDir == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		c.DataDir = filepath.Join(dir, "data")
	}
	if c.UploadDir == "" {
		c.UploadDir = filepath.Join(c.DataDir, "uploads")
	}
	if c.ChartDir == "" {
		c.ChartDir = filepath.Join(c.DataDir, "charts")
	}
	if c.ReportDir == "" {
		c.ReportDir = filepath.Join(c.DataDir, "reports")
	}
	return nil
}

// Objective returns obj, or the configured default when obj is blank.
func (c *Global) Objective(obj string) string {
	if strings.TrimSpace(obj) != "" {
		return obj
	}
	if c != nil && c.DefaultObjective != "" {
		return c.DefaultObjective
	}
	return DefaultObjective
}
