// Package config loads and saves the global DataPilot settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/datapilot-cli/internal/ai"
	"github.com/KaramelBytes/datapilot-cli/internal/analysis"
	"github.com/KaramelBytes/datapilot-cli/internal/csvsample"
)

// EnvPrefix namespaces environment overrides, e.g. DATAPILOT_DEFAULT_MODEL.
const EnvPrefix = "DATAPILOT"

// Global configuration structure.
type Global struct {
	APIKey          string  `mapstructure:"api_key" yaml:"api_key"`
	DefaultModel    string  `mapstructure:"default_model" yaml:"default_model"`
	DefaultProvider string  `mapstructure:"default_provider" yaml:"default_provider"`
	Persona         string  `mapstructure:"persona" yaml:"persona"`
	Temperature     float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens       int     `mapstructure:"max_tokens" yaml:"max_tokens"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Local runtimes (Ollama)
	OllamaHost       string `mapstructure:"ollama_host" yaml:"ollama_host"`
	OllamaTimeoutSec int    `mapstructure:"ollama_timeout_sec" yaml:"ollama_timeout_sec"`

	// CSV parsing defaults for new sessions and CLI runs
	CSVDelimiter      string `mapstructure:"csv_delimiter" yaml:"csv_delimiter"`
	CSVEncoding       string `mapstructure:"csv_encoding" yaml:"csv_encoding"`
	CSVHasHeader      bool   `mapstructure:"csv_has_header" yaml:"csv_has_header"`
	CSVSkipEmptyLines bool   `mapstructure:"csv_skip_empty_lines" yaml:"csv_skip_empty_lines"`

	// Web server
	ServerAddr    string `mapstructure:"server_addr" yaml:"server_addr"`
	CSRFKey       string `mapstructure:"csrf_key" yaml:"csrf_key"`
	CSRFSecure    bool   `mapstructure:"csrf_secure" yaml:"csrf_secure"`
	SessionTTLMin int    `mapstructure:"session_ttl_min" yaml:"session_ttl_min"`
	MaxUploadMB   int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_key", "")
	v.SetDefault("default_model", ai.DefaultModel)
	v.SetDefault("default_provider", ai.ProviderOpenRouter)
	v.SetDefault("persona", analysis.DefaultPersona)
	v.SetDefault("temperature", 0.2)
	v.SetDefault("max_tokens", 0)
	// HTTP/retry defaults. One attempt: failures surface to the user.
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 1)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	// Ollama defaults
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	v.SetDefault("ollama_timeout_sec", 120)
	// CSV defaults
	v.SetDefault("csv_delimiter", string(csvsample.DelimiterAuto))
	v.SetDefault("csv_encoding", string(csvsample.EncodingUTF8))
	v.SetDefault("csv_has_header", true)
	v.SetDefault("csv_skip_empty_lines", true)
	// Server defaults
	v.SetDefault("server_addr", ":8080")
	v.SetDefault("csrf_key", "")
	v.SetDefault("csrf_secure", false)
	v.SetDefault("session_ttl_min", 30)
	v.SetDefault("max_upload_mb", 10)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
}

// Dir returns ~/.datapilot.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".datapilot"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.datapilot/config.yaml, creating the directory if necessary.
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
	// The file may hold an API key.
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// flagKeys maps global CLI flags to the config keys they override.
var flagKeys = map[string]string{
	"log-level":     "log_level",
	"log-format":    "log_format",
	"http-timeout":  "http_timeout_sec",
	"retry-max":     "retry_max_attempts",
	"retry-base-ms": "retry_base_delay_ms",
	"retry-max-ms":  "retry_max_delay_ms",
	"ollama-host":   "ollama_host",
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags > env > config file > defaults. Only flags that were set
// on the command line override; flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	setDefaults(v)
	if err := v.BindEnv("api_key", EnvPrefix+"_API_KEY", "OPENROUTER_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}
	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

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
		// A missing default file is fine; an explicit or broken one is not.
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// CSVConfig returns the validated parsing config for new sessions.
func (c *Global) CSVConfig() (csvsample.Config, error) {
	return csvsample.Config{
		Delimiter:      csvsample.Delimiter(c.CSVDelimiter),
		HasHeader:      c.CSVHasHeader,
		Encoding:       csvsample.Encoding(c.CSVEncoding),
		SkipEmptyLines: c.CSVSkipEmptyLines,
	}.Validate()
}

// SessionTTL is the idle lifetime of a browser session.
func (c *Global) SessionTTL() time.Duration {
	if c.SessionTTLMin <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.SessionTTLMin) * time.Minute
}

// MaxUploadBytes caps multipart uploads.
func (c *Global) MaxUploadBytes() int64 {
	if c.MaxUploadMB <= 0 {
		return 10 << 20
	}
	return int64(c.MaxUploadMB) << 20
}
