package cmd

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datapilot-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/datapilot-cli/internal/config"
	"github.com/KaramelBytes/datapilot-cli/internal/csvsample"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set DataPilot configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		fmt.Fprintf(out, "api_key: %s\n", mask(cfg.APIKey))
		fmt.Fprintf(out, "default_model: %s\n", cfg.DefaultModel)
		fmt.Fprintf(out, "default_provider: %s\n", cfg.DefaultProvider)
		fmt.Fprintf(out, "persona: %s\n", cfg.Persona)
		fmt.Fprintf(out, "max_tokens: %d\n", cfg.MaxTokens)
		fmt.Fprintf(out, "temperature: %.3f\n", cfg.Temperature)
		fmt.Fprintf(out, "http_timeout_sec: %d\n", cfg.HTTPTimeoutSec)
		fmt.Fprintf(out, "retry_max_attempts: %d\n", cfg.RetryMaxAttempts)
		fmt.Fprintf(out, "retry_base_delay_ms: %d\n", cfg.RetryBaseDelayMs)
		fmt.Fprintf(out, "retry_max_delay_ms: %d\n", cfg.RetryMaxDelayMs)
		fmt.Fprintf(out, "ollama_host: %s\n", cfg.OllamaHost)
		fmt.Fprintf(out, "ollama_timeout_sec: %d\n", cfg.OllamaTimeoutSec)
		fmt.Fprintf(out, "csv_delimiter: %s\n", cfg.CSVDelimiter)
		fmt.Fprintf(out, "csv_encoding: %s\n", cfg.CSVEncoding)
		fmt.Fprintf(out, "csv_has_header: %t\n", cfg.CSVHasHeader)
		fmt.Fprintf(out, "csv_skip_empty_lines: %t\n", cfg.CSVSkipEmptyLines)
		fmt.Fprintf(out, "server_addr: %s\n", cfg.ServerAddr)
		fmt.Fprintf(out, "csrf_key: %s\n", mask(cfg.CSRFKey))
		fmt.Fprintf(out, "csrf_secure: %t\n", cfg.CSRFSecure)
		fmt.Fprintf(out, "session_ttl_min: %d\n", cfg.SessionTTLMin)
		fmt.Fprintf(out, "max_upload_mb: %d\n", cfg.MaxUploadMB)
		fmt.Fprintf(out, "log_level: %s\n", cfg.LogLevel)
		fmt.Fprintf(out, "log_format: %s\n", cfg.LogFormat)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Example: `  datapilot config set default_provider ollama
  datapilot config set csv_delimiter semicolon
  datapilot config set persona "Financial Auditor"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile, nil)
			if err != nil {
				return err
			}
			cfg = c
		}
		if err := setConfigValue(cfg, key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved %s\n", key)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func setConfigValue(c *cfgpkg.Global, key, val string) error {
	val = strings.TrimSpace(val)
	switch key {
	case "api_key":
		c.APIKey = val
	case "default_model":
		c.DefaultModel = val
	case "default_provider":
		p := ai.ResolveProvider(val)
		if !slices.Contains(ai.Providers(), p) {
			return fmt.Errorf("invalid default_provider: %s (use one of %s)", val, strings.Join(ai.Providers(), ", "))
		}
		c.DefaultProvider = p
	case "persona":
		if val == "" {
			return fmt.Errorf("persona must not be empty")
		}
		c.Persona = val
	case "max_tokens":
		return setInt(&c.MaxTokens, key, val, 0)
	case "temperature":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f < 0 || f > 2 {
			return fmt.Errorf("invalid float for temperature: %q (use 0 to 2)", val)
		}
		c.Temperature = f
	case "http_timeout_sec":
		return setInt(&c.HTTPTimeoutSec, key, val, 1)
	case "retry_max_attempts":
		return setInt(&c.RetryMaxAttempts, key, val, 1)
	case "retry_base_delay_ms":
		return setInt(&c.RetryBaseDelayMs, key, val, 0)
	case "retry_max_delay_ms":
		return setInt(&c.RetryMaxDelayMs, key, val, 0)
	case "ollama_host":
		c.OllamaHost = val
	case "ollama_timeout_sec":
		return setInt(&c.OllamaTimeoutSec, key, val, 1)
	case "csv_delimiter":
		d, err := csvsample.ParseDelimiter(val)
		if err != nil {
			return err
		}
		c.CSVDelimiter = string(d)
	case "csv_encoding":
		e, err := csvsample.ParseEncoding(val)
		if err != nil {
			return err
		}
		c.CSVEncoding = string(e)
	case "csv_has_header":
		return setBool(&c.CSVHasHeader, key, val)
	case "csv_skip_empty_lines":
		return setBool(&c.CSVSkipEmptyLines, key, val)
	case "server_addr":
		c.ServerAddr = val
	case "csrf_key":
		if val != "" && len(val) < 32 {
			return fmt.Errorf("csrf_key must be at least 32 bytes")
		}
		c.CSRFKey = val
	case "csrf_secure":
		return setBool(&c.CSRFSecure, key, val)
	case "session_ttl_min":
		return setInt(&c.SessionTTLMin, key, val, 1)
	case "max_upload_mb":
		return setInt(&c.MaxUploadMB, key, val, 1)
	case "log_level":
		if _, err := parseLevel(val); err != nil {
			return err
		}
		c.LogLevel = strings.ToLower(val)
	case "log_format":
		switch strings.ToLower(val) {
		case "console", "json":
			c.LogFormat = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_format: %s (use console or json)", val)
		}
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

func setInt(dst *int, key, val string, minimum int) error {
	i, err := strconv.Atoi(val)
	if err != nil || i < minimum {
		return fmt.Errorf("invalid int for %s: %q (minimum %d)", key, val, minimum)
	}
	*dst = i
	return nil
}

func setBool(dst *bool, key, val string) error {
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fmt.Errorf("invalid bool for %s: %q", key, val)
	}
	*dst = b
	return nil
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
