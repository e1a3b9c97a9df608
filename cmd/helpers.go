package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datapilot-cli/internal/ai"
	"github.com/KaramelBytes/datapilot-cli/internal/analysis"
	cfgpkg "github.com/KaramelBytes/datapilot-cli/internal/config"
	"github.com/KaramelBytes/datapilot-cli/internal/csvsample"
	"github.com/KaramelBytes/datapilot-cli/internal/utils"
)

type runtimeOptions struct {
	ProviderFlag string
}

func buildRuntime(cfg *cfgpkg.Global, opts runtimeOptions) (ai.Runtime, string, error) {
	rc := ai.RuntimeConfig{
		HTTPTimeout: 60 * time.Second,
		RetryMax:    1,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    4 * time.Second,
	}
	providerName := opts.ProviderFlag
	if cfg != nil {
		if cfg.HTTPTimeoutSec > 0 {
			rc.HTTPTimeout = time.Duration(cfg.HTTPTimeoutSec) * time.Second
		}
		if cfg.RetryMaxAttempts > 0 {
			rc.RetryMax = cfg.RetryMaxAttempts
		}
		if cfg.RetryBaseDelayMs > 0 {
			rc.BaseDelay = time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond
		}
		if cfg.RetryMaxDelayMs > 0 {
			rc.MaxDelay = time.Duration(cfg.RetryMaxDelayMs) * time.Millisecond
		}
		rc.APIKey = cfg.APIKey
		if strings.TrimSpace(providerName) == "" {
			providerName = cfg.DefaultProvider
		}
	}
	providerName = ai.ResolveProvider(providerName)

	if providerName == ai.ProviderOllama && cfg != nil {
		rc.Host = cfg.OllamaHost
		if cfg.OllamaTimeoutSec > 0 {
			rc.HTTPTimeout = time.Duration(cfg.OllamaTimeoutSec) * time.Second
		}
	}

	client, ok := ai.GetRuntime(providerName, rc)
	if !ok {
		return nil, providerName, fmt.Errorf("provider not supported: %s (use one of %s)", providerName, strings.Join(ai.Providers(), ", "))
	}
	return client, providerName, nil
}

// selectModel prefers the flag, then the configured default when it belongs
// to provider, then the provider's balanced preset.
func selectModel(cfg *cfgpkg.Global, provider, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if cfg != nil && cfg.DefaultModel != "" {
		info, known := ai.LookupModel(cfg.DefaultModel)
		if !known || ai.ResolveProvider(info.Provider) == provider {
			return cfg.DefaultModel
		}
	}
	if m, ok := ai.RecommendModel(provider, "balanced"); ok {
		return m
	}
	return ai.DefaultModel
}

func newAnalyzer(cfg *cfgpkg.Global, rt ai.Runtime, model string) *analysis.Analyzer {
	a := analysis.New(rt, model)
	if cfg != nil {
		if cfg.Temperature > 0 {
			a.Temperature = cfg.Temperature
		}
		a.MaxTokens = cfg.MaxTokens
	}
	return a
}

func selectPersona(cfg *cfgpkg.Global, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if cfg != nil && cfg.Persona != "" {
		return cfg.Persona
	}
	return analysis.DefaultPersona
}

// warnContextWindow prints a warning when the request likely overflows the
// model's context window, and the estimated cost when pricing is known.
func warnContextWindow(w io.Writer, model string, req ai.GenerateRequest) int {
	var text strings.Builder
	for _, m := range req.Messages {
		text.WriteString(m.Content)
	}
	tokens := utils.CountTokens(text.String())
	if info, ok := ai.LookupModel(model); ok && info.ContextTokens > 0 && tokens > info.ContextTokens {
		fmt.Fprintf(w, "⚠ Warning: prompt is ~%d tokens, over the %d token context of %s\n", tokens, info.ContextTokens, model)
	}
	return tokens
}

type csvFlags struct {
	Delimiter      string
	Encoding       string
	NoHeader       bool
	KeepEmptyLines bool
}

func addCSVFlags(cmd *cobra.Command, f *csvFlags) {
	cmd.Flags().StringVar(&f.Delimiter, "delimiter", "", "field delimiter: auto|,|;|tab|'|' (default from config)")
	cmd.Flags().StringVar(&f.Encoding, "encoding", "", "file encoding: UTF-8|ISO-8859-1|ASCII (default from config)")
	cmd.Flags().BoolVar(&f.NoHeader, "no-header", false, "treat the first line as data")
	cmd.Flags().BoolVar(&f.KeepEmptyLines, "keep-empty-lines", false, "keep blank lines instead of skipping them")
}

// resolve layers changed flags over the configured CSV defaults.
func (f csvFlags) resolve(cmd *cobra.Command, cfg *cfgpkg.Global) (csvsample.Config, error) {
	c := csvsample.DefaultConfig()
	if cfg != nil {
		var err error
		if c, err = cfg.CSVConfig(); err != nil {
			return c, fmt.Errorf("config: %w", err)
		}
	}
	fl := cmd.Flags()
	if fl.Changed("delimiter") {
		c.Delimiter = csvsample.Delimiter(f.Delimiter)
	}
	if fl.Changed("encoding") {
		c.Encoding = csvsample.Encoding(f.Encoding)
	}
	if fl.Changed("no-header") {
		c.HasHeader = !f.NoHeader
	}
	if fl.Changed("keep-empty-lines") {
		c.SkipEmptyLines = !f.KeepEmptyLines
	}
	return c.Validate()
}

type streamingOptions struct {
	Enabled     bool
	Quiet       bool
	Writer      io.Writer
	DeltaWriter io.Writer
}

func handleStreaming(ctx context.Context, runtime ai.Runtime, req ai.GenerateRequest, opts streamingOptions) (bool, error) {
	if !opts.Enabled {
		return false, nil
	}

	logWriter := opts.Writer
	if logWriter == nil {
		logWriter = os.Stderr
	}
	deltaWriter := opts.DeltaWriter
	if deltaWriter == nil {
		deltaWriter = os.Stdout
	}

	sr, ok := runtime.(ai.StreamRuntime)
	if !ok {
		if !opts.Quiet {
			fmt.Fprintln(logWriter, "⚠ Streaming not supported for this provider; falling back to non-streaming.")
		}
		return false, nil
	}

	if err := sr.GenerateStream(ctx, req, func(delta string) {
		fmt.Fprint(deltaWriter, delta)
	}); err != nil {
		return true, fmt.Errorf("streaming generation failed: %w", err)
	}
	fmt.Fprintln(deltaWriter)
	return true, nil
}

// readResult loads a result saved by "analyze --output" or "analyze --json".
func readResult(path string) (*analysis.Result, error) {
	var r analysis.Result
	if err := utils.ReadJSON(path, &r); err != nil {
		return nil, err
	}
	if r.InferredType == "" && r.Summary == "" {
		return nil, fmt.Errorf("%s does not look like an analysis result", path)
	}
	return &r, nil
}
