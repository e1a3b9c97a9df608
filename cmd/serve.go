package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datapilot-cli/internal/ai"
	"github.com/KaramelBytes/datapilot-cli/internal/server"
	"github.com/KaramelBytes/datapilot-cli/internal/session"
)

var (
	srvAddr     string
	srvMock     bool
	srvModel    string
	srvProvider string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the browser interface",
	Example: `  datapilot serve
  datapilot serve --addr 127.0.0.1:9000 --mock`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		providerFlag := srvProvider
		if srvMock {
			providerFlag = ai.ProviderMock
		}
		rt, provider, err := buildRuntime(cfg, runtimeOptions{ProviderFlag: providerFlag})
		if err != nil {
			return err
		}
		model := selectModel(cfg, provider, srvModel)
		if provider == ai.ProviderOpenRouter && cfg.APIKey == "" {
			slog.Warn("no API key configured; analyses will fail until one is set", "hint", ai.Hint(ai.ErrMissingAPIKey))
		}

		csvCfg, err := cfg.CSVConfig()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		a := newAnalyzer(cfg, rt, model)
		store := session.NewStore(cfg.SessionTTL(), func(id string) *session.Session {
			return session.New(id, a, csvCfg)
		})

		addr := cfg.ServerAddr
		if srvAddr != "" {
			addr = srvAddr
		}
		timeout := time.Duration(cfg.HTTPTimeoutSec) * time.Second
		if provider == ai.ProviderOllama && cfg.OllamaTimeoutSec > 0 {
			timeout = time.Duration(cfg.OllamaTimeoutSec) * time.Second
		}
		srv, err := server.New(store, server.Config{
			Addr:           addr,
			CSRFKey:        cfg.CSRFKey,
			Secure:         cfg.CSRFSecure,
			MaxUploadBytes: cfg.MaxUploadBytes(),
			DefaultPersona: cfg.Persona,
			WriteTimeout:   timeout + 30*time.Second,
		})
		if err != nil {
			return err
		}
		slog.Info("serving", "addr", addr, "provider", provider, "model", model, "session_ttl", cfg.SessionTTL())
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ DataPilot is running at http://%s\n", displayAddr(addr))
		return srv.ListenAndServe(cmd.Context())
	},
}

func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&srvAddr, "addr", "", "listen address (default from config, :8080)")
	serveCmd.Flags().BoolVar(&srvMock, "mock", false, "answer with canned offline replies instead of a model")
	serveCmd.Flags().StringVarP(&srvModel, "model", "m", "", "model to use (default from config)")
	serveCmd.Flags().StringVar(&srvProvider, "provider", "", "runtime: openrouter|ollama|mock (default from config)")
}
