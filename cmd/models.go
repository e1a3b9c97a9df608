package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datapilot-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/datapilot-cli/internal/config"
	"github.com/KaramelBytes/datapilot-cli/internal/utils"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Inspect the model catalog and pricing hints",
	Example: `  datapilot models show
  datapilot models show --provider ollama --json
  datapilot models recommend --provider openrouter --tier cheap
  datapilot models sync --file ./models.json`,
}

var (
	showProvider string
	showJSON     bool
)

var modelsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current model catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		list := ai.Catalog()
		if showProvider != "" {
			var ok bool
			if list, ok = ai.PresetCatalog(showProvider); !ok {
				return fmt.Errorf("no models for provider %q", showProvider)
			}
		}
		out := cmd.OutOrStdout()
		if showJSON {
			b, err := utils.PrettyJSON(list)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, string(b))
			return err
		}
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "MODEL\tPROVIDER\tCONTEXT\tIN/1K\tOUT/1K\tSCHEMA")
		for _, m := range list {
			schema := "-"
			if m.StructuredOutput {
				schema = "yes"
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t$%.5f\t$%.5f\t%s\n", m.Name, m.Provider, m.ContextTokens, m.InputPerK, m.OutputPerK, schema)
		}
		return tw.Flush()
	},
}

var (
	recProvider string
	recTier     string
)

var modelsRecommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Print the recommended model for a provider and tier",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		provider := recProvider
		if provider == "" && cfg != nil {
			provider = cfg.DefaultProvider
		}
		m, ok := ai.RecommendModel(provider, recTier)
		if !ok {
			return fmt.Errorf("no recommendation for provider %q and tier %q (tiers: cheap, balanced, high-context)", provider, recTier)
		}
		fmt.Fprintln(cmd.OutOrStdout(), m)
		return nil
	},
}

var syncPath string

var modelsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Merge catalog entries from a JSON file and keep them for later runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if syncPath == "" {
			return fmt.Errorf("--file is required")
		}
		m, err := ai.LoadCatalogFromJSON(syncPath)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		target, err := catalogPath()
		if err != nil {
			return err
		}
		// Keep entries synced earlier unless this file redefines them.
		saved := map[string]ai.ModelInfo{}
		if prev, err := ai.LoadCatalogFromJSON(target); err == nil {
			saved = prev
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", target, err)
		}
		for k, v := range m {
			saved[k] = v
		}
		b, err := utils.PrettyJSON(saved)
		if err != nil {
			return err
		}
		if err := utils.SafeWriteFile(target, b); err != nil {
			return err
		}
		ai.MergeCatalog(m)
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Merged %d models into %s\n", len(m), target)
		return nil
	},
}

func catalogPath() (string, error) {
	dir, err := cfgpkg.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "models.json"), nil
}

// loadSavedCatalog applies entries persisted by "models sync".
func loadSavedCatalog() error {
	path, err := catalogPath()
	if err != nil {
		return err
	}
	m, err := ai.LoadCatalogFromJSON(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	ai.MergeCatalog(m)
	return nil
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.AddCommand(modelsShowCmd)
	modelsCmd.AddCommand(modelsRecommendCmd)
	modelsCmd.AddCommand(modelsSyncCmd)

	modelsShowCmd.Flags().StringVar(&showProvider, "provider", "", "only list models served by this runtime")
	modelsShowCmd.Flags().BoolVar(&showJSON, "json", false, "print the catalog as JSON")
	modelsRecommendCmd.Flags().StringVar(&recProvider, "provider", "", "runtime: openrouter|ollama|mock (default from config)")
	modelsRecommendCmd.Flags().StringVar(&recTier, "tier", "balanced", "cheap|balanced|high-context")
	modelsSyncCmd.Flags().StringVar(&syncPath, "file", "", "path to JSON catalog file")
}
