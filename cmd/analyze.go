package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datapilot-cli/internal/ai"
	"github.com/KaramelBytes/datapilot-cli/internal/analysis"
	"github.com/KaramelBytes/datapilot-cli/internal/export"
	"github.com/KaramelBytes/datapilot-cli/internal/parser"
	"github.com/KaramelBytes/datapilot-cli/internal/utils"
)

var (
	anaText        string
	anaJSON        bool
	anaOutputPath  string
	anaPDFPath     string
	anaPrintPrompt bool
	anaDryRun      bool
	anaQuiet       bool
	anaPersona     string
	anaModel       string
	anaProvider    string
	anaCSV         csvFlags
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Analyze a CSV file (or pasted text) with a language model",
	Example: `  datapilot analyze attendance.csv
  datapilot analyze leads.csv --persona "Sales Manager" --pdf ./reports/
  datapilot analyze --text "$(head -n 25 export.csv)" --json
  datapilot analyze data.csv --dry-run --print-prompt`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		errOut := cmd.ErrOrStderr()

		in, err := loadInput(cmd, args)
		if err != nil {
			return err
		}

		rt, provider, err := buildRuntime(cfg, runtimeOptions{ProviderFlag: anaProvider})
		if err != nil {
			return err
		}
		model := selectModel(cfg, provider, anaModel)
		persona := selectPersona(cfg, anaPersona)
		a := newAnalyzer(cfg, rt, model)
		req := a.Request(in.Text, persona)

		tokens := warnContextWindow(errOut, model, req)
		if info, ok := ai.LookupModel(model); ok && !info.StructuredOutput {
			slog.Warn("model is not known to honor response schemas; the reply may not parse", "model", model)
		}
		if anaPrintPrompt {
			fmt.Fprintln(errOut, "--print-prompt: system instruction --")
			fmt.Fprintln(errOut, req.Messages[0].Content)
			fmt.Fprintln(errOut, "-- input --")
			fmt.Fprintln(errOut, req.Messages[1].Content)
		}
		if anaDryRun {
			fmt.Fprintf(out, "Dry run: provider=%s model=%s persona=%q prompt_tokens=~%d\n", provider, model, persona, tokens)
			if cost, ok := ai.EstimateCostUSD(model, tokens, 0); ok && cost > 0 {
				fmt.Fprintf(out, "Estimated input cost: ~$%.4f\n", cost)
			}
			return nil
		}

		if !anaQuiet && !anaJSON {
			fmt.Fprintf(errOut, "Analyzing %s with %s...\n", in.Name, model)
		}
		res, err := a.Analyze(cmd.Context(), in.Text, persona)
		if err != nil {
			return err
		}
		if res.Fallback {
			fmt.Fprintln(errOut, "⚠ Warning: the model response could not be parsed; showing placeholder values.")
		}

		if anaJSON {
			b, err := utils.PrettyJSON(res)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
		} else {
			fmt.Fprint(out, res.Markdown(in.Sample))
		}

		if anaOutputPath != "" {
			b, err := utils.PrettyJSON(res)
			if err != nil {
				return err
			}
			if err := utils.SafeWriteFile(anaOutputPath, b); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			if !anaQuiet {
				fmt.Fprintf(errOut, "✓ Saved result to %s\n", anaOutputPath)
			}
		}
		if anaPDFPath != "" {
			path, err := writePDF(anaPDFPath, res, in)
			if err != nil {
				return err
			}
			if !anaQuiet {
				fmt.Fprintf(errOut, "✓ Wrote PDF to %s\n", path)
			}
		}
		return nil
	},
}

func loadInput(cmd *cobra.Command, args []string) (*parser.Input, error) {
	csvCfg, err := anaCSV.resolve(cmd, cfg)
	if err != nil {
		return nil, err
	}
	switch {
	case len(args) == 1 && anaText != "":
		return nil, errors.New("pass either a file or --text, not both")
	case len(args) == 1:
		return parser.ParseFile(args[0], csvCfg)
	case strings.TrimSpace(anaText) != "":
		return &parser.Input{Name: "pasted text", Text: anaText}, nil
	default:
		return nil, errors.New("nothing to analyze: pass a file or --text")
	}
}

// writePDF renders the report. A target that is an existing directory or ends
// in a separator receives the default report file name.
func writePDF(target string, res *analysis.Result, in *parser.Input) (string, error) {
	path := target
	if info, err := os.Stat(target); (err == nil && info.IsDir()) || strings.HasSuffix(target, string(os.PathSeparator)) {
		path = filepath.Join(target, export.Filename(res.InferredType))
	}
	var buf bytes.Buffer
	if err := export.WritePDF(&buf, res, in.Sample); err != nil {
		return "", err
	}
	if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
		return "", fmt.Errorf("write pdf: %w", err)
	}
	return path, nil
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	f := analyzeCmd.Flags()
	f.StringVar(&anaText, "text", "", "analyze pasted text instead of a file")
	f.BoolVar(&anaJSON, "json", false, "print the result as JSON")
	f.StringVarP(&anaOutputPath, "output", "o", "", "save the result JSON to this path")
	f.StringVar(&anaPDFPath, "pdf", "", "write a PDF report to this file or directory")
	f.BoolVar(&anaPrintPrompt, "print-prompt", false, "print the prompt before sending it")
	f.BoolVar(&anaDryRun, "dry-run", false, "build the request and estimate tokens without calling the model")
	f.BoolVarP(&anaQuiet, "quiet", "q", false, "suppress status lines")
	f.StringVar(&anaPersona, "persona", "", "viewpoint of the analysis (default from config)")
	f.StringVarP(&anaModel, "model", "m", "", "model to use (default from config)")
	f.StringVar(&anaProvider, "provider", "", "runtime: openrouter|ollama|mock (default from config)")
	addCSVFlags(analyzeCmd, &anaCSV)
}
