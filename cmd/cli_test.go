package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/datapilot-cli/internal/analysis"
)

const attendanceCSV = "Name,Status\nAlice,Present\nBob,Absent\nCara,Present\n"

// resetFlags restores every flag to its default so one invocation cannot
// leak Changed state into the next.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// isolate points HOME at a temp dir and clears key variables.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("DATAPILOT_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("DATAPILOT_DEFAULT_PROVIDER", "")
	return home
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func writeCSV(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestCLIPreview(t *testing.T) {
	home := isolate(t)
	file := writeCSV(t, home, "attendance.csv", "Name;Status\nAlice;Present\nBob;Absent\n")

	out, _, err := run(t, "preview", file)
	require.NoError(t, err)
	assert.Contains(t, out, "File: attendance.csv")
	assert.Contains(t, out, "Delimiter: semicolon")
	assert.Contains(t, out, "Alice")

	out, _, err = run(t, "preview", file, "--json")
	require.NoError(t, err)
	var sample struct {
		Headers []string `json:"headers"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &sample))
	assert.Equal(t, []string{"Name", "Status"}, sample.Headers)

	_, _, err = run(t, "preview", writeCSV(t, home, "empty.csv", "\n\n"))
	assert.Error(t, err)
}

func TestCLIAnalyzeWithMock(t *testing.T) {
	home := isolate(t)
	file := writeCSV(t, home, "attendance.csv", attendanceCSV)
	resultPath := filepath.Join(home, "out", "result.json")
	pdfDir := filepath.Join(home, "reports") + string(os.PathSeparator)

	out, errOut, err := run(t, "analyze", file, "--provider", "mock", "--output", resultPath, "--pdf", pdfDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Attendance Records")
	assert.Contains(t, out, "Raise attendance above 80%")
	assert.Contains(t, errOut, "✓ Saved result to")

	res, err := readResult(resultPath)
	require.NoError(t, err)
	assert.Equal(t, "Attendance Records", res.InferredType)

	pdf, err := os.ReadFile(filepath.Join(home, "reports", "Attendance_Records_Report.pdf"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))
}

func TestCLIAnalyzeJSONAndText(t *testing.T) {
	isolate(t)
	out, _, err := run(t, "analyze", "--text", "region,revenue\nnorth,10\nsouth,12", "--provider", "mock", "--json", "--persona", "Sales Manager")
	require.NoError(t, err)
	var res analysis.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "Attendance Records", res.InferredType)
	assert.NotEmpty(t, res.KeyMetrics)
}

func TestCLIAnalyzeDryRun(t *testing.T) {
	home := isolate(t)
	file := writeCSV(t, home, "attendance.csv", attendanceCSV)

	out, errOut, err := run(t, "analyze", file, "--provider", "mock", "--dry-run", "--print-prompt")
	require.NoError(t, err)
	assert.Contains(t, out, "Dry run: provider=mock model=mock")
	assert.Contains(t, out, `persona="General Data Analyst"`)
	assert.Contains(t, errOut, "Analyze this raw CSV data")
}

func TestCLIAnalyzeInputErrors(t *testing.T) {
	home := isolate(t)
	file := writeCSV(t, home, "attendance.csv", attendanceCSV)

	_, _, err := run(t, "analyze", "--provider", "mock")
	assert.ErrorContains(t, err, "nothing to analyze")

	_, _, err = run(t, "analyze", file, "--text", "x", "--provider", "mock")
	assert.ErrorContains(t, err, "not both")

	_, _, err = run(t, "analyze", file, "--provider", "mock", "--delimiter", "colon")
	assert.ErrorContains(t, err, "unsupported delimiter")
}

func TestCLIChatAndExport(t *testing.T) {
	home := isolate(t)
	file := writeCSV(t, home, "attendance.csv", attendanceCSV)
	resultPath := filepath.Join(home, "result.json")
	_, _, err := run(t, "analyze", file, "--provider", "mock", "-q", "-o", resultPath)
	require.NoError(t, err)

	out, _, err := run(t, "chat", "--result", resultPath, "--provider", "mock", "Who", "is", "absent?")
	require.NoError(t, err)
	assert.Contains(t, out, "offline answer")

	out, _, err = run(t, "chat", "-r", resultPath, "--provider", "mock", "--stream", "Who is absent?")
	require.NoError(t, err)
	assert.Contains(t, out, "offline answer")

	_, _, err = run(t, "chat", "question")
	assert.ErrorContains(t, err, "--result is required")

	outDir := filepath.Join(home, "pdf")
	require.NoError(t, os.MkdirAll(outDir, 0o755))
	out, _, err = run(t, "export", "--result", resultPath, "--file", file, "--out", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Wrote PDF to")
	_, err = os.Stat(filepath.Join(outDir, "Attendance_Records_Report.pdf"))
	assert.NoError(t, err)

	named := filepath.Join(home, "custom.pdf")
	_, _, err = run(t, "export", "-r", resultPath, "--out", named)
	require.NoError(t, err)
	_, err = os.Stat(named)
	assert.NoError(t, err)
}

func TestCLIConfigSetAndShow(t *testing.T) {
	home := isolate(t)

	out, _, err := run(t, "config", "set", "api_key", "sk-test-1234567890")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Saved api_key")
	_, _, err = run(t, "config", "set", "csv_delimiter", "tab")
	require.NoError(t, err)
	_, _, err = run(t, "config", "set", "default_provider", "nope")
	assert.Error(t, err)

	raw, err := os.ReadFile(filepath.Join(home, ".datapilot", "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "csv_delimiter: tab")

	out, _, err = run(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "api_key: sk-****890")
	assert.Contains(t, out, "csv_delimiter: tab")
	assert.NotContains(t, out, "sk-test-1234567890")
}

func TestCLIModels(t *testing.T) {
	home := isolate(t)

	out, _, err := run(t, "models", "show", "--provider", "ollama")
	require.NoError(t, err)
	assert.Contains(t, out, "qwen2.5:7b")
	assert.NotContains(t, out, "openai/gpt-4o")

	out, _, err = run(t, "models", "recommend", "--provider", "openrouter", "--tier", "cheap")
	require.NoError(t, err)
	assert.Equal(t, "openai/gpt-4o-mini", strings.TrimSpace(out))

	_, _, err = run(t, "models", "recommend", "--tier", "enormous")
	assert.Error(t, err)

	catalog := filepath.Join(home, "extra.json")
	require.NoError(t, os.WriteFile(catalog, []byte(`{"acme/tiny": {"Provider": "openrouter", "ContextTokens": 4096}}`), 0o644))
	out, _, err = run(t, "models", "sync", "--file", catalog)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Merged 1 models")
	_, err = os.Stat(filepath.Join(home, ".datapilot", "models.json"))
	require.NoError(t, err)

	out, _, err = run(t, "models", "show", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"Name": "acme/tiny"`)
}
