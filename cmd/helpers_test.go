package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/datapilot-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/datapilot-cli/internal/config"
	"github.com/KaramelBytes/datapilot-cli/internal/csvsample"
)

type stubRuntime struct{}

func (stubRuntime) Generate(context.Context, ai.GenerateRequest) (*ai.GenerateResponse, error) {
	return nil, nil
}

type stubStreamRuntime struct {
	called int
	err    error
}

func (s *stubStreamRuntime) Generate(context.Context, ai.GenerateRequest) (*ai.GenerateResponse, error) {
	return nil, nil
}

func (s *stubStreamRuntime) GenerateStream(ctx context.Context, req ai.GenerateRequest, onDelta func(string)) error {
	s.called++
	onDelta("chunk")
	return s.err
}

func TestSelectModelPrecedence(t *testing.T) {
	cfg := &cfgpkg.Global{DefaultModel: "openai/gpt-4o"}

	assert.Equal(t, "cli-model", selectModel(cfg, ai.ProviderOpenRouter, "cli-model"))
	assert.Equal(t, "openai/gpt-4o", selectModel(cfg, ai.ProviderOpenRouter, ""))
	// A configured OpenRouter model is not sent to a local runtime.
	assert.Equal(t, "qwen2.5:7b", selectModel(cfg, ai.ProviderOllama, ""))
	assert.Equal(t, "mock", selectModel(cfg, ai.ProviderMock, ""))

	cfg.DefaultModel = "my-custom:latest"
	assert.Equal(t, "my-custom:latest", selectModel(cfg, ai.ProviderOllama, ""))

	cfg.DefaultModel = ""
	assert.Equal(t, ai.DefaultModel, selectModel(cfg, ai.ProviderOpenRouter, ""))
	assert.Equal(t, ai.DefaultModel, selectModel(nil, "unknown", ""))
}

func TestBuildRuntimeDefaults(t *testing.T) {
	rt, provider, err := buildRuntime(&cfgpkg.Global{}, runtimeOptions{})
	require.NoError(t, err)
	assert.Equal(t, ai.ProviderOpenRouter, provider)
	assert.IsType(t, &ai.Client{}, rt)

	rt, provider, err = buildRuntime(&cfgpkg.Global{DefaultProvider: "ollama"}, runtimeOptions{ProviderFlag: "local"})
	require.NoError(t, err)
	assert.Equal(t, ai.ProviderOllama, provider)
	assert.IsType(t, &ai.OllamaClient{}, rt)

	rt, provider, err = buildRuntime(nil, runtimeOptions{ProviderFlag: "mock"})
	require.NoError(t, err)
	assert.Equal(t, ai.ProviderMock, provider)
	assert.IsType(t, &ai.MockClient{}, rt)

	_, _, err = buildRuntime(nil, runtimeOptions{ProviderFlag: "carrier-pigeon"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider not supported")
}

func TestSelectPersona(t *testing.T) {
	assert.Equal(t, "Sales Manager", selectPersona(&cfgpkg.Global{Persona: "HR"}, "Sales Manager"))
	assert.Equal(t, "HR", selectPersona(&cfgpkg.Global{Persona: "HR"}, ""))
	assert.Equal(t, "General Data Analyst", selectPersona(nil, ""))
}

func TestCSVFlagsResolve(t *testing.T) {
	var f csvFlags
	cmd := &cobra.Command{Use: "x"}
	addCSVFlags(cmd, &f)
	cfg := &cfgpkg.Global{CSVDelimiter: "comma", CSVEncoding: "UTF-8", CSVHasHeader: true, CSVSkipEmptyLines: true}

	c, err := f.resolve(cmd, cfg)
	require.NoError(t, err)
	assert.Equal(t, csvsample.DelimiterComma, c.Delimiter)
	assert.True(t, c.HasHeader)

	require.NoError(t, cmd.ParseFlags([]string{"--delimiter", ";", "--encoding", "latin1", "--no-header", "--keep-empty-lines"}))
	c, err = f.resolve(cmd, cfg)
	require.NoError(t, err)
	assert.Equal(t, csvsample.Config{
		Delimiter:      csvsample.DelimiterSemicolon,
		HasHeader:      false,
		Encoding:       csvsample.EncodingLatin1,
		SkipEmptyLines: false,
	}, c)

	require.NoError(t, cmd.ParseFlags([]string{"--delimiter", "colon"}))
	_, err = f.resolve(cmd, cfg)
	assert.Error(t, err)
}

func TestHandleStreamingHappyPath(t *testing.T) {
	rt := &stubStreamRuntime{}
	var logs, deltas bytes.Buffer
	handled, err := handleStreaming(context.Background(), rt, ai.GenerateRequest{}, streamingOptions{
		Enabled: true, Writer: &logs, DeltaWriter: &deltas,
	})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, 1, rt.called)
	assert.Equal(t, "chunk\n", deltas.String())
	assert.Empty(t, logs.String())
}

func TestHandleStreamingFallback(t *testing.T) {
	var logs bytes.Buffer
	handled, err := handleStreaming(context.Background(), stubRuntime{}, ai.GenerateRequest{}, streamingOptions{
		Enabled: true, Writer: &logs,
	})
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Contains(t, logs.String(), "Streaming not supported")

	handled, err = handleStreaming(context.Background(), stubRuntime{}, ai.GenerateRequest{}, streamingOptions{})
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestHandleStreamingErrorPropagation(t *testing.T) {
	boom := errors.New("boom")
	rt := &stubStreamRuntime{err: boom}
	var deltas bytes.Buffer
	handled, err := handleStreaming(context.Background(), rt, ai.GenerateRequest{}, streamingOptions{
		Enabled: true, Writer: &bytes.Buffer{}, DeltaWriter: &deltas,
	})
	assert.True(t, handled)
	assert.ErrorIs(t, err, boom)
}

func TestWarnContextWindow(t *testing.T) {
	var w bytes.Buffer
	req := ai.GenerateRequest{Messages: []ai.Message{{Role: "user", Content: string(bytes.Repeat([]byte("word "), 20000))}}}
	tokens := warnContextWindow(&w, "llama3.1:8b", req)
	assert.Greater(t, tokens, 8192)
	assert.Contains(t, w.String(), "over the 8192 token context")

	w.Reset()
	warnContextWindow(&w, "google/gemini-2.5-flash", req)
	assert.Empty(t, w.String())
}

func TestReadResult(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(good, []byte(ai.MockAnalysis), 0o644))
	r, err := readResult(good)
	require.NoError(t, err)
	assert.Equal(t, "Attendance Records", r.InferredType)

	other := filepath.Join(dir, "other.json")
	require.NoError(t, os.WriteFile(other, []byte(`{"name":"not a result"}`), 0o644))
	_, err = readResult(other)
	assert.ErrorContains(t, err, "does not look like an analysis result")

	_, err = readResult(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestSetConfigValue(t *testing.T) {
	c := &cfgpkg.Global{}
	require.NoError(t, setConfigValue(c, "default_provider", "local"))
	assert.Equal(t, ai.ProviderOllama, c.DefaultProvider)
	require.NoError(t, setConfigValue(c, "csv_delimiter", ";"))
	assert.Equal(t, "semicolon", c.CSVDelimiter)
	require.NoError(t, setConfigValue(c, "csv_encoding", "latin1"))
	assert.Equal(t, "ISO-8859-1", c.CSVEncoding)
	require.NoError(t, setConfigValue(c, "csv_has_header", "false"))
	assert.False(t, c.CSVHasHeader)
	require.NoError(t, setConfigValue(c, "session_ttl_min", "45"))
	assert.Equal(t, 45, c.SessionTTLMin)
	require.NoError(t, setConfigValue(c, "log_level", "DEBUG"))
	assert.Equal(t, "debug", c.LogLevel)

	for key, val := range map[string]string{
		"default_provider": "carrier-pigeon",
		"temperature":      "hot",
		"max_upload_mb":    "0",
		"csv_delimiter":    "colon",
		"csrf_key":         "short",
		"log_format":       "xml",
		"no_such_key":      "1",
	} {
		assert.Error(t, setConfigValue(c, key, val), key)
	}
}

func TestMask(t *testing.T) {
	assert.Equal(t, "", mask(""))
	assert.Equal(t, "******", mask("abc"))
	assert.Equal(t, "sk-****xyz", mask("sk-1234567890xyz"))
}
