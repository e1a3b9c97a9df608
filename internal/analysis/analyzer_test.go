package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/KaramelBytes/datapilot-cli/internal/ai"
	"github.com/KaramelBytes/datapilot-cli/internal/csvsample"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reply(body string, err error) *ai.MockClient {
	return &ai.MockClient{Reply: func(ai.GenerateRequest) (string, error) { return body, err }}
}

func TestAnalyzeSendsStructuredRequest(t *testing.T) {
	m := reply(fullBody, nil)
	a := New(m, "")
	r, err := a.Analyze(context.Background(), "Analyze this", "Financial Analyst")
	require.NoError(t, err)
	assert.Equal(t, "Student Attendance", r.InferredType)

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	req := reqs[0]
	assert.Equal(t, ai.DefaultModel, req.Model)
	assert.Equal(t, DefaultTemperature, req.Temperature)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "Financial Analyst")
	assert.Equal(t, ai.Message{Role: "user", Content: "Analyze this"}, req.Messages[1])
	require.NotNil(t, req.ResponseFormat)
	assert.Equal(t, "json_schema", req.ResponseFormat.Type)
	assert.JSONEq(t, string(Schema()), string(req.ResponseFormat.JSONSchema.Schema))
}

func TestAnalyzeFallsBackOnUnparseableBody(t *testing.T) {
	for _, body := range []string{"", "not json", `{"summary":"only"}`} {
		r, err := New(reply(body, nil), "m").Analyze(context.Background(), "x", "")
		require.NoError(t, err, body)
		assert.True(t, r.Fallback, body)
		assert.Equal(t, FallbackResult(), r)
	}
}

func TestAnalyzeReturnsTransportErrors(t *testing.T) {
	r, err := New(reply("", ai.ErrMissingAPIKey), "m").Analyze(context.Background(), "x", "")
	assert.ErrorIs(t, err, ai.ErrMissingAPIKey)
	assert.Nil(t, r)
}

func TestAnalyzeRejectsBlankInput(t *testing.T) {
	m := ai.NewMockClient()
	_, err := New(m, "m").Analyze(context.Background(), "  \n", "")
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Zero(t, m.Calls())
}

func TestChatIsStatelessAndUsesContext(t *testing.T) {
	m := reply("Half of the students were absent.", nil)
	a := New(m, "m")
	res, err := Decode(fullBody)
	require.NoError(t, err)

	_, err = a.Chat(context.Background(), res, "first question")
	require.NoError(t, err)
	answer, err := a.Chat(context.Background(), res, "How many were absent?")
	require.NoError(t, err)
	assert.Equal(t, "Half of the students were absent.", answer)

	reqs := m.Requests()
	require.Len(t, reqs, 2)
	last := reqs[1]
	require.Len(t, last.Messages, 1)
	prompt := last.Messages[0].Content
	assert.Equal(t, ChatPrompt(ContextString(res), "How many were absent?"), prompt)
	assert.NotContains(t, prompt, "first question")
	assert.Nil(t, last.ResponseFormat)
}

func TestChatEmptyReply(t *testing.T) {
	answer, err := New(reply("   ", nil), "m").Chat(context.Background(), FallbackResult(), "hi")
	require.NoError(t, err)
	assert.Equal(t, NoReply, answer)
}

func TestChatError(t *testing.T) {
	boom := errors.New("boom")
	_, err := New(reply("", boom), "m").Chat(context.Background(), FallbackResult(), "hi")
	assert.ErrorIs(t, err, boom)
}

func TestSystemInstructionPersona(t *testing.T) {
	def := SystemInstruction("")
	assert.True(t, strings.HasPrefix(def, "You are an expert General Data Analyst."))
	assert.Contains(t, def, `"80% Present"`)
	assert.Contains(t, def, "strict JSON")
	assert.Contains(t, SystemInstruction("  Marketing Analyst "), "point of view of a Marketing Analyst.")
}

func TestChatPromptTemplate(t *testing.T) {
	want := "Context: You are a data assistant helping a user analyze a CSV file.\n" +
		"Here is the summary of the data: CTX\n\n" +
		"User Question: Q\n\n" +
		"Answer concisely and helpfully based on the data context provided."
	assert.Equal(t, want, ChatPrompt("CTX", "Q"))
}

func TestContextString(t *testing.T) {
	res, err := Decode(fullBody)
	require.NoError(t, err)
	got := ContextString(res)
	assert.Equal(t, "Type: Student Attendance. Summary: Two students, one absent. "+
		"Metrics: Attendance Rate: 50% (down); Students: 2 (neutral). "+
		"Recommendation: Target 95% Attendance. Strategy: Call absent students.", got)
	assert.Empty(t, ContextString(nil))
}

func TestMarkdown(t *testing.T) {
	res, err := Decode(fullBody)
	require.NoError(t, err)
	sample, err := csvsample.ParseText("Name,Status\nAlice,Present\nBob,Absent", csvsample.DefaultConfig())
	require.NoError(t, err)

	md := res.Markdown(sample)
	assert.True(t, strings.HasPrefix(md, "# Student Attendance\n"))
	assert.Contains(t, md, "| Attendance Rate | 50% | ↓ |")
	assert.Contains(t, md, "**Recommended Target (Next Quarter):** Target 95% Attendance")
	assert.Contains(t, md, "## Status (pie)")
	assert.Contains(t, md, "| Present | 1 |")
	assert.Contains(t, md, "## Raw Data Preview (first 2 rows)")
	assert.Contains(t, md, "| Bob | Absent |")
	assert.Contains(t, md, "```python\nprint(1)\n```")

	fb := FallbackResult().Markdown(nil)
	assert.Contains(t, fb, "placeholder values")
	assert.NotContains(t, fb, "```python")
	assert.NotContains(t, fb, "Raw Data Preview")
}

func TestMarkdownPreviewIsPositional(t *testing.T) {
	res, err := Decode(fullBody)
	require.NoError(t, err)
	sample, err := csvsample.ParseText("Name,Name\nAlice,Smith", csvsample.DefaultConfig())
	require.NoError(t, err)
	assert.Contains(t, res.Markdown(sample), "| Alice | Smith |")
}
