package ai

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MockAnalysis is the canned structured reply used for offline runs.
const MockAnalysis = `{
  "inferredType": "Attendance Records",
  "summary": "The sample lists individual attendance entries with a categorical status column. Most entries are marked Present.",
  "keyMetrics": [
    {"label": "Rows Sampled", "value": "25", "trend": "neutral"},
    {"label": "Present", "value": "68%", "trend": "up"},
    {"label": "Absent", "value": "32%", "trend": "down"}
  ],
  "charts": [
    {
      "title": "Status Breakdown",
      "chartType": "pie",
      "xAxisKey": "name",
      "dataKey": "value",
      "description": "Share of each status value in the sample.",
      "data": [{"name": "Present", "value": 68}, {"name": "Absent", "value": 32}]
    }
  ],
  "recommendation": {
    "goal": "Raise attendance above 80%",
    "strategy": "Follow up with the members who are absent most often."
  },
  "pythonCode": "import pandas as pd\ndf = pd.read_csv('data.csv')\nprint(df['Status'].value_counts(normalize=True))"
}`

// MockClient answers without any network traffic. Requests that ask for a
// response format get Reply's JSON; everything else gets a short chat answer.
// It records every request it receives.
type MockClient struct {
	// Reply overrides the canned answers when set.
	Reply func(req GenerateRequest) (string, error)
	// Delay simulates provider latency.
	Delay time.Duration

	mu       sync.Mutex
	requests []GenerateRequest
}

// NewMockClient returns a mock with the canned replies.
func NewMockClient() *MockClient { return &MockClient{} }

// Generate records req and returns the scripted or canned reply.
func (m *MockClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	n := len(m.requests)
	m.mu.Unlock()

	if m.Delay > 0 {
		t := time.NewTimer(m.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	var (
		text string
		err  error
	)
	if m.Reply != nil {
		text, err = m.Reply(req)
	} else {
		text = cannedReply(req)
	}
	if err != nil {
		return nil, err
	}
	return &GenerateResponse{
		ID:        fmt.Sprintf("mock_%d", n),
		Choices:   []Choice{{Message: Message{Role: "assistant", Content: text}}},
		RequestID: fmt.Sprintf("mock_%d", n),
	}, nil
}

// GenerateStream delivers the reply word by word.
func (m *MockClient) GenerateStream(ctx context.Context, req GenerateRequest, onDelta func(string)) error {
	resp, err := m.Generate(ctx, req)
	if err != nil {
		return err
	}
	words := strings.SplitAfter(resp.Text(), " ")
	for _, w := range words {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		onDelta(w)
	}
	return nil
}

// Requests returns a copy of everything received so far.
func (m *MockClient) Requests() []GenerateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]GenerateRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// Calls reports how many requests were received.
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func cannedReply(req GenerateRequest) string {
	if req.ResponseFormat != nil {
		return MockAnalysis
	}
	return "This is an offline answer. Configure an API key for real analysis."
}
