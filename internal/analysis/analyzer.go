// Package analysis owns the request/response boundary with the model: the
// analyst instruction, the response schema, decoding with a placeholder
// fallback, and the stateless follow-up chat prompt.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KaramelBytes/datapilot-cli/internal/ai"
)

const (
	// DefaultTemperature keeps answers factual.
	DefaultTemperature = 0.2

	// NoReply replaces an empty chat answer.
	NoReply = "I couldn't generate a response."
)

// ErrEmptyInput is returned when there is nothing to analyze.
var ErrEmptyInput = errors.New("analysis input is empty")

// Analyzer sends analysis and chat requests through a runtime.
type Analyzer struct {
	Runtime     ai.Runtime
	Model       string
	Temperature float64
	MaxTokens   int
}

// New returns an Analyzer with the default temperature.
func New(rt ai.Runtime, model string) *Analyzer {
	if model == "" {
		model = ai.DefaultModel
	}
	return &Analyzer{Runtime: rt, Model: model, Temperature: DefaultTemperature}
}

// Request builds the structured analysis request for input.
func (a *Analyzer) Request(input, persona string) ai.GenerateRequest {
	return ai.GenerateRequest{
		Model: a.Model,
		Messages: []ai.Message{
			{Role: "system", Content: SystemInstruction(persona)},
			{Role: "user", Content: input},
		},
		MaxTokens:      a.MaxTokens,
		Temperature:    a.Temperature,
		ResponseFormat: ai.SchemaFormat("analysis_result", Schema()),
	}
}

// Analyze requests a structured analysis. Transport failures are returned as
// errors. A body that arrives but cannot be used yields FallbackResult.
func (a *Analyzer) Analyze(ctx context.Context, input, persona string) (*Result, error) {
	if strings.TrimSpace(input) == "" {
		return nil, ErrEmptyInput
	}
	if a.Runtime == nil {
		return nil, errors.New("no model runtime configured")
	}
	resp, err := a.Runtime.Generate(ctx, a.Request(input, persona))
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	res, err := Decode(resp.Text())
	if err != nil {
		slog.Warn("analysis response unusable, showing placeholder", "model", a.Model, "request_id", resp.RequestID, "error", err)
		return FallbackResult(), nil
	}
	slog.Debug("analysis complete", "model", a.Model, "request_id", resp.RequestID, "type", res.InferredType)
	return res, nil
}

// ChatRequest builds the follow-up request. Earlier turns are never replayed.
func (a *Analyzer) ChatRequest(r *Result, message string) ai.GenerateRequest {
	return ai.GenerateRequest{
		Model:     a.Model,
		Messages:  []ai.Message{{Role: "user", Content: ChatPrompt(ContextString(r), message)}},
		MaxTokens: a.MaxTokens,
	}
}

// Chat answers one follow-up question about r.
func (a *Analyzer) Chat(ctx context.Context, r *Result, message string) (string, error) {
	if a.Runtime == nil {
		return "", errors.New("no model runtime configured")
	}
	resp, err := a.Runtime.Generate(ctx, a.ChatRequest(r, message))
	if err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}
	if text := resp.Text(); strings.TrimSpace(text) != "" {
		return text, nil
	}
	return NoReply, nil
}
