package analysis

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Trend is the visual direction attached to a metric.
type Trend string

const (
	TrendUp      Trend = "up"
	TrendDown    Trend = "down"
	TrendNeutral Trend = "neutral"
)

// ChartType names a rendering style the model may propose.
type ChartType string

const (
	ChartBar  ChartType = "bar"
	ChartLine ChartType = "line"
	ChartPie  ChartType = "pie"
	ChartArea ChartType = "area"
)

type Metric struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Trend Trend  `json:"trend"`
}

// UnmarshalJSON keeps a bare number ("value": 85) as its literal text.
func (m *Metric) UnmarshalJSON(b []byte) error {
	var raw struct {
		Label json.RawMessage `json:"label"`
		Value json.RawMessage `json:"value"`
		Trend json.RawMessage `json:"trend"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	m.Label = looseString(raw.Label)
	m.Value = looseString(raw.Value)
	m.Trend = Trend(looseString(raw.Trend))
	return nil
}

// DataPoint is one labelled value of a chart.
type DataPoint struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// UnmarshalJSON accepts numbers, numeric strings and percentages ("68%").
// Anything else decodes as zero rather than failing the whole result.
func (d *DataPoint) UnmarshalJSON(b []byte) error {
	var raw struct {
		Name  json.RawMessage `json:"name"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	d.Name = looseString(raw.Name)
	d.Value = looseNumber(raw.Value)
	return nil
}

type Chart struct {
	Title       string      `json:"title"`
	ChartType   ChartType   `json:"chartType"`
	XAxisKey    string      `json:"xAxisKey"`
	DataKey     string      `json:"dataKey"`
	Description string      `json:"description,omitempty"`
	Data        []DataPoint `json:"data"`
}

type Recommendation struct {
	Goal     string `json:"goal"`
	Strategy string `json:"strategy"`
}

// GoalText is the goal, or "N/A" when the model left it blank.
func (r Recommendation) GoalText() string {
	if strings.TrimSpace(r.Goal) == "" {
		return "N/A"
	}
	return r.Goal
}

// StrategyText is the strategy, or a generic prompt when the model left it blank.
func (r Recommendation) StrategyText() string {
	if strings.TrimSpace(r.Strategy) == "" {
		return "Review data to formulate strategy."
	}
	return r.Strategy
}

// Result is one structured analysis as returned by the model. Fallback marks
// the local placeholder substituted for an unusable response body.
type Result struct {
	InferredType   string         `json:"inferredType"`
	Summary        string         `json:"summary"`
	KeyMetrics     []Metric       `json:"keyMetrics"`
	Charts         []Chart        `json:"charts"`
	Recommendation Recommendation `json:"recommendation"`
	PythonCode     string         `json:"pythonCode,omitempty"`
	Fallback       bool           `json:"fallback,omitempty"`
}

// RequiredFields must be present and non-null in a model response.
var RequiredFields = []string{"inferredType", "summary", "keyMetrics", "recommendation"}

// ErrMalformed wraps every reason a response body could not become a Result.
var ErrMalformed = errors.New("malformed analysis response")

// FallbackResult is the placeholder shown when a response cannot be used.
func FallbackResult() *Result {
	return &Result{
		InferredType: "Data Analysis",
		Summary:      "Could not parse analysis results. Please try again.",
		KeyMetrics:   []Metric{},
		Charts:       []Chart{},
		PythonCode:   "# Error parsing response",
		Recommendation: Recommendation{
			Goal:     "N/A",
			Strategy: "N/A",
		},
		Fallback: true,
	}
}

// Decode turns a response body into a Result. An empty body is treated as
// "{}". Markdown code fences around the document are tolerated. Any error
// wraps ErrMalformed.
func Decode(body string) (*Result, error) {
	text := stripFences(body)
	if text == "" {
		text = "{}"
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	for _, f := range RequiredFields {
		v, ok := fields[f]
		if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return nil, fmt.Errorf("%w: missing %s", ErrMalformed, f)
		}
	}
	var r Result
	if err := json.Unmarshal([]byte(text), &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	r.Fallback = false
	r.normalize()
	return &r, nil
}

func (r *Result) normalize() {
	if r.KeyMetrics == nil {
		r.KeyMetrics = []Metric{}
	}
	if r.Charts == nil {
		r.Charts = []Chart{}
	}
	for i := range r.KeyMetrics {
		switch Trend(strings.ToLower(string(r.KeyMetrics[i].Trend))) {
		case TrendUp:
			r.KeyMetrics[i].Trend = TrendUp
		case TrendDown:
			r.KeyMetrics[i].Trend = TrendDown
		default:
			r.KeyMetrics[i].Trend = TrendNeutral
		}
	}
	for i := range r.Charts {
		c := &r.Charts[i]
		switch ChartType(strings.ToLower(string(c.ChartType))) {
		case ChartLine, ChartPie, ChartArea:
			c.ChartType = ChartType(strings.ToLower(string(c.ChartType)))
		default:
			c.ChartType = ChartBar
		}
		if c.Data == nil {
			c.Data = []DataPoint{}
		}
	}
}

func stripFences(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	if nl := strings.IndexByte(t, '\n'); nl >= 0 {
		t = t[nl+1:]
	} else {
		t = ""
	}
	t = strings.TrimSpace(t)
	t = strings.TrimSuffix(t, "```")
	return strings.TrimSpace(t)
}

func looseString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func looseNumber(raw json.RawMessage) float64 {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0
	}
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	s = strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
