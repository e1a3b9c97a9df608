// Package csvsample turns uploaded CSV text into a header list, a bounded
// preview for display, and a bounded text sample for the model prompt.
//
// Field handling is intentionally simple: fields are split on the delimiter
// and a single pair of surrounding double quotes is removed. Delimiters
// inside quoted fields, escaped quotes and multi-line quoted fields are not
// supported.
package csvsample

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	// MaxPreviewRows caps the rows kept for on-screen display.
	MaxPreviewRows = 50
	// MaxPromptLines caps the raw lines embedded in the model prompt.
	MaxPromptLines = 25

	sniffLines = 5
)

// ErrEmptyFile is returned when no non-blank line remains to parse.
var ErrEmptyFile = errors.New("csv file is empty")

// Cell is one column/value pair of a row.
type Cell struct {
	Column string
	Value  string
}

// Row keeps cells in header order.
type Row []Cell

// Get returns the value for column, or "" when absent.
func (r Row) Get(column string) string {
	v := ""
	for _, c := range r {
		if c.Column == column {
			v = c.Value
		}
	}
	return v
}

// At returns the value in column position i, or "" when the row is short.
func (r Row) At(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return r[i].Value
}

// Map flattens the row. With duplicate column names the last value wins.
func (r Row) Map() map[string]string {
	m := make(map[string]string, len(r))
	for _, c := range r {
		m[c.Column] = c.Value
	}
	return m
}

// MarshalJSON encodes the row as an object whose keys follow header order.
func (r Row) MarshalJSON() ([]byte, error) {
	order := make([]string, 0, len(r))
	seen := make(map[string]bool, len(r))
	for _, c := range r {
		if !seen[c.Column] {
			seen[c.Column] = true
			order = append(order, c.Column)
		}
	}
	m := r.Map()
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range order {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object back into a row, keeping key order.
func (r *Row) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("csv row: expected object, got %v", tok)
	}
	row := Row{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		var v string
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("csv row: %w", err)
		}
		row = append(row, Cell{Column: tok.(string), Value: v})
	}
	*r = row
	return nil
}

// Sample is the result of parsing one file.
type Sample struct {
	Headers    []string  `json:"headers"`
	Rows       []Row     `json:"rows"`
	SampleText string    `json:"sampleText"`
	Prompt     string    `json:"prompt"`
	Delimiter  Delimiter `json:"delimiter"`
	TotalLines int       `json:"totalLines"`
	Truncated  bool      `json:"truncated"`
}

const promptTemplate = "Analyze this raw CSV data:\n\n%s\n\nTask: Identify the data type, calculate percentage breakdowns of categorical columns (like Status), and provide a summary."

// BuildPrompt embeds a raw sample into the fixed analysis instruction.
func BuildPrompt(sampleText string) string {
	return fmt.Sprintf(promptTemplate, sampleText)
}

// Parse decodes raw bytes with cfg.Encoding and parses the result.
func Parse(raw []byte, cfg Config) (*Sample, error) {
	text, err := Decode(raw, cfg.Encoding)
	if err != nil {
		return nil, err
	}
	return ParseText(text, cfg)
}

// ParseText parses already-decoded text.
func ParseText(text string, cfg Config) (*Sample, error) {
	lines := SplitLines(text, cfg.SkipEmptyLines)
	if !hasContent(lines) {
		return nil, ErrEmptyFile
	}

	delim := cfg.Delimiter
	if delim == "" || delim == DelimiterAuto {
		delim = DetectDelimiter(lines)
	}
	sep := delim.Sep()

	var headers []string
	body := lines
	if cfg.HasHeader {
		headers = splitFields(lines[0], sep)
		body = lines[1:]
	} else {
		n := len(strings.Split(lines[0], sep))
		headers = make([]string, n)
		for i := range headers {
			headers[i] = fmt.Sprintf("Column_%d", i+1)
		}
	}

	s := &Sample{
		Headers:    headers,
		Delimiter:  delim,
		TotalLines: len(lines),
	}
	if len(body) > MaxPreviewRows {
		body = body[:MaxPreviewRows]
		s.Truncated = true
	}
	s.Rows = make([]Row, 0, len(body))
	for _, line := range body {
		s.Rows = append(s.Rows, zipRow(headers, splitFields(line, sep)))
	}

	promptLines := lines
	if len(promptLines) > MaxPromptLines {
		promptLines = promptLines[:MaxPromptLines]
	}
	s.SampleText = strings.Join(promptLines, "\n")
	s.Prompt = BuildPrompt(s.SampleText)
	return s, nil
}

// SplitLines splits on CRLF or LF. With skipEmpty, lines that are blank
// after trimming are dropped before anything else looks at them.
func SplitLines(text string, skipEmpty bool) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if !skipEmpty {
		return raw
	}
	out := raw[:0]
	for _, l := range raw {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}

// DetectDelimiter picks the candidate with the highest average count per
// line over the first few non-empty lines. Ties go to the earlier candidate
// and input with no candidate at all falls back to a comma.
func DetectDelimiter(lines []string) Delimiter {
	var probe []string
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		probe = append(probe, l)
		if len(probe) == sniffLines {
			break
		}
	}
	if len(probe) == 0 {
		return DelimiterComma
	}
	best := DelimiterComma
	bestAvg := 0.0
	for _, d := range candidates {
		total := 0
		for _, l := range probe {
			total += strings.Count(l, d.Sep())
		}
		avg := float64(total) / float64(len(probe))
		if avg > bestAvg {
			best, bestAvg = d, avg
		}
	}
	return best
}

// Dequote trims the field and removes one surrounding pair of double quotes.
// A quote on only one end is left alone.
func Dequote(field string) string {
	f := strings.TrimSpace(field)
	if len(f) >= 2 && f[0] == '"' && f[len(f)-1] == '"' {
		return f[1 : len(f)-1]
	}
	return f
}

func splitFields(line, sep string) []string {
	parts := strings.Split(line, sep)
	for i, p := range parts {
		parts[i] = Dequote(p)
	}
	return parts
}

func zipRow(headers, values []string) Row {
	row := make(Row, len(headers))
	for i, h := range headers {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		row[i] = Cell{Column: h, Value: v}
	}
	return row
}

func hasContent(lines []string) bool {
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			return true
		}
	}
	return false
}
