package csvsample

import (
	"fmt"
	"strings"
)

// Delimiter selects how fields are separated. DelimiterAuto defers the
// choice to DetectDelimiter.
type Delimiter string

const (
	DelimiterAuto      Delimiter = "auto"
	DelimiterComma     Delimiter = "comma"
	DelimiterSemicolon Delimiter = "semicolon"
	DelimiterTab       Delimiter = "tab"
	DelimiterPipe      Delimiter = "pipe"
)

// candidates is the auto-detection order; earlier entries win ties.
var candidates = []Delimiter{DelimiterComma, DelimiterSemicolon, DelimiterTab, DelimiterPipe}

// Sep returns the literal separator. Auto and unknown values map to a comma.
func (d Delimiter) Sep() string {
	switch d {
	case DelimiterSemicolon:
		return ";"
	case DelimiterTab:
		return "\t"
	case DelimiterPipe:
		return "|"
	default:
		return ","
	}
}

// ParseDelimiter accepts either the symbolic name or the literal character.
func ParseDelimiter(s string) (Delimiter, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return DelimiterAuto, nil
	case ",", "comma":
		return DelimiterComma, nil
	case ";", "semicolon":
		return DelimiterSemicolon, nil
	case "\t", `\t`, "tab":
		return DelimiterTab, nil
	case "|", "pipe":
		return DelimiterPipe, nil
	}
	return "", fmt.Errorf("unsupported delimiter: %q (use auto|,|;|tab|'|')", s)
}

// Encoding names the character set used to decode uploaded bytes.
type Encoding string

const (
	EncodingUTF8   Encoding = "UTF-8"
	EncodingLatin1 Encoding = "ISO-8859-1"
	EncodingASCII  Encoding = "ASCII"
)

// Encodings lists the selectable encodings in display order.
var Encodings = []Encoding{EncodingUTF8, EncodingLatin1, EncodingASCII}

// ParseEncoding matches s case-insensitively against the supported set.
func ParseEncoding(s string) (Encoding, error) {
	if strings.TrimSpace(s) == "" {
		return EncodingUTF8, nil
	}
	norm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "_", "-"))
	switch norm {
	case "UTF-8", "UTF8":
		return EncodingUTF8, nil
	case "ISO-8859-1", "LATIN1", "LATIN-1":
		return EncodingLatin1, nil
	case "ASCII", "US-ASCII":
		return EncodingASCII, nil
	}
	return "", fmt.Errorf("unsupported encoding: %q (use UTF-8|ISO-8859-1|ASCII)", s)
}

// Config controls one parse of an uploaded file. Values are copied, never
// shared, so a Config is effectively immutable once handed to Parse.
type Config struct {
	Delimiter      Delimiter `json:"delimiter"`
	HasHeader      bool      `json:"hasHeader"`
	Encoding       Encoding  `json:"encoding"`
	SkipEmptyLines bool      `json:"skipEmptyLines"`
}

// DefaultConfig returns auto delimiter, header present, UTF-8, blank lines skipped.
func DefaultConfig() Config {
	return Config{
		Delimiter:      DelimiterAuto,
		HasHeader:      true,
		Encoding:       EncodingUTF8,
		SkipEmptyLines: true,
	}
}

// Validate normalizes the delimiter and encoding fields and rejects unknown values.
func (c Config) Validate() (Config, error) {
	d, err := ParseDelimiter(string(c.Delimiter))
	if err != nil {
		return c, err
	}
	e, err := ParseEncoding(string(c.Encoding))
	if err != nil {
		return c, err
	}
	c.Delimiter = d
	c.Encoding = e
	return c, nil
}
