package csvsample

import (
	"fmt"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Decode converts raw file bytes to text. Encoding labels resolve the way a
// browser resolves them (ISO-8859-1 and ASCII both map to windows-1252), and
// a leading byte order mark wins over the configured label.
func Decode(raw []byte, enc Encoding) (string, error) {
	if enc == "" {
		enc = EncodingUTF8
	}
	e, err := htmlindex.Get(string(enc))
	if err != nil {
		return "", fmt.Errorf("resolve encoding %s: %w", enc, err)
	}
	out, _, err := transform.Bytes(unicode.BOMOverride(e.NewDecoder()), raw)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", enc, err)
	}
	return string(out), nil
}
