package parser

import (
	"strings"

	"github.com/KaramelBytes/datapilot-cli/internal/csvsample"
)

type txtParser struct{}

func (txtParser) CanParse(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".txt")
}

func (txtParser) Parse(content []byte, cfg csvsample.Config) (*Input, error) {
	text, err := csvsample.Decode(content, cfg.Encoding)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	return &Input{Text: text}, nil
}
