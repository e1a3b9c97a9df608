package parser

import (
	"strings"

	"github.com/KaramelBytes/datapilot-cli/internal/csvsample"
)

type markdownParser struct{}

func (markdownParser) CanParse(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".md") || strings.HasSuffix(name, ".markdown")
}

func (markdownParser) Parse(content []byte, cfg csvsample.Config) (*Input, error) {
	in, err := txtParser{}.Parse(content, cfg)
	if err != nil {
		return nil, err
	}
	// Normalize line endings and collapse runs of blank lines.
	text := strings.ReplaceAll(in.Text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}
	in.Text = text
	return in, nil
}
