package parser

import (
	"strings"

	"github.com/KaramelBytes/datapilot-cli/internal/csvsample"
)

type csvParser struct{}

func (csvParser) CanParse(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv")
}

func (csvParser) Parse(content []byte, cfg csvsample.Config) (*Input, error) {
	s, err := csvsample.Parse(content, cfg)
	if err != nil {
		return nil, err
	}
	return &Input{Text: s.Prompt, Sample: s}, nil
}
