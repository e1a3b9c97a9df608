// Package parser turns files given on the command line into analysis input.
package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/datapilot-cli/internal/csvsample"
	"github.com/KaramelBytes/datapilot-cli/internal/utils"
)

// Input is what a parser produces. Sample is nil for plain text inputs, whose
// Text is sent to the model verbatim.
type Input struct {
	Name   string
	Text   string
	Sample *csvsample.Sample
}

// Tokens estimates the prompt size of the input.
func (in *Input) Tokens() int { return utils.CountTokens(in.Text) }

// Parser defines an input reader implementation.
type Parser interface {
	CanParse(filename string) bool
	Parse(content []byte, cfg csvsample.Config) (*Input, error)
}

var registry []Parser

// Register adds a parser implementation to the registry.
func Register(p Parser) {
	registry = append(registry, p)
}

// ErrEmptyInput is returned when a text input holds nothing but whitespace.
var ErrEmptyInput = errors.New("input file is empty")

// ParseFile reads path and parses it with the first matching parser.
func ParseFile(path string, cfg csvsample.Config) (*Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return Parse(path, data, cfg)
}

// Parse picks a parser by filename. Unknown extensions are read as plain text.
func Parse(name string, data []byte, cfg csvsample.Config) (*Input, error) {
	var p Parser = txtParser{}
	for _, cand := range registry {
		if cand.CanParse(name) {
			p = cand
			break
		}
	}
	in, err := p.Parse(data, cfg)
	if err != nil {
		return nil, err
	}
	in.Name = filepath.Base(name)
	return in, nil
}

func init() {
	Register(csvParser{})
	Register(txtParser{})
	Register(markdownParser{})
}
