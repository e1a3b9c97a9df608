package utils_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/KaramelBytes/datapilot-cli/internal/utils"
)

func TestCountTokens(t *testing.T) {
	cases := []struct {
		name string
		in   string
		min  int
	}{
		{"empty", "", 0},
		{"simple", "hello world", 2},
		{"long", strings.Repeat("a", 4000), 900},
	}
	for _, c := range cases {
		assert.GreaterOrEqual(t, utils.CountTokens(c.in), c.min, c.name)
	}
	assert.Equal(t, 1, utils.CountTokens("ab"))
	assert.Equal(t, 2, utils.CountTokens("ééééééé€"), "counts runes, not bytes")
}

func TestTokenBreakdown(t *testing.T) {
	got := utils.TokenBreakdown(map[string]string{"system": strings.Repeat("x", 40), "user": ""})
	assert.Equal(t, map[string]int{"system": 10, "user": 0}, got)
}
