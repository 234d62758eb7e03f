package skills

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"  JS ":       "javascript",
		"Golang":      "go",
		"REACT.JS":    "react",
		"k8s.":        "kubernetes",
		"Python3":     "python",
		"unrecognized-tool": "unrecognized-tool",
		"":            "",
		"   ":         "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), "input %q", in)
	}
}

func TestNormalizeAllDedupesPreservingOrder(t *testing.T) {
	got := NormalizeAll([]string{"JS", "javascript", "Go", "golang", "Rust"})
	assert.Equal(t, []string{"javascript", "go", "rust"}, got)
}

func TestNormalizeAllDropsEmpty(t *testing.T) {
	got := NormalizeAll([]string{"", "  ", "Python"})
	assert.Equal(t, []string{"python"}, got)
}
