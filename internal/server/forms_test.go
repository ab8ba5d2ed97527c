package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseJobSites(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", nil},
		{"array", `["linkedin.com","indeed.com"]`, []string{"linkedin.com", "indeed.com"}},
		{"empty array", `[]`, []string{}},
		{"object", `{"site": "linkedin.com"}`, nil},
		{"plain string", "linkedin.com", nil},
		{"mixed types", `["linkedin.com", 3]`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseJobSites(tt.input))
		})
	}
}
