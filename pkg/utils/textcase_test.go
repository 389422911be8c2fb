package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitleCase(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercase words", "general hospital", "General Hospital"},
		{"already cased", "General Hospital", "General Hospital"},
		{"all caps", "MERCY CLINIC", "Mercy Clinic"},
		{"apostrophe is a boundary", "o'neill medical", "O'Neill Medical"},
		{"hyphenated", "saint-luc center", "Saint-Luc Center"},
		{"digits inside", "clinic 4a", "Clinic 4A"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TitleCase(tt.input))
		})
	}
}

func TestTitleCaseAll(t *testing.T) {
	values := []string{"springfield", "SHELBYVILLE"}
	assert.Equal(t, []string{"Springfield", "Shelbyville"}, TitleCaseAll(values))
}
