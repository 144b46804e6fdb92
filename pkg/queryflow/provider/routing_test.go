package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestForModel tests the prefix routing table.
func TestForModel(t *testing.T) {
	tests := []struct {
		model    string
		provider string
		ok       bool
	}{
		{"gpt-4", OpenAI, true},
		{"gpt-3.5-turbo", OpenAI, true},
		{"chatgpt-4o-latest", OpenAI, true},
		{"o1-preview", OpenAI, true},
		{"o3-mini", OpenAI, true},
		{"text-embedding-3-small", OpenAI, true},
		{"gemini-pro", Gemini, true},
		{"gemini-1.5-flash", Gemini, true},
		{"embedding-001", Gemini, true},
		{"models/gemini-pro", Gemini, true},
		{"sentence-transformers/all-MiniLM-L6-v2", HuggingFace, true},
		{"BAAI/bge-small-en", HuggingFace, true},
		{"claude-3", "", false},
		{"llama-3", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			provider, ok := ForModel(tt.model)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.provider, provider)
		})
	}
}
